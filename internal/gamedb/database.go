package gamedb

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/version"
)

// MergePolicy 决定同一 TitleID 在多个数据源中重复出现时保留哪条记录。
type MergePolicy string

const (
	PolicyFirst      MergePolicy = "first"
	PolicyLast       MergePolicy = "last"
	PolicyPreferJSON MergePolicy = "prefer-json"
	PolicyPreferCSV  MergePolicy = "prefer-csv"
)

// ParseMergePolicy 解析配置值；空串为默认的 first。
func ParseMergePolicy(s string) (MergePolicy, bool) {
	switch p := MergePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyFirst, true
	case PolicyFirst, PolicyLast, PolicyPreferJSON, PolicyPreferCSV:
		return p, true
	default:
		return "", false
	}
}

// replaces 判断 incoming 是否应替换已存在的 existing。
func (p MergePolicy) replaces(existing, incoming domain.GameRecord) bool {
	switch p {
	case PolicyLast:
		return true
	case PolicyPreferJSON:
		return incoming.Origin == domain.OriginJSON && existing.Origin != domain.OriginJSON
	case PolicyPreferCSV:
		return incoming.Origin == domain.OriginCSV && existing.Origin != domain.OriginCSV
	default:
		return false
	}
}

// Database 是 TitleID -> GameRecord 的只读映射，Build 之后不再修改，可并发读。
type Database struct {
	byID  map[domain.TitleID]domain.GameRecord
	order []domain.TitleID
}

// Lookup 按 TitleID 精确查找（大小写不敏感）。nil 数据库上每次查找都未命中。
func (db *Database) Lookup(id domain.TitleID) (domain.GameRecord, bool) {
	if db == nil || db.byID == nil {
		return domain.GameRecord{}, false
	}
	rec, ok := db.byID[domain.TitleID(strings.ToUpper(strings.TrimSpace(string(id))))]
	return rec, ok
}

func (db *Database) Len() int {
	if db == nil {
		return 0
	}
	return len(db.byID)
}

// IDs 按首次插入顺序返回所有 TitleID。
func (db *Database) IDs() []domain.TitleID {
	if db == nil {
		return nil
	}
	return append([]domain.TitleID(nil), db.order...)
}

// Collision 描述一次重复键：Kept 为合并后保留的记录。
type Collision struct {
	TitleID domain.TitleID
	Kept    domain.GameRecord
	Dropped domain.GameRecord
}

type BuildOptions struct {
	Policy      MergePolicy
	Log         *zerolog.Logger
	OnCollision func(Collision)
}

// SourceResult 是单个数据源的加载统计。
//
// Loaded 为通过校验的记录数（含因重复被丢弃的），Skipped 为无法提取 id 或校验失败的行数。
type SourceResult struct {
	Name       string
	Origin     domain.SourceOrigin
	Loaded     int
	Skipped    int
	Collisions int
	Err        error
}

type BuildReport struct {
	Sources    []SourceResult
	Collisions int
}

// Failed 返回加载失败的数据源。
func (r BuildReport) Failed() []SourceResult {
	var out []SourceResult
	for _, s := range r.Sources {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Summaries 转换为报告中的数据源条目。
func (r BuildReport) Summaries() []domain.SourceSummary {
	out := make([]domain.SourceSummary, 0, len(r.Sources))
	for _, s := range r.Sources {
		ss := domain.SourceSummary{
			Name:       s.Name,
			Origin:     string(s.Origin),
			Loaded:     s.Loaded,
			Skipped:    s.Skipped,
			Collisions: s.Collisions,
		}
		if s.Err != nil {
			ss.Error = s.Err.Error()
		}
		out = append(out, ss)
	}
	return out
}

// Build 按调用方给出的顺序加载数据源并合并为数据库。
//
// 单个数据源失败不会中断构建：失败记入 SourceResult.Err，其余数据源照常加载。
// 零个数据源得到一个合法的空数据库。
func Build(ctx context.Context, sources []Source, opts BuildOptions) (*Database, BuildReport) {
	log := loggerOrNop(opts.Log)
	policy := opts.Policy
	if policy == "" {
		policy = PolicyFirst
	}

	db := &Database{byID: make(map[domain.TitleID]domain.GameRecord)}
	var rep BuildReport

	for _, src := range sources {
		res := SourceResult{Name: src.Name(), Origin: src.Origin()}

		if err := ctx.Err(); err != nil {
			res.Err = &SourceError{Source: res.Name, Err: err}
			rep.Sources = append(rep.Sources, res)
			continue
		}

		raws, err := src.Load(ctx)
		if err != nil {
			res.Err = &SourceError{Source: res.Name, Err: err}
			log.Error().Err(err).Str("source", res.Name).Msg("数据源加载失败")
			rep.Sources = append(rep.Sources, res)
			continue
		}

		for _, raw := range raws {
			rec, ok := toRecord(raw, src)
			if !ok {
				res.Skipped++
				continue
			}
			res.Loaded++

			existing, dup := db.byID[rec.TitleID]
			if !dup {
				db.byID[rec.TitleID] = rec
				db.order = append(db.order, rec.TitleID)
				continue
			}

			res.Collisions++
			rep.Collisions++
			c := Collision{TitleID: rec.TitleID, Kept: existing, Dropped: rec}
			if policy.replaces(existing, rec) {
				db.byID[rec.TitleID] = rec
				c.Kept, c.Dropped = rec, existing
			}
			log.Warn().
				Str("title_id", string(rec.TitleID)).
				Str("kept", c.Kept.SourceName).
				Str("dropped", c.Dropped.SourceName).
				Msg("重复的 TitleID")
			if opts.OnCollision != nil {
				opts.OnCollision(c)
			}
		}

		log.Info().
			Str("source", res.Name).
			Int("loaded", res.Loaded).
			Int("skipped", res.Skipped).
			Int("collisions", res.Collisions).
			Msg("数据源已加载")
		rep.Sources = append(rep.Sources, res)
	}

	if len(sources) == 0 {
		log.Warn().Msg("没有任何数据源，数据库为空")
	}
	return db, rep
}

// toRecord 提取 TitleID、规范化版本并校验；不合格的行返回 ok=false。
func toRecord(raw RawRecord, src Source) (domain.GameRecord, bool) {
	id, ok := domain.FindTitleID(raw.ID)
	if !ok {
		return domain.GameRecord{}, false
	}
	ver, _ := version.Normalize(raw.Version)

	rec := domain.GameRecord{
		TitleID:       id,
		TitleName:     strings.TrimSpace(raw.Name),
		LatestVersion: ver,
		Origin:        src.Origin(),
		SourceName:    src.Name(),
	}
	if err := validate.Struct(rec); err != nil {
		return domain.GameRecord{}, false
	}
	return rec, true
}
