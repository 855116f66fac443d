package planner

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/naming"
	"github.com/John-Robertt/ps4ren/internal/pkgname"
	"github.com/John-Robertt/ps4ren/internal/version"
)

const (
	ReasonParseFailed  = "Could not parse filename"
	ReasonAlreadyNamed = "already correctly named"
)

// LookupMissReason 是数据库中找不到 id 时的原因文本。
func LookupMissReason(id domain.TitleID) string {
	return fmt.Sprintf("No game info found for %s in database", id)
}

// ConflictReason 是目标名已被占用时的原因文本。
func ConflictReason(other string) string {
	return "target name already used by " + other
}

// Lookuper 是规划器对数据库的唯一依赖。
type Lookuper interface {
	Lookup(id domain.TitleID) (domain.GameRecord, bool)
}

// Suggester 是可选能力：数据库实现了它时，LookupMiss 会附带相近 id。
type Suggester interface {
	Suggest(id domain.TitleID, n int) []domain.TitleID
}

// VersionSource 决定 [UPDATE ...] 段取文件名中的版本还是数据库记录中的版本。
type VersionSource string

const (
	VersionFromFilename VersionSource = "filename"
	VersionFromDatabase VersionSource = "database"
)

func ParseVersionSource(s string) (VersionSource, bool) {
	switch v := VersionSource(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VersionFromFilename, true
	case VersionFromFilename, VersionFromDatabase:
		return v, true
	default:
		return "", false
	}
}

type Options struct {
	VersionSource VersionSource
	// PartSuffix 为 true 时，分卷文件在 .pkg 前追加 _Part{N}。
	PartSuffix bool
	// Suggest 是 LookupMiss 时最多附带的相近 id 数；0 表示不附带。
	Suggest int

	OnParseFailure func(filename string, err error)
}

// Plan 为每个输入文件名生成一个决策，顺序与输入一致（纯函数，不访问文件系统）。
//
// 目标名按“先到先得”分配：与其它输入文件的当前名字相同、或已被前面的文件占用的候选名，
// 判为 Error（target_conflict）。比较时忽略大小写，以兼容大小写不敏感的文件系统。
func Plan(filenames []string, db Lookuper, opts Options) []domain.RenameDecision {
	existing := make(map[string]string, len(filenames))
	for _, name := range filenames {
		k := foldKey(name)
		if _, ok := existing[k]; !ok {
			existing[k] = name
		}
	}
	claimed := make(map[string]string, len(filenames))

	out := make([]domain.RenameDecision, 0, len(filenames))
	for _, name := range filenames {
		d := planOne(name, db, opts)
		if d.Outcome == domain.OutcomeRenamed {
			k := foldKey(d.NewName)
			if other, ok := claimed[k]; ok {
				d = conflict(d, other)
			} else if other, ok := existing[k]; ok && other != name {
				d = conflict(d, other)
			} else {
				claimed[k] = name
			}
		}
		out = append(out, d)
	}
	return out
}

func planOne(name string, db Lookuper, opts Options) domain.RenameDecision {
	d := domain.RenameDecision{Original: name}

	parsed, err := pkgname.Parse(name)
	if err != nil {
		if opts.OnParseFailure != nil {
			opts.OnParseFailure(name, err)
		}
		d.Outcome = domain.OutcomeError
		d.Reason = ReasonParseFailed
		d.ErrorCode = domain.ErrCodeParseFailed
		return d
	}
	d.TitleID = parsed.TitleID
	d.Pattern = parsed.Pattern

	var (
		rec domain.GameRecord
		ok  bool
	)
	if db != nil {
		rec, ok = db.Lookup(parsed.TitleID)
	}
	if !ok {
		d.Outcome = domain.OutcomeError
		d.Reason = LookupMissReason(parsed.TitleID)
		d.ErrorCode = domain.ErrCodeLookupMiss
		if s, isSuggester := db.(Suggester); isSuggester && opts.Suggest > 0 {
			for _, id := range s.Suggest(parsed.TitleID, opts.Suggest) {
				d.Suggestions = append(d.Suggestions, string(id))
			}
		}
		return d
	}
	d.TitleID = rec.TitleID

	ver := pickVersion(parsed, rec, opts.VersionSource)
	d.Version = ver

	part := ""
	if opts.PartSuffix {
		part = parsed.Part
	}
	newName := naming.Sanitize(naming.Compose(rec.TitleName, ver, rec.TitleID, part))

	if newName == name {
		d.Outcome = domain.OutcomeSkipped
		d.Reason = ReasonAlreadyNamed
		return d
	}
	d.Outcome = domain.OutcomeRenamed
	d.NewName = newName
	return d
}

// pickVersion 返回展示用版本；空串表示省略 [UPDATE ...] 段。
//
// database 模式下记录没有版本时回退到文件名中的版本。
func pickVersion(p domain.ParsedFilename, rec domain.GameRecord, src VersionSource) string {
	if src == VersionFromDatabase && rec.LatestVersion != "" {
		if v, ok := version.Normalize(rec.LatestVersion); ok {
			return v
		}
	}
	if v, ok := version.Normalize(p.RawVersion); ok {
		return v
	}
	return ""
}

func conflict(d domain.RenameDecision, other string) domain.RenameDecision {
	d.Outcome = domain.OutcomeError
	d.Reason = ConflictReason(other)
	d.ErrorCode = domain.ErrCodeTargetConflict
	d.NewName = ""
	return d
}

func foldKey(name string) string { return strings.ToLower(name) }
