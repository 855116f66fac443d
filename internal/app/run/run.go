package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/ps4ren/internal/app/planner"
	"github.com/John-Robertt/ps4ren/internal/config"
	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/gamedb"
	"github.com/John-Robertt/ps4ren/internal/infra/cache"
	"github.com/John-Robertt/ps4ren/internal/infra/fsx"
	"github.com/John-Robertt/ps4ren/internal/infra/httpx"
	"github.com/John-Robertt/ps4ren/internal/scan"
)

// Deps 是一次运行的外部依赖；零值字段使用默认实现。
type Deps struct {
	Fs       afero.Fs         // 默认 afero.NewOsFs()
	Clock    clockwork.Clock  // 默认真实时钟
	HTTP     *http.Client     // 为空时按 eff.ProxyURL 构造
	Log      *zerolog.Logger  // 为空时丢弃
	Registry *gamedb.Registry // 默认 gamedb.DefaultRegistry()
}

func (d Deps) withDefaults() Deps {
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Log == nil {
		nop := zerolog.Nop()
		d.Log = &nop
	}
	if d.Registry == nil {
		reg := gamedb.DefaultRegistry()
		d.Registry = &reg
	}
	return d
}

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 错误尽量“降级”为 item 级失败（单个文件失败不影响其他文件）。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, deps, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) domain.RunReport {
	deps = deps.withDefaults()
	clock := deps.Clock
	log := deps.Log

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: clock.Now(),
		Items:     make([]domain.ItemResult, 0, 64),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = clock.Now()
		rr.Finalize()
		log.Info().
			Str("run_id", rr.RunID).
			Bool("dry_run", rr.DryRun).
			Int("total", rr.Summary.Total).
			Int("renamed", rr.Summary.Renamed).
			Int("skipped", rr.Summary.Skipped).
			Int("errors", rr.Summary.Errors).
			Msg("运行结束")
		return rr
	}

	client := deps.HTTP
	if client == nil {
		c, err := httpx.NewClient(eff.ProxyURL)
		if err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err)))
			return finish()
		}
		client = c
	}

	// sources
	started := clock.Now()
	locs := eff.Sources
	if len(locs) == 0 {
		found, err := scan.DiscoverSources(deps.Fs, eff.SourceDir, *deps.Registry, []string{eff.ConfigFile})
		if err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeSourceFailed, fmt.Sprintf("发现数据源失败：%v", err)))
		}
		locs = found
	}

	opener := gamedb.Opener{
		Fs:       deps.Fs,
		Registry: *deps.Registry,
		HTTP:     client,
		Cache:    cache.New(deps.Fs, eff.CacheDir, !eff.Apply),
		Log:      log,
	}
	sources := make([]gamedb.Source, 0, len(locs))
	var openFailed []domain.SourceSummary
	for _, loc := range locs {
		src, err := opener.Open(loc)
		if err != nil {
			log.Error().Err(err).Str("source", loc).Msg("无法打开数据源")
			openFailed = append(openFailed, domain.SourceSummary{Name: loc, Error: err.Error()})
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeSourceFailed, err.Error()))
			continue
		}
		sources = append(sources, src)
	}

	db, build := gamedb.Build(ctx, sources, gamedb.BuildOptions{Policy: eff.MergePolicy, Log: log})
	for _, f := range build.Failed() {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeSourceFailed, f.Err.Error()))
	}
	rr.Sources = append(build.Summaries(), openFailed...)
	rr.DatabaseSize = db.Len()
	rr.Collisions = build.Collisions
	if obs != nil {
		obs.OnPhaseDone(PhaseSources, map[string]any{
			"sources":    len(locs),
			"failed":     len(build.Failed()) + len(openFailed),
			"records":    db.Len(),
			"collisions": build.Collisions,
		}, clock.Since(started))
	}

	// scan
	started = clock.Now()
	files, err := scan.ScanPackages(deps.Fs, eff.Path)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		return finish()
	}
	if obs != nil {
		obs.OnPhaseDone(PhaseScan, map[string]any{"files": len(files)}, clock.Since(started))
	}

	// plan
	started = clock.Now()
	decisions := planner.Plan(scan.Names(files), db, planner.Options{
		VersionSource: eff.VersionSource,
		PartSuffix:    eff.PartSuffix,
		Suggest:       eff.Suggest,
		OnParseFailure: func(name string, err error) {
			log.Warn().Err(err).Str("file", name).Msg("无法解析文件名")
		},
	})
	counts := domain.Summarize(decisions)
	if obs != nil {
		obs.OnPhaseDone(PhasePlan, map[string]any{
			"total":   counts.Total,
			"renamed": counts.Renamed,
			"skipped": counts.Skipped,
			"errors":  counts.Errors,
		}, clock.Since(started))
	}

	items := make([]domain.ItemResult, len(decisions))
	for i, d := range decisions {
		items[i] = domain.ItemFromDecision(d)
	}

	if !eff.Apply {
		rr.Items = append(items, rr.Items...)
		return finish()
	}

	// backup
	if eff.Backup {
		started = clock.Now()
		dir, err := Backup(ctx, deps.Fs, eff.Path)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("创建备份失败")
			for i := range items {
				if items[i].Status == domain.StatusRenamed {
					items[i].FileStatus = domain.FileStatusFailed
					items[i].Status = domain.StatusError
					items[i].ErrorCode = domain.ErrCodeBackupFailed
					items[i].ErrorMsg = "备份失败，未执行改名"
				}
			}
			rr.Items = append(items, rr.Items...)
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeBackupFailed, fmt.Sprintf("创建备份 %q 失败：%v", dir, err)))
			return finish()
		}
		rr.Backup = dir
		log.Info().Str("dir", dir).Msg("备份已创建")
		if obs != nil {
			obs.OnPhaseDone(PhaseBackup, map[string]any{"dir": dir}, clock.Since(started))
		}
	}

	// exec
	execItems(ctx, eff, deps, obs, files, decisions, items)
	rr.Items = append(items, rr.Items...)
	return finish()
}

// BackupDir 返回 path 的备份目录：与其同级的 <name>_backup。
func BackupDir(path string) string {
	path = filepath.Clean(path)
	return filepath.Join(filepath.Dir(path), filepath.Base(path)+"_backup")
}

// Backup 把 path 完整复制到 BackupDir(path)（已存在的旧备份会被替换）。
func Backup(ctx context.Context, fs afero.Fs, path string) (string, error) {
	dir := BackupDir(path)
	return dir, fsx.CopyTree(ctx, fs, path, dir)
}

type execResult struct {
	idx int
	res domain.ItemResult
	dur time.Duration
}

// execItems 并发执行 Renamed 决策；结果原位写回 items（保持输入顺序）。
func execItems(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer, files []domain.PkgFile, decisions []domain.RenameDecision, items []domain.ItemResult) {
	var todo []int
	for i, d := range decisions {
		if d.Outcome == domain.OutcomeRenamed {
			todo = append(todo, i)
		}
	}

	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if obs != nil {
		obs.OnPhaseDone(PhaseExec, map[string]any{
			"workers":     workers,
			"total_items": len(todo),
		}, 0)
	}

	results := make(chan execResult, len(todo))
	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		for _, i := range todo {
			g.Go(func() error {
				started := deps.Clock.Now()
				res := renameOne(ctx, deps, files[i], items[i])
				results <- execResult{idx: i, res: res, dur: deps.Clock.Since(started)}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		items[r.idx] = r.res
		if obs != nil {
			obs.OnItemDone(done, len(todo), files[r.idx].Name, r.res, r.dur)
		}
	}
}

func renameOne(ctx context.Context, deps Deps, f domain.PkgFile, item domain.ItemResult) domain.ItemResult {
	fail := func(code, msg string) domain.ItemResult {
		item.Status = domain.StatusError
		item.FileStatus = domain.FileStatusFailed
		item.ErrorCode = code
		item.ErrorMsg = msg
		deps.Log.Error().Str("file", f.Name).Str("new_name", item.NewName).Str("error_code", code).Msg(msg)
		return item
	}

	if err := ctx.Err(); err != nil {
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("已取消：%v", err))
	}

	dst := filepath.Join(filepath.Dir(f.AbsPath), item.NewName)
	var err error
	if strings.EqualFold(f.Name, item.NewName) {
		// 仅大小写不同：大小写不敏感的文件系统上目标“已存在”的就是它自己。
		err = fsx.Rename(deps.Fs, f.AbsPath, dst)
	} else {
		err = fsx.RenameNoReplace(deps.Fs, f.AbsPath, dst)
	}
	switch {
	case err == nil:
		item.FileStatus = domain.FileStatusRenamed
		deps.Log.Info().Str("file", f.Name).Str("new_name", item.NewName).Msg("已改名")
		return item
	case errors.Is(err, os.ErrExist):
		return fail(domain.ErrCodeTargetExists, fmt.Sprintf("目标文件已存在：%s", item.NewName))
	case fsx.IsPathTypeConflict(err):
		return fail(domain.ErrCodeTargetConflict, err.Error())
	case fsx.IsCrossDevice(err):
		return fail(domain.ErrCodeMoveFailed, err.Error())
	default:
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("改名失败：%v", err))
	}
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		File:        "",
		Status:      domain.StatusError,
		ErrorCode:   code,
		ErrorMsg:    msg,
		Suggestions: []string{},
	}
}
