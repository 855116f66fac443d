package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/ps4ren/internal/app/run"
	"github.com/John-Robertt/ps4ren/internal/config"
	"github.com/John-Robertt/ps4ren/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 所有过程信息写到 w（通常是 stderr），不污染 stdout 的 JSON 输出契约。
type progressUI struct {
	w io.Writer

	mu   sync.Mutex
	ok   int
	fail int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ok, p.fail = 0, 0

	mode := "dry-run"
	modeHint := " (不改名/不备份/不写缓存)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] ps4ren run (%s)\n", time.Now().Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	if len(eff.Sources) > 0 {
		fmt.Fprintf(p.w, "  sources: %s\n", formatSources(eff.Sources))
	} else {
		fmt.Fprintf(p.w, "  sources: 自动发现 %s\n", eff.SourceDir)
	}
	fmt.Fprintf(p.w, "  merge_policy: %s\n", eff.MergePolicy)
	fmt.Fprintf(p.w, "  version_source: %s\n", eff.VersionSource)
	fmt.Fprintf(p.w, "  part_suffix: %s\n", onOff(eff.PartSuffix))
	if eff.Apply {
		fmt.Fprintf(p.w, "  backup: %s\n", onOff(eff.Backup))
		fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	}
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case run.PhaseSources:
		fmt.Fprintf(p.w, "数据源: sources=%d failed=%d records=%d collisions=%d (%s)\n",
			intField(fields, "sources"),
			intField(fields, "failed"),
			intField(fields, "records"),
			intField(fields, "collisions"),
			formatShortDuration(dur),
		)
	case run.PhaseScan:
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case run.PhasePlan:
		fmt.Fprintf(p.w, "规划: total=%d renamed=%d skipped=%d errors=%d (%s)\n",
			intField(fields, "total"),
			intField(fields, "renamed"),
			intField(fields, "skipped"),
			intField(fields, "errors"),
			formatShortDuration(dur),
		)
	case run.PhaseBackup:
		fmt.Fprintf(p.w, "备份: %s (%s)\n", stringField(fields, "dir"), formatShortDuration(dur))
	case run.PhaseExec:
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d\n\n", intField(fields, "workers"), intField(fields, "total_items"))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnItemDone(idx, total int, file string, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.Status == domain.StatusError {
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s (%s)\n",
			idx, total, truncate(file, 100), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	} else {
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] OK %s -> %s (%s)\n",
			idx, total, truncate(file, 100), truncate(res.NewName, 100), formatShortDuration(dur),
		)
	}

	if idx == total {
		fmt.Fprintf(p.w, "\n执行完成: ok=%d fail=%d\n", p.ok, p.fail)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// formatSources 只展示前几个数据源，URL 去掉查询串（可能带 token）。
func formatSources(xs []string) string {
	const max = 3
	parts := make([]string, 0, max+1)
	for i, s := range xs {
		if i == max {
			parts = append(parts, fmt.Sprintf("...(+%d)", len(xs)-max))
			break
		}
		if j := strings.IndexAny(s, "?#"); j >= 0 {
			s = s[:j]
		}
		parts = append(parts, truncate(s, 80))
	}
	return strings.Join(parts, ", ")
}

// truncate 按 rune 截断（文件名常含中日文）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
