package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/app/run"
	"github.com/John-Robertt/ps4ren/internal/config"
	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/gamedb"
	"github.com/John-Robertt/ps4ren/internal/infra/fsx"
	"github.com/John-Robertt/ps4ren/internal/logging"
	"github.com/John-Robertt/ps4ren/internal/prompt"
	"github.com/John-Robertt/ps4ren/internal/scan"
)

const (
	reportDryRun = "ps4_rename_report_dryrun.json"
	reportActual = "ps4_rename_report_actual.json"
)

// cli 持有一次命令调用的全部外部依赖，main 用真实进程环境填充，测试用内存实现替换。
type cli struct {
	fs     afero.Fs
	cwd    string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	stdoutTTY bool
	stderrTTY bool

	newLogger func(eff config.EffectiveConfig, console io.Writer) (zerolog.Logger, io.Closer, error)
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(1)
	}

	c := &cli{
		fs:        afero.NewOsFs(),
		cwd:       cwd,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		stdoutTTY: isTTY(os.Stdout),
		stderrTTY: isTTY(os.Stderr),
		newLogger: fileLogger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := c.main(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (c *cli) main(ctx context.Context, args []string) int {
	if len(args) == 0 || isHelp(args[0]) {
		c.printUsage()
		return 0
	}

	switch args[0] {
	case "run":
		return c.runCmd(ctx, args[1:])
	case "export":
		return c.exportCmd(args[1:])
	default:
		fmt.Fprintf(c.stderr, "未知命令：%q\n\n", args[0])
		c.printUsage()
		return 2
	}
}

func (c *cli) runCmd(ctx context.Context, args []string) int {
	for _, a := range args {
		if isHelp(a) {
			c.printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "参数错误：%v\n\n", err)
		c.printRunUsage()
		return 2
	}

	var p *prompt.Prompter
	if ra.Interactive {
		p = prompt.New(c.stdin, c.stdout)
		if ra.Path == "" {
			// 读取失败时 dir 为空，同样按未指定处理。
			dir, _ := p.Line("请输入包含 .pkg 文件的目录：")
			if dir == "" {
				fmt.Fprintln(c.stderr, "未指定目录，退出。")
				return 1
			}
			ra.Path = dir
		}
	}

	eff, err := config.LoadEffective(c.fs, c.cwd, config.CLIArgs{
		Path:       ra.Path,
		ConfigFile: ra.ConfigFile,
		Apply:      ra.Apply,
		ApplySet:   ra.ApplySet,
		Backup:     ra.Backup,
		BackupSet:  ra.BackupSet,
		Report:     ra.Report,
		ReportSet:  ra.ReportSet,
		Sources:    ra.Sources,
	})
	if err != nil {
		c.emitReport(reportForConfigError(c.cwd, ra, err))
		return 1
	}

	var console io.Writer
	if ra.Interactive || c.stderrTTY {
		console = c.stderr
	}
	logger, closer, err := c.newLogger(eff, console)
	if err != nil {
		fmt.Fprintf(c.stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer closer.Close()

	deps := run.Deps{Fs: c.fs, Log: &logger}

	if ra.Interactive {
		return c.interactive(ctx, eff, deps, p)
	}

	var obs run.Observer
	if c.stderrTTY {
		obs = newProgressUI(c.stderr)
	}
	rr := run.ExecuteWithObserver(ctx, eff, deps, obs)

	// apply 或 --report：写入 cwd 下的报告文件；dry-run 默认不落盘。
	if eff.Apply || eff.Report {
		if err := c.writeReportFile(eff, rr); err != nil {
			fmt.Fprintf(c.stderr, "写入报告失败：%v\n", err)
			c.emitReport(rr)
			return 1
		}
	}

	c.emitReport(rr)
	return exitCode(rr)
}

// interactive：先 dry-run，展示样例并确认，再按需备份后 apply。
func (c *cli) interactive(ctx context.Context, eff config.EffectiveConfig, deps run.Deps, p *prompt.Prompter) int {
	ui := newProgressUI(c.stdout)

	dry := eff
	dry.Apply = false
	fmt.Fprintln(c.stdout, "正在执行 dry-run...")
	rr := run.ExecuteWithObserver(ctx, dry, deps, ui)
	if err := c.writeReportFile(dry, rr); err != nil {
		fmt.Fprintf(c.stderr, "写入报告失败：%v\n", err)
	}
	c.printSummary("Dry-run 结果", rr)

	if rr.Summary.Renamed == 0 {
		fmt.Fprintln(c.stdout, "没有需要改名的文件。请检查数据源与文件名格式。")
		return exitCode(rr)
	}

	fmt.Fprintln(c.stdout, "改名样例：")
	shown := 0
	for _, it := range rr.Items {
		if it.Status != domain.StatusRenamed {
			continue
		}
		shown++
		fmt.Fprintf(c.stdout, "  %d. %s\n     -> %s\n", shown, it.File, it.NewName)
		if shown == 3 {
			break
		}
	}

	ok, err := p.YesNo(fmt.Sprintf("是否对 %d 个文件执行改名？", rr.Summary.Renamed), false)
	if err != nil || !ok {
		fmt.Fprintln(c.stdout, "已取消改名。")
		return 0
	}

	backup, err := p.YesNo(fmt.Sprintf("改名前是否备份整个目录（%s）？", run.BackupDir(eff.Path)), eff.Backup)
	if err != nil {
		fmt.Fprintln(c.stdout, "已取消改名。")
		return 0
	}
	backupDir := ""
	if backup {
		fmt.Fprintln(c.stdout, "正在创建备份...")
		dir, err := run.Backup(ctx, deps.Fs, eff.Path)
		if err != nil {
			fmt.Fprintf(c.stdout, "创建备份失败：%v\n", err)
			cont, perr := p.YesNo("不备份继续？", false)
			if perr != nil || !cont {
				fmt.Fprintln(c.stdout, "已取消改名。")
				return 1
			}
		} else {
			backupDir = dir
			fmt.Fprintf(c.stdout, "备份已创建：%s\n", dir)
		}
	} else {
		fmt.Fprintln(c.stdout, "不创建备份，继续。")
	}

	act := eff
	act.Apply = true
	act.Backup = false
	fmt.Fprintln(c.stdout, "正在改名...")
	rr = run.ExecuteWithObserver(ctx, act, deps, ui)
	rr.Backup = backupDir
	if err := c.writeReportFile(act, rr); err != nil {
		fmt.Fprintf(c.stderr, "写入报告失败：%v\n", err)
	}
	c.printSummary("改名结果", rr)
	fmt.Fprintf(c.stdout, "详细结果见 %s\n", filepath.Join(c.cwd, reportActual))
	if backupDir != "" {
		fmt.Fprintf(c.stdout, "备份位置：%s（恢复：删除当前文件后把备份复制回来）\n", backupDir)
	}
	return exitCode(rr)
}

func (c *cli) exportCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			c.printUsage()
			return 0
		}
	}
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.stderr, "用法：ps4ren export <csv> [out.json]")
		return 2
	}

	in := absFrom(c.cwd, args[0])
	out := absFrom(c.cwd, scan.ExportOutput)
	if len(args) == 2 {
		out = absFrom(c.cwd, args[1])
	}

	f, err := c.fs.Open(in)
	if err != nil {
		fmt.Fprintf(c.stderr, "读取 %s 失败：%v\n", in, err)
		return 1
	}
	defer f.Close()

	u, err := gamedb.ExportUpdates(f, filepath.Base(in))
	if err != nil {
		fmt.Fprintf(c.stderr, "导出失败：%v\n", err)
		return 1
	}
	b, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		fmt.Fprintf(c.stderr, "导出失败：%v\n", err)
		return 1
	}
	b = append(b, '\n')
	if err := fsx.WriteFileAtomic(c.fs, filepath.Dir(out), filepath.Base(out), b); err != nil {
		fmt.Fprintf(c.stderr, "写入 %s 失败：%v\n", out, err)
		return 1
	}
	fmt.Fprintf(c.stdout, "已导出 %d 个游戏：%s\n", u.Metadata.TotalGames, out)
	return 0
}

type runArgs struct {
	Path       string
	ConfigFile string

	Apply    bool
	ApplySet bool

	Backup    bool
	BackupSet bool

	Report    bool
	ReportSet bool

	Interactive bool
	Sources     []string
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		name, val, hasVal := strings.Cut(a, "=")
		switch {
		case name == "--apply" || name == "--backup" || name == "--report":
			b := true
			if hasVal {
				switch val {
				case "true":
				case "false":
					b = false
				default:
					return runArgs{}, fmt.Errorf("%s 只能是 true 或 false，实际是 %q", name, val)
				}
			}
			switch name {
			case "--apply":
				ra.Apply, ra.ApplySet = b, true
			case "--backup":
				ra.Backup, ra.BackupSet = b, true
			default:
				ra.Report, ra.ReportSet = b, true
			}
		case a == "--interactive" || a == "-i":
			ra.Interactive = true
		case name == "--source" || name == "--config":
			if !hasVal {
				if i+1 >= len(args) {
					return runArgs{}, fmt.Errorf("%s 需要一个值", name)
				}
				i++
				val = args[i]
			}
			if strings.TrimSpace(val) == "" {
				return runArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			if name == "--source" {
				ra.Sources = append(ra.Sources, val)
			} else {
				ra.ConfigFile = val
			}
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Path != "" {
				return runArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ra.Path, a)
			}
			ra.Path = a
		}
	}
	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func (c *cli) printUsage() {
	fmt.Fprint(c.stdout, `用法：
  ps4ren run [path] [--apply[=true|false]] [--backup[=true|false]] [--report] [--interactive] [--source LOC]... [--config FILE]
  ps4ren export <csv> [out.json]

命令：
  run     按数据库重命名 .pkg 文件（默认 dry-run）
  export  把下载链接 CSV 转换为 updates JSON

使用 "ps4ren run --help" 查看详细说明。
`)
}

func (c *cli) printRunUsage() {
	fmt.Fprint(c.stdout, `用法：
  ps4ren run [path] [flags]

参数：
  --apply        执行改名（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply = true
  --backup       改名前把目录复制到 <path>_backup（仅 apply）
  --report       dry-run 也写入报告文件（apply 总是写入）
  --source LOC   数据源（CSV/JSON/HTML 文件或 http(s) URL），可重复；指定后不再自动发现
  --config FILE  配置文件（默认 ./ps4ren.toml，可选）
  -i, --interactive  交互模式：dry-run、展示样例、确认、询问备份、执行
  -h, --help     显示帮助
`)
}

func (c *cli) emitReport(rr domain.RunReport) {
	if c.stdoutTTY {
		c.printSummary("完成", rr)
		c.printErrors(rr)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(c.stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(c.stderr, "完成：total=%d renamed=%d skipped=%d errors=%d\n",
		rr.Summary.Total, rr.Summary.Renamed, rr.Summary.Skipped, rr.Summary.Errors,
	)
}

func (c *cli) printSummary(title string, rr domain.RunReport) {
	fmt.Fprintf(c.stdout, "%s：total=%d renamed=%d skipped=%d errors=%d\n",
		title, rr.Summary.Total, rr.Summary.Renamed, rr.Summary.Skipped, rr.Summary.Errors,
	)
}

func (c *cli) printErrors(rr domain.RunReport) {
	for _, it := range rr.Items {
		if it.Status != domain.StatusError {
			continue
		}
		key := it.File
		if key == "" {
			key = "<run>"
		}
		line := fmt.Sprintf("%s %s: %s", key, it.ErrorCode, it.ErrorMsg)
		if len(it.Suggestions) > 0 {
			line += "（相近：" + strings.Join(it.Suggestions, ", ") + "）"
		}
		fmt.Fprintln(c.stderr, line)
	}
}

func (c *cli) writeReportFile(eff config.EffectiveConfig, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	name := reportDryRun
	if eff.Apply {
		name = reportActual
	}
	return fsx.WriteFileAtomic(c.fs, eff.Cwd, name, b)
}

func reportForConfigError(cwd string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		Path:       absFrom(cwd, ra.Path),
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:      domain.StatusError,
			ErrorCode:   code,
			ErrorMsg:    err.Error(),
			Suggestions: []string{},
		}},
	}
	rr.Finalize()
	return rr
}

// exitCode：没有任何错误（含合成条目）时为 0。
func exitCode(rr domain.RunReport) int {
	if rr.Summary.Errors == 0 && !rr.HasSyntheticErrors() {
		return 0
	}
	return 1
}

func fileLogger(eff config.EffectiveConfig, console io.Writer) (zerolog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		File:    eff.LogFile,
		Level:   eff.LogLevel,
		Console: console,
	})
}

func absFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return base
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
