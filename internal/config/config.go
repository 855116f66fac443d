package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/app/planner"
	"github.com/John-Robertt/ps4ren/internal/gamedb"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示 CLI 与配置文件都没有给出目标目录。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// FileName 是默认配置文件名（位于 cwd）。
	FileName = "ps4ren.toml"

	DefaultConcurrency = 4
	DefaultSuggest     = 3
	DefaultLogFile     = "ps4_renamer.log"
	DefaultCacheDir    = ".ps4ren_cache"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 apply = true。
type CLIArgs struct {
	Path string

	// ConfigFile 非空时必须存在；为空时尝试 <cwd>/ps4ren.toml（可选）。
	ConfigFile string

	Apply    bool
	ApplySet bool

	Backup    bool
	BackupSet bool

	Report    bool
	ReportSet bool

	// Sources 非空时整体替换配置文件中的 sources。
	Sources []string
}

// FileConfig 对应 ps4ren.toml 的解析结构。
type FileConfig struct {
	Path          string       `toml:"path"`
	Apply         *bool        `toml:"apply"`
	Backup        *bool        `toml:"backup"`
	Report        *bool        `toml:"report"`
	Sources       []string     `toml:"sources"`
	SourceDir     string       `toml:"source_dir"`
	MergePolicy   string       `toml:"merge_policy"`
	VersionSource string       `toml:"version_source"`
	PartSuffix    bool         `toml:"part_suffix"`
	Concurrency   int          `toml:"concurrency"`
	Suggest       *int         `toml:"suggest"`
	LogLevel      string       `toml:"log_level"`
	LogFile       string       `toml:"log_file"`
	CacheDir      string       `toml:"cache_dir"`
	Proxy         *ProxyConfig `toml:"proxy"`
}

type ProxyConfig struct {
	URL string `toml:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Apply  bool
	Backup bool
	Report bool

	// Sources 为空时，在 SourceDir 下自动发现数据源。
	Sources   []string
	SourceDir string

	MergePolicy   gamedb.MergePolicy
	VersionSource planner.VersionSource
	PartSuffix    bool

	Concurrency int
	Suggest     int

	LogLevel zerolog.Level
	LogFile  string
	CacheDir string
	ProxyURL string

	// ConfigFile 是实际读取到的配置文件路径（未读取时为空）；数据源发现会跳过它。
	ConfigFile string
	// Cwd 是报告文件的写入目录。
	Cwd string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：未指定目标目录（命令行参数或配置文件 path）", e.Code)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/ps4ren.toml（可选）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 默认值。
// 相对路径一律相对 cwd 解析；URL 形式的数据源原样保留。
func LoadEffective(fs afero.Fs, cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath  string
		required bool
	)
	if strings.TrimSpace(cli.ConfigFile) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		required = true
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
	}

	fc, exists, err := readFileConfig(fs, cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// path：CLI > config
	path := strings.TrimSpace(cli.Path)
	if path == "" {
		path = strings.TrimSpace(fc.Path)
	}
	if path == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	apply := pickBool(cli.ApplySet, cli.Apply, fc.Apply)
	backup := pickBool(cli.BackupSet, cli.Backup, fc.Backup)
	report := pickBool(cli.ReportSet, cli.Report, fc.Report)

	policy, ok := gamedb.ParseMergePolicy(fc.MergePolicy)
	if !ok {
		return invalid(fmt.Errorf("merge_policy 只能是 first/last/prefer-json/prefer-csv，实际是 %q", fc.MergePolicy))
	}
	verSrc, ok := planner.ParseVersionSource(fc.VersionSource)
	if !ok {
		return invalid(fmt.Errorf("version_source 只能是 filename 或 database，实际是 %q", fc.VersionSource))
	}

	level := zerolog.InfoLevel
	if s := strings.TrimSpace(fc.LogLevel); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return invalid(fmt.Errorf("log_level 无效：%q", fc.LogLevel))
		}
		level = l
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	suggest := DefaultSuggest
	if fc.Suggest != nil {
		suggest = *fc.Suggest
	}
	if suggest < 0 {
		return invalid(fmt.Errorf("suggest 不能为负数：%d", suggest))
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	sources := fc.Sources
	if len(cli.Sources) > 0 {
		sources = cli.Sources
	}
	resolved := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if gamedb.IsRemote(s) {
			resolved = append(resolved, s)
			continue
		}
		resolved = append(resolved, absCleanFrom(cwdAbs, s))
	}

	sourceDir := cwdAbs
	if s := strings.TrimSpace(fc.SourceDir); s != "" {
		sourceDir = absCleanFrom(cwdAbs, s)
	}
	logFile := filepath.Join(cwdAbs, DefaultLogFile)
	if s := strings.TrimSpace(fc.LogFile); s != "" {
		logFile = absCleanFrom(cwdAbs, s)
	}
	cacheDir := filepath.Join(cwdAbs, DefaultCacheDir)
	if s := strings.TrimSpace(fc.CacheDir); s != "" {
		cacheDir = absCleanFrom(cwdAbs, s)
	}

	return EffectiveConfig{
		Path:          absCleanFrom(cwdAbs, path),
		Apply:         apply,
		Backup:        backup,
		Report:        report,
		Sources:       resolved,
		SourceDir:     sourceDir,
		MergePolicy:   policy,
		VersionSource: verSrc,
		PartSuffix:    fc.PartSuffix,
		Concurrency:   concurrency,
		Suggest:       suggest,
		LogLevel:      level,
		LogFile:       logFile,
		CacheDir:      cacheDir,
		ProxyURL:      proxyURL,
		ConfigFile:    cfgPath,
		Cwd:           cwdAbs,
	}, nil
}

// pickBool：CLI 显式指定 > config > 默认 false
func pickBool(cliSet, cliVal bool, fileVal *bool) bool {
	if cliSet {
		return cliVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return false
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(fs afero.Fs, path string) (fc FileConfig, exists bool, err error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
