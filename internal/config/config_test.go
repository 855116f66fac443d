package config

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/app/planner"
	"github.com/John-Robertt/ps4ren/internal/gamedb"
)

const cwd = "/work"

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadEffective(fs, cwd, CLIArgs{Path: "games", ConfigFile: "missing.toml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_MissingPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(cwd, FileName), `apply = true`)

	_, err := LoadEffective(fs, cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeMissingPath, err, Code(err))
	}
}

func TestLoadEffective_DefaultsWithoutConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	eff, err := LoadEffective(fs, cwd, CLIArgs{Path: "games"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != filepath.Join(cwd, "games") {
		t.Fatalf("path 不对：%q", eff.Path)
	}
	if eff.Apply || eff.Backup || eff.Report {
		t.Fatalf("默认应为 dry-run 且不备份：%+v", eff)
	}
	if eff.MergePolicy != gamedb.PolicyFirst || eff.VersionSource != planner.VersionFromFilename {
		t.Fatalf("默认策略不对：%q %q", eff.MergePolicy, eff.VersionSource)
	}
	if eff.Concurrency != DefaultConcurrency || eff.Suggest != DefaultSuggest {
		t.Fatalf("默认并发/建议数不对：%d %d", eff.Concurrency, eff.Suggest)
	}
	if eff.SourceDir != cwd {
		t.Fatalf("source_dir 默认应为 cwd，实际 %q", eff.SourceDir)
	}
	if eff.LogFile != filepath.Join(cwd, DefaultLogFile) {
		t.Fatalf("log_file 不对：%q", eff.LogFile)
	}
	if eff.LogLevel != zerolog.InfoLevel {
		t.Fatalf("log_level 不对：%v", eff.LogLevel)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("未读取配置文件时 ConfigFile 应为空：%q", eff.ConfigFile)
	}
}

func TestLoadEffective_ApplyCLIOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(cwd, FileName), "path = \"games\"\napply = true\nbackup = true\n")

	eff, err := LoadEffective(fs, cwd, CLIArgs{
		Apply:    false,
		ApplySet: true, // --apply=false
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Apply {
		t.Fatalf("期望 apply=false，实际=%v", eff.Apply)
	}
	if !eff.Backup {
		t.Fatalf("未被 CLI 覆盖的 backup 应取配置值 true")
	}
	if eff.ConfigFile != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigFile 不对：%q", eff.ConfigFile)
	}
}

func TestLoadEffective_FullFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/etc/ps4ren/custom.toml", `
path = "/data/ps4"
sources = ["db/titles.csv", "https://example.com/titles.json"]
source_dir = "db"
merge_policy = "prefer-json"
version_source = "database"
part_suffix = true
concurrency = 99
suggest = 0
log_level = "debug"
cache_dir = "/tmp/c"

[proxy]
url = "http://127.0.0.1:7890"
`)

	eff, err := LoadEffective(fs, cwd, CLIArgs{ConfigFile: "/etc/ps4ren/custom.toml"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != "/data/ps4" {
		t.Fatalf("path 不对：%q", eff.Path)
	}
	if len(eff.Sources) != 2 || eff.Sources[0] != filepath.Join(cwd, "db", "titles.csv") || eff.Sources[1] != "https://example.com/titles.json" {
		t.Fatalf("sources 不对：%v", eff.Sources)
	}
	if eff.SourceDir != filepath.Join(cwd, "db") {
		t.Fatalf("source_dir 不对：%q", eff.SourceDir)
	}
	if eff.MergePolicy != gamedb.PolicyPreferJSON || eff.VersionSource != planner.VersionFromDatabase || !eff.PartSuffix {
		t.Fatalf("策略不对：%+v", eff)
	}
	if eff.Concurrency != 32 {
		t.Fatalf("并发应截断为 32，实际 %d", eff.Concurrency)
	}
	if eff.Suggest != 0 {
		t.Fatalf("suggest=0 应被保留，实际 %d", eff.Suggest)
	}
	if eff.LogLevel != zerolog.DebugLevel {
		t.Fatalf("log_level 不对：%v", eff.LogLevel)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" || eff.CacheDir != "/tmp/c" {
		t.Fatalf("proxy/cache 不对：%q %q", eff.ProxyURL, eff.CacheDir)
	}
}

func TestLoadEffective_CLISourcesReplaceFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(cwd, FileName), "path = \"g\"\nsources = [\"a.csv\", \"b.csv\"]\n")

	eff, err := LoadEffective(fs, cwd, CLIArgs{Sources: []string{"c.json"}})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(eff.Sources) != 1 || eff.Sources[0] != filepath.Join(cwd, "c.json") {
		t.Fatalf("CLI sources 应整体替换：%v", eff.Sources)
	}
}

func TestLoadEffective_InvalidValues(t *testing.T) {
	tests := []string{
		"path = \"g\"\nmerge_policy = \"random\"\n",
		"path = \"g\"\nversion_source = \"both\"\n",
		"path = \"g\"\nlog_level = \"loud\"\n",
		"path = \"g\"\nsuggest = -1\n",
		"path = \"g\"\n[proxy]\nurl = \"not a url\"\n",
		"path = = broken",
	}
	for _, body := range tests {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, filepath.Join(cwd, FileName), body)

		_, err := LoadEffective(fs, cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("期望 %q，实际 err=%v（配置：%q）", ErrCodeInvalid, err, body)
		}
	}
}

func writeFile(t *testing.T, fs afero.Fs, path string, body string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(body), 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
}
