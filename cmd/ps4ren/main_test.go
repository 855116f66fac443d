package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/config"
	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/gamedb"
	"github.com/John-Robertt/ps4ren/internal/scan"
)

const (
	cwd     = "/work"
	rawName = "UP0017-CUSA00012_00-DCUOLPS4LIVE0001-A0283-V0100.pkg"
	newName = "DC Universe Online [UPDATE 2.83][CUSA00012].pkg"
)

func newTestCLI(t *testing.T, stdin string) (*cli, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	mustWrite(t, fs, filepath.Join(cwd, "games", rawName), "pkg")
	mustWrite(t, fs, filepath.Join(cwd, "games", "garbage.pkg"), "pkg")
	mustWrite(t, fs, filepath.Join(cwd, "titles.csv"), "Title_ID,Title_Name,Version\nCUSA00012_00,DC Universe Online,02.83\n")

	var stdout, stderr bytes.Buffer
	return &cli{
		fs:        fs,
		cwd:       cwd,
		stdin:     strings.NewReader(stdin),
		stdout:    &stdout,
		stderr:    &stderr,
		newLogger: nopLogger,
	}, &stdout, &stderr
}

func nopLogger(config.EffectiveConfig, io.Writer) (zerolog.Logger, io.Closer, error) {
	return zerolog.Nop(), io.NopCloser(nil), nil
}

func TestCLI_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	c, stdout, stderr := newTestCLI(t, "")

	code := c.main(context.Background(), []string{"run", "games"})
	if code != 1 {
		t.Fatalf("garbage.pkg 无法解析，期望退出码 1，实际 %d", code)
	}

	var rr domain.RunReport
	dec := json.NewDecoder(stdout)
	if err := dec.Decode(&rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if dec.More() {
		t.Fatalf("stdout 只能有一个 JSON：%q", stdout.String())
	}
	if !rr.DryRun || rr.Summary.Renamed != 1 || rr.Summary.Errors != 1 {
		t.Fatalf("报告不对：%+v", rr.Summary)
	}
	if !strings.Contains(stderr.String(), "完成：total=2 renamed=1 skipped=0 errors=1") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, reportDryRun)); ok {
		t.Fatalf("dry-run 默认不应写报告")
	}
}

func TestCLI_ReportFlagWritesDryRunReport(t *testing.T) {
	c, _, _ := newTestCLI(t, "")

	_ = c.main(context.Background(), []string{"run", "games", "--report"})

	b, err := afero.ReadFile(c.fs, filepath.Join(cwd, reportDryRun))
	if err != nil {
		t.Fatalf("期望写入 dry-run 报告：%v", err)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(b, &rr); err != nil || !rr.DryRun {
		t.Fatalf("报告内容不对：err=%v rr=%+v", err, rr)
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, "games", rawName)); !ok {
		t.Fatalf("dry-run 不应改名")
	}
}

func TestCLI_ApplyRenamesAndWritesReport(t *testing.T) {
	c, _, _ := newTestCLI(t, "")

	_ = c.main(context.Background(), []string{"run", "games", "--apply", "--source", "titles.csv"})

	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, "games", newName)); !ok {
		t.Fatalf("apply 应改名为 %s", newName)
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, reportActual)); !ok {
		t.Fatalf("apply 应写入报告")
	}
}

func TestCLI_ConfigNotFound(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "")

	code := c.main(context.Background(), []string{"run", "games", "--config", "missing.toml"})
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v", err)
	}
	if len(rr.Items) != 1 || rr.Items[0].ErrorCode != config.ErrCodeNotFound || rr.Summary.Total != 0 {
		t.Fatalf("配置错误报告不对：%+v", rr)
	}
}

func TestCLI_Interactive_ConfirmWithoutBackup(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "games\ny\nn\n")

	code := c.main(context.Background(), []string{"run", "-i"})
	if code != 1 {
		t.Fatalf("garbage.pkg 失败，期望退出码 1，实际 %d", code)
	}

	out := stdout.String()
	for _, want := range []string{"请输入包含 .pkg 文件的目录", "1. " + rawName, "-> " + newName, "是否对 1 个文件执行改名？", "不创建备份"} {
		if !strings.Contains(out, want) {
			t.Fatalf("交互输出缺少 %q：\n%s", want, out)
		}
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, "games", newName)); !ok {
		t.Fatalf("确认后应改名")
	}
	for _, name := range []string{reportDryRun, reportActual} {
		if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, name)); !ok {
			t.Fatalf("交互模式应写入 %s", name)
		}
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, "games_backup")); ok {
		t.Fatalf("未选择备份")
	}
}

func TestCLI_Interactive_BackupThenApply(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "y\ny\n")

	_ = c.main(context.Background(), []string{"run", "games", "--interactive"})

	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, "games_backup", rawName)); !ok {
		t.Fatalf("应创建备份：\n%s", stdout.String())
	}
	b, err := afero.ReadFile(c.fs, filepath.Join(cwd, reportActual))
	if err != nil {
		t.Fatalf("读取报告失败：%v", err)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(b, &rr); err != nil || rr.Backup != filepath.Join(cwd, "games_backup") {
		t.Fatalf("报告应记录备份目录：err=%v backup=%q", err, rr.Backup)
	}
}

func TestCLI_Interactive_Cancel(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "n\n")

	code := c.main(context.Background(), []string{"run", "games", "-i"})
	if code != 0 {
		t.Fatalf("取消应返回 0，实际 %d", code)
	}
	if !strings.Contains(stdout.String(), "已取消改名") {
		t.Fatalf("缺少取消提示：\n%s", stdout.String())
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, "games", rawName)); !ok {
		t.Fatalf("取消后不应改名")
	}
}

func TestCLI_Export(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "")
	mustWrite(t, c.fs, filepath.Join(cwd, "links.csv"),
		"Title_ID,Title_Name,Version,Filename,Download_URL,Size_Bytes,SHA1_Hash\n"+
			"CUSA00012_00,DC Universe Online,02.83,a.pkg,http://x/a.pkg,10,aa\n")

	if code := c.main(context.Background(), []string{"export", "links.csv", "out/updates.json"}); code != 0 {
		t.Fatalf("export 失败：%d", code)
	}
	b, err := afero.ReadFile(c.fs, filepath.Join(cwd, "out", "updates.json"))
	if err != nil {
		t.Fatalf("读取输出失败：%v", err)
	}
	var u gamedb.Updates
	if err := json.Unmarshal(b, &u); err != nil {
		t.Fatalf("输出不是合法 JSON：%v", err)
	}
	if u.Metadata.TotalGames != 1 || u.Metadata.GeneratedFrom != "links.csv" {
		t.Fatalf("metadata 不对：%+v", u.Metadata)
	}
	if !strings.Contains(stdout.String(), "已导出 1 个游戏") {
		t.Fatalf("缺少导出提示：%q", stdout.String())
	}
}

func TestCLI_RunAfterExport(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "")
	mustWrite(t, c.fs, filepath.Join(cwd, "in", "links.csv"),
		"Title_ID,Title_Name,Version,Filename,Download_URL,Size_Bytes,SHA1_Hash\n"+
			"CUSA00012_00,DC Universe Online,02.83,a.pkg,http://x/a.pkg,10,aa\n")

	if code := c.main(context.Background(), []string{"export", "in/links.csv"}); code != 0 {
		t.Fatalf("export 失败：%d", code)
	}
	if ok, _ := afero.Exists(c.fs, filepath.Join(cwd, scan.ExportOutput)); !ok {
		t.Fatalf("默认输出不存在")
	}
	stdout.Reset()

	_ = c.main(context.Background(), []string{"run", "games"})

	var rr domain.RunReport
	if err := json.NewDecoder(stdout).Decode(&rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v", err)
	}
	if rr.HasSyntheticErrors() {
		t.Fatalf("export 输出不应被当作数据源：%+v", rr.Items)
	}
	for _, s := range rr.Sources {
		if filepath.Base(s.Name) == scan.ExportOutput {
			t.Fatalf("数据源中不应出现 export 输出：%+v", rr.Sources)
		}
	}
}

func TestCLI_Interactive_EmptyDirectory(t *testing.T) {
	c, stdout, stderr := newTestCLI(t, "\n")

	code := c.main(context.Background(), []string{"run", "-i"})
	if code != 1 {
		t.Fatalf("空目录应退出码 1，实际 %d", code)
	}
	if !strings.Contains(stderr.String(), "未指定目录") {
		t.Fatalf("缺少提示：%q", stderr.String())
	}
	if strings.Contains(stdout.String(), "config_missing_path") {
		t.Fatalf("不应输出报告：%q", stdout.String())
	}
}

func TestCLI_UnknownCommand(t *testing.T) {
	c, _, stderr := newTestCLI(t, "")
	if code := c.main(context.Background(), []string{"rename"}); code != 2 {
		t.Fatalf("期望退出码 2，实际 %d", code)
	}
	if !strings.Contains(stderr.String(), "未知命令") {
		t.Fatalf("缺少错误提示：%q", stderr.String())
	}
}

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		args    []string
		want    runArgs
		wantErr bool
	}{
		{args: []string{"games"}, want: runArgs{Path: "games"}},
		{args: []string{"--apply"}, want: runArgs{Apply: true, ApplySet: true}},
		{args: []string{"--apply=false", "--backup=true"}, want: runArgs{ApplySet: true, Backup: true, BackupSet: true}},
		{args: []string{"--report", "-i"}, want: runArgs{Report: true, ReportSet: true, Interactive: true}},
		{args: []string{"--source", "a.csv", "--source=https://x.test/b.json", "--config=c.toml"}, want: runArgs{Sources: []string{"a.csv", "https://x.test/b.json"}, ConfigFile: "c.toml"}},
		{args: []string{"--apply=yes"}, wantErr: true},
		{args: []string{"--source"}, wantErr: true},
		{args: []string{"--config="}, wantErr: true},
		{args: []string{"--bogus"}, wantErr: true},
		{args: []string{"a", "b"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseRunArgs(tt.args)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%v：期望错误", tt.args)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%v：不期望错误：%v", tt.args, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%v：got=%+v want=%+v", tt.args, got, tt.want)
		}
	}
}

func mustWrite(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(body), 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
}
