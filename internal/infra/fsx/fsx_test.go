package fsx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestWriteFileAtomic_SuccessAndNoTempLeft(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/work"

	if err := WriteFileAtomic(fs, dir, "a.txt", []byte("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := afero.ReadFile(fs, filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".a.txt.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomic_Replace(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := WriteFileAtomic(fs, "/w", "r.json", []byte("old")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomic(fs, "/w", "r.json", []byte("new")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, _ := afero.ReadFile(fs, "/w/r.json")
	if string(b) != "new" {
		t.Fatalf("期望覆盖为 new，实际：%q", string(b))
	}
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/work"

	old := renameFunc
	renameFunc = func(afero.Fs, string, string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomic(fs, dir, "a.txt", []byte("hello"))
	if err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".a.txt.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
		if e.Name() == "a.txt" {
			t.Fatalf("不应写出最终文件：%q", e.Name())
		}
	}
}

func TestRenameNoReplace(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/d/a.pkg", []byte("a"), 0o644)
	_ = afero.WriteFile(fs, "/d/b.pkg", []byte("b"), 0o644)
	_ = fs.MkdirAll("/d/dir.pkg", 0o755)

	if err := RenameNoReplace(fs, "/d/a.pkg", "/d/b.pkg"); !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际：%v", err)
	}
	if err := RenameNoReplace(fs, "/d/a.pkg", "/d/dir.pkg"); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
	if err := RenameNoReplace(fs, "/d/a.pkg", "/d/c.pkg"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ok, _ := afero.Exists(fs, "/d/a.pkg"); ok {
		t.Fatalf("源文件应已不存在")
	}
	if b, _ := afero.ReadFile(fs, "/d/c.pkg"); string(b) != "a" {
		t.Fatalf("目标内容不一致：%q", string(b))
	}
}

func TestCopyTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/games/a.pkg", []byte("a"), 0o644)
	_ = afero.WriteFile(fs, "/games/sub/b.pkg", []byte("b"), 0o644)
	// 旧备份应被整体替换
	_ = afero.WriteFile(fs, "/games_backup/stale.pkg", []byte("x"), 0o644)

	if err := CopyTree(context.Background(), fs, "/games", "/games_backup"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	for path, want := range map[string]string{
		"/games_backup/a.pkg":     "a",
		"/games_backup/sub/b.pkg": "b",
	} {
		b, err := afero.ReadFile(fs, path)
		if err != nil || string(b) != want {
			t.Fatalf("备份内容不一致：%s got=%q err=%v", path, string(b), err)
		}
	}
	if ok, _ := afero.Exists(fs, "/games_backup/stale.pkg"); ok {
		t.Fatalf("旧备份文件应被删除")
	}
}

func TestCopyTree_RejectDstInsideSrc(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/games/a.pkg", []byte("a"), 0o644)

	if err := CopyTree(context.Background(), fs, "/games", "/games/backup"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestCopyTree_Canceled(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/games/a.pkg", []byte("a"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := CopyTree(ctx, fs, "/games", "/games_backup"); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际：%v", err)
	}
}
