package cache

import (
	"crypto/sha1" //nolint:gosec // 仅用作缓存文件名，不涉及安全
	"encoding/hex"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/infra/fsx"
)

// Store 提供 <Root>/sources/ 下远程数据源的文件缓存读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Fs       afero.Fs
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(fs afero.Fs, root string, readOnly bool) *Store {
	return &Store{
		Fs:       fs,
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// SourcePath 返回远程数据源的缓存路径：sha1(url) + 原扩展名。
func (s *Store) SourcePath(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("url 不能为空")
	}
	sum := sha1.Sum([]byte(rawURL)) //nolint:gosec // 同上
	name := hex.EncodeToString(sum[:]) + sourceExt(rawURL)
	return filepath.Join(s.Root, "sources", name), nil
}

func (s *Store) ReadSource(rawURL string) ([]byte, bool, error) {
	p, err := s.SourcePath(rawURL)
	if err != nil {
		return nil, false, err
	}
	b, err := afero.ReadFile(s.Fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) WriteSource(rawURL string, data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	p, err := s.SourcePath(rawURL)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(s.Fs, filepath.Dir(p), filepath.Base(p), data)
}

func sourceExt(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	ext := strings.ToLower(path.Ext(rawURL))
	// 扩展名只用于人工排查，过长或含奇怪字符时直接丢弃。
	if len(ext) > 6 || strings.ContainsAny(ext, `/\:`) {
		return ""
	}
	return ext
}
