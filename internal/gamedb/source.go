// Package gamedb 负责把多个数据源（CSV / JSON / HTML，本地或远程）合并成一个以 TitleID 为键的只读数据库。
package gamedb

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/ps4ren/internal/domain"
)

// RawRecord 是数据源里的一行原始数据，尚未做 id 提取、版本规范化与校验。
type RawRecord struct {
	ID      string
	Name    string
	Version string
}

// Source 是一个可加载的数据源。
//
// 约束：
// - Load 按数据源自身的顺序返回记录
// - 打不开/解析不了/缺少必需字段时返回 error，由 Build 记为 MalformedSource
type Source interface {
	Name() string
	Origin() domain.SourceOrigin
	Load(ctx context.Context) ([]RawRecord, error)
}

// ErrMalformed 表示数据源结构不符合预期（缺列、缺字段、格式错误）。
var ErrMalformed = errors.New("数据源格式错误")

// SourceError 把底层错误与数据源名称绑定，便于报告追溯。
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("数据源 %q 加载失败：%v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// IsMalformed 判断 err 是否为格式错误（而不是 I/O 或网络错误）。
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformed) }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w：%s", ErrMalformed, fmt.Sprintf(format, args...))
}
