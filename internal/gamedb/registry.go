package gamedb

import (
	"fmt"
	"path"
	"strings"

	"github.com/John-Robertt/ps4ren/internal/domain"
)

// ParseFunc 把一个数据源的完整内容解析为原始记录（纯函数）。
type ParseFunc func(data []byte) ([]RawRecord, error)

// Format 描述一种数据源格式：来源标记、文件扩展名与解析函数。
type Format struct {
	Origin domain.SourceOrigin
	Exts   []string // 含 '.'，小写
	Parse  ParseFunc
}

// Registry 是格式的只读注册表（按 origin 与扩展名索引）。
type Registry struct {
	byOrigin map[domain.SourceOrigin]Format
	byExt    map[string]domain.SourceOrigin
	order    []domain.SourceOrigin
}

func NewRegistry(formats ...Format) (Registry, error) {
	r := Registry{
		byOrigin: make(map[domain.SourceOrigin]Format, len(formats)),
		byExt:    make(map[string]domain.SourceOrigin),
	}
	for _, f := range formats {
		if f.Origin == "" {
			return Registry{}, fmt.Errorf("format.Origin 不能为空")
		}
		if f.Parse == nil {
			return Registry{}, fmt.Errorf("format %q 缺少 Parse", f.Origin)
		}
		if _, ok := r.byOrigin[f.Origin]; ok {
			return Registry{}, fmt.Errorf("重复的 format：%q", f.Origin)
		}
		for _, ext := range f.Exts {
			ext = strings.ToLower(ext)
			if prev, ok := r.byExt[ext]; ok {
				return Registry{}, fmt.Errorf("扩展名 %q 同时属于 %q 与 %q", ext, prev, f.Origin)
			}
			r.byExt[ext] = f.Origin
		}
		r.byOrigin[f.Origin] = f
		r.order = append(r.order, f.Origin)
	}
	return r, nil
}

// DefaultRegistry 返回内置的 CSV / JSON / HTML 格式，顺序即数据源发现顺序。
func DefaultRegistry() Registry {
	r, err := NewRegistry(
		Format{Origin: domain.OriginCSV, Exts: []string{".csv"}, Parse: ParseCSV},
		Format{Origin: domain.OriginJSON, Exts: []string{".json"}, Parse: ParseJSON},
		Format{Origin: domain.OriginHTML, Exts: []string{".html", ".htm"}, Parse: ParseHTML},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Registry) Get(origin domain.SourceOrigin) (Format, bool) {
	f, ok := r.byOrigin[origin]
	return f, ok
}

// Origins 按注册顺序返回所有格式。
func (r Registry) Origins() []domain.SourceOrigin {
	return append([]domain.SourceOrigin(nil), r.order...)
}

// OriginForPath 按扩展名（大小写不敏感）判断数据源格式；URL 也适用（只看 path 部分）。
func (r Registry) OriginForPath(p string) (domain.SourceOrigin, bool) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	o, ok := r.byExt[strings.ToLower(path.Ext(p))]
	return o, ok
}
