package gamedb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/infra/cache"
	"github.com/John-Robertt/ps4ren/internal/infra/httpx"
)

// FileSource 是本地文件数据源。
type FileSource struct {
	Fs     afero.Fs
	Path   string
	Format Format
}

func (s FileSource) Name() string                { return s.Path }
func (s FileSource) Origin() domain.SourceOrigin { return s.Format.Origin }

func (s FileSource) Load(ctx context.Context) ([]RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(s.Fs, s.Path)
	if err != nil {
		return nil, err
	}
	return s.Format.Parse(b)
}

// RemoteSource 是 http(s) 数据源。
//
// 规则：
// - 下载成功且解析成功：Cache 可写时回写缓存
// - 下载失败：Cache 中有副本则使用副本（记 warn），否则返回下载错误
type RemoteSource struct {
	URL    string
	Format Format
	Client *http.Client
	Cache  *cache.Store // nil 表示不使用缓存
	Log    *zerolog.Logger
}

func (s RemoteSource) Name() string                { return s.URL }
func (s RemoteSource) Origin() domain.SourceOrigin { return s.Format.Origin }

func (s RemoteSource) Load(ctx context.Context) ([]RawRecord, error) {
	log := loggerOrNop(s.Log)

	body, ferr := httpx.Get(ctx, s.Client, s.URL)
	if ferr != nil {
		if s.Cache == nil {
			return nil, ferr
		}
		cached, ok, cerr := s.Cache.ReadSource(s.URL)
		if cerr != nil || !ok {
			return nil, ferr
		}
		log.Warn().Err(ferr).Str("source", s.URL).Msg("远程数据源下载失败，使用缓存副本")
		return s.Format.Parse(cached)
	}

	recs, err := s.Format.Parse(body)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil && !s.Cache.ReadOnly {
		if err := s.Cache.WriteSource(s.URL, body); err != nil {
			log.Warn().Err(err).Str("source", s.URL).Msg("写入数据源缓存失败")
		}
	}
	return recs, nil
}

// Opener 把一个位置字符串（本地路径或 http(s) URL）解析为 Source。
type Opener struct {
	Fs       afero.Fs
	Registry Registry
	HTTP     *http.Client
	Cache    *cache.Store
	Log      *zerolog.Logger
}

// IsRemote 判断 loc 是否为 http(s) URL。
func IsRemote(loc string) bool {
	l := strings.ToLower(strings.TrimSpace(loc))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func (o Opener) Open(loc string) (Source, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return nil, errors.New("数据源位置不能为空")
	}
	origin, ok := o.Registry.OriginForPath(loc)
	if !ok {
		return nil, &SourceError{Source: loc, Err: fmt.Errorf("无法识别的数据源格式（支持 %v）", o.Registry.Origins())}
	}
	f, _ := o.Registry.Get(origin)

	if IsRemote(loc) {
		if o.HTTP == nil {
			return nil, &SourceError{Source: loc, Err: errors.New("未配置 http client")}
		}
		return RemoteSource{URL: loc, Format: f, Client: o.HTTP, Cache: o.Cache, Log: o.Log}, nil
	}
	if o.Fs == nil {
		return nil, &SourceError{Source: loc, Err: errors.New("未配置文件系统")}
	}
	return FileSource{Fs: o.Fs, Path: loc, Format: f}, nil
}

func loggerOrNop(l *zerolog.Logger) *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return l
}
