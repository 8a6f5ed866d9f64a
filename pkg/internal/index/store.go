// Package index 维护存储目录中的索引文档：全部记录的精简元数据按状态分组，加上全局设置.
//
// 索引可以随时从记录文件完整重建，读路径只需加载一个文件而不必逐个解析记录.
// 持久化格式是宿主可以直接 include 的 PHP 数组字面量.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/snipvault/pkg/cache"
	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
	"github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/metrics"
)

var (
	// ErrNoIndex 索引文件不存在.
	ErrNoIndex = errors.New("index document not found")
	// ErrCorrupt 索引文件存在但无法解析.
	ErrCorrupt = errors.New("index document corrupt")
)

const (
	defaultCacheKey = "snipvault:index"
	defaultVersion  = "1.0.0"

	fileHeader = "<?php\nif (!defined(\"ABSPATH\")) {return;}\n/*\n" +
		" * This is an auto-generated file by snipvault.\n" +
		" * Please do not edit manually.\n */\n\n"
)

var secretPattern = regexp.MustCompile(`'secret_key'\s*=>\s*'((?:[^'\\]|\\.)*)'`)

// Scanner 提供全量扫描，由 repository.Repository 实现.
type Scanner interface {
	Scan(ctx context.Context) (*repository.ScanResult, error)
}

// Store 索引文档的读取、重建与设置维护.
type Store struct {
	fs      billy.Filesystem
	file    string
	scanner Scanner

	version string
	domain  string
	now     func() time.Time

	cache    *cache.Cache
	cacheKey string
	cacheTTL time.Duration

	group  singleflight.Group
	mu     sync.Mutex
	logger *zerolog.Logger
}

// Option 配置 Store.
type Option func(*Store)

// WithFile 设置索引文件名.
func WithFile(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.file = name
		}
	}
}

// WithVersion 写入 meta.cached_version 的版本号.
func WithVersion(v string) Option {
	return func(s *Store) {
		if v != "" {
			s.version = v
		}
	}
}

// WithDomain 写入 meta.cached_domain 的站点地址.
func WithDomain(d string) Option {
	return func(s *Store) { s.domain = d }
}

// WithClock 设置时间来源.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCache 启用文档的读穿缓存.
func WithCache(c *cache.Cache, key string, ttl time.Duration) Option {
	return func(s *Store) {
		s.cache = c
		s.cacheTTL = ttl

		if key != "" {
			s.cacheKey = key
		}
	}
}

// New 创建 Store.
func New(fs billy.Filesystem, scanner Scanner, opts ...Option) *Store {
	s := &Store{
		fs:       fs,
		file:     repository.DefaultIndexFile,
		scanner:  scanner,
		version:  defaultVersion,
		now:      time.Now,
		cacheKey: defaultCacheKey,
		logger:   log.Component("index"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// File 返回索引文件名.
func (s *Store) File() string { return s.file }

// Rebuild 全量扫描并重写索引文件，并发调用合并为一次.
func (s *Store) Rebuild(ctx context.Context) (*Document, error) {
	v, err, shared := s.group.Do("rebuild", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.rebuildLocked(ctx)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Debug().Msg("index rebuild shared with concurrent caller")
	}

	return v.(*Document), nil
}

// EnsureIndex 索引文件不存在时重建.
func (s *Store) EnsureIndex(ctx context.Context) error {
	if _, err := s.fs.Stat(s.file); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat index: %w", err)
	}

	_, err := s.Rebuild(ctx)

	return err
}

// Load 从磁盘读取索引文档.
func (s *Store) Load(_ context.Context) (*Document, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Document 返回索引文档：优先读缓存，其次读磁盘，缺失或损坏时重建.
func (s *Store) Document(ctx context.Context) (*Document, error) {
	if s.cache != nil {
		if doc, err := cache.Get[Document](ctx, s.cache, s.cacheKey); err == nil {
			return &doc, nil
		}
	}

	doc, err := s.load()

	switch {
	case err == nil:
		s.remember(ctx, doc)
		return doc, nil
	case errors.Is(err, ErrNoIndex), errors.Is(err, ErrCorrupt):
		return s.Rebuild(ctx)
	default:
		return nil, err
	}
}

// Invalidate 丢弃缓存中的文档.
func (s *Store) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, s.cacheKey); err != nil {
		s.logger.Warn().Err(err).Msg("drop cached index")
	}
}

func (s *Store) rebuildLocked(ctx context.Context) (doc *Document, err error) {
	defer func() {
		if err != nil {
			metrics.ObserveIndexRebuild(err, 0, 0)
		}
	}()

	prev, err := s.load()
	if err != nil && !errors.Is(err, ErrNoIndex) && !errors.Is(err, ErrCorrupt) {
		return nil, err
	}

	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn().Err(err).Str("file", s.file).Msg("index corrupt, rebuilding")
	}

	res, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	doc = &Document{Meta: carryMeta(prev), ErrorFiles: []string{}}
	doc.Meta.CachedAt = s.now().Format(snippet.TimeLayout)
	doc.Meta.CachedVersion = s.version
	doc.Meta.CachedDomain = s.domain
	doc.Published, doc.Draft = buildBuckets(res.Records)

	if prev != nil {
		doc.ErrorFiles = append(doc.ErrorFiles, prev.ErrorFiles...)
	}

	for _, f := range res.Failures {
		if !slices.Contains(doc.ErrorFiles, f.File) {
			doc.ErrorFiles = append(doc.ErrorFiles, f.File)
		}
	}

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	metrics.ObserveIndexRebuild(nil, len(doc.Published), len(doc.Draft))
	s.logger.Debug().
		Int("published", len(doc.Published)).
		Int("draft", len(doc.Draft)).
		Int("error_files", len(doc.ErrorFiles)).
		Msg("index rebuilt")

	return doc, nil
}

// update 在锁内修改文档的元信息部分，文档缺失或损坏时先重建.
func (s *Store) update(ctx context.Context, fn func(*Document)) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()

	switch {
	case err == nil:
	case errors.Is(err, ErrNoIndex), errors.Is(err, ErrCorrupt):
		if doc, err = s.rebuildLocked(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	fn(doc)

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// load 读取并解析索引文件；损坏时返回仅含抢救出的密钥的文档与 ErrCorrupt.
func (s *Store) load() (*Document, error) {
	raw, err := util.ReadFile(s.fs, s.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIndex
		}

		return nil, &repository.StorageError{Op: "read", Path: s.file, Err: err}
	}

	v, err := parsePHPReturn(string(raw))
	if err == nil {
		var doc *Document
		if doc, err = documentFromPHP(v); err == nil {
			return doc, nil
		}
	}

	salvaged := &Document{}
	if m := secretPattern.FindSubmatch(raw); m != nil {
		salvaged.Meta.SecretKey = string(m[1])
	}

	return salvaged, fmt.Errorf("%w: %w", ErrCorrupt, err)
}

func (s *Store) save(ctx context.Context, doc *Document) error {
	data := []byte(fileHeader + "return " + exportPHP(doc.toPHP()) + ";")

	if err := repository.WriteFileAtomic(s.fs, s.file, data); err != nil {
		return err
	}

	s.remember(ctx, doc)

	return nil
}

func (s *Store) remember(ctx context.Context, doc *Document) {
	if s.cache == nil {
		return
	}

	if err := cache.Set(ctx, s.cache, s.cacheKey, *doc, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("cache index document")
	}
}
