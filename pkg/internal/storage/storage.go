// Package storage 组装片段存储所需的全部资源：存储目录、仓库、索引、KV 缓存与消息队列.
//
// Example:
//
//	ctx := context.Background()
//	mgr, err := storage.Open(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	recs, err := mgr.Repository().List(ctx, repository.ListOptions{})
package storage

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/yeisme/snipvault/pkg/cache"
	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/index"
	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
	kvc "github.com/yeisme/snipvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/snipvault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/queue"
)

// Manager 聚合所有存储资源.
type Manager struct {
	fs     billy.Filesystem
	repo   *repository.Repository
	index  *index.Store
	kv     *kvc.Client
	mq     *mqc.Client
	events *queue.Emitter
}

type options struct {
	fs      billy.Filesystem
	now     func() time.Time
	noKV    bool
	noMQ    bool
	kvStore kvc.KVStore
}

// Option 调整 Open 的行为，主要用于测试.
type Option func(*options)

// WithFilesystem 使用给定的文件系统代替 storage.dir.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) { o.fs = fs }
}

// WithClock 设置仓库与索引的时间来源.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithKVStore 使用给定的 KV 作为索引缓存.
func WithKVStore(store kvc.KVStore) Option {
	return func(o *options) { o.kvStore = store }
}

// WithoutKV 不启用索引缓存.
func WithoutKV() Option {
	return func(o *options) { o.noKV = true }
}

// WithoutMQ 不连接消息队列，事件被丢弃.
func WithoutMQ() Option {
	return func(o *options) { o.noMQ = true }
}

// Open 按配置创建 Manager. 存储目录不可用时返回错误；KV 与 MQ 不可用时记录警告并降级.
func Open(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (*Manager, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	logger := nlog.Component("storage")
	m := &Manager{fs: o.fs}

	if m.fs == nil {
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, &repository.StorageError{Op: "mkdir", Path: cfg.Storage.Dir, Err: err}
		}

		m.fs = osfs.New(cfg.Storage.Dir)
	}

	m.repo = repository.New(m.fs,
		repository.WithIndexFile(cfg.Storage.IndexFile),
		repository.WithAllocator(snippet.NewAllocator(snippet.Strategy(cfg.Storage.Allocator))),
		repository.WithClock(o.now),
	)

	indexOpts := []index.Option{
		index.WithFile(cfg.Storage.IndexFile),
		index.WithVersion(cfg.Index.CachedVersion),
		index.WithDomain(cfg.Index.CachedDomain),
		index.WithClock(o.now),
	}

	if store := m.openKV(ctx, cfg, o); store != nil {
		indexOpts = append(indexOpts, index.WithCache(cache.NewCache(store), "", cfg.Index.CacheTTL))
	}

	m.index = index.New(m.fs, m.repo, indexOpts...)
	m.repo.UseIndex(m.index)

	var pub queue.Publisher

	if !o.noMQ {
		client, err := mqc.NewClient(ctx, &cfg.MQ)
		if err != nil {
			logger.Warn().Err(err).Msg("mq unavailable, events disabled")
		} else {
			m.mq = client
			pub = client
		}
	}

	m.events = queue.NewEmitter(pub, cfg.Events)

	logger.Info().
		Str("dir", cfg.Storage.Dir).
		Str("index_file", m.index.File()).
		Str("allocator", cfg.Storage.Allocator).
		Bool("kv", m.kv != nil || o.kvStore != nil).
		Bool("mq", m.mq != nil).
		Msg("storage manager initialized")

	return m, nil
}

func (m *Manager) openKV(ctx context.Context, cfg *configs.AppConfig, o *options) kvc.KVStore {
	if o.noKV {
		return nil
	}

	if o.kvStore != nil {
		return o.kvStore
	}

	client, err := kvc.NewKVClientFromConfig(ctx, &cfg.KV, cfg.CircuitBreaker)
	if err != nil {
		nlog.Component("storage").Warn().Err(err).Str("type", cfg.KV.Type).Msg("kv unavailable, index cache disabled")
		return nil
	}

	m.kv = client

	return client
}

// Filesystem 返回存储目录.
func (m *Manager) Filesystem() billy.Filesystem { return m.fs }

// Repository 返回片段仓库.
func (m *Manager) Repository() *repository.Repository { return m.repo }

// Index 返回索引文档存储.
func (m *Manager) Index() *index.Store { return m.index }

// Events 返回事件发布器.
func (m *Manager) Events() *queue.Emitter { return m.events }

// GetKVClient 获取 KV 客户端，未启用时为 nil.
func (m *Manager) GetKVClient() *kvc.Client { return m.kv }

// GetMQClient 获取 MQ 客户端，未启用时为 nil.
func (m *Manager) GetMQClient() *mqc.Client { return m.mq }

// Close 释放 KV 与 MQ 连接.
func (m *Manager) Close() error {
	var err error

	if m.mq != nil {
		err = errors.Join(err, m.mq.Close())
	}

	if m.kv != nil {
		err = errors.Join(err, m.kv.Close())
	}

	return err
}
