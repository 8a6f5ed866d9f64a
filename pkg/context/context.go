// Package context 拓展上下文功能，将存储、操作者、请求 ID 等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	kvc "github.com/yeisme/snipvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/snipvault/pkg/internal/storage/mq"
	"github.com/yeisme/snipvault/pkg/scheduler"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	RequestIDKey      ContextKey = "requestID"
	SchedulerKey      ContextKey = "scheduler"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// WithActor 记录当前操作者，写入片段的 created_by / updated_by.
func WithActor(ctx context.Context, actor string) context.Context {
	return repository.WithActor(ctx, actor)
}

// GetActor 返回当前操作者，未设置时为 "0".
func GetActor(ctx context.Context) string {
	return repository.ActorFrom(ctx)
}

// WithScheduler 将调度器存储到 context 中.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, SchedulerKey, sched)
}

// GetScheduler 从 context 中获取调度器，未注入时返回 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	sched, _ := ctx.Value(SchedulerKey).(*scheduler.Scheduler)

	return sched
}

// WithRequestID 记录请求 ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID 返回请求 ID，不存在时为空.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithRequestLogger 为 logger 附加请求 ID 与操作者.
func WithRequestLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With().Str("actor", GetActor(ctx))
	if id := GetRequestID(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}

	return lc.Logger()
}
