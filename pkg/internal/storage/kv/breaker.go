package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/log"
)

// BreakerKV 给远程 KV 加上熔断：连续失败后短路请求，调用方直接回退到磁盘上的索引文件.
type BreakerKV struct {
	store KVStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerKV 包装 store.
func NewBreakerKV(store KVStore, cfg configs.CircuitBreakerConfig) *BreakerKV {
	settings := gobreaker.Settings{
		Name:        "kv",
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		// 未命中是正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrKeyNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Logger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("kv circuit breaker state changed")
		},
	}

	return &BreakerKV{store: store, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State 返回熔断器当前状态.
func (b *BreakerKV) State() gobreaker.State { return b.cb.State() }

func (b *BreakerKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.store.Get(ctx, key) })
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

func (b *BreakerKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.store.Set(ctx, key, value, ttl) })
	return err
}

func (b *BreakerKV) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.store.Delete(ctx, key) })
	return err
}

func (b *BreakerKV) Exists(ctx context.Context, key string) (bool, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.store.Exists(ctx, key) })
	if err != nil {
		return false, err
	}

	return v.(bool), nil
}

func (b *BreakerKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.store.Keys(ctx, pattern) })
	if err != nil {
		return nil, err
	}

	return v.([]string), nil
}

func (b *BreakerKV) Close() error { return b.store.Close() }
