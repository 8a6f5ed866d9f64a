package kv_test

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand"
	"os"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/storage/kv"
)

func TestMemoryKVTTL(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	if err := store.Set(ctx, "forever", []byte("a"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	// 过期时间以秒为精度
	if err := store.Set(ctx, "short", []byte("c"), 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "short")
	if err != nil || string(got) != "c" {
		t.Fatalf("get short before expiry = %q, %v", got, err)
	}

	time.Sleep(2100 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after expiry, got %v", err)
	}

	got, err = store.Get(ctx, "forever")
	if err != nil || string(got) != "a" {
		t.Fatalf("get forever = %q, %v", got, err)
	}

	if ok, _ := store.Exists(ctx, "short"); ok {
		t.Fatal("expired key still exists")
	}

	keys, err := store.Keys(ctx, "for*")
	if err != nil || len(keys) != 1 || keys[0] != "forever" {
		t.Fatalf("keys = %v, %v", keys, err)
	}
}

func TestGroupcacheKVInvalidation(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.GroupcacheKVConfig{Name: "test-invalidation", CacheBytes: 1 << 20}

	store, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, cfg)
	if err != nil {
		t.Fatalf("create groupcache kv: %v", err)
	}

	if _, err := store.Get(ctx, "doc"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}

	for _, v := range []string{"v1", "v2"} {
		if err := store.Set(ctx, "doc", []byte(v), 0); err != nil {
			t.Fatalf("set: %v", err)
		}

		got, err := store.Get(ctx, "doc")
		if err != nil || string(got) != v {
			t.Fatalf("get = %q, %v; want %q", got, err, v)
		}
	}

	if err := store.Delete(ctx, "doc"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, "doc"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected miss after delete, got %v", err)
	}

	again, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, cfg)
	if err != nil {
		t.Fatalf("recreate groupcache kv: %v", err)
	}

	if again != store {
		t.Fatal("same group name should return the same store")
	}
}

type failingKV struct {
	kv.KVStore
	calls int
}

func (f *failingKV) Get(context.Context, string) ([]byte, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestBreakerKVOpensOnFailures(t *testing.T) {
	ctx := context.Background()
	inner := &failingKV{}
	store := kv.NewBreakerKV(inner, configs.CircuitBreakerConfig{
		Enabled:     true,
		FailureRate: 0.5,
		MinRequests: 3,
		Interval:    time.Minute,
		OpenTimeout: time.Minute,
		HalfOpenMax: 1,
	})

	for range 3 {
		if _, err := store.Get(ctx, "k"); err == nil {
			t.Fatal("expected error")
		}
	}

	if _, err := store.Get(ctx, "k"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}

	if inner.calls != 3 {
		t.Fatalf("inner store called %d times, want 3", inner.calls)
	}
}

func TestBreakerKVIgnoresMisses(t *testing.T) {
	ctx := context.Background()

	mem, _ := kv.NewMemoryKV(ctx, nil)
	store := kv.NewBreakerKV(mem, configs.CircuitBreakerConfig{
		FailureRate: 0.5,
		MinRequests: 1,
		Interval:    time.Minute,
		OpenTimeout: time.Minute,
		HalfOpenMax: 1,
	})

	for range 5 {
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, kv.ErrKeyNotFound) {
			t.Fatalf("expected miss, got %v", err)
		}
	}

	if store.State() != gobreaker.StateClosed {
		t.Fatalf("breaker state = %s, want closed", store.State())
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	cfg := &configs.GroupcacheKVConfig{
		Name:       "bench-groupcache",
		CacheBytes: 32 * 1024 * 1024, // 32MB
		Peers:      []string{},
		Self:       "http://127.0.0.1:0",
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	if err != nil {
		b.Fatalf("create groupcache kv: %v", err)
	}

	benchKV(b, "groupcache", store)
	benchKVParallel(b, "groupcache", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.RedisKVConfig{Addr: addr, Password: "", DB: 0}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// randBytes returns n random bytes, seeded reproducibly for bench.
func randBytes(n int) []byte {
	b := make([]byte, n)
	// Try crypto/rand; if it fails (unlikely in tests), fallback to deterministic PRNG.
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	sizes := []int{32, 1024, 64 * 1024}
	ttls := []time.Duration{0, 5 * time.Second}

	for _, size := range sizes {
		payload := randBytes(size)
		for _, ttl := range ttls {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				// ensure clean
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					key := fmt.Sprintf("bench-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	size := 1024
	payload := randBytes(size)

	var ctr uint64

	b.Run(fmt.Sprintf("%s/parallel", name), func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				key := fmt.Sprintf("bench-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}

func TestRegisteredKVTypes(t *testing.T) {
	got := kv.GetRegisteredKVTypes()
	want := []kv.KVType{kv.KVTypeGroupcache, kv.KVTypeMemory, kv.KVTypeNATS, kv.KVTypeRedis}

	if !slices.Equal(got, want) {
		t.Fatalf("registered types = %v, want %v", got, want)
	}
}

func TestNATSKVRejectsWrongConfig(t *testing.T) {
	if _, err := kv.NewNATSKV(context.Background(), &configs.RedisKVConfig{}); err == nil {
		t.Fatal("expected config type error")
	}
}
