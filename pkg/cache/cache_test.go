package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/snipvault/pkg/cache"
	"github.com/yeisme/snipvault/pkg/internal/storage/kv"
)

// entry 测试用的缓存值.
type entry struct {
	FileName string   `json:"file_name"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func newCache(t *testing.T, opts ...cache.Option) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	return cache.NewCache(store, opts...), store
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	// 测试获取不存在的键
	_, err := cache.Get[entry](ctx, c, "nonexistent")
	if !cache.IsMiss(err) {
		t.Fatalf("expected miss, got %v", err)
	}

	want := entry{FileName: "1-hello.php", Priority: 10, Tags: []string{"a", "b"}}
	if err := cache.Set(ctx, c, "e:1", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[entry](ctx, c, "e:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.FileName != want.FileName || got.Priority != want.Priority || len(got.Tags) != 2 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCache_Prefix(t *testing.T) {
	c, store := newCache(t, cache.WithPrefix("snipvault:"))
	ctx := context.Background()

	if err := cache.Set(ctx, c, "index", 1, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if ok, _ := store.Exists(ctx, "snipvault:index"); !ok {
		t.Fatal("prefixed key not written to store")
	}

	if err := store.Set(ctx, "other", []byte("1"), 0); err != nil {
		t.Fatalf("set other: %v", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if ok, _ := c.Exists(ctx, "index"); ok {
		t.Error("prefixed key survived Clear")
	}

	if ok, _ := store.Exists(ctx, "other"); !ok {
		t.Error("Clear removed a key outside its prefix")
	}
}

func TestCache_Delete(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, c, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := cache.Get[string](ctx, c, "k"); !cache.IsMiss(err) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestGetOrSet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	var calls atomic.Int32

	getter := func() (entry, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)

		return entry{FileName: "2-x.php"}, nil
	}

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			got, err := cache.GetOrSet(ctx, c, "e:2", getter, time.Minute)
			if err != nil || got.FileName != "2-x.php" {
				t.Errorf("GetOrSet = %+v, %v", got, err)
			}
		}()
	}

	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("getter called %d times, want 1", n)
	}

	// 已缓存，不再回源
	if _, err := cache.GetOrSet(ctx, c, "e:2", getter, time.Minute); err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("getter called %d times after cache fill, want 1", n)
	}
}

func TestGetOrSet_GetterError(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := cache.GetOrSet(ctx, c, "e:3", func() (entry, error) { return entry{}, boom }, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected getter error, got %v", err)
	}

	if ok, _ := c.Exists(ctx, "e:3"); ok {
		t.Error("failed getter result was cached")
	}
}
