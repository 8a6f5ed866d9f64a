package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/snipvault/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
//
// groupcache 本身只读不可删，这里为每个键维护一个代数：Set/Delete 使代数加一，
// 读取时以 "键@代数" 查询，旧代数的缓存项自然失效并被 LRU 淘汰.
type GroupcacheKV struct {
	cache *groupcache.Group    // Groupcache 缓存组
	peers *groupcache.HTTPPool // 对等节点池
	data  map[string][]byte    // 本地存储数据
	gens  map[string]uint64    // 键的代数
	mu    sync.RWMutex         // 保护 data 与 gens 的读写锁
}

var (
	// groupcache 的组名进程内唯一，重复创建返回同一实例.
	groups   = map[string]*GroupcacheKV{}
	groupsMu sync.Mutex
)

// groupcacheGetter 实现 groupcache.Getter 接口.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(ctx context.Context, versioned string, dest groupcache.Sink) error {
	key, gen := splitVersioned(versioned)

	g.kv.mu.RLock()
	value, exists := g.kv.data[key]
	current := g.kv.gens[key]
	g.kv.mu.RUnlock()

	if !exists || gen != current {
		return notFound(key)
	}

	if err := dest.SetBytes(value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// NewGroupcacheKV 创建 Groupcache KV 实例.
func NewGroupcacheKV(ctx context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()

	if kv, ok := groups[gcConfig.Name]; ok {
		return kv, nil
	}

	kv := &GroupcacheKV{
		data: make(map[string][]byte),
		gens: make(map[string]uint64),
	}

	// 创建缓存组
	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	// 如果有对等节点，设置 HTTP 池
	if len(gcConfig.Peers) > 0 && gcConfig.Self != "" {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	groups[gcConfig.Name] = kv

	return kv, nil
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	gen, exists := g.gens[key]
	_, stored := g.data[key]
	g.mu.RUnlock()

	if !exists || !stored {
		return nil, notFound(key)
	}

	var data []byte

	err := g.cache.Get(ctx, versionedKey(key, gen), groupcache.AllocatingByteSliceSink(&data))
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	v, expired, _, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)
		return nil, notFound(key)
	}

	// 返回副本
	result := make([]byte, len(v))
	copy(result, v)

	return result, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	wrapped, _, err := encodeWithTTL(data, ttl)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.data[key] = wrapped
	g.gens[key]++

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.data[key]; ok {
		delete(g.data, key)
		g.gens[key]++
	}

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取匹配 glob 模式的键.
func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchKey(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func versionedKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

func splitVersioned(s string) (string, uint64) {
	i := strings.LastIndexByte(s, '@')
	if i < 0 {
		return s, 0
	}

	gen, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return s, 0
	}

	return s[:i], gen
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
