package configs

import (
	"github.com/spf13/viper"
)

// KVConfig 键值存储配置，用作索引文档的读穿缓存.
type KVConfig struct {
	Type       string             `mapstructure:"type"       rule:"oneof=memory redis groupcache nats"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
}

// NATSKVConfig JetStream KV bucket 配置.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"      rule:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required"`
}

// RedisKVConfig Redis KV 配置.
type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// GroupcacheKVConfig Groupcache KV 配置.
type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=1048576"` // 最小1MB
	Peers      []string `mapstructure:"peers"`
	Self       string   `mapstructure:"self"`
}

// GetKVType 返回当前配置的 KV 类型.
func (c *KVConfig) GetKVType() string {
	return c.Type
}

// IsRemote 后端是否跨进程，远程后端需要熔断保护.
func (c *KVConfig) IsRemote() bool {
	return c.Type == "redis" || c.Type == "nats"
}

// setDefaults 设置 KV 配置的默认值.
func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")

	// Redis 默认值
	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)

	const maxGroupcacheCacheBytes = 64 * 1024 * 1024 // 64MB
	// Groupcache 默认值
	v.SetDefault("kv.groupcache.name", "snipvault-cache")
	v.SetDefault("kv.groupcache.cache_bytes", maxGroupcacheCacheBytes)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "")

	v.SetDefault("kv.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("kv.nats.bucket", "snipvault")
}
