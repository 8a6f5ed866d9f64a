package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRebuildCron   = "*/30 * * * *" // 每 30 分钟全量重建一次
	DefaultWatchDebounce = 500 * time.Millisecond
	DefaultCacheTTL      = 10 * time.Minute
	DefaultCacheVersion  = "1.0.0"
)

// IndexConfig 索引文档配置.
type IndexConfig struct {
	RebuildCron   string        `mapstructure:"rebuild_cron"`   // "-" 关闭定时重建
	Watch         bool          `mapstructure:"watch"`          // 监听存储目录，外部改动时重建
	WatchDebounce time.Duration `mapstructure:"watch_debounce"` // 合并短时间内的多次改动
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`      // 文档在 KV 中的缓存时间，0 表示不过期
	CachedVersion string        `mapstructure:"cached_version"` // 写入 meta.cached_version
	CachedDomain  string        `mapstructure:"cached_domain"`  // 写入 meta.cached_domain
}

func (c *IndexConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("index.rebuild_cron", DefaultRebuildCron)
	v.SetDefault("index.watch", false)
	v.SetDefault("index.watch_debounce", DefaultWatchDebounce)
	v.SetDefault("index.cache_ttl", DefaultCacheTTL)
	v.SetDefault("index.cached_version", DefaultCacheVersion)
	v.SetDefault("index.cached_domain", "")
}
