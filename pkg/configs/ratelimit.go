package configs

import (
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig 写接口限流. 读接口与 /health 不受限.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"gte=0"`
	Burst   int     `mapstructure:"burst" rule:"gte=0"`
	// Key 限流维度：global、ip、user（X-User 操作者）、header:<Name>
	Key     string        `mapstructure:"key"`
	IdleTTL time.Duration `mapstructure:"idle_ttl"` // 闲置超过该时长的分键限流器会被回收
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.key", "user")
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)
}
