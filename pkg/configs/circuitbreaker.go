package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 远程 KV（redis、groupcache）前的熔断器. 打开后读写直接失败，索引回退到磁盘文件.
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	FailureRate float64       `mapstructure:"failure_rate"  rule:"min=0,max=1"`
	MinRequests uint32        `mapstructure:"min_requests"`  // 统计窗口内达到该请求数才计算失败率
	Interval    time.Duration `mapstructure:"interval"`      // 闭合状态下清零计数的周期，0 表示不清零
	OpenTimeout time.Duration `mapstructure:"open_timeout"`  // 打开多久后进入半开
	HalfOpenMax uint32        `mapstructure:"half_open_max"` // 半开状态放行的请求数
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 10)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.open_timeout", 15*time.Second)
	v.SetDefault("circuit_breaker.half_open_max", 1)
}
