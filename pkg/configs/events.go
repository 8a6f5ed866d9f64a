package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool                `mapstructure:"enabled"` // 总开关
	Snippet SnippetEventsConfig `mapstructure:"snippet"`
}

// SnippetEventsConfig 针对片段生命周期的事件开关。
type SnippetEventsConfig struct {
	Created       bool `mapstructure:"created"`
	Updated       bool `mapstructure:"updated"`
	StatusUpdated bool `mapstructure:"status_updated"`
	Deleted       bool `mapstructure:"deleted"`
	IndexRebuilt  bool `mapstructure:"index_rebuilt"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.snippet.created", true)
	v.SetDefault("events.snippet.updated", true)
	v.SetDefault("events.snippet.status_updated", true)
	v.SetDefault("events.snippet.deleted", true)

	// 定时任务与目录监听都会触发重建，默认关闭避免噪声过大
	v.SetDefault("events.snippet.index_rebuilt", false)
}
