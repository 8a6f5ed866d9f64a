package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeGoChannel MQType = "gochannel"
	MQTypeNATS      MQType = "nats"
	MQTypeRedis     MQType = "redis"

	DefaultMQURL         = "nats://localhost:4222"
	DefaultMaxReconnects = 5                  // 默认最大重连次数.
	DefaultReconnectWait = 5                  // 默认重连等待时间（秒）.
	DefaultPingInterval  = 20                 // 默认ping间隔 (秒)
	DefaultBufferSize    = 32768              // 默认重连缓冲区大小 (32KB)
	DefaultMQClientID    = "snipvault-app"    // 默认客户端ID
	DefaultOutputBuffer  = 64                 // gochannel 每个订阅者的缓冲
	DefaultTopicPrefix   = "snipvault."       // 主题前缀
	DefaultDurablePrefix = "snipvault-events" // JetStream 持久化前缀
)

// MQConfig 消息队列配置.
type MQConfig struct {
	Type          MQType        `mapstructure:"type"           rule:"oneof=gochannel nats redis"`
	TopicPrefix   string        `mapstructure:"topic_prefix"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	GoChannel     MQGoChannel   `mapstructure:"gochannel"`
	NATS          MQNATSConfig  `mapstructure:"nats"`
	Redis         MQRedisConfig `mapstructure:"redis"`
}

// MQGoChannel 进程内 pub/sub 配置.
type MQGoChannel struct {
	OutputBuffer int64 `mapstructure:"output_buffer" rule:"min=0"`
	Persistent   bool  `mapstructure:"persistent"` // 为后来的订阅者保留已发布消息
}

// MQNATSConfig NATS MQ 配置.
type MQNATSConfig struct {
	URL                    string   `mapstructure:"url"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
	User                   string   `mapstructure:"user"`
	Password               string   `mapstructure:"password"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClientID               string   `mapstructure:"client_id"`
	MaxReconnects          int      `mapstructure:"max_reconnects"           rule:"min=0,max=100"`
	ReconnectWait          int      `mapstructure:"reconnect_wait"           rule:"min=1,max=300"`
	PingInterval           int      `mapstructure:"ping_interval"            rule:"min=1,max=300"`
	BufferSize             int      `mapstructure:"buffer_size"              rule:"min=1024,max=1048576"`
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
}

// MQRedisConfig Redis pub/sub 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeGoChannel)
	v.SetDefault("mq.topic_prefix", DefaultTopicPrefix)
	v.SetDefault("mq.enable_metrics", false)

	v.SetDefault("mq.gochannel.output_buffer", DefaultOutputBuffer)
	v.SetDefault("mq.gochannel.persistent", false)

	// NATS 默认值
	v.SetDefault("mq.nats.url", DefaultMQURL)
	v.SetDefault("mq.nats.cluster_urls", []string{})
	v.SetDefault("mq.nats.user", "")
	v.SetDefault("mq.nats.password", "")
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.client_id", DefaultMQClientID)
	v.SetDefault("mq.nats.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.nats.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.nats.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.nats.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", true)
	v.SetDefault("mq.nats.jetstream_ack_async", false)
	v.SetDefault("mq.nats.jetstream_durable_prefix", DefaultDurablePrefix)

	// Redis 默认值
	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
}
