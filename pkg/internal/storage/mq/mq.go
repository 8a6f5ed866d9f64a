// Package mq 提供基于 Watermill 库的统一消息队列操作接口，用于发布片段生命周期事件.
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现.
//
// 支持的 MQ 类型：
//   - gochannel（进程内，默认）
//   - NATS（支持 JetStream）
//   - Redis pub/sub
//
// 使用示例：
//
//	cfg := configs.GetConfig().MQ
//	client, err := mq.NewClient(ctx, &cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello world"))
//	err = client.Publish(ctx, "snippet.created", msg)
//
//	ch, err := client.Subscribe(ctx, "snippet.created")
//	for m := range ch {
//		fmt.Println(string(m.Payload))
//		m.Ack()
//	}
package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill"
	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/snipvault/pkg/configs"
	nlog "github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/metrics"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Client 封装 watermill Publisher 与 Subscriber，主题统一加上配置的前缀.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	prefix     string
	closeOnce  sync.Once
}

// Topic 返回带前缀的完整主题名.
func (c *Client) Topic(topic string) string { return c.prefix + topic }

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		m.SetContext(ctx)
	}

	return c.publisher.Publish(c.Topic(topic), msgs...)
}

// Subscribe 便捷订阅，ctx 取消后通道关闭.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, c.Topic(topic))
}

// Close 关闭资源，可重复调用.
func (c *Client) Close() error {
	var err error

	c.closeOnce.Do(func() {
		if c.publisher != nil {
			err = errors.Join(err, c.publisher.Close())
		}

		if c.subscriber != nil {
			err = errors.Join(err, c.subscriber.Close())
		}
	})

	return err
}

// NewClient 按给定配置创建客户端.
func NewClient(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Component("mq"))

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if cfg.EnableMetrics {
		builder := wmmetrics.NewPrometheusMetricsBuilder(metrics.GetRegistry(), "snipvault", "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	return &Client{publisher: pub, subscriber: sub, prefix: cfg.TopicPrefix}, nil
}

// NewLoggerAdapter 把 zerolog 适配为 watermill 日志接口.
func NewLoggerAdapter(l *zerolog.Logger) watermill.LoggerAdapter {
	return &zerologAdapter{l: l}
}
