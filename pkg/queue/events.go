package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/snipvault/pkg/configs"
)

// Producer 事件头中的生产者标识.
const Producer = "snipvault"

// Publisher 发布消息，由 mq.Client 实现.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Emitter 按事件开关发布片段生命周期事件. 零值与 nil 都会静默丢弃事件.
type Emitter struct {
	pub Publisher
	cfg configs.EventsConfig
}

// NewEmitter 创建 Emitter，pub 为 nil 时不发布任何事件.
func NewEmitter(pub Publisher, cfg configs.EventsConfig) *Emitter {
	return &Emitter{pub: pub, cfg: cfg}
}

// Enabled 主题是否开启.
func (e *Emitter) Enabled(topic string) bool {
	if e == nil || e.pub == nil || !e.cfg.Enabled {
		return false
	}

	s := e.cfg.Snippet

	switch topic {
	case TopicSnippetCreated:
		return s.Created
	case TopicSnippetUpdated:
		return s.Updated
	case TopicSnippetStatusUpdated:
		return s.StatusUpdated
	case TopicSnippetDeleted:
		return s.Deleted
	case TopicIndexRebuilt:
		return s.IndexRebuilt
	default:
		return false
	}
}

// SnippetCreated 发布 snippet.created.
func (e *Emitter) SnippetCreated(ctx context.Context, p SnippetCreatedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, e, TopicSnippetCreated, p, opts...)
}

// SnippetUpdated 发布 snippet.updated.
func (e *Emitter) SnippetUpdated(ctx context.Context, p SnippetUpdatedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, e, TopicSnippetUpdated, p, opts...)
}

// SnippetStatusUpdated 发布 snippet.status_updated.
func (e *Emitter) SnippetStatusUpdated(ctx context.Context, p SnippetStatusUpdatedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, e, TopicSnippetStatusUpdated, p, opts...)
}

// SnippetDeleted 发布 snippet.deleted.
func (e *Emitter) SnippetDeleted(ctx context.Context, p SnippetDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, e, TopicSnippetDeleted, p, opts...)
}

// IndexRebuilt 发布 index.rebuilt.
func (e *Emitter) IndexRebuilt(ctx context.Context, p IndexRebuiltPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, e, TopicIndexRebuilt, p, opts...)
}

func publish[T any](ctx context.Context, e *Emitter, topic string, payload T, opts ...func(*EventHeader)) error {
	if !e.Enabled(topic) {
		return nil
	}

	opts = append([]func(*EventHeader){WithProducer(Producer)}, opts...)

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return e.pub.Publish(ctx, topic, msg)
}

// ParseSnippetCreated 将 Watermill 消息解析为强类型 Envelope.
func ParseSnippetCreated(msg *message.Message) (Message[SnippetCreatedPayload], error) {
	return ParseWatermillMessage[SnippetCreatedPayload](msg)
}
