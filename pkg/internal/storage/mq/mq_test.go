package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/storage/mq"
)

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t,
		[]configs.MQType{configs.MQTypeGoChannel, configs.MQTypeNATS, configs.MQTypeRedis},
		mq.GetRegisteredMQTypes())
}

func TestGoChannelRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mq.NewClient(ctx, &configs.MQConfig{
		Type:        configs.MQTypeGoChannel,
		TopicPrefix: "test.",
		GoChannel:   configs.MQGoChannel{OutputBuffer: 8},
	})
	require.NoError(t, err)

	defer func() { assert.NoError(t, client.Close()) }()

	assert.Equal(t, "test.snippet.created", client.Topic("snippet.created"))

	ch, err := client.Subscribe(ctx, "snippet.created")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"file_name":"1-a.php"}`))
	msg.Metadata.Set("producer", "test")
	require.NoError(t, client.Publish(ctx, "snippet.created", msg))

	select {
	case got := <-ch:
		assert.Equal(t, msg.UUID, got.UUID)
		assert.Equal(t, "test", got.Metadata.Get("producer"))
		assert.JSONEq(t, `{"file_name":"1-a.php"}`, string(got.Payload))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}

	// 重复关闭不报错
	require.NoError(t, client.Close())
}

func TestUnsupportedType(t *testing.T) {
	_, err := mq.NewClient(context.Background(), &configs.MQConfig{Type: "kafka"})
	assert.ErrorContains(t, err, "unsupported mq type")
}
