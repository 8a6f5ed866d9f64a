package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/internal/types"
	"github.com/yeisme/snipvault/pkg/queue"
)

// TestOpenWithDefaults 默认配置下 KV 为内存实现，MQ 为 gochannel，写入后发布事件并缓存索引.
func TestOpenWithDefaults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := configs.Defaults()
	require.NoError(t, err)

	mgr, err := storage.Open(ctx, cfg, storage.WithFilesystem(memfs.New()))
	require.NoError(t, err)

	defer func() { assert.NoError(t, mgr.Close()) }()

	require.NotNil(t, mgr.GetKVClient())
	require.NotNil(t, mgr.GetMQClient())

	ch, err := mgr.GetMQClient().Subscribe(ctx, queue.TopicSnippetCreated)
	require.NoError(t, err)

	svc := service.NewSnippets(mgr.Repository(), mgr.Index(), mgr.Events())

	saved, err := svc.Create(ctx, types.SaveSnippetRequest{
		Meta: snippet.NewMeta("name", "Cached", "status", "draft", "type", "PHP"),
		Code: "echo 1;",
	})
	require.NoError(t, err)

	select {
	case msg := <-ch:
		env, err := queue.ParseSnippetCreated(msg)
		require.NoError(t, err)
		assert.Equal(t, saved.FileName, env.Payload.Snippet.FileName)
		assert.Equal(t, queue.Producer, env.Header.Producer)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("snippet.created not delivered")
	}

	keys, err := mgr.GetKVClient().Keys(ctx, "*")
	require.NoError(t, err)
	assert.Contains(t, keys, "snipvault:index")

	doc, err := mgr.Index().Document(ctx)
	require.NoError(t, err)
	_, ok := doc.Lookup(saved.FileName)
	assert.True(t, ok)
}

// TestOpenDegrades KV 与 MQ 关闭时仍可读写.
func TestOpenDegrades(t *testing.T) {
	cfg, err := configs.Defaults()
	require.NoError(t, err)

	mgr, err := storage.Open(context.Background(), cfg,
		storage.WithFilesystem(memfs.New()), storage.WithoutKV(), storage.WithoutMQ())
	require.NoError(t, err)

	assert.Nil(t, mgr.GetKVClient())
	assert.Nil(t, mgr.GetMQClient())
	assert.False(t, mgr.Events().Enabled(queue.TopicSnippetCreated))

	_, err = mgr.Index().Rebuild(context.Background())
	require.NoError(t, err)
	require.NoError(t, mgr.Close())
}

// TestOpenBadMQ 不支持的 MQ 类型只会关闭事件.
func TestOpenBadMQ(t *testing.T) {
	cfg, err := configs.Defaults()
	require.NoError(t, err)

	cfg.MQ.Type = "kafka"

	mgr, err := storage.Open(context.Background(), cfg, storage.WithFilesystem(memfs.New()), storage.WithoutKV())
	require.NoError(t, err)
	assert.Nil(t, mgr.GetMQClient())
}
