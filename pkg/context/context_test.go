package context_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	appctx "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/repository"
)

func TestActorDelegatesToRepository(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, repository.DefaultActor, appctx.GetActor(ctx))

	ctx = appctx.WithActor(ctx, "42")
	assert.Equal(t, "42", appctx.GetActor(ctx))
	assert.Equal(t, "42", repository.ActorFrom(ctx))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer

	ctx := appctx.WithRequestID(appctx.WithActor(context.Background(), "7"), "req-1")
	l := appctx.WithRequestLogger(ctx, zerolog.New(&buf))
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"actor":"7"`)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Nil(t, appctx.GetManager(ctx))
	assert.Nil(t, appctx.GetKVClient(ctx))
}
