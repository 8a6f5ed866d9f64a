package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/app"
	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/jobs"
	"github.com/yeisme/snipvault/pkg/internal/storage"
)

func TestValidate(t *testing.T) {
	cfg, err := configs.Defaults()
	require.NoError(t, err)
	require.NoError(t, app.Validate(cfg))

	cfg.Storage.Allocator = "random"
	require.Error(t, app.Validate(cfg))

	cfg, _ = configs.Defaults()
	cfg.KV.Type = "memcached"
	require.Error(t, app.Validate(cfg))

	cfg, _ = configs.Defaults()
	cfg.KV.Type = "redis"
	cfg.KV.Redis.Addr = "not an address"
	require.Error(t, app.Validate(cfg))
}

// TestNewWiresRoutes 引擎挂载 API、调度器路由与中间件.
func TestNewWiresRoutes(t *testing.T) {
	cfg, err := configs.Defaults()
	require.NoError(t, err)

	mgr, err := storage.Open(context.Background(), cfg,
		storage.WithFilesystem(memfs.New()), storage.WithoutKV(), storage.WithoutMQ())
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, mgr)
	require.NoError(t, err)

	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, gin.ReleaseMode, gin.Mode())

	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, app.APIPrefix+"/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	a.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, app.APIPrefix+"/scheduler/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Jobs []struct {
			Name string `json:"name"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, jobs.JobIndexRebuild, body.Jobs[0].Name)

	w = httptest.NewRecorder()
	a.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, app.APIPrefix+"/scheduler/jobs/"+jobs.JobIndexRebuild, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, app.APIPrefix+"/scheduler/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
