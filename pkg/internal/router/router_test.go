package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/router"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/internal/types"
	"github.com/yeisme/snipvault/pkg/middleware"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := configs.Defaults()
	require.NoError(t, err)

	mgr, err := storage.Open(context.Background(), cfg,
		storage.WithFilesystem(memfs.New()), storage.WithoutKV(), storage.WithoutMQ())
	require.NoError(t, err)

	t.Cleanup(func() { _ = mgr.Close() })

	e := gin.New()
	e.Use(middleware.RequestContextMiddleware(), middleware.InjectMiddleware(mgr, nil))
	router.Register(e.Group("/api/v1"))

	return e
}

func do(t *testing.T, e *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))

	return v
}

// TestSnippetLifecycle 新建、读取、发布、删除.
func TestSnippetLifecycle(t *testing.T) {
	e := newEngine(t)

	create := map[string]any{
		"meta": map[string]string{"name": "Hello World", "status": "published", "type": "PHP"},
		"code": "echo 'hi';",
	}

	w := do(t, e, http.MethodPost, "/api/v1/snippets", create, "X-User", "9")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	saved := decode[types.SnippetSaved](t, w)
	assert.Equal(t, "draft", saved.Status)

	w = do(t, e, http.MethodGet, "/api/v1/snippets/"+saved.FileName, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		FileName string            `json:"file_name"`
		Meta     map[string]string `json:"meta"`
		Code     string            `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "echo 'hi';", got.Code)
	assert.Equal(t, "9", got.Meta["created_by"])

	w = do(t, e, http.MethodPatch, "/api/v1/snippets/"+saved.FileName+"/status", map[string]string{"status": "published"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/index", nil)
	require.Equal(t, http.StatusOK, w.Code)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var doc struct {
		Published map[string]map[string]any `json:"published"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Contains(t, doc.Published, saved.FileName)
	assert.Equal(t, saved.FileName, doc.Published[saved.FileName]["file_name"])

	w = do(t, e, http.MethodGet, "/api/v1/index", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/snippets?per_page=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.SnippetPage](t, w)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.PerPage)

	w = do(t, e, http.MethodGet, "/api/v1/snippets?status=archived", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, e, http.MethodDelete, "/api/v1/snippets/"+saved.FileName, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/snippets/"+saved.FileName, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestErrorMapping 校验错误为 422，请求体错误为 400，不存在为 404.
func TestErrorMapping(t *testing.T) {
	e := newEngine(t)

	w := do(t, e, http.MethodPost, "/api/v1/snippets", map[string]any{
		"meta": map[string]string{"name": "x", "type": "PHP"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "status", decode[map[string]string](t, w)["field"])

	w = do(t, e, http.MethodPost, "/api/v1/snippets", map[string]any{"code": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, e, http.MethodPut, "/api/v1/snippets/none.php", map[string]any{
		"meta": map[string]string{"name": "x", "status": "draft", "type": "PHP"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, e, http.MethodGet, "/api/v1/snippets/index.php", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestSettingsAndRebuild 设置读写与手动重建.
func TestSettingsAndRebuild(t *testing.T) {
	e := newEngine(t)

	w := do(t, e, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "yes", decode[map[string]string](t, w)["auto_disable"])

	w = do(t, e, http.MethodPut, "/api/v1/settings", map[string]string{"auto_publish": "yes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "yes", decode[map[string]string](t, w)["auto_publish"])

	w = do(t, e, http.MethodPut, "/api/v1/settings", map[string]string{"auto_publish": "sometimes"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, e, http.MethodPost, "/api/v1/index/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[types.RebuildResponse](t, w).Published)

	w = do(t, e, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
