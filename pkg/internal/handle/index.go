package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/internal/types"
)

// GetIndex 返回索引文档，支持 If-None-Match.
func GetIndex(c *gin.Context) {
	doc, err := snippets(c).Index(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	etag := doc.ETag()
	c.Header("ETag", etag)

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// RebuildIndex 全量重建索引.
func RebuildIndex(c *gin.Context) {
	doc, err := snippets(c).Rebuild(c.Request.Context(), service.TriggerAPI)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("ETag", doc.ETag())
	c.JSON(http.StatusOK, types.RebuildResponse{
		Published:  len(doc.Published),
		Draft:      len(doc.Draft),
		ErrorFiles: len(doc.ErrorFiles),
		CachedAt:   doc.Meta.CachedAt,
	})
}

// GetSettings 返回全局设置.
func GetSettings(c *gin.Context) {
	s, err := snippets(c).Settings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// SaveSettings 部分更新全局设置.
func SaveSettings(c *gin.Context) {
	var req types.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := snippets(c).SaveSettings(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}
