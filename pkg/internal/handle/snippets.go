package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/snipvault/pkg/internal/types"
)

// ListSnippets 分页列出片段，新记录在前.
func ListSnippets(c *gin.Context) {
	var q types.ListSnippetsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := snippets(c).Paginate(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetSnippet 读取单个片段.
func GetSnippet(c *gin.Context) {
	rec, err := snippets(c).Find(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// CreateSnippet 新建片段，总是以 draft 保存.
func CreateSnippet(c *gin.Context) {
	var req types.SaveSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := snippets(c).Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// UpdateSnippet 覆盖片段内容与元数据.
func UpdateSnippet(c *gin.Context) {
	var req types.SaveSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := snippets(c).Update(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// UpdateSnippetStatus 切换 published / draft.
func UpdateSnippetStatus(c *gin.Context) {
	var req types.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := snippets(c).UpdateStatus(c.Request.Context(), c.Param("name"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// DeleteSnippet 删除片段.
func DeleteSnippet(c *gin.Context) {
	if err := snippets(c).Delete(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
