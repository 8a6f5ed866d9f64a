// Package router 管理路由配置，把 handle 包中的处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/snipvault/pkg/internal/handle"
)

// Register 注册全部 API 路由，group 通常为 /api/v1. writes 作用于写入类路由，例如限流.
//
//	GET    /snippets
//	POST   /snippets
//	GET    /snippets/:name
//	PUT    /snippets/:name
//	PATCH  /snippets/:name/status
//	DELETE /snippets/:name
//	GET    /index
//	POST   /index/rebuild
//	GET    /settings
//	PUT    /settings
//	GET    /health
func Register(group *gin.RouterGroup, writes ...gin.HandlerFunc) {
	RegisterSnippetRoutes(group, writes...)
	RegisterIndexRoutes(group, writes...)
	RegisterHealthCheckRoute(group)
}

// RegisterSnippetRoutes 注册片段路由.
func RegisterSnippetRoutes(g *gin.RouterGroup, writes ...gin.HandlerFunc) {
	s := g.Group("/snippets")
	{
		s.GET("", handle.ListSnippets)
		s.GET("/:name", handle.GetSnippet)
	}

	w := s.Group("", writes...)
	{
		w.POST("", handle.CreateSnippet)
		w.PUT("/:name", handle.UpdateSnippet)
		w.PATCH("/:name/status", handle.UpdateSnippetStatus)
		w.DELETE("/:name", handle.DeleteSnippet)
	}
}

// RegisterIndexRoutes 注册索引与设置路由.
func RegisterIndexRoutes(g *gin.RouterGroup, writes ...gin.HandlerFunc) {
	g.GET("/index", handle.GetIndex)
	g.GET("/settings", handle.GetSettings)

	w := g.Group("", writes...)
	{
		w.POST("/index/rebuild", handle.RebuildIndex)
		w.PUT("/settings", handle.SaveSettings)
	}
}
