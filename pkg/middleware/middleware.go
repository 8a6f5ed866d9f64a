// Package middleware 提供 gin 中间件：请求上下文、访问日志、指标、跨域与限流.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
)

const (
	// HeaderRequestID 请求 ID 头，缺失时生成.
	HeaderRequestID = "X-Request-ID"
	// HeaderUser 当前操作者.
	HeaderUser = "X-User"
)

// RequestContextMiddleware 把请求 ID 与操作者写入 request context.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(HeaderRequestID, id)

		ctx := ctxPkg.WithRequestID(c.Request.Context(), id)
		if user := strings.TrimSpace(c.GetHeader(HeaderUser)); user != "" {
			ctx = ctxPkg.WithActor(ctx, user)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// BodyLimitMiddleware 限制请求体大小，超出时读取请求体返回错误.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
