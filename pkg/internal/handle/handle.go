// Package handle 提供 HTTP 请求处理器，只做参数绑定与错误映射，业务逻辑在 service 层.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/log"
)

// DefaultHandler 未实现的路由.
func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// statusOf 把服务层错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNameInUse):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail 写出错误响应；5xx 隐藏内部细节并记录日志.
func fail(c *gin.Context, err error) {
	status := statusOf(err)

	body := gin.H{"error": err.Error()}

	var ve *service.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}

	if status >= http.StatusInternalServerError {
		l := ctxPkg.WithRequestLogger(c.Request.Context(), *log.Logger())
		l.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")

		body = gin.H{"error": "internal storage error"}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func snippets(c *gin.Context) *service.SnippetService {
	return service.NewSnippetService(c.Request.Context())
}
