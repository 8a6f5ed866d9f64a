package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/scheduler"
)

// InjectMiddleware 把存储管理器与调度器放进 request context，供 service 与 handler 取用. sched 可为 nil.
func InjectMiddleware(mgr *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxPkg.WithStorageManager(c.Request.Context(), mgr)
		if sched != nil {
			ctx = ctxPkg.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
