package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/snipvault/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册定时任务管理路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup, writes ...gin.HandlerFunc) {
	jobs := g.Group("/scheduler/jobs")

	{
		jobs.GET("", handle.SchedulerJobs)
		jobs.GET("/:name", handle.SchedulerJob)
	}

	w := jobs.Group("", writes...)
	{
		w.POST("/:name/run", handle.SchedulerRunJob)
		w.DELETE("/:name", handle.SchedulerRemoveJob)
		w.POST("/stop", handle.SchedulerStopJobs)
	}
}
