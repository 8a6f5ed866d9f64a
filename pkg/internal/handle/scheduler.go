package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/scheduler"
)

// withScheduler 调度器未运行时返回 503.
func withScheduler(fn func(c *gin.Context, sched *scheduler.Scheduler)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched := ctxPkg.GetScheduler(c.Request.Context())
		if sched == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
			return
		}

		fn(c, sched)
	}
}

func jobError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	fail(c, err)
}

// SchedulerJobs 列出定时任务及其运行状态.
var SchedulerJobs = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	c.JSON(http.StatusOK, gin.H{
		"jobs":    sched.GetJobInfos(),
		"waiting": sched.JobsWaitingInQueue(),
	})
})

// SchedulerJob 返回单个任务.
var SchedulerJob = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	info, err := sched.GetJobInfoByName(c.Param("name"))
	if err != nil {
		jobError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
})

// SchedulerRunJob 立即执行一次任务，例如 index.rebuild.
var SchedulerRunJob = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	if err := sched.RunNow(c.Param("name")); err != nil {
		jobError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": c.Param("name"), "triggered": true})
})

// SchedulerRemoveJob 移除任务，进程重启后按配置重新注册.
var SchedulerRemoveJob = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	if err := sched.RemoveJobByName(c.Param("name")); err != nil {
		jobError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
})

// SchedulerStopJobs 暂停全部定时任务.
var SchedulerStopJobs = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	if err := sched.StopJobs(); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stopped": true})
})
