package handle

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
)

// Health 检查存储目录可读，并报告 KV 与 MQ 是否可用；KV、MQ 缺失不影响整体状态.
func Health(c *gin.Context) {
	mgr := ctxPkg.GetManager(c.Request.Context())
	if mgr == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "storage not initialized"})
		return
	}

	components := gin.H{"kv": "disabled", "mq": "disabled"}

	if _, err := mgr.Filesystem().ReadDir("/"); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "storage": err.Error()})
		return
	}

	components["storage"] = "ok"

	if mgr.GetKVClient() != nil {
		components["kv"] = "ok"
	}

	if mgr.GetMQClient() != nil {
		components["mq"] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "components": components})
}
