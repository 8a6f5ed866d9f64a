// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、仓库操作与索引重建指标.
//
// Example:
//
//	import "github.com/yeisme/snipvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/snippets").Inc()
//	metrics.ObserveRepositoryOp("create", start, err)
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/snipvault/pkg/configs"
)

const namespace = "snipvault"

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RepositoryOps 仓库操作计数.
	RepositoryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_ops_total",
			Help:      "Total number of repository operations",
		},
		[]string{"op", "result"},
	)

	// RepositoryOpDuration 仓库操作耗时.
	RepositoryOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_op_duration_seconds",
			Help:      "Repository operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// IndexRebuilds 索引重建次数.
	IndexRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Total number of index rebuilds",
		},
		[]string{"result"},
	)

	// IndexEntries 索引各分组条目数.
	IndexEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Number of entries per index bucket",
		},
		[]string{"bucket"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		// 业务指标附带配置中的默认标签
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)
		reg.MustRegister(
			RequestCounter, RequestDuration,
			RepositoryOps, RepositoryOpDuration,
			IndexRebuilds, IndexEntries,
			buildInfo(config),
		)
	})

	return nil
}

// StartMetricsServer 在 debug 引擎上挂载 /metrics 与可选的 pprof.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	debugEngine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// buildInfo 常量 1，版本信息放在标签里.
func buildInfo(config configs.MetricsConfig) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running snippet store.",
		ConstLabels: prometheus.Labels{
			"name":    config.ServiceName,
			"version": config.ServiceVersion,
		},
	}, func() float64 { return 1 })
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// ObserveRepositoryOp 记录一次仓库操作的结果与耗时.
func ObserveRepositoryOp(op string, start time.Time, err error) {
	RepositoryOps.WithLabelValues(op, result(err)).Inc()
	RepositoryOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveIndexRebuild 记录一次索引重建.
func ObserveIndexRebuild(err error, published, draft int) {
	IndexRebuilds.WithLabelValues(result(err)).Inc()

	if err == nil {
		IndexEntries.WithLabelValues("published").Set(float64(published))
		IndexEntries.WithLabelValues("draft").Set(float64(draft))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
