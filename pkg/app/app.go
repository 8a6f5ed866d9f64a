// Package app 提供应用程序的初始化：校验配置、打开存储、注册后台任务并组装 gin 引擎.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/internal/jobs"
	"github.com/yeisme/snipvault/pkg/internal/router"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/metrics"
	"github.com/yeisme/snipvault/pkg/middleware"
	"github.com/yeisme/snipvault/pkg/rule"
	"github.com/yeisme/snipvault/pkg/scheduler"
)

// APIPrefix 所有业务路由的前缀.
const APIPrefix = "/api/v1"

// App 持有 HTTP 引擎与其依赖的资源.
type App struct {
	Engine    *gin.Engine
	config    *configs.AppConfig
	manager   *storage.Manager
	scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
}

// Validate 校验配置中会导致启动失败的字段，KV 与 MQ 只校验选中的后端.
func Validate(cfg *configs.AppConfig) error {
	sections := map[string]any{
		"server":  cfg.Server,
		"storage": cfg.Storage,
		"log":     cfg.Log,
	}

	switch cfg.KV.GetKVType() {
	case "redis":
		sections["kv.redis"] = cfg.KV.Redis
	case "groupcache":
		sections["kv.groupcache"] = cfg.KV.Groupcache
	case "nats":
		sections["kv.nats"] = cfg.KV.NATS
	}

	switch cfg.MQ.GetMQType() {
	case configs.MQTypeNATS:
		sections["mq.nats"] = cfg.MQ.NATS
	case configs.MQTypeRedis:
		sections["mq.redis"] = cfg.MQ.Redis
	case configs.MQTypeGoChannel:
		sections["mq.gochannel"] = cfg.MQ.GoChannel
	}

	for name, section := range sections {
		if err := rule.ValidateStruct(section); err != nil {
			return fmt.Errorf("invalid %s config: %w", name, err)
		}
	}

	if err := rule.ValidateVar(cfg.KV.GetKVType(), "oneof=memory redis groupcache nats"); err != nil {
		return fmt.Errorf("invalid kv.type %q: %w", cfg.KV.Type, err)
	}

	if err := rule.ValidateVar(string(cfg.MQ.GetMQType()), "oneof=gochannel nats redis"); err != nil {
		return fmt.Errorf("invalid mq.type %q: %w", cfg.MQ.Type, err)
	}

	return nil
}

// New 创建 App. mgr 为 nil 时按 cfg 打开存储.
func New(ctx context.Context, cfg *configs.AppConfig, mgr *storage.Manager) (*App, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	if mgr == nil {
		var err error
		if mgr, err = storage.Open(ctx, cfg); err != nil {
			return nil, err
		}
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, mgr, cfg.Index); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestContextMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.BodyLimitMiddleware(cfg.Server.MaxBodyBytes),
		middleware.InjectMiddleware(mgr, sched),
	)

	if cfg.Server.Gzip {
		engine.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	api := engine.Group(APIPrefix)
	limit := middleware.RateLimitMiddleware(cfg.RateLimit)
	router.Register(api, limit)
	router.RegisterSchedulerRoutes(api, limit)

	if err := metrics.StartMetricsServer(cfg.Metrics, engine); err != nil {
		return nil, err
	}

	return &App{
		Engine:    engine,
		config:    cfg,
		manager:   mgr,
		scheduler: sched,
	}, nil
}

// Run 启动后台任务与 HTTP 服务，ctx 结束后优雅退出.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	a.scheduler.Start()
	jobs.StartWatcher(ctx, a.manager, a.config)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetTimeoutDuration())
	defer cancel()

	return errors.Join(runErr, srv.Shutdown(shutdownCtx), a.Close())
}

// Close 停止调度器并释放存储资源.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}

	var err error
	if a.scheduler != nil {
		err = errors.Join(err, a.scheduler.Shutdown())
	}

	if a.manager != nil {
		err = errors.Join(err, a.manager.Close())
	}

	return err
}
