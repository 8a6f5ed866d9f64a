// Package jobs 负责注册与实现后台任务：定时重建索引，以及监视存储目录在外部修改后重建.
package jobs

import (
	"context"
	"errors"

	"github.com/yeisme/snipvault/pkg/configs"
	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/log"
	"github.com/yeisme/snipvault/pkg/scheduler"
)

// RegisterCronJobs 注册索引定时重建任务；cfg.RebuildCron 为 "-" 时不注册.
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager, cfg configs.IndexConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if mgr == nil {
		return errors.New("storage manager is nil")
	}

	expr := cfg.RebuildCron
	if expr == "-" {
		log.Logger().Info().Msg("index rebuild cron disabled")
		return nil
	}

	if expr == "" {
		expr = DefaultIndexRebuildCron
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	return sched.AddCron(baseCtx, JobIndexRebuild, expr, func(ctx context.Context) error {
		return rebuild(ctx, service.TriggerCron)
	})
}

// rebuild 从 context 中的存储管理器构造服务并重建索引.
func rebuild(ctx context.Context, trigger string) error {
	l := log.Logger().With().Str("job", JobIndexRebuild).Str("trigger", trigger).Logger()

	doc, err := service.NewSnippetService(ctx).Rebuild(ctx, trigger)
	if err != nil {
		return err
	}

	l.Info().
		Int("published", len(doc.Published)).
		Int("draft", len(doc.Draft)).
		Int("error_files", len(doc.ErrorFiles)).
		Msg("index rebuilt")

	return nil
}
