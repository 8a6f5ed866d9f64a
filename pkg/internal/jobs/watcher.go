package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/yeisme/snipvault/pkg/configs"
	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/log"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher 监视存储目录中 .php 文件的变化，静默 debounce 时长后触发一次重建.
type Watcher struct {
	dir       string
	indexFile string
	debounce  time.Duration
	onChange  func(ctx context.Context) error
	logger    zerolog.Logger
}

// NewWatcher 创建 Watcher. indexFile 与以 "." 开头的临时文件的变化被忽略.
func NewWatcher(dir, indexFile string, debounce time.Duration, onChange func(ctx context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		dir:       dir,
		indexFile: indexFile,
		debounce:  debounce,
		onChange:  onChange,
		logger:    log.Component("watcher").With().Str("dir", dir).Logger(),
	}
}

// Run 阻塞直到 ctx 结束.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.Info().Dur("debounce", w.debounce).Msg("watching storage directory")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if w.relevant(ev) {
				w.logger.Debug().Str("file", filepath.Base(ev.Name)).Str("op", ev.Op.String()).Msg("snippet file changed")
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				w.logger.Error().Err(err).Msg("rebuild after change")
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(ev.Name)

	return strings.HasSuffix(name, ".php") && name != w.indexFile && !strings.HasPrefix(name, ".")
}

// StartWatcher 在 cfg.Index.Watch 开启时于后台运行目录监视，ctx 结束即停止.
func StartWatcher(ctx context.Context, mgr *storage.Manager, cfg *configs.AppConfig) {
	if !cfg.Index.Watch || mgr == nil {
		return
	}

	baseCtx := ctxPkg.WithStorageManager(ctx, mgr)
	w := NewWatcher(cfg.Storage.Dir, cfg.Storage.IndexFile, cfg.Index.WatchDebounce, func(ctx context.Context) error {
		return rebuild(ctx, service.TriggerWatch)
	})

	go func() {
		if err := w.Run(baseCtx); err != nil {
			w.logger.Error().Err(err).Msg("watcher stopped")
		}
	}()
}
