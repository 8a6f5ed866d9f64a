package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRelevant(t *testing.T) {
	w := NewWatcher("/data", "index.php", 0, nil)

	assert.True(t, w.relevant(fsnotify.Event{Name: "/data/1-a.php", Op: fsnotify.Create}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/data/1-a.php", Op: fsnotify.Remove}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/data/index.php", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/data/.snipvault-123", Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/data/readme.txt", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/data/1-a.php", Op: fsnotify.Chmod}))
	assert.Equal(t, defaultDebounce, w.debounce)
}

// TestWatcherDebounce 连续多次修改只触发一次回调.
func TestWatcherDebounce(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32

	w := NewWatcher(dir, "index.php", 200*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	// 等待监视生效
	time.Sleep(100 * time.Millisecond)

	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "1-a.php"), []byte{byte('a' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	require.NoError(t, <-done)
}
