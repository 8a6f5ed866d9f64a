package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/yeisme/snipvault/pkg/configs"
	"github.com/yeisme/snipvault/pkg/log"
)

// TestNewJSON json 格式直接写出结构化事件.
func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "warn", Format: configs.LogFormatJSON}, false, &buf)
	l.Info().Msg("dropped")
	l.Warn().Str("file_name", "1-a.php").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var ev map[string]any
	if err := sonic.UnmarshalString(lines[0], &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev["message"] != "kept" || ev["file_name"] != "1-a.php" || ev["service"] != "snipvault" {
		t.Errorf("unexpected event: %v", ev)
	}
}

// TestNewInvalidLevel 非法级别回退到 info 并提示.
func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "loud", Format: configs.LogFormatJSON}, false, &buf)
	if l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info", l.GetLevel())
	}

	if !strings.Contains(buf.String(), `invalid log level "loud"`) {
		t.Errorf("missing warning, got %q", buf.String())
	}
}

// TestNewDebug debug 模式至少输出 debug 级别.
func TestNewDebug(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(configs.LogConfig{Level: "error", Format: configs.LogFormatJSON}, true, &buf)
	if l.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %s, want debug", l.GetLevel())
	}
}

// TestGinWriter 空行被忽略，其余按固定级别转发.
func TestGinWriter(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf)
	w := log.NewGinWriter(&l, zerolog.WarnLevel)

	if _, err := w.Write([]byte("  \n")); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 0 {
		t.Fatalf("blank line should be dropped, got %q", buf.String())
	}

	if _, err := w.Write([]byte("[GIN-debug] route\n")); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), `"source":"gin"`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}
