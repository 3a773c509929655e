package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"wslink-server/internal/config"
)

func TestNew_releaseWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}, "1.2.3", "wslink-server")

	logger.Info("hello", "k", "v")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{"msg": "hello", "app": "wslink-server", "version": "1.2.3", "env": "prod", "k": "v"} {
		if got[key] != want {
			t.Errorf("%s = %v; want %q", key, got[key], want)
		}
	}
}

func TestNew_devUsesConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Config{AppEnv: "dev", LogLevel: slog.LevelInfo}, "dev", "wslink-server")

	logger.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "wslink-server") {
		t.Errorf("output = %q; want message and app attr", out)
	}
	if json.Valid(buf.Bytes()) {
		t.Errorf("dev output should not be JSON: %q", out)
	}
}

func TestNew_respectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Config{AppEnv: "prod", LogLevel: slog.LevelWarn}, "1.0.0", "wslink-server")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info log written at warn level: %q", buf.String())
	}
}
