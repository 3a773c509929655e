package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"wslink-server/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		AppEnv:         "dev",
		LogLevel:       slog.LevelInfo,
		HTTPAddr:       freeAddr(t),
		DBDriver:       config.DriverSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "weather.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		StoreTimeout:   5 * time.Second,
		CacheTTL:       time.Minute,
	}
}

func waitForOK(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("%s never returned 200", url)
}

func runInBackground(t *testing.T, cfg config.Config) (cancel func() error) {
	t.Helper()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			return errors.New("Run did not return after cancel")
		}
	}
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	stop := runInBackground(t, cfg)
	base := "http://" + cfg.HTTPAddr

	waitForOK(t, base+"/healthz")

	resp, err := http.Get(base + "/data/upload.php?wsid=st&t1tem=18.5&datetime=2025-01-20%2012:00:00")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d; want 200", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/current")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(b), `"temp_out":18.5`) {
		t.Errorf("current = %s; want temp_out 18.5", b)
	}

	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v; want context.Canceled", err)
	}
}

func TestRun_WithRedisAndUnreachableBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()
	cfg.MQTTBroker = "127.0.0.1"
	cfg.MQTTPort = 1
	cfg.MQTTClientID = "run-test"
	cfg.MQTTTopic = "weather/wslink"

	stop := runInBackground(t, cfg)
	base := "http://" + cfg.HTTPAddr
	waitForOK(t, base+"/healthz")

	resp, err := http.Get(base + "/data/upload.php?t1tem=3")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	_ = resp.Body.Close()

	resp, err = http.Get(base + "/api/current")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	_ = resp.Body.Close()

	if !mr.Exists("weather:latest") {
		t.Error("latest record was not cached in redis")
	}

	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v; want context.Canceled", err)
	}
}

func TestRun_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "mysql"
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("Run() = nil; want error for unsupported driver")
	}
}

func TestOpenRedis(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if rdb := openRedis(ctx, config.Config{}); rdb != nil {
		t.Error("openRedis without addr should return nil")
	}

	mr := miniredis.RunT(t)
	rdb := openRedis(ctx, config.Config{RedisAddr: mr.Addr()})
	if rdb == nil {
		t.Fatal("openRedis(miniredis) = nil")
	}
	_ = rdb.Close()

	addr := freeAddr(t)
	if rdb := openRedis(ctx, config.Config{RedisAddr: addr}); rdb != nil {
		t.Errorf("openRedis(%s) should return nil when nothing listens", addr)
	}
}
