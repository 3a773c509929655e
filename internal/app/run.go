package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"wslink-server/internal/config"
	"wslink-server/internal/db"
	"wslink-server/internal/httpapi"
	"wslink-server/internal/migrate"
	"wslink-server/internal/modules/weather"
	"wslink-server/internal/modules/weather/service"
	"wslink-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
		"storeTimeout", cfg.StoreTimeout,
		"redisAddr", cfg.RedisAddr,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn, cfg.DBDriver); err != nil {
		return err
	}
	slog.Info("database ready")

	var cache redis.UniversalClient
	if rdb := openRedis(ctx, cfg); rdb != nil {
		cache = rdb
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("redis close", "error", err)
			}
		}()
	}

	store, err := weather.NewStore(dbConn, cache, cfg, slog.Default())
	if err != nil {
		return err
	}

	// The handler must be attached before Connect: the broker may deliver
	// queued messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	var messageSubscriber service.MessageSubscriber
	if cfg.MQTTBroker != "" {
		subscriber = mqtt.NewSubscriber(cfg, slog.Default())
		messageSubscriber = subscriber
	}

	mux := httpapi.NewMux(store, cfg.StaticDir)
	if err := weather.RegisterFeature(mux, store, messageSubscriber, cfg, slog.Default()); err != nil {
		return err
	}

	if subscriber != nil {
		// Short deadline so a missing broker does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openRedis returns nil when no cache is configured or the server does not
// answer; the store then serves every read.
func openRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable (continuing without cache)", "addr", cfg.RedisAddr, "error", fmt.Errorf("ping: %w", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("redis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return rdb
}
