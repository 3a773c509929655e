package weather

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"wslink-server/internal/config"
	"wslink-server/internal/modules/weather/controller"
	"wslink-server/internal/modules/weather/repository"
	"wslink-server/internal/modules/weather/service"
)

// NewStore returns the SQL record store, fronted by the Redis latest-record
// cache when rdb is non-nil.
func NewStore(db *sql.DB, rdb redis.UniversalClient, cfg config.Config, logger *slog.Logger) (repository.WeatherRepository, error) {
	store, err := repository.NewRepository(db, cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return store, nil
	}
	return repository.NewCachedRepository(store, rdb, cfg.CacheTTL, logger), nil
}

// RegisterFeature mounts the station callback and query routes on mux and,
// when subscriber is non-nil, the MQTT upload handler.
func RegisterFeature(mux *http.ServeMux, store repository.WeatherRepository, subscriber service.MessageSubscriber, cfg config.Config, logger *slog.Logger) error {
	opts := []service.Option{service.WithStoreTimeout(cfg.StoreTimeout)}
	if cfg.StationCredentialsFile != "" {
		creds, err := service.LoadStaticCredentials(cfg.StationCredentialsFile)
		if err != nil {
			return fmt.Errorf("station credentials: %w", err)
		}
		opts = append(opts, service.WithVerifier(creds))
		logger.Info("station credential check enabled", "file", cfg.StationCredentialsFile)
	} else {
		logger.Warn("station credentials are not verified; any caller can upload")
	}

	weatherService := service.WithLogging(service.NewService(store, opts...), logger)

	weatherController := controller.NewWeatherController(weatherService, cfg.TrustProxyHeaders)
	weatherController.RegisterRoutes(mux)

	if subscriber != nil {
		service.RegisterMQTTHandler(subscriber, weatherService, logger)
	}
	return nil
}
