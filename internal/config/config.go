package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the frontend build served at /.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	DBDriver          string
	DBDSN             string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogSQL          bool

	// StoreTimeout bounds every record store call.
	StoreTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	StationCredentialsFile string

	// TrustProxyHeaders makes X-Forwarded-For / X-Real-IP the client address.
	// Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool
}

// Drivers accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

// LoadFromEnv reads the dotenv file named by ENV_FILE (default .env, ignored
// when missing) and then builds the config from the process environment.
// Variables already set in the environment win over the file.
func LoadFromEnv() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	staticDir := strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if staticDir == "" {
		staticDir = "static"
	}
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite, DriverPostgres, DriverPGX:
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, postgres, pgx)", driver)
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" && driver != DriverSQLite {
		return Config{}, fmt.Errorf("DB_DSN is required for DB_DRIVER %q", driver)
	}
	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "data/weather.db"
	}

	// SQLite serializes writers anyway; one connection avoids "database is locked".
	defaultMaxOpen := "1"
	if driver != DriverSQLite {
		defaultMaxOpen = "10"
	}
	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}
	logSQL, err := boolEnv("DB_LOG_SQL", "false")
	if err != nil {
		return Config{}, err
	}

	storeTimeout, err := durationEnv("STORE_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}
	if storeTimeout <= 0 {
		return Config{}, fmt.Errorf("STORE_TIMEOUT must be > 0, got %s", storeTimeout)
	}

	redisDB, err := intEnv("REDIS_DB", "0")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := durationEnv("CACHE_TTL", "10m")
	if err != nil {
		return Config{}, err
	}

	trustProxy, err := boolEnv("TRUST_PROXY_HEADERS", "false")
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := intEnv("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "wslink-server"
	}
	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "weather/wslink"
	}

	return Config{
		AppEnv:                 appEnv,
		LogLevel:               level,
		HTTPAddr:               httpAddr,
		StaticDir:              staticDir,
		DBDriver:               driver,
		DBDSN:                  dsn,
		SQLitePath:             sqlitePath,
		DBMaxOpenConns:         maxOpenConns,
		DBMaxIdleConns:         maxIdleConns,
		DBConnMaxLifetime:      connMaxLifetime,
		DBLogSQL:               logSQL,
		StoreTimeout:           storeTimeout,
		RedisAddr:              strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		CacheTTL:               cacheTTL,
		MQTTBroker:             strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:               mqttPort,
		MQTTClientID:           mqttClientID,
		MQTTTopic:              mqttTopic,
		StationCredentialsFile: strings.TrimSpace(os.Getenv("STATION_CREDENTIALS_FILE")),
		TrustProxyHeaders:      trustProxy,
	}, nil
}

func intEnv(key, def string) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func durationEnv(key, def string) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func boolEnv(key, def string) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
