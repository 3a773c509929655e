package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wslink-server/internal/config"
	"wslink-server/internal/modules/weather/types"
)

//go:embed sql
var sqlFS embed.FS

// sqliteTimeLayout is fixed width so that text comparison in SQLite orders
// the same way as time.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

// WeatherRepository is the append-only record store. Records are never
// updated or deleted.
type WeatherRepository interface {
	// Insert appends rec and returns the id the store assigned to it.
	Insert(ctx context.Context, rec types.WeatherRecord) (int64, error)
	// MostRecent returns the record with the greatest timestamp (highest id
	// on ties), or nil when the store is empty.
	MostRecent(ctx context.Context) (*types.WeatherRecord, error)
	// SinceInclusive returns records with timestamp >= since, oldest first.
	SinceInclusive(ctx context.Context, since time.Time) ([]types.WeatherRecord, error)
	Ping(ctx context.Context) error
}

type dialect struct {
	name          string
	insertSQL     string
	mostRecentSQL string
	sinceSQL      string
	encodeTime    func(time.Time) any
}

type repositoryImpl struct {
	db *sql.DB
	d  dialect
}

// NewRepository returns a store over db using the SQL dialect of driverName.
func NewRepository(db *sql.DB, driverName string) (WeatherRepository, error) {
	d, err := loadDialect(driverName)
	if err != nil {
		return nil, err
	}
	return &repositoryImpl{db: db, d: d}, nil
}

func loadDialect(driverName string) (dialect, error) {
	d := dialect{}
	switch driverName {
	case config.DriverSQLite:
		d.name = "sqlite"
		d.encodeTime = func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) }
	case config.DriverPostgres, config.DriverPGX:
		d.name = "postgres"
		d.encodeTime = func(t time.Time) any { return t.UTC().Truncate(time.Microsecond) }
	default:
		return dialect{}, fmt.Errorf("unsupported db driver %q", driverName)
	}

	files := map[string]*string{
		"insert-record.sql":   &d.insertSQL,
		"get-most-recent.sql": &d.mostRecentSQL,
		"get-since.sql":       &d.sinceSQL,
	}
	for name, dst := range files {
		b, err := sqlFS.ReadFile("sql/" + d.name + "/" + name)
		if err != nil {
			return dialect{}, fmt.Errorf("load %s query %s: %w", d.name, name, err)
		}
		*dst = string(b)
	}
	return d, nil
}

func (r *repositoryImpl) Insert(ctx context.Context, rec types.WeatherRecord) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.d.insertSQL,
		r.d.encodeTime(rec.Timestamp),
		nullable(rec.TempOut),
		nullable(rec.HumidityOut),
		nullable(rec.WindDir),
		nullable(rec.WindSpeed),
		nullable(rec.RainDaily),
		nullable(rec.SolarRadiation),
		nullable(rec.UVIndex),
		nullable(rec.TempIn),
		nullable(rec.HumidityIn),
		nullable(rec.PressureRel),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert weather record: %w", err)
	}
	return id, nil
}

func (r *repositoryImpl) MostRecent(ctx context.Context) (*types.WeatherRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.d.mostRecentSQL)
	if err != nil {
		return nil, fmt.Errorf("query most recent record: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close most recent rows", "error", err)
		}
	}()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (r *repositoryImpl) SinceInclusive(ctx context.Context, since time.Time) ([]types.WeatherRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.d.sinceSQL, r.d.encodeTime(since))
	if err != nil {
		return nil, fmt.Errorf("query records since %s: %w", since.UTC().Format(time.RFC3339), err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close history rows", "error", err)
		}
	}()
	return scanRecords(rows)
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	var ok int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	if ok != 1 {
		return errors.New("ping store: unexpected result")
	}
	return nil
}

// scanRecords always returns a non-nil slice so an empty history encodes as [].
func scanRecords(rows *sql.Rows) ([]types.WeatherRecord, error) {
	out := make([]types.WeatherRecord, 0)
	for rows.Next() {
		var rec types.WeatherRecord
		var ts any
		if err := rows.Scan(
			&rec.ID,
			&ts,
			&rec.TempOut,
			&rec.HumidityOut,
			&rec.WindDir,
			&rec.WindSpeed,
			&rec.RainDaily,
			&rec.SolarRadiation,
			&rec.UVIndex,
			&rec.TempIn,
			&rec.HumidityIn,
			&rec.PressureRel,
		); err != nil {
			return nil, fmt.Errorf("scan weather record: %w", err)
		}
		t, err := decodeTime(ts)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		rec.Timestamp = t
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weather records: %w", err)
	}
	return out, nil
}

func decodeTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
	parsed, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		var err2 error
		parsed, err2 = time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	}
	return parsed.UTC(), nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
