package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"wslink-server/internal/modules/weather/repository"
	"wslink-server/internal/modules/weather/types"
)

const (
	DefaultHistoryHours = 24
	DefaultStoreTimeout = 5 * time.Second
)

var ErrInvalidWindow = errors.New("hours must be a positive integer")

// Windows longer than a time.Duration step back in whole days; starts before
// year 1 clamp to the zero time.
const (
	maxDurationHours = math.MaxInt64 / int64(time.Hour)
	maxWindowDays    = 1_000_000
)

// Callback is one station upload: the raw parameters and where they came
// from (client address for HTTP, topic for MQTT).
type Callback struct {
	Origin string
	Params url.Values
}

// WeatherService is the ingestion and query surface shared by the HTTP
// handlers and the MQTT subscriber.
type WeatherService interface {
	Ingest(ctx context.Context, cb Callback) (int64, error)
	Current(ctx context.Context) (*types.WeatherRecord, error)
	History(ctx context.Context, hours int) ([]types.WeatherRecord, error)
}

type Option func(*Service)

// WithVerifier replaces the default AllowAll credential check.
func WithVerifier(v CredentialVerifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithStoreTimeout bounds every store call; zero or negative disables it.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithClock overrides the time source used for fallback timestamps and the
// history window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	repository repository.WeatherRepository
	verifier   CredentialVerifier
	timeout    time.Duration
	now        func() time.Time
}

func NewService(repository repository.WeatherRepository, opts ...Option) *Service {
	s := &Service{
		repository: repository,
		verifier:   AllowAll{},
		timeout:    DefaultStoreTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest turns a callback into one stored record and returns its id.
func (s *Service) Ingest(ctx context.Context, cb Callback) (int64, error) {
	now := s.now()

	rec, err := recordFromParams(cb.Params)
	if err != nil {
		return 0, err
	}
	if err := s.verifier.Verify(ctx, cb.Params.Get(ParamStationID), cb.Params.Get(ParamPassword)); err != nil {
		return 0, err
	}
	// Stored timestamps keep microsecond precision.
	rec.Timestamp = resolveTimestamp(cb.Params.Get(ParamDateTime), now).UTC().Truncate(time.Microsecond)

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	id, err := s.repository.Insert(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("store record: %w", err)
	}
	return id, nil
}

// Current returns the most recent record, or nil when nothing is stored.
func (s *Service) Current(ctx context.Context) (*types.WeatherRecord, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	rec, err := s.repository.MostRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current record: %w", err)
	}
	return rec, nil
}

// History returns the records of the trailing window of hours, oldest first.
func (s *Service) History(ctx context.Context, hours int) ([]types.WeatherRecord, error) {
	if hours <= 0 {
		return nil, ErrInvalidWindow
	}
	since := windowStart(s.now().UTC(), hours)

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	recs, err := s.repository.SinceInclusive(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return recs, nil
}

// windowStart returns now minus hours without overflowing time.Duration.
func windowStart(now time.Time, hours int) time.Time {
	if int64(hours) <= maxDurationHours {
		return now.Add(-time.Duration(hours) * time.Hour)
	}
	days := hours / 24
	if days > maxWindowDays {
		return time.Time{}
	}
	since := now.AddDate(0, 0, -days).Add(-time.Duration(hours%24) * time.Hour)
	if since.Before(time.Time{}) {
		return time.Time{}
	}
	return since
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
