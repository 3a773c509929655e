package service

import (
	"context"
	"log/slog"
	"time"

	"wslink-server/internal/modules/weather/types"
)

type loggingService struct {
	next   WeatherService
	logger *slog.Logger
}

// WithLogging wraps next so every callback is logged before it is processed
// and every failure is logged with its cause.
func WithLogging(next WeatherService, logger *slog.Logger) WeatherService {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingService{next: next, logger: logger}
}

func (l *loggingService) Ingest(ctx context.Context, cb Callback) (int64, error) {
	attrs := append([]any{"origin", cb.Origin}, summarizeParams(cb.Params)...)
	l.logger.InfoContext(ctx, "station callback", attrs...)

	id, err := l.next.Ingest(ctx, cb)
	if err != nil {
		l.logger.ErrorContext(ctx, "ingest failed", "origin", cb.Origin, "error", err)
		return 0, err
	}
	l.logger.DebugContext(ctx, "record stored", "id", id)
	return id, nil
}

func (l *loggingService) Current(ctx context.Context) (*types.WeatherRecord, error) {
	start := time.Now()
	rec, err := l.next.Current(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "current query failed", "error", err)
		return nil, err
	}
	l.logger.DebugContext(ctx, "current query", "found", rec != nil, "duration_ms", time.Since(start).Milliseconds())
	return rec, nil
}

func (l *loggingService) History(ctx context.Context, hours int) ([]types.WeatherRecord, error) {
	start := time.Now()
	recs, err := l.next.History(ctx, hours)
	if err != nil {
		l.logger.ErrorContext(ctx, "history query failed", "hours", hours, "error", err)
		return nil, err
	}
	l.logger.DebugContext(ctx, "history query", "hours", hours, "count", len(recs), "duration_ms", time.Since(start).Milliseconds())
	return recs, nil
}
