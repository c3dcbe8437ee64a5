package repository

import (
	"context"
	"time"

	"OptionLens/internal/domain/models"
)

// Archive persists analysis snapshots and serves the historical corpus
// for pattern matching.
type Archive interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, s *models.AnalysisSnapshot) error
	Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]*models.AnalysisSnapshot, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher fans finished snapshots out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, s *models.AnalysisSnapshot) error
	Close() error
}

type Metrics interface {
	RecordExtraction(ticker, method string)
	RecordFallback(ticker string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordImpliedMove(ticker string, pct float64)
}
