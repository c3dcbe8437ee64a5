package service

import (
	"context"
	"time"

	"OptionLens/internal/domain/models"
)

// QuoteSource supplies spot prices and option chains for an underlying.
type QuoteSource interface {
	Spot(ctx context.Context, ticker string) (float64, error)
	Expirations(ctx context.Context, ticker string) ([]time.Time, error)
	OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]models.MarketQuote, error)
}

// RateSource supplies the risk-free rate for a maturity.
type RateSource interface {
	Rate(ctx context.Context, daysToMaturity int) (float64, error)
}

// Interpreter renders a snapshot into a short narrative for the
// dashboard.
type Interpreter interface {
	Interpret(ctx context.Context, s *models.AnalysisSnapshot) (string, error)
}
