package marketdata

import (
	"context"
	"fmt"
	"time"

	"OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
	xlogger "OptionLens/pkg/logger"
)

// Chain is a QuoteSource that tries sources in priority order and
// falls through on any error.
type Chain struct {
	sources []dsvc.QuoteSource
	logger  *xlogger.Logger
}

// NewChain creates a fallback chain over the given sources.
func NewChain(logger *xlogger.Logger, sources ...dsvc.QuoteSource) dsvc.QuoteSource {
	return &Chain{sources: sources, logger: logger}
}

func (c *Chain) Spot(ctx context.Context, ticker string) (float64, error) {
	var lastErr error
	for i, src := range c.sources {
		spot, err := src.Spot(ctx, ticker)
		if err == nil {
			return spot, nil
		}
		lastErr = err
		c.logger.Warn("spot source failed, trying next",
			xlogger.String("ticker", ticker), xlogger.Int("source", i), xlogger.Error(err))
	}
	return 0, fmt.Errorf("all spot sources failed for %s: %w", ticker, lastErr)
}

func (c *Chain) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	var lastErr error
	for i, src := range c.sources {
		exps, err := src.Expirations(ctx, ticker)
		if err == nil && len(exps) > 0 {
			return exps, nil
		}
		if err != nil {
			lastErr = err
		}
		c.logger.Warn("expirations source failed, trying next",
			xlogger.String("ticker", ticker), xlogger.Int("source", i), xlogger.Error(err))
	}
	return nil, fmt.Errorf("all expiration sources failed for %s: %w", ticker, lastErr)
}

func (c *Chain) OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]models.MarketQuote, error) {
	var lastErr error
	for i, src := range c.sources {
		quotes, err := src.OptionChain(ctx, ticker, expiration)
		if err == nil && len(quotes) > 0 {
			return quotes, nil
		}
		if err != nil {
			lastErr = err
		}
		c.logger.Warn("option chain source failed, trying next",
			xlogger.String("ticker", ticker), xlogger.Int("source", i), xlogger.Error(err))
	}
	return nil, fmt.Errorf("all chain sources failed for %s: %w", ticker, lastErr)
}
