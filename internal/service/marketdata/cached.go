package marketdata

import (
	"context"
	"time"

	"OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
	"OptionLens/pkg/cache"
)

// Cached decorates a QuoteSource with a TTL cache. Option chains and
// spots are expensive network calls that change slowly relative to the
// analysis cadence.
type Cached struct {
	next  dsvc.QuoteSource
	cache cache.Service
	ttl   time.Duration
}

// NewCached wraps next with caching.
func NewCached(next dsvc.QuoteSource, c cache.Service, ttl time.Duration) dsvc.QuoteSource {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) Spot(ctx context.Context, ticker string) (float64, error) {
	key := cache.GenerateKey("md:spot", ticker)
	var spot float64
	if err := c.cache.Get(ctx, key, &spot); err == nil {
		return spot, nil
	}

	spot, err := c.next.Spot(ctx, ticker)
	if err != nil {
		return 0, err
	}
	_ = c.cache.Set(ctx, key, spot, c.ttl)
	return spot, nil
}

func (c *Cached) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	key := cache.GenerateKey("md:exp", ticker)
	var exps []time.Time
	if err := c.cache.Get(ctx, key, &exps); err == nil && len(exps) > 0 {
		return exps, nil
	}

	exps, err := c.next.Expirations(ctx, ticker)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, exps, c.ttl)
	return exps, nil
}

func (c *Cached) OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]models.MarketQuote, error) {
	key := cache.GenerateKeyWithParams("md:chain", ticker, expiration.Format("2006-01-02"))
	var quotes []models.MarketQuote
	if err := c.cache.Get(ctx, key, &quotes); err == nil && len(quotes) > 0 {
		return quotes, nil
	}

	quotes, err := c.next.OptionChain(ctx, ticker, expiration)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, quotes, c.ttl)
	return quotes, nil
}
