// Package rates resolves the risk-free rate for a maturity from the
// FRED Treasury constant-maturity series, with a configured default
// when the API is unreachable.
package rates

import (
	"context"
	"fmt"
	"strconv"
	"time"

	dsvc "OptionLens/internal/domain/service"
	"OptionLens/pkg/cache"
	xhttp "OptionLens/pkg/http"
	xlogger "OptionLens/pkg/logger"
)

// FREDClient implements RateSource against the FRED observations API.
type FREDClient struct {
	apiKey      string
	baseURL     string
	defaultRate float64
	cacheTTL    time.Duration

	http   *xhttp.Client
	cache  cache.Service
	logger *xlogger.Logger
}

// NewFREDClient creates a FRED-backed RateSource.
func NewFREDClient(apiKey, baseURL string, defaultRate float64, cacheTTL time.Duration, c cache.Service, logger *xlogger.Logger) dsvc.RateSource {
	return &FREDClient{
		apiKey:      apiKey,
		baseURL:     baseURL,
		defaultRate: defaultRate,
		cacheTTL:    cacheTTL,
		http:        xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		cache:       c,
		logger:      logger,
	}
}

// seriesFor maps a maturity in days to the Treasury constant-maturity
// series with the nearest tenor.
func seriesFor(daysToMaturity int) string {
	switch {
	case daysToMaturity <= 30:
		return "DGS1MO"
	case daysToMaturity <= 90:
		return "DGS3MO"
	case daysToMaturity <= 180:
		return "DGS6MO"
	case daysToMaturity <= 365:
		return "DGS1"
	case daysToMaturity <= 365*2:
		return "DGS2"
	case daysToMaturity <= 365*5:
		return "DGS5"
	case daysToMaturity <= 365*10:
		return "DGS10"
	default:
		return "DGS30"
	}
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Rate returns the risk-free rate as a decimal. Any failure falls back
// to the configured default so an analysis never blocks on FRED.
func (c *FREDClient) Rate(ctx context.Context, daysToMaturity int) (float64, error) {
	series := seriesFor(daysToMaturity)
	key := cache.GenerateKey("rates", series)

	var cached float64
	if err := c.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	rate, err := c.fetch(ctx, series)
	if err != nil {
		c.logger.Warn("rate lookup failed, using default",
			xlogger.String("series", series), xlogger.Error(err))
		return c.defaultRate, nil
	}

	_ = c.cache.Set(ctx, key, rate, c.cacheTTL)
	return rate, nil
}

func (c *FREDClient) fetch(ctx context.Context, series string) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("fred: no api key configured")
	}

	var resp fredResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/series/observations", c.baseURL),
		QueryParams: map[string][]string{
			"series_id":  {series},
			"api_key":    {c.apiKey},
			"file_type":  {"json"},
			"sort_order": {"desc"},
			"limit":      {"7"},
		},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("fred %s: %w", series, err)
	}

	// most recent non-missing observation; FRED marks gaps with "."
	for _, obs := range resp.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		pct, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		return pct / 100.0, nil
	}
	return 0, fmt.Errorf("fred %s: no usable observations", series)
}
