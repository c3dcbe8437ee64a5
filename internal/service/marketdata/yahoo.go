// Package marketdata supplies spot prices and option chains. Sources
// implement the domain QuoteSource interface; a Chain tries them in
// priority order and a Cached decorator keeps hot tickers off the
// network.
package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
	"OptionLens/internal/service/ratelimit"
	xhttp "OptionLens/pkg/http"
)

// Yahoo throttles unauthenticated clients hard, so outbound requests
// run behind a token bucket: burst of 10, 2 requests per second steady.
const (
	yahooBurst     = 10.0
	yahooPerSecond = 2.0
)

// ErrRateLimited is returned when the local throttle rejects a request
// before it reaches the provider.
var ErrRateLimited = fmt.Errorf("marketdata: provider request budget exhausted")

// YahooClient implements QuoteSource against the public Yahoo Finance
// options endpoint.
type YahooClient struct {
	baseURL string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	minIV   float64
	maxIV   float64
}

// NewYahooClient creates a Yahoo-backed QuoteSource. Quotes with an
// implied vol outside [minIV, maxIV] are discarded as stale.
func NewYahooClient(baseURL string, timeout time.Duration, minIV, maxIV float64) dsvc.QuoteSource {
	if minIV <= 0 {
		minIV = 0.05
	}
	if maxIV <= 0 {
		maxIV = 2.0
	}
	return &YahooClient{
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
		minIV:   minIV,
		maxIV:   maxIV,
	}
}

type yahooOptionQuote struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"lastPrice"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	Expiration        int64   `json:"expiration"`
}

type yahooChainResponse struct {
	OptionChain struct {
		Result []struct {
			Quote struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"quote"`
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				Calls []yahooOptionQuote `json:"calls"`
				Puts  []yahooOptionQuote `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

func (c *YahooClient) fetch(ctx context.Context, ticker string, expiration *time.Time) (*yahooChainResponse, error) {
	if !c.limiter.Allow("yahoo", yahooBurst, yahooPerSecond) {
		return nil, ErrRateLimited
	}
	opts := &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/v7/finance/options/%s", c.baseURL, ticker),
		Headers: map[string]string{"User-Agent": "optionlens/1.0"},
	}
	if expiration != nil {
		opts.QueryParams = map[string][]string{
			"date": {strconv.FormatInt(expiration.UTC().Unix(), 10)},
		}
	}

	var resp yahooChainResponse
	if err := c.http.SendAndParse(ctx, opts, &resp); err != nil {
		return nil, fmt.Errorf("yahoo options %s: %w", ticker, err)
	}
	if resp.OptionChain.Error != nil {
		return nil, fmt.Errorf("yahoo options %s: %s", ticker, resp.OptionChain.Error.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("yahoo options %s: empty result", ticker)
	}
	return &resp, nil
}

func (c *YahooClient) Spot(ctx context.Context, ticker string) (float64, error) {
	resp, err := c.fetch(ctx, ticker, nil)
	if err != nil {
		return 0, err
	}
	spot := resp.OptionChain.Result[0].Quote.RegularMarketPrice
	if spot <= 0 {
		return 0, fmt.Errorf("yahoo spot %s: non-positive price %v", ticker, spot)
	}
	return spot, nil
}

func (c *YahooClient) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	resp, err := c.fetch(ctx, ticker, nil)
	if err != nil {
		return nil, err
	}
	stamps := resp.OptionChain.Result[0].ExpirationDates
	out := make([]time.Time, len(stamps))
	for i, ts := range stamps {
		out[i] = time.Unix(ts, 0).UTC()
	}
	return out, nil
}

func (c *YahooClient) OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]models.MarketQuote, error) {
	resp, err := c.fetch(ctx, ticker, &expiration)
	if err != nil {
		return nil, err
	}
	result := resp.OptionChain.Result[0]
	if len(result.Options) == 0 {
		return nil, fmt.Errorf("yahoo options %s: no chain for %s", ticker, expiration.Format("2006-01-02"))
	}

	chain := result.Options[0]
	quotes := make([]models.MarketQuote, 0, len(chain.Calls)+len(chain.Puts))
	for _, q := range chain.Calls {
		quotes = append(quotes, toQuote(q, models.Call))
	}
	for _, q := range chain.Puts {
		quotes = append(quotes, toQuote(q, models.Put))
	}
	return cleanQuotes(quotes, c.minIV, c.maxIV), nil
}

func toQuote(q yahooOptionQuote, right models.OptionRight) models.MarketQuote {
	return models.MarketQuote{
		Strike:     q.Strike,
		Bid:        q.Bid,
		Ask:        q.Ask,
		LastPrice:  q.LastPrice,
		ImpliedVol: q.ImpliedVolatility,
		Right:      right,
		Expiration: time.Unix(q.Expiration, 0).UTC(),
	}
}

// cleanQuotes drops contracts a calibration cannot use: no price, or an
// implied vol outside the plausible band, which is stale-quote noise.
func cleanQuotes(quotes []models.MarketQuote, minIV, maxIV float64) []models.MarketQuote {
	out := quotes[:0]
	for _, q := range quotes {
		if q.Strike <= 0 || q.MidPrice() <= 0 {
			continue
		}
		if q.ImpliedVol < minIV || q.ImpliedVol > maxIV {
			continue
		}
		out = append(out, q)
	}
	return out
}
