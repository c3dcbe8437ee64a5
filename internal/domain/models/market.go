package models

import (
	"math"
	"time"
)

// OptionRight distinguishes calls from puts.
type OptionRight string

const (
	Call OptionRight = "call"
	Put  OptionRight = "put"
)

// MarketQuote is one observed option contract for a single expiry.
// Bid/Ask may be zero when only a last-trade price is available.
type MarketQuote struct {
	Strike     float64     `json:"strike"`
	Bid        float64     `json:"bid,omitempty"`
	Ask        float64     `json:"ask,omitempty"`
	LastPrice  float64     `json:"last_price"`
	ImpliedVol float64     `json:"implied_vol"` // decimal, 0.20 = 20%
	Right      OptionRight `json:"right"`
	Expiration time.Time   `json:"expiration"`
}

// MidPrice returns (bid+ask)/2 when both sides are quoted, otherwise
// the last-trade price.
func (q MarketQuote) MidPrice() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.LastPrice
}

// MarketContext carries the pricing environment for one extraction.
// It is immutable for the duration of the call.
type MarketContext struct {
	Spot         float64 `json:"spot"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	TimeToExpiry float64 `json:"time_to_expiry"` // years
}

// Forward returns spot compounded at the risk-free rate to expiry.
func (m MarketContext) Forward() float64 {
	return m.Spot * math.Exp(m.RiskFreeRate*m.TimeToExpiry)
}
