package marketdata

import (
	"context"
	"math"
	"time"

	"OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
	"OptionLens/pkg/util"
)

// Stub is a deterministic QuoteSource for development and tests. It
// serves a flat 20%-vol synthetic chain around a fixed spot so the
// whole pipeline runs without network access.
type Stub struct {
	spot float64
}

// NewStub creates a synthetic QuoteSource centered on spot.
func NewStub(spot float64) dsvc.QuoteSource {
	if spot <= 0 {
		spot = 450
	}
	return &Stub{spot: spot}
}

func (s *Stub) Spot(ctx context.Context, ticker string) (float64, error) {
	return s.spot, nil
}

func (s *Stub) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	out := make([]time.Time, 0, 8)
	for _, days := range []int{7, 14, 21, 30, 45, 60, 90, 120} {
		out = append(out, now.AddDate(0, 0, days))
	}
	return out, nil
}

func (s *Stub) OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]models.MarketQuote, error) {
	tau := util.YearsBetween(time.Now().UTC(), expiration)
	if tau <= 0 {
		tau = 7.0 / 365
	}

	quotes := make([]models.MarketQuote, 0, 80)
	lo, hi := s.spot*0.8, s.spot*1.2
	step := (hi - lo) / 39
	for i := 0; i < 40; i++ {
		k := lo + float64(i)*step
		iv := 0.20 * (1 + 0.0005*(k-s.spot)*(k-s.spot)/(s.spot*s.spot))
		for _, right := range []models.OptionRight{models.Call, models.Put} {
			price := stubPrice(k, s.spot, tau, iv, right)
			quotes = append(quotes, models.MarketQuote{
				Strike:     k,
				LastPrice:  price,
				ImpliedVol: iv,
				Right:      right,
				Expiration: expiration,
			})
		}
	}
	return quotes, nil
}

// stubPrice is a rough intrinsic-plus-time value, good enough for a
// synthetic chain whose prices are never differentiated directly.
func stubPrice(k, spot, tau, iv float64, right models.OptionRight) float64 {
	intrinsic := spot - k
	if right == models.Put {
		intrinsic = k - spot
	}
	if intrinsic < 0 {
		intrinsic = 0
	}
	timeValue := 0.4 * spot * iv * math.Sqrt(tau) * math.Exp(-math.Abs(k-spot)/(spot*iv))
	return intrinsic + timeValue
}
