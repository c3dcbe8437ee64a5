package density

import (
	"errors"
	"math"
	"testing"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/quant/num"
	"OptionLens/internal/quant/pricing"
	"OptionLens/internal/quant/vol"
)

var testMkt = models.MarketContext{
	Spot:         450.0,
	RiskFreeRate: 0.05,
	TimeToExpiry: 30.0 / 365.0,
}

// syntheticChain builds call quotes with a mild volatility smile and
// Black-Scholes consistent prices.
func syntheticChain(lo, hi float64, n int) []models.MarketQuote {
	strikes := num.Linspace(lo, hi, n)
	quotes := make([]models.MarketQuote, n)
	for i, k := range strikes {
		iv := 0.20 * (1 + 0.0005*(k-testMkt.Spot)*(k-testMkt.Spot)/(testMkt.Spot*testMkt.Spot))
		quotes[i] = models.MarketQuote{
			Strike:     k,
			LastPrice:  pricing.Call(k, testMkt.Spot, testMkt.RiskFreeRate, testMkt.TimeToExpiry, iv),
			ImpliedVol: iv,
			Right:      models.Call,
		}
	}
	return quotes
}

func TestExtractNormalizedDensity(t *testing.T) {
	quotes := syntheticChain(400, 500, 20)

	res, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSABR)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Strikes) != 500 || len(res.Density) != 500 || len(res.CDF) != 500 {
		t.Fatalf("grid sizes: %d/%d/%d, want 500", len(res.Strikes), len(res.Density), len(res.CDF))
	}

	integral := num.Trapezoid(res.Density, res.Strikes)
	if math.Abs(integral-1) > 1e-9 {
		t.Errorf("density integrates to %v, want 1", integral)
	}
	if last := res.CDF[len(res.CDF)-1]; math.Abs(last-1) > 1e-9 {
		t.Errorf("CDF ends at %v, want 1", last)
	}
	for i, v := range res.Density {
		if v < 0 {
			t.Fatalf("negative density %v at %d", v, i)
		}
	}

	weighted := make([]float64, len(res.Strikes))
	for i := range weighted {
		weighted[i] = res.Strikes[i] * res.Density[i]
	}
	mean := num.Trapezoid(weighted, res.Strikes)
	if math.Abs(mean-testMkt.Spot) > 2.5 {
		t.Errorf("implied mean %v too far from spot %v", mean, testMkt.Spot)
	}
}

func TestExtractSplineMethod(t *testing.T) {
	quotes := syntheticChain(400, 500, 20)

	res, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSpline)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Fit.Method != vol.MethodSpline {
		t.Fatalf("fit method %q, want spline", res.Fit.Method)
	}
	integral := num.Trapezoid(res.Density, res.Strikes)
	if math.Abs(integral-1) > 1e-9 {
		t.Errorf("density integrates to %v, want 1", integral)
	}
}

func TestProbabilityQueries(t *testing.T) {
	quotes := syntheticChain(400, 500, 20)
	res, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSpline)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	below, err := res.ProbabilityBelow(450)
	if err != nil {
		t.Fatalf("below: %v", err)
	}
	above, err := res.ProbabilityAbove(450)
	if err != nil {
		t.Fatalf("above: %v", err)
	}
	if math.Abs(below+above-1) > 1e-12 {
		t.Errorf("below %v + above %v != 1", below, above)
	}
	if below <= 0 || below >= 1 {
		t.Errorf("below %v out of (0,1)", below)
	}

	rng, err := res.ProbabilityRange(440, 460)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b460, _ := res.ProbabilityBelow(460)
	b440, _ := res.ProbabilityBelow(440)
	if math.Abs(rng-(b460-b440)) > 1e-12 {
		t.Errorf("range %v inconsistent with CDF reads %v", rng, b460-b440)
	}
	if rng <= 0 {
		t.Errorf("expected mass between 440 and 460, got %v", rng)
	}

	if _, err := res.ProbabilityRange(460, 440); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestSABRFailureFallsBackToSpline(t *testing.T) {
	quotes := syntheticChain(400, 500, 20)

	// a one-iteration budget stops both optimizers before convergence,
	// so the sabr attempt cannot succeed
	cfg := DefaultConfig()
	cfg.Vol = vol.Config{MaxIterations: 1}

	res, err := NewExtractor(WithConfig(cfg)).Extract(quotes, testMkt, models.Call, vol.MethodSABR)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Fit.Method != vol.MethodSpline {
		t.Fatalf("fit method = %s, want spline fallback", res.Fit.Method)
	}
	integral := num.Trapezoid(res.Density, res.Strikes)
	if math.Abs(integral-1) > 1e-9 {
		t.Errorf("fallback density integrates to %v, want 1", integral)
	}
}

func TestTooFewValidVolsFailsCalibration(t *testing.T) {
	// plenty of priced quotes inside the band, but only two carry a
	// usable implied vol; calibration cannot run and no spline fallback
	// applies
	quotes := syntheticChain(400, 500, 12)
	for i := range quotes[2:] {
		quotes[i+2].ImpliedVol = 0
	}

	_, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSABR)
	var ce *vol.CalibrationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CalibrationError, got %v", err)
	}
	if ce.Valid != 2 {
		t.Fatalf("valid = %d, want 2", ce.Valid)
	}
}

func TestEmptyBookQuotesSynthesized(t *testing.T) {
	// no bid/ask/last anywhere, only quoted vols; prices are
	// synthesized so the chain still extracts
	quotes := syntheticChain(400, 500, 20)
	for i := range quotes {
		quotes[i].LastPrice = 0
	}

	res, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSABR)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	integral := num.Trapezoid(res.Density, res.Strikes)
	if math.Abs(integral-1) > 1e-9 {
		t.Errorf("density integrates to %v, want 1", integral)
	}
}

func TestInsufficientQuotes(t *testing.T) {
	quotes := syntheticChain(430, 470, 5)

	_, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSABR)
	var ie *InsufficientDataError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ie.Found != 5 || ie.Required != 10 {
		t.Fatalf("unexpected counts: %+v", ie)
	}
}

func TestQuotesOutsideBandExcluded(t *testing.T) {
	// band is [360, 540]; strikes from 300 to 550 leave too few inside
	quotes := syntheticChain(300, 550, 12)
	inside := 0
	for _, q := range quotes {
		if q.Strike >= 360 && q.Strike <= 540 {
			inside++
		}
	}
	if inside >= 10 {
		t.Fatalf("test setup: %d quotes inside band, want fewer than 10", inside)
	}

	_, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSABR)
	var ie *InsufficientDataError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ie.Found != inside {
		t.Fatalf("found %d, want %d", ie.Found, inside)
	}
}

func TestDegenerateDensity(t *testing.T) {
	// steeply falling vols drive the spline extrapolation negative on
	// the right wing, so pricing breaks down and no usable convexity
	// survives
	strikes := num.Linspace(400, 500, 12)
	quotes := make([]models.MarketQuote, len(strikes))
	for i, k := range strikes {
		iv := 2.0 - 1.95*(k-400)/100
		quotes[i] = models.MarketQuote{
			Strike:     k,
			LastPrice:  1.0,
			ImpliedVol: iv,
			Right:      models.Call,
		}
	}

	_, err := NewExtractor().Extract(quotes, testMkt, models.Call, vol.MethodSpline)
	var de *DegenerateDensityError
	if !errors.As(err, &de) {
		t.Fatalf("expected DegenerateDensityError, got %v", err)
	}
}

func TestProbabilityOnEmptyResult(t *testing.T) {
	var r Result
	if _, err := r.ProbabilityBelow(450); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}
