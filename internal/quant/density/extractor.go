// Package density extracts the option-implied risk-neutral probability
// density of the underlying at expiry. The second derivative of the
// call price curve in strike, scaled by e^{rT}, is the density
// (Breeden and Litzenberger, 1978). A calibrated volatility surface
// turns the discrete market quotes into a smooth price curve so the
// numerical derivative is stable.
package density

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/quant/num"
	"OptionLens/internal/quant/pricing"
	"OptionLens/internal/quant/vol"
)

// ErrNotReady is returned when probability queries run against a
// result that carries no density.
var ErrNotReady = errors.New("density: no extracted density available")

// InsufficientDataError reports too few usable quotes inside the
// strike band around spot.
type InsufficientDataError struct {
	Found    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("density: need at least %d quotes in the strike band, got %d", e.Required, e.Found)
}

// DegenerateDensityError reports a density whose integral is not
// positive, which means the price curve carried no usable convexity.
type DegenerateDensityError struct {
	Integral float64
}

func (e *DegenerateDensityError) Error() string {
	return fmt.Sprintf("density: integral %g is not positive", e.Integral)
}

// Config tunes the extraction pipeline. Zero values fall back to the
// defaults from DefaultConfig.
type Config struct {
	// GridPoints is the resolution of the strike grid the density is
	// evaluated on.
	GridPoints int
	// MinQuotes is the minimum number of quotes that must survive the
	// strike-band filter.
	MinQuotes int
	// MinStrikePct and MaxStrikePct bound the band around spot; quotes
	// outside it are too illiquid to trust.
	MinStrikePct float64
	MaxStrikePct float64
	// SmoothWindow caps the Savitzky-Golay window applied to the raw
	// second derivative.
	SmoothWindow int
	// SmoothOrder is the polynomial order of the smoother.
	SmoothOrder int

	Vol vol.Config
}

// DefaultConfig returns the standard pipeline setup.
func DefaultConfig() Config {
	return Config{
		GridPoints:   500,
		MinQuotes:    10,
		MinStrikePct: 0.80,
		MaxStrikePct: 1.20,
		SmoothWindow: 51,
		SmoothOrder:  3,
		Vol:          vol.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GridPoints <= 0 {
		c.GridPoints = d.GridPoints
	}
	if c.MinQuotes <= 0 {
		c.MinQuotes = d.MinQuotes
	}
	if c.MinStrikePct <= 0 {
		c.MinStrikePct = d.MinStrikePct
	}
	if c.MaxStrikePct <= 0 {
		c.MaxStrikePct = d.MaxStrikePct
	}
	if c.SmoothWindow <= 0 {
		c.SmoothWindow = d.SmoothWindow
	}
	if c.SmoothOrder <= 0 {
		c.SmoothOrder = d.SmoothOrder
	}
	return c
}

// Result is a normalized density on its strike grid plus the
// volatility fit that produced it.
type Result struct {
	Strikes []float64
	Density []float64
	CDF     []float64
	Fit     vol.FitStats
}

// Extractor runs the Breeden-Litzenberger pipeline.
type Extractor struct {
	cfg Config
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConfig replaces the whole pipeline configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extractor) { e.cfg = cfg }
}

// WithGridPoints overrides the strike grid resolution.
func WithGridPoints(n int) Option {
	return func(e *Extractor) { e.cfg.GridPoints = n }
}

// WithMinQuotes overrides the minimum surviving quote count.
func WithMinQuotes(n int) Option {
	return func(e *Extractor) { e.cfg.MinQuotes = n }
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.withDefaults()
	return e
}

// Extract computes the risk-neutral density from an option chain.
//
// Pipeline: filter quotes to the strike band around spot, calibrate a
// volatility surface, evaluate Black-Scholes prices on a fine strike
// grid, differentiate twice in strike, scale by e^{rT}, clip and
// smooth the numerical noise, then normalize so the density integrates
// to one. When SABR calibration fails the spline runs as fallback.
func (e *Extractor) Extract(quotes []models.MarketQuote, mkt models.MarketContext, right models.OptionRight, method vol.Method) (*Result, error) {
	cfg := e.cfg

	minStrike := mkt.Spot * cfg.MinStrikePct
	maxStrike := mkt.Spot * cfg.MaxStrikePct

	usable := make([]models.MarketQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.Strike < minStrike || q.Strike > maxStrike {
			continue
		}
		mid := q.MidPrice()
		if mid <= 0 && q.ImpliedVol > 0 {
			// empty book but a quoted vol; synthesize the price
			if right == models.Put {
				mid = pricing.Put(q.Strike, mkt.Spot, mkt.RiskFreeRate, mkt.TimeToExpiry, q.ImpliedVol)
			} else {
				mid = pricing.Call(q.Strike, mkt.Spot, mkt.RiskFreeRate, mkt.TimeToExpiry, q.ImpliedVol)
			}
		}
		if !(mid > 0) {
			continue
		}
		usable = append(usable, q)
	}
	if len(usable) < cfg.MinQuotes {
		return nil, &InsufficientDataError{Found: len(usable), Required: cfg.MinQuotes}
	}
	sort.Slice(usable, func(i, j int) bool { return usable[i].Strike < usable[j].Strike })

	strikes := make([]float64, len(usable))
	ivs := make([]float64, len(usable))
	for i, q := range usable {
		strikes[i] = q.Strike
		ivs[i] = q.ImpliedVol
	}

	surf, fit, err := e.calibrate(strikes, ivs, mkt, method)
	if err != nil {
		return nil, err
	}

	grid := num.Linspace(minStrike, maxStrike, cfg.GridPoints)
	gridIVs, err := surf.Volatilities(grid)
	if err != nil {
		return nil, fmt.Errorf("density: evaluating surface: %w", err)
	}

	var prices []float64
	if right == models.Put {
		prices = pricing.Puts(grid, mkt.Spot, mkt.RiskFreeRate, mkt.TimeToExpiry, gridIVs)
	} else {
		prices = pricing.Calls(grid, mkt.Spot, mkt.RiskFreeRate, mkt.TimeToExpiry, gridIVs)
	}

	pdf := e.breedenLitzenberger(grid, prices, mkt.RiskFreeRate, mkt.TimeToExpiry)

	integral := num.Trapezoid(pdf, grid)
	if !(integral > 0) || math.IsInf(integral, 0) {
		return nil, &DegenerateDensityError{Integral: integral}
	}
	for i := range pdf {
		pdf[i] /= integral
	}

	cdf := num.CumTrapezoid(pdf, grid)
	if last := cdf[len(cdf)-1]; last > 0 {
		for i := range cdf {
			cdf[i] /= last
		}
	}

	return &Result{Strikes: grid, Density: pdf, CDF: cdf, Fit: fit}, nil
}

// calibrate fits the requested surface. A failed SABR fit degrades to
// the spline instead of aborting the whole extraction.
func (e *Extractor) calibrate(strikes, ivs []float64, mkt models.MarketContext, method vol.Method) (vol.Surface, vol.FitStats, error) {
	if method == "" {
		method = vol.MethodSABR
	}
	surf, fit, err := vol.Calibrate(strikes, ivs, mkt.Forward(), mkt.TimeToExpiry, method, e.cfg.Vol)
	if err != nil && method == vol.MethodSABR {
		var ce *vol.CalibrationError
		if errors.As(err, &ce) {
			// too few points fails the spline too
			return nil, fit, err
		}
		surf, fit, err = vol.Calibrate(strikes, ivs, mkt.Forward(), mkt.TimeToExpiry, vol.MethodSpline, e.cfg.Vol)
	}
	if err != nil {
		return nil, fit, fmt.Errorf("density: calibrating volatility surface: %w", err)
	}
	return surf, fit, nil
}

// breedenLitzenberger turns a price curve into an unnormalized density
// via the double strike derivative, clipping and smoothing the result.
func (e *Extractor) breedenLitzenberger(grid, prices []float64, r, T float64) []float64 {
	first := num.Gradient(prices, grid)
	second := num.Gradient(first, grid)

	scale := math.Exp(r * T)
	pdf := make([]float64, len(second))
	for i, v := range second {
		pdf[i] = scale * v
	}
	num.ClipNonNeg(pdf)

	window := e.cfg.SmoothWindow
	if window > len(pdf) {
		window = len(pdf)
	}
	if window%2 == 0 {
		window--
	}
	if window >= 5 {
		if smoothed, err := num.SavitzkyGolay(pdf, window, e.cfg.SmoothOrder); err == nil {
			pdf = num.ClipNonNeg(smoothed)
		}
	}
	return pdf
}

// ProbabilityBelow is the CDF read at level, linearly interpolated on
// the strike grid.
func (r *Result) ProbabilityBelow(level float64) (float64, error) {
	if r == nil || len(r.Strikes) == 0 || len(r.CDF) != len(r.Strikes) {
		return 0, ErrNotReady
	}
	return num.Interp(level, r.Strikes, r.CDF), nil
}

// ProbabilityAbove is the complement of ProbabilityBelow.
func (r *Result) ProbabilityAbove(level float64) (float64, error) {
	below, err := r.ProbabilityBelow(level)
	if err != nil {
		return 0, err
	}
	return 1 - below, nil
}

// ProbabilityRange is the probability mass between lower and upper.
func (r *Result) ProbabilityRange(lower, upper float64) (float64, error) {
	if upper < lower {
		return 0, fmt.Errorf("density: range upper %g below lower %g", upper, lower)
	}
	belowUpper, err := r.ProbabilityBelow(upper)
	if err != nil {
		return 0, err
	}
	belowLower, err := r.ProbabilityBelow(lower)
	if err != nil {
		return 0, err
	}
	return belowUpper - belowLower, nil
}
