// Package vol calibrates a smooth implied-volatility function of strike
// from discrete market quotes. Two interchangeable strategies are
// provided: a SABR parametric fit (Hagan 2002 lognormal approximation)
// and a natural cubic spline. Calibration failures are typed so the
// density extractor can run its ordered-attempt fallback explicitly.
package vol

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Method selects the calibration strategy.
type Method string

const (
	MethodSABR   Method = "sabr"
	MethodSpline Method = "spline"
)

// minCalibrationPoints is the smallest number of valid (strike, iv)
// pairs either strategy accepts.
const minCalibrationPoints = 3

// ErrNotCalibrated is returned when a surface is queried before Fit.
var ErrNotCalibrated = errors.New("vol: surface not calibrated")

// CalibrationError reports too few usable quotes after filtering.
type CalibrationError struct {
	Valid    int
	Required int
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("vol: need at least %d valid strikes for calibration, got %d", e.Required, e.Valid)
}

// Surface is a calibrated implied-volatility function of strike.
type Surface interface {
	// Volatility returns the implied volatility at a single strike.
	Volatility(strike float64) (float64, error)
	// Volatilities evaluates the surface at every grid point.
	Volatilities(strikes []float64) ([]float64, error)
}

// FitStats reports calibration quality.
type FitStats struct {
	Method  Method  `json:"method"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	Success bool    `json:"success"`

	// SABR parameters, zero for the spline method.
	Alpha float64 `json:"alpha,omitempty"`
	Rho   float64 `json:"rho,omitempty"`
	Nu    float64 `json:"nu,omitempty"`
	Beta  float64 `json:"beta,omitempty"`
}

// Config carries the SABR calibration constants. Zero values fall back
// to the defaults from DefaultConfig.
type Config struct {
	Beta          float64
	InitialAlpha  float64
	InitialRho    float64
	InitialNu     float64
	MaxIterations int
}

// DefaultConfig returns the standard equity-option setup.
func DefaultConfig() Config {
	return Config{
		Beta:          0.5,
		InitialAlpha:  0.2,
		InitialRho:    -0.3,
		InitialNu:     0.3,
		MaxIterations: 1000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Beta == 0 {
		c.Beta = d.Beta
	}
	if c.InitialAlpha == 0 {
		c.InitialAlpha = d.InitialAlpha
	}
	if c.InitialRho == 0 {
		c.InitialRho = d.InitialRho
	}
	if c.InitialNu == 0 {
		c.InitialNu = d.InitialNu
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

// Calibrate fits the requested strategy to market (strike, iv) pairs.
// Non-positive or non-finite entries are silently dropped; fewer than
// three surviving points is a CalibrationError. The method is strict:
// callers that want SABR-to-spline fallback run the attempts themselves.
func Calibrate(strikes, ivs []float64, forward, tau float64, method Method, cfg Config) (Surface, FitStats, error) {
	ks, vs := filterValid(strikes, ivs)
	if len(ks) < minCalibrationPoints {
		return nil, FitStats{Method: method}, &CalibrationError{Valid: len(ks), Required: minCalibrationPoints}
	}

	switch method {
	case MethodSABR:
		return calibrateSABR(ks, vs, forward, tau, cfg.withDefaults())
	case MethodSpline:
		return calibrateSpline(ks, vs)
	default:
		return nil, FitStats{Method: method}, fmt.Errorf("vol: unknown calibration method %q", method)
	}
}

// filterValid drops pairs with non-positive or non-finite strike or iv,
// returning fresh slices sorted by strike. Repeated strikes (several
// contracts quoting the same level) collapse to one point with the
// average iv; a zero-width spline segment would otherwise poison the
// coefficients.
func filterValid(strikes, ivs []float64) ([]float64, []float64) {
	n := len(strikes)
	if len(ivs) < n {
		n = len(ivs)
	}
	type pair struct{ k, v float64 }
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		k, v := strikes[i], ivs[i]
		if k <= 0 || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(k) || math.IsInf(k, 0) {
			continue
		}
		pairs = append(pairs, pair{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	ks := make([]float64, 0, len(pairs))
	vs := make([]float64, 0, len(pairs))
	for i := 0; i < len(pairs); {
		j := i
		sum := 0.0
		for j < len(pairs) && pairs[j].k == pairs[i].k {
			sum += pairs[j].v
			j++
		}
		ks = append(ks, pairs[i].k)
		vs = append(vs, sum/float64(j-i))
		i = j
	}
	return ks, vs
}

// fitQuality computes RMSE and MAE of model vols against market vols.
func fitQuality(s Surface, strikes, ivs []float64) (rmse, mae float64) {
	model, err := s.Volatilities(strikes)
	if err != nil || len(model) == 0 {
		return math.NaN(), math.NaN()
	}
	var sq, ab float64
	for i := range model {
		d := model[i] - ivs[i]
		sq += d * d
		ab += math.Abs(d)
	}
	n := float64(len(model))
	return math.Sqrt(sq / n), ab / n
}
