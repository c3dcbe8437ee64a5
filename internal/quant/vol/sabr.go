package vol

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// objectivePenalty is returned for parameter vectors outside the SABR
// validity region so the optimizer backs away instead of panicking.
const objectivePenalty = 1e10

// sabrBounds are the box constraints used on the quasi-Newton retry.
var sabrBounds = [3][2]float64{
	{0.001, 2.0},   // alpha
	{-0.999, 0.999}, // rho
	{0.001, 2.0},   // nu
}

// SABR is a calibrated Hagan (2002) lognormal SABR smile with beta held
// fixed. Alpha, Rho and Nu are fitted; Forward and Tau are the market
// inputs frozen at calibration time.
type SABR struct {
	Alpha   float64
	Rho     float64
	Nu      float64
	Beta    float64
	Forward float64
	Tau     float64

	calibrated bool
}

func (s *SABR) Volatility(strike float64) (float64, error) {
	if !s.calibrated {
		return 0, ErrNotCalibrated
	}
	return haganVol(strike, s.Forward, s.Alpha, s.Rho, s.Nu, s.Beta, s.Tau), nil
}

func (s *SABR) Volatilities(strikes []float64) ([]float64, error) {
	if !s.calibrated {
		return nil, ErrNotCalibrated
	}
	out := make([]float64, len(strikes))
	for i, k := range strikes {
		out[i] = haganVol(k, s.Forward, s.Alpha, s.Rho, s.Nu, s.Beta, s.Tau)
	}
	return out, nil
}

// calibrateSABR least-squares fits (alpha, rho, nu) to market implied
// vols. A derivative-free simplex search runs first; if it does not
// report success, one bounded quasi-Newton retry follows. Both failing
// is an error and the caller decides whether to fall back to a spline.
func calibrateSABR(strikes, ivs []float64, forward, tau float64, cfg Config) (Surface, FitStats, error) {
	beta := cfg.Beta

	objective := func(p []float64) float64 {
		alpha, rho, nu := p[0], p[1], p[2]
		if alpha <= 0 || nu <= 0 || rho < -1 || rho > 1 {
			return objectivePenalty
		}
		var sum float64
		for i, k := range strikes {
			v := haganVol(k, forward, alpha, rho, nu, beta, tau)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return objectivePenalty
			}
			d := v - ivs[i]
			sum += d * d
		}
		return sum
	}

	x0 := []float64{cfg.InitialAlpha, cfg.InitialRho, cfg.InitialNu}
	settings := &optimize.Settings{MajorIterations: cfg.MaxIterations}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	success := converged(result, err)

	if !success {
		// bounded quasi-Newton retry; the box is enforced by clamping
		// inside the objective since the method itself is unconstrained
		boxed := func(p []float64) float64 {
			return objective(clampToBounds(p))
		}
		boxedProblem := optimize.Problem{
			Func: boxed,
			Grad: func(grad, p []float64) {
				fd.Gradient(grad, boxed, p, nil)
			},
		}
		result, err = optimize.Minimize(boxedProblem, x0, settings, &optimize.LBFGS{})
		success = converged(result, err)
		if result == nil {
			return nil, FitStats{Method: MethodSABR}, fmt.Errorf("vol: sabr optimization produced no result: %w", err)
		}
		result.X = clampToBounds(result.X)
	}
	if !success {
		return nil, FitStats{Method: MethodSABR, Beta: beta}, fmt.Errorf("vol: sabr calibration did not converge: %w", err)
	}

	s := &SABR{
		Alpha:      result.X[0],
		Rho:        result.X[1],
		Nu:         result.X[2],
		Beta:       beta,
		Forward:    forward,
		Tau:        tau,
		calibrated: true,
	}
	rmse, mae := fitQuality(s, strikes, ivs)
	stats := FitStats{
		Method:  MethodSABR,
		RMSE:    rmse,
		MAE:     mae,
		Success: true,
		Alpha:   s.Alpha,
		Rho:     s.Rho,
		Nu:      s.Nu,
		Beta:    s.Beta,
	}
	return s, stats, nil
}

// converged is true when the optimizer terminated on its own
// convergence criterion with a sub-penalty objective, not by running
// out of iterations.
func converged(result *optimize.Result, err error) bool {
	return err == nil && result != nil &&
		result.Status != optimize.IterationLimit &&
		result.F < objectivePenalty
}

func clampToBounds(p []float64) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = math.Min(math.Max(p[i], sabrBounds[i][0]), sabrBounds[i][1])
	}
	return out
}

// haganVol is the Hagan et al. (2002) lognormal SABR approximation.
// The general formula is 0/0 at K=F, so the closed-form ATM limit is
// used inside a small band around the forward.
func haganVol(strike, forward, alpha, rho, nu, beta, tau float64) float64 {
	oneMinusBeta := 1 - beta

	if math.Abs(strike-forward) < 1e-6 {
		fPow := math.Pow(forward, oneMinusBeta)
		atm := alpha / fPow
		correction := 1 + (oneMinusBeta*oneMinusBeta/24*alpha*alpha/math.Pow(forward, 2*oneMinusBeta)+
			0.25*rho*beta*nu*alpha/fPow+
			(2-3*rho*rho)/24*nu*nu)*tau
		return atm * correction
	}

	fk := forward * strike
	logFK := math.Log(forward / strike)
	fkPow := math.Pow(fk, oneMinusBeta/2)

	z := (nu / alpha) * fkPow * logFK
	xz := math.Log((math.Sqrt(1-2*rho*z+z*z) + z - rho) / (1 - rho))

	ratio := 1.0
	if math.Abs(xz) >= 1e-10 {
		ratio = z / xz
	}

	denom := fkPow * (1 +
		oneMinusBeta*oneMinusBeta/24*logFK*logFK +
		math.Pow(oneMinusBeta, 4)/1920*math.Pow(logFK, 4))

	correction := 1 + (oneMinusBeta*oneMinusBeta/24*alpha*alpha/math.Pow(fk, oneMinusBeta)+
		0.25*rho*beta*nu*alpha/fkPow+
		(2-3*rho*rho)/24*nu*nu)*tau

	v := alpha / denom * ratio * correction
	if math.IsNaN(v) || math.IsInf(v, 0) {
		// wings can underflow for extreme parameters; degrade to the ATM level
		return alpha / math.Pow(forward, oneMinusBeta)
	}
	return v
}
