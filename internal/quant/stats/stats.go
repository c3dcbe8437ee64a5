// Package stats reduces an extracted probability density to the
// summary numbers a trader reads: moments, percentiles, tail
// probabilities and confidence intervals. Everything is a pure
// function of the (strikes, density) pair.
package stats

import (
	"math"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/quant/num"
)

// Summarize computes the full statistics block for a normalized
// density over its strike grid. spot and timeToExpiry give the scale
// for the percentage-move figures.
func Summarize(strikes, pdf []float64, spot, timeToExpiry float64) models.StatisticsSummary {
	mean := moment(strikes, pdf, 0, 1)
	variance := moment(strikes, pdf, mean, 2)
	std := math.Sqrt(variance)

	var skewness, kurtosis float64
	if std > 0 {
		skewness = moment(strikes, pdf, mean, 3) / (std * std * std)
		kurtosis = moment(strikes, pdf, mean, 4)/(variance*variance) - 3
	}

	cdf := normalizedCDF(strikes, pdf)
	maxIdx := 0
	for i, v := range pdf {
		if v > pdf[maxIdx] {
			maxIdx = i
		}
	}

	s := models.StatisticsSummary{
		Mean:           mean,
		Variance:       variance,
		Std:            std,
		Skewness:       skewness,
		ExcessKurtosis: kurtosis,
		Median:         percentile(strikes, cdf, 50),
		Mode:           strikes[maxIdx],

		ImpliedMovePct: std / spot * 100,

		ProbDown5Pct:  tailProbability(strikes, pdf, spot, -5),
		ProbUp5Pct:    tailProbability(strikes, pdf, spot, 5),
		ProbDown10Pct: tailProbability(strikes, pdf, spot, -10),
		ProbUp10Pct:   tailProbability(strikes, pdf, spot, 10),

		RiskNeutralDriftPct: (mean - spot) / spot * 100,

		CI68Lower: percentile(strikes, cdf, 16),
		CI68Upper: percentile(strikes, cdf, 84),
		CI95Lower: percentile(strikes, cdf, 2.5),
		CI95Upper: percentile(strikes, cdf, 97.5),
	}
	if timeToExpiry > 0 {
		s.ImpliedVolatility = std / (spot * math.Sqrt(timeToExpiry))
	}
	return s
}

// moment integrates (K - center)^p f(K) dK.
func moment(strikes, pdf []float64, center float64, p int) float64 {
	integrand := make([]float64, len(strikes))
	for i, k := range strikes {
		d := k - center
		v := pdf[i]
		for j := 0; j < p; j++ {
			v *= d
		}
		integrand[i] = v
	}
	return num.Trapezoid(integrand, strikes)
}

func normalizedCDF(strikes, pdf []float64) []float64 {
	cdf := num.CumTrapezoid(pdf, strikes)
	if last := cdf[len(cdf)-1]; last > 0 {
		for i := range cdf {
			cdf[i] /= last
		}
	}
	return cdf
}

// percentile inverts the CDF at p (0-100) by scanning for the first
// grid point at or above the target mass and interpolating linearly
// inside that segment. Flat CDF segments snap to their left edge.
func percentile(strikes, cdf []float64, p float64) float64 {
	target := p / 100
	n := len(cdf)
	if target <= cdf[0] {
		return strikes[0]
	}
	for i := 1; i < n; i++ {
		if cdf[i] >= target {
			span := cdf[i] - cdf[i-1]
			if span <= 0 {
				return strikes[i-1]
			}
			t := (target - cdf[i-1]) / span
			return strikes[i-1] + t*(strikes[i]-strikes[i-1])
		}
	}
	return strikes[n-1]
}

// tailProbability integrates the density mass beyond a percentage move
// from spot: negative moves integrate the left tail up to the target,
// positive moves the right tail from the target.
func tailProbability(strikes, pdf []float64, spot, percentMove float64) float64 {
	target := spot * (1 + percentMove/100)
	n := len(strikes)

	if percentMove < 0 {
		hi := 0
		for hi < n && strikes[hi] <= target {
			hi++
		}
		if hi < 2 {
			return 0
		}
		return num.Trapezoid(pdf[:hi], strikes[:hi])
	}

	lo := n
	for lo > 0 && strikes[lo-1] >= target {
		lo--
	}
	if lo > n-2 {
		return 0
	}
	return num.Trapezoid(pdf[lo:], strikes[lo:])
}
