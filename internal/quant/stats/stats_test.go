package stats

import (
	"math"
	"testing"

	"OptionLens/internal/quant/num"
)

// gaussian builds a normalized gaussian density on a strike grid.
func gaussian(lo, hi float64, n int, mu, sigma float64) ([]float64, []float64) {
	strikes := num.Linspace(lo, hi, n)
	pdf := make([]float64, n)
	for i, k := range strikes {
		z := (k - mu) / sigma
		pdf[i] = math.Exp(-0.5*z*z) / (sigma * math.Sqrt(2*math.Pi))
	}
	integral := num.Trapezoid(pdf, strikes)
	for i := range pdf {
		pdf[i] /= integral
	}
	return strikes, pdf
}

func TestSummarizeGaussian(t *testing.T) {
	spot, sigma := 450.0, 15.0
	T := 30.0 / 365.0
	strikes, pdf := gaussian(350, 550, 500, spot, sigma)

	s := Summarize(strikes, pdf, spot, T)

	if math.Abs(s.Mean-spot) > spot*0.01 {
		t.Errorf("mean %v, want within 1%% of %v", s.Mean, spot)
	}
	if math.Abs(s.Std-sigma) > sigma*0.05 {
		t.Errorf("std %v, want within 5%% of %v", s.Std, sigma)
	}
	if math.Abs(s.Skewness) > 0.05 {
		t.Errorf("gaussian skewness should be ~0, got %v", s.Skewness)
	}
	if math.Abs(s.ExcessKurtosis) > 0.1 {
		t.Errorf("gaussian excess kurtosis should be ~0, got %v", s.ExcessKurtosis)
	}
	if math.Abs(s.Median-spot) > 1 {
		t.Errorf("median %v, want ~%v", s.Median, spot)
	}
	if math.Abs(s.Mode-spot) > 1 {
		t.Errorf("mode %v, want ~%v", s.Mode, spot)
	}

	wantMove := sigma / spot * 100
	if math.Abs(s.ImpliedMovePct-wantMove) > 0.2 {
		t.Errorf("implied move %v%%, want ~%v%%", s.ImpliedMovePct, wantMove)
	}
	wantIV := sigma / (spot * math.Sqrt(T))
	if math.Abs(s.ImpliedVolatility-wantIV) > 0.01 {
		t.Errorf("implied vol %v, want ~%v", s.ImpliedVolatility, wantIV)
	}
	if math.Abs(s.RiskNeutralDriftPct) > 0.5 {
		t.Errorf("drift %v%%, want ~0", s.RiskNeutralDriftPct)
	}
}

func TestConfidenceIntervals(t *testing.T) {
	spot, sigma := 450.0, 15.0
	strikes, pdf := gaussian(350, 550, 500, spot, sigma)

	s := Summarize(strikes, pdf, spot, 30.0/365.0)

	// one sigma either side for the 68% band
	if math.Abs(s.CI68Lower-(spot-sigma)) > 1 {
		t.Errorf("CI68 lower %v, want ~%v", s.CI68Lower, spot-sigma)
	}
	if math.Abs(s.CI68Upper-(spot+sigma)) > 1 {
		t.Errorf("CI68 upper %v, want ~%v", s.CI68Upper, spot+sigma)
	}
	// 1.96 sigma for the 95% band
	if math.Abs(s.CI95Lower-(spot-1.96*sigma)) > 1.5 {
		t.Errorf("CI95 lower %v, want ~%v", s.CI95Lower, spot-1.96*sigma)
	}
	if math.Abs(s.CI95Upper-(spot+1.96*sigma)) > 1.5 {
		t.Errorf("CI95 upper %v, want ~%v", s.CI95Upper, spot+1.96*sigma)
	}
	if s.CI95Lower >= s.CI68Lower || s.CI68Upper >= s.CI95Upper {
		t.Error("confidence bands not nested")
	}
}

func TestTailProbabilities(t *testing.T) {
	spot, sigma := 450.0, 15.0
	strikes, pdf := gaussian(350, 550, 500, spot, sigma)

	s := Summarize(strikes, pdf, spot, 30.0/365.0)

	// 5% of spot is 1.5 sigma: each tail holds ~6.7%
	if math.Abs(s.ProbDown5Pct-0.0668) > 0.01 {
		t.Errorf("P(down>5%%) = %v, want ~0.067", s.ProbDown5Pct)
	}
	if math.Abs(s.ProbUp5Pct-0.0668) > 0.01 {
		t.Errorf("P(up>5%%) = %v, want ~0.067", s.ProbUp5Pct)
	}
	// 10% of spot is 3 sigma: ~0.13% per tail
	if s.ProbDown10Pct > 0.01 || s.ProbUp10Pct > 0.01 {
		t.Errorf("3-sigma tails too heavy: down %v up %v", s.ProbDown10Pct, s.ProbUp10Pct)
	}
	if s.ProbDown10Pct >= s.ProbDown5Pct {
		t.Error("wider down move should be less likely")
	}
}

func TestSkewedDensity(t *testing.T) {
	// mix of two gaussians with a heavier right component
	spot := 450.0
	strikes := num.Linspace(350, 600, 500)
	pdf := make([]float64, len(strikes))
	for i, k := range strikes {
		z1 := (k - 445) / 10
		z2 := (k - 480) / 25
		pdf[i] = 0.7*math.Exp(-0.5*z1*z1)/10 + 0.3*math.Exp(-0.5*z2*z2)/25
	}
	integral := num.Trapezoid(pdf, strikes)
	for i := range pdf {
		pdf[i] /= integral
	}

	s := Summarize(strikes, pdf, spot, 30.0/365.0)
	if s.Skewness <= 0 {
		t.Errorf("right-heavy mixture should skew positive, got %v", s.Skewness)
	}
	if s.Mean <= s.Median {
		t.Errorf("positive skew should pull mean %v above median %v", s.Mean, s.Median)
	}
}

func TestZeroWidthDensity(t *testing.T) {
	// all mass in one bucket: std collapses and shape stats stay zero
	strikes := num.Linspace(440, 460, 3)
	pdf := []float64{0, 1, 0}
	integral := num.Trapezoid(pdf, strikes)
	for i := range pdf {
		pdf[i] /= integral
	}

	s := Summarize(strikes, pdf, 450, 30.0/365.0)
	if math.IsNaN(s.Skewness) || math.IsNaN(s.ExcessKurtosis) {
		t.Fatal("shape stats must not be NaN on a spike density")
	}
}
