// Package pattern scores how closely a freshly extracted density
// resembles archived ones. Shape is compared by cosine similarity on a
// common strike grid and blended with a statistical feature distance,
// weighted toward shape.
package pattern

import (
	"math"
	"sort"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/quant/num"
)

const (
	// commonGridPoints is the resolution densities are resampled to
	// before the cosine comparison.
	commonGridPoints = 100

	shapeWeight = 0.7
	statsWeight = 0.3
)

// Historical is one archived density with its statistics.
type Historical struct {
	ID      string
	Strikes []float64
	Density []float64
	Stats   models.StatisticsSummary
	Event   string
}

// Matcher ranks archived densities against a current one.
type Matcher struct {
	threshold  float64
	maxMatches int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the minimum combined similarity a match must
// reach to be reported.
func WithThreshold(t float64) Option {
	return func(m *Matcher) { m.threshold = t }
}

// WithMaxMatches caps the number of reported matches.
func WithMaxMatches(n int) Option {
	return func(m *Matcher) { m.maxMatches = n }
}

func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{threshold: 0.85, maxMatches: 5}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindSimilar returns the archived densities whose combined similarity
// to the current one clears the threshold, best first.
func (m *Matcher) FindSimilar(strikes, pdf []float64, stats models.StatisticsSummary, history []Historical) []models.PatternMatch {
	matches := make([]models.PatternMatch, 0, len(history))
	for _, h := range history {
		shape := ShapeSimilarity(strikes, pdf, h.Strikes, h.Density)
		statSim := statsSimilarity(stats, h.Stats)
		combined := shapeWeight*shape + statsWeight*statSim
		if combined < m.threshold {
			continue
		}
		matches = append(matches, models.PatternMatch{
			HistoricalID: h.ID,
			Similarity:   combined,
			ShapeSim:     shape,
			StatsSim:     statSim,
			Description:  Describe(h.Stats, h.Event),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > m.maxMatches {
		matches = matches[:m.maxMatches]
	}
	return matches
}

// ShapeSimilarity resamples both densities onto the overlap of their
// strike ranges, renormalizes, and returns one minus the cosine
// distance, clamped to [0, 1]. Non-overlapping ranges score zero.
func ShapeSimilarity(strikes1, pdf1, strikes2, pdf2 []float64) float64 {
	if len(strikes1) < 2 || len(strikes2) < 2 {
		return 0
	}
	lo := math.Max(strikes1[0], strikes2[0])
	hi := math.Min(strikes1[len(strikes1)-1], strikes2[len(strikes2)-1])
	if hi <= lo {
		return 0
	}

	grid := num.Linspace(lo, hi, commonGridPoints)
	a := renormalize(num.InterpSlice(grid, strikes1, pdf1), grid)
	b := renormalize(num.InterpSlice(grid, strikes2, pdf2), grid)
	if a == nil || b == nil {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, sim))
}

func renormalize(pdf, grid []float64) []float64 {
	integral := num.Trapezoid(pdf, grid)
	if !(integral > 0) {
		return nil
	}
	out := make([]float64, len(pdf))
	for i, v := range pdf {
		out[i] = v / integral
	}
	return out
}

// statsSimilarity compares the shape features that persist across
// spot levels: skewness, excess kurtosis and the implied move. Each
// difference decays exponentially at its own scale.
func statsSimilarity(a, b models.StatisticsSummary) float64 {
	features := []struct {
		x, y, scale float64
	}{
		{a.Skewness, b.Skewness, 1.0},
		{a.ExcessKurtosis, b.ExcessKurtosis, 1.0},
		{a.ImpliedMovePct, b.ImpliedMovePct, 5.0},
	}
	var sum float64
	for _, f := range features {
		sum += math.Exp(-math.Abs(f.x-f.y) / f.scale)
	}
	return sum / float64(len(features))
}

// Describe renders a short trader-readable tag for an archived density.
func Describe(s models.StatisticsSummary, event string) string {
	var tail string
	switch {
	case s.Skewness < -0.3:
		tail = "heavy left tail"
	case s.Skewness > 0.3:
		tail = "heavy right tail"
	default:
		tail = "symmetric"
	}

	var volLevel string
	switch {
	case s.ImpliedMovePct > 4:
		volLevel = "high volatility"
	case s.ImpliedMovePct < 2:
		volLevel = "low volatility"
	default:
		volLevel = "moderate volatility"
	}

	out := tail + ", " + volLevel
	if event != "" {
		out += ", (" + event + ")"
	}
	return out
}
