package pattern

import (
	"math"
	"strings"
	"testing"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/quant/num"
)

func gaussianDensity(lo, hi float64, n int, mu, sigma float64) ([]float64, []float64) {
	strikes := num.Linspace(lo, hi, n)
	pdf := make([]float64, n)
	for i, k := range strikes {
		z := (k - mu) / sigma
		pdf[i] = math.Exp(-0.5*z*z) / (sigma * math.Sqrt(2*math.Pi))
	}
	return strikes, pdf
}

func TestShapeSimilarityIdentical(t *testing.T) {
	strikes, pdf := gaussianDensity(400, 500, 100, 450, 15)
	sim := ShapeSimilarity(strikes, pdf, strikes, pdf)
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("self similarity %v, want 1", sim)
	}
}

func TestShapeSimilarityOrdersByCloseness(t *testing.T) {
	strikes, current := gaussianDensity(400, 500, 100, 450, 15)
	_, close := gaussianDensity(400, 500, 100, 451, 14.5)
	_, far := gaussianDensity(400, 500, 100, 455, 25)

	simClose := ShapeSimilarity(strikes, current, strikes, close)
	simFar := ShapeSimilarity(strikes, current, strikes, far)
	if simClose <= simFar {
		t.Fatalf("close match %v should beat far match %v", simClose, simFar)
	}
	if simClose < 0.95 {
		t.Errorf("near-identical gaussians should score high, got %v", simClose)
	}
}

func TestShapeSimilarityDisjointRanges(t *testing.T) {
	s1, p1 := gaussianDensity(400, 450, 50, 425, 10)
	s2, p2 := gaussianDensity(500, 550, 50, 525, 10)
	if sim := ShapeSimilarity(s1, p1, s2, p2); sim != 0 {
		t.Fatalf("disjoint ranges should score 0, got %v", sim)
	}
}

func TestFindSimilarRanksAndFilters(t *testing.T) {
	strikes, current := gaussianDensity(400, 500, 100, 450, 15)
	currentStats := models.StatisticsSummary{
		Skewness: -0.15, ExcessKurtosis: 0.5, ImpliedMovePct: 3.38,
	}

	_, closePDF := gaussianDensity(400, 500, 100, 451, 14.5)
	_, farPDF := gaussianDensity(400, 500, 100, 455, 25)
	history := []Historical{
		{
			ID: "2023-08-20", Strikes: strikes, Density: farPDF,
			Stats: models.StatisticsSummary{Skewness: 0.25, ExcessKurtosis: 1.2, ImpliedMovePct: 6.5},
		},
		{
			ID: "2023-10-15", Strikes: strikes, Density: closePDF,
			Stats: models.StatisticsSummary{Skewness: -0.14, ExcessKurtosis: 0.48, ImpliedMovePct: 3.25},
			Event: "pre-earnings",
		},
	}

	matches := NewMatcher(WithThreshold(0.70), WithMaxMatches(3)).
		FindSimilar(strikes, current, currentStats, history)

	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].HistoricalID != "2023-10-15" {
		t.Fatalf("best match %q, want the near-identical density", matches[0].HistoricalID)
	}
	if matches[0].Similarity < 0.85 {
		t.Errorf("best match similarity %v, want > 0.85", matches[0].Similarity)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Fatal("matches not sorted by similarity")
		}
	}
	if !strings.Contains(matches[0].Description, "pre-earnings") {
		t.Errorf("description %q should carry the event tag", matches[0].Description)
	}
}

func TestFindSimilarThresholdExcludes(t *testing.T) {
	strikes, current := gaussianDensity(400, 500, 100, 450, 15)
	_, farPDF := gaussianDensity(400, 500, 100, 470, 40)
	history := []Historical{{
		ID: "far", Strikes: strikes, Density: farPDF,
		Stats: models.StatisticsSummary{Skewness: 1.5, ExcessKurtosis: 4, ImpliedMovePct: 12},
	}}

	matches := NewMatcher(WithThreshold(0.95)).
		FindSimilar(strikes, current, models.StatisticsSummary{}, history)
	if len(matches) != 0 {
		t.Fatalf("expected no matches above 0.95, got %d", len(matches))
	}
}

func TestFindSimilarCapsMatches(t *testing.T) {
	strikes, current := gaussianDensity(400, 500, 100, 450, 15)
	stats := models.StatisticsSummary{ImpliedMovePct: 3.3}
	history := make([]Historical, 8)
	for i := range history {
		history[i] = Historical{ID: string(rune('a' + i)), Strikes: strikes, Density: current, Stats: stats}
	}

	matches := NewMatcher(WithMaxMatches(5)).FindSimilar(strikes, current, stats, history)
	if len(matches) != 5 {
		t.Fatalf("expected cap at 5 matches, got %d", len(matches))
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		name  string
		stats models.StatisticsSummary
		want  string
	}{
		{"left tail high vol", models.StatisticsSummary{Skewness: -0.5, ImpliedMovePct: 5}, "heavy left tail, high volatility"},
		{"right tail low vol", models.StatisticsSummary{Skewness: 0.5, ImpliedMovePct: 1}, "heavy right tail, low volatility"},
		{"symmetric moderate", models.StatisticsSummary{Skewness: 0.1, ImpliedMovePct: 3}, "symmetric, moderate volatility"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Describe(tc.stats, ""); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
	withEvent := Describe(models.StatisticsSummary{Skewness: 0, ImpliedMovePct: 3}, "FOMC")
	if withEvent != "symmetric, moderate volatility, (FOMC)" {
		t.Fatalf("unexpected description with event: %q", withEvent)
	}
}
