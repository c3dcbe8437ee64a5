// Package interpret renders analysis snapshots into short narratives.
// The LLM interpreter calls an OpenAI-compatible API; the rule-based
// one is the always-available fallback built from the distribution
// statistics alone.
package interpret

import (
	"context"
	"fmt"
	"math"
	"strings"

	"OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
)

// RuleBased is a deterministic Interpreter over the snapshot
// statistics.
type RuleBased struct{}

// NewRuleBased creates the statistical fallback interpreter.
func NewRuleBased() dsvc.Interpreter {
	return &RuleBased{}
}

func (r *RuleBased) Interpret(ctx context.Context, s *models.AnalysisSnapshot) (string, error) {
	st := s.Statistics
	var lines []string

	lines = append(lines, "**Market Sentiment:**")
	drift := st.RiskNeutralDriftPct
	switch {
	case math.Abs(drift) < 0.5:
		lines = append(lines, fmt.Sprintf("Market is balanced around current levels ($%.2f).", s.Spot))
	case drift > 0:
		lines = append(lines, fmt.Sprintf("Slight bullish bias with mean at $%.2f (+%.1f%%).", st.Mean, drift))
	default:
		lines = append(lines, fmt.Sprintf("Slight bearish bias with mean at $%.2f (%.1f%%).", st.Mean, drift))
	}

	volWord := "moderate"
	if st.ImpliedMovePct > 3 {
		volWord = "elevated"
	}
	lines = append(lines, fmt.Sprintf("Implied move of ±%.2f%% suggests %s volatility expectations.", st.ImpliedMovePct, volWord))

	lines = append(lines, "", "**Tail Risk:**")
	switch {
	case st.Skewness < -0.3:
		lines = append(lines, "Significant negative skew indicates heightened crash risk concerns.")
	case st.Skewness > 0.3:
		lines = append(lines, "Positive skew suggests markets pricing more upside potential.")
	default:
		lines = append(lines, "Relatively symmetric distribution with balanced tail risks.")
	}
	if st.ExcessKurtosis > 0.5 {
		lines = append(lines, fmt.Sprintf("Fat tails (kurtosis=%.2f) indicate higher probability of extreme moves than normal distribution.", st.ExcessKurtosis))
	} else {
		lines = append(lines, "Tail risks appear in line with normal distribution expectations.")
	}

	lines = append(lines, "", "**Key Takeaway:**")
	switch {
	case st.Skewness < -0.3 && st.ExcessKurtosis > 0.5:
		lines = append(lines, "Markets pricing significant downside risk with elevated crash probability.")
	case st.ImpliedMovePct > 4:
		lines = append(lines, "High volatility regime - expect large price swings in either direction.")
	case math.Abs(drift) < 0.5 && math.Abs(st.Skewness) < 0.2:
		lines = append(lines, "Balanced market with no clear directional bias or tail risk premium.")
	default:
		lean := "bullish"
		if drift < 0 {
			lean = "bearish"
		}
		lines = append(lines, fmt.Sprintf("Moderate volatility environment with %s lean.", lean))
	}

	return strings.Join(lines, "\n"), nil
}
