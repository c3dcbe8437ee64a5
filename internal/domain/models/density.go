package models

// ProbabilityDensity is the principal output of the extraction
// pipeline: a strictly increasing strike grid, a non-negative density
// that integrates to one over it, and the derived CDF.
type ProbabilityDensity struct {
	Strikes []float64 `json:"strikes"`
	Density []float64 `json:"density"`
	CDF     []float64 `json:"cdf"`
}

// StatisticsSummary holds the named scalar metrics derived from one
// ProbabilityDensity and its MarketContext. Recomputed fresh on every
// request, never mutated in place.
type StatisticsSummary struct {
	Mean                float64 `json:"mean"`
	Variance            float64 `json:"variance"`
	Std                 float64 `json:"std"`
	Skewness            float64 `json:"skewness"`
	ExcessKurtosis      float64 `json:"excess_kurtosis"`
	Median              float64 `json:"median"`
	Mode                float64 `json:"mode"`
	ImpliedMovePct      float64 `json:"implied_move_pct"`
	ImpliedVolatility   float64 `json:"implied_volatility"` // annualized
	ProbDown5Pct        float64 `json:"prob_down_5pct"`
	ProbUp5Pct          float64 `json:"prob_up_5pct"`
	ProbDown10Pct       float64 `json:"prob_down_10pct"`
	ProbUp10Pct         float64 `json:"prob_up_10pct"`
	RiskNeutralDriftPct float64 `json:"risk_neutral_drift_pct"`
	CI68Lower           float64 `json:"ci_68_lower"`
	CI68Upper           float64 `json:"ci_68_upper"`
	CI95Lower           float64 `json:"ci_95_lower"`
	CI95Upper           float64 `json:"ci_95_upper"`
}

// PatternMatch is one scored comparison of the current density against
// a historical one. Read-only result, not persisted by the core.
type PatternMatch struct {
	HistoricalID string  `json:"historical_id"`
	Similarity   float64 `json:"similarity"`
	ShapeSim     float64 `json:"shape_similarity"`
	StatsSim     float64 `json:"stats_similarity"`
	Description  string  `json:"description"`
}
