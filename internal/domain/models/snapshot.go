package models

import "time"

// AnalysisSnapshot is the complete result of one analysis run. It is
// what gets published to Kafka, archived in ClickHouse, broadcast to
// dashboard clients and returned from the API.
type AnalysisSnapshot struct {
	ID             string             `json:"id"`
	Ticker         string             `json:"ticker"`
	AsOf           time.Time          `json:"as_of"`
	Expiration     time.Time          `json:"expiration"`
	DaysToExpiry   int                `json:"days_to_expiry"`
	Spot           float64            `json:"spot"`
	RiskFreeRate   float64            `json:"risk_free_rate"`
	Method         string             `json:"method"` // sabr or spline
	Density        ProbabilityDensity `json:"density"`
	Statistics     StatisticsSummary  `json:"statistics"`
	Matches        []PatternMatch     `json:"matches,omitempty"`
	Interpretation string             `json:"interpretation,omitempty"`
}
