package models

// Requests for the analysis HTTP endpoints. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Ticker       string `query:"ticker" json:"ticker" validate:"required"`
	DaysToExpiry int    `query:"dte" json:"dte" default:"30" validate:"gte=1,lte=365"`
	Method       string `query:"method" json:"method" default:"sabr" validate:"oneof=sabr spline"`
	Right        string `query:"right" json:"right" default:"call" validate:"oneof=call put"`
}

type ProbabilityRequest struct {
	Ticker       string  `query:"ticker" json:"ticker" validate:"required"`
	DaysToExpiry int     `query:"dte" json:"dte" default:"30" validate:"gte=1,lte=365"`
	Level        float64 `query:"level" json:"level" validate:"required,gt=0"`
	Side         string  `query:"side" json:"side" default:"below" validate:"oneof=below above"`
}

type ProbabilityRangeRequest struct {
	Ticker       string  `query:"ticker" json:"ticker" validate:"required"`
	DaysToExpiry int     `query:"dte" json:"dte" default:"30" validate:"gte=1,lte=365"`
	Lower        float64 `query:"lower" json:"lower" validate:"required,gt=0"`
	Upper        float64 `query:"upper" json:"upper" validate:"required,gtfield=Lower"`
}

type RateRequest struct {
	DaysToExpiry int `query:"dte" json:"dte" default:"30" validate:"gte=1,lte=10950"`
}

type PatternsRequest struct {
	Ticker       string  `query:"ticker" json:"ticker" validate:"required"`
	DaysToExpiry int     `query:"dte" json:"dte" default:"30" validate:"gte=1,lte=365"`
	Threshold    float64 `query:"threshold" json:"threshold" default:"0.85" validate:"gte=0,lte=1"`
	Limit        int     `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=50"`
}
