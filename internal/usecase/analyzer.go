package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"OptionLens/internal/domain/models"
	drepo "OptionLens/internal/domain/repository"
	dsvc "OptionLens/internal/domain/service"
	"OptionLens/internal/quant/density"
	"OptionLens/internal/quant/num"
	"OptionLens/internal/quant/pattern"
	"OptionLens/internal/quant/stats"
	"OptionLens/internal/quant/vol"
	"OptionLens/pkg/cache"
	xlogger "OptionLens/pkg/logger"
	"OptionLens/pkg/queue"
	"OptionLens/pkg/util"
)

// EvaluationJobType tags queued prediction-evaluation payloads. An
// external worker scores realized outcomes against these after expiry.
const EvaluationJobType = "evaluate_prediction"

// EvaluationPayload is what the scoring worker needs to grade one
// analysis once the expiration has passed.
type EvaluationPayload struct {
	SnapshotID string    `json:"snapshot_id"`
	Ticker     string    `json:"ticker"`
	AsOf       time.Time `json:"as_of"`
	Expiration time.Time `json:"expiration"`
	Spot       float64   `json:"spot"`
	Mean       float64   `json:"mean"`
	CI68Lower  float64   `json:"ci_68_lower"`
	CI68Upper  float64   `json:"ci_68_upper"`
	CI95Lower  float64   `json:"ci_95_lower"`
	CI95Upper  float64   `json:"ci_95_upper"`
}

// historyFetchLimit caps how many archived snapshots one pattern scan
// pulls from ClickHouse.
const historyFetchLimit = 250

// AnalyzerConfig carries the orchestration knobs that do not belong to
// the extraction pipeline itself.
type AnalyzerConfig struct {
	Tickers     []string
	MinExpiry   int // days
	MaxExpiry   int // days
	HistoryDays int
	CacheTTL    time.Duration
}

// Analyzer runs the full analysis flow: resolve an expiration, pull the
// chain and the risk-free rate, extract the density, derive statistics,
// scan the archive for similar shapes, interpret, publish.
type Analyzer struct {
	quotes  dsvc.QuoteSource
	rates   dsvc.RateSource
	interp  dsvc.Interpreter
	archive drepo.Archive
	pub     drepo.Publisher
	metrics drepo.Metrics
	cache   cache.Service
	evals   queue.QueueService // nil disables evaluation enqueue
	logger  *xlogger.Logger

	extractor *density.Extractor
	matcher   *pattern.Matcher

	allowed     map[string]struct{}
	tickers     []string
	minExpiry   int
	maxExpiry   int
	historyDays int
	cacheTTL    time.Duration
}

func NewAnalyzer(
	quotes dsvc.QuoteSource,
	rates dsvc.RateSource,
	interp dsvc.Interpreter,
	archive drepo.Archive,
	pub drepo.Publisher,
	metrics drepo.Metrics,
	c cache.Service,
	evals queue.QueueService,
	logger *xlogger.Logger,
	extractor *density.Extractor,
	matcher *pattern.Matcher,
	cfg AnalyzerConfig,
) *Analyzer {
	allowed := make(map[string]struct{}, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		allowed[t] = struct{}{}
	}
	if cfg.MinExpiry <= 0 {
		cfg.MinExpiry = 7
	}
	if cfg.MaxExpiry <= 0 {
		cfg.MaxExpiry = 90
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &Analyzer{
		quotes:      quotes,
		rates:       rates,
		interp:      interp,
		archive:     archive,
		pub:         pub,
		metrics:     metrics,
		cache:       c,
		evals:       evals,
		logger:      logger,
		extractor:   extractor,
		matcher:     matcher,
		allowed:     allowed,
		tickers:     cfg.Tickers,
		minExpiry:   cfg.MinExpiry,
		maxExpiry:   cfg.MaxExpiry,
		historyDays: cfg.HistoryDays,
		cacheTTL:    cfg.CacheTTL,
	}
}

// Tickers returns the configured underlyings.
func (a *Analyzer) Tickers() []string { return a.tickers }

// Health pings the archive.
func (a *Analyzer) Health(ctx context.Context) error {
	return a.archive.Health(ctx)
}

// Analyze runs one full analysis and returns the snapshot. Results are
// cached per (ticker, dte, method, right) so dashboard refreshes do not
// re-hit the market data provider.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisSnapshot, error) {
	if len(a.allowed) > 0 {
		if _, ok := a.allowed[req.Ticker]; !ok {
			return nil, fmt.Errorf("ticker %q is not enabled", req.Ticker)
		}
	}

	key := cache.GenerateKeyWithParams("analysis", req.Ticker, req.DaysToExpiry, req.Method, req.Right)
	var cached models.AnalysisSnapshot
	if err := a.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	start := time.Now()
	snap, err := a.analyze(ctx, req)
	if err != nil {
		a.metrics.RecordError("analyze")
		return nil, err
	}
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())

	if err := a.pub.Publish(ctx, snap); err != nil {
		a.logger.Warn("snapshot publish failed",
			xlogger.String("ticker", snap.Ticker), xlogger.Error(err))
	}
	if err := a.cache.Set(ctx, key, snap, a.cacheTTL); err != nil {
		a.logger.Warn("snapshot cache write failed", xlogger.Error(err))
	}
	a.enqueueEvaluation(ctx, snap)
	return snap, nil
}

// enqueueEvaluation queues the prediction for post-expiry scoring by
// the external evaluation worker.
func (a *Analyzer) enqueueEvaluation(ctx context.Context, snap *models.AnalysisSnapshot) {
	if a.evals == nil {
		return
	}
	err := a.evals.PublishMessage(ctx, EvaluationJobType, EvaluationPayload{
		SnapshotID: snap.ID,
		Ticker:     snap.Ticker,
		AsOf:       snap.AsOf,
		Expiration: snap.Expiration,
		Spot:       snap.Spot,
		Mean:       snap.Statistics.Mean,
		CI68Lower:  snap.Statistics.CI68Lower,
		CI68Upper:  snap.Statistics.CI68Upper,
		CI95Lower:  snap.Statistics.CI95Lower,
		CI95Upper:  snap.Statistics.CI95Upper,
	})
	if err != nil {
		a.logger.Warn("evaluation enqueue failed",
			xlogger.String("ticker", snap.Ticker), xlogger.Error(err))
	}
}

func (a *Analyzer) analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisSnapshot, error) {
	spot, err := a.quotes.Spot(ctx, req.Ticker)
	if err != nil {
		return nil, fmt.Errorf("spot %s: %w", req.Ticker, err)
	}

	asOf := time.Now().UTC()
	expiration, dte, err := a.resolveExpiration(ctx, req.Ticker, asOf, req.DaysToExpiry)
	if err != nil {
		return nil, err
	}

	chain, err := a.quotes.OptionChain(ctx, req.Ticker, expiration)
	if err != nil {
		return nil, fmt.Errorf("chain %s %s: %w", req.Ticker, expiration.Format("2006-01-02"), err)
	}

	right := models.OptionRight(req.Right)
	if right == "" {
		right = models.Call
	}
	quotes := make([]models.MarketQuote, 0, len(chain))
	for _, q := range chain {
		if q.Right == right {
			quotes = append(quotes, q)
		}
	}

	rate, err := a.rates.Rate(ctx, dte)
	if err != nil {
		return nil, fmt.Errorf("risk-free rate: %w", err)
	}

	mkt := models.MarketContext{
		Spot:         spot,
		RiskFreeRate: rate,
		TimeToExpiry: float64(dte) / 365.0,
	}

	res, err := a.extractor.Extract(quotes, mkt, right, vol.Method(req.Method))
	if err != nil {
		return nil, err
	}
	a.metrics.RecordExtraction(req.Ticker, string(res.Fit.Method))
	if req.Method == string(vol.MethodSABR) && res.Fit.Method == vol.MethodSpline {
		a.metrics.RecordFallback(req.Ticker)
	}

	summary := stats.Summarize(res.Strikes, res.Density, spot, mkt.TimeToExpiry)
	a.metrics.RecordImpliedMove(req.Ticker, summary.ImpliedMovePct)

	snap := &models.AnalysisSnapshot{
		ID:           uuid.NewString(),
		Ticker:       req.Ticker,
		AsOf:         asOf,
		Expiration:   expiration,
		DaysToExpiry: dte,
		Spot:         spot,
		RiskFreeRate: rate,
		Method:       string(res.Fit.Method),
		Density: models.ProbabilityDensity{
			Strikes: res.Strikes,
			Density: res.Density,
			CDF:     res.CDF,
		},
		Statistics: summary,
	}

	snap.Matches = a.findPatterns(ctx, snap, a.matcher)

	if text, err := a.interp.Interpret(ctx, snap); err == nil {
		snap.Interpretation = text
	} else {
		a.logger.Warn("interpretation failed",
			xlogger.String("ticker", req.Ticker), xlogger.Error(err))
	}

	return snap, nil
}

// resolveExpiration picks the listed expiration nearest the requested
// days-to-expiry, widening the acceptance band in stages: within two
// days of the target, within fifteen, then anything in the configured
// window, and finally any future expiration so thin chains still
// analyze.
func (a *Analyzer) resolveExpiration(ctx context.Context, ticker string, asOf time.Time, targetDTE int) (time.Time, int, error) {
	expirations, err := a.quotes.Expirations(ctx, ticker)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("expirations %s: %w", ticker, err)
	}

	type candidate struct {
		exp time.Time
		dte int
	}
	var future []candidate
	for _, exp := range expirations {
		dte := util.DaysBetween(asOf, exp)
		if dte < 1 {
			continue
		}
		future = append(future, candidate{exp, dte})
	}
	if len(future) == 0 {
		return time.Time{}, 0, fmt.Errorf("no future expirations for %s", ticker)
	}

	tiers := []func(c candidate) bool{
		func(c candidate) bool { return abs(c.dte-targetDTE) <= 2 },
		func(c candidate) bool { return abs(c.dte-targetDTE) <= 15 },
		func(c candidate) bool { return c.dte >= a.minExpiry && c.dte <= a.maxExpiry },
		func(c candidate) bool { return true },
	}
	for _, accept := range tiers {
		var best *candidate
		for i := range future {
			c := future[i]
			if !accept(c) {
				continue
			}
			if best == nil || abs(c.dte-targetDTE) < abs(best.dte-targetDTE) {
				best = &future[i]
			}
		}
		if best != nil {
			return best.exp, best.dte, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("no usable expiration for %s", ticker)
}

// findPatterns scans the archive for densities similar to the current
// one. Archive trouble degrades to no matches rather than failing the
// analysis.
func (a *Analyzer) findPatterns(ctx context.Context, snap *models.AnalysisSnapshot, m *pattern.Matcher) []models.PatternMatch {
	since := snap.AsOf.AddDate(0, 0, -a.historyDays)
	history, err := a.archive.Recent(ctx, snap.Ticker, since, historyFetchLimit)
	if err != nil {
		a.logger.Warn("pattern history fetch failed",
			xlogger.String("ticker", snap.Ticker), xlogger.Error(err))
		return nil
	}

	corpus := make([]pattern.Historical, 0, len(history))
	for _, h := range history {
		if h.ID == snap.ID || len(h.Density.Strikes) == 0 {
			continue
		}
		corpus = append(corpus, pattern.Historical{
			ID:      fmt.Sprintf("%s %s", h.Ticker, h.AsOf.Format("2006-01-02")),
			Strikes: h.Density.Strikes,
			Density: h.Density.Density,
			Stats:   h.Statistics,
		})
	}
	if len(corpus) == 0 {
		return nil
	}
	return m.FindSimilar(snap.Density.Strikes, snap.Density.Density, snap.Statistics, corpus)
}

// Probability answers P(S_T < level) or P(S_T > level) from a fresh or
// cached analysis.
func (a *Analyzer) Probability(ctx context.Context, req models.ProbabilityRequest) (float64, *models.AnalysisSnapshot, error) {
	snap, err := a.Analyze(ctx, models.AnalyzeRequest{
		Ticker:       req.Ticker,
		DaysToExpiry: req.DaysToExpiry,
		Method:       string(vol.MethodSABR),
		Right:        string(models.Call),
	})
	if err != nil {
		return 0, nil, err
	}
	below := cdfAt(snap, req.Level)
	if req.Side == "above" {
		return 1 - below, snap, nil
	}
	return below, snap, nil
}

// ProbabilityRange answers P(lower < S_T < upper).
func (a *Analyzer) ProbabilityRange(ctx context.Context, req models.ProbabilityRangeRequest) (float64, *models.AnalysisSnapshot, error) {
	if req.Upper < req.Lower {
		return 0, nil, fmt.Errorf("range upper %g below lower %g", req.Upper, req.Lower)
	}
	snap, err := a.Analyze(ctx, models.AnalyzeRequest{
		Ticker:       req.Ticker,
		DaysToExpiry: req.DaysToExpiry,
		Method:       string(vol.MethodSABR),
		Right:        string(models.Call),
	})
	if err != nil {
		return 0, nil, err
	}
	p := cdfAt(snap, req.Upper) - cdfAt(snap, req.Lower)
	if p < 0 {
		p = 0
	}
	return p, snap, nil
}

// Patterns reruns the archive scan with caller-supplied threshold and
// limit instead of the configured defaults.
func (a *Analyzer) Patterns(ctx context.Context, req models.PatternsRequest) ([]models.PatternMatch, *models.AnalysisSnapshot, error) {
	snap, err := a.Analyze(ctx, models.AnalyzeRequest{
		Ticker:       req.Ticker,
		DaysToExpiry: req.DaysToExpiry,
		Method:       string(vol.MethodSABR),
		Right:        string(models.Call),
	})
	if err != nil {
		return nil, nil, err
	}
	m := pattern.NewMatcher(pattern.WithThreshold(req.Threshold), pattern.WithMaxMatches(req.Limit))
	return a.findPatterns(ctx, snap, m), snap, nil
}

func cdfAt(snap *models.AnalysisSnapshot, level float64) float64 {
	return num.Interp(level, snap.Density.Strikes, snap.Density.CDF)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
