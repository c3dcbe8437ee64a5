package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/quant/density"
	"OptionLens/internal/quant/num"
	"OptionLens/internal/quant/pattern"
	"OptionLens/internal/service/interpret"
	"OptionLens/internal/service/marketdata"
	"OptionLens/pkg/cache"
	xlogger "OptionLens/pkg/logger"
)

type memArchive struct {
	mu    sync.Mutex
	snaps []*models.AnalysisSnapshot
}

func (a *memArchive) Init(ctx context.Context) error { return nil }

func (a *memArchive) Store(ctx context.Context, s *models.AnalysisSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, s)
	return nil
}

func (a *memArchive) Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]*models.AnalysisSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.AnalysisSnapshot
	for _, s := range a.snaps {
		if s.Ticker == ticker && !s.AsOf.Before(since) {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (a *memArchive) Health(ctx context.Context) error { return nil }
func (a *memArchive) Close() error                     { return nil }

type memPublisher struct {
	mu        sync.Mutex
	published []*models.AnalysisSnapshot
}

func (p *memPublisher) Publish(ctx context.Context, s *models.AnalysisSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, s)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type memMetrics struct {
	mu          sync.Mutex
	extractions int
	fallbacks   int
	errors      int
	lastMove    float64
}

func (m *memMetrics) RecordExtraction(ticker, method string) {
	m.mu.Lock()
	m.extractions++
	m.mu.Unlock()
}
func (m *memMetrics) RecordFallback(ticker string) { m.mu.Lock(); m.fallbacks++; m.mu.Unlock() }
func (m *memMetrics) RecordError(kind string)      { m.mu.Lock(); m.errors++; m.mu.Unlock() }
func (m *memMetrics) RecordLatency(op string, seconds float64) {}
func (m *memMetrics) RecordImpliedMove(ticker string, pct float64) {
	m.mu.Lock()
	m.lastMove = pct
	m.mu.Unlock()
}

type memQueue struct {
	mu    sync.Mutex
	types []string
	msgs  []interface{}
}

func (q *memQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.types = append(q.types, msgType)
	q.msgs = append(q.msgs, payload)
	return nil
}

type fixedRate struct{ rate float64 }

func (r fixedRate) Rate(ctx context.Context, daysToMaturity int) (float64, error) {
	return r.rate, nil
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type analyzerFixture struct {
	analyzer *Analyzer
	archive  *memArchive
	pub      *memPublisher
	metrics  *memMetrics
	queue    *memQueue
}

func newFixture(t *testing.T) *analyzerFixture {
	t.Helper()
	archive := &memArchive{}
	pub := &memPublisher{}
	metrics := &memMetrics{}
	q := &memQueue{}

	a := NewAnalyzer(
		marketdata.NewStub(450),
		fixedRate{rate: 0.05},
		interpret.NewRuleBased(),
		archive,
		pub,
		metrics,
		cache.NewMemoryCache(),
		q,
		testLogger(t),
		density.NewExtractor(),
		pattern.NewMatcher(),
		AnalyzerConfig{Tickers: []string{"SPY", "QQQ"}, MinExpiry: 7, MaxExpiry: 90, HistoryDays: 90, CacheTTL: time.Minute},
	)
	return &analyzerFixture{analyzer: a, archive: archive, pub: pub, metrics: metrics, queue: q}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	f := newFixture(t)

	snap, err := f.analyzer.Analyze(context.Background(), models.AnalyzeRequest{
		Ticker: "SPY", DaysToExpiry: 30, Method: "sabr", Right: "call",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if snap.ID == "" {
		t.Error("snapshot has no id")
	}
	if snap.Spot != 450 {
		t.Errorf("spot = %v, want 450", snap.Spot)
	}
	if snap.RiskFreeRate != 0.05 {
		t.Errorf("rate = %v, want 0.05", snap.RiskFreeRate)
	}
	if snap.DaysToExpiry < 28 || snap.DaysToExpiry > 31 {
		t.Errorf("days to expiry = %d, want about 30", snap.DaysToExpiry)
	}

	n := len(snap.Density.Strikes)
	if n == 0 || len(snap.Density.Density) != n || len(snap.Density.CDF) != n {
		t.Fatalf("density grid sizes inconsistent: %d/%d/%d", n, len(snap.Density.Density), len(snap.Density.CDF))
	}
	integral := num.Trapezoid(snap.Density.Density, snap.Density.Strikes)
	if integral < 0.99 || integral > 1.01 {
		t.Errorf("density integral = %v, want 1", integral)
	}
	if last := snap.Density.CDF[n-1]; last < 0.999 || last > 1.001 {
		t.Errorf("cdf end = %v, want 1", last)
	}
	if snap.Statistics.Mean < 440 || snap.Statistics.Mean > 460 {
		t.Errorf("mean = %v, want near spot 450", snap.Statistics.Mean)
	}
	if snap.Interpretation == "" {
		t.Error("interpretation is empty")
	}

	if f.pub.count() != 1 {
		t.Errorf("published %d snapshots, want 1", f.pub.count())
	}
	if f.metrics.extractions != 1 {
		t.Errorf("extractions recorded = %d, want 1", f.metrics.extractions)
	}
	if f.metrics.lastMove <= 0 {
		t.Errorf("implied move not recorded, got %v", f.metrics.lastMove)
	}

	if len(f.queue.types) != 1 || f.queue.types[0] != EvaluationJobType {
		t.Fatalf("evaluation enqueue types = %v", f.queue.types)
	}
	payload, ok := f.queue.msgs[0].(EvaluationPayload)
	if !ok {
		t.Fatalf("evaluation payload type %T", f.queue.msgs[0])
	}
	if payload.SnapshotID != snap.ID {
		t.Errorf("evaluation snapshot id = %s, want %s", payload.SnapshotID, snap.ID)
	}
}

func TestAnalyzeServesCachedSnapshot(t *testing.T) {
	f := newFixture(t)
	req := models.AnalyzeRequest{Ticker: "SPY", DaysToExpiry: 30, Method: "sabr", Right: "call"}

	first, err := f.analyzer.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	second, err := f.analyzer.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("cached snapshot id %s differs from %s", second.ID, first.ID)
	}
	if f.pub.count() != 1 {
		t.Errorf("published %d snapshots, want 1 (second call cached)", f.pub.count())
	}
}

func TestAnalyzeRejectsUnknownTicker(t *testing.T) {
	f := newFixture(t)
	_, err := f.analyzer.Analyze(context.Background(), models.AnalyzeRequest{
		Ticker: "TSLA", DaysToExpiry: 30, Method: "sabr", Right: "call",
	})
	if err == nil {
		t.Fatal("expected error for ticker outside the allowlist")
	}
}

type fixedExpirations struct {
	dsvcQuoteSourceStub
	days []int
}

type dsvcQuoteSourceStub struct{}

func (dsvcQuoteSourceStub) Spot(ctx context.Context, ticker string) (float64, error) {
	return 450, nil
}

func (dsvcQuoteSourceStub) OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]models.MarketQuote, error) {
	return nil, nil
}

func (s fixedExpirations) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	now := time.Now().UTC()
	out := make([]time.Time, len(s.days))
	for i, d := range s.days {
		out[i] = now.AddDate(0, 0, d)
	}
	return out, nil
}

func TestResolveExpirationWidening(t *testing.T) {
	cases := []struct {
		name    string
		days    []int
		target  int
		wantDTE int
	}{
		{"exact", []int{7, 30, 60}, 30, 30},
		{"within two days", []int{7, 29, 60}, 30, 29},
		{"second tier", []int{7, 40, 90}, 30, 40},
		{"window fallback", []int{40, 90, 200}, 150, 90},
		{"any future", []int{200}, 30, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.analyzer.quotes = fixedExpirations{days: tc.days}
			_, dte, err := f.analyzer.resolveExpiration(context.Background(), "SPY", time.Now().UTC(), tc.target)
			if err != nil {
				t.Fatalf("resolveExpiration: %v", err)
			}
			if dte != tc.wantDTE {
				t.Errorf("dte = %d, want %d", dte, tc.wantDTE)
			}
		})
	}
}

func TestPatternsScanArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.analyzer.Analyze(ctx, models.AnalyzeRequest{
		Ticker: "SPY", DaysToExpiry: 30, Method: "sabr", Right: "call",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// archive a near-identical historical density
	hist := *snap
	hist.ID = "hist-1"
	hist.AsOf = snap.AsOf.AddDate(0, 0, -10)
	if err := f.archive.Store(ctx, &hist); err != nil {
		t.Fatalf("Store: %v", err)
	}

	matches, _, err := f.analyzer.Patterns(ctx, models.PatternsRequest{
		Ticker: "SPY", DaysToExpiry: 30, Threshold: 0.8, Limit: 5,
	})
	if err != nil {
		t.Fatalf("Patterns: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Similarity < 0.95 {
		t.Errorf("similarity = %v, want near 1 for identical density", matches[0].Similarity)
	}
}

func TestProbabilityComplement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	below, _, err := f.analyzer.Probability(ctx, models.ProbabilityRequest{
		Ticker: "SPY", DaysToExpiry: 30, Level: 450, Side: "below",
	})
	if err != nil {
		t.Fatalf("Probability below: %v", err)
	}
	above, _, err := f.analyzer.Probability(ctx, models.ProbabilityRequest{
		Ticker: "SPY", DaysToExpiry: 30, Level: 450, Side: "above",
	})
	if err != nil {
		t.Fatalf("Probability above: %v", err)
	}
	if sum := below + above; sum < 0.999 || sum > 1.001 {
		t.Errorf("below+above = %v, want 1", sum)
	}

	rng, _, err := f.analyzer.ProbabilityRange(ctx, models.ProbabilityRangeRequest{
		Ticker: "SPY", DaysToExpiry: 30, Lower: 420, Upper: 480,
	})
	if err != nil {
		t.Fatalf("ProbabilityRange: %v", err)
	}
	if rng <= 0 || rng > 1 {
		t.Errorf("range probability = %v, want in (0, 1]", rng)
	}
}
