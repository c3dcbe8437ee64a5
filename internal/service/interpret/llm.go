package interpret

import (
	"context"
	"fmt"
	"time"

	"OptionLens/internal/domain/models"
	dsvc "OptionLens/internal/domain/service"
	xlogger "OptionLens/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a derivatives analyst interpreting option-implied probability densities for institutional clients. Be specific and quantitative. Reference the actual statistics provided. No generic fluff."

// LLM is an Interpreter backed by an OpenAI-compatible chat API. Any
// failure degrades to the rule-based fallback so a flaky upstream
// never blocks an analysis.
type LLM struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	fallback dsvc.Interpreter
	logger   *xlogger.Logger
}

// NewLLM creates an LLM interpreter. baseURL points at any
// OpenAI-compatible endpoint.
func NewLLM(apiKey, baseURL, model string, timeout time.Duration, logger *xlogger.Logger) dsvc.Interpreter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLM{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		timeout:  timeout,
		fallback: NewRuleBased(),
		logger:   logger,
	}
}

func (l *LLM) Interpret(ctx context.Context, s *models.AnalysisSnapshot) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: 0.7,
		MaxTokens:   500,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(s)},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		if err == nil {
			err = fmt.Errorf("empty completion response")
		}
		l.logger.Warn("llm interpretation failed, using rule-based fallback",
			xlogger.String("ticker", s.Ticker), xlogger.Error(err))
		return l.fallback.Interpret(ctx, s)
	}
	return resp.Choices[0].Message.Content, nil
}

func analysisPrompt(s *models.AnalysisSnapshot) string {
	st := s.Statistics
	historical := ""
	if len(s.Matches) > 0 {
		m := s.Matches[0]
		historical = fmt.Sprintf("\nHistorical Pattern Match:\nThe current density is %.1f%% similar to %s (%s). Consider this precedent.\n",
			m.Similarity*100, m.HistoricalID, m.Description)
	}

	return fmt.Sprintf(`Current Market Context:
- Ticker: %s
- Spot Price: $%.2f
- Analysis Date: %s
- Days to Expiration: %d

Distribution Statistics:
- Expected Price (Mean): $%.2f (%+.2f%% from spot)
- Standard Deviation: $%.2f
- Implied Move: ±%.2f%%
- Implied Volatility: %.2f%%
- Skewness: %.3f (negative = left tail heavy, positive = right tail heavy)
- Excess Kurtosis: %.3f (positive = fat tails, negative = thin tails)

Tail Risk:
- P(Down >5%%): %.2f%%  P(Up >5%%): %.2f%%
- P(Down >10%%): %.2f%%  P(Up >10%%): %.2f%%

Confidence Intervals:
- 68%% CI: $%.2f - $%.2f
- 95%% CI: $%.2f - $%.2f
%s
Provide: 1) Market Sentiment (2-3 sentences), 2) Tail Risk Assessment (2-3 sentences), 3) Trading Implications (2-3 sentences), 4) Key Takeaway (1 sentence).`,
		s.Ticker, s.Spot, s.AsOf.Format("2006-01-02"), s.DaysToExpiry,
		st.Mean, st.RiskNeutralDriftPct, st.Std, st.ImpliedMovePct, st.ImpliedVolatility*100,
		st.Skewness, st.ExcessKurtosis,
		st.ProbDown5Pct*100, st.ProbUp5Pct*100, st.ProbDown10Pct*100, st.ProbUp10Pct*100,
		st.CI68Lower, st.CI68Upper, st.CI95Lower, st.CI95Upper,
		historical)
}
