package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	drepo "OptionLens/internal/domain/repository"
	dsvc "OptionLens/internal/domain/service"
	"OptionLens/internal/handler/api"
	"OptionLens/internal/handler/ws"
	"OptionLens/internal/quant/density"
	"OptionLens/internal/quant/pattern"
	"OptionLens/internal/quant/vol"
	internalrepo "OptionLens/internal/repository"
	"OptionLens/internal/service/interpret"
	"OptionLens/internal/service/marketdata"
	"OptionLens/internal/service/rates"
	"OptionLens/internal/usecase"
	"OptionLens/pkg/cache"
	pkgch "OptionLens/pkg/clickhouse"
	"OptionLens/pkg/config"
	pkgkafka "OptionLens/pkg/kafka"
	"OptionLens/pkg/logger"
	"OptionLens/pkg/metrics"
	"OptionLens/pkg/queue"
	"OptionLens/pkg/server"
)

// snapshotsTable is the archive table, qualified at provider level so
// the repository stays schema-agnostic.
const snapshotsTable = "analysis_snapshots"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lcfg := &logger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment != "production" {
		lcfg.Level = "debug"
		lcfg.Format = "console"
	}
	return logger.New(lcfg)
}

// ProvideCache creates the shared cache: layered over Redis when
// enabled, in-process memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("optionlens"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideEvalQueue creates the redis-backed prediction-evaluation
// queue. Disabled Redis means no evaluation tracking; the analyzer
// treats a nil queue as a no-op.
func ProvideEvalQueue(cfg *config.Config, lgr *logger.Logger) queue.QueueService {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return queue.NewRedisPublisher(lgr, client, queue.WithKeyPrefix("optionlens:evaluations"))
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// snapshot archive schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			id String,
			ticker LowCardinality(String),
			as_of DateTime64(3, 'UTC'),
			expiration DateTime64(3, 'UTC'),
			days_to_expiry Int32,
			spot Float64,
			risk_free_rate Float64,
			method LowCardinality(String),
			skewness Float64,
			excess_kurtosis Float64,
			implied_move_pct Float64,
			payload String
		) ENGINE = MergeTree ORDER BY (ticker, as_of)`, db, snapshotsTable),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideArchive creates the ClickHouse snapshot archive.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) drepo.Archive {
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+"."+snapshotsTable)
}

// ProvidePublisher creates the Kafka snapshot publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideQuoteSource builds the market data chain: configured primary
// first, deterministic stub last, the whole chain behind the cache.
func ProvideQuoteSource(cfg *config.Config, c cache.Service, lgr *logger.Logger) dsvc.QuoteSource {
	var primary dsvc.QuoteSource
	switch cfg.MarketData.Provider {
	case "stub":
		primary = marketdata.NewStub(0)
	default:
		primary = marketdata.NewYahooClient(cfg.MarketData.BaseURL, cfg.MarketData.Timeout, cfg.Quant.MinIV, cfg.Quant.MaxIV)
	}
	chain := marketdata.NewChain(lgr, primary, marketdata.NewStub(0))
	return marketdata.NewCached(chain, c, cfg.MarketData.CacheTTL)
}

// ProvideRateSource creates the FRED rate source.
func ProvideRateSource(cfg *config.Config, c cache.Service, lgr *logger.Logger) dsvc.RateSource {
	return rates.NewFREDClient(
		cfg.Rates.APIKey,
		cfg.Rates.BaseURL,
		cfg.Rates.DefaultRate,
		cfg.Rates.CacheTTL,
		c,
		lgr,
	)
}

// ProvideInterpreter selects the narrative backend. Without an API key
// the LLM provider cannot work, so the rule-based one takes over.
func ProvideInterpreter(cfg *config.Config, lgr *logger.Logger) dsvc.Interpreter {
	if cfg.Interpreter.Provider == "llm" && cfg.Interpreter.APIKey != "" {
		return interpret.NewLLM(
			cfg.Interpreter.APIKey,
			cfg.Interpreter.BaseURL,
			cfg.Interpreter.Model,
			cfg.Interpreter.Timeout,
			lgr,
		)
	}
	return interpret.NewRuleBased()
}

// ProvideExtractor creates the density extraction pipeline.
func ProvideExtractor(cfg *config.Config) *density.Extractor {
	return density.NewExtractor(density.WithConfig(density.Config{
		GridPoints:   cfg.Quant.GridPoints,
		MinQuotes:    cfg.Quant.MinQuotes,
		MinStrikePct: cfg.Quant.MinStrikePct,
		MaxStrikePct: cfg.Quant.MaxStrikePct,
		SmoothWindow: cfg.Quant.SmoothWindow,
		Vol:          vol.Config{Beta: cfg.Quant.SABRBeta},
	}))
}

// ProvideMatcher creates the pattern matcher.
func ProvideMatcher(cfg *config.Config) *pattern.Matcher {
	return pattern.NewMatcher(
		pattern.WithThreshold(cfg.Quant.PatternMinSim),
		pattern.WithMaxMatches(cfg.Quant.PatternMatches),
	)
}

// ProvideAnalyzer creates the analysis orchestrator.
func ProvideAnalyzer(
	quotes dsvc.QuoteSource,
	rateSource dsvc.RateSource,
	interp dsvc.Interpreter,
	archive drepo.Archive,
	pub drepo.Publisher,
	m drepo.Metrics,
	c cache.Service,
	evals queue.QueueService,
	lgr *logger.Logger,
	extractor *density.Extractor,
	matcher *pattern.Matcher,
	cfg *config.Config,
) *usecase.Analyzer {
	return usecase.NewAnalyzer(quotes, rateSource, interp, archive, pub, m, c, evals, lgr, extractor, matcher,
		usecase.AnalyzerConfig{
			Tickers:     cfg.MarketData.Tickers,
			MinExpiry:   cfg.MarketData.MinExpiry,
			MaxExpiry:   cfg.MarketData.MaxExpiry,
			HistoryDays: cfg.Quant.HistoryDays,
			CacheTTL:    cfg.MarketData.AnalysisTTL,
		})
}

// ProvideHub creates the websocket broadcast hub.
func ProvideHub(lgr *logger.Logger) *ws.Hub {
	return ws.NewHub(lgr)
}

// ProvideSnapshotArchiver registers the handler for the snapshot topic.
func ProvideSnapshotArchiver(cfg *config.Config, archive drepo.Archive, m drepo.Metrics, hub *ws.Hub) *usecase.SnapshotArchiver {
	return usecase.NewSnapshotArchiver(cfg.Kafka.Topic, archive, m, hub)
}

// ProvideAnalysisHandler creates the HTTP handler.
func ProvideAnalysisHandler(lgr *logger.Logger, analyzer *usecase.Analyzer, rateSource dsvc.RateSource) *api.AnalysisEchoHandler {
	return api.NewAnalysisEchoHandler(lgr, analyzer, rateSource)
}

// ProvideApp assembles the application server. When a logs topic is
// configured, repeated error logs are aggregated and shipped to Kafka.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	handler *api.AnalysisEchoHandler,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	archiver *usecase.SnapshotArchiver,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	pub drepo.Publisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if cfg.Kafka.LogsTopic != "" {
		lgr.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      internalrepo.NewLogSink(producer),
		})
	}
	return server.New(cfg, lgr, handler, hub, consumer, archiver, chClient, pub)
}
