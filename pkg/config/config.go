package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"OptionLens/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	MarketData struct {
		Provider    string        `yaml:"provider"` // "yahoo" or "stub"
		BaseURL     string        `yaml:"base_url"`
		Timeout     time.Duration `yaml:"timeout"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`          // quote and chain cache
		AnalysisTTL time.Duration `yaml:"analysis_cache_ttl"` // completed snapshot cache
		Tickers     []string      `yaml:"tickers"`            // allowed underlyings
		MinExpiry   int           `yaml:"min_expiry_days"`
		MaxExpiry   int           `yaml:"max_expiry_days"`
	} `yaml:"marketdata"`
	Rates struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
		DefaultRate float64       `yaml:"default_rate"`
	} `yaml:"rates"`
	Quant struct {
		GridPoints     int     `yaml:"grid_points"`
		MinQuotes      int     `yaml:"min_quotes"`
		MinStrikePct   float64 `yaml:"min_strike_pct"`
		MaxStrikePct   float64 `yaml:"max_strike_pct"`
		MinIV          float64 `yaml:"min_iv"` // quotes outside [MinIV, MaxIV] are stale noise
		MaxIV          float64 `yaml:"max_iv"`
		SABRBeta       float64 `yaml:"sabr_beta"`
		SmoothWindow   int     `yaml:"smooth_window"`
		PatternMinSim  float64 `yaml:"pattern_min_similarity"`
		PatternMatches int     `yaml:"pattern_max_matches"`
		HistoryDays    int     `yaml:"history_days"`
	} `yaml:"quant"`
	Interpreter struct {
		Provider string        `yaml:"provider"` // "llm" or "rules"
		APIKey   string        `yaml:"api_key"`
		BaseURL  string        `yaml:"base_url"`
		Model    string        `yaml:"model"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"interpreter"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogsTopic    string   `yaml:"logs_topic"` // aggregated error logs; empty disables
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Rates.APIKey = v
	}
	if v := os.Getenv("INTERPRETER_API_KEY"); v != "" {
		c.Interpreter.APIKey = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.MarketData.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	return c, nil
}

// applyDefaults fills the numeric knobs that have sensible standard
// values so a minimal YAML still yields a working pipeline.
func (c *Config) applyDefaults() {
	if c.Quant.GridPoints == 0 {
		c.Quant.GridPoints = 500
	}
	if c.Quant.MinQuotes == 0 {
		c.Quant.MinQuotes = 10
	}
	if c.Quant.MinStrikePct == 0 {
		c.Quant.MinStrikePct = 0.80
	}
	if c.Quant.MaxStrikePct == 0 {
		c.Quant.MaxStrikePct = 1.20
	}
	if c.Quant.MinIV == 0 {
		c.Quant.MinIV = 0.05
	}
	if c.Quant.MaxIV == 0 {
		c.Quant.MaxIV = 2.0
	}
	if c.Quant.SABRBeta == 0 {
		c.Quant.SABRBeta = 0.5
	}
	if c.Quant.SmoothWindow == 0 {
		c.Quant.SmoothWindow = 51
	}
	if c.Quant.PatternMinSim == 0 {
		c.Quant.PatternMinSim = 0.85
	}
	if c.Quant.PatternMatches == 0 {
		c.Quant.PatternMatches = 5
	}
	if c.Quant.HistoryDays == 0 {
		c.Quant.HistoryDays = 90
	}
	if c.Rates.DefaultRate == 0 {
		c.Rates.DefaultRate = 0.05
	}
	if c.MarketData.AnalysisTTL == 0 {
		c.MarketData.AnalysisTTL = 15 * time.Minute
	}
	if c.MarketData.MinExpiry == 0 {
		c.MarketData.MinExpiry = 7
	}
	if c.MarketData.MaxExpiry == 0 {
		c.MarketData.MaxExpiry = 90
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.MarketData.Provider == "" {
		return fmt.Errorf("marketdata.provider is required")
	}
	if c.MarketData.Provider != "yahoo" && c.MarketData.Provider != "stub" {
		return fmt.Errorf("marketdata.provider must be 'yahoo' or 'stub', got '%s'", c.MarketData.Provider)
	}
	if len(c.MarketData.Tickers) == 0 {
		return fmt.Errorf("marketdata.tickers cannot be empty")
	}
	if c.Quant.MinStrikePct >= c.Quant.MaxStrikePct {
		return fmt.Errorf("quant.min_strike_pct must be below quant.max_strike_pct")
	}
	if c.MarketData.MinExpiry >= c.MarketData.MaxExpiry {
		return fmt.Errorf("marketdata.min_expiry_days must be below max_expiry_days")
	}
	return nil
}
