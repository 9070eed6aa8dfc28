package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"kabu-analyzer/planner"
	"kabu-analyzer/scoring"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     int
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Optional YAML seed list for the stock master; empty means the
	// universe is managed externally
	UniverseFile string

	// Market data gateway configuration
	MarketData MarketDataConfig

	// Pipeline configuration
	Pipeline PipelineConfig

	// Analysis configuration (scoring weights, plan rates, thresholds)
	Analysis AnalysisConfig
}

// MarketDataConfig holds the external data gateway settings
type MarketDataConfig struct {
	BaseURL             string
	Timeout             time.Duration
	FundamentalCacheTTL time.Duration
}

// PipelineConfig holds orchestrator settings
type PipelineConfig struct {
	// Recent window refreshed by the price stage
	PriceWindowDays int
	// Backfill span when stored history is insufficient
	BackfillYears int
	// Historical backfill triggers while the TOTAL stored bar count is below
	// MinBarsPerStock * ExpectedUniverseSize. Global by choice: a per-symbol
	// check would catch late-added symbols but multiplies source calls on
	// every run, and the original heuristic is kept as the documented
	// trade-off.
	MinBarsPerStock      int
	ExpectedUniverseSize int
	// Bounded fan-out for the I/O stages
	FetchWorkers int

	// Trigger configuration
	CronEnabled bool
	CronSpec    string
	RunOnStart  bool
}

// SignalThresholds classify a total score into buy/sell/none.
type SignalThresholds struct {
	Buy       float64 `yaml:"buy_threshold"`
	StrongBuy float64 `yaml:"strong_buy_threshold"` // informational marker, still a buy
	Sell      float64 `yaml:"sell_threshold"`
}

// AnalysisConfig bundles the scoring and planning parameters. Defaults come
// from code; an optional YAML file (ANALYSIS_CONFIG_FILE) overrides them.
type AnalysisConfig struct {
	Weights      scoring.Weights  `yaml:"weights"`
	PlanRates    planner.Rates    `yaml:"trade_plan"`
	TotalCapital float64          `yaml:"total_capital"`
	Thresholds   SignalThresholds `yaml:"signals"`
}

// Load reads configuration from environment variables (plus .env when
// present) and the optional analysis YAML file, then validates it.
// Validation failures surface before any pipeline stage runs.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvInt("DB_PORT", 5432),
		DatabaseName:     getEnvOrDefault("DB_NAME", "kabu_analyzer"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "kabu"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "kabu123"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		UniverseFile: getEnvOrDefault("UNIVERSE_FILE", ""),

		MarketData: MarketDataConfig{
			BaseURL:             getEnvOrDefault("MARKET_DATA_URL", "http://localhost:8090"),
			Timeout:             time.Duration(getEnvInt("MARKET_DATA_TIMEOUT_SEC", 30)) * time.Second,
			FundamentalCacheTTL: time.Duration(getEnvInt("FUNDAMENTAL_CACHE_TTL_MIN", 360)) * time.Minute,
		},

		Pipeline: PipelineConfig{
			PriceWindowDays:      getEnvInt("PIPELINE_PRICE_WINDOW_DAYS", 7),
			BackfillYears:        getEnvInt("PIPELINE_BACKFILL_YEARS", 1),
			MinBarsPerStock:      getEnvInt("PIPELINE_BACKFILL_MIN_BARS", 200),
			ExpectedUniverseSize: getEnvInt("PIPELINE_EXPECTED_UNIVERSE", 30),
			FetchWorkers:         getEnvInt("PIPELINE_FETCH_WORKERS", 4),
			CronEnabled:          getEnvOrDefault("PIPELINE_CRON_ENABLED", "true") == "true",
			CronSpec:             getEnvOrDefault("PIPELINE_CRON_SPEC", "0 16 * * MON-FRI"),
			RunOnStart:           getEnvOrDefault("PIPELINE_RUN_ON_START", "false") == "true",
		},

		Analysis: AnalysisConfig{
			Weights: scoring.DefaultWeights(),
			PlanRates: planner.Rates{
				TakeProfit:       planner.DefaultTakeProfitRates,
				StopLoss:         getEnvFloat("PLAN_STOP_LOSS_RATE", planner.DefaultStopLossRate),
				MaxPositionRatio: getEnvFloat("PLAN_MAX_POSITION_RATIO", planner.DefaultMaxPositionRatio),
			},
			TotalCapital: getEnvFloat("PLAN_TOTAL_CAPITAL", planner.DefaultTotalCapital),
			Thresholds: SignalThresholds{
				Buy:       60,
				StrongBuy: 80,
				Sell:      40,
			},
		},
	}

	if file := os.Getenv("ANALYSIS_CONFIG_FILE"); file != "" {
		if err := cfg.applyAnalysisFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyAnalysisFile overlays weights, rates and thresholds from a YAML file
func (c *Config) applyAnalysisFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read analysis config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c.Analysis); err != nil {
		return fmt.Errorf("failed to parse analysis config %s: %w", path, err)
	}
	log.Printf("✅ Analysis config loaded from %s", path)
	return nil
}

// Validate rejects malformed analysis parameters before any stage runs.
func (c *Config) Validate() error {
	w := c.Analysis.Weights
	for name, v := range map[string]float64{
		"sma_cross": w.SMACross, "rsi": w.RSI, "macd": w.MACD,
		"bollinger": w.Bollinger, "volume": w.Volume,
		"per": w.PER, "pbr": w.PBR,
		"dividend_yield": w.DividendYield, "roe": w.ROE,
	} {
		if v < 0 {
			return fmt.Errorf("invalid config: weight %s is negative (%v)", name, v)
		}
	}
	if w.TechnicalWeight() <= 0 {
		return fmt.Errorf("invalid config: technical weights sum to zero")
	}
	if w.FundamentalWeight() <= 0 {
		return fmt.Errorf("invalid config: fundamental weights sum to zero")
	}

	r := c.Analysis.PlanRates
	for i, tp := range r.TakeProfit {
		if tp <= 0 {
			return fmt.Errorf("invalid config: take_profit[%d] must be positive (%v)", i, tp)
		}
	}
	if r.StopLoss <= 0 || r.StopLoss >= 1 {
		return fmt.Errorf("invalid config: stop_loss must be in (0,1) (%v)", r.StopLoss)
	}
	if r.MaxPositionRatio <= 0 || r.MaxPositionRatio > 1 {
		return fmt.Errorf("invalid config: max_position_ratio must be in (0,1] (%v)", r.MaxPositionRatio)
	}
	if c.Analysis.TotalCapital <= 0 {
		return fmt.Errorf("invalid config: total_capital must be positive (%v)", c.Analysis.TotalCapital)
	}

	t := c.Analysis.Thresholds
	if !(t.Sell < t.Buy && t.Buy <= t.StrongBuy && t.StrongBuy <= 100 && t.Sell >= 0) {
		return fmt.Errorf("invalid config: thresholds must satisfy 0 <= sell < buy <= strong_buy <= 100")
	}

	if c.Pipeline.FetchWorkers < 1 {
		return fmt.Errorf("invalid config: fetch_workers must be at least 1")
	}
	return nil
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
