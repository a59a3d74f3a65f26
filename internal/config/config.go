// Package config defines all configuration for the trading engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via INGESTOR_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Kelly      KellyConfig      `mapstructure:"kelly"`
	SimHash    SimHashConfig    `mapstructure:"simhash"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Analyst    AnalystConfig    `mapstructure:"analyst"`
	Bus        BusConfig        `mapstructure:"bus"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Poly       PolyConfig       `mapstructure:"poly"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StoreConfig sets where position data is persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// StrategyConfig holds the base capital the sizer allocates from.
type StrategyConfig struct {
	Bankroll string `mapstructure:"bankroll"` // decimal string, e.g. "1000"
}

// BankrollDecimal parses the configured bankroll. Validate guarantees it
// parses and is positive.
func (s StrategyConfig) BankrollDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(s.Bankroll)
	return d
}

// KellyConfig caps the Kelly sizing output.
type KellyConfig struct {
	MaxFractionPerTrade float64 `mapstructure:"max_fraction_per_trade"`
}

// SimHashConfig tunes near-duplicate suppression: Hamming distance at or
// below Threshold counts as a near-duplicate; Capacity bounds the ring.
type SimHashConfig struct {
	Threshold int `mapstructure:"threshold"`
	Capacity  int `mapstructure:"capacity"`
}

// DedupConfig bounds the exact-duplicate fingerprint set.
type DedupConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// RetrievalConfig sets the top-k for each retrieval modality.
type RetrievalConfig struct {
	TopKLexical  int `mapstructure:"top_k_lexical"`
	TopKSemantic int `mapstructure:"top_k_semantic"`
}

// AnalystConfig controls how many candidates reach the scoring oracle and
// the belief threshold an edge must clear.
type AnalystConfig struct {
	TopCandidates   int     `mapstructure:"top_candidates"`
	BeliefThreshold float64 `mapstructure:"belief_threshold"`
}

// BusConfig sets the per-subscriber ring capacity for every topic.
type BusConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// MarketDataConfig bounds the wait for snapshots requested ahead of scoring.
type MarketDataConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// PolyConfig holds Polymarket Gamma endpoints and polling knobs.
// WSMarketURL is optional; when empty the WebSocket stream feed is disabled
// and snapshots flow only through the request/response path.
type PolyConfig struct {
	GammaMarketsURL string        `mapstructure:"gamma_markets_url"`
	GammaEventsURL  string        `mapstructure:"gamma_events_url"`
	WSMarketURL     string        `mapstructure:"ws_market_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PageLimit       int           `mapstructure:"page_limit"`
}

// OracleConfig points at the chat-completions scoring oracle.
type OracleConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: INGESTOR_ORACLE_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("INGESTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("INGESTOR_ORACLE_API_KEY"); key != "" {
		cfg.Oracle.APIKey = key
	}

	return &cfg, nil
}

// Default creates a config with every default applied and no file read.
// Callers still set endpoints and the bankroll before Validate.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kelly.max_fraction_per_trade", 0.1)
	v.SetDefault("simhash.threshold", 3)
	v.SetDefault("simhash.capacity", 1024)
	v.SetDefault("dedup.capacity", 4096)
	v.SetDefault("retrieval.top_k_lexical", 50)
	v.SetDefault("retrieval.top_k_semantic", 50)
	v.SetDefault("analyst.top_candidates", 5)
	v.SetDefault("analyst.belief_threshold", 0.6)
	v.SetDefault("bus.capacity", 1024)
	v.SetDefault("market_data.timeout", 2*time.Second)
	v.SetDefault("poly.poll_interval", time.Minute)
	v.SetDefault("poly.page_limit", 100)
	v.SetDefault("oracle.timeout", 30*time.Second)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	bankroll, err := decimal.NewFromString(c.Strategy.Bankroll)
	if err != nil {
		return fmt.Errorf("strategy.bankroll must be a decimal: %w", err)
	}
	if bankroll.Sign() <= 0 {
		return fmt.Errorf("strategy.bankroll must be > 0")
	}
	if c.Kelly.MaxFractionPerTrade <= 0 || c.Kelly.MaxFractionPerTrade > 1 {
		return fmt.Errorf("kelly.max_fraction_per_trade must be in (0, 1]")
	}
	if c.SimHash.Threshold < 0 || c.SimHash.Threshold > 64 {
		return fmt.Errorf("simhash.threshold must be in [0, 64]")
	}
	if c.SimHash.Capacity <= 0 {
		return fmt.Errorf("simhash.capacity must be > 0")
	}
	if c.Dedup.Capacity <= 0 {
		return fmt.Errorf("dedup.capacity must be > 0")
	}
	if c.Retrieval.TopKLexical <= 0 || c.Retrieval.TopKSemantic <= 0 {
		return fmt.Errorf("retrieval.top_k_lexical and top_k_semantic must be > 0")
	}
	if c.Analyst.TopCandidates <= 0 {
		return fmt.Errorf("analyst.top_candidates must be > 0")
	}
	if c.Analyst.BeliefThreshold < 0 || c.Analyst.BeliefThreshold >= 1 {
		return fmt.Errorf("analyst.belief_threshold must be in [0, 1)")
	}
	if c.Bus.Capacity <= 0 {
		return fmt.Errorf("bus.capacity must be > 0")
	}
	if c.MarketData.Timeout <= 0 {
		return fmt.Errorf("market_data.timeout must be > 0")
	}
	if c.Poly.GammaMarketsURL == "" {
		return fmt.Errorf("poly.gamma_markets_url is required")
	}
	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle.base_url is required")
	}
	return nil
}
