package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Database struct {
		Driver string `yaml:"driver"` // sqlite or postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Providers struct {
		AlphaVantageKey string        `yaml:"alpha_vantage_key"`
		FMPKey          string        `yaml:"fmp_key"`
		FREDKey         string        `yaml:"fred_key"`
		Timeout         time.Duration `yaml:"timeout"`   // per-provider call budget
		CacheTTL        time.Duration `yaml:"cache_ttl"` // fetch cache TTL (300-900s)
	} `yaml:"providers"`
	LLM struct {
		Backend     string        `yaml:"backend"` // gemini, ollama, or none
		Model       string        `yaml:"model"`
		OllamaURL   string        `yaml:"ollama_url"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Advice struct {
		Benchmark         string   `yaml:"benchmark"`           // default SPY
		LookbackDays      int      `yaml:"lookback_days"`       // OHLCV history window
		RiskWindow        int      `yaml:"risk_window"`         // trailing sessions for risk metrics
		NewsLookbackHours int      `yaml:"news_lookback_hours"`
		NewsLimit         int      `yaml:"news_limit"`
		TopHoldings       int      `yaml:"top_holdings"`
		Synthesizer       string   `yaml:"synthesizer"` // rules or llm
		Concurrency       int      `yaml:"concurrency"` // parallel tickers per batch
		Watchlist         []string `yaml:"watchlist"`   // tickers for scheduled sweeps
	} `yaml:"advice"`
	Scheduler struct {
		Enabled       bool   `yaml:"enabled"`
		MarketRefresh string `yaml:"market_refresh"` // cron spec, default */15 * * * *
		Indicators    string `yaml:"indicators"`     // default 0 2 * * *
		NightlyAdvice string `yaml:"nightly_advice"` // default 30 2 * * *
	} `yaml:"scheduler"`
	Notify struct {
		SMTP struct {
			Enabled  bool     `yaml:"enabled"`
			Host     string   `yaml:"host"`
			Port     int      `yaml:"port"`
			From     string   `yaml:"from"`
			To       []string `yaml:"to"`
			Username string   `yaml:"username"`
			Password string   `yaml:"password"`
		} `yaml:"smtp"`
		Kafka struct {
			Enabled bool     `yaml:"enabled"`
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
	} `yaml:"notify"`
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

	if v := os.Getenv("ALPHAVANTAGE_KEY"); v != "" {
		c.Providers.AlphaVantageKey = v
	}
	if v := os.Getenv("FMP_KEY"); v != "" {
		c.Providers.FMPKey = v
	}
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Providers.FREDKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("LLM_BACKEND"); v != "" {
		c.LLM.Backend = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notify.SMTP.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = 8 * time.Second
	}
	if c.Providers.CacheTTL <= 0 {
		c.Providers.CacheTTL = 15 * time.Minute
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash"
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.Advice.Benchmark == "" {
		c.Advice.Benchmark = "SPY"
	}
	if c.Advice.LookbackDays <= 0 {
		c.Advice.LookbackDays = 365
	}
	if c.Advice.RiskWindow <= 0 {
		c.Advice.RiskWindow = 252
	}
	if c.Advice.NewsLookbackHours <= 0 {
		c.Advice.NewsLookbackHours = 72
	}
	if c.Advice.NewsLimit <= 0 {
		c.Advice.NewsLimit = 40
	}
	if c.Advice.TopHoldings <= 0 {
		c.Advice.TopHoldings = 10
	}
	if c.Advice.Synthesizer == "" {
		c.Advice.Synthesizer = "rules"
	}
	if c.Advice.Concurrency <= 0 {
		c.Advice.Concurrency = 4
	}
	if c.Scheduler.MarketRefresh == "" {
		c.Scheduler.MarketRefresh = "*/15 * * * *"
	}
	if c.Scheduler.Indicators == "" {
		c.Scheduler.Indicators = "0 2 * * *"
	}
	if c.Scheduler.NightlyAdvice == "" {
		c.Scheduler.NightlyAdvice = "30 2 * * *"
	}
}

// Validate checks if the configuration is valid. Only configurations that
// leave the core unable to operate at all are rejected here; a missing
// provider key merely shortens the relevant fallback chain.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got '%s'", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Advice.Synthesizer != "rules" && c.Advice.Synthesizer != "llm" {
		return fmt.Errorf("advice.synthesizer must be 'rules' or 'llm', got '%s'", c.Advice.Synthesizer)
	}
	switch c.LLM.Backend {
	case "gemini", "ollama":
	case "", "none":
		// Sentiment classification and LLM synthesis both need a model;
		// rules-only deployments can run without one.
		if c.Advice.Synthesizer == "llm" {
			return fmt.Errorf("advice.synthesizer is 'llm' but no llm.backend is configured")
		}
	default:
		return fmt.Errorf("llm.backend must be 'gemini', 'ollama' or 'none', got '%s'", c.LLM.Backend)
	}
	if c.LLM.Backend == "ollama" && c.LLM.OllamaURL == "" {
		return fmt.Errorf("llm.ollama_url is required for the ollama backend")
	}
	return nil
}
