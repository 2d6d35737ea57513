package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"forex-autotrader/internal/types"
)

type Config struct {
	Mode       string `yaml:"mode"`        // DRY_RUN or LIVE
	DataSource string `yaml:"data_source"` // STATIC or LIVE

	ActivePairs     []string `yaml:"active_pairs"`
	AnalysisSeconds int      `yaml:"analysis_interval_seconds"`
	EngineTimeoutMS int      `yaml:"engine_timeout_ms"`
	TickTimeoutSec  int      `yaml:"tick_timeout_seconds"`

	MinConfidenceLevel float64 `yaml:"min_confidence_level"`

	Weights struct {
		Technical   float64 `yaml:"technical"`
		Sentiment   float64 `yaml:"sentiment"`
		Fundamental float64 `yaml:"fundamental"`
		AI          float64 `yaml:"ai"`
		Risk        float64 `yaml:"risk"`
	} `yaml:"weights"`

	Risk struct {
		MaxDailyLoss         float64 `yaml:"max_daily_loss"`
		MaxConcurrentTrades  int     `yaml:"max_concurrent_trades"`
		MaxDrawdownStop      float64 `yaml:"max_drawdown_stop"` // fraction, e.g. 0.10
		EmergencyStopEnabled bool    `yaml:"emergency_stop_enabled"`
		StopLossPct          float64 `yaml:"stop_loss_pct"`
		TakeProfitPct        float64 `yaml:"take_profit_pct"`
		PositionSize         float64 `yaml:"position_size"`
	} `yaml:"risk"`

	Indicators struct {
		SMAWindows []int   `yaml:"sma_windows"`
		EMAWindows []int   `yaml:"ema_windows"`
		RSIPeriod  int     `yaml:"rsi_period"`
		BBWindow   int     `yaml:"bb_window"`
		BBStdDev   float64 `yaml:"bb_stddev"`
		ATRPeriod  int     `yaml:"atr_period"`
	} `yaml:"indicators"`

	Advisor struct {
		Endpoint    string  `yaml:"endpoint"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"advisor"`

	API struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`

	DBPath string `yaml:"db_path"`
}

// WeightFor returns the configured weight for an engine.
func (c *Config) WeightFor(kind types.EngineKind) float64 {
	switch kind {
	case types.EngineTechnical:
		return c.Weights.Technical
	case types.EngineSentiment:
		return c.Weights.Sentiment
	case types.EngineFundamental:
		return c.Weights.Fundamental
	case types.EngineAI:
		return c.Weights.AI
	case types.EngineRisk:
		return c.Weights.Risk
	}
	return 0
}

// WeightSum returns the sum of the five engine weights.
func (c *Config) WeightSum() float64 {
	return c.Weights.Technical + c.Weights.Sentiment + c.Weights.Fundamental +
		c.Weights.AI + c.Weights.Risk
}

// AnalysisInterval returns the tick cadence as a duration.
func (c Config) AnalysisInterval() time.Duration {
	return time.Duration(c.AnalysisSeconds) * time.Second
}

// EngineTimeout returns the per-engine scoring deadline.
func (c Config) EngineTimeout() time.Duration {
	return time.Duration(c.EngineTimeoutMS) * time.Millisecond
}

// TickTimeout returns the hard deadline for one whole tick.
func (c *Config) TickTimeout() time.Duration {
	return time.Duration(c.TickTimeoutSec) * time.Second
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		return fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource)
	}
	if len(c.ActivePairs) == 0 {
		return errors.New("active_pairs cannot be empty")
	}
	if c.AnalysisSeconds <= 0 {
		return fmt.Errorf("analysis_interval_seconds must be > 0, got %d", c.AnalysisSeconds)
	}
	if c.MinConfidenceLevel < 0 || c.MinConfidenceLevel > 100 {
		return fmt.Errorf("min_confidence_level must be within 0-100, got %.2f", c.MinConfidenceLevel)
	}
	sum := c.WeightSum()
	if sum <= 0 {
		return fmt.Errorf("engine weights must sum to a positive value, got %.4f", sum)
	}
	for _, w := range []float64{c.Weights.Technical, c.Weights.Sentiment, c.Weights.Fundamental, c.Weights.AI, c.Weights.Risk} {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("engine weights must be >= 0, got %.4f", w)
		}
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be > 0, got %.2f", c.Risk.MaxDailyLoss)
	}
	if c.Risk.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("risk.max_concurrent_trades must be > 0, got %d", c.Risk.MaxConcurrentTrades)
	}
	if c.Risk.MaxDrawdownStop <= 0 || c.Risk.MaxDrawdownStop >= 1 {
		return fmt.Errorf("risk.max_drawdown_stop must be a fraction in (0,1), got %.4f", c.Risk.MaxDrawdownStop)
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.TakeProfitPct <= 0 {
		return errors.New("risk.stop_loss_pct and risk.take_profit_pct must be > 0")
	}
	if c.Risk.PositionSize <= 0 {
		return fmt.Errorf("risk.position_size must be > 0, got %.2f", c.Risk.PositionSize)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if len(c.ActivePairs) == 0 {
		c.ActivePairs = []string{"EURUSD", "GBPUSD", "USDJPY"}
	}
	if c.AnalysisSeconds == 0 {
		c.AnalysisSeconds = 60
	}
	if c.EngineTimeoutMS == 0 {
		c.EngineTimeoutMS = 2000
	}
	if c.TickTimeoutSec == 0 {
		c.TickTimeoutSec = 30
	}
	if c.MinConfidenceLevel == 0 {
		c.MinConfidenceLevel = 60
	}
	if c.WeightSum() == 0 {
		c.Weights.Technical = 0.3
		c.Weights.Sentiment = 0.2
		c.Weights.Fundamental = 0.2
		c.Weights.AI = 0.2
		c.Weights.Risk = 0.1
	}
	if c.Risk.MaxDailyLoss == 0 {
		c.Risk.MaxDailyLoss = 500
	}
	if c.Risk.MaxConcurrentTrades == 0 {
		c.Risk.MaxConcurrentTrades = 3
	}
	if c.Risk.MaxDrawdownStop == 0 {
		c.Risk.MaxDrawdownStop = 0.10
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 2.0
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 4.0
	}
	if c.Risk.PositionSize == 0 {
		c.Risk.PositionSize = 10000
	}
	if len(c.Indicators.SMAWindows) == 0 {
		c.Indicators.SMAWindows = []int{20, 50, 200}
	}
	if len(c.Indicators.EMAWindows) == 0 {
		c.Indicators.EMAWindows = []int{12, 26}
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.BBWindow == 0 {
		c.Indicators.BBWindow = 20
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2.0
	}
	if c.Indicators.ATRPeriod == 0 {
		c.Indicators.ATRPeriod = 14
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8090"
	}
	if c.DBPath == "" {
		c.DBPath = "trader.db"
	}
}
