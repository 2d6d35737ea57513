package store

import (
	"fmt"
	"sync"
)

// Store holds the live configuration and hands out immutable snapshots.
// Updates swap the whole config atomically; readers that took a snapshot at
// tick start keep seeing consistent values for the rest of the tick.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore wraps a validated config.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: *cfg}
}

// Snapshot returns a value copy of the current config. Slices are copied so a
// later update cannot alias into a snapshot already handed out.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConfig(s.cfg)
}

// Patch is a partial configuration update. Nil fields keep their current
// value. Weights and risk limits are replaced wholesale when present.
type Patch struct {
	ActivePairs        []string `json:"active_pairs,omitempty"`
	AnalysisSeconds    *int     `json:"analysis_interval_seconds,omitempty"`
	MinConfidenceLevel *float64 `json:"min_confidence_level,omitempty"`

	Weights *struct {
		Technical   float64 `json:"technical"`
		Sentiment   float64 `json:"sentiment"`
		Fundamental float64 `json:"fundamental"`
		AI          float64 `json:"ai"`
		Risk        float64 `json:"risk"`
	} `json:"weights,omitempty"`

	MaxDailyLoss         *float64 `json:"max_daily_loss,omitempty"`
	MaxConcurrentTrades  *int     `json:"max_concurrent_trades,omitempty"`
	MaxDrawdownStop      *float64 `json:"max_drawdown_stop,omitempty"`
	EmergencyStopEnabled *bool    `json:"emergency_stop_enabled,omitempty"`
	StopLossPct          *float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct        *float64 `json:"take_profit_pct,omitempty"`
	PositionSize         *float64 `json:"position_size,omitempty"`
}

// Apply validates the patched config as a whole and swaps it in. A rejected
// patch leaves the active config untouched.
func (s *Store) Apply(p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := copyConfig(s.cfg)
	if len(p.ActivePairs) > 0 {
		next.ActivePairs = append([]string(nil), p.ActivePairs...)
	}
	if p.AnalysisSeconds != nil {
		next.AnalysisSeconds = *p.AnalysisSeconds
	}
	if p.MinConfidenceLevel != nil {
		next.MinConfidenceLevel = *p.MinConfidenceLevel
	}
	if p.Weights != nil {
		next.Weights.Technical = p.Weights.Technical
		next.Weights.Sentiment = p.Weights.Sentiment
		next.Weights.Fundamental = p.Weights.Fundamental
		next.Weights.AI = p.Weights.AI
		next.Weights.Risk = p.Weights.Risk
	}
	if p.MaxDailyLoss != nil {
		next.Risk.MaxDailyLoss = *p.MaxDailyLoss
	}
	if p.MaxConcurrentTrades != nil {
		next.Risk.MaxConcurrentTrades = *p.MaxConcurrentTrades
	}
	if p.MaxDrawdownStop != nil {
		next.Risk.MaxDrawdownStop = *p.MaxDrawdownStop
	}
	if p.EmergencyStopEnabled != nil {
		next.Risk.EmergencyStopEnabled = *p.EmergencyStopEnabled
	}
	if p.StopLossPct != nil {
		next.Risk.StopLossPct = *p.StopLossPct
	}
	if p.TakeProfitPct != nil {
		next.Risk.TakeProfitPct = *p.TakeProfitPct
	}
	if p.PositionSize != nil {
		next.Risk.PositionSize = *p.PositionSize
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("config update rejected: %w", err)
	}
	s.cfg = next
	return nil
}

func copyConfig(c Config) Config {
	out := c
	out.ActivePairs = append([]string(nil), c.ActivePairs...)
	out.Indicators.SMAWindows = append([]int(nil), c.Indicators.SMAWindows...)
	out.Indicators.EMAWindows = append([]int(nil), c.Indicators.EMAWindows...)
	return out
}
