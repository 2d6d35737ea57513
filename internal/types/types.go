package types

import "time"

// EngineKind identifies one of the five scoring engines. New engines are added
// by extending this enum, never via reflection.
type EngineKind string

const (
	EngineTechnical   EngineKind = "technical"
	EngineSentiment   EngineKind = "sentiment"
	EngineFundamental EngineKind = "fundamental"
	EngineAI          EngineKind = "ai"
	EngineRisk        EngineKind = "risk"
)

// AllEngines lists every engine in a fixed order. Aggregation iterates this
// slice so weighted sums are reproducible run to run.
var AllEngines = []EngineKind{
	EngineTechnical,
	EngineSentiment,
	EngineFundamental,
	EngineAI,
	EngineRisk,
}

// Direction is an engine's directional vote for a symbol.
type Direction string

const (
	DirectionBuy     Direction = "buy"
	DirectionSell    Direction = "sell"
	DirectionNeutral Direction = "neutral"
)

// Action is the final decision outcome for one evaluation tick.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

// Signal is one engine's view of one instrument at one timestamp.
// Immutable once produced.
type Signal struct {
	Engine    EngineKind `json:"engine"`
	Symbol    string     `json:"symbol"`
	Score     float64    `json:"score"` // 0..100
	Direction Direction  `json:"direction"`
	Weight    float64    `json:"weight"` // 0..1, taken from config at scoring time
	Rationale string     `json:"rationale"`
	At        time.Time  `json:"at"`
}

// Decision aggregates exactly one Signal per engine for one symbol at one tick.
// Append-only once created; only Executed is set later, exactly once, by the
// supervisor.
type Decision struct {
	Symbol          string                 `json:"symbol"`
	Timestamp       time.Time              `json:"timestamp"`
	Action          Action                 `json:"action"`
	FinalConfidence float64                `json:"final_confidence"` // 0..100
	WeightedScores  map[EngineKind]float64 `json:"weighted_scores"`
	PrimaryReasons  []string               `json:"primary_reasons"`
	WarningFlags    []string               `json:"warning_flags"`
	Executed        bool                   `json:"executed"`
}

// Warning flags attached by the aggregator and the risk gate.
const (
	FlagWeightsUnnormalized = "weights_unnormalized"
	FlagLowConfidence       = "low_confidence_override"
	FlagEngineConflict      = "conflicting_engine_directions"
	FlagStaleSignal         = "stale_signal"
)

// RiskState is the portfolio-level risk picture. Single writer (the
// supervisor); everyone else reads value copies.
type RiskState struct {
	PortfolioHeat     float64   `json:"portfolio_heat"`
	CurrentDrawdown   float64   `json:"current_drawdown"` // peak-to-current equity decline, fraction
	DailyLossUsed     float64   `json:"daily_loss_used"`
	OpenPositionCount int       `json:"open_position_count"`
	DailyTradeCount   int       `json:"daily_trade_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Phase is the supervisor state machine phase.
type Phase string

const (
	PhaseStopped   Phase = "stopped"
	PhaseRunning   Phase = "running"
	PhaseEmergency Phase = "emergency"
)

// Position is an open or closed trade. The supervisor is the sole mutator.
type Position struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol"`
	Side         Action     `json:"side"` // buy or sell
	Size         float64    `json:"size"`
	EntryPrice   float64    `json:"entry_price"`
	CurrentPrice float64    `json:"current_price"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// UnrealizedPnL returns the open profit or loss as a fraction of entry price,
// signed for the held side.
func (p Position) UnrealizedPnL() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	move := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
	if p.Side == ActionSell {
		return -move
	}
	return move
}

// SupervisorStatus is the read-only summary surfaced to the UI layer.
type SupervisorStatus struct {
	Phase           Phase     `json:"phase"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	LastTickAt      time.Time `json:"last_tick_at,omitzero"`
	StopReason      string    `json:"stop_reason,omitempty"`
	TickCount       int64     `json:"tick_count"`
	ErrorCount      int64     `json:"error_count"`
	LastError       string    `json:"last_error,omitempty"`
	Risk            RiskState `json:"risk"`
	ActiveSymbols   []string  `json:"active_symbols"`
	AnalysisSeconds int       `json:"analysis_interval_seconds"`
}
