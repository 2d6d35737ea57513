package risk

import (
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

// Rejection reasons, reported as warning flags on the logged decision.
const (
	ReasonDrawdownStop        = "drawdown_stop"
	ReasonDailyLossLimit      = "daily_loss_limit"
	ReasonMaxConcurrentTrades = "max_concurrent_trades"
	ReasonBelowConfidence     = "below_confidence_threshold"
)

// Verdict is the gate's answer for one candidate decision.
type Verdict struct {
	Admitted bool
	Reason   string
}

func admitted() Verdict         { return Verdict{Admitted: true} }
func rejected(r string) Verdict { return Verdict{Reason: r} }

// Admit validates a candidate decision against portfolio-level constraints.
// Checks run in a fixed order and the first failure is the reported reason;
// the gate has no side effects, so rejection is cheap and frequent by design
// of the caller, not an error.
func Admit(d types.Decision, rs types.RiskState, cfg store.Config) Verdict {
	if cfg.Risk.EmergencyStopEnabled && rs.CurrentDrawdown >= cfg.Risk.MaxDrawdownStop {
		return rejected(ReasonDrawdownStop)
	}
	if rs.DailyLossUsed >= cfg.Risk.MaxDailyLoss {
		return rejected(ReasonDailyLossLimit)
	}
	if d.Action != types.ActionClose && rs.OpenPositionCount >= cfg.Risk.MaxConcurrentTrades {
		return rejected(ReasonMaxConcurrentTrades)
	}
	if d.FinalConfidence < cfg.MinConfidenceLevel {
		return rejected(ReasonBelowConfidence)
	}
	return admitted()
}
