package aggregator

import (
	"fmt"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

// CheckExit is the close pathway: independent of the five-engine vote, an
// open position whose unrealized loss crosses the stop-loss threshold or
// whose gain crosses the take-profit threshold produces a close Decision.
func CheckExit(pos types.Position, price float64, cfg store.Config, now time.Time) (types.Decision, bool) {
	marked := pos
	marked.CurrentPrice = price
	pnlPct := marked.UnrealizedPnL() * 100

	var reason string
	switch {
	case pnlPct <= -cfg.Risk.StopLossPct:
		reason = fmt.Sprintf("stop loss: unrealized %.2f%% breached -%.2f%%", pnlPct, cfg.Risk.StopLossPct)
	case pnlPct >= cfg.Risk.TakeProfitPct:
		reason = fmt.Sprintf("take profit: unrealized %.2f%% crossed +%.2f%%", pnlPct, cfg.Risk.TakeProfitPct)
	default:
		return types.Decision{}, false
	}

	return types.Decision{
		Symbol:          pos.Symbol,
		Timestamp:       now,
		Action:          types.ActionClose,
		FinalConfidence: 100,
		WeightedScores:  map[types.EngineKind]float64{},
		PrimaryReasons:  []string{reason},
	}, true
}
