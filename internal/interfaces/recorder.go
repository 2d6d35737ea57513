package interfaces

import (
	"context"

	"forex-autotrader/internal/types"
)

// DecisionStore is the append-only decision log plus the single current
// risk/supervisor state records, read by the UI layer.
type DecisionStore interface {
	Append(ctx context.Context, d types.Decision) error
	MarkExecuted(ctx context.Context, symbol string, ts int64) error
	Recent(ctx context.Context, limit int) ([]types.Decision, error)
	SaveRiskState(ctx context.Context, rs types.RiskState) error
	SaveStatus(ctx context.Context, st types.SupervisorStatus) error
	Close() error
}
