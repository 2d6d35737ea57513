package interfaces

import (
	"context"

	"forex-autotrader/internal/types"
)

// Supervisor is the control surface the HTTP layer binds to.
type Supervisor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context, reason string) error
	EmergencyStop(ctx context.Context, reason string) error
	ClearEmergency(ctx context.Context) error
	Status() types.SupervisorStatus
	Positions() []types.Position
}
