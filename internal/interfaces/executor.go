package interfaces

import (
	"context"

	"forex-autotrader/internal/types"
)

// Fill is the broker's acknowledgement of an executed order.
type Fill struct {
	OrderID string
	Price   float64
	Size    float64
}

// TradeExecutor places orders with the broker. Open opens a new position in
// the decided direction; Close flattens an existing one.
type TradeExecutor interface {
	Open(ctx context.Context, symbol string, side types.Action, size float64) (Fill, error)
	Close(ctx context.Context, pos types.Position) (Fill, error)
}
