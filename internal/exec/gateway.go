// Package exec provides a paper execution gateway: it fills every order it
// sees at the order's own price and publishes the confirmation. Real order
// submission lives behind an exchange gateway outside this repo; this actor
// exists so the executions path can be exercised end to end.
package exec

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/internal/bus"
	"github.com/Wad-Law/ingestor/pkg/types"
)

// Gateway consumes orders and publishes simulated full fills.
type Gateway struct {
	bus        *bus.Bus
	feeRateBps decimal.Decimal
	logger     *slog.Logger
}

// NewGateway creates a paper gateway charging feeRateBps on notional.
func NewGateway(b *bus.Bus, feeRateBps int64, logger *slog.Logger) *Gateway {
	return &Gateway{
		bus:        b,
		feeRateBps: decimal.NewFromInt(feeRateBps),
		logger:     logger.With("component", "paper_exec"),
	}
}

// Run blocks until the context is cancelled or the orders topic closes.
func (g *Gateway) Run(ctx context.Context) {
	g.logger.Info("paper execution gateway started")

	sub := g.bus.Orders.Subscribe()
	defer sub.Unsubscribe()

	for {
		order, err := sub.Recv(ctx)
		if err != nil {
			if n, lagged := bus.AsLagged(err); lagged {
				g.logger.Warn("gateway lagged on orders", "skipped", n)
				continue
			}
			if errors.Is(err, bus.ErrClosed) {
				g.logger.Error("orders topic closed, stopping gateway")
			} else {
				g.logger.Info("paper execution gateway: shutdown requested")
			}
			return
		}

		g.fill(order)
	}
}

func (g *Gateway) fill(order types.Order) {
	notional := order.Price.Mul(order.Size)
	fee := notional.Mul(g.feeRateBps).Div(decimal.NewFromInt(10_000))

	exec := types.Execution{
		ClientOrderID: order.ClientOrderID,
		MarketID:      order.MarketID,
		AvgPx:         order.Price,
		Filled:        order.Size,
		Fee:           fee,
		TsMs:          time.Now().UnixMilli(),
	}

	if err := g.bus.Executions.Publish(exec); err != nil {
		g.logger.Warn("execution publish failed", "order", order.ClientOrderID, "error", err)
		return
	}

	g.logger.Info("paper fill",
		"execution_id", uuid.NewString(),
		"client_order_id", order.ClientOrderID,
		"market_id", order.MarketID,
		"avg_px", exec.AvgPx,
		"filled", exec.Filled,
		"fee", exec.Fee,
	)
}
