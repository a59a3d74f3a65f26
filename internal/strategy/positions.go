package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/pkg/types"
)

// Position represents cumulative fills in a single market.
// Serialized to JSON for persistence across restarts.
type Position struct {
	MarketID    string          `json:"market_id"`
	FilledQty   decimal.Decimal `json:"filled_qty"`
	AvgPx       decimal.Decimal `json:"avg_px"`
	Fees        decimal.Decimal `json:"fees"`
	Notional    decimal.Decimal `json:"notional"`
	LastUpdated time.Time       `json:"last_updated"`
}

// PositionBook tracks positions per market from execution confirmations.
// Accessed only from the strategy actor's task; no locking needed.
// Rebalancing and execution-driven follow-ups hang off this state but are
// deliberate placeholders — the policies are undefined.
type PositionBook struct {
	positions map[string]Position
}

// NewPositionBook creates an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[string]Position)}
}

// OnExecution folds a terminal fill into the market's position, updating
// the quantity-weighted average price.
func (b *PositionBook) OnExecution(exec types.Execution) Position {
	pos, ok := b.positions[exec.MarketID]
	if !ok {
		pos = Position{MarketID: exec.MarketID}
	}

	fillNotional := exec.AvgPx.Mul(exec.Filled)
	newQty := pos.FilledQty.Add(exec.Filled)
	if newQty.Sign() > 0 {
		pos.AvgPx = pos.Notional.Add(fillNotional).Div(newQty)
	}
	pos.FilledQty = newQty
	pos.Notional = pos.Notional.Add(fillNotional)
	pos.Fees = pos.Fees.Add(exec.Fee)
	pos.LastUpdated = time.UnixMilli(exec.TsMs).UTC()

	b.positions[exec.MarketID] = pos
	return pos
}

// Get returns the position for a market, if any.
func (b *PositionBook) Get(marketID string) (Position, bool) {
	pos, ok := b.positions[marketID]
	return pos, ok
}

// Snapshot returns a copy of all positions, keyed by market ID.
func (b *PositionBook) Snapshot() map[string]Position {
	out := make(map[string]Position, len(b.positions))
	for id, pos := range b.positions {
		out[id] = pos
	}
	return out
}
