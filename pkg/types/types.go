// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the engine — news carriers,
// market snapshots, orders, executions, and the metadata events flowing over
// the bus. It has no dependencies on internal packages, so it can be
// imported by any layer. All monetary and probability values are
// fixed-precision decimals; floats are converted at the process boundary only.
package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order. Binary markets are traded by
// buying one of the two outcome tokens, so both sides are buys.
type Side string

const (
	BuyYes Side = "BUY_YES"
	BuyNo  Side = "BUY_NO"
)

// Outcome returns the token outcome label the side trades, as the pricing
// API spells it.
func (s Side) Outcome() string {
	if s == BuyNo {
		return "No"
	}
	return "Yes"
}

// ————————————————————————————————————————————————————————————————————————
// News
// ————————————————————————————————————————————————————————————————————————

// RawNews is an immutable news item as published by an ingester. It is
// shared read-only across bus subscribers and never mutated after creation.
type RawNews struct {
	URL         string
	Title       string
	Description string
	Feed        string
	Published   *time.Time
	Labels      []string
}

// ————————————————————————————————————————————————————————————————————————
// Market metadata
// ————————————————————————————————————————————————————————————————————————

// PolyMarketEvent is a Gamma events record with its embedded markets, as
// published by the metadata collector. The strategy indexes the markets;
// it never trades directly from these.
type PolyMarketEvent struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Markets     []PolyMarketEntry `json:"markets"`
}

// PolyMarketEntry is one market embedded in a Gamma event.
type PolyMarketEntry struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Description string `json:"description"`
	Category    string `json:"category"`
	EndDate     string `json:"endDate"` // RFC3339, may be empty
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// MarketDataRequest asks the pricing actor for a fresh snapshot.
type MarketDataRequest struct {
	MarketID string
}

// MarketToken is one tradable side (Yes/No) of a binary market.
type MarketToken struct {
	TokenID string          `json:"token_id"`
	Outcome string          `json:"outcome"` // "Yes", "No"
	Price   decimal.Decimal `json:"price"`
}

// MarketDataSnap is a point-in-time view of one market's top of book.
// Missing fields default to zero decimals.
type MarketDataSnap struct {
	MarketID string          `json:"market_id"`
	BookTsMs int64           `json:"book_ts_ms"`
	BestBid  decimal.Decimal `json:"best_bid"`
	BestAsk  decimal.Decimal `json:"best_ask"`
	BidSize  decimal.Decimal `json:"bid_size"`
	AskSize  decimal.Decimal `json:"ask_size"`
	Tokens   []MarketToken   `json:"tokens,omitempty"`
	Question string          `json:"question"`
}

// Mid returns the top-of-book midpoint (bestBid+bestAsk)/2. The second
// return is false when both sides are empty.
func (s MarketDataSnap) Mid() (decimal.Decimal, bool) {
	if s.BestBid.IsZero() && s.BestAsk.IsZero() {
		return decimal.Zero, false
	}
	return s.BestBid.Add(s.BestAsk).Div(decimal.NewFromInt(2)), true
}

// TokenForOutcome resolves the token for an outcome label, case-insensitive.
func (s MarketDataSnap) TokenForOutcome(outcome string) (MarketToken, bool) {
	for _, t := range s.Tokens {
		if strings.EqualFold(t.Outcome, outcome) {
			return t, true
		}
	}
	return MarketToken{}, false
}

// ————————————————————————————————————————————————————————————————————————
// Orders and executions
// ————————————————————————————————————————————————————————————————————————

// Order is emitted by the strategy onto the orders topic and consumed by an
// execution gateway. Immutable once emitted. TokenID is empty when the
// snapshot that priced the order carried no token list.
type Order struct {
	ClientOrderID string
	MarketID      string
	TokenID       string
	Side          Side
	Price         decimal.Decimal
	Size          decimal.Decimal
}

// Execution is a terminal fill confirmation from the execution gateway.
type Execution struct {
	ClientOrderID string
	MarketID      string
	AvgPx         decimal.Decimal
	Filled        decimal.Decimal
	Fee           decimal.Decimal
	TsMs          int64
}
