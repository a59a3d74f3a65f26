package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/pkg/types"
)

// SimFetcher returns deterministic snapshots: a 0.50/0.51 book with Yes/No
// tokens named {id}-Yes and {id}-No. Used by tests and dry-run wiring.
type SimFetcher struct{}

// NewSimFetcher creates a simulated pricing source.
func NewSimFetcher() *SimFetcher {
	return &SimFetcher{}
}

// FetchMarketData returns the canned snapshot for marketID.
func (s *SimFetcher) FetchMarketData(_ context.Context, marketID string) (types.MarketDataSnap, error) {
	fifty := decimal.New(50, -2)
	return types.MarketDataSnap{
		MarketID: marketID,
		BookTsMs: time.Now().UnixMilli(),
		BestBid:  fifty,
		BestAsk:  decimal.New(51, -2),
		BidSize:  decimal.NewFromInt(1000),
		AskSize:  decimal.NewFromInt(1000),
		Tokens: []types.MarketToken{
			{TokenID: marketID + "-Yes", Outcome: "Yes", Price: fifty},
			{TokenID: marketID + "-No", Outcome: "No", Price: fifty},
		},
		Question: "Simulated Market",
	}, nil
}
