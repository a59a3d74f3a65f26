// Package marketdata serves market snapshots to the rest of the engine.
//
// The package holds three components; the first two feed the market_data
// topic:
//   - Actor answers on-demand MarketDataRequests from the Gamma API (the
//     authoritative request/response path the strategy depends on).
//   - StreamFeed mirrors the Polymarket market WebSocket channel (optional,
//     push-based refresh).
//   - Collector is unrelated to pricing: it polls Gamma events and
//     publishes market metadata for indexing.
package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/internal/config"
	"github.com/Wad-Law/ingestor/pkg/types"
)

// Fetcher retrieves one market's snapshot. The Gamma client is the real
// implementation; SimFetcher backs tests and dry runs.
type Fetcher interface {
	FetchMarketData(ctx context.Context, marketID string) (types.MarketDataSnap, error)
}

// gammaMarket is the JSON shape of GET {gamma_markets_url}/{id}.
type gammaMarket struct {
	ID       string              `json:"id"`
	Question string              `json:"question"`
	BestBid  *decimal.Decimal    `json:"best_bid"`
	BestAsk  *decimal.Decimal    `json:"best_ask"`
	Tokens   []types.MarketToken `json:"tokens"`
}

// GammaClient fetches snapshots from the Polymarket Gamma markets endpoint.
type GammaClient struct {
	http *resty.Client
}

// NewGammaClient creates a pricing client for the configured endpoint.
func NewGammaClient(cfg config.PolyConfig) *GammaClient {
	client := resty.New().
		SetBaseURL(cfg.GammaMarketsURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &GammaClient{http: client}
}

// FetchMarketData fetches and converts one market's snapshot. Missing
// best_bid/best_ask default to zero decimals.
func (c *GammaClient) FetchMarketData(ctx context.Context, marketID string) (types.MarketDataSnap, error) {
	var market gammaMarket
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&market).
		Get("/" + marketID)
	if err != nil {
		return types.MarketDataSnap{}, fmt.Errorf("fetch market %s: %w", marketID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.MarketDataSnap{}, fmt.Errorf("fetch market %s: status %d", marketID, resp.StatusCode())
	}

	return types.MarketDataSnap{
		MarketID: market.ID,
		BookTsMs: time.Now().UnixMilli(),
		BestBid:  orZero(market.BestBid),
		BestAsk:  orZero(market.BestAsk),
		BidSize:  decimal.Zero, // not provided by this endpoint
		AskSize:  decimal.Zero,
		Tokens:   market.Tokens,
		Question: market.Question,
	}, nil
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
