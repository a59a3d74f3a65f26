package marketdata

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/Wad-Law/ingestor/internal/bus"
	"github.com/Wad-Law/ingestor/pkg/types"
)

// fetchLimit caps Gamma lookups; a news burst fanning out requests must not
// hammer the API.
var fetchLimit = rate.Limit(10)

// Actor answers MarketDataRequests: fetch a snapshot from the pricing API,
// publish it on market_data. Per-request failures are logged and swallowed;
// only bus closure or cancellation stops the actor.
type Actor struct {
	bus     *bus.Bus
	fetcher Fetcher
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewActor creates a pricing actor backed by fetcher.
func NewActor(b *bus.Bus, fetcher Fetcher, logger *slog.Logger) *Actor {
	return &Actor{
		bus:     b,
		fetcher: fetcher,
		limiter: rate.NewLimiter(fetchLimit, int(fetchLimit)),
		logger:  logger.With("component", "market_pricing"),
	}
}

// Run blocks until the context is cancelled or the request topic closes.
func (a *Actor) Run(ctx context.Context) {
	a.logger.Info("market pricing actor started")

	sub := a.bus.MarketDataRequest.Subscribe()
	defer sub.Unsubscribe()

	for {
		req, err := sub.Recv(ctx)
		if err != nil {
			if n, lagged := bus.AsLagged(err); lagged {
				a.logger.Warn("pricing actor lagged on market_data_request", "skipped", n)
				continue
			}
			if errors.Is(err, bus.ErrClosed) {
				a.logger.Error("market_data_request topic closed, stopping pricing actor")
			} else {
				a.logger.Info("market pricing actor: shutdown requested")
			}
			return
		}

		a.serve(ctx, req)
	}
}

func (a *Actor) serve(ctx context.Context, req types.MarketDataRequest) {
	if err := a.limiter.Wait(ctx); err != nil {
		return
	}

	snap, err := a.fetcher.FetchMarketData(ctx, req.MarketID)
	if err != nil {
		a.logger.Warn("market data fetch failed", "market_id", req.MarketID, "error", err)
		return
	}

	if err := a.bus.MarketData.Publish(snap); err != nil {
		a.logger.Warn("market data publish failed", "market_id", req.MarketID, "error", err)
	}
}
