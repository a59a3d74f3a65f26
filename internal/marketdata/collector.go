package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Wad-Law/ingestor/internal/bus"
	"github.com/Wad-Law/ingestor/internal/config"
	"github.com/Wad-Law/ingestor/pkg/types"
)

// Collector polls the Gamma events API and publishes each event with its
// embedded markets onto polymarket_events for the strategy to index.
// Fetch failures skip the cycle; the collector never terminates on
// transient errors.
type Collector struct {
	http   *resty.Client
	bus    *bus.Bus
	cfg    config.PolyConfig
	logger *slog.Logger
}

// NewCollector creates a metadata collector.
func NewCollector(b *bus.Bus, cfg config.PolyConfig, logger *slog.Logger) *Collector {
	client := resty.New().
		SetBaseURL(cfg.GammaEventsURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Collector{
		http:   client,
		bus:    b,
		cfg:    cfg,
		logger: logger.With("component", "collector"),
	}
}

// Run polls immediately, then on every tick, until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("metadata collector started")

	c.collect(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("metadata collector: shutdown requested")
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	events, err := c.fetchEvents(ctx)
	if err != nil {
		c.logger.Warn("event fetch failed, skipping cycle", "error", err)
		return
	}

	published := 0
	for _, ev := range events {
		if len(ev.Markets) == 0 {
			continue
		}
		if err := c.bus.PolymarketEvents.Publish(ev); err != nil {
			c.logger.Warn("event publish failed", "event_id", ev.ID, "error", err)
			continue
		}
		published++
	}

	c.logger.Info("collect cycle complete", "fetched", len(events), "published", published)
}

func (c *Collector) fetchEvents(ctx context.Context) ([]types.PolyMarketEvent, error) {
	var all []types.PolyMarketEvent
	offset := 0

	for {
		var page []types.PolyMarketEvent
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(c.cfg.PageLimit),
				"offset": strconv.Itoa(offset),
				"closed": "false",
			}).
			SetResult(&page).
			Get("")
		if err != nil {
			return nil, fmt.Errorf("fetch events at offset %d: %w", offset, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("fetch events: status %d", resp.StatusCode())
		}

		all = append(all, page...)

		if len(page) < c.cfg.PageLimit {
			break
		}
		offset += c.cfg.PageLimit
	}

	return all, nil
}
