package marketdata

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/internal/bus"
	"github.com/Wad-Law/ingestor/pkg/types"
)

const (
	pingInterval     = 50 * time.Second // keep-alive cadence
	readTimeout      = 90 * time.Second // ~2 missed pings triggers reconnect
	maxReconnectWait = 30 * time.Second // cap on exponential backoff
	writeTimeout     = 10 * time.Second
)

// wsSubscribeMsg is the initial subscription for the public market channel.
type wsSubscribeMsg struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids,omitempty"`
}

// wsBookEvent is a full order book snapshot from the market channel.
type wsBookEvent struct {
	EventType string         `json:"event_type"` // "book"
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Timestamp string         `json:"timestamp"`
	Buys      []wsPriceLevel `json:"buys"`
	Sells     []wsPriceLevel `json:"sells"`
}

// wsPriceLevel keeps price/size as strings to preserve decimal precision.
type wsPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// StreamFeed mirrors the Polymarket market WebSocket channel and publishes
// each full book event as a MarketDataSnap. It auto-reconnects with
// exponential backoff and re-subscribes to all tracked asset IDs.
// Push-based refresh only; the pricing actor remains the authoritative
// request/response source.
type StreamFeed struct {
	url string
	bus *bus.Bus

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribedMu sync.RWMutex
	subscribed   map[string]bool // asset IDs

	logger *slog.Logger
}

// NewStreamFeed creates a market-channel feed.
func NewStreamFeed(wsURL string, b *bus.Bus, logger *slog.Logger) *StreamFeed {
	return &StreamFeed{
		url:        wsURL,
		bus:        b,
		subscribed: make(map[string]bool),
		logger:     logger.With("component", "ws_market"),
	}
}

// Subscribe tracks asset IDs and, when connected, sends the subscription.
func (f *StreamFeed) Subscribe(assetIDs []string) {
	f.subscribedMu.Lock()
	for _, id := range assetIDs {
		f.subscribed[id] = true
	}
	f.subscribedMu.Unlock()

	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return
	}
	msg := wsSubscribeMsg{Type: "market", AssetIDs: assetIDs}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := f.conn.WriteJSON(msg); err != nil {
		f.logger.Warn("subscribe write failed", "error", err)
	}
}

// Run connects and maintains the WebSocket with auto-reconnect. Blocks
// until ctx is cancelled.
func (f *StreamFeed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *StreamFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		f.conn = nil
		f.connMu.Unlock()
		conn.Close()
	}()

	// Re-subscribe to everything tracked.
	f.subscribedMu.RLock()
	ids := make([]string, 0, len(f.subscribed))
	for id := range f.subscribed {
		ids = append(ids, id)
	}
	f.subscribedMu.RUnlock()
	if len(ids) > 0 {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(wsSubscribeMsg{Type: "market", AssetIDs: ids}); err != nil {
			return err
		}
	}

	f.logger.Info("websocket connected", "subscriptions", len(ids))

	pingDone := make(chan struct{})
	defer close(pingDone)
	go f.pingLoop(conn, pingDone)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(data)
	}
}

func (f *StreamFeed) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses book events; other event types are ignored.
// Messages may arrive as a single event or an array of events.
func (f *StreamFeed) handleMessage(data []byte) {
	var events []wsBookEvent
	if err := json.Unmarshal(data, &events); err != nil {
		var single wsBookEvent
		if err := json.Unmarshal(data, &single); err != nil {
			f.logger.Error("unparseable websocket message", "payload", string(data))
			return
		}
		events = append(events, single)
	}

	for _, ev := range events {
		if ev.EventType != "book" {
			continue
		}
		snap := bookEventToSnap(ev)
		if err := f.bus.MarketData.Publish(snap); err != nil {
			f.logger.Warn("stream snapshot publish failed", "market_id", snap.MarketID, "error", err)
		}
	}
}

func bookEventToSnap(ev wsBookEvent) types.MarketDataSnap {
	snap := types.MarketDataSnap{
		MarketID: ev.Market,
		BookTsMs: parseTsMs(ev.Timestamp),
	}
	// Buys arrive sorted ascending by price, sells descending: best levels
	// sit at the tail.
	if n := len(ev.Buys); n > 0 {
		snap.BestBid = parseDecimal(ev.Buys[n-1].Price)
		snap.BidSize = parseDecimal(ev.Buys[n-1].Size)
	}
	if n := len(ev.Sells); n > 0 {
		snap.BestAsk = parseDecimal(ev.Sells[n-1].Price)
		snap.AskSize = parseDecimal(ev.Sells[n-1].Size)
	}
	return snap
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTsMs(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now().UnixMilli()
	}
	return ms
}
