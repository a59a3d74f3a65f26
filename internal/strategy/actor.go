package strategy

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Wad-Law/ingestor/internal/bus"
	"github.com/Wad-Law/ingestor/internal/index"
	"github.com/Wad-Law/ingestor/internal/risk"
	"github.com/Wad-Law/ingestor/pkg/types"
)

// PositionSink persists positions after execution updates. The store
// package provides the file-backed implementation; a nil sink disables
// persistence.
type PositionSink interface {
	SavePosition(marketID string, pos Position) error
}

// ActorConfig carries the knobs the actor reads per event.
type ActorConfig struct {
	TopKLexical       int
	TopKSemantic      int
	MarketDataTimeout time.Duration
}

// Actor drives the full news-to-orders pipeline off the bus. It owns every
// piece of per-run state — detectors, index, snapshot cache, positions —
// exclusively from its single task, so none of it is locked.
//
// It exposes no direct API; it is driven by four topics:
//
//	raw_news          → handleNews (may emit orders)
//	polymarket_events → incremental index updates, never trades
//	market_data       → snapshot cache refresh + rebalance hook (stub)
//	executions        → position bookkeeping + follow-up hook (stub)
type Actor struct {
	bus        *bus.Bus
	idx        *index.MarketIndex
	dedup      *ExactDuplicateDetector
	simhash    *SimHashCache
	extractor  *FeatureExtractor
	analyst    *Analyst
	sizer      *KellySizer
	accountant *risk.Accountant
	positions  *PositionBook
	sink       PositionSink

	tokCfg TokenizationConfig
	cfg    ActorConfig

	cache map[string]types.MarketDataSnap

	logger *slog.Logger
}

// NewActor wires the pipeline components into an actor.
func NewActor(
	b *bus.Bus,
	idx *index.MarketIndex,
	dedup *ExactDuplicateDetector,
	simhash *SimHashCache,
	extractor *FeatureExtractor,
	analyst *Analyst,
	sizer *KellySizer,
	accountant *risk.Accountant,
	sink PositionSink,
	tokCfg TokenizationConfig,
	cfg ActorConfig,
	logger *slog.Logger,
) *Actor {
	return &Actor{
		bus:        b,
		idx:        idx,
		dedup:      dedup,
		simhash:    simhash,
		extractor:  extractor,
		analyst:    analyst,
		sizer:      sizer,
		accountant: accountant,
		positions:  NewPositionBook(),
		sink:       sink,
		tokCfg:     tokCfg,
		cfg:        cfg,
		cache:      make(map[string]types.MarketDataSnap),
		logger:     logger.With("component", "strategy"),
	}
}

// inbound is the merged view of the actor's subscriptions. Exactly one
// payload field is set; closedTopic marks a terminated subscription.
type inbound struct {
	news        *types.RawNews
	event       *types.PolyMarketEvent
	snap        *types.MarketDataSnap
	exec        *types.Execution
	laggedTopic string
	laggedBy    uint64
	closedTopic string
}

// Run blocks until the context is cancelled or a subscribed topic closes.
// Cancellation lets the in-flight iteration finish; nothing is drained.
func (a *Actor) Run(ctx context.Context) {
	a.logger.Info("strategy actor started")

	newsSub := a.bus.RawNews.Subscribe()
	eventsSub := a.bus.PolymarketEvents.Subscribe()
	mdSub := a.bus.MarketData.Subscribe()
	execSub := a.bus.Executions.Subscribe()
	defer newsSub.Unsubscribe()
	defer eventsSub.Unsubscribe()
	defer mdSub.Unsubscribe()
	defer execSub.Unsubscribe()

	merged := make(chan inbound)
	fwdCtx, stopForwarders := context.WithCancel(ctx)

	var wg sync.WaitGroup
	// Cancel the forwarders before waiting on them, whatever return path
	// the loop takes.
	defer func() {
		stopForwarders()
		wg.Wait()
	}()
	forward := func(topic string, recv func(context.Context) (inbound, error)) {
		defer wg.Done()
		for {
			m, err := recv(fwdCtx)
			if err != nil {
				if errors.Is(err, bus.ErrClosed) {
					m = inbound{closedTopic: topic}
				} else if n, ok := bus.AsLagged(err); ok {
					m = inbound{laggedTopic: topic, laggedBy: n}
				} else {
					return // context cancelled
				}
			}
			select {
			case merged <- m:
			case <-fwdCtx.Done():
				return
			}
			if m.closedTopic != "" {
				return
			}
		}
	}

	wg.Add(4)
	go forward("raw_news", func(c context.Context) (inbound, error) {
		v, err := newsSub.Recv(c)
		return inbound{news: &v}, err
	})
	go forward("polymarket_events", func(c context.Context) (inbound, error) {
		v, err := eventsSub.Recv(c)
		return inbound{event: &v}, err
	})
	go forward("market_data", func(c context.Context) (inbound, error) {
		v, err := mdSub.Recv(c)
		return inbound{snap: &v}, err
	})
	go forward("executions", func(c context.Context) (inbound, error) {
		v, err := execSub.Recv(c)
		return inbound{exec: &v}, err
	})

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("strategy actor: shutdown requested")
			return
		case m := <-merged:
			switch {
			case m.closedTopic != "":
				a.logger.Error("topic closed, stopping strategy actor", "topic", m.closedTopic)
				return
			case m.laggedTopic != "":
				a.logger.Warn("strategy actor lagged", "topic", m.laggedTopic, "skipped", m.laggedBy)
			case m.news != nil:
				a.handleNewsEvent(ctx, *m.news)
			case m.event != nil:
				a.handleMarketEvent(*m.event)
			case m.snap != nil:
				a.handleSnapshot(*m.snap)
			case m.exec != nil:
				a.handleExecution(*m.exec)
			}
		}
	}
}

// handleNewsEvent runs the decision pipeline for one news item and
// publishes any resulting orders.
func (a *Actor) handleNewsEvent(ctx context.Context, news types.RawNews) {
	if a.dedup.IsDuplicate(news) {
		a.logger.Debug("exact duplicate dropped", "title", news.Title)
		return
	}

	tok := Tokenize(news, a.tokCfg)

	h := SimHash(tok.Tokens)
	if a.simhash.IsNearDuplicate(h) {
		a.logger.Debug("near duplicate dropped", "title", news.Title)
		return
	}
	a.simhash.Insert(h)

	now := time.Now().UTC()
	feats := a.extractor.Extract(tok, now)
	event := BuildCanonicalEvent(tok, feats, a.extractor.Dictionaries(), now)
	a.logger.Info("news event",
		"title", news.Title,
		"domain", event.Domain,
		"kind", event.Kind,
		"primary_entity", event.PrimaryEntity,
		"location", event.Location,
	)

	lexical := a.idx.Search(tok.Tokens, a.cfg.TopKLexical)
	semantic := a.idx.SearchSemantic(news.Title, a.cfg.TopKSemantic)
	candidates := index.FuseUnion(lexical, semantic)
	if len(candidates) == 0 {
		a.logger.Debug("no candidates retrieved", "title", news.Title)
		return
	}

	candidates = HardFilter(candidates, distinctEntities(feats.Entities), feats.TimeWindow)
	if len(candidates) == 0 {
		a.logger.Debug("all candidates filtered", "title", news.Title)
		return
	}

	a.ensureMarketData(ctx, topMarketIDs(candidates, 5))

	edged := a.analyst.AnalyzeCandidates(ctx, news, candidates, a.cache)
	if len(edged) == 0 {
		return
	}

	decisions := a.sizer.Size(edged, a.accountant.RemainingFraction())

	for _, d := range decisions {
		order, ok := a.buildOrder(d)
		if !ok {
			continue
		}
		if err := a.bus.Orders.Publish(order); err != nil {
			a.logger.Warn("order publish failed", "error", err, "market_id", order.MarketID)
			continue
		}
		a.accountant.Commit(order.ClientOrderID, d.SizeFraction)
		a.logger.Info("order emitted",
			"client_order_id", order.ClientOrderID,
			"market_id", order.MarketID,
			"side", order.Side,
			"price", order.Price,
			"size", order.Size,
			"edge", d.Candidate.Edge,
		)
	}
}

// buildOrder synthesizes an order from a sized decision. The price is the
// snapshot midpoint the analyst priced the edge against; the token ID is
// resolved from the snapshot's token list by outcome, case-insensitive.
// Decisions with non-positive price or size are skipped.
func (a *Actor) buildOrder(d SizedDecision) (types.Order, bool) {
	price := d.Candidate.MarketPrice
	if price.Sign() <= 0 {
		a.logger.Error("non-positive order price, dropping decision",
			"market_id", d.Candidate.Candidate.MarketID)
		return types.Order{}, false
	}

	size := a.accountant.Bankroll().Mul(d.SizeFraction).Div(price)
	if size.Sign() <= 0 {
		return types.Order{}, false
	}

	marketID := d.Candidate.Candidate.MarketID

	var tokenID string
	if snap, ok := a.cache[marketID]; ok && len(snap.Tokens) > 0 {
		tok, found := snap.TokenForOutcome(d.Side.Outcome())
		if !found {
			a.logger.Error("snapshot tokens carry no matching outcome, dropping decision",
				"market_id", marketID, "side", d.Side)
			return types.Order{}, false
		}
		tokenID = tok.TokenID
	}

	return types.Order{
		ClientOrderID: marketID + "-" + strconv.FormatInt(time.Now().UnixMicro(), 10),
		MarketID:      marketID,
		TokenID:       tokenID,
		Side:          d.Side,
		Price:         price,
		Size:          size,
	}, true
}

// ensureMarketData requests snapshots for the ids missing from the cache
// and waits until all arrive or the timeout lapses. The market_data
// subscription is taken BEFORE the requests are published: reversing the
// order lets a fast pricing actor answer before the subscription exists.
func (a *Actor) ensureMarketData(ctx context.Context, marketIDs []string) {
	pending := make(map[string]struct{}, len(marketIDs))
	for _, id := range marketIDs {
		if _, cached := a.cache[id]; !cached {
			pending[id] = struct{}{}
		}
	}
	if len(pending) == 0 {
		return
	}

	sub := a.bus.MarketData.Subscribe()
	defer sub.Unsubscribe()

	for id := range pending {
		if err := a.bus.MarketDataRequest.Publish(types.MarketDataRequest{MarketID: id}); err != nil {
			a.logger.Warn("market data request not delivered", "market_id", id, "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.MarketDataTimeout)
	defer cancel()

	for len(pending) > 0 {
		snap, err := sub.Recv(waitCtx)
		if err != nil {
			if _, lagged := bus.AsLagged(err); lagged {
				continue
			}
			return // timeout, cancellation, or closed topic
		}
		a.cache[snap.MarketID] = snap
		delete(pending, snap.MarketID)
	}
}

// handleMarketEvent feeds embedded markets into the index. Metadata never
// trades.
func (a *Actor) handleMarketEvent(ev types.PolyMarketEvent) {
	for _, m := range ev.Markets {
		var endTime time.Time
		if m.EndDate != "" {
			t, err := time.Parse(time.RFC3339, m.EndDate)
			if err != nil {
				a.logger.Warn("unparseable market end date", "market_id", m.ID, "end_date", m.EndDate)
			} else {
				endTime = t.UTC()
			}
		}
		a.idx.AddMarket(m.ID, m.Question, m.Description, m.Category, endTime)
	}
	a.logger.Debug("indexed market event", "event_id", ev.ID, "markets", len(ev.Markets), "index_size", a.idx.Len())
}

// handleSnapshot refreshes the cache. Rebalance-on-tick is a placeholder:
// the hook exists, the policy does not.
func (a *Actor) handleSnapshot(snap types.MarketDataSnap) {
	a.cache[snap.MarketID] = snap
	if order := a.rebalanceFromTick(snap); order != nil {
		if err := a.bus.Orders.Publish(*order); err != nil {
			a.logger.Warn("rebalance order publish failed", "error", err)
		}
	}
}

func (a *Actor) rebalanceFromTick(types.MarketDataSnap) *types.Order {
	return nil
}

// handleExecution releases the committed bankroll fraction and updates
// position bookkeeping. Execution-driven follow-ups are a placeholder.
func (a *Actor) handleExecution(exec types.Execution) {
	a.accountant.Release(exec.ClientOrderID)
	pos := a.positions.OnExecution(exec)
	if a.sink != nil {
		if err := a.sink.SavePosition(exec.MarketID, pos); err != nil {
			a.logger.Error("position persist failed", "market_id", exec.MarketID, "error", err)
		}
	}
	if order := a.followUpFromExecution(exec); order != nil {
		if err := a.bus.Orders.Publish(*order); err != nil {
			a.logger.Warn("follow-up order publish failed", "error", err)
		}
	}
}

func (a *Actor) followUpFromExecution(types.Execution) *types.Order {
	return nil
}

// Positions exposes the position book for inspection.
func (a *Actor) Positions() *PositionBook {
	return a.positions
}

func distinctEntities(entities []string) []string {
	seen := make(map[string]struct{}, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func topMarketIDs(candidates []index.Candidate, n int) []string {
	if len(candidates) < n {
		n = len(candidates)
	}
	ids := make([]string, 0, n)
	for _, c := range candidates[:n] {
		ids = append(ids, c.MarketID)
	}
	return ids
}
