// Package engine is the central orchestrator of the trading system.
//
// It wires together all subsystems:
//
//  1. Bus carries every cross-actor message (typed broadcast topics).
//  2. Collector polls Gamma events and publishes market metadata.
//  3. StrategyActor turns raw news into sized orders.
//  4. MarketPricingActor answers snapshot requests from the Gamma API.
//  5. StreamFeed (optional) mirrors the market WebSocket channel.
//  6. Paper execution gateway fills emitted orders so the executions path
//     runs end to end.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Wad-Law/ingestor/internal/bus"
	"github.com/Wad-Law/ingestor/internal/config"
	"github.com/Wad-Law/ingestor/internal/exec"
	"github.com/Wad-Law/ingestor/internal/index"
	"github.com/Wad-Law/ingestor/internal/marketdata"
	"github.com/Wad-Law/ingestor/internal/oracle"
	"github.com/Wad-Law/ingestor/internal/risk"
	"github.com/Wad-Law/ingestor/internal/store"
	"github.com/Wad-Law/ingestor/internal/strategy"
)

// paperFeeRateBps is the notional fee the paper gateway charges on fills.
const paperFeeRateBps = 10

// Engine owns the lifecycle of every actor goroutine.
type Engine struct {
	cfg    config.Config
	bus    *bus.Bus
	logger *slog.Logger

	strategyActor *strategy.Actor
	pricingActor  *marketdata.Actor
	collector     *marketdata.Collector
	stream        *marketdata.StreamFeed
	gateway       *exec.Gateway

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all engine components.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	b := bus.New(cfg.Bus.Capacity)

	tokCfg := strategy.DefaultTokenizationConfig()
	idx := index.New(func(text string) []string {
		return strategy.TokenizeText(text, tokCfg)
	})

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	scorer := oracle.NewClient(cfg.Oracle, logger)
	analyst := strategy.NewAnalyst(scorer, cfg.Analyst.TopCandidates, cfg.Analyst.BeliefThreshold, logger)
	sizer := strategy.NewKellySizer(cfg.Kelly.MaxFractionPerTrade)
	accountant := risk.NewAccountant(cfg.Strategy.BankrollDecimal(), logger)

	strategyActor := strategy.NewActor(
		b,
		idx,
		strategy.NewExactDuplicateDetector(cfg.Dedup.Capacity),
		strategy.NewSimHashCache(cfg.SimHash.Threshold, cfg.SimHash.Capacity),
		strategy.NewFeatureExtractor(strategy.DefaultDictionaries()),
		analyst,
		sizer,
		accountant,
		st,
		tokCfg,
		strategy.ActorConfig{
			TopKLexical:       cfg.Retrieval.TopKLexical,
			TopKSemantic:      cfg.Retrieval.TopKSemantic,
			MarketDataTimeout: cfg.MarketData.Timeout,
		},
		logger,
	)

	pricingActor := marketdata.NewActor(b, marketdata.NewGammaClient(cfg.Poly), logger)
	collector := marketdata.NewCollector(b, cfg.Poly, logger)

	var stream *marketdata.StreamFeed
	if cfg.Poly.WSMarketURL != "" {
		stream = marketdata.NewStreamFeed(cfg.Poly.WSMarketURL, b, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:           cfg,
		bus:           b,
		logger:        logger.With("component", "engine"),
		strategyActor: strategyActor,
		pricingActor:  pricingActor,
		collector:     collector,
		stream:        stream,
		gateway:       exec.NewGateway(b, paperFeeRateBps, logger),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Bus exposes the message fabric so ingesters outside the engine can
// publish raw news.
func (e *Engine) Bus() *bus.Bus {
	return e.bus
}

// Start launches every actor goroutine.
func (e *Engine) Start() error {
	e.spawn(func() { e.strategyActor.Run(e.ctx) })
	e.spawn(func() { e.pricingActor.Run(e.ctx) })
	e.spawn(func() { e.collector.Run(e.ctx) })
	e.spawn(func() { e.gateway.Run(e.ctx) })
	if e.stream != nil {
		e.spawn(func() {
			if err := e.stream.Run(e.ctx); err != nil && e.ctx.Err() == nil {
				e.logger.Error("market stream error", "error", err)
			}
		})
	}

	e.logger.Info("engine started", "ws_stream", e.stream != nil)
	return nil
}

func (e *Engine) spawn(run func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		run()
	}()
}

// Stop cancels every actor, waits for clean termination, and closes the
// bus. Actors finish their in-flight iteration; nothing is drained.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")

	e.cancel()
	e.wg.Wait()
	e.bus.Close()

	e.logger.Info("shutdown complete")
}
