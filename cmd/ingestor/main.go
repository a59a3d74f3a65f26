// News-driven trading engine for binary prediction markets.
//
// Architecture:
//
//	main.go                — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	engine/engine.go       — orchestrator: wires bus + actors, owns lifecycle
//	strategy/actor.go      — decision pipeline: dedup → tokenize → features →
//	                         retrieval → filter → oracle scoring → Kelly sizing → orders
//	index/index.go         — BM25 + hashed-vector retrieval over market metadata
//	marketdata/actor.go    — answers snapshot requests from the Gamma API
//	marketdata/collector.go— polls Gamma events, publishes market metadata
//	marketdata/stream.go   — optional WebSocket mirror of the market channel
//	oracle/client.go       — chat-completions scoring oracle client
//	risk/bankroll.go       — committed-fraction accounting over the bankroll
//	exec/gateway.go        — paper fills for emitted orders
//	store/store.go         — JSON file persistence for positions
//
// How it trades:
//
//	A news item that survives dedup is matched against indexed prediction
//	markets, scored by an external oracle into a revised probability, and
//	compared with the on-book midpoint. Positive edge is staked at the
//	Kelly fraction, capped per trade and by remaining bankroll, then
//	emitted as an order on the bus.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wad-Law/ingestor/internal/config"
	"github.com/Wad-Law/ingestor/internal/engine"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("INGESTOR_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestor started",
		"bankroll", cfg.Strategy.Bankroll,
		"max_fraction_per_trade", cfg.Kelly.MaxFractionPerTrade,
		"belief_threshold", cfg.Analyst.BeliefThreshold,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
