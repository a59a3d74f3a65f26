package strategy

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/internal/index"
	"github.com/Wad-Law/ingestor/internal/oracle"
	"github.com/Wad-Law/ingestor/pkg/types"
)

// fallbackQuestion stands in when no snapshot is cached for a candidate.
const fallbackQuestion = "Unknown Market Question"

var (
	half = decimal.RequireFromString("0.5")
	one  = decimal.NewFromInt(1)
)

// EdgedCandidate is a candidate that cleared the belief threshold: the
// oracle's revised probability against the current on-book price.
type EdgedCandidate struct {
	Candidate   index.Candidate
	Score       decimal.Decimal // belief weight; set equal to Probability
	Probability decimal.Decimal // belief the chosen side's outcome wins, in [0,1]
	MarketPrice decimal.Decimal // book midpoint, in [0,1]
	Edge        decimal.Decimal // Probability - MarketPrice
	Side        types.Side
}

// Analyst scores candidates against a news item through the external
// oracle. Oracle failures drop the candidate, never the pipeline.
type Analyst struct {
	scorer          oracle.Scorer
	topCandidates   int
	beliefThreshold decimal.Decimal
	logger          *slog.Logger
}

// NewAnalyst creates an analyst scoring at most topCandidates per news item
// and keeping only beliefs strictly above beliefThreshold.
func NewAnalyst(scorer oracle.Scorer, topCandidates int, beliefThreshold float64, logger *slog.Logger) *Analyst {
	return &Analyst{
		scorer:          scorer,
		topCandidates:   topCandidates,
		beliefThreshold: decimal.NewFromFloat(beliefThreshold),
		logger:          logger.With("component", "analyst"),
	}
}

// AnalyzeCandidates scores the top-N candidates and returns those whose
// revised probability clears the belief threshold.
//
// Sentiment maps to a direction and a probability:
//
//	Positive → BuyYes, p = 0.5 + 0.5·confidence
//	Negative → BuyNo,  p = 0.5 + 0.5·confidence
//	Neutral  → BuyYes, p = 0.5
//
// Market price is the cached snapshot's midpoint, or 0.5 when no snapshot
// arrived in time. The caller must have run ensure_market_data first; the
// analyst has no bus access to request data itself.
func (a *Analyst) AnalyzeCandidates(
	ctx context.Context,
	news types.RawNews,
	candidates []index.Candidate,
	cache map[string]types.MarketDataSnap,
) []EdgedCandidate {
	top := candidates
	if len(top) > a.topCandidates {
		top = top[:a.topCandidates]
	}

	var edged []EdgedCandidate
	for _, cand := range top {
		question := fallbackQuestion
		if snap, ok := cache[cand.MarketID]; ok && snap.Question != "" {
			question = snap.Question
		}

		signal, err := a.scorer.Analyze(ctx, news.Title, question)
		if err != nil {
			a.logger.Warn("oracle analysis failed, dropping candidate",
				"market_id", cand.MarketID, "error", err)
			continue
		}

		a.logger.Info("oracle signal",
			"market_id", cand.MarketID,
			"sentiment", signal.Sentiment,
			"confidence", signal.Confidence,
		)

		side, prob := signalToBelief(signal)
		if prob.Cmp(a.beliefThreshold) <= 0 {
			continue
		}

		marketPrice := half
		if snap, ok := cache[cand.MarketID]; ok {
			if mid, hasMid := snap.Mid(); hasMid {
				marketPrice = mid
			}
		}

		edged = append(edged, EdgedCandidate{
			Candidate:   cand,
			Score:       prob,
			Probability: prob,
			MarketPrice: marketPrice,
			Edge:        prob.Sub(marketPrice),
			Side:        side,
		})
	}
	return edged
}

// signalToBelief converts an oracle judgment into a trade direction and the
// probability the chosen outcome resolves favorably. Confidence is clamped
// into [0,1] at this boundary; probabilities stay in [0.5, 1].
func signalToBelief(sig oracle.Signal) (types.Side, decimal.Decimal) {
	conf := decimal.NewFromFloat(sig.Confidence)
	if conf.Sign() < 0 {
		conf = decimal.Zero
	}
	if conf.Cmp(one) > 0 {
		conf = one
	}
	prob := half.Add(half.Mul(conf))

	switch sig.Sentiment {
	case "Positive":
		return types.BuyYes, prob
	case "Negative":
		return types.BuyNo, prob
	default:
		return types.BuyYes, half
	}
}
