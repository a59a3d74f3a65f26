package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/internal/index"
	"github.com/Wad-Law/ingestor/internal/oracle"
	"github.com/Wad-Law/ingestor/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScorer returns the same canned signal for every market question and
// records each question asked; err, when set, applies to all.
type fakeScorer struct {
	signal    oracle.Signal
	err       error
	questions []string // records what the analyst asked about
}

func (f *fakeScorer) Analyze(_ context.Context, _, marketQuestion string) (oracle.Signal, error) {
	f.questions = append(f.questions, marketQuestion)
	if f.err != nil {
		return oracle.Signal{}, f.err
	}
	return f.signal, nil
}

func snapWithMid(marketID, question, bid, ask string) types.MarketDataSnap {
	return types.MarketDataSnap{
		MarketID: marketID,
		Question: question,
		BestBid:  dec(bid),
		BestAsk:  dec(ask),
	}
}

func TestAnalystPositiveSignal(t *testing.T) {
	t.Parallel()
	scorer := &fakeScorer{signal: oracle.Signal{Sentiment: "Positive", Confidence: 0.8}}
	a := NewAnalyst(scorer, 5, 0.6, testLogger())

	cache := map[string]types.MarketDataSnap{
		"M1": snapWithMid("M1", "Will the Fed hike?", "0.55", "0.57"),
	}
	edged := a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "Fed hikes"},
		[]index.Candidate{{MarketID: "M1"}}, cache)

	if len(edged) != 1 {
		t.Fatalf("edged %d candidates, want 1", len(edged))
	}
	e := edged[0]
	if e.Side != types.BuyYes {
		t.Errorf("Side = %q, want BuyYes", e.Side)
	}
	if !e.Probability.Equal(dec("0.9")) {
		t.Errorf("Probability = %s, want 0.9", e.Probability)
	}
	if !e.MarketPrice.Equal(dec("0.56")) {
		t.Errorf("MarketPrice = %s, want 0.56", e.MarketPrice)
	}
	if !e.Edge.Equal(e.Probability.Sub(e.MarketPrice)) {
		t.Errorf("Edge = %s, want probability - market_price", e.Edge)
	}
}

func TestAnalystNegativeSignalBuysNo(t *testing.T) {
	t.Parallel()
	scorer := &fakeScorer{signal: oracle.Signal{Sentiment: "Negative", Confidence: 0.6}}
	a := NewAnalyst(scorer, 5, 0.6, testLogger())

	edged := a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "n"},
		[]index.Candidate{{MarketID: "M1"}}, nil)

	if len(edged) != 1 {
		t.Fatalf("edged %d candidates, want 1", len(edged))
	}
	if edged[0].Side != types.BuyNo {
		t.Errorf("Side = %q, want BuyNo", edged[0].Side)
	}
	if !edged[0].Probability.Equal(dec("0.8")) {
		t.Errorf("Probability = %s, want 0.8", edged[0].Probability)
	}
}

func TestAnalystBeliefThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		signal     oracle.Signal
		wantPassed bool
	}{
		{"neutral is exactly 0.5", oracle.Signal{Sentiment: "Neutral", Confidence: 0.9}, false},
		{"low confidence under threshold", oracle.Signal{Sentiment: "Positive", Confidence: 0.1}, false},
		{"exactly at threshold rejected", oracle.Signal{Sentiment: "Positive", Confidence: 0.2}, false},
		{"above threshold kept", oracle.Signal{Sentiment: "Positive", Confidence: 0.3}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewAnalyst(&fakeScorer{signal: tt.signal}, 5, 0.6, testLogger())
			edged := a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "n"},
				[]index.Candidate{{MarketID: "M1"}}, nil)
			if passed := len(edged) == 1; passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v", passed, tt.wantPassed)
			}
		})
	}
}

func TestAnalystMissingSnapshotFallsBack(t *testing.T) {
	t.Parallel()
	scorer := &fakeScorer{signal: oracle.Signal{Sentiment: "Positive", Confidence: 0.8}}
	a := NewAnalyst(scorer, 5, 0.6, testLogger())

	edged := a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "n"},
		[]index.Candidate{{MarketID: "M2"}}, map[string]types.MarketDataSnap{})

	if len(edged) != 1 {
		t.Fatalf("edged %d candidates, want 1", len(edged))
	}
	if !edged[0].MarketPrice.Equal(dec("0.5")) {
		t.Errorf("MarketPrice = %s, want 0.5 fallback", edged[0].MarketPrice)
	}
	if len(scorer.questions) != 1 || scorer.questions[0] != "Unknown Market Question" {
		t.Errorf("oracle asked %v, want fallback question", scorer.questions)
	}
}

func TestAnalystOracleErrorDropsCandidateOnly(t *testing.T) {
	t.Parallel()
	scorer := &fakeScorer{err: errors.New("oracle down")}
	a := NewAnalyst(scorer, 5, 0.6, testLogger())

	edged := a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "n"},
		[]index.Candidate{{MarketID: "M1"}, {MarketID: "M2"}}, nil)

	if len(edged) != 0 {
		t.Errorf("edged %d candidates despite oracle errors, want 0", len(edged))
	}
	if len(scorer.questions) != 2 {
		t.Errorf("oracle consulted %d times, want 2 (errors must not abort the batch)", len(scorer.questions))
	}
}

func TestAnalystHonorsTopCandidates(t *testing.T) {
	t.Parallel()
	scorer := &fakeScorer{signal: oracle.Signal{Sentiment: "Positive", Confidence: 0.8}}
	a := NewAnalyst(scorer, 2, 0.6, testLogger())

	candidates := []index.Candidate{{MarketID: "M1"}, {MarketID: "M2"}, {MarketID: "M3"}}
	a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "n"}, candidates, nil)

	if len(scorer.questions) != 2 {
		t.Errorf("oracle consulted %d times, want top 2 only", len(scorer.questions))
	}
}

func TestAnalystClampsConfidence(t *testing.T) {
	t.Parallel()
	scorer := &fakeScorer{signal: oracle.Signal{Sentiment: "Positive", Confidence: 3.0}}
	a := NewAnalyst(scorer, 5, 0.6, testLogger())

	edged := a.AnalyzeCandidates(context.Background(), types.RawNews{Title: "n"},
		[]index.Candidate{{MarketID: "M1"}}, nil)

	if len(edged) != 1 {
		t.Fatalf("edged %d candidates, want 1", len(edged))
	}
	if edged[0].Probability.Cmp(decimal.NewFromInt(1)) > 0 {
		t.Errorf("Probability = %s, want clamped to [0,1]", edged[0].Probability)
	}
}
