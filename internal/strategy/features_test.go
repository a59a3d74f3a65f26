package strategy

import (
	"testing"
	"time"

	"github.com/Wad-Law/ingestor/pkg/types"
)

func makeTokenized(t *testing.T, text string) TokenizedNews {
	t.Helper()
	return Tokenize(types.RawNews{Title: text, Feed: "test"}, DefaultTokenizationConfig())
}

func TestEntityExtraction(t *testing.T) {
	t.Parallel()
	ex := NewFeatureExtractor(DefaultDictionaries())

	feats := ex.Extract(makeTokenized(t, "Fed discuss inflation"), time.Now().UTC())

	want := map[string]bool{"Fed": false, "inflation": false}
	for _, e := range feats.Entities {
		if _, ok := want[e]; ok {
			want[e] = true
		}
	}
	for label, found := range want {
		if !found {
			t.Errorf("entity %q not extracted from %v", label, feats.Entities)
		}
	}
}

func TestEntityExtractionMultiWordSurfaceForm(t *testing.T) {
	t.Parallel()
	ex := NewFeatureExtractor(DefaultDictionaries())

	feats := ex.Extract(makeTokenized(t, "Bank of England signals a cut"), time.Now().UTC())

	found := false
	for _, e := range feats.Entities {
		if e == "BoE" {
			found = true
		}
	}
	if !found {
		t.Errorf("multi-word surface form not canonicalized, got %v", feats.Entities)
	}
}

// now anchors window tests mid-week, mid-quarter: Wednesday 2026-05-13.
var testNow = time.Date(2026, time.May, 13, 15, 30, 0, 0, time.UTC)

func TestTimeWindows(t *testing.T) {
	t.Parallel()
	ex := NewFeatureExtractor(DefaultDictionaries())

	tests := []struct {
		name      string
		text      string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "year-end",
			text:      "targets expected by year-end",
			wantStart: testNow,
			wantEnd:   time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "this week",
			text:      "decision due this week",
			wantStart: time.Date(2026, time.May, 11, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.May, 17, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "next week",
			text:      "outlook for next week",
			wantStart: time.Date(2026, time.May, 18, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.May, 24, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "this month",
			text:      "data due this month",
			wantStart: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.May, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "next month",
			text:      "review next month",
			wantStart: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.June, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "q4 with loose tail",
			text:      "guidance for q4",
			wantStart: time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2027, time.January, 4, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			feats := ex.Extract(makeTokenized(t, tt.text), testNow)
			if feats.TimeWindow == nil {
				t.Fatalf("no time window extracted from %q", tt.text)
			}
			if !feats.TimeWindow.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", feats.TimeWindow.Start, tt.wantStart)
			}
			if !feats.TimeWindow.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", feats.TimeWindow.End, tt.wantEnd)
			}
		})
	}
}

func TestTimeWindowFirstMatchWins(t *testing.T) {
	t.Parallel()
	ex := NewFeatureExtractor(DefaultDictionaries())

	feats := ex.Extract(makeTokenized(t, "due this week not next month"), testNow)
	if feats.TimeWindow == nil {
		t.Fatal("no time window extracted")
	}
	wantStart := time.Date(2026, time.May, 11, 0, 0, 0, 0, time.UTC)
	if !feats.TimeWindow.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want this-week start %v", feats.TimeWindow.Start, wantStart)
	}
}

func TestNoTimeWindow(t *testing.T) {
	t.Parallel()
	ex := NewFeatureExtractor(DefaultDictionaries())

	feats := ex.Extract(makeTokenized(t, "Fed hikes rates by 25 bps"), testNow)
	if feats.TimeWindow != nil {
		t.Errorf("unexpected time window %+v", feats.TimeWindow)
	}
}

func TestTimeWindowContains(t *testing.T) {
	t.Parallel()
	w := TimeWindow{
		Start: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.May, 31, 23, 59, 59, 0, time.UTC),
	}

	if !w.Contains(w.Start) || !w.Contains(w.End) {
		t.Error("bounds should be inclusive")
	}
	if w.Contains(w.End.Add(time.Second)) {
		t.Error("time past End reported inside window")
	}
}
