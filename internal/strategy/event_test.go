package strategy

import (
	"testing"
	"time"

	"github.com/Wad-Law/ingestor/pkg/types"
)

func buildEvent(t *testing.T, title string, published *time.Time) CanonicalEvent {
	t.Helper()
	tok := Tokenize(types.RawNews{Title: title, Published: published}, DefaultTokenizationConfig())
	ex := NewFeatureExtractor(DefaultDictionaries())
	feats := ex.Extract(tok, testNow)
	return BuildCanonicalEvent(tok, feats, ex.Dictionaries(), testNow)
}

func TestCanonicalEventDomains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  Domain
	}{
		{"central bank news is macro", "Fed weighs another hike", DomainMacro},
		{"crypto asset news", "Bitcoin rallies past resistance", DomainCrypto},
		{"political news", "Congress votes on spending bill", DomainPolitical},
		{"nothing recognized", "local team wins championship", DomainUnspecified},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := buildEvent(t, tt.title, nil)
			if ev.Domain != tt.want {
				t.Errorf("Domain = %q, want %q", ev.Domain, tt.want)
			}
		})
	}
}

func TestCanonicalEventKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  EventKind
	}{
		{"central bank rate move", "Fed hikes rates by 25 bps", KindPolicyDecision},
		{"indicator release", "CPI report shows cooling", KindDataRelease},
		{"neither", "Bitcoin rallies", KindUnspecified},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := buildEvent(t, tt.title, nil)
			if ev.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", ev.Kind, tt.want)
			}
		})
	}
}

func TestCanonicalEventEntityOrdering(t *testing.T) {
	t.Parallel()
	ev := buildEvent(t, "Fed watches inflation closely", nil)

	if ev.PrimaryEntity != "Fed" {
		t.Errorf("PrimaryEntity = %q, want Fed (first occurrence wins)", ev.PrimaryEntity)
	}
	if ev.SecondaryEntity != "inflation" {
		t.Errorf("SecondaryEntity = %q, want inflation", ev.SecondaryEntity)
	}
}

func TestCanonicalEventLocation(t *testing.T) {
	t.Parallel()
	ev := buildEvent(t, "China GDP beats expectations", nil)

	if ev.Location != "China" {
		t.Errorf("Location = %q, want China", ev.Location)
	}
}

func TestCanonicalEventWindowFallsBackToPublished(t *testing.T) {
	t.Parallel()
	published := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)
	ev := buildEvent(t, "Fed hikes rates by 25 bps", &published)

	wantStart := published.Add(-24 * time.Hour)
	wantEnd := published.Add(24 * time.Hour)
	if !ev.Window.Start.Equal(wantStart) || !ev.Window.End.Equal(wantEnd) {
		t.Errorf("Window = [%v, %v], want published ± 24h", ev.Window.Start, ev.Window.End)
	}
}

func TestCanonicalEventWindowUsesExtractedPhrase(t *testing.T) {
	t.Parallel()
	ev := buildEvent(t, "Fed decision due this week", nil)

	wantStart := time.Date(2026, time.May, 11, 0, 0, 0, 0, time.UTC)
	if !ev.Window.Start.Equal(wantStart) {
		t.Errorf("Window.Start = %v, want extracted this-week start %v", ev.Window.Start, wantStart)
	}
}

func TestCanonicalEventIsPure(t *testing.T) {
	t.Parallel()
	a := buildEvent(t, "Fed hikes rates by 25 bps", nil)
	b := buildEvent(t, "Fed hikes rates by 25 bps", nil)

	if a != b {
		t.Errorf("same inputs produced different events:\n%+v\n%+v", a, b)
	}
}
