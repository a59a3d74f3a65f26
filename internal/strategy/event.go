package strategy

import (
	"strings"
	"time"
)

// Domain is the coarse subject-matter guess for a news event.
type Domain string

const (
	DomainMacro       Domain = "macro"
	DomainCrypto      Domain = "crypto"
	DomainPolitical   Domain = "political"
	DomainUnspecified Domain = "unspecified"
)

// EventKind is the coarse shape of what the news reports.
type EventKind string

const (
	KindPolicyDecision EventKind = "policy_decision"
	KindDataRelease    EventKind = "data_release"
	KindUnspecified    EventKind = "unspecified"
)

// CanonicalEvent is the promoted event record the pipeline logs and future
// scoring passes can key on.
type CanonicalEvent struct {
	Domain          Domain
	Kind            EventKind
	PrimaryEntity   string
	SecondaryEntity string
	Location        string // first country-class entity
	Window          TimeWindow
}

// BuildCanonicalEvent promotes extracted features into a canonical event.
// Pure function: entity ordering is first-occurrence-wins, the effective
// window falls back to published ± 24h (or now ± 24h for undated items).
func BuildCanonicalEvent(tok TokenizedNews, feats EventFeatures, dicts FeatureDictionaries, now time.Time) CanonicalEvent {
	classes := make([]EntityClass, 0, len(feats.Entities))
	distinct := make([]string, 0, len(feats.Entities))
	seen := make(map[string]struct{}, len(feats.Entities))
	var location string

	for _, label := range feats.Entities {
		class := dicts.Classes[label]
		classes = append(classes, class)
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			distinct = append(distinct, label)
		}
		if location == "" && class == ClassCountry {
			location = label
		}
	}

	ev := CanonicalEvent{
		Domain:   guessDomain(classes),
		Kind:     guessKind(classes, tok.Normalized),
		Location: location,
		Window:   effectiveWindow(tok, feats, now),
	}
	if len(distinct) > 0 {
		ev.PrimaryEntity = distinct[0]
	}
	if len(distinct) > 1 {
		ev.SecondaryEntity = distinct[1]
	}
	return ev
}

func guessDomain(classes []EntityClass) Domain {
	for _, c := range classes {
		switch c {
		case ClassCentralBank, ClassMacroIndicator:
			return DomainMacro
		case ClassCryptoAsset:
			return DomainCrypto
		case ClassPolitical:
			return DomainPolitical
		}
	}
	return DomainUnspecified
}

func guessKind(classes []EntityClass, normalized string) EventKind {
	hasCentralBank := false
	hasIndicator := false
	for _, c := range classes {
		if c == ClassCentralBank {
			hasCentralBank = true
		}
		if c == ClassMacroIndicator {
			hasIndicator = true
		}
	}

	if hasCentralBank &&
		(strings.Contains(normalized, "hike") || strings.Contains(normalized, "cut") ||
			strings.Contains(normalized, "decision") || strings.Contains(normalized, "rate")) {
		return KindPolicyDecision
	}
	if hasIndicator &&
		(strings.Contains(normalized, "release") || strings.Contains(normalized, "report") ||
			strings.Contains(normalized, "data")) {
		return KindDataRelease
	}
	return KindUnspecified
}

func effectiveWindow(tok TokenizedNews, feats EventFeatures, now time.Time) TimeWindow {
	if feats.TimeWindow != nil {
		return *feats.TimeWindow
	}
	anchor := now
	if tok.Raw.Published != nil {
		anchor = *tok.Raw.Published
	}
	return TimeWindow{Start: anchor.Add(-24 * time.Hour), End: anchor.Add(24 * time.Hour)}
}
