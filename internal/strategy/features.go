package strategy

import (
	"regexp"
	"time"

	"github.com/cloudflare/ahocorasick"
)

// EntityClass groups canonical labels for the coarse domain/kind heuristics
// downstream of extraction.
type EntityClass string

const (
	ClassCentralBank    EntityClass = "central_bank"
	ClassMacroIndicator EntityClass = "macro_indicator"
	ClassCountry        EntityClass = "country"
	ClassCryptoAsset    EntityClass = "crypto_asset"
	ClassPolitical      EntityClass = "political"
)

// FeatureDictionaries map lowercase surface forms to canonical entity
// labels, and labels to their class. Keep this minimal and composable —
// loadable from config later.
type FeatureDictionaries struct {
	Entities map[string]string      // lowercased pattern -> canonical label
	Classes  map[string]EntityClass // canonical label -> class
}

// DefaultDictionaries returns the curated minimal dictionary set.
func DefaultDictionaries() FeatureDictionaries {
	entities := map[string]string{
		// Central banks
		"ecb":             "ECB",
		"fed":             "Fed",
		"fomc":            "Fed",
		"bank of england": "BoE",
		"boj":             "BoJ",

		// Macro concepts
		"inflation": "inflation",
		"cpi":       "CPI",
		"gdp":       "GDP",

		// Countries (tiny sample)
		"united states": "US",
		"u.s.":          "US",
		"us":            "US",
		"china":         "China",
		"germany":       "Germany",

		// Crypto
		"bitcoin": "BTC",
		"btc":     "BTC",
		"ether":   "ETH",
		"eth":     "ETH",

		// Politics
		"election":    "election",
		"congress":    "Congress",
		"white house": "White House",
	}
	classes := map[string]EntityClass{
		"ECB":         ClassCentralBank,
		"Fed":         ClassCentralBank,
		"BoE":         ClassCentralBank,
		"BoJ":         ClassCentralBank,
		"inflation":   ClassMacroIndicator,
		"CPI":         ClassMacroIndicator,
		"GDP":         ClassMacroIndicator,
		"US":          ClassCountry,
		"China":       ClassCountry,
		"Germany":     ClassCountry,
		"BTC":         ClassCryptoAsset,
		"ETH":         ClassCryptoAsset,
		"election":    ClassPolitical,
		"Congress":    ClassPolitical,
		"White House": ClassPolitical,
	}
	return FeatureDictionaries{Entities: entities, Classes: classes}
}

// TimeWindow is a coarse UTC interval extracted from text.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// EventFeatures holds what extraction found in one news item.
type EventFeatures struct {
	Entities   []string // canonical labels in match order; each surface form is reported once per text, so a label repeats only when several of its forms occur
	TimeWindow *TimeWindow
}

// Contains reports whether t falls inside the window (inclusive bounds).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

var reDatePhrase = regexp.MustCompile(
	`\b(year[- ]end|year end|next week|this week|next month|this month|q[1-4])\b`)

// FeatureExtractor tags entities and derives coarse time windows from
// normalized news text. The automaton runs over the normalized string, not
// the token list, so multi-word surface forms still match. Built once per
// dictionary; rebuild on dictionary change.
type FeatureExtractor struct {
	matcher *ahocorasick.Matcher
	labels  []string // pattern index -> canonical label
	dicts   FeatureDictionaries
}

// NewFeatureExtractor compiles the dictionaries into a multi-pattern
// automaton. Dictionary keys must be lowercase; normalization guarantees
// the text is.
func NewFeatureExtractor(dicts FeatureDictionaries) *FeatureExtractor {
	patterns := make([]string, 0, len(dicts.Entities))
	labels := make([]string, 0, len(dicts.Entities))
	for pat, label := range dicts.Entities {
		patterns = append(patterns, pat)
		labels = append(labels, label)
	}

	return &FeatureExtractor{
		matcher: ahocorasick.NewStringMatcher(patterns),
		labels:  labels,
		dicts:   dicts,
	}
}

// Dictionaries exposes the compiled dictionaries for downstream class
// lookups.
func (e *FeatureExtractor) Dictionaries() FeatureDictionaries {
	return e.dicts
}

// Extract tags entities and derives the time window, with window phrases
// resolved relative to now.
func (e *FeatureExtractor) Extract(tok TokenizedNews, now time.Time) EventFeatures {
	return EventFeatures{
		Entities:   e.extractEntities(tok.Normalized),
		TimeWindow: deriveTimeWindow(tok.Normalized, now),
	}
}

func (e *FeatureExtractor) extractEntities(text string) []string {
	hits := e.matcher.Match([]byte(text))
	entities := make([]string, 0, len(hits))
	for _, idx := range hits {
		entities = append(entities, e.labels[idx])
	}
	return entities
}

// deriveTimeWindow scans for the fixed phrase vocabulary; first match wins.
func deriveTimeWindow(text string, now time.Time) *TimeWindow {
	m := reDatePhrase.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return mapPhraseToWindow(m[1], now.UTC())
}

func mapPhraseToWindow(phrase string, now time.Time) *TimeWindow {
	switch phrase {
	case "year-end", "year end":
		end := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)
		return &TimeWindow{Start: now, End: end}

	case "this week":
		start := startOfISOWeek(now)
		return &TimeWindow{Start: start, End: endOfWeek(start)}

	case "next week":
		start := startOfISOWeek(now).AddDate(0, 0, 7)
		return &TimeWindow{Start: start, End: endOfWeek(start)}

	case "this month", "next month":
		year, month := now.Year(), now.Month()
		if phrase == "next month" {
			if month == time.December {
				year, month = year+1, time.January
			} else {
				month++
			}
		}
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		return &TimeWindow{Start: start, End: end}
	}

	if len(phrase) == 2 && phrase[0] == 'q' {
		q := int(phrase[1] - '0')
		if q < 1 || q > 4 {
			return nil
		}
		startMonth := time.Month(3*(q-1) + 1)
		endMonth := startMonth + 2
		start := time.Date(now.Year(), startMonth, 1, 0, 0, 0, 0, time.UTC)
		// Loose quarter-end phrasing gets ~a week of forgiveness.
		end := time.Date(now.Year(), endMonth, 28, 23, 59, 59, 0, time.UTC).AddDate(0, 0, 7)
		return &TimeWindow{Start: start, End: end}
	}

	return nil
}

// startOfISOWeek returns Monday 00:00:00 UTC of the week containing t.
func startOfISOWeek(t time.Time) time.Time {
	daysFromMonday := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -daysFromMonday)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfWeek(monday time.Time) time.Time {
	return monday.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
}
