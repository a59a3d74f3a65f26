// Package strategy implements the news-to-orders decision pipeline:
// dedup → tokenize → feature extraction → candidate retrieval → hard
// filtering → oracle scoring → Kelly sizing → order synthesis, and the
// actor that runs it off the bus.
//
// All algorithmic stages except oracle scoring are synchronous and
// deterministic; the analyst calls the external oracle, and only the actor
// touches the bus.
package strategy

import (
	"strings"
	"unicode"

	"github.com/Wad-Law/ingestor/pkg/types"
)

// TokenizationConfig controls normalization and token filtering.
type TokenizationConfig struct {
	Lowercase   bool
	StripPunct  bool
	MinTokenLen int
	StopWords   map[string]struct{}
}

// DefaultTokenizationConfig lowercases, strips punctuation, and removes a
// small English stop-word list.
func DefaultTokenizationConfig() TokenizationConfig {
	stop := map[string]struct{}{}
	for _, w := range []string{
		"a", "an", "the", "and", "or", "of", "to", "in", "on", "for",
		"by", "at", "as", "is", "are", "was", "be", "with", "that", "it",
	} {
		stop[w] = struct{}{}
	}
	return TokenizationConfig{
		Lowercase:   true,
		StripPunct:  true,
		MinTokenLen: 2,
		StopWords:   stop,
	}
}

// TokenizedNews is the derived, reproducible form of a RawNews: the
// normalized text feeds the entity automaton, the token list feeds
// retrieval and simhash.
type TokenizedNews struct {
	Raw        types.RawNews
	Normalized string
	Tokens     []string
}

// Tokenize normalizes and tokenizes a news item. Title and description are
// joined with a single space before normalization; tokens come back in
// source order. Pure function of (news, cfg).
func Tokenize(news types.RawNews, cfg TokenizationConfig) TokenizedNews {
	text := news.Title
	if news.Description != "" {
		text = text + " " + news.Description
	}

	normalized := Normalize(text, cfg)
	return TokenizedNews{Raw: news, Normalized: normalized, Tokens: filterTokens(normalized, cfg)}
}

// TokenizeText normalizes and tokenizes arbitrary text with the same rules
// as Tokenize. The market index uses this for documents and queries so both
// sides agree on token boundaries.
func TokenizeText(text string, cfg TokenizationConfig) []string {
	return filterTokens(Normalize(text, cfg), cfg)
}

func filterTokens(normalized string, cfg TokenizationConfig) []string {
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) < cfg.MinTokenLen {
			continue
		}
		if _, stop := cfg.StopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Normalize applies the config's case folding and punctuation collapsing to
// arbitrary text. Punctuation runs collapse to a single space so that
// multi-word dictionary entries still match across "U.S.-China" style
// joins.
func Normalize(text string, cfg TokenizationConfig) string {
	if cfg.Lowercase {
		text = strings.ToLower(text)
	}
	if cfg.StripPunct {
		var b strings.Builder
		b.Grow(len(text))
		lastSpace := false
		for _, r := range text {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
				lastSpace = false
				continue
			}
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		text = b.String()
	}
	return strings.TrimSpace(text)
}
