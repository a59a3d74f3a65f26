// Package index provides dual-modality retrieval over market metadata:
// a BM25-scored inverted index for lexical search and hashed feature
// vectors for semantic (paraphrase-tolerant) search. The index is
// in-memory, rebuilt incrementally from polymarket_events during a run, and
// monotonic: re-adding a market ID updates in place, nothing is removed.
package index

import (
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// BM25 constants; the standard defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// vectorDim is the dimensionality of the hashed feature vectors backing
// semantic search. Tokens are hashed into buckets with a hash-derived sign,
// which preserves cosine similarity between near-paraphrases without an
// embedding model.
const vectorDim = 256

// Candidate is a retrieval result: a market plus its retrieval weight and
// the metadata the hard filter needs.
type Candidate struct {
	MarketID    string
	Score       float64
	Question    string
	Description string
	Category    string
	EndTime     time.Time // zero when the market carries no end date
}

type record struct {
	id          string
	question    string
	description string
	category    string
	endTime     time.Time

	terms  map[string]int // term -> frequency within this doc
	length int            // total term count
	vector []float64      // normalized hashed feature vector
}

// TokenizerFunc turns raw text into the token stream the index scores.
// Documents and queries must go through the same function so both sides
// agree on token boundaries.
type TokenizerFunc func(text string) []string

// MarketIndex indexes market metadata for retrieval. Not safe for
// concurrent use; the strategy actor owns it exclusively.
type MarketIndex struct {
	tokenize TokenizerFunc
	docs     map[string]*record
	postings map[string]map[string]int // term -> docID -> tf
	totalLen int
}

// New creates an empty index tokenizing documents and queries with tok.
func New(tok TokenizerFunc) *MarketIndex {
	return &MarketIndex{
		tokenize: tok,
		docs:     make(map[string]*record),
		postings: make(map[string]map[string]int),
	}
}

// Len returns the number of indexed markets.
func (ix *MarketIndex) Len() int {
	return len(ix.docs)
}

// AddMarket indexes or re-indexes a market. Idempotent: successive calls
// with the same id replace the record; the indexed set never shrinks.
func (ix *MarketIndex) AddMarket(id, question, description, category string, endTime time.Time) {
	if id == "" {
		return
	}
	if old, ok := ix.docs[id]; ok {
		ix.removeTerms(id, old)
	}

	text := question + " " + description + " " + category
	tokens := ix.tokenize(text)

	rec := &record{
		id:          id,
		question:    question,
		description: description,
		category:    category,
		endTime:     endTime,
		terms:       make(map[string]int, len(tokens)),
		length:      len(tokens),
		vector:      hashedVector(tokens),
	}
	for _, tok := range tokens {
		rec.terms[tok]++
	}
	for term, tf := range rec.terms {
		posting, ok := ix.postings[term]
		if !ok {
			posting = make(map[string]int)
			ix.postings[term] = posting
		}
		posting[id] = tf
	}

	ix.docs[id] = rec
	ix.totalLen += rec.length
}

func (ix *MarketIndex) removeTerms(id string, old *record) {
	for term := range old.terms {
		if posting, ok := ix.postings[term]; ok {
			delete(posting, id)
			if len(posting) == 0 {
				delete(ix.postings, term)
			}
		}
	}
	ix.totalLen -= old.length
}

// Search runs BM25 over question+description+category and returns the
// top-k candidates by descending score. Ties break on market ID for
// deterministic output.
func (ix *MarketIndex) Search(tokens []string, k int) []Candidate {
	if len(ix.docs) == 0 || len(tokens) == 0 || k <= 0 {
		return nil
	}

	n := float64(len(ix.docs))
	avgLen := float64(ix.totalLen) / n

	// Collapse repeated query terms so each contributes once per occurrence
	// count rather than re-walking its posting list.
	queryTerms := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		queryTerms[tok]++
	}

	scores := make(map[string]float64)
	for term, qtf := range queryTerms {
		posting, ok := ix.postings[term]
		if !ok {
			continue
		}
		df := float64(len(posting))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for docID, tf := range posting {
			doc := ix.docs[docID]
			norm := bm25K1 * (1 - bm25B + bm25B*float64(doc.length)/avgLen)
			contrib := idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + norm)
			scores[docID] += contrib * float64(qtf)
		}
	}

	return ix.topK(scores, k)
}

// SearchSemantic retrieves the top-k candidates by cosine similarity
// between the query text's hashed feature vector and each market's vector.
func (ix *MarketIndex) SearchSemantic(rawText string, k int) []Candidate {
	if len(ix.docs) == 0 || k <= 0 {
		return nil
	}
	queryVec := hashedVector(ix.tokenize(rawText))
	if queryVec == nil {
		return nil
	}

	scores := make(map[string]float64, len(ix.docs))
	for id, doc := range ix.docs {
		if doc.vector == nil {
			continue
		}
		if sim := dot(queryVec, doc.vector); sim > 0 {
			scores[id] = sim
		}
	}

	return ix.topK(scores, k)
}

func (ix *MarketIndex) topK(scores map[string]float64, k int) []Candidate {
	out := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		doc := ix.docs[id]
		out = append(out, Candidate{
			MarketID:    id,
			Score:       score,
			Question:    doc.question,
			Description: doc.description,
			Category:    doc.category,
			EndTime:     doc.endTime,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].MarketID < out[j].MarketID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// FuseUnion combines two result lists keyed by market ID. First-seen wins
// on collision, so the caller passes the lexical list first: lexical scores
// carry the stronger precision signal for binary-market questions, while
// semantic results exist to recall paraphrases.
func FuseUnion(lexical, semantic []Candidate) []Candidate {
	out := make([]Candidate, 0, len(lexical)+len(semantic))
	seen := make(map[string]struct{}, len(lexical))
	for _, lists := range [][]Candidate{lexical, semantic} {
		for _, c := range lists {
			if _, dup := seen[c.MarketID]; dup {
				continue
			}
			seen[c.MarketID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// hashedVector folds tokens into a fixed-dimension signed bag-of-words
// vector and L2-normalizes it, so dot products are cosine similarities.
func hashedVector(tokens []string) []float64 {
	if len(tokens) == 0 {
		return nil
	}
	vec := make([]float64, vectorDim)
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := h % vectorDim
		if h&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
