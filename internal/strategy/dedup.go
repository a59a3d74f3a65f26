package strategy

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/Wad-Law/ingestor/pkg/types"
)

// ExactDuplicateDetector suppresses reruns of the same story. It keeps a
// bounded set of content fingerprints (hash over normalized title +
// description); when the set is full the oldest fingerprint is evicted
// FIFO. Lookup and insert are O(1) average. Not cryptographic — collisions
// just cost one dropped story.
type ExactDuplicateDetector struct {
	capacity int
	seen     map[uint64]struct{}
	order    []uint64 // insertion order ring
	head     int
}

// NewExactDuplicateDetector creates a detector retaining up to capacity
// fingerprints.
func NewExactDuplicateDetector(capacity int) *ExactDuplicateDetector {
	if capacity <= 0 {
		capacity = 1
	}
	return &ExactDuplicateDetector{
		capacity: capacity,
		seen:     make(map[uint64]struct{}, capacity),
		order:    make([]uint64, 0, capacity),
	}
}

// IsDuplicate reports whether this news item's content was seen before.
// New fingerprints are recorded; duplicates leave the set untouched.
func (d *ExactDuplicateDetector) IsDuplicate(news types.RawNews) bool {
	fp := Fingerprint(news)
	if _, ok := d.seen[fp]; ok {
		return true
	}
	d.insert(fp)
	return false
}

func (d *ExactDuplicateDetector) insert(fp uint64) {
	if len(d.order) == d.capacity {
		oldest := d.order[d.head]
		delete(d.seen, oldest)
		d.order[d.head] = fp
		d.head = (d.head + 1) % d.capacity
	} else {
		d.order = append(d.order, fp)
	}
	d.seen[fp] = struct{}{}
}

// Len returns the number of retained fingerprints.
func (d *ExactDuplicateDetector) Len() int {
	return len(d.seen)
}

// Fingerprint hashes a news item's normalized title+description content.
func Fingerprint(news types.RawNews) uint64 {
	text := strings.ToLower(strings.TrimSpace(news.Title + " " + news.Description))
	return xxhash.Sum64String(text)
}
