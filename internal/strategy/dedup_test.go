package strategy

import (
	"fmt"
	"testing"

	"github.com/Wad-Law/ingestor/pkg/types"
)

func TestExactDuplicateDetector(t *testing.T) {
	t.Parallel()
	d := NewExactDuplicateDetector(8)

	news := types.RawNews{Title: "Fed hikes rates by 25 bps", Description: "desc"}

	if d.IsDuplicate(news) {
		t.Error("first sighting flagged as duplicate")
	}
	if !d.IsDuplicate(news) {
		t.Error("second sighting not flagged as duplicate")
	}
}

func TestExactDuplicateDetectorDistinctContent(t *testing.T) {
	t.Parallel()
	d := NewExactDuplicateDetector(8)

	a := types.RawNews{Title: "Fed hikes rates"}
	b := types.RawNews{Title: "ECB holds rates"}

	if d.IsDuplicate(a) || d.IsDuplicate(b) {
		t.Error("distinct content flagged as duplicate")
	}
}

func TestExactDuplicateDetectorFIFOEviction(t *testing.T) {
	t.Parallel()
	d := NewExactDuplicateDetector(2)

	n1 := types.RawNews{Title: "one"}
	n2 := types.RawNews{Title: "two"}
	n3 := types.RawNews{Title: "three"}

	d.IsDuplicate(n1)
	d.IsDuplicate(n2)
	d.IsDuplicate(n3) // evicts n1

	if d.Len() != 2 {
		t.Errorf("Len = %d, want 2", d.Len())
	}
	if d.IsDuplicate(n1) {
		t.Error("evicted fingerprint still flagged as duplicate")
	}
	// Re-checking n1 evicted n2 in turn; n3 must survive.
	if !d.IsDuplicate(n3) {
		t.Error("recent fingerprint lost")
	}
}

func TestSimHashSimilarBagsAreClose(t *testing.T) {
	t.Parallel()

	base := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		base = append(base, fmt.Sprintf("token%02d", i))
	}
	variant := append(append([]string{}, base...), "extra")

	d := HammingDistance(SimHash(base), SimHash(variant))
	if d > 16 {
		t.Errorf("near-identical bags Hamming distance = %d, want small", d)
	}

	unrelated := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		unrelated = append(unrelated, fmt.Sprintf("other%02d", i))
	}
	far := HammingDistance(SimHash(base), SimHash(unrelated))
	if far <= d {
		t.Errorf("unrelated bags (%d) not farther than similar bags (%d)", far, d)
	}
}

func TestSimHashCacheExactEquality(t *testing.T) {
	t.Parallel()
	c := NewSimHashCache(3, 8)

	h := SimHash([]string{"fed", "hikes", "rates"})
	if c.IsNearDuplicate(h) {
		t.Error("empty cache reported a near-duplicate")
	}
	c.Insert(h)

	// Exact equality is a near-duplicate; the caller never re-inserts.
	if !c.IsNearDuplicate(h) {
		t.Error("stored hash not reported as near-duplicate")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestSimHashCacheThreshold(t *testing.T) {
	t.Parallel()
	c := NewSimHashCache(3, 8)

	var h uint64 = 0xDEADBEEF00000000
	c.Insert(h)

	tests := []struct {
		name string
		h    uint64
		want bool
	}{
		{"distance 0", h, true},
		{"distance 2", h ^ 0b11, true},
		{"distance 3", h ^ 0b111, true},
		{"distance 4", h ^ 0b1111, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.IsNearDuplicate(tt.h); got != tt.want {
				t.Errorf("IsNearDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimHashCacheFIFOEviction(t *testing.T) {
	t.Parallel()
	c := NewSimHashCache(0, 2) // exact matches only

	c.Insert(1 << 10)
	c.Insert(1 << 20)
	c.Insert(1 << 30) // evicts 1<<10

	if c.IsNearDuplicate(1 << 10) {
		t.Error("evicted hash still matches")
	}
	if !c.IsNearDuplicate(1<<20) || !c.IsNearDuplicate(1<<30) {
		t.Error("retained hashes lost")
	}
}
