package strategy

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// SimHash computes a 64-bit locality-sensitive hash over a token stream:
// each token's stable 64-bit hash votes +1/-1 on every bit position, and
// the sign of each accumulated column becomes that bit of the result.
// Similar token bags land within a small Hamming distance of each other.
func SimHash(tokens []string) uint64 {
	var acc [64]int
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		for i := 0; i < 64; i++ {
			if h&(1<<uint(i)) != 0 {
				acc[i]++
			} else {
				acc[i]--
			}
		}
	}

	var out uint64
	for i := 0; i < 64; i++ {
		if acc[i] > 0 {
			out |= 1 << uint(i)
		}
	}
	return out
}

// HammingDistance counts differing bit positions between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// SimHashCache suppresses near-duplicate stories. Storage is a bounded
// ring with FIFO eviction; the caller inserts only hashes that were not
// near-duplicates.
type SimHashCache struct {
	threshold int
	capacity  int
	ring      []uint64
	head      int
	count     int
}

// NewSimHashCache creates a cache flagging hashes within threshold Hamming
// distance of any stored hash.
func NewSimHashCache(threshold, capacity int) *SimHashCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &SimHashCache{
		threshold: threshold,
		capacity:  capacity,
		ring:      make([]uint64, capacity),
	}
}

// IsNearDuplicate reports whether any stored hash is within the threshold
// Hamming distance of h. Exact equality returns true without insertion;
// insertion of fresh hashes is the caller's call via Insert.
func (c *SimHashCache) IsNearDuplicate(h uint64) bool {
	for i := 0; i < c.count; i++ {
		if HammingDistance(c.ring[i], h) <= c.threshold {
			return true
		}
	}
	return false
}

// Insert stores a hash, evicting the oldest entry once the ring is full.
func (c *SimHashCache) Insert(h uint64) {
	if c.count < c.capacity {
		c.ring[(c.head+c.count)%c.capacity] = h
		c.count++
		return
	}
	c.ring[c.head] = h
	c.head = (c.head + 1) % c.capacity
}

// Len returns the number of stored hashes.
func (c *SimHashCache) Len() int {
	return c.count
}
