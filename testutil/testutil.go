package testutil

import (
	"bytes"
	"math"
	"math/rand"
	"slices"
	"sync"
)

// Alphabets for key generation.
const (
	Lowercase    = "abcdefghijklmnopqrstuvwxyz"
	Alphanumeric = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Binary       = "\x00\x01\x02\x7f\x80\xfe\xff"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Key returns a random key of length [minLen, maxLen] over alphabet.
func (r *RNG) Key(minLen, maxLen int, alphabet string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keyLocked(minLen, maxLen, alphabet)
}

func (r *RNG) keyLocked(minLen, maxLen int, alphabet string) []byte {
	n := minLen
	if maxLen > minLen {
		n += r.rand.Intn(maxLen - minLen + 1)
	}
	k := make([]byte, n)
	for i := range k {
		k[i] = alphabet[r.rand.Intn(len(alphabet))]
	}
	return k
}

// SortedKeys generates up to n distinct keys in ascending byte order.
// Fewer keys are returned when the key space is too small.
func (r *RNG) SortedKeys(n, minLen, maxLen int, alphabet string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, n)
	keys := make([][]byte, 0, n)
	for attempts := 0; len(keys) < n && attempts < n*20; attempts++ {
		k := r.keyLocked(minLen, maxLen, alphabet)
		if _, ok := seen[string(k)]; ok {
			continue
		}
		seen[string(k)] = struct{}{}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, bytes.Compare)
	return keys
}

// PrefixedKeys generates perPrefix distinct keys below each prefix, each with
// a random lowercase suffix of up to suffixLen bytes, in ascending order.
func (r *RNG) PrefixedKeys(prefixes []string, perPrefix, suffixLen int) [][]byte {
	var keys [][]byte
	for _, p := range prefixes {
		for _, s := range r.SortedKeys(perPrefix, 1, suffixLen, Lowercase) {
			keys = append(keys, append([]byte(p), s...))
		}
	}
	slices.SortFunc(keys, bytes.Compare)
	return slices.CompactFunc(keys, bytes.Equal)
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// Document frequencies of real term dictionaries follow this shape.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// DocIDs returns count distinct ascending document ids below maxDoc.
func (r *RNG) DocIDs(count int, maxDoc uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	count = min(count, int(maxDoc))
	seen := make(map[uint32]struct{}, count)
	ids := make([]uint32, 0, count)
	for len(ids) < count {
		id := uint32(r.rand.Int63n(int64(maxDoc)))
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
