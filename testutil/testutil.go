package testutil

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
)

const hexDigits = "0123456789abcdef"

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

// Hex returns a random lowercase hex string of n digits.
func (r *RNG) Hex(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hexLocked(n)
}

func (r *RNG) hexLocked(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(hexDigits[r.rand.Intn(16)])
	}
	return sb.String()
}

// HexSet generates num random fingerprints of n digits each.
func (r *RNG) HexSet(num, n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, num)
	for i := range out {
		out[i] = r.hexLocked(n)
	}
	return out
}

// Mutate returns hash with flips random bits inverted. The same bit may be
// chosen twice, so the distance to hash is at most flips.
func (r *RNG) Mutate(hash string, flips int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := []byte(hash)
	for range flips {
		pos := r.rand.Intn(len(b))
		bit := byte(1) << r.rand.Intn(4)
		v := strings.IndexByte(hexDigits, b[pos])
		b[pos] = hexDigits[byte(v)^bit]
	}
	return string(b)
}

// ClusteredHexSet generates num fingerprints of n digits grouped around
// clusters random centroids, each at most spread bits from its centroid.
// Useful for pair searches that should find matches.
func (r *RNG) ClusteredHexSet(num, n, clusters, spread int) []string {
	centroids := r.HexSet(clusters, n)

	out := make([]string, num)
	for i := range out {
		out[i] = r.Mutate(centroids[i%clusters], spread)
	}
	return out
}

// Pixels returns a random pixel buffer of width*height pixels with the given
// channel stride.
func (r *RNG) Pixels(width, height, stride int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	pix := make([]byte, width*height*stride)
	r.rand.Read(pix)
	return pix
}

// Pair mirrors an (i, j) index pair with i < j.
type Pair struct {
	I, J int
}

// ExactPairs returns every pair within threshold by comparing digit by digit.
// It is the ground truth for pair-search tests.
func ExactPairs(hashes []string, threshold int, dist func(a, b string) int) []Pair {
	var out []Pair
	for i := range hashes {
		for j := i + 1; j < len(hashes); j++ {
			d := dist(hashes[i], hashes[j])
			if d >= 0 && d <= threshold {
				out = append(out, Pair{I: i, J: j})
			}
		}
	}
	return out
}

// Bucket mirrors a contiguous index range.
type Bucket struct {
	Start, Size int
}

// PrefixBuckets sorts hashes by their first prefixLen digits and returns the
// sorted copy with one bucket per distinct prefix, the way a host prepares
// input for the bucketed search.
func PrefixBuckets(hashes []string, prefixLen int) ([]string, []Bucket) {
	sorted := append([]string(nil), hashes...)
	prefix := func(s string) string {
		if len(s) < prefixLen {
			return s
		}
		return s[:prefixLen]
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return prefix(sorted[a]) < prefix(sorted[b])
	})

	var buckets []Bucket
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && prefix(sorted[j]) == prefix(sorted[i]) {
			j++
		}
		buckets = append(buckets, Bucket{Start: i, Size: j - i})
		i = j
	}
	return sorted, buckets
}

// PairRecall returns the fraction of truth pairs present in approx.
func PairRecall(truth, approx []Pair) float64 {
	if len(truth) == 0 {
		return 1.0
	}

	found := make(map[Pair]struct{}, len(approx))
	for _, p := range approx {
		found[p] = struct{}{}
	}

	hits := 0
	for _, p := range truth {
		if _, ok := found[p]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
