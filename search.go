package dupehash

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/dupehash/internal/group"
	"github.com/hupe1980/dupehash/internal/search"
)

// PairResult holds the pairs found by a search.
//
// A successful search always returns a non-nil PairResult, even with zero
// pairs; a failed one returns nil and an error. "No matches" and "out of
// memory" are never confused.
type PairResult struct {
	Pairs []Pair
	Stats SearchStats

	n   int
	res *search.Result
}

// Count returns the number of pairs.
func (r *PairResult) Count() int {
	return len(r.Pairs)
}

// Flat returns the pairs as [i0, j0, i1, j1, ...].
func (r *PairResult) Flat() []int {
	out := make([]int, 0, 2*len(r.Pairs))
	for _, p := range r.Pairs {
		out = append(out, p.I, p.J)
	}
	return out
}

// Groups merges the pairs into connected components of two or more
// fingerprints, ordered by smallest member.
func (r *PairResult) Groups() []*roaring.Bitmap {
	return group.Build(r.n, r.Pairs)
}

// GroupIndices is Groups as plain index slices.
func (r *PairResult) GroupIndices() [][]int {
	return group.Indices(r.Groups())
}

// Release returns the result's memory reservation. It is idempotent.
func (r *PairResult) Release() {
	if r == nil {
		return
	}
	r.res.Release()
	r.Pairs = nil
}

// FindPairs returns every pair (i, j), i < j, whose distance is at most
// threshold, in row-major order of the upper triangle.
//
// Fingerprints of differing length never match. A negative threshold is
// ErrInvalidInput. If the pair buffer cannot grow within the memory budget
// the whole search fails with ErrOutOfMemory and no partial output.
func (e *Engine) FindPairs(ctx context.Context, hashes []string, threshold int) (*PairResult, error) {
	return e.Pairs(hashes).Threshold(threshold).Execute(ctx)
}

// FindPairsBucketed is FindPairs restricted to pairs inside one bucket and
// pairs straddling two consecutive buckets. Its output is a subset of
// FindPairs' output.
//
// All intra-bucket pairs come first, in bucket order, followed by cross
// pairs of buckets k and k+1 for ascending k. Buckets must lie within hashes
// and not overlap.
func (e *Engine) FindPairsBucketed(ctx context.Context, hashes []string, buckets []Bucket, threshold int) (*PairResult, error) {
	return e.Pairs(hashes).Buckets(buckets).Threshold(threshold).Execute(ctx)
}

// Pairs creates a new fluent pair search over hashes.
//
// Example:
//
//	res, err := e.Pairs(hashes).
//	    Threshold(5).
//	    Buckets(buckets).
//	    Execute(ctx)
func (e *Engine) Pairs(hashes []string) *PairQuery {
	return &PairQuery{
		e:       e,
		hashes:  hashes,
		workers: e.workers,
	}
}

// PairQuery is a fluent builder for a pair search.
type PairQuery struct {
	e         *Engine
	hashes    []string
	threshold int
	buckets   []Bucket
	bucketed  bool
	workers   int
}

// Threshold sets the largest distance that counts as a match (default 0).
func (q *PairQuery) Threshold(t int) *PairQuery {
	q.threshold = t
	return q
}

// Buckets switches to the bucketed search over the given partition.
func (q *PairQuery) Buckets(b []Bucket) *PairQuery {
	q.buckets = b
	q.bucketed = true
	return q
}

// Workers overrides the engine's worker count for this search.
func (q *PairQuery) Workers(n int) *PairQuery {
	q.workers = n
	return q
}

// Execute runs the search.
func (q *PairQuery) Execute(ctx context.Context) (*PairResult, error) {
	e := q.e
	start := time.Now()

	opts := search.Options{Mem: e.mem, Workers: q.workers}
	mode := Exhaustive

	var (
		res *search.Result
		err error
	)
	if q.bucketed {
		mode = Bucketed
		res, err = search.Bucketed(ctx, q.hashes, q.buckets, q.threshold, opts)
	} else {
		res, err = search.Exhaustive(ctx, q.hashes, q.threshold, opts)
	}
	err = translateError(err)

	var stats SearchStats
	if res != nil {
		stats = res.Stats
	}
	e.metrics.RecordSearch(mode, stats, time.Since(start), err)
	e.logger.LogSearch(ctx, mode, len(q.hashes), q.threshold, stats.Pairs, err)

	if err != nil {
		return nil, err
	}
	return &PairResult{
		Pairs: res.Pairs,
		Stats: res.Stats,
		n:     len(q.hashes),
		res:   res,
	}, nil
}
