package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dupehash/distance"
	"github.com/hupe1980/dupehash/internal/pairbuf"
	"github.com/hupe1980/dupehash/internal/resource"
	"github.com/hupe1980/dupehash/testutil"
)

func toPairs(ps []testutil.Pair) []Pair {
	out := make([]Pair, len(ps))
	for k, p := range ps {
		out[k] = Pair{I: p.I, J: p.J}
	}
	return out
}

func fromPairs(ps []Pair) []testutil.Pair {
	out := make([]testutil.Pair, len(ps))
	for k, p := range ps {
		out[k] = testutil.Pair{I: p.I, J: p.J}
	}
	return out
}

func toBuckets(bs []testutil.Bucket) []Bucket {
	out := make([]Bucket, len(bs))
	for k, b := range bs {
		out[k] = Bucket{Start: b.Start, Size: b.Size}
	}
	return out
}

func TestExhaustive_RowMajorOrder(t *testing.T) {
	hashes := []string{"0", "1", "f", "0"}

	res, err := Exhaustive(context.Background(), hashes, 1, Options{})
	require.NoError(t, err)
	defer res.Release()

	assert.Equal(t, []Pair{{I: 0, J: 1}, {I: 0, J: 3}, {I: 1, J: 3}}, res.Pairs)
	assert.Equal(t, 3, res.Stats.Pairs)
	assert.Equal(t, int64(6), res.Stats.Comparisons)
}

func TestExhaustive_MatchesNaive(t *testing.T) {
	rng := testutil.NewRNG(42)
	hashes := rng.ClusteredHexSet(120, 16, 12, 3)

	for _, threshold := range []int{0, 2, 6, 20} {
		res, err := Exhaustive(context.Background(), hashes, threshold, Options{})
		require.NoError(t, err)

		want := toPairs(testutil.ExactPairs(hashes, threshold, distance.Naive))
		if len(want) == 0 {
			assert.Empty(t, res.Pairs)
		} else {
			assert.Equal(t, want, res.Pairs, "threshold=%d", threshold)
		}
		res.Release()
	}
}

func TestExhaustive_SkipsMismatchedLengths(t *testing.T) {
	res, err := Exhaustive(context.Background(), []string{"ab", "abc", "ab", ""}, 4, Options{})
	require.NoError(t, err)
	assert.Equal(t, []Pair{{I: 0, J: 2}}, res.Pairs)
}

func TestExhaustive_Degenerate(t *testing.T) {
	for _, hashes := range [][]string{nil, {"ab"}} {
		res, err := Exhaustive(context.Background(), hashes, 3, Options{})
		require.NoError(t, err)
		assert.Empty(t, res.Pairs)
		assert.Zero(t, res.Stats.Comparisons)
	}
}

func TestExhaustive_NegativeThreshold(t *testing.T) {
	res, err := Exhaustive(context.Background(), []string{"a", "b"}, -1, Options{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestExhaustive_ParallelMatchesSequential(t *testing.T) {
	rng := testutil.NewRNG(7)
	hashes := rng.ClusteredHexSet(300, 16, 20, 4)
	mem := resource.NewController(resource.Config{MaxWorkers: 4})

	seq, err := Exhaustive(context.Background(), hashes, 5, Options{Mem: mem})
	require.NoError(t, err)
	defer seq.Release()

	par, err := Exhaustive(context.Background(), hashes, 5, Options{Mem: mem, Workers: 4})
	require.NoError(t, err)
	defer par.Release()

	assert.Equal(t, seq.Pairs, par.Pairs)
	assert.Equal(t, seq.Stats, par.Stats)
}

func TestExhaustive_ParallelFallsBackUnderMemoryLimit(t *testing.T) {
	// 2016 matching pairs. One goroutine peaks at 3072 pairs while its buffer
	// doubles; shard buffers plus the merged output need at least 4032.
	hashes := make([]string, 64)
	for i := range hashes {
		hashes[i] = "7"
	}
	limit := int64(3100) * pairbuf.PairBytes

	seqMem := resource.NewController(resource.Config{MemoryLimitBytes: limit})
	seq, err := Exhaustive(context.Background(), hashes, 0, Options{Mem: seqMem})
	require.NoError(t, err)
	defer seq.Release()

	mem := resource.NewController(resource.Config{MemoryLimitBytes: limit, MaxWorkers: 4})
	par, err := Exhaustive(context.Background(), hashes, 0, Options{Mem: mem, Workers: 4})
	require.NoError(t, err)

	assert.Len(t, par.Pairs, 2016)
	assert.Equal(t, seq.Pairs, par.Pairs)
	assert.Equal(t, seq.Stats, par.Stats)

	par.Release()
	assert.Zero(t, mem.MemoryUsage())
}

func TestExhaustive_GrowthFailureDiscardsOutput(t *testing.T) {
	// Every pair matches at threshold 4 for single-digit hashes.
	hashes := make([]string, 64)
	for i := range hashes {
		hashes[i] = "a"
	}

	mem := resource.NewController(resource.Config{MemoryLimitBytes: 200 * pairbuf.PairBytes})
	res, err := Exhaustive(context.Background(), hashes, 4, Options{Mem: mem})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	var allocErr *resource.AllocError
	require.True(t, errors.As(err, &allocErr))
	assert.Equal(t, "pair buffer growth", allocErr.Stage)
	assert.Zero(t, mem.MemoryUsage())
}

func TestExhaustive_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mem := resource.NewController(resource.Config{})
	res, err := Exhaustive(ctx, []string{"a", "b", "c"}, 4, Options{Mem: mem})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mem.MemoryUsage())
}

func TestBucketed_Order(t *testing.T) {
	// bucket 0 = {0,1}, bucket 1 = {2,3}
	hashes := []string{"00", "01", "03", "00"}
	buckets := []Bucket{{Start: 0, Size: 2}, {Start: 2, Size: 2}}

	res, err := Bucketed(context.Background(), hashes, buckets, 1, Options{})
	require.NoError(t, err)
	defer res.Release()

	// intra pairs first, then cross pairs
	assert.Equal(t, []Pair{{I: 0, J: 1}, {I: 0, J: 3}, {I: 1, J: 2}, {I: 1, J: 3}}, res.Pairs)
	assert.Equal(t, int64(6), res.Stats.Comparisons)
}

func TestBucketed_OnlyAdjacentBuckets(t *testing.T) {
	hashes := []string{"00", "ff", "00"}
	buckets := []Bucket{{0, 1}, {1, 1}, {2, 1}}

	res, err := Bucketed(context.Background(), hashes, buckets, 0, Options{})
	require.NoError(t, err)

	// 0 and 2 are identical but their buckets are not adjacent.
	assert.Empty(t, res.Pairs)
}

func TestBucketed_CrossPairsNormalized(t *testing.T) {
	hashes := []string{"00", "00"}
	buckets := []Bucket{{Start: 1, Size: 1}, {Start: 0, Size: 1}}

	res, err := Bucketed(context.Background(), hashes, buckets, 0, Options{})
	require.NoError(t, err)
	assert.Equal(t, []Pair{{I: 0, J: 1}}, res.Pairs)
}

func TestBucketed_SubsetOfExhaustive(t *testing.T) {
	rng := testutil.NewRNG(99)
	hashes, tb := testutil.PrefixBuckets(rng.ClusteredHexSet(400, 16, 25, 3), 1)
	buckets := toBuckets(tb)

	for _, threshold := range []int{2, 5, 10} {
		exact, err := Exhaustive(context.Background(), hashes, threshold, Options{})
		require.NoError(t, err)
		approx, err := Bucketed(context.Background(), hashes, buckets, threshold, Options{})
		require.NoError(t, err)

		assert.Equal(t, 1.0, testutil.PairRecall(fromPairs(approx.Pairs), fromPairs(exact.Pairs)),
			"bucketed pair missing from exhaustive at threshold=%d", threshold)
		assert.LessOrEqual(t, approx.Stats.Comparisons, exact.Stats.Comparisons)

		exact.Release()
		approx.Release()
	}
}

func TestBucketed_ParallelMatchesSequential(t *testing.T) {
	rng := testutil.NewRNG(5)
	hashes, tb := testutil.PrefixBuckets(rng.ClusteredHexSet(500, 16, 30, 3), 1)
	buckets := toBuckets(tb)
	mem := resource.NewController(resource.Config{MaxWorkers: 8})

	seq, err := Bucketed(context.Background(), hashes, buckets, 6, Options{Mem: mem})
	require.NoError(t, err)
	par, err := Bucketed(context.Background(), hashes, buckets, 6, Options{Mem: mem, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, seq.Pairs, par.Pairs)
	assert.Equal(t, seq.Stats, par.Stats)

	seq.Release()
	par.Release()
	assert.Zero(t, mem.MemoryUsage())
}

func TestBucketed_Degenerate(t *testing.T) {
	res, err := Bucketed(context.Background(), []string{"a", "b"}, nil, 4, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)

	res, err = Bucketed(context.Background(), []string{"a"}, []Bucket{{0, 1}}, 4, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
}

func TestBucketed_InvalidBuckets(t *testing.T) {
	hashes := []string{"a", "b", "c", "d"}

	tests := []struct {
		name    string
		buckets []Bucket
	}{
		{"negative start", []Bucket{{-1, 2}}},
		{"negative size", []Bucket{{0, -1}}},
		{"past end", []Bucket{{2, 3}}},
		{"overlap", []Bucket{{0, 3}, {2, 2}}},
		{"overlap unordered", []Bucket{{2, 2}, {0, 3}}},
		{"start past end", []Bucket{{5, 0}}},
		{"end wraps", []Bucket{{math.MaxInt - (1 << 30), 1<<30 + 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Bucketed(context.Background(), hashes, tt.buckets, 1, Options{})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidBucket)
		})
	}
}

func TestBucketed_InitialCapacityFloor(t *testing.T) {
	mem := resource.NewController(resource.Config{})
	hashes := []string{"a", "b", "c", "d"}

	res, err := Bucketed(context.Background(), hashes, []Bucket{{0, 4}}, 0, Options{Mem: mem})
	require.NoError(t, err)

	assert.Equal(t, int64(minBucketedCapacity)*pairbuf.PairBytes, res.Bytes())
	assert.Equal(t, res.Bytes(), mem.MemoryUsage())

	res.Release()
	res.Release()
	assert.Zero(t, mem.MemoryUsage())
}

func TestSplitRows(t *testing.T) {
	for _, n := range []int{2, 3, 10, 101} {
		for _, parts := range []int{1, 4, 16, 500} {
			var covered int
			tasks := splitRows(n, parts, func(lo, hi int) task {
				assert.Equal(t, covered, lo)
				covered = hi
				return task{capacity: hi - lo}
			})
			assert.Equal(t, n, covered)
			assert.LessOrEqual(t, len(tasks), n)
		}
	}
}
