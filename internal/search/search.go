package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/dupehash/distance"
	"github.com/hupe1980/dupehash/internal/pairbuf"
	"github.com/hupe1980/dupehash/internal/resource"
)

var (
	// ErrInvalidThreshold is returned for a negative threshold.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidBucket is returned when a bucket lies outside the fingerprint
	// list or overlaps another bucket.
	ErrInvalidBucket = errors.New("invalid bucket")
)

const (
	// minBucketedCapacity floors the initial bucketed estimate.
	minBucketedCapacity = 100

	// bucketedMatchRatio assumes roughly one in ten intra-bucket pairs match.
	bucketedMatchRatio = 10

	// tasksPerWorker oversplits exhaustive rows so late shards do not idle
	// the pool.
	tasksPerWorker = 4
)

// Pair is an ordered index pair with I < J.
type Pair = pairbuf.Pair

// Bucket is a contiguous range [Start, Start+Size) of the fingerprint list.
type Bucket struct {
	Start int
	Size  int
}

// Stats describes the work done by one search.
type Stats struct {
	Comparisons int64
	Pairs       int
}

// Options configures a search.
type Options struct {
	// Mem is the budget the pair buffers are charged to. Nil means unlimited.
	Mem *resource.Controller

	// Workers is the number of shards run concurrently. Values below 2 run
	// the search on the calling goroutine.
	Workers int
}

// Result holds the pairs found by a search.
type Result struct {
	Pairs []Pair
	Stats Stats

	bytes int64
	mem   *resource.Controller
}

// Bytes returns the reservation held by the result.
func (r *Result) Bytes() int64 {
	if r == nil {
		return 0
	}
	return r.bytes
}

// Release returns the result's reservation. It is idempotent.
func (r *Result) Release() {
	if r == nil || r.Pairs == nil && r.bytes == 0 {
		return
	}
	r.mem.ReleaseMemory(r.bytes)
	r.bytes = 0
	r.Pairs = nil
}

// task is one independently runnable slice of a search. Tasks run in order
// produce pairs in the documented output order.
type task struct {
	capacity int
	run      func(ctx context.Context, buf *pairbuf.Buffer, cmp *int64) error
}

func within(d, threshold int) bool {
	return d >= 0 && d <= threshold
}

// Exhaustive returns every pair (i, j), i < j, whose distance is at most
// threshold. Pairs are in row-major order of the upper triangle.
func Exhaustive(ctx context.Context, hashes []string, threshold int, opts Options) (*Result, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}

	n := len(hashes)
	if n <= 1 {
		return &Result{mem: opts.Mem}, nil
	}

	rows := func(lo, hi int) task {
		return task{
			capacity: hi - lo,
			run: func(ctx context.Context, buf *pairbuf.Buffer, cmp *int64) error {
				var local int64
				defer func() { atomic.AddInt64(cmp, local) }()
				for i := lo; i < hi; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					for j := i + 1; j < n; j++ {
						local++
						if within(distance.Hamming(hashes[i], hashes[j]), threshold) {
							if err := buf.Append(i, j); err != nil {
								return err
							}
						}
					}
				}
				return nil
			},
		}
	}

	if opts.Workers < 2 {
		return run(ctx, []task{rows(0, n)}, n, opts)
	}
	return run(ctx, splitRows(n, opts.Workers*tasksPerWorker, rows), n, opts)
}

// splitRows cuts rows 0..n-1 into at most parts ranges of roughly equal
// comparison count. Row i costs n-1-i comparisons.
func splitRows(n, parts int, mk func(lo, hi int) task) []task {
	total := int64(n) * int64(n-1) / 2
	target := total / int64(parts)
	if target < 1 {
		target = 1
	}

	var tasks []task
	lo := 0
	var acc int64
	for i := 0; i < n; i++ {
		acc += int64(n - 1 - i)
		if acc >= target || i == n-1 {
			tasks = append(tasks, mk(lo, i+1))
			lo = i + 1
			acc = 0
		}
	}
	return tasks
}

// Bucketed returns the pairs within threshold that lie in one bucket or
// straddle two adjacent buckets. All intra-bucket pairs come first, bucket
// by bucket; cross pairs for buckets k and k+1 follow in bucket order.
//
// Buckets must lie inside hashes and must not overlap. Adjacency is by
// position in buckets.
func Bucketed(ctx context.Context, hashes []string, buckets []Bucket, threshold int, opts Options) (*Result, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}
	if err := validateBuckets(len(hashes), buckets); err != nil {
		return nil, err
	}
	if len(buckets) == 0 || len(hashes) <= 1 {
		return &Result{mem: opts.Mem}, nil
	}

	tasks := make([]task, 0, 2*len(buckets)-1)

	for _, b := range buckets {
		tasks = append(tasks, task{
			capacity: estimate(b.Size),
			run: func(ctx context.Context, buf *pairbuf.Buffer, cmp *int64) error {
				var local int64
				defer func() { atomic.AddInt64(cmp, local) }()
				end := b.Start + b.Size
				for i := b.Start; i < end; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					for j := i + 1; j < end; j++ {
						local++
						if within(distance.Hamming(hashes[i], hashes[j]), threshold) {
							if err := buf.Append(i, j); err != nil {
								return err
							}
						}
					}
				}
				return nil
			},
		})
	}

	for k := 0; k+1 < len(buckets); k++ {
		a, b := buckets[k], buckets[k+1]
		tasks = append(tasks, task{
			capacity: max(a.Size*b.Size/bucketedMatchRatio, 1),
			run: func(ctx context.Context, buf *pairbuf.Buffer, cmp *int64) error {
				var local int64
				defer func() { atomic.AddInt64(cmp, local) }()
				for i := a.Start; i < a.Start+a.Size; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					for j := b.Start; j < b.Start+b.Size; j++ {
						local++
						if within(distance.Hamming(hashes[i], hashes[j]), threshold) {
							if err := buf.Append(min(i, j), max(i, j)); err != nil {
								return err
							}
						}
					}
				}
				return nil
			},
		})
	}

	capacity := 0
	for _, b := range buckets {
		capacity += b.Size * (b.Size - 1) / 2
	}
	capacity = max(capacity/bucketedMatchRatio, minBucketedCapacity)

	if opts.Workers < 2 {
		return runSequential(ctx, tasks, capacity, opts)
	}
	return run(ctx, tasks, capacity, opts)
}

func estimate(size int) int {
	return max(size*(size-1)/2/bucketedMatchRatio, 1)
}

func validateBuckets(n int, buckets []Bucket) error {
	for k, b := range buckets {
		if b.Start < 0 || b.Size < 0 || b.Start > n || b.Size > n-b.Start {
			return fmt.Errorf("%w: bucket %d [%d,+%d) outside %d fingerprints", ErrInvalidBucket, k, b.Start, b.Size, n)
		}
	}

	order := make([]int, 0, len(buckets))
	for k, b := range buckets {
		if b.Size > 0 {
			order = append(order, k)
		}
	}
	sort.Slice(order, func(x, y int) bool {
		return buckets[order[x]].Start < buckets[order[y]].Start
	})
	for x := 1; x < len(order); x++ {
		prev, cur := buckets[order[x-1]], buckets[order[x]]
		if prev.Start+prev.Size > cur.Start {
			return fmt.Errorf("%w: buckets %d and %d overlap", ErrInvalidBucket, order[x-1], order[x])
		}
	}
	return nil
}

// run executes tasks, concurrently when opts.Workers allows. The parallel
// path holds per-task buffers next to the merged output, so when that
// exceeds the memory budget the search is retried on one goroutine.
func run(ctx context.Context, tasks []task, capacity int, opts Options) (*Result, error) {
	if opts.Workers < 2 || len(tasks) < 2 {
		return runSequential(ctx, tasks, capacity, opts)
	}
	res, err := runParallel(ctx, tasks, opts)
	if err != nil && errors.Is(err, resource.ErrMemoryLimitExceeded) && ctx.Err() == nil {
		return runSequential(ctx, tasks, capacity, opts)
	}
	return res, err
}

func runSequential(ctx context.Context, tasks []task, capacity int, opts Options) (*Result, error) {
	buf, err := pairbuf.New(capacity, opts.Mem)
	if err != nil {
		return nil, err
	}

	var cmp int64
	for _, t := range tasks {
		if err := t.run(ctx, buf, &cmp); err != nil {
			buf.Release()
			return nil, err
		}
	}

	pairs, bytes := buf.Finalize()
	return &Result{
		Pairs: pairs,
		Stats: Stats{Comparisons: cmp, Pairs: len(pairs)},
		bytes: bytes,
		mem:   opts.Mem,
	}, nil
}

// runParallel gives each task its own buffer and concatenates them in task
// order, so the output matches runSequential.
func runParallel(ctx context.Context, tasks []task, opts Options) (*Result, error) {
	bufs := make([]*pairbuf.Buffer, len(tasks))
	releaseAll := func() {
		for _, b := range bufs {
			if b != nil {
				b.Release()
			}
		}
	}

	var cmp int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for k, t := range tasks {
		g.Go(func() error {
			if err := opts.Mem.AcquireWorker(gctx); err != nil {
				return err
			}
			defer opts.Mem.ReleaseWorker()

			buf, err := pairbuf.New(t.capacity, opts.Mem)
			if err != nil {
				return err
			}
			bufs[k] = buf
			return t.run(gctx, buf, &cmp)
		})
	}
	if err := g.Wait(); err != nil {
		releaseAll()
		return nil, err
	}

	total := 0
	for _, b := range bufs {
		total += b.Len()
	}

	merged, err := pairbuf.New(total, opts.Mem)
	if err != nil {
		releaseAll()
		return nil, err
	}
	for _, b := range bufs {
		for k := 0; k < b.Len(); k++ {
			p := b.At(k)
			if err := merged.Append(p.I, p.J); err != nil {
				releaseAll()
				return nil, err
			}
		}
		b.Release()
	}

	pairs, bytes := merged.Finalize()
	return &Result{
		Pairs: pairs,
		Stats: Stats{Comparisons: cmp, Pairs: len(pairs)},
		bytes: bytes,
		mem:   opts.Mem,
	}, nil
}
