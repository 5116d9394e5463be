package dupehash

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/hupe1980/dupehash/distance"
	"github.com/hupe1980/dupehash/internal/fingerprint"
	"github.com/hupe1980/dupehash/internal/resource"
	"github.com/hupe1980/dupehash/internal/search"
	"github.com/hupe1980/dupehash/internal/simd"
)

type (
	// Image is a decoded pixel buffer with its dimensions and format.
	Image = fingerprint.Image

	// PixelFormat is the channel layout of a pixel buffer.
	PixelFormat = fingerprint.PixelFormat

	// Dimensions is the width and height of one image in a batch.
	Dimensions = fingerprint.Dimensions

	// Batch describes images packed into one buffer at byte offsets.
	Batch = fingerprint.Batch

	// IndexPair selects two fingerprints for DistanceBatch.
	IndexPair = distance.IndexPair

	// Pair is a matched (I, J) with I < J.
	Pair = search.Pair

	// Bucket is a contiguous index range of a sorted fingerprint list.
	Bucket = search.Bucket

	// SearchStats describes the work done by one pair search.
	SearchStats = search.Stats
)

const (
	// RGB is 3 bytes per pixel.
	RGB = fingerprint.RGB
	// RGBA is 4 bytes per pixel; alpha is ignored.
	RGBA = fingerprint.RGBA
)

const distanceBytes = int64(unsafe.Sizeof(int(0)))

// Engine computes average-hash fingerprints and finds near-duplicate pairs.
//
// An Engine is safe for concurrent use. Every result it returns holds a
// share of the memory budget until its Release method is called.
type Engine struct {
	mem     *resource.Controller
	workers int
	metrics MetricsCollector
	logger  *Logger
}

// New creates an Engine.
func New(optFns ...Option) (*Engine, error) {
	opts := applyOptions(optFns)
	if opts.err != nil {
		return nil, opts.err
	}
	if opts.memoryLimit < 0 {
		return nil, fmt.Errorf("%w: memory limit %d", ErrInvalidInput, opts.memoryLimit)
	}

	workers := max(opts.workers, 1)

	return &Engine{
		mem: resource.NewController(resource.Config{
			MemoryLimitBytes: opts.memoryLimit,
			MaxWorkers:       int64(workers),
		}),
		workers: workers,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}, nil
}

// MemoryUsage returns the bytes held by unreleased results.
func (e *Engine) MemoryUsage() int64 {
	return e.mem.MemoryUsage()
}

// HasSIMD reports whether a hardware population-count path is active.
func (e *Engine) HasSIMD() bool {
	return simd.Accelerated()
}

// ActiveISA names the active population-count path: generic, popcnt or neon.
func (e *Engine) ActiveISA() string {
	return simd.ActiveISA().String()
}

// HashResult holds one fingerprint.
type HashResult struct {
	Hash string

	bytes int64
	mem   *resource.Controller
}

// Release returns the result's memory reservation. It is idempotent.
func (r *HashResult) Release() {
	if r == nil || r.bytes == 0 {
		return
	}
	r.mem.ReleaseMemory(r.bytes)
	r.bytes = 0
}

// Encode computes the average hash of img.
//
// hashSize must be positive; the fingerprint always has one bit per pixel
// of img.
func (e *Engine) Encode(ctx context.Context, img Image, hashSize int) (*HashResult, error) {
	start := time.Now()

	hash, bytes, err := fingerprint.Encode(img, hashSize, e.mem)
	err = translateError(err)

	e.metrics.RecordEncode(time.Since(start), err)
	e.logger.LogEncode(ctx, img.Width, img.Height, err)

	if err != nil {
		return nil, err
	}
	return &HashResult{Hash: hash, bytes: bytes, mem: e.mem}, nil
}

// BatchEntry is one image's outcome in a batch encode.
type BatchEntry struct {
	Hash string
	Err  error
}

// OK reports whether the image was hashed.
func (b BatchEntry) OK() bool {
	return b.Err == nil
}

// BatchResult holds one entry per image, in input order.
type BatchResult struct {
	Entries []BatchEntry
	Failed  int

	results []fingerprint.Result
	bytes   int64
	mem     *resource.Controller
}

// Release returns the reservations of every entry and of the entry array.
// It is idempotent.
func (r *BatchResult) Release() {
	if r == nil || r.results == nil {
		return
	}
	fingerprint.ReleaseResults(r.results, r.mem)
	r.mem.ReleaseMemory(r.bytes)
	r.results = nil
	r.bytes = 0
}

// EncodeBatch hashes every image in b.
//
// A failing image yields an entry with Err set (ErrInvalidInput or
// ErrOutOfMemory) and the rest of the batch still runs. The call itself
// fails only for a mismatched description, when the entry array cannot be
// reserved, or when ctx is cancelled.
func (e *Engine) EncodeBatch(ctx context.Context, b *Batch) (*BatchResult, error) {
	start := time.Now()

	count := 0
	if b != nil {
		count = len(b.Dims)
	}

	var (
		results []fingerprint.Result
		bytes   int64
		err     error
	)
	if b == nil {
		err = fmt.Errorf("%w: nil batch", ErrInvalidInput)
	} else {
		results, bytes, err = fingerprint.EncodeBatch(ctx, b, e.workers, e.mem)
		err = translateError(err)
	}

	var res *BatchResult
	if err == nil {
		res = &BatchResult{
			Entries: make([]BatchEntry, len(results)),
			results: results,
			bytes:   bytes,
			mem:     e.mem,
		}
		for i, r := range results {
			res.Entries[i] = BatchEntry{Hash: r.Hash, Err: translateError(r.Err)}
			if r.Err != nil {
				res.Failed++
			}
		}
	}

	failed := 0
	if res != nil {
		failed = res.Failed
	}
	e.metrics.RecordBatchEncode(count, failed, time.Since(start), err)
	e.logger.LogBatchEncode(ctx, count, failed, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Distance returns the Hamming distance between two hex fingerprints, or
// -1 if either is empty or their lengths differ.
func (e *Engine) Distance(a, b string) int {
	return distance.Hamming(a, b)
}

// DistanceResult holds one distance per requested pair.
type DistanceResult struct {
	Distances []int

	// Invalid counts entries that are -1 because an index was out of range
	// or the fingerprints were not comparable.
	Invalid int

	bytes int64
	mem   *resource.Controller
}

// Release returns the result's memory reservation. It is idempotent.
func (r *DistanceResult) Release() {
	if r == nil || r.Distances == nil {
		return
	}
	r.mem.ReleaseMemory(r.bytes)
	r.Distances = nil
	r.bytes = 0
}

// DistanceBatch computes the distance for every pair. A pair with an index
// outside hashes yields -1 for that entry only. The call fails only when the
// distance array cannot be reserved.
func (e *Engine) DistanceBatch(ctx context.Context, hashes []string, pairs []IndexPair) (*DistanceResult, error) {
	start := time.Now()

	bytes := int64(len(pairs)) * distanceBytes
	err := translateError(e.mem.Acquire("distances", bytes))

	var res *DistanceResult
	if err == nil {
		res = &DistanceResult{
			Distances: make([]int, len(pairs)),
			bytes:     bytes,
			mem:       e.mem,
		}
		res.Invalid = distance.Batch(hashes, pairs, res.Distances)
	}

	invalid := 0
	if res != nil {
		invalid = res.Invalid
	}
	e.metrics.RecordDistanceBatch(len(pairs), invalid, time.Since(start), err)
	e.logger.LogDistanceBatch(ctx, len(pairs), invalid, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}
