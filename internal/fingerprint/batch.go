package fingerprint

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/dupehash/internal/resource"
)

const stageBatch = "batch results"

// Dimensions is the width and height of one image in a batch.
type Dimensions struct {
	Width  int
	Height int
}

// Result is one batch entry: a fingerprint or the reason it failed.
type Result struct {
	Hash string
	Err  error

	// Bytes is the reservation held for Hash.
	Bytes int64
}

// ResultBytes is the accounted size of one batch entry.
const ResultBytes = int64(unsafe.Sizeof(Result{}))

// Batch describes N images packed into one buffer.
type Batch struct {
	Data     []byte
	Format   PixelFormat
	Dims     []Dimensions
	Offsets  []int
	HashSize int
}

// Image returns the i-th image, or an error if its offset lies outside Data.
func (b *Batch) Image(i int) (Image, error) {
	off := b.Offsets[i]
	if off < 0 || off > len(b.Data) {
		return Image{}, fmt.Errorf("%w: offset %d outside %d-byte buffer", ErrInvalidImage, off, len(b.Data))
	}
	return Image{
		Pix:    b.Data[off:],
		Width:  b.Dims[i].Width,
		Height: b.Dims[i].Height,
		Format: b.Format,
	}, nil
}

// EncodeBatch hashes every image in b.
//
// A failing image yields an entry with Err set; the rest of the batch still
// runs. Only a mismatched description, a failed reservation for the result
// array itself, or ctx cancellation fail the whole call. With workers > 1
// images are hashed concurrently; entries stay in input order.
//
// The second return value is the reservation held for the result array.
func EncodeBatch(ctx context.Context, b *Batch, workers int, mem *resource.Controller) ([]Result, int64, error) {
	if len(b.Dims) != len(b.Offsets) {
		return nil, 0, fmt.Errorf("%w: %d dimensions but %d offsets", ErrInvalidImage, len(b.Dims), len(b.Offsets))
	}

	n := len(b.Dims)
	arrayBytes := int64(n) * ResultBytes
	if err := mem.Acquire(stageBatch, arrayBytes); err != nil {
		return nil, 0, err
	}

	results := make([]Result, n)

	encodeOne := func(i int) {
		img, err := b.Image(i)
		if err != nil {
			results[i] = Result{Err: err}
			return
		}
		hash, bytes, err := Encode(img, b.HashSize, mem)
		results[i] = Result{Hash: hash, Err: err, Bytes: bytes}
	}

	var err error
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err = ctx.Err(); err != nil {
				break
			}
			encodeOne(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if err := mem.AcquireWorker(gctx); err != nil {
					return err
				}
				defer mem.ReleaseWorker()
				if err := gctx.Err(); err != nil {
					return err
				}
				encodeOne(i)
				return nil
			})
		}
		err = g.Wait()
	}

	if err != nil {
		ReleaseResults(results, mem)
		mem.ReleaseMemory(arrayBytes)
		return nil, 0, err
	}

	return results, arrayBytes, nil
}

// ReleaseResults returns every per-image reservation in results.
func ReleaseResults(results []Result, mem *resource.Controller) {
	for i := range results {
		mem.ReleaseMemory(results[i].Bytes)
		results[i].Bytes = 0
	}
}
