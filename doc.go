// Package dupehash computes average-hash fingerprints of decoded images and
// finds near-duplicate pairs by Hamming distance.
//
// A fingerprint is a lowercase hex string with one bit per pixel: the bit is
// set when the pixel's luminance (R+G+B)/3 is above the image mean. Bits are
// packed most significant first, four to a digit; a partial last digit is
// zero-padded.
//
// # Quick Start
//
//	e, _ := dupehash.New(dupehash.WithMemoryLimit(64 << 20))
//
//	h, err := e.Encode(ctx, dupehash.Image{
//	    Pix: pix, Width: 8, Height: 8, Format: dupehash.RGBA,
//	}, 8)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
// Compare two fingerprints:
//
//	d := e.Distance(a, b) // -1 if lengths differ
//
// Find pairs within a threshold:
//
//	res, err := e.FindPairs(ctx, hashes, 5)
//	if err != nil {
//	    return err // ErrInvalidInput or ErrOutOfMemory
//	}
//	defer res.Release()
//	for _, g := range res.GroupIndices() {
//	    fmt.Println(g)
//	}
//
// # Bucketed Search
//
// For large collections, sort the fingerprints by prefix and pass the
// resulting ranges as buckets. Only pairs inside a bucket and across two
// consecutive buckets are compared:
//
//	res, err := e.FindPairsBucketed(ctx, sorted, buckets, 5)
//
// # Memory
//
// Every result reserves its bytes against the budget set by WithMemoryLimit
// and gives them back on Release. An operation that would exceed the budget
// fails with an *AllocationError matching ErrOutOfMemory.
//
// # Configuration
//
// LoadConfig reads DUPEHASH_MEMORY_LIMIT_BYTES, DUPEHASH_WORKERS,
// DUPEHASH_LOG_LEVEL and DUPEHASH_LOG_FORMAT. DUPEHASH_SIMD=generic forces
// the portable popcount kernels.
package dupehash
