// Package distance provides public API for fingerprint distance calculations.
// All distance functions use the population-count kernels from internal/simd,
// which pick a hardware instruction when the CPU has one.
package distance

import (
	"math/bits"

	"github.com/hupe1980/dupehash/internal/simd"
)

// Mismatch is returned when two fingerprints cannot be compared.
const Mismatch = -1

// Hamming returns the number of differing bits between two hex fingerprints.
//
// It returns Mismatch when either fingerprint is empty or their lengths
// differ. Both cases are ordinary outcomes, not errors.
func Hamming(a, b string) int {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return Mismatch
	}
	return simd.HexHamming(a, b)
}

// Naive compares fingerprints one hex digit at a time.
// It is the reference Hamming must agree with.
func Naive(a, b string) int {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return Mismatch
	}
	d := 0
	for i := 0; i < len(a); i++ {
		d += bits.OnesCount8(simd.Nibble(a[i]) ^ simd.Nibble(b[i]))
	}
	return d
}

// MaxDistance returns the largest possible distance between two fingerprints
// of n hex digits.
func MaxDistance(n int) int {
	return 4 * n
}

// Accelerated reports whether a hardware population-count path is active.
func Accelerated() bool {
	return simd.Accelerated()
}

// ISA names the active population-count path.
func ISA() string {
	return simd.ActiveISA().String()
}
