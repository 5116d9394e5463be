// Package simd provides the bit-counting kernels behind fingerprint distance.
//
// # Supported Platforms
//
//   - x86-64: POPCNT
//   - ARM64: NEON (CNT)
//
// Runtime CPU feature detection selects the optimal implementation. Set
// DUPEHASH_SIMD=generic to force the portable SWAR fallback.
//
// # Operations
//
//   - Population count: Popcount64, Popcount32
//   - Distance: HexHamming over hex-packed fingerprints
//
// Every path returns identical results; only throughput differs.
package simd
