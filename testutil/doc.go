// Package testutil provides testing utilities for dupehash.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random fingerprints and pixel buffers,
// computing exact pair sets, and measuring bucketed-search recall.
//
// # Random Fingerprints
//
//	rng := testutil.NewRNG(seed)
//	hashes := rng.HexSet(100, 16)                 // uniform
//	near := rng.ClusteredHexSet(100, 16, 10, 3)   // near-duplicates
//
// # Ground Truth
//
//	truth := testutil.ExactPairs(hashes, threshold, distance.Naive)
//	recall := testutil.PairRecall(truth, found)
package testutil
