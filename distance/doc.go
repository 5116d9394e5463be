// Package distance computes Hamming distance between hex-packed fingerprints.
//
// Each hex digit carries four hash bits. Digits are packed sixteen at a time
// into 64-bit words, XORed, and population-counted; the remainder runs in
// 32-bit words and then single digits. The result always equals a
// digit-by-digit comparison (see Naive).
//
// # Usage
//
//	d := distance.Hamming("ff00", "0f00") // 4
//	d = distance.Hamming("ab", "abc")     // distance.Mismatch
package distance
