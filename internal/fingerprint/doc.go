// Package fingerprint reduces decoded pixel buffers to average-hash
// fingerprints.
//
// Each pixel's luminance is the mean of its first three channels; a fourth
// channel is ignored. A pixel contributes a 1 bit when its luminance exceeds
// the image mean, else 0. Bits are packed four per lowercase hex digit, most
// significant bit first, with a trailing partial digit zero-filled in its low
// bits. No resampling is performed: the hash has one bit per pixel.
package fingerprint
