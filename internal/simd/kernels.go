package simd

import "math/bits"

// Kernel function pointers - set once at init, zero runtime overhead.
// The SWAR versions are the default; platform init swaps in the hardware
// versions when the CPU reports a population-count instruction.
var (
	kernelPopcount64 = popcount64SWAR
	kernelPopcount32 = popcount32SWAR
)

// Popcount64 returns the number of set bits in x.
func Popcount64(x uint64) int {
	return kernelPopcount64(x)
}

// Popcount32 returns the number of set bits in x.
func Popcount32(x uint32) int {
	return kernelPopcount32(x)
}

func setGenericKernels() {
	kernelPopcount64 = popcount64SWAR
	kernelPopcount32 = popcount32SWAR
}

func setHardwareKernels() {
	kernelPopcount64 = popcount64Hardware
	kernelPopcount32 = popcount32Hardware
}

// math/bits is an intrinsic: the compiler lowers it to POPCNT/CNT when the
// target has the instruction.
func popcount64Hardware(x uint64) int {
	return bits.OnesCount64(x)
}

func popcount32Hardware(x uint32) int {
	return bits.OnesCount32(x)
}

const (
	m1q  uint64 = 0x5555555555555555 // 01010101 ...
	m2q  uint64 = 0x3333333333333333 // 00110011 ...
	m4q  uint64 = 0x0f0f0f0f0f0f0f0f // 00001111 ...
	h01q        = 0x0101010101010101

	m1d  uint32 = 0x55555555
	m2d  uint32 = 0x33333333
	m4d  uint32 = 0x0f0f0f0f
	h01d        = 0x01010101
)

func popcount64SWAR(x uint64) int {
	// count of each 2 bits into those 2 bits
	x -= (x >> 1) & m1q
	// count of each 4 bits into those 4 bits
	x = (x & m2q) + ((x >> 2) & m2q)
	// count of each 8 bits into those 8 bits
	x = (x + (x >> 4)) & m4q
	// left 8 bits of x + (x<<8) + (x<<16) + ...
	return int((x * h01q) >> 56)
}

func popcount32SWAR(x uint32) int {
	x -= (x >> 1) & m1d
	x = (x & m2d) + ((x >> 2) & m2d)
	x = (x + (x >> 4)) & m4d
	return int((x * h01d) >> 24)
}
