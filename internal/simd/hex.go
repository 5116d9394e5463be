package simd

// nibbles maps an ASCII byte to its hex value. Bytes that are not hex digits
// decode to 0.
var nibbles = func() [256]uint8 {
	var t [256]uint8
	for c := '0'; c <= '9'; c++ {
		t[c] = uint8(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		t[c] = uint8(c-'a') + 10
	}
	for c := 'A'; c <= 'F'; c++ {
		t[c] = uint8(c-'A') + 10
	}
	return t
}()

// Nibble returns the 4-bit value of the hex digit c.
func Nibble(c byte) uint8 {
	return nibbles[c]
}

// HexHamming returns the number of differing bits between two hex strings
// of equal length.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
//
// Digits are consumed 16 at a time (one 64-bit word), then 8 at a time
// (32-bit), then one at a time for the tail.
func HexHamming(a, b string) int {
	n := len(a)
	distance := 0
	i := 0

	for ; i+16 <= n; i += 16 {
		distance += kernelPopcount64(packHex64(a[i:i+16]) ^ packHex64(b[i:i+16]))
	}

	for ; i+8 <= n; i += 8 {
		distance += kernelPopcount32(packHex32(a[i:i+8]) ^ packHex32(b[i:i+8]))
	}

	for ; i < n; i++ {
		distance += kernelPopcount32(uint32(nibbles[a[i]] ^ nibbles[b[i]]))
	}

	return distance
}

// packHex64 assembles 16 hex digits into a word, first digit most significant.
func packHex64(s string) uint64 {
	_ = s[15]
	var v uint64
	for j := 0; j < 16; j++ {
		v = v<<4 | uint64(nibbles[s[j]])
	}
	return v
}

// packHex32 assembles 8 hex digits into a word, first digit most significant.
func packHex32(s string) uint32 {
	_ = s[7]
	var v uint32
	for j := 0; j < 8; j++ {
		v = v<<4 | uint32(nibbles[s[j]])
	}
	return v
}
