package fingerprint

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/dupehash/internal/resource"
)

// ErrInvalidImage is returned for buffers or parameters that cannot be hashed.
var ErrInvalidImage = errors.New("invalid image")

// PixelFormat is the channel stride of a pixel buffer.
type PixelFormat int

const (
	// RGB packs three bytes per pixel.
	RGB PixelFormat = 3
	// RGBA packs four bytes per pixel; alpha is ignored.
	RGBA PixelFormat = 4
)

// String returns the string representation of a PixelFormat.
func (f PixelFormat) String() string {
	switch f {
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// Stride returns the number of bytes per pixel.
func (f PixelFormat) Stride() int {
	return int(f)
}

// Valid reports whether f is RGB or RGBA.
func (f PixelFormat) Valid() bool {
	return f == RGB || f == RGBA
}

// Image describes a caller-owned decoded pixel buffer.
type Image struct {
	Pix    []byte
	Width  int
	Height int
	Format PixelFormat
}

// Pixels returns Width*Height.
func (img Image) Pixels() int {
	return img.Width * img.Height
}

// HexLen returns the fingerprint length in hex digits for n pixels.
func HexLen(n int) int {
	return (n + 3) / 4
}

const (
	stageHash = "hash"
	hexDigits = "0123456789abcdef"
)

// Validate checks the buffer, dimensions, format and hash size hint.
func Validate(img Image, hashSize int) error {
	switch {
	case len(img.Pix) == 0:
		return fmt.Errorf("%w: empty pixel buffer", ErrInvalidImage)
	case img.Width <= 0 || img.Height <= 0:
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, img.Width, img.Height)
	case hashSize <= 0:
		return fmt.Errorf("%w: hash size %d", ErrInvalidImage, hashSize)
	case !img.Format.Valid():
		return fmt.Errorf("%w: pixel format %s", ErrInvalidImage, img.Format)
	case img.Width > math.MaxInt/img.Height/img.Format.Stride():
		return fmt.Errorf("%w: dimensions %dx%d overflow", ErrInvalidImage, img.Width, img.Height)
	}

	need := img.Pixels() * img.Format.Stride()
	if len(img.Pix) < need {
		return fmt.Errorf("%w: buffer holds %d bytes, %dx%d %s needs %d",
			ErrInvalidImage, len(img.Pix), img.Width, img.Height, img.Format, need)
	}
	return nil
}

// Encode computes the average hash of img.
//
// hashSize is validated but does not change the output: the fingerprint
// has one bit per pixel. The returned byte count is the reservation taken on
// mem for the hash; the caller releases it.
func Encode(img Image, hashSize int, mem *resource.Controller) (string, int64, error) {
	if err := Validate(img, hashSize); err != nil {
		return "", 0, err
	}

	n := img.Pixels()
	stride := img.Format.Stride()
	pix := img.Pix[:n*stride]

	// Exact integer form of lum > mean: (r+g+b)/3 > Σ(r+g+b)/(3n).
	var total int64
	for p := 0; p < len(pix); p += stride {
		total += int64(pix[p]) + int64(pix[p+1]) + int64(pix[p+2])
	}

	hexLen := HexLen(n)
	if err := mem.Acquire(stageHash, int64(hexLen)); err != nil {
		return "", 0, err
	}

	out := make([]byte, hexLen)
	count := int64(n)
	var nibble byte
	for i := 0; i < n; i++ {
		p := i * stride
		sum := int64(pix[p]) + int64(pix[p+1]) + int64(pix[p+2])
		if sum*count > total {
			nibble |= 1 << (3 - i%4)
		}
		if i%4 == 3 {
			out[i/4] = hexDigits[nibble]
			nibble = 0
		}
	}
	if n%4 != 0 {
		out[hexLen-1] = hexDigits[nibble]
	}

	return string(out), int64(hexLen), nil
}
