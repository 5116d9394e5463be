package fingerprint

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hupe1980/dupehash/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grayImage builds an image whose pixels have the given luminance.
func grayImage(format PixelFormat, width, height int, lum ...byte) Image {
	stride := format.Stride()
	pix := make([]byte, len(lum)*stride)
	for i, l := range lum {
		pix[i*stride] = l
		pix[i*stride+1] = l
		pix[i*stride+2] = l
		if stride == 4 {
			pix[i*stride+3] = 255
		}
	}
	return Image{Pix: pix, Width: width, Height: height, Format: format}
}

func TestEncode_Scenario2x2(t *testing.T) {
	// mean 105 → bits 0,1,0,1 → nibble 0101
	img := grayImage(RGBA, 2, 2, 10, 200, 10, 200)

	hash, bytes, err := Encode(img, 8, nil)
	require.NoError(t, err)
	assert.Equal(t, "5", hash)
	assert.Equal(t, int64(1), bytes)
}

func TestEncode_FormatsAgree(t *testing.T) {
	lum := []byte{0, 255, 30, 40, 250, 250, 1, 2, 3}

	rgb, _, err := Encode(grayImage(RGB, 3, 3, lum...), 8, nil)
	require.NoError(t, err)
	rgba, _, err := Encode(grayImage(RGBA, 3, 3, lum...), 8, nil)
	require.NoError(t, err)

	assert.Equal(t, rgb, rgba)
}

func TestEncode_AlphaIgnored(t *testing.T) {
	a := grayImage(RGBA, 2, 2, 10, 200, 10, 200)
	b := grayImage(RGBA, 2, 2, 10, 200, 10, 200)
	for i := 3; i < len(b.Pix); i += 4 {
		b.Pix[i] = byte(i * 31)
	}

	ha, _, err := Encode(a, 1, nil)
	require.NoError(t, err)
	hb, _, err := Encode(b, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestEncode_PartialNibblePadding(t *testing.T) {
	tests := []struct {
		name     string
		lum      []byte
		w, h     int
		expected string
	}{
		// bits 1,0,1,1 | 1 → "b" then "8"
		{"FiveBits", []byte{200, 0, 200, 200, 200}, 5, 1, "b8"},
		// bits 0,1 → 01xx → "4"
		{"TwoBits", []byte{0, 9}, 2, 1, "4"},
		// bits 1,1,1 | 0,... mean = 150 → 1,1,1,0,0,0
		{"SixBits", []byte{200, 200, 200, 100, 100, 100}, 3, 2, "e0"},
		{"Uniform", []byte{7, 7, 7, 7, 7, 7, 7}, 7, 1, "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, _, err := Encode(grayImage(RGB, tt.w, tt.h, tt.lum...), 4, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, hash)
			assert.Len(t, hash, HexLen(tt.w*tt.h))
		})
	}
}

func TestEncode_LuminanceIsChannelMean(t *testing.T) {
	// pixel 0: (90+0+0)/3 = 30, pixel 1: (0+0+0)/3 = 0 → mean 15 → bits 1,0
	img := Image{Pix: []byte{90, 0, 0, 0, 0, 0}, Width: 2, Height: 1, Format: RGB}

	hash, _, err := Encode(img, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "8", hash)
}

func TestEncode_Deterministic(t *testing.T) {
	pix := make([]byte, 16*16*4)
	for i := range pix {
		pix[i] = byte(i * 7)
	}
	img := Image{Pix: pix, Width: 16, Height: 16, Format: RGBA}

	h1, _, err := Encode(img, 16, nil)
	require.NoError(t, err)
	h2, _, err := Encode(img, 16, nil)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestEncode_InvalidInput(t *testing.T) {
	valid := grayImage(RGB, 2, 2, 1, 2, 3, 4)

	tests := []struct {
		name     string
		img      Image
		hashSize int
	}{
		{"NilBuffer", Image{Width: 2, Height: 2, Format: RGB}, 8},
		{"ZeroWidth", Image{Pix: valid.Pix, Width: 0, Height: 2, Format: RGB}, 8},
		{"NegativeHeight", Image{Pix: valid.Pix, Width: 2, Height: -1, Format: RGB}, 8},
		{"ZeroHashSize", valid, 0},
		{"BadFormat", Image{Pix: valid.Pix, Width: 2, Height: 2, Format: 2}, 8},
		{"ShortBuffer", Image{Pix: valid.Pix[:11], Width: 2, Height: 2, Format: RGB}, 8},
		{"StrideTooLarge", Image{Pix: valid.Pix, Width: 2, Height: 2, Format: RGBA}, 8},
		{"PixelCountWraps", Image{Pix: valid.Pix, Width: math.MaxInt/2 + 1, Height: 2, Format: RGBA}, 8},
		{"PixelCountWrapsTwice", Image{Pix: valid.Pix, Width: math.MaxInt, Height: math.MaxInt, Format: RGB}, 8},
		{"ByteCountOverflows", Image{Pix: valid.Pix, Width: math.MaxInt / 2, Height: 1, Format: RGBA}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Encode(tt.img, tt.hashSize, nil)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestEncode_OutOfMemory(t *testing.T) {
	mem := resource.NewController(resource.Config{MemoryLimitBytes: 1})
	img := grayImage(RGB, 3, 3, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	_, _, err := Encode(img, 3, mem)
	require.Error(t, err)

	var ae *resource.AllocError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "hash", ae.Stage)
	assert.Equal(t, int64(0), mem.MemoryUsage())
}

func TestEncode_ReservationTracked(t *testing.T) {
	mem := resource.NewController(resource.Config{})
	img := grayImage(RGB, 3, 3, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	hash, bytes, err := Encode(img, 3, mem)
	require.NoError(t, err)
	assert.Equal(t, int64(len(hash)), bytes)
	assert.Equal(t, bytes, mem.MemoryUsage())
}

func packBatch(images ...Image) *Batch {
	b := &Batch{Format: RGB, HashSize: 8}
	for _, img := range images {
		b.Offsets = append(b.Offsets, len(b.Data))
		b.Dims = append(b.Dims, Dimensions{Width: img.Width, Height: img.Height})
		b.Data = append(b.Data, img.Pix...)
	}
	return b
}

func TestEncodeBatch_PartialFailure(t *testing.T) {
	b := packBatch(
		grayImage(RGB, 2, 2, 10, 200, 10, 200),
		grayImage(RGB, 2, 2, 200, 10, 200, 10),
		grayImage(RGB, 2, 2, 200, 200, 10, 10),
	)
	b.Dims[1].Width = 0

	for _, workers := range []int{1, 4} {
		results, arrayBytes, err := EncodeBatch(context.Background(), b, workers, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 3*ResultBytes, arrayBytes)

		assert.NoError(t, results[0].Err)
		assert.Equal(t, "5", results[0].Hash)

		assert.ErrorIs(t, results[1].Err, ErrInvalidImage)
		assert.Empty(t, results[1].Hash)

		assert.NoError(t, results[2].Err)
		assert.Equal(t, "c", results[2].Hash)
	}
}

func TestEncodeBatch_OffsetOutOfRange(t *testing.T) {
	b := packBatch(grayImage(RGB, 2, 2, 1, 2, 3, 4), grayImage(RGB, 2, 2, 1, 2, 3, 4))
	b.Offsets[1] = len(b.Data) + 10

	results, _, err := EncodeBatch(context.Background(), b, 1, nil)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrInvalidImage)
}

func TestEncodeBatch_MismatchedDescription(t *testing.T) {
	b := packBatch(grayImage(RGB, 2, 2, 1, 2, 3, 4))
	b.Offsets = append(b.Offsets, 0)

	_, _, err := EncodeBatch(context.Background(), b, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestEncodeBatch_ResultArrayOutOfMemory(t *testing.T) {
	mem := resource.NewController(resource.Config{MemoryLimitBytes: ResultBytes})
	b := packBatch(grayImage(RGB, 2, 2, 1, 2, 3, 4), grayImage(RGB, 2, 2, 1, 2, 3, 4))

	_, _, err := EncodeBatch(context.Background(), b, 1, mem)
	var ae *resource.AllocError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "batch results", ae.Stage)
}

func TestEncodeBatch_PerImageOutOfMemory(t *testing.T) {
	// array fits, plus exactly one 1-digit hash
	mem := resource.NewController(resource.Config{MemoryLimitBytes: 2*ResultBytes + 1})
	b := packBatch(grayImage(RGB, 2, 2, 1, 2, 3, 4), grayImage(RGB, 2, 2, 1, 2, 3, 4))

	results, arrayBytes, err := EncodeBatch(context.Background(), b, 1, mem)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, resource.ErrMemoryLimitExceeded)

	ReleaseResults(results, mem)
	mem.ReleaseMemory(arrayBytes)
	assert.Equal(t, int64(0), mem.MemoryUsage())
}

func TestEncodeBatch_Cancelled(t *testing.T) {
	mem := resource.NewController(resource.Config{})
	b := packBatch(grayImage(RGB, 2, 2, 1, 2, 3, 4), grayImage(RGB, 2, 2, 1, 2, 3, 4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := EncodeBatch(ctx, b, 1, mem)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), mem.MemoryUsage())
}

func TestEncodeBatch_Empty(t *testing.T) {
	results, bytes, err := EncodeBatch(context.Background(), &Batch{Format: RGB, HashSize: 8}, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), bytes)
}
