package pairbuf

import (
	"errors"
	"unsafe"

	"github.com/hupe1980/dupehash/internal/resource"
)

// ErrReleased is returned when appending to a buffer that was finalized or
// released.
var ErrReleased = errors.New("pair buffer released")

// Pair is an ordered index pair with I < J.
type Pair struct {
	I int
	J int
}

// PairBytes is the accounted size of one Pair.
const PairBytes = int64(unsafe.Sizeof(Pair{}))

const (
	stageAlloc = "pair buffer"
	stageGrow  = "pair buffer growth"
)

// Buffer is an append-only list of pairs with doubling growth.
type Buffer struct {
	pairs    []Pair
	count    int
	reserved int64
	mem      *resource.Controller
	released bool
}

// New allocates a buffer holding capacity pairs. A capacity below 1 is raised
// to 1.
func New(capacity int, mem *resource.Controller) (*Buffer, error) {
	if capacity < 1 {
		capacity = 1
	}

	bytes := int64(capacity) * PairBytes
	if err := mem.Acquire(stageAlloc, bytes); err != nil {
		return nil, err
	}

	return &Buffer{
		pairs:    make([]Pair, capacity),
		reserved: bytes,
		mem:      mem,
	}, nil
}

// Append adds (i, j) to the buffer, doubling capacity when full.
//
// If growth cannot be reserved the buffer is released and the error
// returned; the caller must discard it.
func (b *Buffer) Append(i, j int) error {
	if b.released {
		return ErrReleased
	}

	if b.count == len(b.pairs) {
		if err := b.grow(); err != nil {
			b.Release()
			return err
		}
	}

	b.pairs[b.count] = Pair{I: i, J: j}
	b.count++
	return nil
}

func (b *Buffer) grow() error {
	newCap := len(b.pairs) * 2
	extra := int64(newCap) * PairBytes

	// Old and new arrays coexist during the copy.
	if err := b.mem.Acquire(stageGrow, extra); err != nil {
		return err
	}

	next := make([]Pair, newCap)
	copy(next, b.pairs[:b.count])

	b.mem.ReleaseMemory(b.reserved)
	b.pairs = next
	b.reserved = extra
	return nil
}

// Len returns the number of pairs appended.
func (b *Buffer) Len() int {
	return b.count
}

// Cap returns the current capacity in pairs.
func (b *Buffer) Cap() int {
	return len(b.pairs)
}

// At returns the k-th appended pair.
func (b *Buffer) At(k int) Pair {
	return b.pairs[k]
}

// Finalize transfers ownership of the pairs and their reservation to the
// caller. The returned slice has length Len; unused tail capacity stays
// reserved until the caller releases the returned byte count.
func (b *Buffer) Finalize() ([]Pair, int64) {
	pairs, reserved := b.pairs[:b.count], b.reserved
	b.pairs = nil
	b.reserved = 0
	b.released = true
	return pairs, reserved
}

// Release drops the pairs and returns the reservation. It is idempotent.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.mem.ReleaseMemory(b.reserved)
	b.pairs = nil
	b.count = 0
	b.reserved = 0
	b.released = true
}
