package dupehash

import (
	"errors"
	"fmt"

	"github.com/hupe1980/dupehash/internal/fingerprint"
	"github.com/hupe1980/dupehash/internal/resource"
	"github.com/hupe1980/dupehash/internal/search"
)

var (
	// ErrInvalidInput is returned for an empty or short pixel buffer,
	// non-positive dimensions or hash size, a negative threshold, or an
	// invalid bucket.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfMemory is returned when an allocation does not fit the
	// configured memory budget.
	ErrOutOfMemory = errors.New("out of memory")
)

// AllocationError reports the stage whose reservation failed.
//
// Stage is for diagnostics only. Callers branch on ErrOutOfMemory.
type AllocationError struct {
	Stage string
	Bytes int64
	cause error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("out of memory: %s needs %d bytes", e.Stage, e.Bytes)
}

// Unwrap exposes both ErrOutOfMemory and the underlying budget error.
func (e *AllocationError) Unwrap() []error { return []error{ErrOutOfMemory, e.cause} }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ae *resource.AllocError
	if errors.As(err, &ae) {
		return &AllocationError{Stage: ae.Stage, Bytes: ae.Bytes, cause: err}
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	if errors.Is(err, fingerprint.ErrInvalidImage) ||
		errors.Is(err, search.ErrInvalidThreshold) ||
		errors.Is(err, search.ErrInvalidBucket) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return err
}
