package core

import (
	"errors"
)

// Error kinds. Concrete errors elsewhere in the engine wrap one of these so
// call sites can decide between retrying, degrading and exiting.
var (
	// ErrAllocationFailed is returned when the driver hands back the invalid id.
	ErrAllocationFailed = errors.New("native resource allocation failed")
	// ErrResourceExhausted is returned when a fixed pool has no free slot left.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrUnsupported is returned for inputs the engine rejects before reaching a driver.
	ErrUnsupported = errors.New("unsupported input")
	ErrUnknown     = errors.New("unknown")
)

// IsRecoverable reports whether err is an exhaustion or unsupported-input
// error, i.e. one a caller may skip instead of aborting.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrResourceExhausted) || errors.Is(err, ErrUnsupported)
}
