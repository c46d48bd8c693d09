package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap      = errors.New("block offsets overlap")
	ErrOutOfBounds        = errors.New("block extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
	ErrTooManyBlocks      = errors.New("too many blocks in file")
	ErrInvalidTensorName  = errors.New("invalid tensor name")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrWriterClosed       = errors.New("writer is closed")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Tensor  string // Tensor name, if known
	Block   int    // Block or sector index, -1 when not about one block
	Details string // Additional details
	Err     error  // Sentinel matched by errors.Is, may be nil
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Block >= 0 && e.Tensor != "":
		return fmt.Sprintf("%s: tensor %q block %d: %s", e.Type, e.Tensor, e.Block, e.Details)
	case e.Block >= 0:
		return fmt.Sprintf("%s: block %d: %s", e.Type, e.Block, e.Details)
	case e.Tensor != "":
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Details)
	}
}

// Unwrap returns the sentinel error, if any.
func (e *ValidationError) Unwrap() error { return e.Err }
