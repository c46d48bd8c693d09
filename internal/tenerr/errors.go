// Package tenerr defines the error taxonomy shared by every tensor package.
//
// Callers match with errors.Is. Operations add context with
// fmt.Errorf("op: ...: %w", ErrX) and never return a bare string error for
// one of these conditions.
package tenerr

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrStructuralMismatch reports incompatible bonds, symmetries, tags or
	// ranks between operands. Always fatal for the call.
	ErrStructuralMismatch = errors.New("structural mismatch")

	// ErrInvalidQnumLookup reports that no block is stored for the requested
	// index tuple. Callers that tolerate missing blocks pass force=true.
	ErrInvalidQnumLookup = errors.New("no block for quantum-number indices")

	// ErrUnsupportedOnVariant reports an operation that is only defined for
	// the other tensor variant (e.g. Reshape on a symmetric tensor).
	ErrUnsupportedOnVariant = errors.New("operation not supported on this tensor variant")

	// ErrDimensionMismatch reports that a caller-supplied array does not have
	// the shape of the block it should replace.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrZeroDivisor reports division of a tensor by zero.
	ErrZeroDivisor = errors.New("division by zero")

	// ErrLabelNotFound reports an unknown leg label.
	ErrLabelNotFound = fmt.Errorf("%w: label not found", ErrStructuralMismatch)

	// ErrInvalidRowRank reports a rowrank outside the range an operation accepts.
	ErrInvalidRowRank = fmt.Errorf("%w: invalid rowrank", ErrStructuralMismatch)
)
