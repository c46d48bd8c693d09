package serialization

import (
	"crypto/sha256"
	"fmt"
)

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns an error wrapping ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored [ChecksumSize]byte) error {
	if computed != stored {
		return fmt.Errorf("%w: stored %x, computed %x", ErrChecksumMismatch, stored[:8], computed[:8])
	}
	return nil
}
