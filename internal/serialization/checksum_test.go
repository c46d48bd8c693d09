package serialization

import (
	"encoding/hex"
	"errors"
	"testing"
)

// TestComputeChecksum verifies SHA-256 checksum computation.
func TestComputeChecksum(t *testing.T) {
	data := []byte("test data")
	checksum1 := ComputeChecksum(data)
	checksum2 := ComputeChecksum(data)

	// Same data should produce same checksum
	if checksum1 != checksum2 {
		t.Error("Checksums should match for identical data")
	}

	// Different data should produce different checksum
	checksum3 := ComputeChecksum([]byte("different data"))
	if checksum1 == checksum3 {
		t.Error("Checksums should differ for different data")
	}
}

// TestValidateChecksum verifies checksum validation.
func TestValidateChecksum(t *testing.T) {
	checksum := ComputeChecksum([]byte("test data"))

	if err := ValidateChecksum(checksum, checksum); err != nil {
		t.Errorf("Expected no error for matching checksums, got: %v", err)
	}

	wrong := [ChecksumSize]byte{1, 2, 3, 4, 5, 6, 7, 8}
	err := ValidateChecksum(checksum, wrong)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got: %v", err)
	}
}

// TestKnownVectorSHA256 verifies SHA-256 produces correct known vectors.
func TestKnownVectorSHA256(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "hello world",
			input:    "hello world",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checksum := ComputeChecksum([]byte(tt.input))
			if got := hex.EncodeToString(checksum[:]); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
