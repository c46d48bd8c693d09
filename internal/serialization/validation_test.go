package serialization

import (
	"errors"
	"strings"
	"testing"
)

func blocks(regions ...[2]int64) []BlockMeta {
	out := make([]BlockMeta, len(regions))
	for i, r := range regions {
		out[i] = BlockMeta{DType: DTypeFloat64, Shape: []int{int(r[1] / 8)}, Offset: r[0], Size: r[1]}
	}
	return out
}

func headerWith(bs []BlockMeta) Header {
	return Header{Tensor: TensorMeta{
		Name:   "psi",
		Kind:   KindBlock,
		Labels: []string{"a"},
		Bonds:  []BondMeta{{Dim: 2, Direction: "IN"}},
		Blocks: bs,
	}}
}

// TestValidateBlockOffsets_Overlap detects overlapping block regions.
func TestValidateBlockOffsets_Overlap(t *testing.T) {
	tests := []struct {
		name     string
		blocks   []BlockMeta
		dataSize int64
		wantType string
	}{
		{"no overlap", blocks([2]int64{0, 96}, [2]int64{96, 160}), 256, ""},
		{"complete overlap", blocks([2]int64{0, 96}, [2]int64{48, 96}), 256, "offset_overlap"},
		{"overlap by one byte", blocks([2]int64{0, 96}, [2]int64{95, 96}), 256, "offset_overlap"},
		{"exact boundary", blocks([2]int64{0, 96}, [2]int64{96, 96}), 192, ""},
		{"beyond data", blocks([2]int64{0, 96}, [2]int64{96, 96}), 100, "out_of_bounds"},
		{"negative offset", blocks([2]int64{-8, 8}), 100, "negative_offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlockOffsets(tt.blocks, tt.dataSize)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %T (%v)", err, err)
			}
			if validationErr.Type != tt.wantType {
				t.Errorf("Expected %s error, got %s", tt.wantType, validationErr.Type)
			}
		})
	}
}

// TestValidateBlockOffsets_Sentinels checks errors.Is on validation failures.
func TestValidateBlockOffsets_Sentinels(t *testing.T) {
	err := ValidateBlockOffsets(blocks([2]int64{0, 96}, [2]int64{48, 96}), 256)
	if !errors.Is(err, ErrOffsetOverlap) {
		t.Errorf("Expected ErrOffsetOverlap, got: %v", err)
	}
	err = ValidateBlockOffsets(blocks([2]int64{0, 96}), 8)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got: %v", err)
	}
}

// TestValidateTensorName_PathTraversal prevents directory traversal attacks.
func TestValidateTensorName_PathTraversal(t *testing.T) {
	badNames := []string{
		"../../../etc/passwd",
		"..\\..\\windows\\system32",
		"psi/../secret",
		"chain/0/site",
		"tensor\x00hidden",
		strings.Repeat("a", MaxTensorNameLen+1),
	}

	for _, name := range badNames {
		t.Run(name, func(t *testing.T) {
			err := ValidateTensorName(name)
			if !errors.Is(err, ErrInvalidTensorName) {
				t.Errorf("Expected ErrInvalidTensorName for %q, got %v", name, err)
			}
		})
	}
}

// TestValidateTensorName_ValidNames ensures valid names are accepted.
func TestValidateTensorName_ValidNames(t *testing.T) {
	for _, name := range []string{"", "psi", "site.3.A", "mps_tensor_0", "H:bond-7"} {
		if err := ValidateTensorName(name); err != nil {
			t.Errorf("Expected no error for valid name %q, got: %v", name, err)
		}
	}
}

// TestValidateHeader_Levels tests the strict, normal and disabled modes.
func TestValidateHeader_Levels(t *testing.T) {
	overlapping := headerWith(blocks([2]int64{0, 16}, [2]int64{8, 16}))

	if err := ValidateHeader(&overlapping, 32, ValidationNormal); err != nil {
		t.Errorf("Normal validation should skip offsets, got error: %v", err)
	}
	if err := ValidateHeader(&overlapping, 32, ValidationStrict); err == nil {
		t.Error("Strict validation should fail on overlap")
	}

	broken := headerWith(nil)
	broken.Tensor.Name = "../../../etc/passwd"
	broken.Tensor.Kind = "mystery"
	if err := ValidateHeader(&broken, 0, ValidationNone); err != nil {
		t.Errorf("ValidationNone should skip all checks, got error: %v", err)
	}
}

// TestValidateHeader_Structure rejects inconsistent block tables.
func TestValidateHeader_Structure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *Header)
		want   string
	}{
		{"unknown kind", func(h *Header) { h.Tensor.Kind = "sparse" }, "bad_kind"},
		{"label count", func(h *Header) { h.Tensor.Labels = nil }, "bad_labels"},
		{"no bonds", func(h *Header) { h.Tensor.Bonds, h.Tensor.Labels = nil, nil }, "bad_rank"},
		{"dtype", func(h *Header) { h.Tensor.Blocks[0].DType = "float32" }, "bad_dtype"},
		{"size", func(h *Header) { h.Tensor.Blocks[0].Size = 12 }, "bad_size"},
		{"dense arrays", func(h *Header) { h.Tensor.Kind = KindDense; h.Tensor.Blocks = nil }, "bad_blocks"},
		{"legacy shape", func(h *Header) {
			h.Tensor.Kind = KindLegacy
			h.Tensor.Sectors = []SectorMeta{{DType: DTypeFloat64, Shape: []int{2}, Size: 16}}
		}, "bad_shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := headerWith(blocks([2]int64{0, 16}))
			tt.mutate(&h)
			err := ValidateHeader(&h, 16, ValidationStrict)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %T (%v)", err, err)
			}
			if validationErr.Type != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, validationErr.Type)
			}
		})
	}
}

// TestValidationError_ErrorMessages verifies error message formatting.
func TestValidationError_ErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name:     "tensor and block",
			err:      &ValidationError{Type: "bad_size", Tensor: "psi", Block: 3, Details: "short"},
			expected: `bad_size: tensor "psi" block 3: short`,
		},
		{
			name:     "block only",
			err:      &ValidationError{Type: "out_of_bounds", Block: 0, Details: "offset 100 + size 200 > data_size 250"},
			expected: "out_of_bounds: block 0: offset 100 + size 200 > data_size 250",
		},
		{
			name:     "tensor only",
			err:      &ValidationError{Type: "invalid_name", Tensor: "a/b", Block: -1, Details: "separator"},
			expected: `invalid_name: tensor "a/b": separator`,
		},
		{
			name:     "general",
			err:      &ValidationError{Type: "too_many_blocks", Block: -1, Details: "got 2000001, max 1000000"},
			expected: "too_many_blocks: got 2000001, max 1000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := tt.err.Error(); actual != tt.expected {
				t.Errorf("Error message mismatch\nExpected: %s\nGot:      %s", tt.expected, actual)
			}
		})
	}
}

// FuzzValidateTensorName ensures name validation never panics on random input.
func FuzzValidateTensorName(f *testing.F) {
	f.Add("psi")
	f.Add("../malicious")
	f.Add("path/to/tensor")
	f.Add("\x00null_byte")

	f.Fuzz(func(_ *testing.T, name string) {
		_ = ValidateTensorName(name)
	})
}

// FuzzValidateBlockOffsets ensures offset validation never panics.
func FuzzValidateBlockOffsets(f *testing.F) {
	f.Add(int64(0), int64(96), int64(200))
	f.Add(int64(-100), int64(48), int64(1000))
	f.Add(int64(100), int64(-48), int64(1000))

	f.Fuzz(func(_ *testing.T, offset, size, dataSize int64) {
		_ = ValidateBlockOffsets([]BlockMeta{{Offset: offset, Size: size}}, dataSize)
	})
}
