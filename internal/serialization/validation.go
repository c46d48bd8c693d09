package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxBlockCount    = 1_000_000         // Maximum number of blocks in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
	MaxRank          = 64                // Maximum number of legs
	MaxDataSize      = 16 << 30          // 16GB - maximum data section size
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default, recommended for production).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal performs basic validation checks only.
	ValidationNormal
	// ValidationNone skips validation (dangerous! Use only with trusted input).
	ValidationNone
)

// region is one stored array inside the data section.
type region struct {
	index        int
	offset, size int64
}

// ValidateBlockOffsets checks for overlapping block offsets and out-of-bounds access.
func ValidateBlockOffsets(blocks []BlockMeta, dataSize int64) error {
	regions := make([]region, len(blocks))
	for i, b := range blocks {
		regions[i] = region{index: i, offset: b.Offset, size: b.Size}
	}
	return validateRegions(regions, dataSize)
}

func validateRegions(regions []region, dataSize int64) error {
	if len(regions) > MaxBlockCount {
		return &ValidationError{
			Type:    "too_many_blocks",
			Block:   -1,
			Details: fmt.Sprintf("got %d, max %d", len(regions), MaxBlockCount),
			Err:     ErrTooManyBlocks,
		}
	}

	sorted := append([]region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].offset < sorted[j].offset
	})

	for i, r := range sorted {
		if r.offset < 0 || r.size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Block:   r.index,
				Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", r.offset, r.size),
				Err:     ErrNegativeOffset,
			}
		}

		if r.offset+r.size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Block:   r.index,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", r.offset, r.size, dataSize),
				Err:     ErrOutOfBounds,
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if r.offset+r.size > next.offset {
				return &ValidationError{
					Type:  "offset_overlap",
					Block: r.index,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] (block %d) overlap",
						r.offset, r.offset+r.size, next.offset, next.offset+next.size, next.index),
					Err: ErrOffsetOverlap,
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects names that could be abused when tensors are
// written next to each other as files.
func ValidateTensorName(name string) error {
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Block:   -1,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
			Err:     ErrInvalidTensorName,
		}
	}

	var reason string
	switch {
	case strings.Contains(name, ".."):
		reason = "contains '..' (path traversal attempt)"
	case strings.ContainsAny(name, "/\\"):
		reason = "contains path separator (/ or \\)"
	case strings.Contains(name, "\x00"):
		reason = "contains null byte"
	default:
		return nil
	}
	return &ValidationError{Type: "invalid_name", Tensor: name, Block: -1, Details: reason, Err: ErrInvalidTensorName}
}

// ValidateHeader checks the header against the size of the data section.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	m := &h.Tensor

	if err := ValidateTensorName(m.Name); err != nil {
		return err
	}
	if len(m.Bonds) > MaxRank || (len(m.Bonds) == 0 && m.Kind != KindDense) {
		return &ValidationError{Type: "bad_rank", Tensor: m.Name, Block: -1,
			Details: fmt.Sprintf("%d bonds for a %s tensor, max %d", len(m.Bonds), m.Kind, MaxRank)}
	}
	if len(m.Labels) != len(m.Bonds) {
		return &ValidationError{Type: "bad_labels", Tensor: m.Name, Block: -1,
			Details: fmt.Sprintf("%d labels for %d bonds", len(m.Labels), len(m.Bonds))}
	}

	var regions []region
	switch m.Kind {
	case KindDense, KindBlock:
		if m.Kind == KindDense && len(m.Blocks) != 1 {
			return &ValidationError{Type: "bad_blocks", Tensor: m.Name, Block: -1,
				Details: fmt.Sprintf("dense tensor with %d arrays", len(m.Blocks))}
		}
		for i, b := range m.Blocks {
			if err := checkArray(m.Name, i, b.DType, b.Shape, b.Size); err != nil {
				return err
			}
			regions = append(regions, region{index: i, offset: b.Offset, size: b.Size})
		}
	case KindLegacy:
		for i, s := range m.Sectors {
			if len(s.Shape) != 2 {
				return &ValidationError{Type: "bad_shape", Tensor: m.Name, Block: i,
					Details: fmt.Sprintf("sector matrix has shape %v", s.Shape)}
			}
			if err := checkArray(m.Name, i, s.DType, s.Shape, s.Size); err != nil {
				return err
			}
			regions = append(regions, region{index: i, offset: s.Offset, size: s.Size})
		}
	default:
		return &ValidationError{Type: "bad_kind", Tensor: m.Name, Block: -1,
			Details: fmt.Sprintf("unknown tensor kind %q", m.Kind)}
	}

	if len(regions) > MaxBlockCount {
		return &ValidationError{Type: "too_many_blocks", Tensor: m.Name, Block: -1,
			Details: fmt.Sprintf("got %d, max %d", len(regions), MaxBlockCount), Err: ErrTooManyBlocks}
	}
	if level == ValidationStrict {
		return validateRegions(regions, dataSize)
	}
	return nil
}

func checkArray(name string, i int, dtype string, shape []int, size int64) error {
	if dtype != DTypeFloat64 {
		return &ValidationError{Type: "bad_dtype", Tensor: name, Block: i,
			Details: fmt.Sprintf("dtype %q, want %q", dtype, DTypeFloat64)}
	}
	n := int64(8)
	for _, d := range shape {
		if d < 0 {
			return &ValidationError{Type: "bad_shape", Tensor: name, Block: i,
				Details: fmt.Sprintf("negative dimension in %v", shape)}
		}
		n *= int64(d)
	}
	if n != size {
		return &ValidationError{Type: "bad_size", Tensor: name, Block: i,
			Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", shape, n, size)}
	}
	return nil
}
