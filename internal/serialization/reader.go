package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/unitensor"
)

// ReaderOptions configures decoding.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// DefaultReaderOptions returns strict validation with checksum checks.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{ValidationLevel: ValidationStrict}
}

// LoadFile reads the tensor stored at path.
func LoadFile(path string, opts ReaderOptions) (*unitensor.UniTensor, *Header, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	t, h, err := Decode(bufio.NewReader(file), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, h, nil
}

// Decode reads one tensor from in. Files in the legacy v1 layout are
// migrated to a block tensor while loading; the returned header keeps
// FormatVersion 1 so callers can tell.
func Decode(in io.Reader, opts ReaderOptions) (*unitensor.UniTensor, *Header, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(in, head); err != nil {
		return nil, nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(head[:4]) != MagicBytes {
		return nil, nil, ErrInvalidMagic
	}

	var (
		header *Header
		data   []byte
		err    error
	)
	switch version := binary.LittleEndian.Uint32(head[4:8]); version {
	case FormatVersion:
		header, data, err = readV1(in)
	case FormatVersionV2:
		header, data, err = readV2(in, opts)
	default:
		return nil, nil, fmt.Errorf("%w: got %d, expected %d or %d",
			ErrUnsupportedVersion, version, FormatVersion, FormatVersionV2)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := ValidateHeader(header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	var t *unitensor.UniTensor
	if header.Tensor.Kind == KindLegacy {
		t, err = migrateLegacy(&header.Tensor, data)
	} else {
		t, err = buildTensor(&header.Tensor, data)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build tensor: %w", err)
	}
	return t, header, nil
}

// readV1 reads the legacy layout after magic and version:
// flags (uint32), header size (uint64), JSON header, padding, data.
func readV1(in io.Reader) (*Header, []byte, error) {
	var fixed [12]byte
	if _, err := io.ReadFull(in, fixed[:]); err != nil {
		return nil, nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[4:12])
	h, err := readHeaderJSON(in, headerSize, FixedHeaderSizeV1)
	if err != nil {
		return nil, nil, err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sector data: %w", err)
	}
	return h, data, nil
}

func readV2(in io.Reader, opts ReaderOptions) (*Header, []byte, error) {
	fixed := make([]byte, FixedHeaderSizeV2-8)
	if _, err := io.ReadFull(in, fixed); err != nil {
		return nil, nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	// Offsets below are relative to 0x08.
	headerSize := binary.LittleEndian.Uint64(fixed[8:16])
	dataSize := binary.LittleEndian.Uint64(fixed[16:24])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffsetV2-8:])

	h, err := readHeaderJSON(in, headerSize, FixedHeaderSizeV2)
	if err != nil {
		return nil, nil, err
	}
	if dataSize > MaxDataSize {
		return nil, nil, fmt.Errorf("data section of %d bytes is too large", dataSize)
	}
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(in, data); err != nil {
		return nil, nil, fmt.Errorf("failed to read block data: %w", err)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, nil, err
		}
	}
	return h, data, nil
}

// readHeaderJSON reads the JSON header and skips the alignment padding.
func readHeaderJSON(in io.Reader, size uint64, fixed int64) (*Header, error) {
	if size > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(in, buf); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var h Header
	if err := json.Unmarshal(buf, &h); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: size is bounded by MaxHeaderSize
	pad := alignedDataOffset(fixed, int64(size)) - fixed - int64(size)
	if _, err := io.CopyN(io.Discard, in, pad); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}
	return &h, nil
}

func metaBonds(m *TensorMeta) ([]bond.Bond, error) {
	bonds := make([]bond.Bond, len(m.Bonds))
	for i, bm := range m.Bonds {
		b, err := metaToBond(bm)
		if err != nil {
			return nil, fmt.Errorf("bond %d: %w", i, err)
		}
		bonds[i] = b
	}
	return bonds, nil
}

func readArray(data []byte, offset, size int64, shape []int) (*dense.Array, error) {
	raw := data[offset : offset+size]
	vals := make([]float64, len(raw)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return dense.FromSlice(vals, shape...)
}

func buildTensor(m *TensorMeta, data []byte) (*unitensor.UniTensor, error) {
	bonds, err := metaBonds(m)
	if err != nil {
		return nil, err
	}
	opts := []unitensor.Option{unitensor.WithLabels(m.Labels...), unitensor.WithName(m.Name), unitensor.WithRowRank(m.RowRank)}
	if m.Diag {
		opts = append(opts, unitensor.WithDiag())
	}

	arrays := make([]*dense.Array, len(m.Blocks))
	for i, b := range m.Blocks {
		arr, err := readArray(data, b.Offset, b.Size, b.Shape)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		arrays[i] = arr
	}

	if m.Kind == KindDense {
		return unitensor.FromArrayBonds(arrays[0], bonds, opts...)
	}
	itoi := make([][]int, len(m.Blocks))
	for i, b := range m.Blocks {
		itoi[i] = b.QIndices
	}
	return unitensor.FromBlocks(bonds, arrays, itoi, opts...)
}
