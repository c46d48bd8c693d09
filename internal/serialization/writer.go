package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/unitensor"
)

const writerVersion = "0.1.0" // Written into every header

// Writer writes tensors to a file in the current format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates the file at path.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteTensor writes t with optional metadata.
func (w *Writer) WriteTensor(t *unitensor.UniTensor, metadata map[string]string) error {
	if w.closed {
		return ErrWriterClosed
	}
	bw := bufio.NewWriter(w.file)
	if err := Encode(bw, t, metadata); err != nil {
		return err
	}
	return bw.Flush()
}

// Close closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// SaveFile writes t to path.
func SaveFile(path string, t *unitensor.UniTensor, metadata map[string]string) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteTensor(t, metadata); err != nil {
		_ = w.Close() // Best effort close on error
		return err
	}
	return w.Close()
}

// Encode writes t to out in format v2:
//
//	0x00-0x03  magic "SYMT"
//	0x04-0x07  version (uint32 LE)
//	0x08-0x0B  flags (uint32 LE)
//	0x0C-0x0F  reserved
//	0x10-0x17  header size (uint64 LE)
//	0x18-0x1F  data size (uint64 LE)
//	0x20-0x3F  SHA-256 of the data section
//	0x40-      JSON header, zero padding to 64 bytes, data section
//
// The data section holds every block as contiguous little-endian float64.
func Encode(out io.Writer, t *unitensor.UniTensor, metadata map[string]string) error {
	if err := ValidateTensorName(t.Name()); err != nil {
		return err
	}
	header := Header{
		FormatVersion: FormatVersionV2,
		Version:       writerVersion,
		CreatedAt:     time.Now().UTC(),
		Metadata:      metadata,
		Tensor: TensorMeta{
			Name:    t.Name(),
			RowRank: t.RowRank(),
			Diag:    t.IsDiag(),
			Labels:  t.Labels(),
		},
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	for _, b := range t.Bonds() {
		header.Tensor.Bonds = append(header.Tensor.Bonds, bondToMeta(b))
	}

	var arrays []*dense.Array
	switch t.Kind() {
	case unitensor.Dense:
		header.Tensor.Kind = KindDense
		arr, err := t.BlockView(0)
		if err != nil {
			return err
		}
		arrays = append(arrays, arr)
		header.Tensor.Blocks = append(header.Tensor.Blocks, BlockMeta{})
	case unitensor.Block:
		header.Tensor.Kind = KindBlock
		for i := 0; i < t.NumBlocks(); i++ {
			arr, err := t.BlockView(i)
			if err != nil {
				return err
			}
			q, err := t.QIndices(i)
			if err != nil {
				return err
			}
			arrays = append(arrays, arr)
			header.Tensor.Blocks = append(header.Tensor.Blocks, BlockMeta{QIndices: q})
		}
	default:
		panic(fmt.Sprintf("serialization: unknown kind %d", t.Kind()))
	}

	var data []byte
	for i, arr := range arrays {
		m := &header.Tensor.Blocks[i]
		m.DType = DTypeFloat64
		m.Shape = []int(arr.Shape())
		m.Offset = int64(len(data))
		data = appendFloat64s(data, arr.Data())
		m.Size = int64(len(data)) - m.Offset
	}

	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if t.IsDiag() {
		flags |= FlagDiagonal
	}
	return writeV2(out, header, flags, data)
}

func writeV2(out io.Writer, header Header, flags uint32, data []byte) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	checksum := ComputeChecksum(data)

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersionV2))
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := out.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := out.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	pos := int64(FixedHeaderSizeV2) + int64(len(headerJSON))
	if padding := alignedDataOffset(FixedHeaderSizeV2, int64(len(headerJSON))) - pos; padding > 0 {
		if _, err := out.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write block data: %w", err)
	}
	return nil
}

func appendFloat64s(dst []byte, vals []float64) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}
