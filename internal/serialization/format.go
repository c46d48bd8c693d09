package serialization

import (
	"fmt"
	"time"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/symmetry"
)

// Format constants.
const (
	MagicBytes        = "SYMT"
	FormatVersion     = 1    // v1: legacy sector-matrix layout, no checksum
	FormatVersionV2   = 2    // v2: block layout with SHA-256 checksum
	HeaderAlignment   = 64   // Align block data to 64 bytes
	FixedHeaderSizeV1 = 20   // magic + version + flags + header size
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// DTypeFloat64 is the only element type stored.
const DTypeFloat64 = "float64"

// Tensor kinds as written in the header.
const (
	KindDense  = "dense"
	KindBlock  = "block"
	KindLegacy = "legacy" // v1 sector matrices
)

// Flags for the file format.
const (
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
	FlagDiagonal    uint32 = 1 << 3 // bit 3: tensor stored in diagonal form
)

// Header represents the JSON header of a tensor file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Version       string            `json:"symten_version"` // Version of the writer
	CreatedAt     time.Time         `json:"created_at"`
	Tensor        TensorMeta        `json:"tensor"`
	Metadata      map[string]string `json:"metadata"`
}

// TensorMeta describes the stored tensor.
type TensorMeta struct {
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	RowRank int          `json:"rowrank"`
	Diag    bool         `json:"diag,omitempty"`
	Labels  []string     `json:"labels"`
	Bonds   []BondMeta   `json:"bonds"`
	Blocks  []BlockMeta  `json:"blocks,omitempty"`
	Sectors []SectorMeta `json:"sectors,omitempty"` // v1 only
}

// BondMeta is the stored form of a bond.
type BondMeta struct {
	Dim       int            `json:"dim"`
	Direction string         `json:"direction"`
	Syms      []SymmetryMeta `json:"syms,omitempty"`
	Qnums     [][]int        `json:"qnums,omitempty"`
	Degs      []int          `json:"degs,omitempty"`
}

// SymmetryMeta is the stored form of a symmetry.
type SymmetryMeta struct {
	Kind string `json:"kind"`
	N    int    `json:"n,omitempty"`
}

// BlockMeta locates one block in the data section.
type BlockMeta struct {
	QIndices []int  `json:"qindices,omitempty"` // nil for dense tensors
	DType    string `json:"dtype"`
	Shape    []int  `json:"shape"`
	Offset   int64  `json:"offset"` // bytes from start of the data section
	Size     int64  `json:"size"`   // bytes
}

// SectorMeta locates one legacy sector matrix in the data section.
type SectorMeta struct {
	Charge []int  `json:"charge"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

func directionToString(d bond.Direction) string {
	return d.String()
}

func stringToDirection(s string) (bond.Direction, bool) {
	switch s {
	case "REG":
		return bond.Regular, true
	case "IN":
		return bond.In, true
	case "OUT":
		return bond.Out, true
	default:
		return 0, false
	}
}

func bondToMeta(b bond.Bond) BondMeta {
	m := BondMeta{Dim: b.Dim(), Direction: directionToString(b.Direction())}
	if !b.IsSymmetric() {
		return m
	}
	for _, s := range b.Syms() {
		m.Syms = append(m.Syms, SymmetryMeta{Kind: s.Kind.String(), N: s.N})
	}
	for _, q := range b.Qnums() {
		m.Qnums = append(m.Qnums, []int(q))
	}
	m.Degs = b.Degs()
	return m
}

func metaToBond(m BondMeta) (bond.Bond, error) {
	dir, ok := stringToDirection(m.Direction)
	if !ok {
		return bond.Bond{}, fmt.Errorf("unknown bond direction %q", m.Direction)
	}
	if len(m.Qnums) == 0 {
		return bond.New(m.Dim, dir)
	}

	syms := make([]symmetry.Symmetry, len(m.Syms))
	for i, s := range m.Syms {
		switch s.Kind {
		case symmetry.U1.String():
			syms[i] = symmetry.NewU1()
		case symmetry.Zn.String():
			zn, err := symmetry.NewZn(s.N)
			if err != nil {
				return bond.Bond{}, err
			}
			syms[i] = zn
		default:
			return bond.Bond{}, fmt.Errorf("unknown symmetry kind %q", s.Kind)
		}
	}
	qnums := make([]symmetry.Qnum, len(m.Qnums))
	for i, q := range m.Qnums {
		qnums[i] = symmetry.Qnum(q)
	}
	b, err := bond.NewSymmetric(dir, qnums, m.Degs, syms)
	if err != nil {
		return bond.Bond{}, err
	}
	if b.Dim() != m.Dim {
		return bond.Bond{}, fmt.Errorf("bond dim %d does not match degeneracies (sum %d)", m.Dim, b.Dim())
	}
	return b, nil
}

// alignedDataOffset returns where the data section starts after a fixed
// header of size fixed and a JSON header of size header.
func alignedDataOffset(fixed, header int64) int64 {
	pos := fixed + header
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
