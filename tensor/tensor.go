// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for symmetric tensors.
//
// The package defines the core types:
//   - UniTensor: a labelled tensor, dense or block-sparse
//   - Bond: one leg with direction and quantum numbers
//   - Symmetry, Qnum: abelian symmetries and their charges
//
// Example:
//
//	u1 := []tensor.Symmetry{tensor.U1()}
//	b := tensor.MustSymmetricBond(tensor.In, []tensor.Qnum{{0}, {1}}, []int{2, 1}, u1)
//	t, _ := tensor.New([]tensor.Bond{b, b.Redirect()}, tensor.WithLabels("i", "j"))
package tensor

import (
	"io"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/serialization"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
	"github.com/born-ml/symten/internal/unitensor"
)

// Type aliases for public API

// Symmetry is an abelian symmetry group, U(1) or Z(n).
type Symmetry = symmetry.Symmetry

// Qnum is a quantum number: one charge per symmetry in a list.
type Qnum = symmetry.Qnum

// U1 returns the U(1) symmetry.
func U1() Symmetry { return symmetry.NewU1() }

// Zn returns the Z(n) symmetry. n must be at least 2.
func Zn(n int) (Symmetry, error) { return symmetry.NewZn(n) }

// Direction is the orientation of a leg.
type Direction = bond.Direction

// Direction constants.
const (
	Regular Direction = bond.Regular
	In      Direction = bond.In
	Out     Direction = bond.Out
)

// Bond describes one leg of a tensor. Bonds are values; the methods that
// change a bond return a new one.
type Bond = bond.Bond

// FusionMap records how the raw entries of a combined bond map to its slots.
type FusionMap = bond.FusionMap

// NewBond creates a bond without quantum numbers.
func NewBond(dim int, dir Direction) (Bond, error) { return bond.New(dim, dir) }

// NewSymmetricBond creates a bond whose slots carry the given quantum
// numbers and degeneracies. dir must be In or Out.
func NewSymmetricBond(dir Direction, qnums []Qnum, degs []int, syms []Symmetry) (Bond, error) {
	return bond.NewSymmetric(dir, qnums, degs, syms)
}

// MustSymmetricBond is like NewSymmetricBond but panics on error.
func MustSymmetricBond(dir Direction, qnums []Qnum, degs []int, syms []Symmetry) Bond {
	return bond.MustSymmetric(dir, qnums, degs, syms)
}

// CombineBonds fuses bonds left to right. With group, slots with equal
// quantum numbers are merged and sorted.
func CombineBonds(bonds []Bond, group bool) (Bond, *FusionMap, error) {
	out, m, _, err := bond.CombineAll(bonds, group)
	return out, m, err
}

// UniTensor is a labelled tensor, dense or block-sparse.
//
// UniTensor provides:
//   - Labels, row rank and bond access
//   - Block access by index or by quantum-number indices (itoi)
//   - Permute, CombineBonds, SplitBond, Trace and Truncate
//   - Elementwise arithmetic and norms
type UniTensor = unitensor.UniTensor

// Kind tells the two tensor variants apart.
type Kind = unitensor.Kind

// Tensor kinds.
const (
	Dense Kind = unitensor.Dense
	Block Kind = unitensor.Block
)

// Option configures tensor construction.
type Option = unitensor.Option

// SectorLayout is the matrix view of a block tensor, one matrix per charge.
type SectorLayout = unitensor.SectorLayout

// Errors re-exported for errors.Is.
var (
	ErrStructuralMismatch   = tenerr.ErrStructuralMismatch
	ErrInvalidQnumLookup    = tenerr.ErrInvalidQnumLookup
	ErrUnsupportedOnVariant = tenerr.ErrUnsupportedOnVariant
	ErrDimensionMismatch    = tenerr.ErrDimensionMismatch
	ErrZeroDivisor          = tenerr.ErrZeroDivisor
	ErrLabelNotFound        = tenerr.ErrLabelNotFound
	ErrInvalidRowRank       = tenerr.ErrInvalidRowRank
	ErrChecksumMismatch     = serialization.ErrChecksumMismatch
)

// Construction options

// WithLabels sets the leg labels. Labels must be unique.
func WithLabels(labels ...string) Option { return unitensor.WithLabels(labels...) }

// WithRowRank sets how many leading legs form the row space.
func WithRowRank(rowrank int) Option { return unitensor.WithRowRank(rowrank) }

// WithName sets the tensor name.
func WithName(name string) Option { return unitensor.WithName(name) }

// WithDiag stores only the diagonal of a rank-2 tensor.
func WithDiag() Option { return unitensor.WithDiag() }

// Creation functions

// New creates a zero tensor over bonds. Symmetric bonds give a block
// tensor holding every block allowed by charge conservation.
//
// Example:
//
//	t, err := tensor.New([]tensor.Bond{a, b, c}, tensor.WithRowRank(2))
func New(bonds []Bond, opts ...Option) (*UniTensor, error) {
	return unitensor.New(bonds, opts...)
}

// FromArray wraps arr as a dense tensor with Regular legs.
func FromArray(arr *Array, opts ...Option) (*UniTensor, error) {
	return unitensor.FromArray(arr, opts...)
}

// FromArrayBonds wraps arr as a dense tensor over the given non-symmetric
// bonds, keeping their directions.
func FromArrayBonds(arr *Array, bonds []Bond, opts ...Option) (*UniTensor, error) {
	return unitensor.FromArrayBonds(arr, bonds, opts...)
}

// FromBlocks creates a block tensor from explicit blocks and their slot
// tuples. Tuples that are not listed are not stored.
func FromBlocks(bonds []Bond, blocks []*Array, itoi [][]int, opts ...Option) (*UniTensor, error) {
	return unitensor.FromBlocks(bonds, blocks, itoi, opts...)
}

// FromSectors rebuilds a block tensor from its sector matrices.
func FromSectors(bonds []Bond, rowrank int, charges []Qnum, mats []*Array, opts ...Option) (*UniTensor, error) {
	return unitensor.FromSectors(bonds, rowrank, charges, mats, opts...)
}

// Binary operations

// Contract sums over every pair of legs that share a label. The result's
// legs are a's free legs followed by b's.
func Contract(a, b *UniTensor) (*UniTensor, error) { return unitensor.Contract(a, b) }

// Add returns a + b. The operands must have identical structure.
func Add(a, b *UniTensor) (*UniTensor, error) { return unitensor.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *UniTensor) (*UniTensor, error) { return unitensor.Sub(a, b) }

// Mul returns the elementwise product.
func Mul(a, b *UniTensor) (*UniTensor, error) { return unitensor.Mul(a, b) }

// Div returns the elementwise quotient.
func Div(a, b *UniTensor) (*UniTensor, error) { return unitensor.Div(a, b) }

// Persistence

// Save writes t to path in the .symt format.
func Save(path string, t *UniTensor, metadata map[string]string) error {
	return serialization.SaveFile(path, t, metadata)
}

// Load reads a .symt file, verifying its checksum. Legacy files are
// migrated to the current layout.
func Load(path string) (*UniTensor, map[string]string, error) {
	t, h, err := serialization.LoadFile(path, serialization.DefaultReaderOptions())
	if err != nil {
		return nil, nil, err
	}
	return t, h.Metadata, nil
}

// Encode writes t to w in the .symt format.
func Encode(w io.Writer, t *UniTensor) error { return serialization.Encode(w, t, nil) }

// Decode reads a tensor written by Encode.
func Decode(r io.Reader) (*UniTensor, error) {
	t, _, err := serialization.Decode(r, serialization.DefaultReaderOptions())
	return t, err
}
