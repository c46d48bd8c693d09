package unitensor

import (
	"fmt"
	"sort"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
)

// Sector is one charge sector of a block tensor viewed as a matrix from
// its row legs to its column legs.
type Sector struct {
	// Charge is the fused in-sense charge of the row legs.
	Charge symmetry.Qnum
	// Rows and Cols list the raw entries of the fused row and column bonds
	// that belong to the sector, ascending.
	Rows, Cols []int
	// RowOffsets[i] is where Rows[i] starts inside Matrix; likewise for columns.
	RowOffsets, ColOffsets []int
	// Matrix holds the sector's elements. Parts without a stored block are zero.
	Matrix *dense.Array
}

// SectorLayout describes how blocks map onto sector matrices.
type SectorLayout struct {
	RowBonds, ColBonds []bond.Bond
	// RowBond and ColBond are the ungrouped fusions of RowBonds and ColBonds.
	RowBond, ColBond bond.Bond
	Sectors          []Sector

	rowStrides, colStrides []int
	rowOffset, colOffset   []int
	sectorOf               map[string]int
}

// RowSlots decomposes raw row entry r into one slot per row leg.
func (l *SectorLayout) RowSlots(r int) []int {
	return unravel(r, l.rowStrides, l.RowBonds)
}

// ColSlots decomposes raw column entry c into one slot per column leg.
func (l *SectorLayout) ColSlots(c int) []int {
	return unravel(c, l.colStrides, l.ColBonds)
}

func unravel(r int, strides []int, bonds []bond.Bond) []int {
	out := make([]int, len(bonds))
	for i, b := range bonds {
		out[i] = (r / strides[i]) % b.NumSlots()
	}
	return out
}

func ravel(q []int, strides []int) int {
	r := 0
	for i, s := range q {
		r += s * strides[i]
	}
	return r
}

// newSectorLayout builds the grid of every listed charge sector. Each sector
// gets every raw row with its charge and every raw column with the reverse
// charge. Matrices are allocated zero.
func newSectorLayout(bonds []bond.Bond, rowrank int, charges []symmetry.Qnum) (*SectorLayout, error) {
	rows, cols := bonds[:rowrank], bonds[rowrank:]
	rowBond, _, rowStrides, err := bond.CombineAll(rows, false)
	if err != nil {
		return nil, err
	}
	colBond, _, colStrides, err := bond.CombineAll(cols, false)
	if err != nil {
		return nil, err
	}
	syms := bonds[0].Syms()

	l := &SectorLayout{
		RowBonds:   cloneBonds(rows),
		ColBonds:   cloneBonds(cols),
		RowBond:    rowBond,
		ColBond:    colBond,
		Sectors:    make([]Sector, len(charges)),
		rowStrides: rowStrides,
		colStrides: colStrides,
		rowOffset:  make([]int, rowBond.NumSlots()),
		colOffset:  make([]int, colBond.NumSlots()),
		sectorOf:   make(map[string]int, len(charges)),
	}
	for k, c := range charges {
		l.sectorOf[c.Key()] = k
		l.Sectors[k].Charge = c.Clone()
	}

	rowDim := make([]int, len(charges))
	for r := 0; r < rowBond.NumSlots(); r++ {
		k, ok := l.sectorOf[rowBond.Charge(r).Key()]
		if !ok {
			continue
		}
		s := &l.Sectors[k]
		l.rowOffset[r] = rowDim[k]
		s.Rows = append(s.Rows, r)
		s.RowOffsets = append(s.RowOffsets, rowDim[k])
		rowDim[k] += rowBond.Deg(r)
	}
	colDim := make([]int, len(charges))
	for c := 0; c < colBond.NumSlots(); c++ {
		k, ok := l.sectorOf[symmetry.Reverse(syms, colBond.Charge(c)).Key()]
		if !ok {
			continue
		}
		s := &l.Sectors[k]
		l.colOffset[c] = colDim[k]
		s.Cols = append(s.Cols, c)
		s.ColOffsets = append(s.ColOffsets, colDim[k])
		colDim[k] += colBond.Deg(c)
	}

	for k := range l.Sectors {
		if rowDim[k] == 0 || colDim[k] == 0 {
			return nil, fmt.Errorf("%w: sector %s has no legal rows or columns",
				tenerr.ErrStructuralMismatch, l.Sectors[k].Charge)
		}
		l.Sectors[k].Matrix = dense.Zeros(rowDim[k], colDim[k])
	}
	return l, nil
}

// Sectors groups the blocks of t by row charge and lays every sector out as
// one dense matrix. Sectors are sorted by charge and only sectors with at
// least one stored block appear. The rowrank must leave at least one leg on
// each side.
func (t *UniTensor) Sectors() (*SectorLayout, error) {
	if t.kind != Block {
		return nil, fmt.Errorf("unitensor: sectors: %w", tenerr.ErrUnsupportedOnVariant)
	}
	if t.rowrank < 1 || t.rowrank >= len(t.bonds) {
		return nil, fmt.Errorf("unitensor: sectors: %w: rowrank %d for rank %d",
			tenerr.ErrInvalidRowRank, t.rowrank, len(t.bonds))
	}
	src := t
	if t.isDiag {
		src = t.ToNonDiag()
	}

	seen := make(map[string]bool)
	var charges []symmetry.Qnum
	for _, q := range src.block.itoi {
		c := chargeOf(src.bonds, q, 0, src.rowrank)
		if !seen[c.Key()] {
			seen[c.Key()] = true
			charges = append(charges, c)
		}
	}
	sort.Slice(charges, func(i, j int) bool { return charges[i].Less(charges[j]) })

	l, err := newSectorLayout(src.bonds, src.rowrank, charges)
	if err != nil {
		return nil, fmt.Errorf("unitensor: sectors: %w", err)
	}

	for b, blk := range src.block.blocks {
		q := src.block.itoi[b]
		r := ravel(q[:src.rowrank], l.rowStrides)
		c := ravel(q[src.rowrank:], l.colStrides)
		k := l.sectorOf[chargeOf(src.bonds, q, 0, src.rowrank).Key()]

		m, err := blk.Clone().Reshape(l.RowBond.Deg(r), l.ColBond.Deg(c))
		if err != nil {
			return nil, fmt.Errorf("unitensor: sectors: %w", err)
		}
		if err := l.Sectors[k].Matrix.SetSlice([]int{l.rowOffset[r], l.colOffset[c]}, m); err != nil {
			return nil, fmt.Errorf("unitensor: sectors: %w", err)
		}
	}
	return l, nil
}

// FromSectors builds a block tensor from per-sector matrices: mats[k] is the
// matrix of the sector with row charge charges[k], rows and columns ordered
// by raw entry of the fused row and column bonds. Every (row, column) pair
// of a sector becomes one block.
func FromSectors(bonds []bond.Bond, rowrank int, charges []symmetry.Qnum, mats []*dense.Array, opts ...Option) (*UniTensor, error) {
	if _, err := kindOf(bonds); err != nil {
		return nil, fmt.Errorf("unitensor: from sectors: %w", err)
	}
	if rowrank < 1 || rowrank >= len(bonds) {
		return nil, fmt.Errorf("unitensor: from sectors: %w: rowrank %d for rank %d",
			tenerr.ErrInvalidRowRank, rowrank, len(bonds))
	}
	if len(charges) != len(mats) {
		return nil, fmt.Errorf("unitensor: from sectors: %d charges for %d matrices", len(charges), len(mats))
	}
	if !bonds[0].IsSymmetric() {
		return nil, fmt.Errorf("unitensor: from sectors: %w: bonds are not symmetric", tenerr.ErrUnsupportedOnVariant)
	}
	l, err := newSectorLayout(bonds, rowrank, charges)
	if err != nil {
		return nil, fmt.Errorf("unitensor: from sectors: %w", err)
	}

	var blocks []*dense.Array
	var itoi [][]int
	for k, s := range l.Sectors {
		if !mats[k].Shape().Equal(s.Matrix.Shape()) {
			return nil, fmt.Errorf("unitensor: from sectors: sector %s: %w: got %v, want %v",
				s.Charge, tenerr.ErrDimensionMismatch, mats[k].Shape(), s.Matrix.Shape())
		}
		for i, r := range s.Rows {
			for j, c := range s.Cols {
				rd, cd := l.RowBond.Deg(r), l.ColBond.Deg(c)
				sub, err := mats[k].Slice(
					[]int{s.RowOffsets[i], s.ColOffsets[j]},
					[]int{s.RowOffsets[i] + rd, s.ColOffsets[j] + cd})
				if err != nil {
					return nil, fmt.Errorf("unitensor: from sectors: %w", err)
				}
				q := append(l.RowSlots(r), l.ColSlots(c)...)
				blk, err := sub.Clone().Reshape(shapeOf(bonds, q, false)...)
				if err != nil {
					return nil, fmt.Errorf("unitensor: from sectors: %w", err)
				}
				blocks = append(blocks, blk)
				itoi = append(itoi, q)
			}
		}
	}
	return FromBlocks(bonds, blocks, itoi, append([]Option{WithRowRank(rowrank)}, opts...)...)
}
