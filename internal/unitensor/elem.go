package unitensor

import (
	"fmt"

	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/tenerr"
)

// locate maps a global index onto the array holding it and the position
// inside that array. ok is false when the element is not stored: an
// off-diagonal element of a diagonal tensor, or a block tuple with no block.
func (t *UniTensor) locate(loc []int) (arr *dense.Array, pos []int, ok bool, err error) {
	if len(loc) != len(t.bonds) {
		return nil, nil, false, fmt.Errorf("%w: %d indices for rank %d", tenerr.ErrStructuralMismatch, len(loc), len(t.bonds))
	}
	for i, v := range loc {
		if v < 0 || v >= t.bonds[i].Dim() {
			return nil, nil, false, fmt.Errorf("index %d out of range [0, %d) on leg %d", v, t.bonds[i].Dim(), i)
		}
	}

	switch t.kind {
	case Dense:
		if t.isDiag {
			if loc[0] != loc[1] {
				return nil, nil, false, nil
			}
			return t.dense.arr, []int{loc[0]}, true, nil
		}
		return t.dense.arr, loc, true, nil
	case Block:
		q := make([]int, len(loc))
		pos = make([]int, len(loc))
		for i, v := range loc {
			q[i], pos[i] = t.bonds[i].Locate(v)
		}
		if t.isDiag {
			if q[0] != q[1] || pos[0] != pos[1] {
				return nil, nil, false, nil
			}
			pos = pos[:1]
		}
		b := t.block.find(q)
		if b < 0 {
			return nil, nil, false, nil
		}
		return t.block.blocks[b], pos, true, nil
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}

// At returns the element at the global index loc. Elements that are not
// stored are zero by symmetry.
func (t *UniTensor) At(loc ...int) (float64, error) {
	arr, pos, ok, err := t.locate(loc)
	if err != nil {
		return 0, fmt.Errorf("unitensor: at: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return arr.At(pos...), nil
}

// ElemExists reports whether the element at loc has storage.
func (t *UniTensor) ElemExists(loc ...int) (bool, error) {
	_, _, ok, err := t.locate(loc)
	if err != nil {
		return false, fmt.Errorf("unitensor: elem exists: %w", err)
	}
	return ok, nil
}

// SetAt writes v at the global index loc. Writing an element that has no
// storage is an ErrInvalidQnumLookup error.
func (t *UniTensor) SetAt(v float64, loc ...int) error {
	arr, pos, ok, err := t.locate(loc)
	if err != nil {
		return fmt.Errorf("unitensor: set at: %w", err)
	}
	if !ok {
		return fmt.Errorf("unitensor: set at %v: %w", loc, tenerr.ErrInvalidQnumLookup)
	}
	arr.Set(v, pos...)
	return nil
}
