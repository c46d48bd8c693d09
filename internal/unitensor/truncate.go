package unitensor

import (
	"fmt"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/tenerr"
)

// ToNonDiag returns a copy in full (non-diagonal) form. A tensor that is not
// diagonal is returned as a plain copy.
func (t *UniTensor) ToNonDiag() *UniTensor {
	if !t.isDiag {
		return t.Clone()
	}
	out := t.withMeta()
	out.isDiag = false
	switch t.kind {
	case Dense:
		full, _ := dense.Diag(t.dense.arr)
		out.dense = &denseBody{arr: full}
	case Block:
		body := &blockBody{
			blocks: make([]*dense.Array, len(t.block.blocks)),
			itoi:   make([][]int, len(t.block.itoi)),
		}
		for i, blk := range t.block.blocks {
			body.blocks[i], _ = dense.Diag(blk)
			body.itoi[i] = append([]int(nil), t.block.itoi[i]...)
		}
		out.block = body
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
	return out
}

// Truncate keeps the first dim positions of the leg named label.
//
// On a block tensor degeneracy is removed from the last slot backwards and
// slots that become empty are dropped together with their blocks. On a
// diagonal tensor both legs are truncated.
func (t *UniTensor) Truncate(label string, dim int) (*UniTensor, error) {
	idx, err := t.labelIndex(label)
	if err != nil {
		return nil, fmt.Errorf("unitensor: truncate: %w", err)
	}
	b := t.bonds[idx]
	if dim < 1 || dim > b.Dim() {
		return nil, fmt.Errorf("unitensor: truncate: dim %d out of range [1, %d]", dim, b.Dim())
	}

	switch t.kind {
	case Dense:
		return t.truncateDense(idx, dim)
	case Block:
		degs := b.Degs()
		remove := b.Dim() - dim
		for s := len(degs) - 1; s >= 0 && remove > 0; s-- {
			cut := min(degs[s], remove)
			degs[s] -= cut
			remove -= cut
		}
		out, err := t.resizeLeg(idx, degs)
		if err != nil {
			return nil, fmt.Errorf("unitensor: truncate: %w", err)
		}
		return out, nil
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}

func (t *UniTensor) truncateDense(idx, dim int) (*UniTensor, error) {
	nb, err := bond.New(dim, t.bonds[idx].Direction())
	if err != nil {
		return nil, fmt.Errorf("unitensor: truncate: %w", err)
	}
	out := t.withMeta()
	legs := []int{idx}
	if t.isDiag {
		legs = []int{0, 1}
	}
	for _, leg := range legs {
		out.bonds[leg], _ = nb.WithDirection(t.bonds[leg].Direction())
	}

	arr := t.dense.arr
	shape := arr.Shape()
	lo := make([]int, len(shape))
	hi := append([]int(nil), shape...)
	if t.isDiag {
		hi[0] = dim
	} else {
		hi[idx] = dim
	}
	view, err := arr.Slice(lo, hi)
	if err != nil {
		return nil, fmt.Errorf("unitensor: truncate: %w", err)
	}
	out.dense = &denseBody{arr: view.Clone()}
	return out, nil
}

// RemoveSlot drops slot of the leg named label together with every block
// that uses it. Later slots shift down by one. On a diagonal tensor both
// legs lose the slot.
func (t *UniTensor) RemoveSlot(label string, slot int) (*UniTensor, error) {
	if t.kind != Block {
		return nil, fmt.Errorf("unitensor: remove slot: %w: dense tensor has no slots", tenerr.ErrUnsupportedOnVariant)
	}
	idx, err := t.labelIndex(label)
	if err != nil {
		return nil, fmt.Errorf("unitensor: remove slot: %w", err)
	}
	b := t.bonds[idx]
	if slot < 0 || slot >= b.NumSlots() {
		return nil, fmt.Errorf("unitensor: remove slot: slot %d out of range [0, %d)", slot, b.NumSlots())
	}
	degs := b.Degs()
	degs[slot] = 0
	out, err := t.resizeLeg(idx, degs)
	if err != nil {
		return nil, fmt.Errorf("unitensor: remove slot: %w", err)
	}
	return out, nil
}

// resizeLeg shrinks the slots of leg idx to degs, keeping the leading part
// of every slot. Zero entries remove the slot and its blocks.
func (t *UniTensor) resizeLeg(idx int, degs []int) (*UniTensor, error) {
	nb, remap, err := t.bonds[idx].Resize(degs)
	if err != nil {
		return nil, err
	}
	legs := []int{idx}
	if t.isDiag {
		legs = []int{0, 1}
	}

	out := t.withMeta()
	for _, leg := range legs {
		out.bonds[leg], _ = nb.WithDirection(t.bonds[leg].Direction())
	}

	body := &blockBody{}
	for i, blk := range t.block.blocks {
		q := t.block.itoi[i]
		ns := remap[q[idx]]
		if ns < 0 {
			continue
		}
		nq := append([]int(nil), q...)
		for _, leg := range legs {
			nq[leg] = ns
		}

		shape := blk.Shape()
		lo := make([]int, len(shape))
		hi := append([]int(nil), shape...)
		if t.isDiag {
			hi[0] = degs[q[idx]]
		} else {
			hi[idx] = degs[q[idx]]
		}
		view, err := blk.Slice(lo, hi)
		if err != nil {
			return nil, err
		}
		body.itoi = append(body.itoi, nq)
		body.blocks = append(body.blocks, view.Clone())
	}
	out.block = body
	return out, nil
}

// Reshape returns a dense tensor with the given shape and Regular bonds.
// Block tensors cannot be reshaped.
func (t *UniTensor) Reshape(shape []int, rowrank int) (*UniTensor, error) {
	if t.kind != Dense {
		return nil, fmt.Errorf("unitensor: reshape: %w", tenerr.ErrUnsupportedOnVariant)
	}
	src := t
	if t.isDiag {
		src = t.ToNonDiag()
	}
	arr, err := src.dense.arr.Clone().Reshape(shape...)
	if err != nil {
		return nil, fmt.Errorf("unitensor: reshape: %w", err)
	}
	out, err := FromArray(arr, WithRowRank(rowrank), WithName(t.name))
	if err != nil {
		return nil, fmt.Errorf("unitensor: reshape: %w", err)
	}
	return out, nil
}

// ToDense returns a dense copy of t. Block tensors become dense tensors over
// non-symmetric bonds of the same dimensions and directions, with every
// unstored element zero.
func (t *UniTensor) ToDense() (*UniTensor, error) {
	if t.kind == Dense {
		return t.Clone(), nil
	}
	src := t
	if t.isDiag {
		src = t.ToNonDiag()
	}

	out := t.withMeta()
	out.kind = Dense
	out.isDiag = false
	offsets := make([][]int, len(t.bonds))
	for i, b := range t.bonds {
		nb, err := bond.New(b.Dim(), b.Direction())
		if err != nil {
			return nil, fmt.Errorf("unitensor: to dense: %w", err)
		}
		out.bonds[i] = nb
		offsets[i] = b.Offsets()
	}

	arr := dense.Zeros(out.Shape()...)
	for i, blk := range src.block.blocks {
		q := src.block.itoi[i]
		lo := make([]int, len(q))
		for leg, slot := range q {
			lo[leg] = offsets[leg][slot]
		}
		if err := arr.SetSlice(lo, blk); err != nil {
			return nil, fmt.Errorf("unitensor: to dense: %w", err)
		}
	}
	out.dense = &denseBody{arr: arr}
	return out, nil
}
