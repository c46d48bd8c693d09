package unitensor

import (
	"fmt"

	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/tenerr"
)

// Permute returns a new tensor with legs reordered: leg i of the result is
// leg mapper[i] of t. Bonds, labels, block axes and index tuples move
// together. rowrank < 0 keeps the current value. The result owns
// contiguous storage.
func (t *UniTensor) Permute(mapper []int, rowrank int) (*UniTensor, error) {
	out, err := t.permute(mapper, rowrank)
	if err != nil {
		return nil, fmt.Errorf("unitensor: permute: %w", err)
	}
	return out.Contiguous(), nil
}

// PermuteByLabels is Permute with the new leg order given by labels.
func (t *UniTensor) PermuteByLabels(labels []string, rowrank int) (*UniTensor, error) {
	mapper, err := t.labelIndices(labels)
	if err != nil {
		return nil, fmt.Errorf("unitensor: permute: %w", err)
	}
	return t.Permute(mapper, rowrank)
}

// PermuteView is Permute without the copy: the result's blocks are strided
// views of t's storage.
func (t *UniTensor) PermuteView(mapper []int, rowrank int) (*UniTensor, error) {
	out, err := t.permute(mapper, rowrank)
	if err != nil {
		return nil, fmt.Errorf("unitensor: permute view: %w", err)
	}
	return out, nil
}

func (t *UniTensor) permute(mapper []int, rowrank int) (*UniTensor, error) {
	rank := len(t.bonds)
	if len(mapper) != rank {
		return nil, fmt.Errorf("%w: mapper %v for rank %d", tenerr.ErrStructuralMismatch, mapper, rank)
	}
	seen := make([]bool, rank)
	for _, m := range mapper {
		if m < 0 || m >= rank || seen[m] {
			return nil, fmt.Errorf("%w: invalid mapper %v", tenerr.ErrStructuralMismatch, mapper)
		}
		seen[m] = true
	}
	if rowrank < 0 {
		rowrank = t.rowrank
	}
	if rowrank > rank || (t.isDiag && rowrank != 1) {
		return nil, fmt.Errorf("%w: %d for rank %d", tenerr.ErrInvalidRowRank, rowrank, rank)
	}

	out := t.withMeta()
	out.rowrank = rowrank
	out.view = true
	for i, m := range mapper {
		out.bonds[i] = t.bonds[m].Clone()
		out.labels[i] = t.labels[m]
	}

	switch t.kind {
	case Dense:
		if t.isDiag {
			out.dense = &denseBody{arr: t.dense.arr}
			return out, nil
		}
		arr, err := t.dense.arr.Permute(mapper...)
		if err != nil {
			return nil, err
		}
		out.dense = &denseBody{arr: arr}
	case Block:
		body := &blockBody{
			blocks: make([]*dense.Array, len(t.block.blocks)),
			itoi:   make([][]int, len(t.block.itoi)),
		}
		for b, blk := range t.block.blocks {
			q := make([]int, rank)
			for i, m := range mapper {
				q[i] = t.block.itoi[b][m]
			}
			body.itoi[b] = q
			if t.isDiag {
				body.blocks[b] = blk
				continue
			}
			v, err := blk.Permute(mapper...)
			if err != nil {
				return nil, err
			}
			body.blocks[b] = v
		}
		out.block = body
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
	return out, nil
}

// IsContiguous reports whether every block is laid out row-major.
func (t *UniTensor) IsContiguous() bool {
	switch t.kind {
	case Dense:
		return t.dense.arr.IsContiguous()
	case Block:
		for _, blk := range t.block.blocks {
			if !blk.IsContiguous() {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}

// Contiguous returns a tensor that owns row-major storage for every block.
// Blocks that are views of another tensor are copied; the receiver is
// returned unchanged if it already satisfies this.
func (t *UniTensor) Contiguous() *UniTensor {
	if t.IsContiguous() && t.ownsStorage() {
		return t
	}
	return t.Clone()
}

// ownsStorage is false for tensors produced by PermuteView.
func (t *UniTensor) ownsStorage() bool {
	return !t.view
}
