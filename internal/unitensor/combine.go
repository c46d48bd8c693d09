package unitensor

import (
	"fmt"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/tenerr"
)

// CombineBonds fuses the legs named by labels into one leg. The named legs
// are first moved, in the given order, to the position of the first one;
// the fused leg keeps the first label and the first bond's direction.
//
// Without grouping every block keeps its data and gets the slot of its raw
// product entry. With grouping, blocks that land on the same grouped tuple
// are stacked into one block, each at its fusion-map offset; parts no
// block covers stay zero.
//
// The row space loses one leg for every fused leg, other than the first,
// that was a row leg.
func (t *UniTensor) CombineBonds(labels []string, group bool) (*UniTensor, error) {
	if len(labels) < 2 {
		return nil, fmt.Errorf("unitensor: combine bonds: %w: need at least 2 labels, got %d",
			tenerr.ErrStructuralMismatch, len(labels))
	}
	idx, err := t.labelIndices(labels)
	if err != nil {
		return nil, fmt.Errorf("unitensor: combine bonds: %w", err)
	}
	src := t
	if t.isDiag {
		src = t.ToNonDiag()
	}

	rank := len(t.bonds)
	n := len(idx)
	inRun := make(map[int]bool, n)
	for _, i := range idx {
		inRun[i] = true
	}
	order := make([]int, 0, rank)
	p := 0
	for i := 0; i < rank; i++ {
		switch {
		case i == idx[0]:
			p = len(order)
			order = append(order, idx...)
		case inRun[i]:
		default:
			order = append(order, i)
		}
	}
	rowrank := t.rowrank
	for _, i := range idx[1:] {
		if i < t.rowrank {
			rowrank--
		}
	}

	pt, err := src.permute(order, 0)
	if err != nil {
		return nil, fmt.Errorf("unitensor: combine bonds: %w", err)
	}
	fused, fm, strides, err := bond.CombineAll(pt.bonds[p:p+n], group)
	if err != nil {
		return nil, fmt.Errorf("unitensor: combine bonds: %w", err)
	}

	out := &UniTensor{
		kind:    t.kind,
		name:    t.name,
		rowrank: max(rowrank, 0),
		bonds:   append(append(append([]bond.Bond{}, pt.bonds[:p]...), fused), pt.bonds[p+n:]...),
		labels:  append(append(append([]string{}, pt.labels[:p]...), labels[0]), pt.labels[p+n:]...),
	}
	newShape := out.Shape()

	switch t.kind {
	case Dense:
		arr, err := pt.dense.arr.Clone().Reshape(newShape...)
		if err != nil {
			return nil, fmt.Errorf("unitensor: combine bonds: %w", err)
		}
		out.dense = &denseBody{arr: arr}
	case Block:
		body := &blockBody{}
		at := make(map[string]int)
		for b, blk := range pt.block.blocks {
			q := pt.block.itoi[b]
			r := 0
			for k := 0; k < n; k++ {
				r += q[p+k] * strides[k]
			}

			shape := make([]int, 0, len(newShape))
			for i := 0; i < p; i++ {
				shape = append(shape, blk.Shape()[i])
			}
			shape = append(shape, fm.Deg[r])
			shape = append(shape, blk.Shape()[p+n:]...)
			merged, err := blk.Clone().Reshape(shape...)
			if err != nil {
				return nil, fmt.Errorf("unitensor: combine bonds: %w", err)
			}

			nq := make([]int, 0, len(newShape))
			nq = append(nq, q[:p]...)
			nq = append(nq, fm.Slot[r])
			nq = append(nq, q[p+n:]...)

			if !group {
				body.itoi = append(body.itoi, nq)
				body.blocks = append(body.blocks, merged)
				continue
			}

			key := tupleKey(nq)
			j, ok := at[key]
			if !ok {
				j = len(body.blocks)
				at[key] = j
				body.itoi = append(body.itoi, nq)
				body.blocks = append(body.blocks, dense.Zeros(shapeOf(out.bonds, nq, false)...))
			}
			lo := make([]int, len(shape))
			lo[p] = fm.Offset[r]
			if err := body.blocks[j].SetSlice(lo, merged); err != nil {
				return nil, fmt.Errorf("unitensor: combine bonds: %w", err)
			}
		}
		out.block = body
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
	return out, nil
}

// SplitBond is the inverse of CombineBonds: the leg named label is replaced
// by legs over parts, labelled labels. The bond must equal the combination
// of parts with the same grouping flag.
func (t *UniTensor) SplitBond(label string, parts []bond.Bond, labels []string, group bool) (*UniTensor, error) {
	if len(parts) == 0 || len(parts) != len(labels) {
		return nil, fmt.Errorf("unitensor: split bond: %w: %d parts with %d labels",
			tenerr.ErrStructuralMismatch, len(parts), len(labels))
	}
	idx, err := t.labelIndex(label)
	if err != nil {
		return nil, fmt.Errorf("unitensor: split bond: %w", err)
	}
	fused, fm, strides, err := bond.CombineAll(parts, group)
	if err != nil {
		return nil, fmt.Errorf("unitensor: split bond: %w", err)
	}
	if !fused.Equal(t.bonds[idx]) {
		return nil, fmt.Errorf("unitensor: split bond: %w: %s is not the combination of the given parts",
			tenerr.ErrStructuralMismatch, t.bonds[idx])
	}

	src := t
	if t.isDiag {
		src = t.ToNonDiag()
	}

	newLabels := append(append(append([]string{}, t.labels[:idx]...), labels...), t.labels[idx+1:]...)
	if err := checkLabels(newLabels, len(newLabels)); err != nil {
		return nil, fmt.Errorf("unitensor: split bond: %w", err)
	}
	rowrank := t.rowrank
	if idx < t.rowrank {
		rowrank += len(parts) - 1
	}
	out := &UniTensor{
		kind:    t.kind,
		name:    t.name,
		rowrank: rowrank,
		labels:  newLabels,
		bonds:   append(append(append([]bond.Bond{}, t.bonds[:idx]...), cloneBonds(parts)...), t.bonds[idx+1:]...),
	}

	switch t.kind {
	case Dense:
		arr, err := src.dense.arr.Clone().Reshape(out.Shape()...)
		if err != nil {
			return nil, fmt.Errorf("unitensor: split bond: %w", err)
		}
		out.dense = &denseBody{arr: arr}
	case Block:
		rawOf := make(map[int][]int)
		for r := 0; r < fm.NumRaw(); r++ {
			rawOf[fm.Slot[r]] = append(rawOf[fm.Slot[r]], r)
		}

		body := &blockBody{}
		for b, blk := range src.block.blocks {
			q := src.block.itoi[b]
			shape := blk.Shape()
			for _, r := range rawOf[q[idx]] {
				lo := make([]int, len(shape))
				hi := append([]int(nil), shape...)
				lo[idx] = fm.Offset[r]
				hi[idx] = fm.Offset[r] + fm.Deg[r]
				sub, err := blk.Slice(lo, hi)
				if err != nil {
					return nil, fmt.Errorf("unitensor: split bond: %w", err)
				}

				nq := make([]int, 0, len(out.bonds))
				nq = append(nq, q[:idx]...)
				for k, part := range parts {
					nq = append(nq, (r/strides[k])%part.NumSlots())
				}
				nq = append(nq, q[idx+1:]...)

				piece, err := sub.Clone().Reshape(shapeOf(out.bonds, nq, false)...)
				if err != nil {
					return nil, fmt.Errorf("unitensor: split bond: %w", err)
				}
				body.itoi = append(body.itoi, nq)
				body.blocks = append(body.blocks, piece)
			}
		}
		out.block = body
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
	return out, nil
}
