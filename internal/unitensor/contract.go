package unitensor

import (
	"fmt"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/tenerr"
)

// Contract sums over every leg label that a and b share. The result's legs
// are a's remaining legs followed by b's; its rowrank is the number of
// remaining row legs of each operand. Without shared labels the result is
// the outer product; when every leg is contracted it is a rank-0 dense
// tensor holding the scalar.
//
// Contracted bonds must describe the same space and, when tagged, point in
// opposite directions. Diagonal operands are expanded first. A block result
// stores only the tuples that at least one pair of blocks contributes to.
func Contract(a, b *UniTensor) (*UniTensor, error) {
	if a.kind != b.kind {
		return nil, fmt.Errorf("unitensor: contract: %w: %s with %s tensor", tenerr.ErrStructuralMismatch, a.kind, b.kind)
	}
	if a.IsTagged() != b.IsTagged() {
		return nil, fmt.Errorf("unitensor: contract: %w: tagged with untagged tensor", tenerr.ErrStructuralMismatch)
	}
	if a.kind == Block && !a.bondsShareSyms(b) {
		return nil, fmt.Errorf("unitensor: contract: %w: symmetry lists differ", tenerr.ErrStructuralMismatch)
	}

	var axesA, axesB []int
	for i, l := range a.labels {
		for j, m := range b.labels {
			if l == m {
				if err := bond.CheckContractible(a.bonds[i], b.bonds[j]); err != nil {
					return nil, fmt.Errorf("unitensor: contract: label %q: %w", l, err)
				}
				axesA = append(axesA, i)
				axesB = append(axesB, j)
			}
		}
	}
	freeA := freeLegs(a.Rank(), axesA)
	freeB := freeLegs(b.Rank(), axesB)

	if a.isDiag {
		a = a.ToNonDiag()
	}
	if b.isDiag {
		b = b.ToNonDiag()
	}

	bonds := make([]bond.Bond, 0, len(freeA)+len(freeB))
	labels := make([]string, 0, len(freeA)+len(freeB))
	rowrank := 0
	for _, i := range freeA {
		bonds = append(bonds, a.bonds[i].Clone())
		labels = append(labels, a.labels[i])
		if i < a.rowrank {
			rowrank++
		}
	}
	for _, j := range freeB {
		bonds = append(bonds, b.bonds[j].Clone())
		labels = append(labels, b.labels[j])
		if j < b.rowrank {
			rowrank++
		}
	}

	switch a.kind {
	case Dense:
		arr, err := dense.Tensordot(a.dense.arr, b.dense.arr, axesA, axesB)
		if err != nil {
			return nil, fmt.Errorf("unitensor: contract: %w", err)
		}
		if len(bonds) == 0 {
			return FromArray(arr)
		}
		return &UniTensor{
			kind:    Dense,
			bonds:   bonds,
			labels:  labels,
			rowrank: rowrank,
			dense:   &denseBody{arr: arr},
		}, nil
	case Block:
		return contractBlocks(a, b, axesA, axesB, freeA, freeB, bonds, labels, rowrank)
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", a.kind))
	}
}

func contractBlocks(a, b *UniTensor, axesA, axesB, freeA, freeB []int,
	bonds []bond.Bond, labels []string, rowrank int) (*UniTensor, error) {
	// Bucket b's blocks by their slots on the contracted legs.
	buckets := make(map[string][]int)
	for j, q := range b.block.itoi {
		key := tupleKey(pick(q, axesB))
		buckets[key] = append(buckets[key], j)
	}

	if len(bonds) == 0 {
		var sum float64
		for i, qa := range a.block.itoi {
			for _, j := range buckets[tupleKey(pick(qa, axesA))] {
				s, err := dense.Tensordot(a.block.blocks[i], b.block.blocks[j], axesA, axesB)
				if err != nil {
					return nil, fmt.Errorf("unitensor: contract: %w", err)
				}
				v, _ := s.Item()
				sum += v
			}
		}
		return FromArray(dense.Scalar(sum))
	}

	acc := newLazyBody(bonds)
	for i, qa := range a.block.itoi {
		for _, j := range buckets[tupleKey(pick(qa, axesA))] {
			qb := b.block.itoi[j]
			prod, err := dense.Tensordot(a.block.blocks[i], b.block.blocks[j], axesA, axesB)
			if err != nil {
				return nil, fmt.Errorf("unitensor: contract: %w", err)
			}
			if err := acc.accumulate(append(pick(qa, freeA), pick(qb, freeB)...), prod); err != nil {
				return nil, fmt.Errorf("unitensor: contract: %w", err)
			}
		}
	}
	return &UniTensor{kind: Block, bonds: bonds, labels: labels, rowrank: rowrank, block: acc.finish()}, nil
}

func (t *UniTensor) bondsShareSyms(other *UniTensor) bool {
	a, b := t.Syms(), other.Syms()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func freeLegs(rank int, used []int) []int {
	skip := make(map[int]bool, len(used))
	for _, u := range used {
		skip[u] = true
	}
	out := make([]int, 0, rank-len(used))
	for i := 0; i < rank; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}

func pick(q, legs []int) []int {
	out := make([]int, len(legs))
	for i, l := range legs {
		out[i] = q[l]
	}
	return out
}

// Trace contracts the two legs named la and lb of t with each other.
func (t *UniTensor) Trace(la, lb string) (*UniTensor, error) {
	ia, err := t.labelIndex(la)
	if err != nil {
		return nil, fmt.Errorf("unitensor: trace: %w", err)
	}
	ib, err := t.labelIndex(lb)
	if err != nil {
		return nil, fmt.Errorf("unitensor: trace: %w", err)
	}
	if ia == ib {
		return nil, fmt.Errorf("unitensor: trace: %w: legs must differ", tenerr.ErrStructuralMismatch)
	}
	if err := bond.CheckContractible(t.bonds[ia], t.bonds[ib]); err != nil {
		return nil, fmt.Errorf("unitensor: trace: %w", err)
	}

	src := t
	if t.isDiag {
		src = t.ToNonDiag()
	}
	free := freeLegs(t.Rank(), []int{ia, ib})
	bonds := make([]bond.Bond, len(free))
	labels := make([]string, len(free))
	rowrank := 0
	for k, i := range free {
		bonds[k] = t.bonds[i].Clone()
		labels[k] = t.labels[i]
		if i < t.rowrank {
			rowrank++
		}
	}

	switch t.kind {
	case Dense:
		arr, err := dense.Trace(src.dense.arr, ia, ib)
		if err != nil {
			return nil, fmt.Errorf("unitensor: trace: %w", err)
		}
		if len(free) == 0 {
			return FromArray(arr, WithName(t.name))
		}
		return &UniTensor{kind: Dense, name: t.name, bonds: bonds, labels: labels, rowrank: rowrank,
			dense: &denseBody{arr: arr}}, nil
	case Block:
		if len(free) == 0 {
			var sum float64
			for i, q := range src.block.itoi {
				if q[ia] != q[ib] {
					continue
				}
				s, err := dense.Trace(src.block.blocks[i], ia, ib)
				if err != nil {
					return nil, fmt.Errorf("unitensor: trace: %w", err)
				}
				v, _ := s.Item()
				sum += v
			}
			return FromArray(dense.Scalar(sum), WithName(t.name))
		}

		acc := newLazyBody(bonds)
		for i, q := range src.block.itoi {
			if q[ia] != q[ib] {
				continue
			}
			tr, err := dense.Trace(src.block.blocks[i], ia, ib)
			if err != nil {
				return nil, fmt.Errorf("unitensor: trace: %w", err)
			}
			if err := acc.accumulate(pick(q, free), tr); err != nil {
				return nil, fmt.Errorf("unitensor: trace: %w", err)
			}
		}
		return &UniTensor{kind: Block, name: t.name, bonds: bonds, labels: labels, rowrank: rowrank,
			block: acc.finish()}, nil
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}
