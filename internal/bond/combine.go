package bond

import (
	"fmt"
	"sort"

	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
)

// FusionMap records where every raw entry of a combined bond ended up.
//
// Raw entries are the row-major products of the input slots. Without
// grouping each raw entry is its own slot. With grouping, raw entries that
// share a quantum number are merged into one slot and stacked in raw order.
type FusionMap struct {
	// Slot[r] is the slot of the combined bond holding raw entry r.
	Slot []int
	// Offset[r] is the position of raw entry r inside its slot.
	Offset []int
	// Deg[r] is the degeneracy of raw entry r.
	Deg []int
}

// NumRaw returns the number of raw entries.
func (m *FusionMap) NumRaw() int { return len(m.Slot) }

// Combine fuses b into a. Raw entries are ordered row-major (a's slot
// varies slowest). When the directions differ, b's charges are reversed
// so the result, which takes a's direction, keeps the same physical flux.
// If group is true, entries with equal quantum numbers are merged into one
// slot; the result's slots are then sorted by quantum number.
//
// For non-symmetric bonds the dimensions multiply and the map is nil.
func Combine(a, b Bond, group bool) (Bond, *FusionMap, error) {
	out, m, _, err := CombineAll([]Bond{a, b}, group)
	return out, m, err
}

// CombineAll fuses bonds left to right. strides[k] converts a slot of
// bonds[k] into its contribution to the raw index, so the raw entry of the
// slot tuple (s0, s1, ...) is sum(s_k * strides[k]).
func CombineAll(bonds []Bond, group bool) (Bond, *FusionMap, []int, error) {
	if len(bonds) == 0 {
		return Bond{}, nil, nil, fmt.Errorf("bond: combine needs at least one bond")
	}
	first := bonds[0]
	for i, b := range bonds[1:] {
		if b.IsSymmetric() != first.IsSymmetric() {
			return Bond{}, nil, nil, fmt.Errorf("bond: %w: bond %d mixes symmetric and non-symmetric",
				tenerr.ErrStructuralMismatch, i+1)
		}
		if (b.dir == Regular) != (first.dir == Regular) {
			return Bond{}, nil, nil, fmt.Errorf("bond: %w: bond %d mixes tagged and untagged",
				tenerr.ErrStructuralMismatch, i+1)
		}
		if first.IsSymmetric() && !symmetry.EqualLists(b.syms, first.syms) {
			return Bond{}, nil, nil, fmt.Errorf("bond: %w: bond %d has different symmetries",
				tenerr.ErrStructuralMismatch, i+1)
		}
	}

	if !first.IsSymmetric() {
		dim := 1
		for _, b := range bonds {
			dim *= b.dim
		}
		return Bond{dim: dim, dir: first.dir}, nil, nil, nil
	}

	strides := make([]int, len(bonds))
	stride := 1
	for k := len(bonds) - 1; k >= 0; k-- {
		strides[k] = stride
		stride *= len(bonds[k].qnums)
	}

	raw := first.Clone()
	for _, b := range bonds[1:] {
		raw = combineRaw(raw, b)
	}

	if !group {
		m := &FusionMap{
			Slot:   make([]int, len(raw.qnums)),
			Offset: make([]int, len(raw.qnums)),
			Deg:    raw.Degs(),
		}
		for r := range m.Slot {
			m.Slot[r] = r
		}
		return raw, m, strides, nil
	}

	grouped, m := Group(raw)
	return grouped, m, strides, nil
}

func combineRaw(a, b Bond) Bond {
	bq := b.qnums
	if b.dir != a.dir {
		bq = make([]symmetry.Qnum, len(b.qnums))
		for j, q := range b.qnums {
			bq[j] = symmetry.Reverse(b.syms, q)
		}
	}

	n := len(a.qnums) * len(bq)
	out := Bond{
		dir:   a.dir,
		syms:  symmetry.CloneList(a.syms),
		qnums: make([]symmetry.Qnum, 0, n),
		degs:  make([]int, 0, n),
	}
	for i, qa := range a.qnums {
		for j, qb := range bq {
			d := a.degs[i] * b.degs[j]
			out.qnums = append(out.qnums, symmetry.Combine(a.syms, qa, qb))
			out.degs = append(out.degs, d)
			out.dim += d
		}
	}
	return out
}

// Group merges slots with equal quantum numbers. The result's slots are
// sorted by quantum number; within a slot the original entries are stacked
// in their original order.
func Group(b Bond) (Bond, *FusionMap) {
	uniq := make(map[string]symmetry.Qnum)
	for _, q := range b.qnums {
		uniq[q.Key()] = q
	}
	keys := make([]symmetry.Qnum, 0, len(uniq))
	for _, q := range uniq {
		keys = append(keys, q)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	slotOf := make(map[string]int, len(keys))
	out := Bond{
		dir:   b.dir,
		syms:  symmetry.CloneList(b.syms),
		qnums: make([]symmetry.Qnum, len(keys)),
		degs:  make([]int, len(keys)),
		dim:   b.dim,
	}
	for i, q := range keys {
		slotOf[q.Key()] = i
		out.qnums[i] = q.Clone()
	}

	m := &FusionMap{
		Slot:   make([]int, len(b.qnums)),
		Offset: make([]int, len(b.qnums)),
		Deg:    b.Degs(),
	}
	for r, q := range b.qnums {
		s := slotOf[q.Key()]
		m.Slot[r] = s
		m.Offset[r] = out.degs[s]
		out.degs[s] += b.degs[r]
	}
	return out, m
}
