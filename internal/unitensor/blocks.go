package unitensor

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
)

// forEachTuple visits every slot tuple of bonds in row-major order. The
// slice passed to fn is reused between calls.
func forEachTuple(bonds []bond.Bond, fn func(q []int)) {
	q := make([]int, len(bonds))
	for {
		fn(q)
		d := len(q) - 1
		for ; d >= 0; d-- {
			q[d]++
			if q[d] < bonds[d].NumSlots() {
				break
			}
			q[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// legal reports whether the slot tuple fuses to the neutral charge.
func legal(bonds []bond.Bond, q []int) bool {
	syms := bonds[0].Syms()
	acc := symmetry.Neutral(syms)
	for i, b := range bonds {
		acc = symmetry.Combine(syms, acc, b.Charge(q[i]))
	}
	return acc.Equal(symmetry.Neutral(syms))
}

// chargeOf fuses the in-sense charges of legs [from, to) of tuple q.
func chargeOf(bonds []bond.Bond, q []int, from, to int) symmetry.Qnum {
	syms := bonds[0].Syms()
	acc := symmetry.Neutral(syms)
	for i := from; i < to; i++ {
		acc = symmetry.Combine(syms, acc, bonds[i].Charge(q[i]))
	}
	return acc
}

func newBlockBody(bonds []bond.Bond, diag bool) *blockBody {
	body := &blockBody{}
	forEachTuple(bonds, func(q []int) {
		if diag && q[0] != q[1] {
			return
		}
		if !legal(bonds, q) {
			return
		}
		body.itoi = append(body.itoi, append([]int(nil), q...))
		body.blocks = append(body.blocks, dense.Zeros(shapeOf(bonds, q, diag)...))
	})
	return body
}

func shapeOf(bonds []bond.Bond, q []int, diag bool) dense.Shape {
	if diag {
		return dense.Shape{bonds[0].Deg(q[0])}
	}
	s := make(dense.Shape, len(q))
	for i, slot := range q {
		s[i] = bonds[i].Deg(slot)
	}
	return s
}

func (t *UniTensor) blockShape(q []int) dense.Shape {
	return shapeOf(t.bonds, q, t.isDiag)
}

func (t *UniTensor) checkTuple(q []int) error {
	if len(q) != len(t.bonds) {
		return fmt.Errorf("%w: index tuple %v for rank %d", tenerr.ErrStructuralMismatch, q, len(t.bonds))
	}
	for i, s := range q {
		if s < 0 || s >= t.bonds[i].NumSlots() {
			return fmt.Errorf("%w: slot %d out of range on leg %d", tenerr.ErrStructuralMismatch, s, i)
		}
	}
	if t.isDiag && q[0] != q[1] {
		return fmt.Errorf("%w: off-diagonal tuple %v in diagonal tensor", tenerr.ErrStructuralMismatch, q)
	}
	if !legal(t.bonds, q) {
		return fmt.Errorf("%w: tuple %v violates charge conservation", tenerr.ErrStructuralMismatch, q)
	}
	return nil
}

func tupleKey(q []int) string {
	var sb strings.Builder
	for i, v := range q {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

func (b *blockBody) find(q []int) int {
	for i, t := range b.itoi {
		if slicesEqual(t, q) {
			return i
		}
	}
	return -1
}

// lazyBody collects blocks of a result whose tuples are only known once a
// product lands on them.
type lazyBody struct {
	bonds []bond.Bond
	body  *blockBody
	at    map[string]int
}

func newLazyBody(bonds []bond.Bond) *lazyBody {
	return &lazyBody{bonds: bonds, body: &blockBody{}, at: make(map[string]int)}
}

// accumulate adds arr into the block of q, creating a zero block on first use.
func (l *lazyBody) accumulate(q []int, arr *dense.Array) error {
	key := tupleKey(q)
	k, ok := l.at[key]
	if !ok {
		k = len(l.body.blocks)
		l.at[key] = k
		l.body.itoi = append(l.body.itoi, append([]int(nil), q...))
		l.body.blocks = append(l.body.blocks, dense.Zeros(shapeOf(l.bonds, q, false)...))
	}
	sum, err := dense.Add(l.body.blocks[k], arr)
	if err != nil {
		return err
	}
	l.body.blocks[k] = sum
	return nil
}

// finish returns the collected blocks ordered by tuple, the order New uses.
func (l *lazyBody) finish() *blockBody {
	b := l.body
	order := make([]int, len(b.itoi))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool { return slices.Compare(b.itoi[order[x]], b.itoi[order[y]]) < 0 })
	out := &blockBody{blocks: make([]*dense.Array, len(order)), itoi: make([][]int, len(order))}
	for i, k := range order {
		out.blocks[i] = b.blocks[k]
		out.itoi[i] = b.itoi[k]
	}
	return out
}

func (b *blockBody) index() map[string]int {
	m := make(map[string]int, len(b.itoi))
	for i, q := range b.itoi {
		m[tupleKey(q)] = i
	}
	return m
}

func slicesEqual(a, b []int) bool {
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

func (t *UniTensor) checkBlockIndex(op string, i int) error {
	if i < 0 || i >= t.NumBlocks() {
		return fmt.Errorf("unitensor: %s: block %d out of range [0, %d)", op, i, t.NumBlocks())
	}
	return nil
}

// GetBlock returns a copy of block i. A dense tensor has the single block 0.
func (t *UniTensor) GetBlock(i int) (*dense.Array, error) {
	v, err := t.BlockView(i)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

// BlockView returns block i without copying: writes through the result
// change the tensor.
func (t *UniTensor) BlockView(i int) (*dense.Array, error) {
	if err := t.checkBlockIndex("block view", i); err != nil {
		return nil, err
	}
	switch t.kind {
	case Dense:
		return t.dense.arr, nil
	case Block:
		return t.block.blocks[i], nil
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}

// GetBlockByQIndices returns a copy of the block stored at index tuple q.
// If no block is stored there, force selects between (nil, false, nil) and
// an ErrInvalidQnumLookup error.
func (t *UniTensor) GetBlockByQIndices(q []int, force bool) (*dense.Array, bool, error) {
	if t.kind != Block {
		return nil, false, fmt.Errorf("unitensor: get block: %w: dense tensor has no index tuples", tenerr.ErrUnsupportedOnVariant)
	}
	i := t.block.find(q)
	if i < 0 {
		if force {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("unitensor: get block %v: %w", q, tenerr.ErrInvalidQnumLookup)
	}
	return t.block.blocks[i].Clone(), true, nil
}

// BlockIndex returns the position of the block stored at q, or -1.
func (t *UniTensor) BlockIndex(q []int) int {
	if t.kind != Block {
		return -1
	}
	return t.block.find(q)
}

// PutBlock replaces block i with a copy of arr. The shape must match.
func (t *UniTensor) PutBlock(i int, arr *dense.Array) error {
	if err := t.checkBlockIndex("put block", i); err != nil {
		return err
	}
	cur, _ := t.BlockView(i)
	if !cur.Shape().Equal(arr.Shape()) {
		return fmt.Errorf("unitensor: put block %d: %w: got %v, want %v",
			i, tenerr.ErrDimensionMismatch, arr.Shape(), cur.Shape())
	}
	switch t.kind {
	case Dense:
		t.dense.arr = arr.Clone()
	case Block:
		t.block.blocks[i] = arr.Clone()
	}
	return nil
}

// PutBlockByQIndices replaces the block stored at q with a copy of arr and
// reports whether a block was replaced. A missing tuple is an
// ErrInvalidQnumLookup error unless force is set, in which case nothing
// happens and false is returned.
func (t *UniTensor) PutBlockByQIndices(q []int, arr *dense.Array, force bool) (bool, error) {
	if t.kind != Block {
		return false, fmt.Errorf("unitensor: put block: %w: dense tensor has no index tuples", tenerr.ErrUnsupportedOnVariant)
	}
	i := t.block.find(q)
	if i < 0 {
		if force {
			return false, nil
		}
		return false, fmt.Errorf("unitensor: put block %v: %w", q, tenerr.ErrInvalidQnumLookup)
	}
	if err := t.PutBlock(i, arr); err != nil {
		return false, err
	}
	return true, nil
}

// QIndices returns the index tuple of block i.
func (t *UniTensor) QIndices(i int) ([]int, error) {
	if t.kind != Block {
		return nil, fmt.Errorf("unitensor: qindices: %w", tenerr.ErrUnsupportedOnVariant)
	}
	if err := t.checkBlockIndex("qindices", i); err != nil {
		return nil, err
	}
	return append([]int(nil), t.block.itoi[i]...), nil
}

// BlockQnums returns the quantum number of every leg of block i.
func (t *UniTensor) BlockQnums(i int) ([]symmetry.Qnum, error) {
	q, err := t.QIndices(i)
	if err != nil {
		return nil, err
	}
	out := make([]symmetry.Qnum, len(q))
	for leg, slot := range q {
		out[leg] = t.bonds[leg].Qnum(slot)
	}
	return out, nil
}

// BlockCharge returns the fused in-sense charge of the row legs of block i:
// the sector the block belongs to when the tensor is viewed as a matrix.
func (t *UniTensor) BlockCharge(i int) (symmetry.Qnum, error) {
	q, err := t.QIndices(i)
	if err != nil {
		return nil, err
	}
	return chargeOf(t.bonds, q, 0, t.rowrank), nil
}
