package unitensor

import (
	"fmt"
	"math"

	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/tenerr"
)

func elementwise(op string, a, b *UniTensor, f func(x, y *dense.Array) (*dense.Array, error)) (*UniTensor, error) {
	if a.kind != b.kind || a.Rank() != b.Rank() {
		return nil, fmt.Errorf("unitensor: %s: %w: %s rank %d with %s rank %d",
			op, tenerr.ErrStructuralMismatch, a.kind, a.Rank(), b.kind, b.Rank())
	}
	for i := range a.bonds {
		if !a.bonds[i].Equal(b.bonds[i]) {
			return nil, fmt.Errorf("unitensor: %s: %w: leg %d differs", op, tenerr.ErrStructuralMismatch, i)
		}
	}
	if a.isDiag != b.isDiag {
		a, b = a.ToNonDiag(), b.ToNonDiag()
	}

	out := a.withMeta()
	switch a.kind {
	case Dense:
		arr, err := f(a.dense.arr, b.dense.arr)
		if err != nil {
			return nil, fmt.Errorf("unitensor: %s: %w", op, err)
		}
		out.dense = &denseBody{arr: arr}
	case Block:
		if len(a.block.blocks) != len(b.block.blocks) {
			return nil, fmt.Errorf("unitensor: %s: %w: %d blocks vs %d", op, tenerr.ErrStructuralMismatch,
				len(a.block.blocks), len(b.block.blocks))
		}
		at := b.block.index()
		body := &blockBody{
			blocks: make([]*dense.Array, len(a.block.blocks)),
			itoi:   make([][]int, len(a.block.itoi)),
		}
		for i, q := range a.block.itoi {
			j, ok := at[tupleKey(q)]
			if !ok {
				return nil, fmt.Errorf("unitensor: %s: %w: block %v missing from second operand",
					op, tenerr.ErrStructuralMismatch, q)
			}
			arr, err := f(a.block.blocks[i], b.block.blocks[j])
			if err != nil {
				return nil, fmt.Errorf("unitensor: %s: %w", op, err)
			}
			body.blocks[i] = arr
			body.itoi[i] = append([]int(nil), q...)
		}
		out.block = body
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", a.kind))
	}
	return out, nil
}

// Add returns a + b. Both tensors must have identical bonds; the result
// takes a's labels.
func Add(a, b *UniTensor) (*UniTensor, error) { return elementwise("add", a, b, dense.Add) }

// Sub returns a - b.
func Sub(a, b *UniTensor) (*UniTensor, error) { return elementwise("sub", a, b, dense.Sub) }

// Mul returns the elementwise product of a and b.
func Mul(a, b *UniTensor) (*UniTensor, error) { return elementwise("mul", a, b, dense.Mul) }

// Div returns the elementwise quotient of a and b.
func Div(a, b *UniTensor) (*UniTensor, error) { return elementwise("div", a, b, dense.Div) }

func (t *UniTensor) mapBlocks(f func(*dense.Array) *dense.Array) *UniTensor {
	out := t.withMeta()
	switch t.kind {
	case Dense:
		out.dense = &denseBody{arr: f(t.dense.arr)}
	case Block:
		body := &blockBody{
			blocks: make([]*dense.Array, len(t.block.blocks)),
			itoi:   make([][]int, len(t.block.itoi)),
		}
		for i, blk := range t.block.blocks {
			body.blocks[i] = f(blk)
			body.itoi[i] = append([]int(nil), t.block.itoi[i]...)
		}
		out.block = body
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
	return out
}

// MulScalar returns t * s.
func (t *UniTensor) MulScalar(s float64) *UniTensor {
	return t.mapBlocks(func(a *dense.Array) *dense.Array { return a.Scale(s) })
}

// DivScalar returns t / s.
func (t *UniTensor) DivScalar(s float64) (*UniTensor, error) {
	if s == 0 {
		return nil, fmt.Errorf("unitensor: div scalar: %w", tenerr.ErrZeroDivisor)
	}
	return t.MulScalar(1 / s), nil
}

// Norm returns the Frobenius norm over all stored elements.
func (t *UniTensor) Norm() float64 {
	switch t.kind {
	case Dense:
		return t.dense.arr.Norm()
	case Block:
		var sq float64
		for _, blk := range t.block.blocks {
			n := blk.Norm()
			sq += n * n
		}
		return math.Sqrt(sq)
	default:
		panic(fmt.Sprintf("unitensor: unknown kind %d", t.kind))
	}
}

// Normalize returns t divided by its norm.
func (t *UniTensor) Normalize() (*UniTensor, error) {
	n := t.Norm()
	if n == 0 {
		return nil, fmt.Errorf("unitensor: normalize: %w: zero tensor", tenerr.ErrZeroDivisor)
	}
	return t.MulScalar(1 / n), nil
}

// Conj returns the complex conjugate. Storage is real, so this is a copy.
func (t *UniTensor) Conj() *UniTensor {
	return t.Clone()
}

// Transpose swaps the row and column spaces: the column legs come first,
// the row legs follow, and every bond direction is reversed.
func (t *UniTensor) Transpose() (*UniTensor, error) {
	rank := len(t.bonds)
	mapper := make([]int, 0, rank)
	for i := t.rowrank; i < rank; i++ {
		mapper = append(mapper, i)
	}
	for i := 0; i < t.rowrank; i++ {
		mapper = append(mapper, i)
	}
	out, err := t.Permute(mapper, rank-t.rowrank)
	if err != nil {
		return nil, fmt.Errorf("unitensor: transpose: %w", err)
	}
	for i := range out.bonds {
		out.bonds[i] = out.bonds[i].Redirect()
	}
	return out, nil
}

// Dagger returns the conjugate transpose.
func (t *UniTensor) Dagger() (*UniTensor, error) {
	return t.Conj().Transpose()
}
