package unitensor

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var u1 = []symmetry.Symmetry{symmetry.NewU1()}

func qs(vals ...int) []symmetry.Qnum {
	out := make([]symmetry.Qnum, len(vals))
	for i, v := range vals {
		out[i] = symmetry.Qnum{v}
	}
	return out
}

func u1Bond(dir bond.Direction, qnums []int, degs []int) bond.Bond {
	return bond.MustSymmetric(dir, qs(qnums...), degs, u1)
}

func newRandom(t *testing.T, seed uint64, bonds []bond.Bond, opts ...Option) *UniTensor {
	t.Helper()
	ut, err := New(bonds, opts...)
	require.NoError(t, err)
	ut.FillRandom(rand.New(rand.NewPCG(seed, seed+1)), -1, 1)
	return ut
}

// rank3 builds a tensor with legs a, b (In) and c (Out) where c carries the
// fused charge of a and b.
func rank3(t *testing.T, seed uint64) *UniTensor {
	t.Helper()
	return newRandom(t, seed, []bond.Bond{
		u1Bond(bond.In, []int{-1, 0, 1}, []int{1, 2, 1}),
		u1Bond(bond.In, []int{0, 1}, []int{1, 2}),
		u1Bond(bond.Out, []int{-1, 0, 1, 2}, []int{1, 2, 2, 1}),
	}, WithLabels("a", "b", "c"), WithRowRank(2))
}

// assertIndexMap checks that blocks and index tuples agree: one tuple per
// block, tuples unique and legal, block shapes matching the slot degeneracies.
func assertIndexMap(t *testing.T, ut *UniTensor) {
	t.Helper()
	require.Equal(t, Block, ut.Kind())
	require.Equal(t, len(ut.block.blocks), len(ut.block.itoi))
	require.Equal(t, len(ut.bonds), len(ut.labels))

	seen := make(map[string]bool)
	for i, q := range ut.block.itoi {
		require.NoError(t, ut.checkTuple(q), "block %d", i)
		key := tupleKey(q)
		assert.False(t, seen[key], "duplicate tuple %v", q)
		seen[key] = true
		assert.Equal(t, ut.blockShape(q), ut.block.blocks[i].Shape(), "block %d shape", i)
	}
}

func denseArray(t *testing.T, ut *UniTensor) *dense.Array {
	t.Helper()
	d, err := ut.ToDense()
	require.NoError(t, err)
	arr, err := d.BlockView(0)
	require.NoError(t, err)
	return arr
}

func assertSameDense(t *testing.T, want, got *UniTensor, tol float64) {
	t.Helper()
	a, b := denseArray(t, want), denseArray(t, got)
	require.Equal(t, a.Shape(), b.Shape())
	assert.True(t, dense.AllClose(a, b, tol), "want %v\n got %v", a, b)
}
