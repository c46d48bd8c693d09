package dense

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatMul(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b := MustFromSlice([]float64{7, 8, 9, 10, 11, 12}, 3, 2)

	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{58, 64, 139, 154}, c.Data())

	// Strided operands are packed.
	ct, err := MatMul(b.T(), a.T())
	require.NoError(t, err)
	assert.Equal(t, []float64{58, 139, 64, 154}, ct.Data())

	_, err = MatMul(a, a)
	assert.Error(t, err)
}

func TestTensordot(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	a := Uniform(rng, -1, 1, 2, 3, 4)
	b := Uniform(rng, -1, 1, 4, 5, 3)

	got, err := Tensordot(a, b, []int{1, 2}, []int{2, 0})
	require.NoError(t, err)
	require.Equal(t, Shape{2, 5}, got.Shape())

	for i := 0; i < 2; i++ {
		for j := 0; j < 5; j++ {
			var want float64
			for x := 0; x < 3; x++ {
				for y := 0; y < 4; y++ {
					want += a.At(i, x, y) * b.At(y, j, x)
				}
			}
			assert.InDelta(t, want, got.At(i, j), 1e-12)
		}
	}

	t.Run("outer product", func(t *testing.T) {
		x := MustFromSlice([]float64{1, 2}, 2)
		y := MustFromSlice([]float64{3, 4, 5}, 3)
		o, err := Tensordot(x, y, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4, 5, 6, 8, 10}, o.Data())
	})

	t.Run("full contraction", func(t *testing.T) {
		x := MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
		s, err := Tensordot(x, x, []int{0, 1}, []int{0, 1})
		require.NoError(t, err)
		assert.Equal(t, 0, s.Rank())
		v, err := s.Item()
		require.NoError(t, err)
		assert.Equal(t, 30.0, v)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Tensordot(a, b, []int{0}, []int{0})
		assert.Error(t, err)
	})
}

func TestTrace(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	tr, err := Trace(a, 0, 1)
	require.NoError(t, err)
	v, err := tr.Item()
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	b := Zeros(2, 3, 2)
	b.Set(1, 0, 0, 0)
	b.Set(2, 1, 0, 1)
	b.Set(7, 0, 2, 1)
	out, err := Trace(b, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 0}, out.Data())

	_, err = Trace(b, 0, 1)
	assert.Error(t, err)
}

func TestDiag(t *testing.T) {
	v := MustFromSlice([]float64{1, 2, 3}, 3)
	m, err := Diag(v)
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.At(1, 1))
	assert.Equal(t, 0.0, m.At(0, 1))

	back, err := DiagOf(m)
	require.NoError(t, err)
	assert.True(t, AllClose(v, back, 0))
}

func TestSVD(t *testing.T) {
	shapes := [][2]int{{4, 3}, {3, 5}, {1, 1}, {6, 6}}
	rng := rand.New(rand.NewPCG(3, 9))

	for _, sh := range shapes {
		a := Uniform(rng, -1, 1, sh[0], sh[1])
		u, s, vt, err := SVD(a)
		require.NoError(t, err)

		k := min(sh[0], sh[1])
		assert.Equal(t, Shape{sh[0], k}, u.Shape())
		assert.Equal(t, Shape{k}, s.Shape())
		assert.Equal(t, Shape{k, sh[1]}, vt.Shape())

		for i := 1; i < k; i++ {
			assert.GreaterOrEqual(t, s.At(i-1), s.At(i))
		}

		ds, err := Diag(s)
		require.NoError(t, err)
		us, err := MatMul(u, ds)
		require.NoError(t, err)
		rec, err := MatMul(us, vt)
		require.NoError(t, err)
		assert.True(t, AllClose(a, rec, 1e-10), "reconstruction of %v", sh)
	}
}
