package dense

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeComputeStrides(t *testing.T) {
	tests := []struct {
		shape Shape
		want  []int
	}{
		{Shape{}, []int{}},
		{Shape{5}, []int{1}},
		{Shape{2, 3}, []int{3, 1}},
		{Shape{2, 3, 4}, []int{12, 4, 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.ComputeStrides(), "shape %v", tt.shape)
	}
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Error(t, Shape{2, 0}.Validate())
}

func TestFromSlice(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 6.0, a.At(1, 2))
	assert.Equal(t, 2, a.Rank())

	_, err = FromSlice([]float64{1, 2}, 3)
	assert.Error(t, err)

	s := Scalar(3.5)
	v, err := s.Item()
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
	assert.Equal(t, 0, s.Rank())
}

func TestPermuteIsView(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	p, err := a.Permute(1, 0)
	require.NoError(t, err)

	assert.Equal(t, Shape{3, 2}, p.Shape())
	assert.False(t, p.IsContiguous())
	assert.True(t, p.SharesStorage(a))
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, p.Data())

	p.Set(42, 2, 1)
	assert.Equal(t, 42.0, a.At(1, 2), "view writes reach the source")

	c := p.Contiguous()
	assert.True(t, c.IsContiguous())
	assert.False(t, c.SharesStorage(a))

	_, err = a.Permute(0, 0)
	assert.Error(t, err)
}

func TestReshape(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	r, err := a.Reshape(3, 2)
	require.NoError(t, err)
	assert.True(t, r.SharesStorage(a))
	assert.Equal(t, 4.0, r.At(1, 1))

	// Reshape of a strided view packs first.
	r2, err := a.T().Reshape(6)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, r2.Data())

	_, err = a.Reshape(4, 2)
	assert.Error(t, err)
}

func TestSliceAndSetSlice(t *testing.T) {
	a := Zeros(4, 4)
	blk := MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, a.SetSlice([]int{1, 2}, blk))

	assert.Equal(t, 1.0, a.At(1, 2))
	assert.Equal(t, 4.0, a.At(2, 3))
	assert.Equal(t, 0.0, a.At(0, 0))

	v, err := a.Slice([]int{1, 2}, []int{3, 4})
	require.NoError(t, err)
	assert.True(t, AllClose(v, blk, 0))

	_, err = a.Slice([]int{0, 0}, []int{5, 1})
	assert.Error(t, err)
	assert.Error(t, a.SetSlice([]int{3, 3}, blk))
}

func TestElementwise(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3, 4}, 2, 2)
	b := MustFromSlice([]float64{4, 3, 2, 1}, 2, 2)

	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5, 5}, sum.Data())

	diff, err := Sub(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, -1, 1, 3}, diff.Data())

	prod, err := Mul(a.T(), b)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 9, 4, 4}, prod.Data())

	q, err := Div(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, q.At(0, 0), 1e-15)

	assert.Equal(t, []float64{2, 4, 6, 8}, a.Scale(2).Data())
	assert.InDelta(t, 5.477225575051661, a.Norm(), 1e-12)
	assert.Equal(t, 10.0, a.Sum())

	_, err = Add(a, Zeros(4))
	assert.Error(t, err)
}

func TestUniformIsSeeded(t *testing.T) {
	a := Uniform(rand.New(rand.NewPCG(1, 2)), -1, 1, 3, 3)
	b := Uniform(rand.New(rand.NewPCG(1, 2)), -1, 1, 3, 3)
	assert.True(t, AllClose(a, b, 0))
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 1.0)
	}
}
