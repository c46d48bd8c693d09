package dense

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// MatMul computes a @ b for matrices: (M, K) @ (K, N) -> (M, N).
func MatMul(a, b *Array) (*Array, error) {
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, fmt.Errorf("dense: matmul: only 2D arrays supported, got %dD and %dD", a.Rank(), b.Rank())
	}
	m, k := a.shape[0], a.shape[1]
	kAlt, n := b.shape[0], b.shape[1]
	if k != kAlt {
		return nil, fmt.Errorf("dense: matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n)
	}

	out := Zeros(m, n)
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas64.General{Rows: m, Cols: k, Stride: k, Data: a.values()},
		blas64.General{Rows: k, Cols: n, Stride: n, Data: b.values()},
		0,
		blas64.General{Rows: m, Cols: n, Stride: n, Data: out.data},
	)
	return out, nil
}

// Tensordot contracts axesA of a with axesB of b. The result's axes are the
// free axes of a followed by the free axes of b, each in original order.
// With no contracted axes the result is the outer product; with every axis
// contracted it is a rank-0 array.
func Tensordot(a, b *Array, axesA, axesB []int) (*Array, error) {
	if len(axesA) != len(axesB) {
		return nil, fmt.Errorf("dense: tensordot: %d axes vs %d axes", len(axesA), len(axesB))
	}
	freeA, err := freeAxes(a.Rank(), axesA)
	if err != nil {
		return nil, fmt.Errorf("dense: tensordot: %w", err)
	}
	freeB, err := freeAxes(b.Rank(), axesB)
	if err != nil {
		return nil, fmt.Errorf("dense: tensordot: %w", err)
	}

	k := 1
	for i := range axesA {
		da, db := a.shape[axesA[i]], b.shape[axesB[i]]
		if da != db {
			return nil, fmt.Errorf("dense: tensordot: axis %d (dim %d) vs axis %d (dim %d)", axesA[i], da, axesB[i], db)
		}
		k *= da
	}

	outShape := make([]int, 0, len(freeA)+len(freeB))
	m, n := 1, 1
	for _, ax := range freeA {
		outShape = append(outShape, a.shape[ax])
		m *= a.shape[ax]
	}
	for _, ax := range freeB {
		outShape = append(outShape, b.shape[ax])
		n *= b.shape[ax]
	}

	pa, err := a.Permute(append(append([]int{}, freeA...), axesA...)...)
	if err != nil {
		return nil, err
	}
	pb, err := b.Permute(append(append([]int{}, axesB...), freeB...)...)
	if err != nil {
		return nil, err
	}
	ma, err := pa.Reshape(m, k)
	if err != nil {
		return nil, err
	}
	mb, err := pb.Reshape(k, n)
	if err != nil {
		return nil, err
	}
	prod, err := MatMul(ma, mb)
	if err != nil {
		return nil, err
	}
	return prod.Reshape(outShape...)
}

func freeAxes(rank int, axes []int) ([]int, error) {
	used := make([]bool, rank)
	for _, ax := range axes {
		if ax < 0 || ax >= rank || used[ax] {
			return nil, fmt.Errorf("invalid axis %d for rank %d", ax, rank)
		}
		used[ax] = true
	}
	free := make([]int, 0, rank-len(axes))
	for i := 0; i < rank; i++ {
		if !used[i] {
			free = append(free, i)
		}
	}
	return free, nil
}

// Trace sums over the diagonal of axes ax1 and ax2 and returns the array of
// the remaining axes.
func Trace(a *Array, ax1, ax2 int) (*Array, error) {
	if ax1 == ax2 {
		return nil, fmt.Errorf("dense: trace: axes must differ, got %d twice", ax1)
	}
	rest, err := freeAxes(a.Rank(), []int{ax1, ax2})
	if err != nil {
		return nil, fmt.Errorf("dense: trace: %w", err)
	}
	d := a.shape[ax1]
	if a.shape[ax2] != d {
		return nil, fmt.Errorf("dense: trace: axis dims %d and %d differ", d, a.shape[ax2])
	}

	outShape := make([]int, len(rest))
	for i, ax := range rest {
		outShape[i] = a.shape[ax]
	}
	p, err := a.Permute(append(rest, ax1, ax2)...)
	if err != nil {
		return nil, err
	}
	vals := p.Contiguous().values()
	out := Zeros(outShape...)
	for r := range out.data {
		base := r * d * d
		for i := 0; i < d; i++ {
			out.data[r] += vals[base+i*d+i]
		}
	}
	return out, nil
}

// Diag builds a square matrix with v on its diagonal.
func Diag(v *Array) (*Array, error) {
	if v.Rank() != 1 {
		return nil, fmt.Errorf("dense: diag: want 1D array, got %dD", v.Rank())
	}
	n := v.shape[0]
	out := Zeros(n, n)
	for i := 0; i < n; i++ {
		out.data[i*n+i] = v.At(i)
	}
	return out, nil
}

// DiagOf returns the diagonal of a square matrix.
func DiagOf(m *Array) (*Array, error) {
	if m.Rank() != 2 || m.shape[0] != m.shape[1] {
		return nil, fmt.Errorf("dense: diagonal of non-square array %v", m.shape)
	}
	n := m.shape[0]
	out := Zeros(n)
	for i := 0; i < n; i++ {
		out.data[i] = m.At(i, i)
	}
	return out, nil
}

// SVD computes the thin singular value decomposition a = U diag(S) Vt with
// S sorted descending. For an (M, N) input with K = min(M, N), U is (M, K),
// S is (K) and Vt is (K, N).
func SVD(a *Array) (u, s, vt *Array, err error) {
	if a.Rank() != 2 {
		return nil, nil, nil, fmt.Errorf("dense: svd: want 2D array, got %dD", a.Rank())
	}
	m, n := a.shape[0], a.shape[1]

	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(m, n, a.Data()), mat.SVDThin) {
		return nil, nil, nil, fmt.Errorf("dense: svd: factorization of %dx%d matrix did not converge", m, n)
	}

	var um, vm mat.Dense
	svd.UTo(&um)
	svd.VTo(&vm)

	s = MustFromSlice(svd.Values(nil), min(m, n))
	u = fromMat(&um)
	v := fromMat(&vm)
	return u, s, v.T().Clone(), nil
}

func fromMat(d *mat.Dense) *Array {
	r, c := d.Dims()
	out := Zeros(r, c)
	raw := d.RawMatrix()
	for i := 0; i < r; i++ {
		copy(out.data[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
	}
	return out
}
