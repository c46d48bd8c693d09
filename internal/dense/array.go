// Package dense implements strided float64 arrays and the numeric kernels
// the tensor layer runs on them: GEMM, tensordot, trace and SVD.
//
// An Array is a view (shape, strides, offset) over a shared []float64.
// Permute, Slice and contiguous Reshape return views that alias the
// receiver's storage; Clone and Contiguous on a strided view return fresh
// storage. Kernels accept any view and pack it when they need a row-major
// buffer.
package dense

import (
	"fmt"
	"math"
	"strings"
)

// Array is a dense row-major float64 array with optional strides.
type Array struct {
	data   []float64
	shape  Shape
	stride []int
	offset int
}

// Zeros creates a zero-filled array. A call with no dimensions creates a
// rank-0 scalar. Panics on a non-positive dimension.
func Zeros(shape ...int) *Array {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("dense: zeros: %v", err))
	}
	return &Array{
		data:   make([]float64, s.NumElements()),
		shape:  s.Clone(),
		stride: s.ComputeStrides(),
	}
}

// FromSlice creates an array holding a copy of data.
func FromSlice(data []float64, shape ...int) (*Array, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("dense: invalid shape: %w", err)
	}
	if len(data) != s.NumElements() {
		return nil, fmt.Errorf("dense: %d values for shape %v", len(data), s)
	}
	a := Zeros(shape...)
	copy(a.data, data)
	return a, nil
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice(data []float64, shape ...int) *Array {
	a, err := FromSlice(data, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

// Scalar creates a rank-0 array holding v.
func Scalar(v float64) *Array {
	a := Zeros()
	a.data[0] = v
	return a
}

// Eye creates an n x n identity matrix.
func Eye(n int) *Array {
	a := Zeros(n, n)
	for i := 0; i < n; i++ {
		a.data[i*n+i] = 1
	}
	return a
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() Shape { return a.shape.Clone() }

// Strides returns a copy of the array's strides.
func (a *Array) Strides() []int { return append([]int(nil), a.stride...) }

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the number of elements.
func (a *Array) Size() int { return a.shape.NumElements() }

// IsContiguous reports whether the array is laid out row-major without gaps.
func (a *Array) IsContiguous() bool {
	want := a.shape.ComputeStrides()
	for i := range want {
		if a.shape[i] != 1 && a.stride[i] != want[i] {
			return false
		}
	}
	return true
}

// SharesStorage reports whether a and b view the same backing buffer.
func (a *Array) SharesStorage(b *Array) bool {
	if len(a.data) == 0 || len(b.data) == 0 {
		return false
	}
	return &a.data[0] == &b.data[0]
}

func (a *Array) offsetOf(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("dense: index %v for rank-%d array", idx, len(a.shape)))
	}
	off := a.offset
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("dense: index %v out of range for shape %v", idx, a.shape))
		}
		off += v * a.stride[i]
	}
	return off
}

// At returns the element at idx.
func (a *Array) At(idx ...int) float64 {
	return a.data[a.offsetOf(idx)]
}

// Set writes v at idx.
func (a *Array) Set(v float64, idx ...int) {
	a.data[a.offsetOf(idx)] = v
}

// Item returns the single element of a size-1 array.
func (a *Array) Item() (float64, error) {
	if a.Size() != 1 {
		return 0, fmt.Errorf("dense: item of array with %d elements", a.Size())
	}
	return a.data[a.offset], nil
}

// walk calls fn with the storage offset of every element in row-major order.
func (a *Array) walk(fn func(k, off int)) {
	n := a.Size()
	idx := make([]int, len(a.shape))
	off := a.offset
	for k := 0; k < n; k++ {
		fn(k, off)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			off += a.stride[d]
			if idx[d] < a.shape[d] {
				break
			}
			off -= a.stride[d] * a.shape[d]
			idx[d] = 0
		}
	}
}

// Data returns a row-major copy of the elements.
func (a *Array) Data() []float64 {
	out := make([]float64, a.Size())
	a.walk(func(k, off int) { out[k] = a.data[off] })
	return out
}

// values returns the elements row-major, aliasing storage when possible.
// Callers must not write to the result.
func (a *Array) values() []float64 {
	if a.IsContiguous() {
		return a.data[a.offset : a.offset+a.Size()]
	}
	return a.Data()
}

// Clone returns a contiguous deep copy.
func (a *Array) Clone() *Array {
	return &Array{
		data:   a.Data(),
		shape:  a.shape.Clone(),
		stride: a.shape.ComputeStrides(),
	}
}

// Contiguous returns the receiver if it is already contiguous and a packed
// copy otherwise.
func (a *Array) Contiguous() *Array {
	if a.IsContiguous() {
		return a
	}
	return a.Clone()
}

// Permute returns a view with axes reordered: axis i of the result is axis
// perm[i] of the receiver.
func (a *Array) Permute(perm ...int) (*Array, error) {
	if err := checkPerm(perm, len(a.shape)); err != nil {
		return nil, fmt.Errorf("dense: permute: %w", err)
	}
	out := &Array{
		data:   a.data,
		shape:  make(Shape, len(perm)),
		stride: make([]int, len(perm)),
		offset: a.offset,
	}
	for i, p := range perm {
		out.shape[i] = a.shape[p]
		out.stride[i] = a.stride[p]
	}
	return out, nil
}

// T returns the transpose view of a matrix.
func (a *Array) T() *Array {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("dense: transpose of rank-%d array", len(a.shape)))
	}
	out, _ := a.Permute(1, 0)
	return out
}

// Reshape returns an array with the same elements in a new shape. The
// result is a view when the receiver is contiguous.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("dense: reshape: %w", err)
	}
	if s.NumElements() != a.Size() {
		return nil, fmt.Errorf("dense: cannot reshape %v (%d elements) to %v", a.shape, a.Size(), s)
	}
	c := a.Contiguous()
	return &Array{
		data:   c.data,
		shape:  s.Clone(),
		stride: s.ComputeStrides(),
		offset: c.offset,
	}, nil
}

// Slice returns a view of the box [lo, hi) along every axis.
func (a *Array) Slice(lo, hi []int) (*Array, error) {
	if len(lo) != len(a.shape) || len(hi) != len(a.shape) {
		return nil, fmt.Errorf("dense: slice bounds have %d/%d axes, want %d", len(lo), len(hi), len(a.shape))
	}
	out := &Array{
		data:   a.data,
		shape:  make(Shape, len(a.shape)),
		stride: append([]int(nil), a.stride...),
		offset: a.offset,
	}
	for i := range a.shape {
		if lo[i] < 0 || hi[i] > a.shape[i] || lo[i] >= hi[i] {
			return nil, fmt.Errorf("dense: slice [%d,%d) out of range on axis %d (dim %d)", lo[i], hi[i], i, a.shape[i])
		}
		out.shape[i] = hi[i] - lo[i]
		out.offset += lo[i] * a.stride[i]
	}
	return out, nil
}

// Assign copies src into the receiver element by element. Shapes must match.
// When the receiver is a view the write goes through to its storage.
func (a *Array) Assign(src *Array) error {
	if !a.shape.Equal(src.shape) {
		return fmt.Errorf("dense: assign shape %v into %v", src.shape, a.shape)
	}
	vals := src.Data()
	a.walk(func(k, off int) { a.data[off] = vals[k] })
	return nil
}

// SetSlice writes src into the box starting at lo.
func (a *Array) SetSlice(lo []int, src *Array) error {
	if len(lo) != len(src.shape) {
		return fmt.Errorf("dense: set slice origin %v for rank-%d source", lo, len(src.shape))
	}
	hi := make([]int, len(lo))
	for i := range lo {
		hi[i] = lo[i] + src.shape[i]
	}
	view, err := a.Slice(lo, hi)
	if err != nil {
		return err
	}
	return view.Assign(src)
}

// Fill sets every element to v.
func (a *Array) Fill(v float64) {
	a.walk(func(_, off int) { a.data[off] = v })
}

// AllClose reports whether two arrays have the same shape and all elements
// differ by at most tol.
func AllClose(a, b *Array, tol float64) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	av, bv := a.values(), b.values()
	for i := range av {
		if math.Abs(av[i]-bv[i]) > tol {
			return false
		}
	}
	return true
}

// String formats small arrays in full and large ones as a summary.
func (a *Array) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Array%v", []int(a.shape))
	if a.Size() > 64 {
		return sb.String()
	}
	sb.WriteString(" [")
	for i, v := range a.Data() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.6g", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
