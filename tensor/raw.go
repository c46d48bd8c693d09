// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/symten/internal/dense"
)

// Array is the strided float64 array that backs every block.
//
// Array provides:
//   - Shape and stride information via Shape(), Strides()
//   - Element access via At() and Set()
//   - Views via Permute(), Slice() and Reshape()
//   - Fresh storage via Clone() and Contiguous()
//
// Most users work with UniTensor and touch arrays only through
// GetBlock, BlockView and PutBlock.
//
// Example:
//
//	arr, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, 2, 2)
//	t, _ := tensor.FromArray(arr, tensor.WithLabels("a", "b"))
type Array = dense.Array

// Shape is the list of dimensions of an array.
type Shape = dense.Shape

// Zeros creates a zero-filled array.
func Zeros(shape ...int) *Array { return dense.Zeros(shape...) }

// FromSlice wraps data (row-major) as an array of the given shape.
func FromSlice(data []float64, shape ...int) (*Array, error) {
	return dense.FromSlice(data, shape...)
}

// Scalar creates a rank-0 array.
func Scalar(v float64) *Array { return dense.Scalar(v) }

// Eye creates an n×n identity matrix.
func Eye(n int) *Array { return dense.Eye(n) }

// AllClose reports whether two arrays have the same shape and every pair
// of elements differs by at most tol.
func AllClose(a, b *Array, tol float64) bool { return dense.AllClose(a, b, tol) }
