// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linalg factorizes symmetric tensors.
//
// Svd splits a tensor at its row rank into U · S · V. For a block tensor
// each charge sector is factorized on its own; SvdTruncate then keeps the
// largest singular values across all sectors at once.
//
// Example:
//
//	res, err := linalg.SvdTruncate(psi, 32, 1e-10, linalg.WithWorkers(4))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Kept(), res.Discarded)
package linalg

import (
	"github.com/born-ml/symten/internal/linalg"
	"github.com/born-ml/symten/tensor"
)

// Labels given to the two legs of S.
const (
	AuxLeft  = linalg.AuxLeft
	AuxRight = linalg.AuxRight
)

// Result holds the factors of a decomposition. Discarded is the largest
// singular value that was dropped, or zero; the smallest kept value is the
// last entry of S. U and V are nil when skipped.
type Result = linalg.Result

// Option configures a decomposition.
type Option = linalg.Option

// WithWorkers bounds concurrent sector factorizations. Zero means one per
// CPU.
var WithWorkers = linalg.WithWorkers

// WithLogger sets the logger for progress at debug level.
var WithLogger = linalg.WithLogger

// WithoutU, WithoutV and ValuesOnly leave factors out of the Result.
var (
	WithoutU   = linalg.WithoutU
	WithoutV   = linalg.WithoutV
	ValuesOnly = linalg.ValuesOnly
)

// Svd computes t = U · S · V without truncation.
func Svd(t *tensor.UniTensor, opts ...Option) (*Result, error) {
	return linalg.Svd(t, opts...)
}

// SvdTruncate keeps at most keepdim singular values in total, dropping
// any below cutoff. The largest value is always kept.
func SvdTruncate(t *tensor.UniTensor, keepdim int, cutoff float64, opts ...Option) (*Result, error) {
	return linalg.SvdTruncate(t, keepdim, cutoff, opts...)
}

// Weight returns the fraction of the squared norm of full kept in S.
func Weight(s, full *tensor.UniTensor) float64 { return linalg.Weight(s, full) }
