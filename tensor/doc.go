// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides symmetry-aware tensors with labelled legs.
//
// # Overview
//
// A UniTensor is either dense (one array over the full index space) or
// block-sparse. A block tensor carries U(1) and Z(n) quantum numbers on its
// legs and stores only the blocks whose fused charge is neutral. This
// package provides:
//   - Bonds with direction, quantum numbers and degeneracies
//   - Dense and block tensors built from bonds or arrays
//   - Permute, combine, split, contract and trace
//   - Element access and arithmetic
//   - The .symt file format
//
// # Basic Usage
//
//	import "github.com/born-ml/symten/tensor"
//
//	func main() {
//	    u1 := []tensor.Symmetry{tensor.U1()}
//	    in := tensor.MustSymmetricBond(tensor.In, []tensor.Qnum{{0}, {1}}, []int{2, 1}, u1)
//
//	    // Only the (0,0) and (1,1) blocks are stored.
//	    op, _ := tensor.New([]tensor.Bond{in, in.Redirect()}, tensor.WithLabels("i", "j"))
//
//	    psi, _ := tensor.New([]tensor.Bond{in}, tensor.WithLabels("j"))
//	    out, _ := tensor.Contract(op, psi)
//	    _ = out
//	}
//
// # Directions
//
// Legs are Regular (untagged), In or Out. A block is stored when the In
// charges minus the Out charges fuse to the neutral element. Contracted
// legs must describe the same space and point in opposite directions.
//
// # Views
//
// Permute and BlockView never copy; PermuteView returns a tensor whose
// blocks alias the source. Call Contiguous before handing such a tensor to
// code that mutates it.
//
// # Errors
//
// Structural errors wrap the sentinels re-exported here, so callers match
// them with errors.Is:
//
//	if errors.Is(err, tensor.ErrStructuralMismatch) { ... }
package tensor
