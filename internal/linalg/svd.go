// Package linalg factorizes tensors while conserving their symmetry.
//
// A block tensor is viewed as a matrix from its row legs to its column legs.
// That matrix is block diagonal in the row charge, so every charge sector is
// factorized on its own and the factors are cut back into blocks that share
// one new auxiliary bond.
package linalg

import (
	"context"
	"fmt"
	"math"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/parallel"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
	"github.com/born-ml/symten/internal/unitensor"
)

// Labels given to the auxiliary legs, suffixed when t already uses them.
const (
	AuxLeft  = "_aux_L"
	AuxRight = "_aux_R"
)

type factors struct {
	u, s, vt *dense.Array
}

// Svd computes t = U · S · V with nothing discarded.
func Svd(t *unitensor.UniTensor, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	res, err := decompose(t, o, nil)
	if err != nil {
		return nil, fmt.Errorf("linalg: svd: %w", err)
	}
	return res, nil
}

// SvdTruncate computes t ≈ U · S · V keeping at most keepdim singular values
// over all sectors together and dropping those below cutoff. The largest
// singular value always survives. Sectors left without singular values
// disappear from the auxiliary bond.
func SvdTruncate(t *unitensor.UniTensor, keepdim int, cutoff float64, opts ...Option) (*Result, error) {
	if err := checkTruncation(keepdim, cutoff); err != nil {
		return nil, fmt.Errorf("linalg: svd truncate: %w", err)
	}
	o := buildOptions(opts)
	res, err := decompose(t, o, func(vals [][]float64) ([]int, float64) {
		return selectKept(vals, keepdim, cutoff)
	})
	if err != nil {
		return nil, fmt.Errorf("linalg: svd truncate: %w", err)
	}
	return res, nil
}

// selector decides how many leading singular values each sector keeps.
type selector func(vals [][]float64) (keep []int, discarded float64)

func decompose(t *unitensor.UniTensor, o Options, sel selector) (*Result, error) {
	rr := t.RowRank()
	if rr < 1 || rr >= t.Rank() {
		return nil, fmt.Errorf("%w: rowrank %d for rank %d", tenerr.ErrInvalidRowRank, rr, t.Rank())
	}
	switch t.Kind() {
	case unitensor.Dense:
		return decomposeDense(t, o, sel)
	case unitensor.Block:
		return decomposeBlock(t, o, sel)
	default:
		panic(fmt.Sprintf("linalg: unknown kind %d", t.Kind()))
	}
}

func decomposeBlock(t *unitensor.UniTensor, o Options, sel selector) (*Result, error) {
	layout, err := t.Sectors()
	if err != nil {
		return nil, err
	}
	if len(layout.Sectors) == 0 {
		return nil, fmt.Errorf("%w: tensor stores no blocks", tenerr.ErrStructuralMismatch)
	}

	parts := make([]factors, len(layout.Sectors))
	err = parallel.ForErr(context.Background(), len(parts), o.Workers, func(_ context.Context, k int) error {
		u, s, vt, err := dense.SVD(layout.Sectors[k].Matrix)
		if err != nil {
			return fmt.Errorf("sector %s: %w", layout.Sectors[k].Charge, err)
		}
		parts[k] = factors{u: u, s: s, vt: vt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	keep, discarded := keepAll(parts, sel)

	var sectors []int
	var charges []symmetry.Qnum
	var degs []int
	for k, n := range keep {
		if n == 0 {
			continue
		}
		sectors = append(sectors, k)
		charges = append(charges, layout.Sectors[k].Charge)
		degs = append(degs, n)
	}
	aux, err := bond.NewSymmetric(bond.In, charges, degs, t.Syms())
	if err != nil {
		return nil, err
	}

	labels := t.Labels()
	left, right := t.UniqueLabel(AuxLeft), t.UniqueLabel(AuxRight)
	rr := t.RowRank()

	var uBlocks, sBlocks, vBlocks []*dense.Array
	var uIdx, sIdx, vIdx [][]int
	for slot, k := range sectors {
		sec := layout.Sectors[k]
		f, d := parts[k], keep[k]

		for i, r := range sec.Rows {
			if o.SkipU {
				break
			}
			q := layout.RowSlots(r)
			rd := layout.RowBond.Deg(r)
			sub, err := f.u.Slice([]int{sec.RowOffsets[i], 0}, []int{sec.RowOffsets[i] + rd, d})
			if err != nil {
				return nil, err
			}
			blk, err := sub.Clone().Reshape(append(legDegs(layout.RowBonds, q), d)...)
			if err != nil {
				return nil, err
			}
			uBlocks = append(uBlocks, blk)
			uIdx = append(uIdx, append(q, slot))
		}

		sv, err := f.s.Slice([]int{0}, []int{d})
		if err != nil {
			return nil, err
		}
		sBlocks = append(sBlocks, sv.Clone())
		sIdx = append(sIdx, []int{slot, slot})

		for j, c := range sec.Cols {
			if o.SkipV {
				break
			}
			q := layout.ColSlots(c)
			cd := layout.ColBond.Deg(c)
			sub, err := f.vt.Slice([]int{0, sec.ColOffsets[j]}, []int{d, sec.ColOffsets[j] + cd})
			if err != nil {
				return nil, err
			}
			blk, err := sub.Clone().Reshape(append([]int{d}, legDegs(layout.ColBonds, q)...)...)
			if err != nil {
				return nil, err
			}
			vBlocks = append(vBlocks, blk)
			vIdx = append(vIdx, append([]int{slot}, q...))
		}
	}

	res := &Result{Discarded: discarded}
	if !o.SkipU {
		uBonds := append(append([]bond.Bond(nil), layout.RowBonds...), aux.Redirect())
		uLabels := append(append([]string(nil), labels[:rr]...), left)
		res.U, err = unitensor.FromBlocks(uBonds, uBlocks, uIdx, unitensor.WithLabels(uLabels...), unitensor.WithRowRank(rr))
		if err != nil {
			return nil, fmt.Errorf("assemble U: %w", err)
		}
	}
	res.S, err = unitensor.FromBlocks([]bond.Bond{aux, aux.Redirect()}, sBlocks, sIdx,
		unitensor.WithLabels(left, right), unitensor.WithDiag())
	if err != nil {
		return nil, fmt.Errorf("assemble S: %w", err)
	}
	if !o.SkipV {
		vBonds := append([]bond.Bond{aux}, layout.ColBonds...)
		vLabels := append([]string{right}, labels[rr:]...)
		res.V, err = unitensor.FromBlocks(vBonds, vBlocks, vIdx, unitensor.WithLabels(vLabels...), unitensor.WithRowRank(1))
		if err != nil {
			return nil, fmt.Errorf("assemble V: %w", err)
		}
	}

	o.Logger.Debug("block svd",
		"tensor", t.Name(),
		"sectors", len(layout.Sectors),
		"kept_sectors", len(sectors),
		"kept", aux.Dim(),
		"discarded", discarded)
	return res, nil
}

func decomposeDense(t *unitensor.UniTensor, o Options, sel selector) (*Result, error) {
	src := t
	if t.IsDiag() {
		src = t.ToNonDiag()
	}
	arr, err := src.BlockView(0)
	if err != nil {
		return nil, err
	}
	rr := t.RowRank()
	shape := arr.Shape()
	rows := dense.Shape(shape[:rr]).NumElements()

	m, err := arr.Clone().Reshape(rows, shape.NumElements()/rows)
	if err != nil {
		return nil, err
	}
	u, s, vt, err := dense.SVD(m)
	if err != nil {
		return nil, err
	}
	keep, discarded := keepAll([]factors{{u: u, s: s, vt: vt}}, sel)
	d := keep[0]

	labels := t.Labels()
	left, right := t.UniqueLabel(AuxLeft), t.UniqueLabel(AuxRight)

	// A tagged input keeps its leg directions; the new legs point from U
	// into S and from S into V.
	var rowBonds, colBonds, sBonds []bond.Bond
	if t.IsTagged() {
		bonds := t.Bonds()
		aux, err := bond.New(d, bond.In)
		if err != nil {
			return nil, err
		}
		rowBonds = append(bonds[:rr:rr], aux.Redirect())
		colBonds = append([]bond.Bond{aux}, bonds[rr:]...)
		sBonds = []bond.Bond{aux, aux.Redirect()}
	}
	build := func(arr *dense.Array, bonds []bond.Bond, opts ...unitensor.Option) (*unitensor.UniTensor, error) {
		if bonds == nil {
			return unitensor.FromArray(arr, opts...)
		}
		return unitensor.FromArrayBonds(arr, bonds, opts...)
	}

	res := &Result{Discarded: discarded}
	if !o.SkipU {
		uv, err := u.Slice([]int{0, 0}, []int{rows, d})
		if err != nil {
			return nil, err
		}
		ua, err := uv.Clone().Reshape(append(append([]int(nil), shape[:rr]...), d)...)
		if err != nil {
			return nil, err
		}
		res.U, err = build(ua, rowBonds,
			unitensor.WithLabels(append(append([]string(nil), labels[:rr]...), left)...),
			unitensor.WithRowRank(rr))
		if err != nil {
			return nil, fmt.Errorf("assemble U: %w", err)
		}
	}

	sv, err := s.Slice([]int{0}, []int{d})
	if err != nil {
		return nil, err
	}
	res.S, err = build(sv.Clone(), sBonds, unitensor.WithLabels(left, right), unitensor.WithDiag())
	if err != nil {
		return nil, fmt.Errorf("assemble S: %w", err)
	}

	if !o.SkipV {
		vv, err := vt.Slice([]int{0, 0}, []int{d, vt.Shape()[1]})
		if err != nil {
			return nil, err
		}
		va, err := vv.Clone().Reshape(append([]int{d}, shape[rr:]...)...)
		if err != nil {
			return nil, err
		}
		res.V, err = build(va, colBonds,
			unitensor.WithLabels(append([]string{right}, labels[rr:]...)...),
			unitensor.WithRowRank(1))
		if err != nil {
			return nil, fmt.Errorf("assemble V: %w", err)
		}
	}

	o.Logger.Debug("dense svd", "tensor", t.Name(), "shape", []int(shape), "kept", d, "discarded", discarded)
	return res, nil
}

// keepAll runs sel over the singular values of parts, or keeps everything
// when sel is nil.
func keepAll(parts []factors, sel selector) ([]int, float64) {
	vals := make([][]float64, len(parts))
	for k, f := range parts {
		vals[k] = f.s.Data()
	}
	if sel == nil {
		keep := make([]int, len(vals))
		for k, v := range vals {
			keep[k] = len(v)
		}
		return keep, 0
	}
	return sel(vals)
}

func legDegs(bonds []bond.Bond, q []int) []int {
	out := make([]int, len(q))
	for i, s := range q {
		out[i] = bonds[i].Deg(s)
	}
	return out
}

// Weight returns the fraction of the squared norm of full that survives in
// the kept singular values. full is either the untruncated S or the
// factorized tensor itself, whose norm equals that of its spectrum.
func Weight(kept, full *unitensor.UniTensor) float64 {
	k, f := kept.Norm(), full.Norm()
	if f == 0 {
		return 1
	}
	return math.Min(1, (k*k)/(f*f))
}
