package linalg

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/tenerr"
	"github.com/born-ml/symten/internal/unitensor"
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

func u1Bond(dir bond.Direction, qnums, degs []int) bond.Bond {
	return bond.MustSymmetric(dir, qs(qnums...), degs, u1)
}

func randomTensor(t *testing.T, seed uint64, bonds []bond.Bond, opts ...unitensor.Option) *unitensor.UniTensor {
	t.Helper()
	ut, err := unitensor.New(bonds, opts...)
	require.NoError(t, err)
	ut.FillRandom(rand.New(rand.NewPCG(seed, 7)), -1, 1)
	return ut
}

// twoSectors has sector (0) holding diag(5, 3, 0.1) and sector (1) holding
// diag(4, 0.05).
func twoSectors(t *testing.T) *unitensor.UniTensor {
	t.Helper()
	in := u1Bond(bond.In, []int{0, 1}, []int{3, 2})
	m0 := dense.Zeros(3, 3)
	m0.Set(5, 0, 0)
	m0.Set(3, 1, 1)
	m0.Set(0.1, 2, 2)
	m1 := dense.Zeros(2, 2)
	m1.Set(4, 0, 0)
	m1.Set(0.05, 1, 1)
	ut, err := unitensor.FromSectors([]bond.Bond{in, in.Redirect()}, 1, qs(0, 1),
		[]*dense.Array{m0, m1}, unitensor.WithLabels("l", "r"))
	require.NoError(t, err)
	return ut
}

func toArray(t *testing.T, ut *unitensor.UniTensor) *dense.Array {
	t.Helper()
	d, err := ut.ToDense()
	require.NoError(t, err)
	arr, err := d.BlockView(0)
	require.NoError(t, err)
	return arr
}

func reconstruct(t *testing.T, r *Result) *unitensor.UniTensor {
	t.Helper()
	us, err := unitensor.Contract(r.U, r.S)
	require.NoError(t, err)
	out, err := unitensor.Contract(us, r.V)
	require.NoError(t, err)
	return out
}

func relativeError(t *testing.T, want, got *unitensor.UniTensor) float64 {
	t.Helper()
	a, b := toArray(t, want), toArray(t, got)
	require.Equal(t, a.Shape(), b.Shape())
	diff, err := dense.Sub(a, b)
	require.NoError(t, err)
	return diff.Norm() / a.Norm()
}

func singularValues(t *testing.T, s *unitensor.UniTensor) [][]float64 {
	t.Helper()
	out := make([][]float64, s.NumBlocks())
	for i := range out {
		blk, err := s.GetBlock(i)
		require.NoError(t, err)
		out[i] = blk.Data()
	}
	return out
}

func TestSvdReconstructs(t *testing.T) {
	tests := []struct {
		name    string
		bonds   []bond.Bond
		labels  []string
		rowrank int
	}{
		{
			name: "rank 2",
			bonds: []bond.Bond{
				u1Bond(bond.In, []int{-1, 0, 1}, []int{2, 3, 2}),
				u1Bond(bond.Out, []int{-1, 0, 1}, []int{1, 4, 2}),
			},
			labels:  []string{"i", "j"},
			rowrank: 1,
		},
		{
			name: "rank 3",
			bonds: []bond.Bond{
				u1Bond(bond.In, []int{-1, 0, 1}, []int{1, 2, 1}),
				u1Bond(bond.In, []int{0, 1}, []int{1, 2}),
				u1Bond(bond.Out, []int{-1, 0, 1, 2}, []int{1, 2, 2, 1}),
			},
			labels:  []string{"a", "b", "c"},
			rowrank: 2,
		},
		{
			name: "rank 4 mixed directions",
			bonds: []bond.Bond{
				u1Bond(bond.In, []int{0, 1}, []int{2, 1}),
				u1Bond(bond.Out, []int{0, 1}, []int{1, 2}),
				u1Bond(bond.In, []int{-1, 0}, []int{1, 1}),
				u1Bond(bond.Out, []int{-1, 0, 1}, []int{1, 2, 1}),
			},
			labels:  []string{"p", "q", "r", "s"},
			rowrank: 2,
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ut := randomTensor(t, uint64(i+1), tt.bonds,
				unitensor.WithLabels(tt.labels...), unitensor.WithRowRank(tt.rowrank))

			res, err := Svd(ut)
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.Discarded)
			assert.True(t, res.S.IsDiag())
			assert.Equal(t, append(append([]string(nil), tt.labels[:tt.rowrank]...), AuxLeft), res.U.Labels())
			assert.Equal(t, []string{AuxLeft, AuxRight}, res.S.Labels())
			assert.Equal(t, append([]string{AuxRight}, tt.labels[tt.rowrank:]...), res.V.Labels())
			assert.Equal(t, tt.rowrank, res.U.RowRank())
			assert.Equal(t, 1, res.V.RowRank())

			aux, err := res.S.Bond(AuxLeft)
			require.NoError(t, err)
			assert.Equal(t, bond.In, aux.Direction())
			uaux, err := res.U.Bond(AuxLeft)
			require.NoError(t, err)
			assert.Equal(t, bond.Out, uaux.Direction())

			assert.Less(t, relativeError(t, ut, reconstruct(t, res)), 1e-10)
		})
	}
}

func TestSvdDense(t *testing.T) {
	arr := dense.Uniform(rand.New(rand.NewPCG(3, 4)), -1, 1, 3, 2, 4)
	ut, err := unitensor.FromArray(arr, unitensor.WithLabels("x", "y", "z"), unitensor.WithRowRank(2))
	require.NoError(t, err)

	res, err := Svd(ut)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 4}, res.U.Shape())
	assert.Equal(t, []int{4, 4}, res.S.Shape())
	assert.Equal(t, []int{4, 4}, res.V.Shape())
	assert.Less(t, relativeError(t, ut, reconstruct(t, res)), 1e-10)

	tr, err := SvdTruncate(ut, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Kept())
	assert.Equal(t, []int{3, 2, 2}, tr.U.Shape())
	assert.Greater(t, tr.Discarded, 0.0)
}

func TestSvdDenseKeepsDirections(t *testing.T) {
	arr := dense.Uniform(rand.New(rand.NewPCG(5, 6)), -1, 1, 3, 2, 4)
	plain := func(dim int, dir bond.Direction) bond.Bond {
		b, err := bond.New(dim, dir)
		require.NoError(t, err)
		return b
	}
	bonds := []bond.Bond{plain(3, bond.In), plain(2, bond.In), plain(4, bond.Out)}
	ut, err := unitensor.FromArrayBonds(arr, bonds, unitensor.WithLabels("x", "y", "z"), unitensor.WithRowRank(2))
	require.NoError(t, err)
	require.True(t, ut.IsTagged())

	res, err := SvdTruncate(ut, 3, 0)
	require.NoError(t, err)
	for name, f := range map[string]*unitensor.UniTensor{"U": res.U, "S": res.S, "V": res.V} {
		assert.True(t, f.IsTagged(), "%s should be tagged", name)
	}
	dirs := func(ut *unitensor.UniTensor) []bond.Direction {
		var out []bond.Direction
		for _, b := range ut.Bonds() {
			out = append(out, b.Direction())
		}
		return out
	}
	assert.Equal(t, []bond.Direction{bond.In, bond.In, bond.Out}, dirs(res.U))
	assert.Equal(t, []bond.Direction{bond.In, bond.Out}, dirs(res.S))
	assert.Equal(t, []bond.Direction{bond.In, bond.Out}, dirs(res.V))

	full, err := Svd(ut)
	require.NoError(t, err)
	back := reconstruct(t, full)
	assert.Equal(t, []bond.Direction{bond.In, bond.In, bond.Out}, dirs(back))
	assert.Less(t, relativeError(t, ut, back), 1e-10)

	// U stays contractible with a tensor built against the input's legs.
	partner, err := unitensor.FromArrayBonds(dense.MustFromSlice([]float64{1, 1, 1}, 3), []bond.Bond{plain(3, bond.Out)},
		unitensor.WithLabels("x"))
	require.NoError(t, err)
	_, err = unitensor.Contract(partner, res.U)
	require.NoError(t, err)
}

func TestSvdSkipsFactors(t *testing.T) {
	ut := twoSectors(t)
	full, err := SvdTruncate(ut, 3, 0.2)
	require.NoError(t, err)

	vals, err := SvdTruncate(ut, 3, 0.2, ValuesOnly())
	require.NoError(t, err)
	assert.Nil(t, vals.U)
	assert.Nil(t, vals.V)
	assert.Equal(t, singularValues(t, full.S), singularValues(t, vals.S))
	assert.Equal(t, full.Discarded, vals.Discarded)
	assert.Equal(t, full.Kept(), vals.Kept())

	arr := dense.Uniform(rand.New(rand.NewPCG(3, 4)), -1, 1, 3, 4)
	d, err := unitensor.FromArray(arr, unitensor.WithLabels("a", "b"), unitensor.WithRowRank(1))
	require.NoError(t, err)
	onlyV, err := Svd(d, WithoutU())
	require.NoError(t, err)
	assert.Nil(t, onlyV.U)
	require.NotNil(t, onlyV.V)
	assert.Equal(t, []int{3, 4}, onlyV.V.Shape())

	onlyU, err := Svd(d, WithoutV())
	require.NoError(t, err)
	assert.Nil(t, onlyU.V)
	require.NotNil(t, onlyU.U)
	assert.Equal(t, []int{3, 3}, onlyU.U.Shape())
}

func TestSvdTruncateTwoSectors(t *testing.T) {
	ut := twoSectors(t)

	res, err := SvdTruncate(ut, 3, 0.2)
	require.NoError(t, err)

	vals := singularValues(t, res.S)
	require.Len(t, vals, 2)
	assert.InDeltaSlice(t, []float64{5, 3}, vals[0], 1e-12)
	assert.InDeltaSlice(t, []float64{4}, vals[1], 1e-12)
	assert.InDelta(t, 0.1, res.Discarded, 1e-12)

	aux, err := res.S.Bond(AuxLeft)
	require.NoError(t, err)
	assert.Equal(t, qs(0, 1), aux.Qnums())
	assert.Equal(t, []int{2, 1}, aux.Degs())

	// The truncated product is the input with 0.1 and 0.05 removed.
	want := toArray(t, ut)
	want.Set(0, 2, 2)
	want.Set(0, 4, 4)
	got := toArray(t, reconstruct(t, res))
	assert.True(t, dense.AllClose(want, got, 1e-12), "got %v", got)
}

func TestSvdTruncateRemovesEmptySectors(t *testing.T) {
	ut := twoSectors(t)

	res, err := SvdTruncate(ut, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Kept())
	assert.InDelta(t, 4.0, res.Discarded, 1e-12)

	aux, err := res.S.Bond(AuxLeft)
	require.NoError(t, err)
	assert.Equal(t, qs(0), aux.Qnums())
	assert.Equal(t, 1, res.S.NumBlocks())

	for _, f := range []*unitensor.UniTensor{res.U, res.V} {
		for i := 0; i < f.NumBlocks(); i++ {
			q, err := f.QIndices(i)
			require.NoError(t, err)
			for _, s := range q {
				assert.Equal(t, 0, s)
			}
		}
	}
}

func TestSvdTruncateCutoff(t *testing.T) {
	ut := twoSectors(t)

	t.Run("cutoff only", func(t *testing.T) {
		res, err := SvdTruncate(ut, 100, 3.5)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Kept())
		assert.InDelta(t, 3.0, res.Discarded, 1e-12)
	})

	t.Run("largest always kept", func(t *testing.T) {
		res, err := SvdTruncate(ut, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Kept())
		vals := singularValues(t, res.S)
		assert.InDeltaSlice(t, []float64{5}, vals[0], 1e-12)
	})

	t.Run("bad arguments", func(t *testing.T) {
		_, err := SvdTruncate(ut, 0, 0)
		assert.Error(t, err)
		_, err = SvdTruncate(ut, 1, -1)
		assert.Error(t, err)
	})
}

func TestSvdTruncateMonotone(t *testing.T) {
	ut := randomTensor(t, 9, []bond.Bond{
		u1Bond(bond.In, []int{-1, 0, 1}, []int{2, 3, 2}),
		u1Bond(bond.In, []int{0, 1}, []int{2, 1}),
		u1Bond(bond.Out, []int{-1, 0, 1, 2}, []int{2, 3, 3, 1}),
	}, unitensor.WithRowRank(2))

	full, err := Svd(ut)
	require.NoError(t, err)
	total := full.Kept()

	prev := 0.0
	for keep := 1; keep <= total+1; keep++ {
		res, err := SvdTruncate(ut, keep, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Kept(), keep)

		w := Weight(res.S, full.S)
		assert.GreaterOrEqual(t, w, prev-1e-12, "keepdim %d", keep)
		prev = w
	}
	assert.InDelta(t, 1.0, prev, 1e-12)
}

func TestSvdInvalidRowRank(t *testing.T) {
	ut := twoSectors(t)
	for _, rr := range []int{0, 2} {
		require.NoError(t, ut.SetRowRank(rr))
		_, err := Svd(ut)
		assert.True(t, errors.Is(err, tenerr.ErrInvalidRowRank), "rowrank %d", rr)
		assert.True(t, errors.Is(err, tenerr.ErrStructuralMismatch))
	}
}

func TestSvdAuxLabelsAvoidCollisions(t *testing.T) {
	ut := twoSectors(t)
	require.NoError(t, ut.SetLabels([]string{AuxLeft, "r"}))

	res, err := Svd(ut)
	require.NoError(t, err)
	assert.Equal(t, []string{AuxLeft, AuxLeft + "_1"}, res.U.Labels())
	assert.Less(t, relativeError(t, ut, reconstruct(t, res)), 1e-10)
}

func TestSvdSequentialMatchesParallel(t *testing.T) {
	ut := randomTensor(t, 11, []bond.Bond{
		u1Bond(bond.In, []int{-1, 0, 1}, []int{2, 2, 2}),
		u1Bond(bond.Out, []int{-1, 0, 1}, []int{2, 2, 2}),
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	seq, err := Svd(ut, WithWorkers(1), WithLogger(logger))
	require.NoError(t, err)
	par, err := Svd(ut, WithWorkers(4))
	require.NoError(t, err)

	assert.Equal(t, singularValues(t, seq.S), singularValues(t, par.S))
	assert.Contains(t, buf.String(), "block svd")
	assert.Contains(t, buf.String(), "sectors=3")
}

func TestSelectKept(t *testing.T) {
	tests := []struct {
		name      string
		vals      [][]float64
		keepdim   int
		cutoff    float64
		keep      []int
		discarded float64
	}{
		{"scenario", [][]float64{{5, 3, 0.1}, {4, 0.05}}, 3, 0.2, []int{2, 1}, 0.1},
		{"tie goes to lower sector", [][]float64{{2, 1}, {2, 1}}, 3, 0, []int{2, 1}, 1},
		{"keepdim above total", [][]float64{{3, 2}, {1}}, 10, 0, []int{2, 1}, 0},
		{"empty sector", [][]float64{{3}, {1}}, 1, 0, []int{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, d := selectKept(tt.vals, tt.keepdim, tt.cutoff)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.discarded, d)

			kept := 0
			for _, k := range keep {
				kept += k
			}
			assert.LessOrEqual(t, kept, tt.keepdim)
		})
	}
}
