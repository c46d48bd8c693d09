package cli

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/bond"
	"github.com/born-ml/symten/internal/symmetry"
	"github.com/born-ml/symten/internal/unitensor"
)

type randomOptions struct {
	qnums []int
	degs  []int
	legs  int
	seed  uint64
	name  string
	out   string
}

// NewRandomCommand creates the random command.
func NewRandomCommand(opts *RootOptions) *cobra.Command {
	ro := &randomOptions{}
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Write a random U(1) tensor",
		Long: `random builds a tensor with --legs incoming legs sharing the charges
--qnums (with degeneracies --degs) and one outgoing leg that carries every
fused charge, so each block is non-empty. Entries are uniform in [-1, 1).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRandom(opts, ro, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntSliceVar(&ro.qnums, "qnums", []int{-1, 0, 1}, "U(1) charges of each incoming leg")
	cmd.Flags().IntSliceVar(&ro.degs, "degs", []int{1, 2, 1}, "degeneracy of each charge")
	cmd.Flags().IntVar(&ro.legs, "legs", 2, "number of incoming legs")
	cmd.Flags().Uint64Var(&ro.seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&ro.name, "name", "random", "tensor name")
	cmd.Flags().StringVarP(&ro.out, "out", "o", "random.symt", "output file")
	return cmd
}

// randomTensor builds the tensor described by ro without filling it.
func randomTensor(ro *randomOptions) (*unitensor.UniTensor, error) {
	if len(ro.qnums) != len(ro.degs) {
		return nil, fmt.Errorf("--qnums and --degs differ in length: %d vs %d", len(ro.qnums), len(ro.degs))
	}
	if ro.legs < 1 {
		return nil, fmt.Errorf("--legs must be at least 1, got %d", ro.legs)
	}
	syms := []symmetry.Symmetry{symmetry.NewU1()}
	qs := make([]symmetry.Qnum, len(ro.qnums))
	for i, q := range ro.qnums {
		qs[i] = symmetry.Qnum{q}
	}
	in, err := bond.NewSymmetric(bond.In, qs, ro.degs, syms)
	if err != nil {
		return nil, err
	}
	bonds := make([]bond.Bond, ro.legs)
	labels := make([]string, ro.legs+1)
	for i := range bonds {
		bonds[i] = in
		labels[i] = "p" + strconv.Itoa(i)
	}
	fused, _, _, err := bond.CombineAll(bonds, true)
	if err != nil {
		return nil, err
	}
	bonds = append(bonds, fused.Redirect())
	labels[ro.legs] = "out"

	return unitensor.New(bonds,
		unitensor.WithLabels(labels...),
		unitensor.WithRowRank(ro.legs),
		unitensor.WithName(ro.name))
}

func runRandom(opts *RootOptions, ro *randomOptions, w io.Writer) error {
	t, err := randomTensor(ro)
	if err != nil {
		return err
	}
	t.FillRandom(rand.New(rand.NewPCG(ro.seed, ro.seed^0x9e3779b97f4a7c15)), -1, 1)
	meta := map[string]string{"seed": strconv.FormatUint(ro.seed, 10)}
	if err := opts.save(ro.out, t, meta); err != nil {
		return err
	}
	return report(w, ro.out, t)
}
