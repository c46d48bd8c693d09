package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/linalg"
	"github.com/born-ml/symten/internal/unitensor"
)

type svdOptions struct {
	keepdim int
	cutoff  float64
	workers int
	rowrank int
	out     string
}

// NewSvdCommand creates the svd command.
func NewSvdCommand(opts *RootOptions) *cobra.Command {
	so := &svdOptions{}
	cmd := &cobra.Command{
		Use:   "svd <file>",
		Short: "Factorize a tensor into U, S and V with optional truncation",
		Long: `svd splits the tensor at its row rank and writes three files:
<out>.U.symt, <out>.S.symt and <out>.V.symt.

--keepdim caps the number of singular values kept across every sector and
--err drops values below the cutoff. Without either flag the values from
the config file apply; zero keeps everything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config()
			if !cmd.Flags().Changed("keepdim") {
				so.keepdim = cfg.SVD.KeepDim
			}
			if !cmd.Flags().Changed("err") {
				so.cutoff = cfg.SVD.Err
			}
			if !cmd.Flags().Changed("workers") {
				so.workers = cfg.SVD.Workers
			}
			return runSvd(opts, so, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&so.keepdim, "keepdim", 0, "maximum number of singular values kept (0 = all)")
	cmd.Flags().Float64Var(&so.cutoff, "err", 0, "drop singular values below this cutoff")
	cmd.Flags().IntVar(&so.workers, "workers", 0, "concurrent sector factorizations (0 = one per CPU)")
	cmd.Flags().IntVar(&so.rowrank, "rowrank", 0, "override the stored row rank")
	cmd.Flags().StringVarP(&so.out, "out", "o", "", "output prefix (default: input path without .symt)")
	return cmd
}

func runSvd(opts *RootOptions, so *svdOptions, path string, w io.Writer) error {
	if so.keepdim < 0 || so.cutoff < 0 || so.workers < 0 {
		return fmt.Errorf("--keepdim, --err and --workers must not be negative")
	}
	t, _, err := opts.load(path)
	if err != nil {
		return err
	}
	if so.rowrank != 0 {
		if err := t.SetRowRank(so.rowrank); err != nil {
			return err
		}
	}

	lopts := []linalg.Option{linalg.WithWorkers(so.workers), linalg.WithLogger(opts.logger)}
	var res *linalg.Result
	if so.keepdim == 0 && so.cutoff == 0 {
		res, err = linalg.Svd(t, lopts...)
	} else {
		keep := so.keepdim
		if keep == 0 {
			keep = math.MaxInt
		}
		res, err = linalg.SvdTruncate(t, keep, so.cutoff, lopts...)
	}
	if err != nil {
		return err
	}

	prefix := so.out
	if prefix == "" {
		prefix = strings.TrimSuffix(path, ".symt")
	}
	meta := map[string]string{
		"source":    path,
		"kept":      strconv.Itoa(res.Kept()),
		"discarded": strconv.FormatFloat(res.Discarded, 'g', -1, 64),
	}
	parts := []struct {
		suffix string
		t      *unitensor.UniTensor
	}{{"U", res.U}, {"S", res.S}, {"V", res.V}}
	for _, p := range parts {
		if err := opts.save(prefix+"."+p.suffix+".symt", p.t, meta); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "kept %d singular values, discarded %.6g, weight %.6g\nwrote %s.{U,S,V}.symt\n",
		res.Kept(), res.Discarded, linalg.Weight(res.S, t), prefix)
	return err
}
