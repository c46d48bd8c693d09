package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/unitensor"
)

type combineOptions struct {
	labels []string
	group  bool
	out    string
}

// NewCombineCommand creates the combine command.
func NewCombineCommand(opts *RootOptions) *cobra.Command {
	co := &combineOptions{}
	cmd := &cobra.Command{
		Use:   "combine <file>",
		Short: "Fuse several legs into one",
		Long: `combine fuses the legs named by --labels into a single leg that takes
the position and label of the first. With --group, slots with equal
quantum numbers are merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCombine(opts, co, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVarP(&co.labels, "labels", "l", nil, "labels of the legs to fuse, in order")
	cmd.Flags().BoolVar(&co.group, "group", true, "merge slots with equal quantum numbers")
	cmd.Flags().StringVarP(&co.out, "out", "o", "", "output file (default: <input>.combined.symt)")
	_ = cmd.MarkFlagRequired("labels")
	return cmd
}

func runCombine(opts *RootOptions, co *combineOptions, path string, w io.Writer) error {
	t, h, err := opts.load(path)
	if err != nil {
		return err
	}
	out, err := t.CombineBonds(co.labels, co.group)
	if err != nil {
		return err
	}
	dst := co.out
	if dst == "" {
		dst = strings.TrimSuffix(path, ".symt") + ".combined.symt"
	}
	if err := opts.save(dst, out, h.Metadata); err != nil {
		return err
	}
	return report(w, dst, out)
}

// report prints a one-line summary of a written tensor.
func report(w io.Writer, path string, t *unitensor.UniTensor) error {
	_, err := fmt.Fprintf(w, "wrote %s: %s rank=%d shape=%v blocks=%d\n",
		path, t.Kind(), t.Rank(), t.Shape(), t.NumBlocks())
	return err
}
