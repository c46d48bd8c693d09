package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/unitensor"
)

// NewContractCommand creates the contract command.
func NewContractCommand(opts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "contract <a> <b>",
		Short: "Contract two tensors over their shared labels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContract(opts, args[0], args[1], out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "contracted.symt", "output file")
	return cmd
}

func runContract(opts *RootOptions, pathA, pathB, out string, w io.Writer) error {
	a, _, err := opts.load(pathA)
	if err != nil {
		return err
	}
	b, _, err := opts.load(pathB)
	if err != nil {
		return err
	}
	c, err := unitensor.Contract(a, b)
	if err != nil {
		return err
	}
	if err := opts.save(out, c, map[string]string{"a": pathA, "b": pathB}); err != nil {
		return err
	}
	return report(w, out, c)
}
