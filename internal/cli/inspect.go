package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/serialization"
	"github.com/born-ml/symten/internal/unitensor"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Describe the legs and blocks of a stored tensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd.OutOrStdout())
		},
	}
}

func runInspect(opts *RootOptions, path string, w io.Writer) error {
	t, h, err := opts.load(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, describeFile(filepath.Base(path), h, t))
	return err
}

// describeFile prints the file header followed by the tensor diagram.
// CreatedAt is left out so the output is reproducible.
func describeFile(name string, h *serialization.Header, t *unitensor.UniTensor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "file: %s\n", name)
	fmt.Fprintf(&sb, "format: v%d\n", h.FormatVersion)
	if len(h.Metadata) > 0 {
		sb.WriteString("metadata:\n")
		keys := make([]string, 0, len(h.Metadata))
		for k := range h.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s=%s\n", k, h.Metadata[k])
		}
	}
	sb.WriteString(t.Describe())
	return sb.String()
}
