package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage symten.yaml",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return err
		},
	})
	return cmd
}
