// Package cli implements the symten command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/symten/internal/config"
	"github.com/born-ml/symten/internal/serialization"
	"github.com/born-ml/symten/internal/unitensor"
)

// RootOptions holds the persistent flags and the state they resolve to.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "symten",
		Short: "Inspect, factorize and reshape block-sparse symmetric tensors",
		Long: `symten works on tensors stored in .symt files.

Tensors carry labelled legs with U(1) and Z(n) quantum numbers. Only the
blocks allowed by charge conservation are stored, and the SVD truncates
across all symmetry sectors at once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to symten.yaml")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format: text or json")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "shorthand for --log-level=debug")

	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewSvdCommand(opts))
	cmd.AddCommand(NewCombineCommand(opts))
	cmd.AddCommand(NewContractCommand(opts))
	cmd.AddCommand(NewRandomCommand(opts))
	cmd.AddCommand(NewConfigCommand())

	return cmd
}

// resolve loads the config file and applies flag overrides.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	o.cfg = cfg
	o.logger = cfg.Logger(cmd.ErrOrStderr())
	return nil
}

// Config returns the resolved configuration.
func (o *RootOptions) Config() config.Config { return o.cfg }

func (o *RootOptions) readerOptions() serialization.ReaderOptions {
	ro := serialization.DefaultReaderOptions()
	ro.SkipChecksumValidation = !o.cfg.IO.VerifyChecksum
	return ro
}

func (o *RootOptions) load(path string) (*unitensor.UniTensor, *serialization.Header, error) {
	t, h, err := serialization.LoadFile(path, o.readerOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	o.logger.Debug("loaded tensor", "path", path, "kind", t.Kind(), "blocks", t.NumBlocks())
	return t, h, nil
}

func (o *RootOptions) save(path string, t *unitensor.UniTensor, meta map[string]string) error {
	if err := serialization.SaveFile(path, t, meta); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	o.logger.Debug("saved tensor", "path", path, "kind", t.Kind(), "blocks", t.NumBlocks())
	return nil
}
