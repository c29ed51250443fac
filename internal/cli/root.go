package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/rpattn/tablekit/internal/app"
	"github.com/rpattn/tablekit/internal/auth"
	"github.com/rpattn/tablekit/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Owner      string
	Output     string // "json" | "text"
	Verbose    bool
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"text", "json"}

// NewRootCommand creates the root command for the tablectl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tablectl",
		Short: "Render, export and manage presets of configured tables",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidOutput(opts.Output) {
				return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", ".", "directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.Owner, "owner", "", "preset owner id")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewPresetsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func isValidOutput(output string) bool {
	for _, o := range ValidOutputs {
		if o == output {
			return true
		}
	}
	return false
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	if !o.Verbose {
		log.SetOutput(io.Discard)
	}
	return config.Load(o.ConfigPath)
}

// openApp loads the config and assembles the tables. Logs are discarded
// unless --verbose is set so that JSON output stays parseable.
func (o *RootOptions) openApp(cmd *cobra.Command) (*app.App, context.Context, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(io.Discard, "", 0)
	if o.Verbose {
		logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if o.Owner != "" {
		ctx = auth.ContextWithOwnerID(ctx, o.Owner)
	}
	return a, ctx, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
