package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/tablekit/internal/export"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &StateFlags{}
	var format string
	var stdout bool
	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export every row matching the view state to CSV or XLSX",
		Long: `Export walks all pages of the filtered, searched and sorted table.
The file is written to the configured export directory unless --stdout is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, flags, args[0], format, stdout, cmd)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "file format (csv|xlsx)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write the file to stdout")
	return cmd
}

func runExport(opts *RootOptions, flags *StateFlags, name, rawFormat string, stdout bool, cmd *cobra.Command) error {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	a, ctx, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.Engine(name)
	if err != nil {
		return err
	}
	state, err := flags.apply(engine.InitialState(ctx))
	if err != nil {
		return err
	}
	state = engine.NormalizeState(state)

	if stdout {
		_, err := a.Exports.Write(ctx, cmd.OutOrStdout(), engine.Definition(), state, format)
		return err
	}
	result, err := a.Exports.Export(ctx, engine.Definition(), state, format)
	if err != nil {
		return err
	}
	if opts.Output == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", result.Rows, result.Path)
	return err
}
