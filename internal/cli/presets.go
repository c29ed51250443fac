package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewPresetsCommand creates the presets command group.
func NewPresetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List, save and delete filter presets",
	}
	cmd.AddCommand(newPresetsListCommand(rootOpts))
	cmd.AddCommand(newPresetsSaveCommand(rootOpts))
	cmd.AddCommand(newPresetsDeleteCommand(rootOpts))
	return cmd
}

func newPresetsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <table>",
		Short: "List the owner's presets for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(opts); err != nil {
				return err
			}
			a, ctx, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Engine(args[0]); err != nil {
				return err
			}

			list, err := a.Presets.List(ctx, opts.Owner, args[0])
			if err != nil {
				return err
			}
			if opts.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			for _, p := range list {
				marker := ""
				if p.IsDefault {
					marker = " (default)"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", p.ID, p.Name, marker); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newPresetsSaveCommand(opts *RootOptions) *cobra.Command {
	var filters string
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "save <table> <name>",
		Short: "Save filter values as a named preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(opts); err != nil {
				return err
			}
			values := map[string]any{}
			if filters != "" {
				if err := json.Unmarshal([]byte(filters), &values); err != nil {
					return fmt.Errorf("invalid --filters: %w", err)
				}
			}
			a, ctx, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			engine, err := a.Engine(args[0])
			if err != nil {
				return err
			}

			state := engine.InitialState(ctx).WithFilters(values)
			preset, err := engine.SavePreset(ctx, args[1], state, makeDefault)
			if err != nil {
				return err
			}
			if opts.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), preset)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved preset %s (%s)\n", preset.Name, preset.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&filters, "filters", "", "filter values as a JSON object")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "apply the preset on first render")
	return cmd
}

func newPresetsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOwner(opts); err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid preset id: %w", err)
			}
			a, ctx, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			engine, err := a.Engine(args[0])
			if err != nil {
				return err
			}

			if _, err := engine.DeletePreset(ctx, id, engine.InitialState(ctx)); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted preset %s\n", id)
			return err
		},
	}
}

func requireOwner(opts *RootOptions) error {
	if opts.Owner == "" {
		return fmt.Errorf("--owner is required for preset commands")
	}
	return nil
}
