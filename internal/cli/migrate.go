package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/tablekit/internal/db"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the preset table schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return runMigrate(rootOpts, action, cmd)
		},
	}
	return cmd
}

func runMigrate(opts *RootOptions, action string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch action {
	case "up":
		if err := db.RunMigrations(cfg.Database); err != nil {
			return err
		}
	case "down":
		if err := db.RollbackMigrations(cfg.Database); err != nil {
			return err
		}
	}

	version, dirty, ok, err := db.MigrationVersion(cfg.Database)
	if err != nil {
		return err
	}
	if opts.Output == "json" {
		return writeJSON(out, map[string]any{"version": version, "dirty": dirty, "applied": ok})
	}
	if !ok {
		_, err = fmt.Fprintln(out, "no migrations applied")
		return err
	}
	_, err = fmt.Fprintf(out, "schema version %d (dirty=%t)\n", version, dirty)
	return err
}
