package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/render"
	"github.com/rpattn/tablekit/internal/table"
)

// StateFlags are the view state overrides shared by render and export.
type StateFlags struct {
	State     string
	Search    string
	Sort      string
	Direction string
	Page      int
	PerPage   int
	Filters   []string
}

func (f *StateFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.State, "state", "", "full view state as JSON")
	cmd.Flags().StringVar(&f.Search, "search", "", "search text")
	cmd.Flags().StringVar(&f.Sort, "sort", "", "sort field")
	cmd.Flags().StringVar(&f.Direction, "direction", "asc", "sort direction (asc|desc)")
	cmd.Flags().IntVar(&f.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&f.PerPage, "per-page", 0, "rows per page")
	cmd.Flags().StringArrayVar(&f.Filters, "filter", nil, "filter value as name=value (repeatable)")
}

// apply layers the flags over state in the order a user would click:
// full state first, then filters, search, sort and paging.
func (f *StateFlags) apply(state domain.ViewState) (domain.ViewState, error) {
	if strings.TrimSpace(f.State) != "" {
		if err := json.Unmarshal([]byte(f.State), &state); err != nil {
			return state, fmt.Errorf("invalid --state: %w", err)
		}
	}
	for _, raw := range f.Filters {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return state, fmt.Errorf("invalid --filter %q: want name=value", raw)
		}
		state = state.WithFilter(name, value)
	}
	if f.Search != "" {
		state = state.WithSearch(f.Search)
	}
	if f.Sort != "" {
		state = state.WithSort(f.Sort, domain.SortDirection(strings.ToLower(f.Direction)))
	}
	if f.PerPage > 0 {
		state = state.WithPerPage(f.PerPage)
	}
	if f.Page > 0 {
		state = state.WithPage(f.Page)
	}
	return state, nil
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &StateFlags{}
	cmd := &cobra.Command{
		Use:   "render <table>",
		Short: "Render one page of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, flags, args[0], cmd)
		},
	}
	flags.bind(cmd)
	return cmd
}

func runRender(opts *RootOptions, flags *StateFlags, name string, cmd *cobra.Command) error {
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
	view, err := engine.Render(ctx, state)
	if err != nil {
		return err
	}

	if opts.Output == "json" {
		out, err := render.View(render.JSONRenderer{Indent: "  "}, view)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	return writeViewText(cmd.OutOrStdout(), view)
}

func writeViewText(w io.Writer, view table.View) error {
	headers := make([]string, len(view.Columns))
	for i, c := range view.Columns {
		headers[i] = c.Label
	}
	if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range view.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			if c.Display != nil {
				cells[i] = fmt.Sprint(c.Display)
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	p := view.Pagination
	_, err := fmt.Fprintf(w, "page %d of %d (%d rows)\n", p.CurrentPage, p.LastPage, p.Total)
	if err != nil {
		return err
	}
	for _, warning := range view.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}
