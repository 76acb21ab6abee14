package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/costbook/internal/session"
)

// parseRowNumber turns a 1-based row number as printed by show into an index.
func parseRowNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid row number %q", s), err)
	}
	return n - 1, nil
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <row> <field> <value>",
		Short: "Edit one field of a row in the current recipe",
		Long: `Edit one field of a row in the current recipe. Rows are numbered from 1
as printed by show. Fields: name, cost, amount, recipeAmount (alias qty).

Numeric values that cannot be read become 0.

Example:
  costbook edit 1 name Flour
  costbook edit 1 cost 12,90`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseRowNumber(args[0])
			if err != nil {
				return err
			}
			field, err := session.ParseField(args[1])
			if err != nil {
				return wrapOpError("failed to edit row", err)
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				sum, err := app.Manager.RecordEdit(index, field, args[2])
				if err != nil {
					return wrapOpError("failed to edit row", err)
				}
				return app.Formatter.Render(sum, func(w io.Writer) {
					writeSummary(w, sum)
				})
			})
		},
	}
}

// NewAddRowCommand creates the add-row command.
func NewAddRowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-row",
		Short: "Append a blank row to the current recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if _, err := app.Manager.AddRow(); err != nil {
					return wrapOpError("failed to add row", err)
				}
				sum := app.Manager.Totals()
				return app.Formatter.Render(sum, func(w io.Writer) {
					writeSummary(w, sum)
				})
			})
		},
	}
}

// NewDeleteRowCommand creates the delete-row command.
func NewDeleteRowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-row <row>",
		Short: "Remove a row from the current recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseRowNumber(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if _, err := app.Manager.DeleteRow(index); err != nil {
					return wrapOpError("failed to delete row", err)
				}
				sum := app.Manager.Totals()
				return app.Formatter.Render(sum, func(w io.Writer) {
					writeSummary(w, sum)
				})
			})
		},
	}
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the current recipe's profile",
		Long: `Save the current recipe: write its rows, store its ingredient profile and
remember each ingredient's price for other recipes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Manager.Save(ctx); err != nil {
					return wrapOpError("failed to save recipe", err)
				}
				name := app.Manager.Current()
				if !app.Profiles.Enabled() {
					app.Log.Warn("profile store unavailable, saved rows only", "recipe", name)
				}
				return app.Formatter.Render(map[string]string{"saved": name}, func(w io.Writer) {
					fmt.Fprintf(w, "Saved %s\n", name)
				})
			})
		},
	}
}
