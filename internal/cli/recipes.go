package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/costbook/internal/recipe"
	"github.com/roach88/costbook/internal/session"
)

// RecipeInfo is one entry of the list command.
type RecipeInfo struct {
	Name     string `json:"name"`
	Current  bool   `json:"current"`
	Favorite bool   `json:"favorite"`
	Folder   string `json:"folder,omitempty"`
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Folder    string
	Favorites bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all recipes",
		Long: `List every known recipe, including recipes that only exist as a saved
profile. The current recipe is marked with *, favorites with ♥.

Example:
  costbook list
  costbook list --folder Desserts --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return runList(ctx, app, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Folder, "folder", "", "only recipes filed in this folder")
	cmd.Flags().BoolVar(&opts.Favorites, "favorites", false, "only favorite recipes")

	return cmd
}

func runList(ctx context.Context, app *App, opts *ListOptions) error {
	names, err := app.Manager.ListAllRecipeNames(ctx)
	if err != nil {
		return wrapOpError("failed to list recipes", err)
	}

	current := app.Manager.Current()
	meta := app.Manager.AllMeta()
	infos := make([]RecipeInfo, 0, len(names))
	for _, name := range names {
		m := meta[name]
		if opts.Folder != "" && m.Folder != opts.Folder {
			continue
		}
		if opts.Favorites && !m.Favorite {
			continue
		}
		infos = append(infos, RecipeInfo{Name: name, Current: name == current, Favorite: m.Favorite, Folder: m.Folder})
	}

	return app.Formatter.Render(infos, func(w io.Writer) {
		for _, info := range infos {
			marker := " "
			if info.Current {
				marker = "*"
			}
			fav := ""
			if info.Favorite {
				fav = " ♥"
			}
			folder := ""
			if info.Folder != "" {
				folder = fmt.Sprintf(" [%s]", info.Folder)
			}
			fmt.Fprintf(w, "%s %s%s%s\n", marker, info.Name, fav, folder)
		}
	})
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [recipe]",
		Short: "Show a recipe's rows and price",
		Long: `Show the rows, line costs, total and suggested price of a recipe.
Without an argument the current recipe is shown. Showing another recipe does
not switch to it.

Example:
  costbook show
  costbook show Bread --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				sum := app.Manager.Totals()
				if len(args) == 1 && args[0] != sum.Recipe {
					rows := app.Manager.EnsureRows(ctx, args[0])
					sum = session.Summarize(args[0], rows, app.Manager.MarginPct())
				}
				return app.Formatter.Render(sum, func(w io.Writer) {
					writeSummary(w, sum)
				})
			})
		},
	}
}

// writeSummary renders a recipe as an aligned table.
func writeSummary(w io.Writer, sum session.Summary) {
	fmt.Fprintf(w, "Recipe: %s\n", sum.Recipe)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tIngredient\tCost\tAmount\tRecipe amount\tUnit cost\tLine cost")
	for i, line := range sum.Lines {
		r := line.Row
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			i+1, r.Name, formatNumber(r.Cost), formatNumber(r.Amount), formatNumber(r.RecipeAmount),
			formatNumber(line.UnitCost), line.LineCost)
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %.2f\n", sum.Total)
	fmt.Fprintf(w, "Margin: %s%%\n", formatNumber(sum.MarginPct))
	fmt.Fprintf(w, "Price: %d\n", sum.FinalPrice)
}

func formatNumber(f float64) string {
	return fmt.Sprintf("%g", f)
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a recipe and make it current",
		Long: `Create a recipe with one blank row and make it current.

Creating a name that already exists starts it over: its rows, saved profile
and metadata are cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				rows, err := app.Manager.CreateRecipe(ctx, args[0])
				if err != nil {
					return wrapOpError("failed to create recipe", err)
				}
				return app.Formatter.Render(map[string]any{"recipe": args[0], "rows": rows}, func(w io.Writer) {
					fmt.Fprintf(w, "Created %s\n", args[0])
				})
			})
		},
	}
}

// NewSwitchCommand creates the switch command.
func NewSwitchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <name>",
		Short: "Make a recipe current",
		Long: `Make a recipe current. A recipe that only exists as a saved profile is
rebuilt from the profile and the ingredient price cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if _, err := app.Manager.SwitchRecipe(ctx, args[0], true); err != nil {
					return wrapOpError("failed to switch recipe", err)
				}
				sum := app.Manager.Totals()
				return app.Formatter.Render(sum, func(w io.Writer) {
					writeSummary(w, sum)
				})
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a recipe",
		Long: `Delete a recipe's rows, saved profile and metadata. Deleting the current
recipe switches to another one. Deleting Default only clears it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				ok, err := app.Manager.Directory().Exists(ctx, args[0])
				if err != nil {
					return wrapOpError("failed to delete recipe", err)
				}
				if !ok {
					return wrapOpError("failed to delete recipe", fmt.Errorf("%q: %w", args[0], session.ErrRecipeNotFound))
				}
				if err := app.Manager.DeleteRecipe(ctx, args[0]); err != nil {
					return wrapOpError("failed to delete recipe", err)
				}
				current := app.Manager.Current()
				return app.Formatter.Render(map[string]string{"deleted": args[0], "current": current}, func(w io.Writer) {
					if args[0] == recipe.DefaultRecipe {
						fmt.Fprintf(w, "Cleared %s\n", args[0])
					} else {
						fmt.Fprintf(w, "Deleted %s\n", args[0])
					}
					fmt.Fprintf(w, "Current recipe: %s\n", current)
				})
			})
		},
	}
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <from> <to>",
		Short: "Rename a recipe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Manager.RenameRecipe(ctx, args[0], args[1]); err != nil {
					return wrapOpError("failed to rename recipe", err)
				}
				return app.Formatter.Render(map[string]string{"from": args[0], "to": args[1]}, func(w io.Writer) {
					fmt.Fprintf(w, "Renamed %s to %s\n", args[0], args[1])
				})
			})
		},
	}
}
