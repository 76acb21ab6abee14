package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/costbook/internal/recipe"
)

// NewMarginCommand creates the margin command.
func NewMarginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "margin [pct]",
		Short: "Show or set the margin percentage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if len(args) == 1 {
					if err := app.Manager.SetMargin(recipe.Coerce(args[0])); err != nil {
						return WrapExitError(ExitCommandError, "failed to set margin", err)
					}
				}
				pct := app.Manager.MarginPct()
				return app.Formatter.Render(map[string]float64{"marginPct": pct}, func(w io.Writer) {
					fmt.Fprintf(w, "Margin: %s%%\n", formatNumber(pct))
				})
			})
		},
	}
}

// NewFavoriteCommand creates the favorite command.
func NewFavoriteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <recipe> [true|false]",
		Short: "Mark or unmark a recipe as favorite",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			favorite := true
			if len(args) == 2 {
				v, err := strconv.ParseBool(args[1])
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid value %q", args[1]), err)
				}
				favorite = v
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Manager.SetFavorite(ctx, args[0], favorite); err != nil {
					return wrapOpError("failed to update favorite", err)
				}
				meta := app.Manager.Meta(args[0])
				return app.Formatter.Render(meta, func(w io.Writer) {
					if meta.Favorite {
						fmt.Fprintf(w, "%s is a favorite\n", args[0])
					} else {
						fmt.Fprintf(w, "%s is not a favorite\n", args[0])
					}
				})
			})
		},
	}
}

// NewFolderCommand creates the folder command.
func NewFolderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folder <recipe> [folder]",
		Short: "File a recipe in a folder",
		Long:  `File a recipe in a folder. Without a folder the recipe is unfiled.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 2 {
				folder = args[1]
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Manager.SetFolder(ctx, args[0], folder); err != nil {
					return wrapOpError("failed to update folder", err)
				}
				meta := app.Manager.Meta(args[0])
				return app.Formatter.Render(meta, func(w io.Writer) {
					if meta.Folder == "" {
						fmt.Fprintf(w, "%s is unfiled\n", args[0])
					} else {
						fmt.Fprintf(w, "%s filed in %s\n", args[0], meta.Folder)
					}
				})
			})
		},
	}
}

// FoldersOptions holds flags for the folders command.
type FoldersOptions struct {
	*RootOptions
	Add    string
	Remove string
}

// NewFoldersCommand creates the folders command.
func NewFoldersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FoldersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List, add or remove folders",
		Long: `List folders. --add creates an empty folder; --remove deletes a folder and
unfiles the recipes in it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if opts.Add != "" {
					if err := app.Manager.AddFolder(opts.Add); err != nil {
						return wrapOpError("failed to add folder", err)
					}
				}
				if opts.Remove != "" {
					if err := app.Manager.RemoveFolder(opts.Remove); err != nil {
						return wrapOpError("failed to remove folder", err)
					}
				}
				folders := app.Manager.Folders()
				return app.Formatter.Render(folders, func(w io.Writer) {
					for _, f := range folders {
						fmt.Fprintln(w, f)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Add, "add", "", "folder to add")
	cmd.Flags().StringVar(&opts.Remove, "remove", "", "folder to remove")

	return cmd
}
