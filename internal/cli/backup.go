package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/costbook/internal/backup"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a backup of every recipe",
		Long: `Write a backup document holding every recipe, its metadata, the folder
list, the margin and the ingredient price cache. Without a file the document
is written to standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if len(args) == 0 {
					if _, err := app.Codec.ExportTo(ctx, cmd.OutOrStdout()); err != nil {
						return wrapOpError("failed to export", err)
					}
					return nil
				}
				return exportFile(ctx, app, args[0])
			})
		},
	}
}

func exportFile(ctx context.Context, app *App, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create backup file", err)
	}
	doc, err := app.Codec.ExportTo(ctx, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return wrapOpError("failed to export", err)
	}

	return app.Formatter.Render(map[string]any{"file": path, "recipes": len(doc.Recipes), "exportId": doc.ExportID}, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %d recipes to %s\n", len(doc.Recipes), path)
	})
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Mode string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore recipes from a backup",
		Long: `Restore recipes from a backup document. Every recipe in the document
replaces the local recipe of the same name.

Modes:
  merge      keep local recipes that are not in the document (default)
  overwrite  delete local recipes that are not in the document

A document from another program or an unknown version is rejected and
nothing is changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := backup.ParseMode(opts.Mode)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --mode", err)
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				res, err := app.Codec.ImportFile(ctx, args[0], mode)
				if err != nil {
					return wrapOpError("failed to import", err)
				}
				return app.Formatter.Render(res, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d recipes (%s)\n", len(res.Imported), res.Mode)
					if len(res.Pruned) > 0 {
						fmt.Fprintf(w, "Removed %d local recipes\n", len(res.Pruned))
					}
					fmt.Fprintf(w, "Current recipe: %s\n", res.Current)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(backup.ModeMerge), "import mode (merge|overwrite)")

	return cmd
}
