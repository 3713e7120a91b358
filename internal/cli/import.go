package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/app"
	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/importer"
	"github.com/MrSnakeDoc/smartmarks/internal/scheduler"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/utils"
)

type importOptions struct {
	File  string
	User  string
	Watch bool
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a Homepage bookmarks.yaml for a user",
		Long: `Import bookmarks from a Homepage bookmarks.yaml file into the bookmarks
of the user signing in as --user.

New URLs are inserted, known URLs with another title are renamed and the
rest is left untouched. With --watch the file is re-imported on every
change until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to bookmarks.yaml")
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "sign-in handle owning the bookmarks")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep running and re-import on file changes")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImport(ctx context.Context, opts *importOptions, out io.Writer) error {
	owner, err := session.IdentityFor(opts.User)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}

	cfg := config.Load()
	log := app.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	backend, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer utils.CloseLogged(backend, "store", log)

	imp := importer.New(backend, log)

	if !opts.Watch {
		res, err := imp.ImportFile(ctx, opts.File, owner.ID)
		printResult(out, opts.File, res)
		return err
	}

	watcher := scheduler.NewImportWatcher(imp, opts.File, owner.ID, log, 0, true, nil)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "watching %s, press Ctrl+C to stop\n", opts.File)
	<-ctx.Done()
	watcher.Stop()

	s := watcher.Status()
	printResult(out, s.File, s.Result)
	return nil
}

func printResult(out io.Writer, file string, res importer.Result) {
	fmt.Fprintf(out, "%s: %d inserted, %d updated, %d unchanged, %d failed\n",
		file, res.Inserted, res.Updated, res.Skipped, res.Failed)
}
