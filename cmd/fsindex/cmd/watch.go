package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/index"
	"github.com/Aman-CERP/fsindex/internal/logging"
	"github.com/Aman-CERP/fsindex/internal/output"
	"github.com/Aman-CERP/fsindex/internal/scanner"
	"github.com/Aman-CERP/fsindex/internal/ui"
	"github.com/Aman-CERP/fsindex/internal/watcher"
)

type watchOptions struct {
	initial  bool
	polling  bool
	prune    bool
	debounce time.Duration
	noEmbed  bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Keep the index up to date as files change",
		Long: `Watch a directory tree and re-index changed paths until interrupted.

Events are coalesced over the debounce window: a file created and deleted
within one window is never indexed. Editing a .gitignore re-checks every
file below it. When native file notifications are unavailable the tree is
polled instead.

Records of deleted files are kept unless --prune is given; run
'fsindex prune' to drop them later.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			return runWatch(ctx, cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.initial, "initial", true, "Index the whole tree before watching")
	cmd.Flags().BoolVar(&opts.polling, "poll", false, "Poll the tree instead of using file notifications")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Remove records of deleted or newly ignored files")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Event coalescing window (default from config)")
	cmd.Flags().BoolVar(&opts.noEmbed, "no-embed", false, "Skip embedding generation")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, root string, opts watchOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if opts.noEmbed {
		cfg.Embeddings.Enabled = false
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		if !errors.Is(err, fserrors.ErrEmbeddingUnavailable) {
			return err
		}
		out.Warningf("Embeddings unavailable, indexing metadata only: %v", err)
		embedder = nil
	}
	defer closeEmbedder(embedder)

	s, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sc, err := scanner.New()
	if err != nil {
		return err
	}
	o, err := newOrchestrator(cfg, s, embedder, sc, index.WithTotal(false), index.WithPruneVanished(opts.prune))
	if err != nil {
		return err
	}
	defer o.Close()

	if opts.initial {
		r := ui.NewRenderer(ui.Config{Output: cmd.OutOrStdout(), ForcePlain: true})
		res, err := o.Run(ctx, root)
		r.Complete(res, err)
		if err != nil && (res == nil || res.State == index.StateFailed) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	wopts := watcher.DefaultOptions()
	wopts.Debounce = cfg.Watch.Debounce
	if opts.debounce > 0 {
		wopts.Debounce = opts.debounce
	}
	wopts.Polling = opts.polling
	wopts.IgnorePatterns = cfg.Indexing.SkipPatterns
	// Our own database and logs must not trigger re-indexing.
	wopts.IgnorePaths = []string{
		cfg.Paths.DataDir,
		filepath.Dir(cfg.Paths.DBPath),
		logging.DefaultLogDir(),
	}

	w, err := watcher.New(root, wopts)
	if err != nil {
		return err
	}
	svc, err := watcher.NewService(watcher.ServiceDeps{
		Watcher:             w,
		Indexer:             o,
		Store:               s,
		InvalidateGitignore: sc.InvalidateGitignoreCache,
		OnResult: func(res *index.Result) {
			line := fmt.Sprintf("%s  %d updated, %d removed, %d errors",
				time.Now().Format("15:04:05"), res.Indexed, res.Deleted, res.Errors)
			if res.Vanished > 0 {
				line += fmt.Sprintf(", %d gone (kept until 'fsindex prune')", res.Vanished)
			}
			out.Status("↻", line)
		},
	})
	if err != nil {
		return err
	}

	out.Statusf("👀", "Watching %s (%s, debounce %s). Press Ctrl+C to stop.", root, w.Mode(), wopts.Debounce)
	slog.Info("watch_command_started", slog.String("root", root), slog.String("mode", w.Mode()))

	if err := svc.Run(ctx); err != nil {
		return err
	}
	out.Newline()
	if n := w.Dropped(); n > 0 {
		out.Warningf("%d event batches were dropped; run 'fsindex index %s' to catch up", n, root)
	}
	out.Status("", "Stopped.")
	return nil
}
