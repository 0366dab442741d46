package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/embed"
	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/index"
	"github.com/Aman-CERP/fsindex/internal/output"
	"github.com/Aman-CERP/fsindex/internal/scanner"
	"github.com/Aman-CERP/fsindex/internal/store"
	"github.com/Aman-CERP/fsindex/internal/ui"
)

type indexOptions struct {
	clear   bool
	noEmbed bool
	noTUI   bool
	noColor bool
	noCount bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory tree",
		Long: `Walk a directory tree and record metadata for every file.

Files already in the index are updated in place, so re-running index on the
same tree is safe. Files are also embedded for semantic search when
embeddings are enabled and the file is small enough.

Press q or Ctrl+C to cancel; batches already written stay in the index.`,
		Example: `  # Index the current directory
  fsindex index

  # Rebuild the index from scratch, without embeddings
  fsindex index ~/Documents --clear --no-embed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			return runIndex(ctx, cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Remove every indexed file before indexing")
	cmd.Flags().BoolVar(&opts.noEmbed, "no-embed", false, "Skip embedding generation for this run")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the interactive view, use plain text output")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&opts.noCount, "no-count", false, "Skip the file count used for percentages")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root string, opts indexOptions) error {
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
		// Metadata is still worth having; semantic search waits for a later run.
		out.Warningf("Embeddings unavailable, indexing metadata only: %v", err)
		slog.Warn("index_embeddings_unavailable", fserrors.LogAttrs(err)...)
		embedder = nil
	}
	defer closeEmbedder(embedder)

	s, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	o, err := newOrchestrator(cfg, s, embedder, nil,
		index.WithClear(opts.clear),
		index.WithTotal(!opts.noCount))
	if err != nil {
		return err
	}
	defer o.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := ui.NewRenderer(ui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: opts.noTUI,
		NoColor:    opts.noColor,
		Root:       root,
		OnQuit:     cancel,
	})
	if err := r.Start(runCtx); err != nil {
		return err
	}

	progress := o.Progress()
	stopDrive := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		ui.Drive(r, progress, stopDrive)
	}()

	res, err := o.Run(runCtx, root)
	if res == nil {
		// The run never started, so its progress channel stays open.
		close(stopDrive)
	}
	<-drained
	r.Complete(res, err)
	_ = r.Stop()

	if res == nil {
		return err
	}
	if res.State == index.StateFailed {
		return err
	}
	return nil
}

// newOrchestrator wires an orchestrator for s. embedder may be nil; sc
// defaults to a fresh scanner.
func newOrchestrator(cfg *config.Config, s store.Store, embedder embed.Embedder, sc *scanner.Scanner, opts ...index.Option) (*index.Orchestrator, error) {
	if sc == nil {
		var err error
		if sc, err = scanner.New(); err != nil {
			return nil, err
		}
	}
	return index.NewOrchestrator(index.Dependencies{
		Store:    s,
		Scanner:  sc,
		Embedder: embedder,
		Config:   cfg,
	}, opts...)
}
