package cmd

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/embed"
	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/output"
	"github.com/Aman-CERP/fsindex/internal/search"
	"github.com/Aman-CERP/fsindex/internal/store"
)

type searchOptions struct {
	mode       string
	limit      int
	category   string
	extension  string
	pathPrefix string
	minSize    string
	maxSize    string
	noNL       bool
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search indexed files by name and path.

Unless --no-nl is given, time and size phrases in the query become filters:
  "last 3 days", "created in the past 2 weeks", "accessed last 1 month"
  "larger than 10 mb", "smaller than 1.5kb", "2gb or more", "<= 5kb"

Flags add further filters on top of those found in the query.`,
		Example: `  # Fuzzy search (default mode)
  fsindex search "quarterly report"

  # Exact substring, PDFs only
  fsindex search invoice --mode exact --ext pdf

  # Semantic search with a parsed time filter
  fsindex search "holiday photos modified in the last 2 weeks" --mode semantic`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Search mode: exact, fuzzy, semantic (default from config)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Only files of this category")
	cmd.Flags().StringVarP(&opts.extension, "ext", "e", "", "Only files with this extension")
	cmd.Flags().StringVar(&opts.pathPrefix, "path", "", "Only files below this directory")
	cmd.Flags().StringVar(&opts.minSize, "min-size", "", "Only files at least this large (e.g. 10MB, 1.5KiB)")
	cmd.Flags().StringVar(&opts.maxSize, "max-size", "", "Only files at most this large")
	cmd.Flags().BoolVar(&opts.noNL, "no-nl", false, "Do not parse time and size phrases in the query")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}

	req, err := buildRequest(cfg, query, opts, time.Now())
	if err != nil {
		return err
	}

	s, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	// Only semantic queries need a model.
	var embedder embed.Embedder
	if req.Mode == search.ModeSemantic {
		embedder, err = newEmbedder(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeEmbedder(embedder)
	}

	results, err := search.New(s, embedder).SearchRequest(ctx, req)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return output.JSON(cmd.OutOrStdout(), output.ResultsToJSON(results))
	}
	output.New(cmd.OutOrStdout()).Results(results, req.Mode)
	return nil
}

// buildRequest turns the query and flags into a search request. Flag
// filters override phrases parsed from the query.
func buildRequest(cfg *config.Config, query string, opts searchOptions, now time.Time) (search.Request, error) {
	modeName := opts.mode
	if modeName == "" {
		modeName = cfg.Search.DefaultMode
	}
	mode, err := search.ParseMode(modeName)
	if err != nil {
		return search.Request{}, err
	}

	req := search.Request{Query: query}
	if cfg.Search.NaturalLanguage && !opts.noNL {
		req = search.ParseQuery(query, now)
	}
	req.Mode = mode
	req.Limit = opts.limit
	if req.Limit <= 0 {
		req.Limit = cfg.Search.DefaultLimit
	}

	f := &req.Filter
	if opts.category != "" {
		c := store.Category(strings.ToLower(opts.category))
		if !slices.Contains(store.Categories, c) {
			return search.Request{}, fserrors.New(fserrors.ErrCodeInvalidQuery, "unknown category", nil).
				WithDetail("category", opts.category)
		}
		f.Category = c
	}
	if opts.extension != "" {
		f.Extension = opts.extension
	}
	if opts.pathPrefix != "" {
		abs, err := filepath.Abs(opts.pathPrefix)
		if err != nil {
			return search.Request{}, fserrors.New(fserrors.ErrCodeInvalidPath, "invalid path filter", err).
				WithDetail("path", opts.pathPrefix)
		}
		f.PathPrefix = abs
	}
	if opts.minSize != "" {
		n, err := parseSize(opts.minSize)
		if err != nil {
			return search.Request{}, err
		}
		f.MinSize = n
	}
	if opts.maxSize != "" {
		n, err := parseSize(opts.maxSize)
		if err != nil {
			return search.Request{}, err
		}
		f.MaxSize, f.SizeCapped = n, true
	}
	return req, nil
}

func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fserrors.New(fserrors.ErrCodeInvalidQuery, "invalid size", err).WithDetail("size", s)
	}
	return int64(n), nil
}
