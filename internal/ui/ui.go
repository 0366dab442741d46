// Package ui renders indexing progress in the terminal: a bubbletea view for
// interactive terminals and line-oriented text for pipes, logs and CI.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/fsindex/internal/index"
)

// Renderer displays one indexing run.
type Renderer interface {
	// Start prepares the display.
	Start(ctx context.Context) error
	// Update shows a progress message.
	Update(p index.Progress)
	// Complete shows the outcome. res may be nil when the run never started.
	Complete(res *index.Result, err error)
	// Stop releases the terminal.
	Stop() error
}

// Config configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Root is shown in the header.
	Root string
	// OnQuit is called when the user quits the TUI, typically to cancel
	// the run.
	OnQuit func()
}

// NewRenderer returns the TUI for interactive terminals and the plain
// renderer otherwise.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Drive feeds every message from ch to r until ch is closed or stop is
// closed. Closing stop covers runs that never started, whose channel is
// never closed.
func Drive(r Renderer, ch <-chan index.Progress, stop <-chan struct{}) {
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				return
			}
			r.Update(p)
		case <-stop:
			return
		}
	}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether a common CI variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
