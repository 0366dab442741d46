package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Aman-CERP/fsindex/internal/index"
)

// PlainRenderer writes one line per progress message.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer returns a renderer writing to cfg.Output.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

func (r *PlainRenderer) Start(context.Context) error { return nil }

// Update prints "[SCAN] 120/500 (24%) /path". The done message is left to
// Complete.
func (r *PlainRenderer) Update(p index.Progress) {
	if p.Stage == index.StageDone {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if pct := p.Percent(); pct >= 0 {
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d (%.0f%%) %s\n", stageLabel(p.Stage), p.Processed, p.Total, pct, p.CurrentPath)
		return
	}
	_, _ = fmt.Fprintf(r.out, "[%s] %d %s\n", stageLabel(p.Stage), p.Processed, p.CurrentPath)
}

// Complete prints the run summary or the failure.
func (r *PlainRenderer) Complete(res *index.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res == nil {
		_, _ = fmt.Fprintf(r.out, "Indexing failed: %v\n", err)
		return
	}

	_, _ = fmt.Fprintf(r.out, "%s: %d indexed, %d embedded, %d skipped, %d errors in %s\n",
		outcome(res.State), res.Indexed, res.Embedded, res.Skipped, res.Errors, res.Duration.Round(100*time.Millisecond))
	if res.Deleted > 0 {
		_, _ = fmt.Fprintf(r.out, "Removed %d vanished entries\n", res.Deleted)
	}
	if err != nil && res.State == index.StateFailed {
		_, _ = fmt.Fprintf(r.out, "Error: %v\n", err)
	}
}

func (r *PlainRenderer) Stop() error { return nil }

func stageLabel(s index.Stage) string {
	switch s {
	case index.StageScanning:
		return "SCAN"
	case index.StageWriting:
		return "WRITE"
	case index.StageDone:
		return "DONE"
	default:
		return "????"
	}
}

func outcome(s index.State) string {
	switch s {
	case index.StateCompleted:
		return "Complete"
	case index.StateCancelled:
		return "Cancelled"
	case index.StateFailed:
		return "Failed"
	default:
		return s.String()
	}
}

var _ Renderer = (*PlainRenderer)(nil)
