package watcher

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Debouncer coalesces events per path and emits them as one batch once no
// new event has arrived for the configured window.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]pending
	timer   *time.Timer
	out     chan []Event
	closed  bool
}

type pending struct {
	first Operation
	event Event
}

// NewDebouncer returns a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]pending),
		out:     make(chan []Event, 16),
	}
}

// Add records ev and restarts the quiet window.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if prev, ok := d.pending[ev.Path]; ok {
		merged, keep := merge(prev, ev)
		if keep {
			d.pending[ev.Path] = merged
		} else {
			delete(d.pending, ev.Path)
		}
	} else {
		d.pending[ev.Path] = pending{first: ev.Operation, event: ev}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// merge folds next into prev. keep is false when the two cancel out.
func merge(prev pending, next Event) (pending, bool) {
	switch prev.first {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			prev.event.Time = next.Time
			return prev, true
		case OpDelete:
			return pending{}, false
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
			return pending{first: OpModify, event: next}, true
		}
	}
	prev.event = next
	return prev, true
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for _, p := range d.pending {
		batch = append(batch, p.event)
	}
	slices.SortFunc(batch, func(a, b Event) int { return cmp.Compare(a.Path, b.Path) })
	clear(d.pending)

	select {
	case d.out <- batch:
	default:
		slog.Warn("watch_batch_dropped", slog.Int("events", len(batch)))
	}
}

// Output delivers debounced batches sorted by path. It is closed by Stop.
func (d *Debouncer) Output() <-chan []Event {
	return d.out
}

// Stop discards pending events and closes Output. It is idempotent.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}
