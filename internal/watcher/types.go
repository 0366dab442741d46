// Package watcher turns file system notifications under an indexed root into
// debounced batches of absolute paths and feeds them to the indexer.
//
// fsnotify is the primary event source. When it cannot be initialised (or
// Options.Polling is set) a polling walker compares snapshots instead.
// Events for one path inside the debounce window are merged:
//   - CREATE then MODIFY stays CREATE
//   - CREATE then DELETE cancels out
//   - DELETE then CREATE becomes MODIFY
//   - anything else keeps the latest operation
package watcher

import (
	"time"
)

// Operation is the kind of change observed for a path.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
	// OpGitignoreChange marks a .gitignore edit. Indexed files below its
	// directory must be re-checked against the new rules.
	OpGitignoreChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// Event is one observed change. Path is absolute.
type Event struct {
	Path      string
	Operation Operation
	IsDir     bool
	Time      time.Time
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is emitted.
	Debounce time.Duration

	// PollInterval is the snapshot interval of the polling fallback.
	PollInterval time.Duration

	// BufferSize is the number of batches buffered for the consumer.
	BufferSize int

	// IgnorePatterns use gitignore syntax relative to the watched root.
	// Matching directories are not watched at all.
	IgnorePatterns []string

	// IgnorePaths are absolute paths never reported, typically the
	// directory holding the index database.
	IgnorePaths []string

	// Polling forces the polling fallback.
	Polling bool
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		PollInterval: 5 * time.Second,
		BufferSize:   64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	return o
}
