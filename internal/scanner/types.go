// Package scanner walks a directory tree and extracts the metadata record
// for every file that passes the skip rules. It never modifies the files it
// visits.
package scanner

import (
	"github.com/Aman-CERP/fsindex/internal/store"
)

// DefaultHashMaxBytes is the largest file whose contents are hashed (10MB).
const DefaultHashMaxBytes = 10 * 1024 * 1024

// ScanOptions configures a walk.
type ScanOptions struct {
	// Root is the directory to walk. Relative roots are made absolute.
	Root string

	// SkipPatterns are extra glob patterns matched case-insensitively against
	// base names, or against the slash-separated relative path when the
	// pattern contains a "/".
	SkipPatterns []string

	// NoDefaultSkips disables the built-in skip set.
	NoDefaultSkips bool

	// IncludeHidden indexes entries whose relative path has a segment
	// starting with ".". Callers normally take it from config (default true).
	IncludeHidden bool

	// RespectGitignore applies .gitignore files found in the tree.
	RespectGitignore bool

	// FollowSymlinks indexes symlinks to regular files using the target's
	// metadata. Symlinked directories are never descended.
	FollowSymlinks bool

	// MaxDepth limits how deep files may sit below Root (0 = unlimited).
	// A file directly in Root has depth 1.
	MaxDepth int

	// HashMaxBytes is the inclusive size limit for content hashing
	// (0 = DefaultHashMaxBytes, negative disables hashing).
	HashMaxBytes int64
}

// ScanResult is one item of the scan sequence.
//
// Exactly one of File, Skipped or Error describes the entry, except that a
// file whose hash could not be computed carries both File and Error.
type ScanResult struct {
	File    *store.FileRecord
	Path    string
	Skipped bool
	Error   error
}

func (o *ScanOptions) hashLimit() int64 {
	if o.HashMaxBytes == 0 {
		return DefaultHashMaxBytes
	}
	return o.HashMaxBytes
}
