package embed

import (
	"github.com/Aman-CERP/fsindex/internal/store"
)

// FileText is the text embedded for a file: its name, category and parent
// directory. File contents are never read.
func FileText(rec *store.FileRecord) string {
	return rec.Name + " " + string(rec.Category) + " " + rec.ParentDir
}

// Eligible reports whether a file of the given size gets an embedding.
// The limit is inclusive; maxBytes <= 0 means DefaultMaxFileBytes.
func Eligible(size int64, enabled bool, maxBytes int64) bool {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return enabled && size <= maxBytes
}
