// Package search answers queries over the file index in one of three
// modes: exact substring, fuzzy term counting and semantic similarity.
// Natural-language time and size constraints are parsed into store
// filters that apply in every mode.
package search

import (
	"fmt"
	"strings"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// DefaultLimit bounds results when no positive limit is given.
const DefaultLimit = 50

// Mode selects a search strategy. The zero value is not a valid mode;
// use the constants or ParseMode.
type Mode int

const (
	ModeExact Mode = iota + 1
	ModeFuzzy
	ModeSemantic
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeFuzzy:
		return "fuzzy"
	case ModeSemantic:
		return "semantic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) valid() bool {
	return m >= ModeExact && m <= ModeSemantic
}

// ParseMode converts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return ModeExact, nil
	case "fuzzy":
		return ModeFuzzy, nil
	case "semantic":
		return ModeSemantic, nil
	default:
		return 0, fserrors.New(fserrors.ErrCodeInvalidQuery, "unknown search mode", nil).
			WithDetail("mode", s).
			WithSuggestion("use exact, fuzzy or semantic")
	}
}

// Request is a fully specified query.
type Request struct {
	Query  string
	Mode   Mode
	Limit  int
	Filter store.Filter
}

// Result is one ranked file. Score is mode-specific: 0 for exact matches,
// the raw term count for fuzzy, cosine similarity for semantic.
type Result struct {
	File  *store.FileRecord
	Score float64
}
