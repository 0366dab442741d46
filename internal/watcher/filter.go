package watcher

import (
	"path/filepath"
	"slices"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// filter decides which paths below root are worth reporting. The indexer
// applies the full skip rules again, so this only has to keep obvious noise
// (VCS metadata, the index's own files) and unwanted subtrees away.
type filter struct {
	root    string
	ignore  *gitignore.GitIgnore
	exclude []string
}

func newFilter(root string, patterns, paths []string) *filter {
	f := &filter{root: root}
	if len(patterns) > 0 {
		f.ignore = gitignore.CompileIgnoreLines(patterns...)
	}
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			f.exclude = append(f.exclude, abs)
		}
	}
	return f
}

// skip reports whether abs should be dropped.
func (f *filter) skip(abs string, isDir bool) bool {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return true
	}

	for _, ex := range f.exclude {
		if abs == ex || strings.HasPrefix(abs, ex+string(filepath.Separator)) {
			return true
		}
	}

	rel = filepath.ToSlash(rel)
	if slices.Contains(strings.Split(rel, "/"), ".git") {
		return true
	}

	if f.ignore == nil {
		return false
	}
	return f.ignore.MatchesPath(rel) || (isDir && f.ignore.MatchesPath(rel+"/"))
}
