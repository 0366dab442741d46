package scanner

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Directory names skipped by default (compared lower-case).
var defaultSkipDirs = []string{
	// version control
	".git", ".svn", ".hg", ".bzr",
	// python environments and caches
	"venv", ".venv", "env", ".env", "virtualenv", ".virtualenv", "env.bak", "venv.bak",
	"__pycache__", ".pytest_cache", ".mypy_cache", ".ruff_cache", ".tox",
	".coverage", "htmlcov", ".hypothesis", ".eggs", ".pip", ".conda",
	// javascript
	"node_modules", ".npm", ".yarn", ".yarn-cache", ".next", ".nuxt", ".output",
	".nyc_output", ".parcel-cache",
	// build output and editors
	"build", "dist", ".idea", ".vscode", ".vs", ".cache", ".temp", ".tmp",
}

// File names skipped by default (compared lower-case).
var defaultSkipFiles = []string{
	".ds_store", "thumbs.db", "desktop.ini", ".directory", ".localized",
	"package-lock.json", "yarn.lock", "poetry.lock", "pipfile.lock",
}

var defaultSkipSuffixes = []string{
	".pyc", ".pyo", ".pyd",
	".bak", ".tmp", ".temp", ".swp", ".swo", "~",
}

// venvMarkers identify a python virtual environment regardless of its name.
var venvMarkers = []string{"pyvenv.cfg"}

type skipRules struct {
	defaults bool
	dirs     map[string]struct{}
	files    map[string]struct{}
	patterns []string
}

func newSkipRules(patterns []string, noDefaults bool) *skipRules {
	r := &skipRules{
		defaults: !noDefaults,
		dirs:     make(map[string]struct{}),
		files:    make(map[string]struct{}),
	}
	if r.defaults {
		for _, d := range defaultSkipDirs {
			r.dirs[d] = struct{}{}
		}
		for _, f := range defaultSkipFiles {
			r.files[f] = struct{}{}
		}
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r.patterns = append(r.patterns, strings.ToLower(filepath.ToSlash(p)))
	}
	return r
}

func (r *skipRules) matchDir(absPath, rel, name string) bool {
	lname := strings.ToLower(name)
	if _, ok := r.dirs[lname]; ok {
		return true
	}
	if r.defaults {
		if strings.HasSuffix(lname, ".egg-info") {
			return true
		}
		for _, m := range venvMarkers {
			if _, err := os.Stat(filepath.Join(absPath, m)); err == nil {
				return true
			}
		}
	}
	return r.matchPattern(rel, lname)
}

func (r *skipRules) matchFile(rel, name string) bool {
	lname := strings.ToLower(name)
	if _, ok := r.files[lname]; ok {
		return true
	}
	if r.defaults {
		for _, suf := range defaultSkipSuffixes {
			if strings.HasSuffix(lname, suf) {
				return true
			}
		}
	}
	return r.matchPattern(rel, lname)
}

func (r *skipRules) matchPattern(rel, lname string) bool {
	if len(r.patterns) == 0 {
		return false
	}
	lrel := strings.ToLower(filepath.ToSlash(rel))
	for _, p := range r.patterns {
		// dir/** matches the directory and everything below it
		if prefix, ok := strings.CutSuffix(p, "/**"); ok {
			if lrel == prefix || strings.HasPrefix(lrel, prefix+"/") {
				return true
			}
			continue
		}
		target := lname
		if strings.Contains(p, "/") {
			target = lrel
		}
		if ok, err := path.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}
