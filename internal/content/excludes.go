package content

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ExcludeSet matches project-relative paths against exclude globs. A path is
// excluded when the whole path or any single component of it matches.
type ExcludeSet struct {
	patterns []string
	globs    []glob.Glob
}

// NewExcludeSet compiles patterns with '/' as the separator.
func NewExcludeSet(patterns []string) (*ExcludeSet, error) {
	set := &ExcludeSet{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, err
		}
		set.globs = append(set.globs, g)
	}
	return set, nil
}

// Match reports whether rel (relative to the project root) is excluded.
func (s *ExcludeSet) Match(rel string) bool {
	if s == nil || len(s.globs) == 0 {
		return false
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." {
		return false
	}
	for _, g := range s.globs {
		if g.Match(rel) {
			return true
		}
	}
	for part := range strings.SplitSeq(rel, "/") {
		for _, g := range s.globs {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}

// Patterns returns the source patterns.
func (s *ExcludeSet) Patterns() []string {
	if s == nil {
		return nil
	}
	return s.patterns
}
