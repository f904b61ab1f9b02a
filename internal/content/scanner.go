// Package content discovers the Markdown sources of a site.
package content

import (
	"io/fs"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/logfields"
)

// DefaultMaxDepth bounds how many directory levels below the root are walked.
const DefaultMaxDepth = 32

// File is one candidate content file.
type File struct {
	Path string // Absolute path
	Rel  string // Slash-separated path relative to the content root
}

// Scanner walks a content root for Markdown files.
type Scanner struct {
	root      string
	maxDepth  int
	excludes  *ExcludeSet
	skipPaths []string
	exts      []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExcludes skips every path the set matches, relative to the content root.
func WithExcludes(set *ExcludeSet) Option {
	return func(s *Scanner) { s.excludes = set }
}

// WithSkipPaths skips the given root-relative paths exactly, unlike the
// component matching of WithExcludes.
func WithSkipPaths(rels ...string) Option {
	return func(s *Scanner) {
		for _, rel := range rels {
			s.skipPaths = append(s.skipPaths, filepath.ToSlash(filepath.Clean(rel)))
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(s *Scanner) { s.maxDepth = depth }
}

// NewScanner creates a scanner rooted at root.
func NewScanner(root string, opts ...Option) *Scanner {
	s := &Scanner{
		root:     root,
		maxDepth: DefaultMaxDepth,
		exts:     []string{".md", ".markdown"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory being scanned.
func (s *Scanner) Root() string { return s.root }

// Scan walks the root afresh on every call and yields content files in
// lexical order. An unreadable root yields a single fatal io_failure.
// Unreadable subdirectories yield a non-fatal io_failure and are skipped.
// Symlinks are never followed.
func (s *Scanner) Scan() iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == s.root {
					yield(File{}, errors.WrapError(err, errors.CategoryIO, "content root is unreadable").
						Fatal().WithPath(s.root).Build())
					return filepath.SkipAll
				}
				if !yield(File{}, errors.WrapError(err, errors.CategoryIO, "cannot read content directory").
					WithPath(path).Build()) {
					return filepath.SkipAll
				}
				return skipEntry(d)
			}

			rel, relErr := filepath.Rel(s.root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if rel == "." {
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				slog.Debug("Skipping symlink", logfields.Path(rel))
				return nil
			}
			if s.skip(rel, d) {
				return skipEntry(d)
			}
			if d.IsDir() {
				if strings.Count(rel, "/")+1 > s.maxDepth {
					slog.Warn("Content tree exceeds maximum depth", logfields.Path(rel), slog.Int("max_depth", s.maxDepth))
					return filepath.SkipDir
				}
				return nil
			}
			if !s.isContent(d.Name()) {
				return nil
			}
			if !yield(File{Path: path, Rel: rel}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (s *Scanner) skip(rel string, d fs.DirEntry) bool {
	name := d.Name()
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	if slices.Contains(s.skipPaths, rel) {
		return true
	}
	if s.excludes == nil {
		return false
	}
	return s.excludes.Match(rel)
}

func (s *Scanner) isContent(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range s.exts {
		if ext == e {
			return true
		}
	}
	return false
}

func skipEntry(d fs.DirEntry) error {
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}
