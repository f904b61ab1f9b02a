package build

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// writeFileAtomic writes data next to name and renames it into place, so a
// reader never sees a half-written file.
func writeFileAtomic(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// outputSet tracks the build-relative paths written during one pass.
type outputSet map[string]struct{}

func (s outputSet) add(rel string) { s[filepath.ToSlash(rel)] = struct{}{} }

func (s outputSet) has(rel string) bool {
	_, ok := s[filepath.ToSlash(rel)]
	return ok
}

// pruneStale removes .html files under root that this pass did not write,
// then any directories left empty. Subtrees named in keep are left alone.
func pruneStale(root string, written outputSet, keep []string) ([]string, error) {
	var removed []string
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if slices.Contains(keep, rel) {
				return fs.SkipDir
			}
			dirs = append(dirs, p)
			return nil
		}
		if !strings.EqualFold(filepath.Ext(rel), ".html") || written.has(rel) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		removed = append(removed, rel)
		return nil
	})
	if err != nil {
		return removed, err
	}
	// Deepest first so parents empty out after their children.
	for _, dir := range slices.Backward(dirs) {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	return removed, nil
}
