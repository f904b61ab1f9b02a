package render

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// partialStore serves {% include %} lookups from the partial sources read
// when the engine was created. A name may omit the .liquid extension.
type partialStore struct {
	sources map[string][]byte
}

// loadPartials reads every partial under dirs. When two directories hold
// the same name, the earlier directory wins.
func loadPartials(dirs ...string) (partialStore, error) {
	store := partialStore{sources: make(map[string][]byte)}
	for _, dir := range slices.Backward(dirs) {
		names, err := Partials(dir)
		if err != nil {
			return store, fmt.Errorf("list partials in %s: %w", dir, err)
		}
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
			if err != nil {
				return store, fmt.Errorf("read partial %s: %w", name, err)
			}
			store.sources[name] = data
			store.sources[strings.TrimSuffix(name, TemplateExt)] = data
		}
	}
	return store, nil
}

func (s partialStore) ReadTemplate(name string) ([]byte, error) {
	if data, ok := s.sources[path.Clean(filepath.ToSlash(name))]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("partial %q not found", name)
}

// Partials lists the partial names available for include, relative to the
// partials directory.
func Partials(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == dir && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != TemplateExt {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	return names, err
}
