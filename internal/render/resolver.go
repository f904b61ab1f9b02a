package render

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/page"
)

// DefaultTemplate is used for pages that do not name a template.
const DefaultTemplate = "default"

// TemplateExt is the extension of template and partial files.
const TemplateExt = ".liquid"

// TemplateResolver maps pages to template files in a template directory.
type TemplateResolver struct {
	dir string
}

// NewTemplateResolver creates a resolver for dir.
func NewTemplateResolver(dir string) *TemplateResolver {
	return &TemplateResolver{dir: dir}
}

// Resolve returns the template file for p: the page's own template field if
// set, otherwise DefaultTemplate. The name may omit the .liquid extension.
func (r *TemplateResolver) Resolve(p *page.Page) (string, error) {
	name := p.Template
	if name == "" {
		name = DefaultTemplate
	}
	path, ok := r.lookup(name)
	if !ok {
		return "", errors.PageError(errors.CategoryTemplateNotFound, p.SourcePath, "template "+name+" not found").
			WithContext("template", name).
			WithContext("dir", r.dir).
			Build()
	}
	return path, nil
}

func (r *TemplateResolver) lookup(name string) (string, bool) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	candidates := []string{clean + TemplateExt}
	if filepath.Ext(clean) == TemplateExt {
		candidates = []string{clean}
	}
	for _, c := range candidates {
		path := filepath.Join(r.dir, c)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
