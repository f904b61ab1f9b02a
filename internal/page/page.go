// Package page holds the parsed pages of one build pass and the indexes
// derived from them.
package page

import (
	"path"
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/weaving/internal/frontmatter"
)

// ID identifies a page by its slash-separated path relative to the content root.
type ID string

// Page is one piece of content. Pages are never modified after New returns.
type Page struct {
	ID          ID
	SourcePath  string // relative to the content root
	OutputPath  string // relative to the build root
	Route       string
	Section     string
	Title       string
	Tags        []string
	Keywords    []string
	Description string
	Template    string
	Excerpt     string
	Emit        bool
	Published   time.Time
	LastUpdated time.Time
	User        map[string]frontmatter.Value
	BodySource  string
	Fingerprint string
}

// New builds a Page from the validated frontmatter of the file at rel.
// modTime backs the published and last updated dates the author left out.
func New(rel string, meta frontmatter.Metadata, body string, modTime time.Time) *Page {
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	route := RouteFor(rel)

	p := &Page{
		ID:          ID(rel),
		SourcePath:  rel,
		OutputPath:  OutputPathFor(route),
		Route:       route,
		Section:     SectionFor(route),
		Title:       meta.Title,
		Tags:        meta.Tags,
		Keywords:    meta.Keywords,
		Description: meta.Description,
		Template:    meta.Template,
		Excerpt:     meta.Excerpt,
		Emit:        meta.Emit,
		Published:   meta.Published,
		LastUpdated: meta.LastUpdated,
		User:        meta.User,
		BodySource:  body,
		Fingerprint: mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(meta.Raw, "\n"), body),
	}
	if p.Published.IsZero() {
		p.Published = modTime.UTC()
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = modTime.UTC()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.User == nil {
		p.User = map[string]frontmatter.Value{}
	}
	return p
}

// IsIndex reports whether p is the index page of its directory.
func (p *Page) IsIndex() bool {
	base := path.Base(p.SourcePath)
	return strings.TrimSuffix(base, path.Ext(base)) == "index"
}

// RouteFor maps a content-relative source path to its URL route:
//
//	index.md         -> /
//	posts/index.md   -> /posts/
//	posts/hello.md   -> /posts/hello/
func RouteFor(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	dir, name := path.Split(rel)
	if name == "index" {
		rel = strings.TrimSuffix(dir, "/")
	}
	if rel == "" || rel == "." {
		return "/"
	}
	return "/" + rel + "/"
}

// OutputPathFor returns the build-relative file written for route.
func OutputPathFor(route string) string {
	return strings.TrimPrefix(route, "/") + "index.html"
}

// SectionFor returns the first segment of route, or "" for top-level pages.
func SectionFor(route string) string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return ""
	}
	section, rest, found := strings.Cut(trimmed, "/")
	if !found || rest == "" {
		return ""
	}
	return section
}
