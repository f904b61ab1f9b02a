package build

import (
	"cmp"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/otiai10/copy"
	atom "github.com/thomas11/atomgenerator"

	"git.home.luguber.info/inful/weaving/internal/config"
	"git.home.luguber.info/inful/weaving/internal/page"
	"git.home.luguber.info/inful/weaving/internal/render"
)

//go:embed assets/sitemap.xml.liquid
var sitemapTemplate string

const (
	SitemapFile   = "sitemap.xml"
	AtomFile      = "atom.xml"
	SyntaxCSSFile = "syntax.css"
	WellKnownDir  = ".well-known"
)

// Task is a post-build step run once every page has been written.
type Task interface {
	Name() string
	Run(ctx context.Context, tc *TaskContext) error
}

// TaskContext is what a Task can see of the finished pass.
type TaskContext struct {
	Config    *config.SiteConfig
	Registry  *page.Registry
	Engine    *render.Engine
	BuildDir  string
	SyntaxCSS string

	written outputSet
}

// WriteFile writes data to rel under the build directory.
func (tc *TaskContext) WriteFile(rel string, data []byte) error {
	if err := writeFileAtomic(filepath.Join(tc.BuildDir, filepath.FromSlash(rel)), data); err != nil {
		return err
	}
	if tc.written != nil {
		tc.written.add(rel)
	}
	return nil
}

// emitted returns the written pages, newest first, then by route.
func (tc *TaskContext) emitted() []*page.Page {
	var out []*page.Page
	for _, p := range tc.Registry.All() {
		if p.Emit {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b *page.Page) int {
		if c := b.Published.Compare(a.Published); c != 0 {
			return c
		}
		return cmp.Compare(a.Route, b.Route)
	})
	return out
}

// DefaultTasks returns the tasks every build runs.
func DefaultTasks() []Task {
	return []Task{SitemapTask{}, AtomTask{}, WellKnownTask{}, SyntaxCSSTask{}}
}

// SitemapTask renders sitemap.xml listing every emitted page.
type SitemapTask struct{}

func (SitemapTask) Name() string { return "sitemap" }

func (SitemapTask) Run(_ context.Context, tc *TaskContext) error {
	pages := tc.emitted()
	slices.SortFunc(pages, func(a, b *page.Page) int { return cmp.Compare(a.Route, b.Route) })

	entries := make([]any, 0, len(pages))
	for _, p := range pages {
		entries = append(entries, map[string]any{
			"loc":     absoluteURL(tc.Config.BaseURL, p.Route),
			"lastmod": p.LastUpdated.UTC().Format(time.DateOnly),
		})
	}
	out, err := tc.Engine.RenderString(sitemapTemplate, SitemapFile, map[string]any{"entries": entries})
	if err != nil {
		return fmt.Errorf("render sitemap: %w", err)
	}
	return tc.WriteFile(SitemapFile, []byte(out))
}

// AtomTask writes atom.xml with every emitted page that is not a section
// index.
type AtomTask struct{}

func (AtomTask) Name() string { return "atom" }

func (AtomTask) Run(_ context.Context, tc *TaskContext) error {
	title := feedTitle(tc)
	feed := atom.Feed{
		Title: title,
		Link:  absoluteURL(tc.Config.BaseURL, "/"),
	}
	feed.AddAuthor(atom.Author{Name: title, Uri: feed.Link})
	for _, p := range tc.emitted() {
		if p.IsIndex() {
			continue
		}
		if p.LastUpdated.After(feed.PubDate) {
			feed.PubDate = p.LastUpdated
		}
		e := &atom.Entry{
			Title:       p.Title,
			Description: cmp.Or(p.Description, p.Excerpt, p.Title),
			Link:        absoluteURL(tc.Config.BaseURL, p.Route),
			PubDate:     p.Published,
		}
		for _, tag := range p.Tags {
			e.AddCategory(atom.Category{Term: tag})
		}
		feed.AddEntry(e)
	}
	if feed.PubDate.IsZero() {
		feed.PubDate = time.Unix(0, 0).UTC()
	}

	if errs := feed.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid atom feed: %w", errs[0])
	}
	data, err := feed.GenXml()
	if err != nil {
		return fmt.Errorf("generate atom feed: %w", err)
	}
	return tc.WriteFile(AtomFile, data)
}

func feedTitle(tc *TaskContext) string {
	if root, ok := tc.Registry.Get("index.md"); ok && root.Title != "" {
		return root.Title
	}
	return tc.Config.BaseURL
}

// WellKnownTask copies <base>/.well-known into the build directory.
type WellKnownTask struct{}

func (WellKnownTask) Name() string { return "well_known" }

func (WellKnownTask) Run(_ context.Context, tc *TaskContext) error {
	src := filepath.Join(tc.Config.BaseDir, WellKnownDir)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	return copy.Copy(src, filepath.Join(tc.BuildDir, WellKnownDir))
}

// SyntaxCSSTask writes the highlighting stylesheet for the configured theme.
type SyntaxCSSTask struct{}

func (SyntaxCSSTask) Name() string { return "syntax_css" }

func (SyntaxCSSTask) Run(_ context.Context, tc *TaskContext) error {
	if tc.SyntaxCSS == "" {
		return nil
	}
	return tc.WriteFile(SyntaxCSSFile, []byte(tc.SyntaxCSS))
}

// absoluteURL joins base and route. A base without a scheme is served over
// plain http, which is what the dev server speaks.
func absoluteURL(base, route string) string {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(route, "/")
}
