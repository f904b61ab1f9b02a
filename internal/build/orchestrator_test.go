package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/weaving/internal/config"
	"git.home.luguber.info/inful/weaving/internal/content"
	werrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

const defaultLayout = `<html><body><h1>{{ page.title }}</h1>{{ page.body | raw }}</body></html>`

type site struct {
	base string
	cfg  *config.SiteConfig
}

func newSite(t *testing.T, files map[string]string) *site {
	t.Helper()
	base := t.TempDir()
	if _, ok := files["templates/default.liquid"]; !ok {
		files["templates/default.liquid"] = defaultLayout
	}
	for rel, body := range files {
		write(t, filepath.Join(base, rel), body)
	}
	return &site{base: base, cfg: config.Default(base)}
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func (s *site) build(t *testing.T) (*Report, error) {
	t.Helper()
	return New(s.cfg, WithWorkers(4)).Build(context.Background())
}

func (s *site) output(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.cfg.BuildPath(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (s *site) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(s.cfg.BuildPath(), filepath.FromSlash(rel)))
	return err == nil
}

func TestBuild_RendersTitleAndBody(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/index.md": "---\ntitle: test\ntags: []\n---\n# Hi\n",
	})

	report, err := s.build(t)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 1, report.PagesBuilt)

	html := s.output(t, "index.html")
	require.Contains(t, html, "<h1>test</h1>")
	require.Contains(t, html, "<h1>Hi</h1>")
}

func TestBuild_PageFailureIsIsolated(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/good.md": "---\ntitle: Good\ntags: []\n---\nfine\n",
		"content/bad.md":  "---\ntags: []\n---\nno title\n",
	})

	report, err := s.build(t)
	require.NoError(t, err)
	require.Equal(t, OutcomePartial, report.Outcome)
	require.Equal(t, 1, report.PagesBuilt)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "bad.md", report.Errors[0].Path)
	require.Equal(t, werrors.CategoryMissingField, report.Errors[0].Kind)
	require.Equal(t, []string{report.Errors[0].String()}, report.Diagnostics())

	require.True(t, s.exists("good/index.html"))
	require.False(t, s.exists("bad/index.html"))
}

func TestBuild_RebuildIsByteIdentical(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/index.md":         "---\ntitle: Home\ntags: [go]\n---\n## Intro\n\n{% for p in content.posts %}{{ p.title }};{% endfor %}\n",
		"content/posts/a.md":       "---\ntitle: A\ntags: [go]\npublished: 2024-01-02\n---\nalpha\n",
		"content/posts/b.md":       "---\ntitle: B\ntags: []\npublished: 2024-01-01\n---\nbeta\n",
		"content/posts/index.md":   "---\ntitle: Posts\ntags: []\n---\nlist\n",
		"content/notes/c.md":       "---\ntitle: C\ntags: [zz, aa, mm, go]\nz: 1\na: 2\n---\ngamma\n",
		"content/misc/d.md":        "---\ntitle: D\ntags: [qq, b]\n---\ndelta\n",
		"templates/default.liquid": `<h1>{{ page.title }}</h1>{{ page.body | raw }}` +
			`{% for t in tags %}{{ t[0] }}({{ t[1] | size }}),{% endfor %}|` +
			`{% for s in content %}{{ s[0] }}:{% for p in s[1] %}{{ p.title }};{% endfor %}{% endfor %}|` +
			`{% for u in page.user %}{{ u[0] }},{% endfor %}`,
	})

	_, err := s.build(t)
	require.NoError(t, err)
	first := snapshot(t, s.cfg.BuildPath())

	_, err = s.build(t)
	require.NoError(t, err)
	second := snapshot(t, s.cfg.BuildPath())

	require.Equal(t, first, second)
	require.Contains(t, first, "index.html")
	require.Contains(t, first, "posts/a/index.html")
	require.Contains(t, first, SitemapFile)
	require.Contains(t, first["notes/c/index.html"], "aa(1),b(1),go(3),mm(1),qq(1),zz(1),|misc:D;posts:A;B;|a,z,")
}

func TestBuild_SectionNamedLikeBuildDir(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/index.md":            "---\ntitle: Home\ntags: []\n---\nhome\n",
		"content/site/about.md":       "---\ntitle: About\ntags: []\n---\nabout\n",
		"content/node_modules/pkg.md": "---\ntitle: Pkg\ntags: []\n---\npkg\n",
	})

	report, err := s.build(t)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 3, report.Scanned)
	require.True(t, s.exists("site/about/index.html"))
	require.True(t, s.exists("node_modules/pkg/index.html"))
}

func TestBuild_ExcludesApplyWhenGiven(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/index.md":    "---\ntitle: Home\ntags: []\n---\nhome\n",
		"content/drafts/x.md": "---\ntitle: X\ntags: []\n---\nx\n",
	})
	excludes, err := content.NewExcludeSet([]string{"drafts"})
	require.NoError(t, err)

	report, err := New(s.cfg, WithExcludes(excludes)).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Scanned)
	require.False(t, s.exists("drafts/x/index.html"))
}

func TestBuild_SkipsBuildDirInsideContent(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/index.md":   "---\ntitle: Home\ntags: []\n---\nhome\n",
		"content/out/old.md": "---\ntitle: Old\ntags: []\n---\nold\n",
	})
	cfg := *s.cfg
	cfg.BuildDir = "content/out"

	report, err := New(&cfg).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Scanned)
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		if rel == AtomFile {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestBuild_TagIndex(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/a.md":     "---\ntitle: A\ntags: [go, web]\n---\na\n",
		"content/b.md":     "---\ntitle: B\ntags: [go]\n---\nb\n",
		"content/c.md":     "---\ntitle: C\ntags: []\n---\nc\n",
		"content/index.md": "---\ntitle: Home\ntags: []\n---\n{% for p in tags.go %}[{{ p.title }}]{% endfor %}\n",
	})

	report, err := s.build(t)
	require.NoError(t, err)
	require.Equal(t, 4, report.PagesBuilt)

	tags := report.Registry.Tags()
	require.Equal(t, []string{"go", "web"}, tags.Names())
	require.Len(t, tags.Lookup("go"), 2)
	require.Len(t, tags.Lookup("web"), 1)
	require.Empty(t, tags.Lookup("missing"))

	require.Contains(t, s.output(t, "index.html"), "[A][B]")
}

func TestBuild_OutputCollisionIsFatal(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/posts.md":       "---\ntitle: One\ntags: []\n---\none\n",
		"content/posts/index.md": "---\ntitle: Two\ntags: []\n---\ntwo\n",
	})

	report, err := s.build(t)
	require.Error(t, err)
	require.True(t, werrors.HasCategory(err, werrors.CategoryOutputCollision))
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.False(t, s.exists("posts/index.html"))
}

func TestBuild_UnreadableRootIsFatal(t *testing.T) {
	s := newSite(t, map[string]string{})

	report, err := s.build(t)
	require.Error(t, err)
	require.True(t, werrors.HasCategory(err, werrors.CategoryIO))
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Nil(t, report.Registry)
}

func TestBuild_EmitFalseIsRegisteredNotWritten(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/draft.md": "---\ntitle: Draft\ntags: []\nemit: false\n---\nsecret\n",
	})

	report, err := s.build(t)
	require.NoError(t, err)
	require.Equal(t, 0, report.PagesBuilt)
	require.Equal(t, 1, report.PagesSkipped)
	require.Equal(t, 1, report.Registry.Len())
	require.False(t, s.exists("draft/index.html"))
}

func TestBuild_MissingTemplateIsPageLocal(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/a.md": "---\ntitle: A\ntags: []\ntemplate: nope\n---\na\n",
		"content/b.md": "---\ntitle: B\ntags: []\n---\nb\n",
	})

	report, err := s.build(t)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	require.Equal(t, werrors.CategoryTemplateNotFound, report.Errors[0].Kind)
	require.True(t, s.exists("b/index.html"))
}

func TestBuild_CopiesStaticTreesAndRunsTasks(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/index.md":         "---\ntitle: Home\ntags: []\n---\nhome\n",
		"content/posts/x.md":       "---\ntitle: X\ntags: [go]\n---\nx\n",
		"public/style.css":         "body{}",
		"partials/nav.liquid":      "<nav></nav>",
		".well-known/security.txt": "Contact: me",
	})

	_, err := s.build(t)
	require.NoError(t, err)

	require.Equal(t, "body{}", s.output(t, "public/style.css"))
	require.Equal(t, "<nav></nav>", s.output(t, "partials/nav.liquid"))
	require.Equal(t, "Contact: me", s.output(t, ".well-known/security.txt"))

	sitemap := s.output(t, SitemapFile)
	require.Contains(t, sitemap, "<loc>http://localhost:8080/</loc>")
	require.Contains(t, sitemap, "<loc>http://localhost:8080/posts/x/</loc>")

	require.Contains(t, s.output(t, AtomFile), "http://localhost:8080/posts/x/")
	require.True(t, s.exists(SyntaxCSSFile))
}

func TestBuild_PrunesStaleOnlyAfterCleanPass(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/keep.md": "---\ntitle: Keep\ntags: []\n---\nk\n",
		"content/gone.md": "---\ntitle: Gone\ntags: []\n---\ng\n",
		"public/page.html": "<p>static</p>",
	})
	_, err := s.build(t)
	require.NoError(t, err)
	require.True(t, s.exists("gone/index.html"))

	// A failing page keeps stale output around.
	require.NoError(t, os.Remove(filepath.Join(s.base, "content/gone.md")))
	write(t, filepath.Join(s.base, "content/broken.md"), "no frontmatter\n")
	report, err := s.build(t)
	require.NoError(t, err)
	require.True(t, report.HasErrors())
	require.True(t, s.exists("gone/index.html"))

	require.NoError(t, os.Remove(filepath.Join(s.base, "content/broken.md")))
	report, err = s.build(t)
	require.NoError(t, err)
	require.False(t, report.HasErrors())
	require.False(t, s.exists("gone/index.html"))
	require.False(t, s.exists("gone"))
	require.True(t, s.exists("keep/index.html"))
	require.True(t, s.exists("public/page.html"))
}

func TestBuild_CanceledContext(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/a.md": "---\ntitle: A\ntags: []\n---\na\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(s.cfg).Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, OutcomeFailed, report.Outcome)
}

func TestReport_PersistAndSummary(t *testing.T) {
	s := newSite(t, map[string]string{
		"content/a.md": "---\ntitle: A\ntags: []\n---\na\n",
	})
	report, err := s.build(t)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(report.Summary(), "scanned=1 built=1 skipped=0 errors=0"))
	require.True(t, strings.HasSuffix(report.Summary(), "outcome=success"))

	dir := t.TempDir()
	require.NoError(t, report.Persist(dir))
	data, err := os.ReadFile(filepath.Join(dir, "build-report.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"outcome": "success"`)
}

func TestAbsoluteURL(t *testing.T) {
	require.Equal(t, "http://localhost:8080/posts/x/", absoluteURL("localhost:8080", "/posts/x/"))
	require.Equal(t, "https://example.com/", absoluteURL("https://example.com/", "/"))
}
