package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvert_HeadingAndParagraph(t *testing.T) {
	c := NewConverter("monokai")

	res, err := c.Convert([]byte("# Hi\n\nSome *text*.\n"))
	require.NoError(t, err)
	require.Contains(t, res.HTML, "<h1>Hi</h1>")
	require.Contains(t, res.HTML, "<p>Some <em>text</em>.</p>")
	require.Empty(t, res.TOC)
}

func TestConvert_TOCAndAnchors(t *testing.T) {
	c := NewConverter("monokai")

	src := "# Title\n\n## Getting started\n\n### Intro - description\n\n## Getting started\n"
	res, err := c.Convert([]byte(src))
	require.NoError(t, err)
	require.Contains(t, res.HTML, `<h2 id="getting-started">Getting started</h2>`)
	require.Contains(t, res.HTML, `<h2 id="getting-started-1">Getting started</h2>`)
	require.Equal(t, []Heading{
		{Depth: 2, Text: "Getting started", Slug: "getting-started"},
		{Depth: 3, Text: "Intro - description", Slug: "intro---description"},
		{Depth: 2, Text: "Getting started", Slug: "getting-started-1"},
	}, res.TOC)
}

func TestConvert_HighlightsKnownLanguage(t *testing.T) {
	c := NewConverter("monokai")

	res, err := c.Convert([]byte("```go\npackage main\n```\n"))
	require.NoError(t, err)
	require.Contains(t, res.HTML, `class="chroma"`)
}

func TestConvert_UnknownLanguageFallsBackToPlainBlock(t *testing.T) {
	c := NewConverter("monokai")

	res, err := c.Convert([]byte("```nosuchlang\n<b>x</b>\n```\n"))
	require.NoError(t, err)
	require.Contains(t, res.HTML, "<pre")
	require.Contains(t, res.HTML, "&lt;b&gt;x&lt;/b&gt;")
}

func TestConvert_RawHTMLPassesThrough(t *testing.T) {
	c := NewConverter("monokai")

	res, err := c.Convert([]byte("<div class=\"note\">hi</div>\n"))
	require.NoError(t, err)
	require.Contains(t, res.HTML, `<div class="note">hi</div>`)
}

func TestStyleCSS(t *testing.T) {
	css, err := NewConverter("monokai").StyleCSS()
	require.NoError(t, err)
	require.Contains(t, css, ".chroma")

	fallback, err := NewConverter("no-such-style").StyleCSS()
	require.NoError(t, err)
	require.NotEmpty(t, fallback)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Intro - description": "intro---description",
		"Hello, World!":       "hello--world-",
		"Café au lait":        "cafe-au-lait",
		"emoji 🎉 gone":        "emoji--gone",
		"snake_case":          "snake-case",
	}
	for in, want := range tests {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestExcerpt(t *testing.T) {
	rendered := "<h1>T</h1>\n<p>  </p><p>First <em>para</em> here.</p><p>Second</p>"
	require.Equal(t, "First para here.", Excerpt(rendered, 0))

	long := "<p>" + strings.Repeat("word ", 100) + "</p>"
	got := Excerpt(long, 20)
	require.True(t, strings.HasSuffix(got, "…"))
	require.LessOrEqual(t, len([]rune(got)), 21)

	require.Empty(t, Excerpt("<h1>No paragraphs</h1>", 0))
}
