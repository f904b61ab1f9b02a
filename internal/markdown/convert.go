package markdown

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Heading is one table of contents entry.
type Heading struct {
	Depth int    `json:"depth"`
	Text  string `json:"text"`
	Slug  string `json:"slug"`
}

// Result is the output of one conversion.
type Result struct {
	HTML string
	TOC  []Heading
}

// Converter turns Markdown into HTML. It is safe for concurrent use.
//
// Fenced code blocks are highlighted with CSS classes; blocks in a language
// the highlighter does not know are emitted as plain <pre><code>. Headings
// from level 2 down get anchor ids and a TOC entry.
type Converter struct {
	md    goldmark.Markdown
	style string
}

// NewConverter creates a converter whose highlighting classes match the CSS
// returned by StyleCSS for the same style.
func NewConverter(style string) *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithGuessLanguage(false),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
			parser.WithASTTransformers(util.Prioritized(headingAnchors{}, 100)),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Converter{md: md, style: style}
}

// Convert renders src. Goldmark accepts any input, so errors only come from
// the renderer itself.
func (c *Converter) Convert(src []byte) (Result, error) {
	root := c.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, src, root); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	return Result{HTML: buf.String(), TOC: collectTOC(root, src)}, nil
}

// StyleCSS returns the stylesheet for the converter's highlighting classes.
// Unknown styles fall back to the highlighter's default.
func (c *Converter) StyleCSS() (string, error) {
	var b strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&b, styles.Get(c.style)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// headingAnchors assigns GFM-style ids to headings of level 2 and deeper.
// Level 1 is the document title and stays bare.
type headingAnchors struct{}

func (headingAnchors) Transform(doc *gmast.Document, reader text.Reader, _ parser.Context) {
	src := reader.Source()
	slugs := newSlugger()
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		h, ok := n.(*gmast.Heading)
		if !entering || !ok {
			return gmast.WalkContinue, nil
		}
		if h.Level < 2 {
			return gmast.WalkSkipChildren, nil
		}
		if id, has := h.AttributeString("id"); has {
			if b, isBytes := id.([]byte); isBytes {
				slugs.reserve(string(b))
			}
			return gmast.WalkSkipChildren, nil
		}
		if slug := slugs.next(plainText(h, src)); slug != "" {
			h.SetAttributeString("id", []byte(slug))
		}
		return gmast.WalkSkipChildren, nil
	})
}

func collectTOC(root gmast.Node, src []byte) []Heading {
	toc := []Heading{}
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		h, ok := n.(*gmast.Heading)
		if !entering || !ok {
			return gmast.WalkContinue, nil
		}
		if id, has := h.AttributeString("id"); has {
			if b, isBytes := id.([]byte); isBytes {
				toc = append(toc, Heading{Depth: h.Level, Text: plainText(h, src), Slug: string(b)})
			}
		}
		return gmast.WalkSkipChildren, nil
	})
	return toc
}

func plainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
