// Package render turns pages into HTML documents with Liquid templates.
package render

import (
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/osteele/liquid"
	lrender "github.com/osteele/liquid/render"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/markdown"
	"git.home.luguber.info/inful/weaving/internal/page"
)

// Rendered is the output for one page.
type Rendered struct {
	HTML    []byte
	TOC     []markdown.Heading
	Excerpt string
}

// Engine renders pages. One Engine serves a single build: parsed templates
// are cached for its lifetime. It is safe for concurrent use.
type Engine struct {
	liquid    *liquid.Engine
	resolver  *TemplateResolver
	converter *markdown.Converter

	mu        sync.Mutex
	templates map[string]*liquid.Template
}

// NewEngine creates an engine that resolves page templates in templateDir.
// Every partial under partialsDir, then templateDir, is read once here and
// served to {% include %}.
//
// Undefined variables are errors. Output is HTML-escaped unless marked with
// the raw (or built-in safe) filter.
func NewEngine(templateDir, partialsDir string, converter *markdown.Converter) (*Engine, error) {
	partials, err := loadPartials(partialsDir, templateDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryIO, "cannot load partials").
			Fatal().WithPath(partialsDir).Build()
	}

	engine := liquid.NewEngine()
	engine.StrictVariables()
	engine.SetAutoEscapeReplacer(lrender.HtmlEscaper)
	engine.RegisterTemplateStore(partials)
	registerFilters(engine)

	return &Engine{
		liquid:    engine,
		resolver:  NewTemplateResolver(templateDir),
		converter: converter,
		templates: make(map[string]*liquid.Template),
	}, nil
}

// RenderPage renders p inside its template. The body is rendered as a
// Liquid template first, so content files can use includes and variables,
// and then converted from Markdown.
func (e *Engine) RenderPage(site *Site, p *page.Page) (Rendered, error) {
	tplPath, err := e.resolver.Resolve(p)
	if err != nil {
		return Rendered{}, err
	}
	tpl, err := e.template(tplPath)
	if err != nil {
		return Rendered{}, errors.WrapError(err, errors.CategoryTemplateRender, "cannot parse template").
			WithPath(p.SourcePath).WithContext("template", tplPath).Build()
	}

	bindings := site.bindings(p)

	body, err := e.renderString(p.BodySource, path.Base(p.SourcePath), bindings)
	if err != nil {
		return Rendered{}, errors.WrapError(err, errors.CategoryTemplateRender, "cannot render page body").
			WithPath(p.SourcePath).Build()
	}

	converted, err := e.converter.Convert([]byte(body))
	if err != nil {
		return Rendered{}, errors.WrapError(err, errors.CategoryMarkdown, "cannot convert markdown").
			WithPath(p.SourcePath).Build()
	}

	excerpt := p.Excerpt
	if excerpt == "" {
		excerpt = markdown.Excerpt(converted.HTML, 0)
	}
	pageMap := bindings["page"].(orderedMap)
	pageMap["body"] = converted.HTML
	pageMap["toc"] = tocToAny(converted.TOC)
	pageMap["excerpt"] = excerpt

	out, serr := tpl.Render(bindings)
	if serr != nil {
		return Rendered{}, errors.WrapError(serr, errors.CategoryTemplateRender, "cannot render template").
			WithPath(p.SourcePath).WithContext("template", tplPath).Build()
	}
	return Rendered{HTML: out, TOC: converted.TOC, Excerpt: excerpt}, nil
}

// RenderString renders a standalone template source against bindings.
func (e *Engine) RenderString(src, name string, bindings map[string]any) (string, error) {
	return e.renderString(src, name, bindings)
}

func (e *Engine) renderString(src, name string, bindings map[string]any) (string, error) {
	tpl, serr := e.liquid.ParseTemplateLocation([]byte(src), name, 1)
	if serr != nil {
		return "", serr
	}
	out, serr := tpl.Render(bindings)
	if serr != nil {
		return "", serr
	}
	return string(out), nil
}

func (e *Engine) template(filePath string) (*liquid.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tpl, ok := e.templates[filePath]; ok {
		return tpl, nil
	}
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	tpl, serr := e.liquid.ParseTemplateLocation(src, filepath.Base(filePath), 1)
	if serr != nil {
		return nil, serr
	}
	e.templates[filePath] = tpl
	return tpl, nil
}
