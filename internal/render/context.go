package render

import (
	"maps"

	"git.home.luguber.info/inful/weaving/internal/config"
	"git.home.luguber.info/inful/weaving/internal/markdown"
	"git.home.luguber.info/inful/weaving/internal/page"
)

// Site holds the per-build values shared by every page's render context.
// Summaries are computed once and only ever read afterwards.
type Site struct {
	registry  *page.Registry
	site      orderedMap
	summaries map[page.ID]orderedMap
	tags      orderedMap
	extraCSS  string
}

// NewSite prepares the shared context for a sealed registry.
func NewSite(cfg *config.SiteConfig, reg *page.Registry, extraCSS string) *Site {
	s := &Site{
		registry:  reg,
		site:      siteMap(cfg),
		summaries: make(map[page.ID]orderedMap, reg.Len()),
		tags:      make(orderedMap),
		extraCSS:  extraCSS,
	}
	for _, p := range reg.All() {
		s.summaries[p.ID] = summary(p)
	}
	for _, tag := range reg.Tags().Names() {
		s.tags[tag] = s.list(reg.ByTag(tag))
	}
	return s
}

func (s *Site) list(pages []*page.Page) []any {
	out := make([]any, 0, len(pages))
	for _, p := range pages {
		out = append(out, s.summaries[p.ID])
	}
	return out
}

// bindings returns a fresh render context for p:
//
//	page       the page itself, with user fields under page.user
//	site       the public part of the site configuration (also as site_config)
//	tags       tag -> pages declaring it
//	content    section -> other pages of that section, newest first
//	extra_css  stylesheet for highlighted code
//
// Maps iterate in key order. page.body and page.toc are filled in once the
// body has been converted; like extra_css they are plain strings, so
// templates print HTML with the raw filter.
func (s *Site) bindings(p *page.Page) map[string]any {
	content := make(orderedMap)
	for section, pages := range s.registry.Sections(p.ID) {
		content[section] = s.list(pages)
	}
	pageMap := maps.Clone(s.summaries[p.ID])
	pageMap["body"] = ""
	pageMap["toc"] = []any{}
	return map[string]any{
		"page":        pageMap,
		"site":        s.site,
		"site_config": s.site,
		"tags":        s.tags,
		"content":     content,
		"extra_css":   s.extraCSS,
	}
}

func summary(p *page.Page) orderedMap {
	user := make(orderedMap, len(p.User))
	for k, v := range p.User {
		user[k] = ordered(v.Interface())
	}
	return orderedMap{
		"id":           string(p.ID),
		"route":        p.Route,
		"section":      p.Section,
		"source_path":  p.SourcePath,
		"title":        p.Title,
		"description":  p.Description,
		"tags":         stringsToAny(p.Tags),
		"keywords":     stringsToAny(p.Keywords),
		"template":     p.Template,
		"excerpt":      p.Excerpt,
		"emit":         p.Emit,
		"published":    p.Published,
		"last_updated": p.LastUpdated,
		"fingerprint":  p.Fingerprint,
		"user":         user,
	}
}

func siteMap(cfg *config.SiteConfig) orderedMap {
	return orderedMap{
		"version":             cfg.Version,
		"base_url":            cfg.BaseURL,
		"content_dir":         cfg.ContentDir,
		"template_dir":        cfg.TemplateDir,
		"partials_dir":        cfg.PartialsDir,
		"public_dir":          cfg.PublicDir,
		"build_dir":           cfg.BuildDir,
		"templating_language": cfg.TemplatingLanguage,
	}
}

func tocToAny(toc []markdown.Heading) []any {
	out := make([]any, 0, len(toc))
	for _, h := range toc {
		out = append(out, orderedMap{"depth": h.Depth, "text": h.Text, "slug": h.Slug})
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
