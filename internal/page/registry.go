package page

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// RootSection groups pages that live directly under the content root.
const RootSection = "root"

// TagIndex maps a tag to the pages declaring it, in registry order.
type TagIndex map[string][]ID

// Lookup returns the pages tagged with tag. Unknown tags yield an empty slice.
func (t TagIndex) Lookup(tag string) []ID {
	ids, ok := t[tag]
	if !ok {
		return []ID{}
	}
	return slices.Clone(ids)
}

// Names returns every tag in sorted order.
func (t TagIndex) Names() []string {
	return slices.Sorted(maps.Keys(t))
}

// Registry is the set of pages of one build pass. Pages are added while
// parsing; Seal derives the tag index once all pages are known. A sealed
// registry is read-only and safe for concurrent readers.
type Registry struct {
	pages    []*Page
	byID     map[ID]*Page
	byOutput map[string]ID
	tags     TagIndex
	sealed   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[ID]*Page),
		byOutput: make(map[string]ID),
	}
}

// Add registers p. Two pages mapping to the same output file are a fatal
// output collision.
func (r *Registry) Add(p *Page) error {
	if r.sealed {
		return errors.InternalError("registry is sealed").WithPath(p.SourcePath).Build()
	}
	if _, dup := r.byID[p.ID]; dup {
		return errors.CollisionError(fmt.Sprintf("page %s registered twice", p.ID)).
			WithPath(p.SourcePath).Build()
	}
	if other, clash := r.byOutput[p.OutputPath]; clash {
		return errors.CollisionError(fmt.Sprintf("%s and %s both render to %s", other, p.ID, p.OutputPath)).
			WithPath(p.SourcePath).
			WithContext("output", p.OutputPath).
			WithContext("other", string(other)).
			Build()
	}
	r.pages = append(r.pages, p)
	r.byID[p.ID] = p
	r.byOutput[p.OutputPath] = p.ID
	return nil
}

// Seal builds the tag index. Adding pages afterwards fails.
func (r *Registry) Seal() {
	if r.sealed {
		return
	}
	tags := make(TagIndex)
	for _, p := range r.pages {
		seen := make(map[string]struct{}, len(p.Tags))
		for _, tag := range p.Tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags[tag] = append(tags[tag], p.ID)
		}
	}
	r.tags = tags
	r.sealed = true
}

// Sealed reports whether Seal has run.
func (r *Registry) Sealed() bool { return r.sealed }

// Get looks a page up by ID.
func (r *Registry) Get(id ID) (*Page, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the pages in the order they were added.
func (r *Registry) All() []*Page {
	return slices.Clone(r.pages)
}

// Len returns the number of pages.
func (r *Registry) Len() int { return len(r.pages) }

// Tags returns the tag index. It is nil until the registry is sealed.
func (r *Registry) Tags() TagIndex { return r.tags }

// ByTag returns the pages tagged with tag, in registry order.
func (r *Registry) ByTag(tag string) []*Page {
	ids := r.tags.Lookup(tag)
	out := make([]*Page, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Sections groups pages by section for listing, skipping exclude, pages
// that are not emitted and index pages. Top-level pages are grouped under
// RootSection. Pages are ordered newest first, then by route.
func (r *Registry) Sections(exclude ID) map[string][]*Page {
	out := make(map[string][]*Page)
	for _, p := range r.pages {
		if p.ID == exclude || !p.Emit || p.IsIndex() {
			continue
		}
		key := p.Section
		if key == "" {
			key = RootSection
		}
		out[key] = append(out[key], p)
	}
	for _, pages := range out {
		slices.SortStableFunc(pages, func(a, b *Page) int {
			if c := b.Published.Compare(a.Published); c != 0 {
				return c
			}
			return cmp.Compare(a.Route, b.Route)
		})
	}
	return out
}
