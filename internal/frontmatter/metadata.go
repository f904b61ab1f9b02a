package frontmatter

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// Metadata is the validated frontmatter of one content file.
type Metadata struct {
	Title       string
	Tags        []string
	Keywords    []string
	Description string
	Template    string
	Emit        bool
	Excerpt     string
	// Published and LastUpdated are zero when the author did not set them.
	Published   time.Time
	LastUpdated time.Time
	// User holds every key not listed above, exposed to templates as page.user.
	User map[string]Value
	// Raw is the YAML block exactly as written, without delimiters.
	Raw string
}

const (
	FieldTitle       = "title"
	FieldTags        = "tags"
	FieldKeywords    = "keywords"
	FieldDescription = "description"
	FieldTemplate    = "template"
	FieldEmit        = "emit"
	FieldExcerpt     = "excerpt"
	FieldPublished   = "published"
	FieldLastUpdated = "last_updated"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse splits raw into metadata and body and validates the required fields.
// path is only used to annotate errors.
//
// A document without a frontmatter block fails with a missing title.
func Parse(path string, raw []byte) (Metadata, string, error) {
	fm, body, had, err := Split(raw)
	if err != nil {
		return Metadata{}, "", errors.WrapError(err, errors.CategoryMalformedFrontmatter, "malformed frontmatter").
			WithPath(path).Build()
	}
	if !had {
		return Metadata{}, "", missing(path, FieldTitle)
	}

	fields, err := Decode(fm)
	if err != nil {
		return Metadata{}, "", errors.WrapError(err, errors.CategoryMalformedFrontmatter, "frontmatter is not valid YAML").
			WithPath(path).Build()
	}

	meta, err := decode(path, fields)
	if err != nil {
		return Metadata{}, "", err
	}
	meta.Raw = string(fm)
	return meta, string(body), nil
}

func decode(path string, fields map[string]any) (Metadata, error) {
	meta := Metadata{Emit: true, User: map[string]Value{}}

	rawTitle, ok := fields[FieldTitle]
	if !ok {
		return meta, missing(path, FieldTitle)
	}
	rawTags, ok := fields[FieldTags]
	if !ok {
		return meta, missing(path, FieldTags)
	}

	var err error
	if meta.Title, err = scalarString(rawTitle); err != nil {
		return meta, malformed(path, FieldTitle, err)
	}
	if meta.Tags, err = stringList(rawTags); err != nil {
		return meta, malformed(path, FieldTags, err)
	}

	for key, raw := range fields {
		switch key {
		case FieldTitle, FieldTags:
		case FieldKeywords:
			meta.Keywords, err = stringList(raw)
		case FieldDescription:
			meta.Description, err = scalarString(raw)
		case FieldTemplate:
			meta.Template, err = scalarString(raw)
		case FieldExcerpt:
			meta.Excerpt, err = scalarString(raw)
		case FieldEmit:
			b, isBool := raw.(bool)
			if !isBool {
				err = fmt.Errorf("expected a boolean, got %T", raw)
			}
			meta.Emit = b
		case FieldPublished:
			meta.Published, err = parseDate(raw)
		case FieldLastUpdated:
			meta.LastUpdated, err = parseDate(raw)
		default:
			meta.User[key], err = FromAny(raw)
		}
		if err != nil {
			return meta, malformed(path, key, err)
		}
	}
	meta.Template = strings.TrimSpace(meta.Template)
	return meta, nil
}

func missing(path, field string) error {
	return errors.PageError(errors.CategoryMissingField, path, "missing required field "+field).
		WithContext("field", field).
		Build()
}

func malformed(path, field string, cause error) error {
	return errors.WrapError(cause, errors.CategoryMalformedFrontmatter, "invalid value for "+field).
		WithPath(path).
		WithContext("field", field).
		Build()
}

func scalarString(raw any) (string, error) {
	switch t := raw.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", raw)
	}
}

func stringList(raw any) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", raw)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := scalarString(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

var errEmptyDate = stderrors.New("empty date")

func parseDate(raw any) (time.Time, error) {
	switch t := raw.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, errEmptyDate
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	default:
		return time.Time{}, fmt.Errorf("expected a date, got %T", raw)
	}
}
