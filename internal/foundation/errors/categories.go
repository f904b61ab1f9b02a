package errors

// ErrorCategory classifies a failure for reporting and exit codes.
type ErrorCategory string

const (
	// CategoryConfig represents an invalid or unreadable site configuration.
	CategoryConfig     ErrorCategory = "config_invalid"
	CategoryValidation ErrorCategory = "validation"

	// CategoryIO represents unreadable roots and unwritable output.
	CategoryIO              ErrorCategory = "io_failure"
	CategoryOutputCollision ErrorCategory = "output_collision"

	// Page-local categories. A page failing with one of these is skipped and
	// reported; the rest of the site still builds.
	CategoryMalformedFrontmatter ErrorCategory = "malformed_frontmatter"
	CategoryMissingField         ErrorCategory = "missing_required_field"
	CategoryTemplateNotFound     ErrorCategory = "template_not_found"
	CategoryTemplateRender       ErrorCategory = "template_render_error"
	CategoryMarkdown             ErrorCategory = "markdown_conversion_failure"

	CategoryNetwork  ErrorCategory = "network"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// IsPageLocal reports whether errors of this category are confined to a single page.
func (c ErrorCategory) IsPageLocal() bool {
	switch c {
	case CategoryMalformedFrontmatter, CategoryMissingField, CategoryTemplateNotFound,
		CategoryTemplateRender, CategoryMarkdown:
		return true
	default:
		return false
	}
}

// ExitCode is the process exit status for a run that ended with c.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2 // invalid usage
	case CategoryConfig:
		return 7
	case CategoryNetwork:
		return 8
	case CategoryInternal:
		return 10
	case CategoryIO, CategoryOutputCollision:
		return 11 // build aborted
	case CategoryRuntime:
		return 12
	default:
		// Page-local failures: the site was built, but not completely.
		return 1
	}
}

// ErrorSeverity indicates whether a failure aborts the run.
type ErrorSeverity string

const (
	SeverityFatal ErrorSeverity = "fatal" // aborts the whole run
	SeverityError ErrorSeverity = "error" // fails the current item
)

// ErrorContext carries structured details such as the offending path.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}
