// Package errors provides the classified error type shared by every stage of a
// weaving build.
//
// Categories mirror the build's failure taxonomy: config_invalid and
// io_failure abort a run, while the page-local categories
// (malformed_frontmatter, missing_required_field, template_not_found,
// template_render_error, markdown_conversion_failure) are collected into the
// build report and only fail the process once every page has been attempted.
//
// Example usage:
//
//	err := errors.PageError(errors.CategoryMissingField, "posts/a.md", "missing required field").
//		WithContext("field", "title").
//		Build()
package errors
