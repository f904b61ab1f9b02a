package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	err := ConfigError("invalid configuration").WithContext("file", "weaving.toml").Build()
	require.Equal(t, CategoryConfig, err.Category())
	require.Equal(t, SeverityFatal, err.Severity())
	file, ok := err.Context().GetString("file")
	require.True(t, ok)
	require.Equal(t, "weaving.toml", file)
	require.Equal(t, "[config_invalid:fatal] invalid configuration", err.Error())
}

func TestClassifiedError_DetectedThroughWrapping(t *testing.T) {
	err := fmt.Errorf("building: %w", PageError(CategoryTemplateNotFound, "a.md", "no template").Build())

	require.True(t, HasCategory(err, CategoryTemplateNotFound))
	require.False(t, IsFatal(err))
	require.Equal(t, CategoryTemplateNotFound, GetCategory(err))
	require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	require.False(t, IsFatal(errors.New("plain")))
}

func TestWrapError_KeepsCause(t *testing.T) {
	original := errors.New("permission denied")
	err := WrapError(original, CategoryIO, "cannot write").Fatal().Build()

	require.ErrorIs(t, err, original)
	require.True(t, err.IsFatal())
	require.Equal(t, original, err.Cause())
	require.ErrorIs(t, err, IOError("cannot write").Build())
}

func TestBuilder_BuildSnapshotsContext(t *testing.T) {
	b := ValidationError("bad").WithPath("a.md")
	first := b.Build()
	second := b.WithPath("b.md").Build()

	p, _ := first.Context().GetString("path")
	require.Equal(t, "a.md", p)
	p, _ = second.Context().GetString("path")
	require.Equal(t, "b.md", p)
}

func TestCategory_IsPageLocal(t *testing.T) {
	for _, c := range []ErrorCategory{
		CategoryMalformedFrontmatter, CategoryMissingField, CategoryTemplateNotFound,
		CategoryTemplateRender, CategoryMarkdown,
	} {
		require.True(t, c.IsPageLocal(), c)
		require.Equal(t, 1, c.ExitCode(), c)
	}
	for _, c := range []ErrorCategory{CategoryIO, CategoryConfig, CategoryOutputCollision} {
		require.False(t, c.IsPageLocal(), c)
	}
}
