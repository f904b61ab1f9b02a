package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"usage error", ValidationError("bad flag").Build(), 2},
		{"config error", ConfigError("bad config").Build(), 7},
		{"network error", NewError(CategoryNetwork, "clone").Build(), 8},
		{"io failure", IOError("root unreadable").Build(), 11},
		{"output collision", CollisionError("two pages").Build(), 11},
		{"page failure", PageError(CategoryTemplateRender, "a.md", "boom").Build(), 1},
		{"wrapped config error", fmt.Errorf("load: %w", ConfigError("bad").Build()), 7},
		{"unclassified error", errors.New("unknown error"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	got := adapter.FormatError(PageError(CategoryMissingField, "posts/a.md", "missing required field").Build())
	require.Equal(t, "Error (missing_required_field): missing required field [posts/a.md]", got)
	require.Equal(t, "Error: plain", adapter.FormatError(errors.New("plain")))
	require.Empty(t, adapter.FormatError(nil))

	verbose := NewCLIErrorAdapter(true, slog.Default())
	require.Contains(t, verbose.FormatError(IOError("disk").Build()), "[io_failure:fatal]")
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out, logs bytes.Buffer
	code := -1
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(nil)
	require.Equal(t, -1, code)

	adapter.HandleError(ConfigError("content_dir is required").Build())
	require.Equal(t, 7, code)
	require.Contains(t, out.String(), "content_dir is required")
	require.Contains(t, logs.String(), "category=config_invalid")
}
