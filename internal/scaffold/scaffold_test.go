package scaffold

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/retry"
)

// templateRepo creates a local repository holding a minimal starter site.
func templateRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	files := map[string]string{
		"weaving.toml":             "version = 1\n",
		"content/index.md":         "---\ntitle: Home\ntags: []\n---\nWelcome\n",
		"templates/default.liquid":  "<html><body>{{ page.body | raw }}</body></html>",
	}
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for rel, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err = wt.Add(rel)
		require.NoError(t, err)
	}
	_, err = wt.Commit("starter", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fastRetry() retry.Policy {
	return retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 0)
}

func TestNew_ClonesTemplateWithoutGitDir(t *testing.T) {
	src := templateRepo(t)
	parent := t.TempDir()

	target, err := New(context.Background(), Options{
		Name: "blog", Path: parent, Template: src, Retry: fastRetry(), Logger: quiet(),
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(parent, "blog"), target)

	data, err := os.ReadFile(filepath.Join(target, "content", "index.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "Welcome")
	require.FileExists(t, filepath.Join(target, "weaving.toml"))
	require.NoDirExists(t, filepath.Join(target, ".git"))
}

func TestNew_RefusesNonEmptyDestination(t *testing.T) {
	src := templateRepo(t)
	parent := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "blog"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "blog", "keep.txt"), []byte("x"), 0o644))

	_, err := New(context.Background(), Options{Name: "blog", Path: parent, Template: src, Retry: fastRetry(), Logger: quiet()})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	data, err := os.ReadFile(filepath.Join(parent, "blog", "keep.txt"))
	require.NoError(t, err)
	require.Equal(t, "x", string(data))
}

func TestNew_EmptyDestinationIsAccepted(t *testing.T) {
	src := templateRepo(t)
	parent := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(parent, "blog"), 0o755))

	_, err := New(context.Background(), Options{Name: "blog", Path: parent, Template: src, Retry: fastRetry(), Logger: quiet()})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(parent, "blog", "weaving.toml"))
}

func TestNew_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing name", Options{}},
		{"nested name", Options{Name: "a/b"}},
		{"parent name", Options{Name: ".."}},
		{"unknown template", Options{Name: "site", Template: "fancy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Path = t.TempDir()
			tt.opts.Logger = quiet()
			_, err := New(context.Background(), tt.opts)
			require.Error(t, err)
			require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestResolveTemplate(t *testing.T) {
	url, err := resolveTemplate("")
	require.NoError(t, err)
	require.Equal(t, Templates[DefaultTemplate], url)

	url, err = resolveTemplate("https://example.com/starter.git")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/starter.git", url)
}

func TestCloneOptions(t *testing.T) {
	remote := cloneOptions("https://example.com/starter.git", nil)
	require.Equal(t, 1, remote.Depth)
	require.True(t, remote.SingleBranch)

	local := cloneOptions("/srv/templates/starter", nil)
	require.Zero(t, local.Depth)
}

func TestIsPermanentCloneError(t *testing.T) {
	require.True(t, isPermanentCloneError(transport.ErrRepositoryNotFound))
	require.True(t, isPermanentCloneError(transport.ErrAuthenticationRequired))
	require.True(t, isPermanentCloneError(context.Canceled))
	require.False(t, isPermanentCloneError(errors.New("connection reset by peer")))
	require.False(t, isPermanentCloneError(nil))
}
