// Package scaffold creates new sites from starter templates kept in git
// repositories.
package scaffold

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/otiai10/copy"

	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/logfields"
	"git.home.luguber.info/inful/weaving/internal/retry"
)

// DefaultTemplate is used when no template is named.
const DefaultTemplate = "default"

// Templates maps template names to their repositories.
var Templates = map[string]string{
	DefaultTemplate: "https://github.com/davemackintosh/weaving-default-site",
}

// Options describes one scaffold request.
type Options struct {
	// Name of the new site directory, created under Path.
	Name string
	// Path is the parent directory; defaults to ".".
	Path string
	// Template is a key of Templates, a URL or a local repository path.
	Template string

	Retry    retry.Policy
	Progress io.Writer
	Logger   *slog.Logger
}

func (o Options) validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Name, validation.Required, validation.By(plainName)),
	)
}

func plainName(value any) error {
	name, _ := value.(string)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.New("must be a plain directory name")
	}
	return nil
}

// New clones the template into <Path>/<Name> and returns the absolute
// path of the new site. The destination must not exist or be empty; the
// template's git metadata is not kept.
func New(ctx context.Context, opts Options) (string, error) {
	if err := opts.validate(); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryValidation, "invalid site name").Build()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy()
	}

	url, err := resolveTemplate(opts.Template)
	if err != nil {
		return "", err
	}
	parent, err := filepath.Abs(cmp.Or(opts.Path, "."))
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryIO, "resolve path").Build()
	}
	target := filepath.Join(parent, opts.Name)
	if err := ensureEmpty(target); err != nil {
		return "", err
	}

	tmp, err := os.MkdirTemp("", "weaving-template-*")
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryIO, "create temporary directory").Build()
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	opts.Logger.Info("Creating new site", logfields.Name(opts.Name), logfields.URL(url), logfields.Path(target))
	checkout := filepath.Join(tmp, "src")
	var repository *git.Repository
	err = opts.Retry.Do(ctx, func() error {
		if rmErr := os.RemoveAll(checkout); rmErr != nil {
			return rmErr
		}
		var cloneErr error
		repository, cloneErr = git.PlainCloneContext(ctx, checkout, false, cloneOptions(url, opts.Progress))
		return cloneErr
	}, isPermanentCloneError, func(attempt int, last error) {
		opts.Logger.Warn("Retrying template clone", logfields.URL(url), slog.Int("attempt", attempt), logfields.Error(last))
	})
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to clone template").
			WithContext("url", url).Build()
	}

	if err := copy.Copy(checkout, target, copy.Options{Skip: skipGitDir}); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryIO, "copy template").WithPath(target).Build()
	}

	attrs := []any{logfields.Name(opts.Name), logfields.Path(target)}
	if ref, headErr := repository.Head(); headErr == nil {
		attrs = append(attrs, slog.String("commit", ref.Hash().String()[:8]))
	}
	opts.Logger.Info("Site created", attrs...)
	return target, nil
}

func resolveTemplate(name string) (string, error) {
	if name == "" {
		name = DefaultTemplate
	}
	if url, ok := Templates[name]; ok {
		return url, nil
	}
	if strings.Contains(name, "://") || strings.HasPrefix(name, "git@") || filepath.IsAbs(name) {
		return name, nil
	}
	return "", ferrors.ValidationError("unknown template "+name).
		WithContext("known", strings.Join(slices.Sorted(maps.Keys(Templates)), ", ")).Build()
}

func ensureEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return ferrors.WrapError(err, ferrors.CategoryIO, "inspect destination").WithPath(dir).Build()
	case len(entries) > 0:
		return ferrors.ValidationError("destination directory already exists and is not empty").
			WithPath(dir).Build()
	}
	return nil
}

func cloneOptions(url string, progress io.Writer) *git.CloneOptions {
	opts := &git.CloneOptions{URL: url, Progress: progress}
	// Shallow fetches are only requested from remote transports.
	if !isLocal(url) {
		opts.Depth = 1
		opts.SingleBranch = true
	}
	return opts
}

func isLocal(url string) bool {
	return strings.HasPrefix(url, "file://") || filepath.IsAbs(url)
}

func skipGitDir(info os.FileInfo, _, _ string) (bool, error) {
	return info.IsDir() && info.Name() == git.GitDirName, nil
}

// isPermanentCloneError reports failures a retry cannot fix.
func isPermanentCloneError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, permanent := range []error{
		transport.ErrAuthenticationRequired,
		transport.ErrAuthorizationFailed,
		transport.ErrRepositoryNotFound,
		transport.ErrEmptyRemoteRepository,
		transport.ErrInvalidAuthMethod,
	} {
		if errors.Is(err, permanent) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "unsupported protocol") ||
		strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return !nerr.Timeout()
	}
	return false
}
