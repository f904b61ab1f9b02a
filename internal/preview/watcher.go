package preview

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/weaving/internal/build"
	"git.home.luguber.info/inful/weaving/internal/config"
	"git.home.luguber.info/inful/weaving/internal/content"
	"git.home.luguber.info/inful/weaving/internal/events"
	"git.home.luguber.info/inful/weaving/internal/logfields"
)

// Watcher publishes a ChangeDetected for every relevant file event under
// the site's base directory. The build directory, watch excludes and editor
// temp files are ignored.
type Watcher struct {
	root     string
	buildDir string
	excludes *content.ExcludeSet
	bus      *events.Bus
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher watches cfg.BaseDir recursively.
func NewWatcher(cfg *config.SiteConfig, bus *events.Bus, logger *slog.Logger) (*Watcher, error) {
	excludes, err := content.NewExcludeSet(cfg.ServeConfig.WatchExcludes)
	if err != nil {
		return nil, fmt.Errorf("watch excludes: %w", err)
	}
	root, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	buildDir, err := filepath.Abs(cfg.BuildPath())
	if err != nil {
		return nil, fmt.Errorf("resolve build dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{root: root, buildDir: buildDir, excludes: excludes, bus: bus, logger: logger, fsw: fsw}
	if err := w.addDirs(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run forwards file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirs(ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	err := w.bus.Publish(ctx, events.ChangeDetected{Path: ev.Name, Op: ev.Op.String(), At: time.Now()})
	if err != nil && ctx.Err() == nil {
		w.logger.Warn("Dropping change event", logfields.Path(ev.Name), logfields.Error(err))
	}
}

func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// ignored reports whether path never affects the build.
func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	if abs == w.buildDir || strings.HasPrefix(abs, w.buildDir+string(filepath.Separator)) {
		return true
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if w.excludes.Match(rel) {
		return true
	}
	return ignoredName(filepath.Base(abs))
}

// ignoredName matches editor swap files, lock files and hidden files.
// .well-known is hidden but copied into the site, so it is watched.
func ignoredName(base string) bool {
	if base == build.WellKnownDir {
		return false
	}
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
