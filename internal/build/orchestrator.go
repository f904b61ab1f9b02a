package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/otiai10/copy"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/weaving/internal/config"
	"git.home.luguber.info/inful/weaving/internal/content"
	werrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/frontmatter"
	"git.home.luguber.info/inful/weaving/internal/logfields"
	"git.home.luguber.info/inful/weaving/internal/markdown"
	"git.home.luguber.info/inful/weaving/internal/metrics"
	"git.home.luguber.info/inful/weaving/internal/page"
	"git.home.luguber.info/inful/weaving/internal/render"
)

// Stage names used for timings and log attributes.
const (
	StageScan     = "scan"
	StageParse    = "parse"
	StageRegister = "register"
	StageRender   = "render"
	StageWrite    = "write"
	StageCopy     = "copy"
	StageTasks    = "tasks"
	StagePrune    = "prune"
)

// Orchestrator runs build passes for one site configuration.
type Orchestrator struct {
	cfg      *config.SiteConfig
	excludes *content.ExcludeSet
	recorder metrics.Recorder
	logger   *slog.Logger
	workers  int
	tasks    []Task
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWorkers bounds how many pages are parsed or rendered at once.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithExcludes skips content paths matched by set. The dev server passes
// the watch excludes; plain builds scan everything.
func WithExcludes(set *content.ExcludeSet) Option {
	return func(o *Orchestrator) { o.excludes = set }
}

// WithTasks replaces the post-build tasks.
func WithTasks(tasks ...Task) Option {
	return func(o *Orchestrator) { o.tasks = tasks }
}

// New creates an orchestrator for cfg.
func New(cfg *config.SiteConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		workers:  runtime.GOMAXPROCS(0),
		tasks:    DefaultTasks(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the configuration the orchestrator builds.
func (o *Orchestrator) Config() *config.SiteConfig { return o.cfg }

// parsed is the outcome of parsing one scanned file.
type parsed struct {
	file content.File
	page *page.Page
	err  error
}

// rendered is the outcome of rendering one page.
type rendered struct {
	page *page.Page
	html []byte
	err  error
}

// Build runs one full pass. The report is always returned, also when the
// pass aborts; the error is non-nil only for build-fatal failures.
func (o *Orchestrator) Build(ctx context.Context) (*Report, error) {
	report := newReport()
	logger := o.logger.With(slog.String("build_id", report.ID))

	err := o.run(ctx, report, logger)
	report.finish(err)

	o.recorder.ObserveBuildDuration(report.Duration())
	o.recorder.IncBuildOutcome(string(report.Outcome))
	for _, fe := range report.Errors {
		o.recorder.IncPageFailure(string(fe.Kind))
	}

	if err != nil {
		logger.Error("Build failed", logfields.Error(err), logfields.Since(report.Start))
		return report, err
	}
	logger.Info("Build finished",
		logfields.Pages(report.PagesBuilt),
		logfields.Failures(len(report.Errors)),
		slog.String("outcome", string(report.Outcome)),
		logfields.Since(report.Start))
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, report *Report, logger *slog.Logger) error {
	// Scan
	stageStart := time.Now()
	files, err := o.scan(report)
	o.stageDone(report, StageScan, stageStart)
	if err != nil {
		return err
	}
	report.Scanned = len(files)
	logger.Debug("Scanned content", logfields.Stage(StageScan), logfields.Pages(len(files)))

	// Parse
	stageStart = time.Now()
	results, err := o.parse(ctx, files)
	o.stageDone(report, StageParse, stageStart)
	if err != nil {
		return err
	}

	// Register and seal. Nothing is written before this point.
	stageStart = time.Now()
	registry := page.NewRegistry()
	for _, res := range results {
		if res.err != nil {
			logger.Warn("Skipping page", logfields.Path(res.file.Rel), logfields.Error(res.err))
			report.addError(res.file.Rel, res.err)
			continue
		}
		if err := registry.Add(res.page); err != nil {
			return err
		}
	}
	registry.Seal()
	report.Registry = registry
	o.stageDone(report, StageRegister, stageStart)

	// Render
	stageStart = time.Now()
	converter := markdown.NewConverter(o.cfg.SyntaxTheme)
	css, err := converter.StyleCSS()
	if err != nil {
		logger.Warn("No stylesheet for syntax theme", slog.String("theme", o.cfg.SyntaxTheme), logfields.Error(err))
		css = ""
	}
	engine, err := render.NewEngine(o.cfg.TemplatePath(), o.cfg.PartialsPath(), converter)
	if err != nil {
		return err
	}
	site := render.NewSite(o.cfg, registry, css)
	outputs, err := o.render(ctx, engine, site, registry.All())
	o.stageDone(report, StageRender, stageStart)
	if err != nil {
		return err
	}

	// Write
	stageStart = time.Now()
	buildDir := o.cfg.BuildPath()
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return werrors.WrapError(err, werrors.CategoryIO, "cannot create build directory").
			Fatal().WithPath(buildDir).Build()
	}
	written := make(outputSet)
	for _, out := range outputs {
		if out.err != nil {
			logger.Warn("Page failed to render", logfields.Path(out.page.SourcePath), logfields.Error(out.err))
			report.addError(out.page.SourcePath, out.err)
			continue
		}
		if !out.page.Emit {
			report.PagesSkipped++
			continue
		}
		target := filepath.Join(buildDir, filepath.FromSlash(out.page.OutputPath))
		if err := writeFileAtomic(target, out.html); err != nil {
			return werrors.WrapError(err, werrors.CategoryIO, "cannot write page").
				Fatal().WithPath(out.page.OutputPath).Build()
		}
		written.add(out.page.OutputPath)
		report.PagesBuilt++
		logger.Debug("Wrote page", logfields.Route(out.page.Route), logfields.Path(out.page.OutputPath))
	}
	o.recorder.AddPagesRendered(report.PagesBuilt)
	o.stageDone(report, StageWrite, stageStart)

	// Copy public/ and partials/ verbatim.
	stageStart = time.Now()
	keep, err := o.copyStatic(buildDir, logger)
	o.stageDone(report, StageCopy, stageStart)
	if err != nil {
		return err
	}

	// Post-build tasks
	stageStart = time.Now()
	tc := &TaskContext{
		Config:    o.cfg,
		Registry:  registry,
		Engine:    engine,
		BuildDir:  buildDir,
		SyntaxCSS: css,
		written:   written,
	}
	for _, task := range o.tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := task.Run(ctx, tc); err != nil {
			logger.Warn("Post-build task failed", slog.String("task", task.Name()), logfields.Error(err))
			report.addError(task.Name(), werrors.WrapError(err, werrors.CategoryIO, "post-build task failed").
				WithContext("task", task.Name()).Build())
		}
	}
	o.stageDone(report, StageTasks, stageStart)

	// Stale pages are only removed after a clean pass, so the last good
	// output of a failing page stays servable.
	if len(report.Errors) == 0 {
		stageStart = time.Now()
		removed, err := pruneStale(buildDir, written, append(keep, WellKnownDir))
		if err != nil {
			logger.Warn("Pruning stale output failed", logfields.Error(err))
		}
		for _, rel := range removed {
			logger.Debug("Removed stale output", logfields.Path(rel))
		}
		o.stageDone(report, StagePrune, stageStart)
	}
	return nil
}

func (o *Orchestrator) stageDone(report *Report, stage string, start time.Time) {
	d := time.Since(start)
	report.StageDurations[stage] = d
	o.recorder.ObserveStageDuration(stage, d)
}

// scan collects the content files in walk order. Non-fatal scan errors are
// recorded against the offending path. A build directory nested in the
// content root is never scanned.
func (o *Orchestrator) scan(report *Report) ([]content.File, error) {
	opts := []content.Option{content.WithExcludes(o.excludes)}
	if rel, err := filepath.Rel(o.cfg.ContentPath(), o.cfg.BuildPath()); err == nil && filepath.IsLocal(rel) {
		opts = append(opts, content.WithSkipPaths(rel))
	}
	scanner := content.NewScanner(o.cfg.ContentPath(), opts...)

	var files []content.File
	for file, err := range scanner.Scan() {
		if err != nil {
			if werrors.IsFatal(err) {
				return nil, err
			}
			path := file.Rel
			if ce, ok := werrors.AsClassified(err); ok && path == "" {
				path, _ = ce.Context().GetString("path")
			}
			report.addError(path, err)
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// parse reads and parses every file on a bounded pool. Results keep the
// order of files.
func (o *Orchestrator) parse(ctx context.Context, files []content.File) ([]parsed, error) {
	results := make([]parsed, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := parseFile(file)
			results[i] = parsed{file: file, page: p, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseFile(file content.File) (*page.Page, error) {
	info, err := os.Stat(file.Path)
	if err != nil {
		return nil, werrors.WrapError(err, werrors.CategoryIO, "cannot stat content file").WithPath(file.Rel).Build()
	}
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, werrors.WrapError(err, werrors.CategoryIO, "cannot read content file").WithPath(file.Rel).Build()
	}
	meta, body, err := frontmatter.Parse(file.Rel, raw)
	if err != nil {
		return nil, err
	}
	return page.New(file.Rel, meta, body, info.ModTime()), nil
}

// render renders every page on a bounded pool. Results keep the order of
// pages.
func (o *Orchestrator) render(ctx context.Context, engine *render.Engine, site *render.Site, pages []*page.Page) ([]rendered, error) {
	results := make([]rendered, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := engine.RenderPage(site, p)
			results[i] = rendered{page: p, html: out.HTML, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// copyStatic copies the public and partials directories into the build
// directory under their base names. It returns the build-relative names of
// the copied trees.
func (o *Orchestrator) copyStatic(buildDir string, logger *slog.Logger) ([]string, error) {
	var copied []string
	for _, src := range []string{o.cfg.PublicPath(), o.cfg.PartialsPath()} {
		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			continue
		}
		name := filepath.Base(src)
		dest := filepath.Join(buildDir, name)
		logger.Debug("Copying static files", logfields.Path(src), slog.String("dest", dest))
		if err := copy.Copy(src, dest); err != nil {
			return copied, werrors.WrapError(err, werrors.CategoryIO, fmt.Sprintf("cannot copy %s", name)).
				Fatal().WithPath(src).Build()
		}
		copied = append(copied, filepath.ToSlash(name))
	}
	return copied, nil
}
