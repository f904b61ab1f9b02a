package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/weaving/internal/build"
	"git.home.luguber.info/inful/weaving/internal/config"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Path      string `short:"p" name:"path" env:"WEAVING_BASE_PATH" default:"." type:"path" help:"Project root containing weaving.toml."`
	ReportDir string `name:"report-dir" type:"path" help:"Also write build-report.json into this directory."`
	Workers   int    `name:"workers" help:"Pages parsed and rendered in parallel (default: number of CPUs)."`
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadSite(b.Path, g.logger())
	if err != nil {
		return err
	}
	_, err = RunBuild(ctx, g.out(), cfg, BuildOptions{
		ReportDir: b.ReportDir,
		Workers:   b.Workers,
		Logger:    g.logger(),
	})
	return err
}

// BuildOptions tunes RunBuild.
type BuildOptions struct {
	ReportDir string
	Workers   int
	Logger    *slog.Logger
}

// RunBuild builds the site once and prints its diagnostics and summary to
// out. The error is non-nil when the build aborted or any page failed.
func RunBuild(ctx context.Context, out io.Writer, cfg *config.SiteConfig, opts BuildOptions) (*build.Report, error) {
	_, _ = fmt.Fprintf(out, "Building %s\n", cfg.BaseDir)

	report, err := build.New(cfg,
		build.WithLogger(opts.Logger),
		build.WithWorkers(opts.Workers),
	).Build(ctx)

	for _, line := range report.Diagnostics() {
		_, _ = fmt.Fprintln(out, line)
	}
	if report.Fatal != "" {
		_, _ = fmt.Fprintf(out, "fatal: %s\n", report.Fatal)
	}
	_, _ = fmt.Fprintln(out, report.Summary())

	if opts.ReportDir != "" {
		if perr := report.Persist(opts.ReportDir); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return report, err
	}
	if len(report.Errors) > 0 {
		first := report.Errors[0]
		return report, ferrors.NewError(first.Kind, fmt.Sprintf("%d page(s) failed to build", len(report.Errors))).
			WithPath(first.Path).Build()
	}
	_, _ = fmt.Fprintf(out, "Site written to %s\n", cfg.BuildPath())
	return report, nil
}
