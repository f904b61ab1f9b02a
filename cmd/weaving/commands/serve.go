package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/weaving/internal/build"
	"git.home.luguber.info/inful/weaving/internal/content"
	"git.home.luguber.info/inful/weaving/internal/events"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/livereload"
	"git.home.luguber.info/inful/weaving/internal/metrics"
	"git.home.luguber.info/inful/weaving/internal/preview"
	"git.home.luguber.info/inful/weaving/internal/server"
)

// ServeCmd builds the site, serves it and rebuilds on every change.
type ServeCmd struct {
	Path      string `short:"p" name:"path" env:"WEAVING_BASE_PATH" default:"." type:"path" help:"Project root containing weaving.toml."`
	Address   string `short:"a" name:"address" help:"Listen address; overrides serve_config.address."`
	NoMetrics bool   `name:"no-metrics" help:"Do not expose Prometheus metrics on /metrics."`
}

func (s *ServeCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := g.logger()
	cfg, err := loadSite(s.Path, logger)
	if err != nil {
		return err
	}
	excludes, err := content.NewExcludeSet(cfg.ServeConfig.WatchExcludes)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid watch_excludes").Fatal().Build()
	}

	var (
		reg      *prom.Registry
		recorder metrics.Recorder = metrics.NoopRecorder{}
	)
	if !s.NoMetrics {
		reg = prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	bus := events.NewBus()
	defer bus.Close()
	hub := livereload.NewHub(livereload.WithRecorder(recorder), livereload.WithLogger(logger))
	orchestrator := build.New(cfg,
		build.WithExcludes(excludes),
		build.WithRecorder(recorder),
		build.WithLogger(logger))
	session := preview.NewSession(orchestrator, bus, recorder, logger)

	srv, err := server.New(cfg, server.Options{
		Session: session,
		Bus:     bus,
		Hub:     hub,
		Metrics: reg,
		Logger:  logger,
		Address: s.Address,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Site available at http://%s\n", srv.Addr())
	return srv.Run(ctx)
}
