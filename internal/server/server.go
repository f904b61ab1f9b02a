// Package server implements the development server: it serves the build
// directory, injects the live-reload client into HTML pages and keeps the
// site rebuilt while sources change.
package server

import (
	"cmp"
	"context"
	"embed"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/weaving/internal/config"
	"git.home.luguber.info/inful/weaving/internal/events"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
	"git.home.luguber.info/inful/weaving/internal/livereload"
	"git.home.luguber.info/inful/weaving/internal/logfields"
	"git.home.luguber.info/inful/weaving/internal/metrics"
	"git.home.luguber.info/inful/weaving/internal/preview"
)

//go:embed assets/reload.js assets/sw.js
var assets embed.FS

const (
	// ReloadScriptPath serves the page-side reload client.
	ReloadScriptPath = "/__weaving/reload.js"
	// ServiceWorkerPath serves the worker that holds the reload socket.
	ServiceWorkerPath = "/__weaving/sw.js"
	// SocketPath is the WebSocket endpoint reload clients connect to.
	SocketPath = "/ws"
	// MetricsPath exposes Prometheus metrics when a registry is configured.
	MetricsPath = "/metrics"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Options carries the collaborators of a DevServer.
type Options struct {
	Session *preview.Session
	Bus     *events.Bus
	Hub     *livereload.Hub

	// Metrics, when set, is served on MetricsPath.
	Metrics *prom.Registry
	Logger  *slog.Logger
	// Address overrides serve_config.address when set.
	Address string
	// Window is the debounce window for rebuilds; zero means
	// preview.DefaultWindow.
	Window time.Duration
}

// DevServer serves a site and rebuilds it on change.
type DevServer struct {
	cfg     *config.SiteConfig
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

// New validates opts and assembles the HTTP handler.
func New(cfg *config.SiteConfig, opts Options) (*DevServer, error) {
	if cfg == nil {
		return nil, ferrors.ValidationError("site configuration is required").Build()
	}
	if opts.Session == nil || opts.Bus == nil || opts.Hub == nil {
		return nil, ferrors.ValidationError("dev server requires a session, a bus and a reload hub").Build()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Window <= 0 {
		opts.Window = preview.DefaultWindow
	}
	s := &DevServer{cfg: cfg, opts: opts, logger: opts.Logger}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *DevServer) Handler() http.Handler { return s.handler }

func (s *DevServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(SocketPath, s.opts.Hub)
	mux.HandleFunc(ReloadScriptPath, serveAsset("assets/reload.js", nil))
	mux.HandleFunc(ServiceWorkerPath, serveAsset("assets/sw.js", map[string]string{
		"Service-Worker-Allowed": "/",
	}))
	if s.opts.Metrics != nil {
		mux.Handle(MetricsPath, metrics.HTTPHandler(s.opts.Metrics))
	}
	mux.Handle("/", injectReloadScript(staticHandler{
		root:       s.cfg.BuildPath(),
		lastReport: s.opts.Session.LastReport,
	}))
	return chain(s.logger)(mux)
}

func serveAsset(name string, headers map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := assets.ReadFile(name)
		if err != nil {
			http.Error(w, "asset missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		_, _ = w.Write(data)
	}
}

// Addr is the address Run listens on.
func (s *DevServer) Addr() string {
	return cmp.Or(s.opts.Address, s.cfg.ServeConfig.Address)
}

// Run performs an initial build, then watches, rebuilds and serves until
// ctx is canceled. A failing initial build is reported but does not stop
// the server.
func (s *DevServer) Run(ctx context.Context) error {
	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "listen").
			WithContext("address", addr).Fatal().Build()
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *DevServer) Serve(ctx context.Context, ln net.Listener) error {
	watcher, err := preview.NewWatcher(s.cfg, s.opts.Bus, s.logger)
	if err != nil {
		_ = ln.Close()
		return err
	}

	builds, unsubscribe := events.Subscribe[events.BuildCompleted](s.opts.Bus, 16)
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.opts.Hub.Follow(gctx, builds)
		return nil
	})

	if report, err := s.opts.Session.Rebuild(gctx); err != nil {
		s.logger.Error("Initial build failed", logfields.Error(err))
	} else {
		s.logger.Info("Initial build complete", slog.String("summary", report.Summary()))
	}

	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return s.opts.Session.Watch(gctx, s.opts.Window) })

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		s.logger.Info("Serving site", logfields.Addr("http://"+ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return ferrors.WrapError(err, ferrors.CategoryNetwork, "serve").Build()
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Hijacked WebSocket connections are closed by the hub, not by
		// http.Server.Shutdown.
		s.opts.Hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP server shutdown", logfields.Error(err))
		}
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil && err == nil {
		s.logger.Info("Dev server stopped")
	}
	return err
}
