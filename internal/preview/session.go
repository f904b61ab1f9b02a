// Package preview keeps a site rebuilt while its sources change.
package preview

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/weaving/internal/build"
	"git.home.luguber.info/inful/weaving/internal/events"
	"git.home.luguber.info/inful/weaving/internal/logfields"
	"git.home.luguber.info/inful/weaving/internal/metrics"
	"git.home.luguber.info/inful/weaving/internal/page"
)

// Builder runs one build pass.
type Builder interface {
	Build(ctx context.Context) (*build.Report, error)
}

// Session serialises rebuilds and publishes a BuildCompleted for each.
// The registry of the last pass that got as far as sealing is swapped in
// as a unit.
type Session struct {
	builder  Builder
	bus      *events.Bus
	recorder metrics.Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	seq      atomic.Uint64
	registry atomic.Pointer[page.Registry]
	report   atomic.Pointer[build.Report]
}

// NewSession creates a session. recorder and logger may be nil.
func NewSession(builder Builder, bus *events.Bus, recorder metrics.Recorder, logger *slog.Logger) *Session {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{builder: builder, bus: bus, recorder: recorder, logger: logger}
}

// Rebuild runs a build and announces it.
func (s *Session) Rebuild(ctx context.Context) (*build.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.builder.Build(ctx)
	if report != nil {
		s.report.Store(report)
		if report.Registry != nil {
			s.registry.Store(report.Registry)
		}
	}
	seq := s.seq.Add(1)
	s.recorder.IncRebuild()

	evt := events.BuildCompleted{Seq: seq, Err: err}
	if report != nil {
		evt.Outcome = string(report.Outcome)
		evt.Pages = report.PagesBuilt
		evt.Failures = len(report.Errors)
		evt.Duration = report.Duration()
		for _, line := range report.Diagnostics() {
			s.logger.Warn("Page failed", slog.String("diagnostic", line))
		}
	}
	if s.bus != nil {
		if perr := s.bus.Publish(ctx, evt); perr != nil && ctx.Err() == nil {
			s.logger.Warn("Build completion not delivered", logfields.Seq(seq), logfields.Error(perr))
		}
	}
	return report, err
}

// rebuildAndLog adapts Rebuild to the debouncer.
func (s *Session) rebuildAndLog(ctx context.Context) {
	s.logger.Info("Change detected; rebuilding site")
	if _, err := s.Rebuild(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Rebuild failed", logfields.Error(err))
	}
}

// Seq returns the number of rebuilds so far.
func (s *Session) Seq() uint64 { return s.seq.Load() }

// Registry returns the registry of the last pass that sealed one, or nil.
func (s *Session) Registry() *page.Registry { return s.registry.Load() }

// LastReport returns the report of the last pass, or nil.
func (s *Session) LastReport() *build.Report { return s.report.Load() }

// Watch runs the debouncer on the bus's change events until ctx is done.
func (s *Session) Watch(ctx context.Context, window time.Duration) error {
	changes, unsubscribe := events.Subscribe[events.ChangeDetected](s.bus, 64)
	defer unsubscribe()

	d, err := NewDebouncer(window, s.rebuildAndLog)
	if err != nil {
		return err
	}
	return d.Run(ctx, changes)
}
