package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultPartial ResultLabel = "partial"
	ResultFatal   ResultLabel = "fatal"
)

// Recorder defines observability hooks for builds and the dev server.
// Implementations may forward to Prometheus or anything else; NoopRecorder
// is the default so callers never need nil checks.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|partial|failed
	AddPagesRendered(n int)
	IncPageFailure(category string)
	IncRebuild()
	IncReloadBroadcast()
	SetConnectedClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) AddPagesRendered(int)                       {}
func (NoopRecorder) IncPageFailure(string)                      {}
func (NoopRecorder) IncRebuild()                                {}
func (NoopRecorder) IncReloadBroadcast()                        {}
func (NoopRecorder) SetConnectedClients(int)                    {}
