package metrics

import (
	"testing"
	"time"
)

// Compile-time checks that both implementations satisfy Recorder.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("render", time.Millisecond)
	r.ObserveBuildDuration(time.Second)
	r.IncBuildOutcome("success")
	r.AddPagesRendered(3)
	r.IncPageFailure("template_not_found")
	r.IncRebuild()
	r.IncReloadBroadcast()
	r.SetConnectedClients(2)
}
