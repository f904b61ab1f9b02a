// Package metrics provides build and dev server metrics behind a small
// Recorder interface.
//
// Components take a Recorder and default to NoopRecorder:
//
//	orch := build.NewOrchestrator(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The dev server exposes the registry at /metrics through HTTPHandler.
package metrics
