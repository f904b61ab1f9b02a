// Package events carries the control-flow events of the dev server between
// the watcher, the rebuild loop and the reload broadcaster. Nothing here is
// durable.
package events

import "time"

// ChangeDetected is published by the watcher for every file event that may
// affect the built site.
type ChangeDetected struct {
	Path string
	Op   string
	At   time.Time
}

// BuildCompleted is published after every rebuild, successful or not.
// Seq increases by one per rebuild.
type BuildCompleted struct {
	Seq      uint64
	Outcome  string
	Pages    int
	Failures int
	Duration time.Duration
	Err      error
}
