package preview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/weaving/internal/events"
	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// DefaultWindow is the quiet period after the last change before a rebuild.
const DefaultWindow = 250 * time.Millisecond

// State is the debouncer's position in Idle -> Debouncing -> Rebuilding.
type State int32

const (
	StateIdle State = iota
	StateDebouncing
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// Debouncer coalesces bursts of changes into rebuilds.
//
// A change while Idle starts the quiet window; further changes restart it.
// When the window expires the rebuild runs. Changes arriving during a
// rebuild set a pending flag, which forces exactly one more rebuild once
// the current one finishes. At most one rebuild is in flight.
type Debouncer struct {
	window  time.Duration
	rebuild func(ctx context.Context)

	state     atomic.Int32
	readyOnce sync.Once
	ready     chan struct{}
}

func NewDebouncer(window time.Duration, rebuild func(ctx context.Context)) (*Debouncer, error) {
	if window <= 0 {
		return nil, ferrors.ValidationError("debounce window must be > 0").Build()
	}
	if rebuild == nil {
		return nil, ferrors.ValidationError("rebuild func is required").Build()
	}
	return &Debouncer{window: window, rebuild: rebuild, ready: make(chan struct{})}, nil
}

// Ready is closed once Run is consuming changes.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// State returns the current state.
func (d *Debouncer) State() State { return State(d.state.Load()) }

// Run consumes changes until ctx is done or changes is closed. A rebuild in
// flight is waited for before Run returns.
func (d *Debouncer) Run(ctx context.Context, changes <-chan events.ChangeDetected) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	d.readyOnce.Do(func() { close(d.ready) })

	timer := time.NewTimer(d.window)
	timer.Stop()
	var (
		quietC  <-chan time.Time
		doneC   chan struct{}
		pending bool
	)

	start := func() {
		d.state.Store(int32(StateRebuilding))
		doneC = make(chan struct{})
		go func(done chan struct{}) {
			defer close(done)
			d.rebuild(ctx)
		}(doneC)
	}

	for {
		select {
		case <-ctx.Done():
			if doneC != nil {
				<-doneC
			}
			d.state.Store(int32(StateIdle))
			return nil

		case _, ok := <-changes:
			if !ok {
				if doneC != nil {
					<-doneC
				}
				d.state.Store(int32(StateIdle))
				return nil
			}
			if d.State() == StateRebuilding {
				pending = true
				continue
			}
			d.state.Store(int32(StateDebouncing))
			timer.Reset(d.window)
			quietC = timer.C

		case <-quietC:
			quietC = nil
			start()

		case <-doneC:
			doneC = nil
			if pending {
				pending = false
				start()
				continue
			}
			d.state.Store(int32(StateIdle))
		}
	}
}
