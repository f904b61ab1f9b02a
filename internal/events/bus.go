package events

import (
	"context"
	"reflect"
	"sync"

	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// Bus routes events by their concrete type. Publish blocks until every
// subscriber of that type took the event or ctx is done; Close closes every
// subscription channel.
type Bus struct {
	mu     sync.Mutex
	topics map[reflect.Type][]*subscription
	closed bool
}

// subscription is one typed channel. deliver and shut are bound to the
// channel's element type by Subscribe.
type subscription struct {
	deliver func(ctx context.Context, evt any) error
	shut    func()
}

func NewBus() *Bus {
	return &Bus{topics: make(map[reflect.Type][]*subscription)}
}

// Subscribe returns a channel receiving every published T and a function
// that ends the subscription. On a closed bus the channel is closed at once.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	topic := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	// done releases a blocked delivery so shut can close ch without racing
	// a send.
	var (
		once   sync.Once
		mu     sync.RWMutex
		closed bool
		done   = make(chan struct{})
	)
	sub := &subscription{
		deliver: func(ctx context.Context, evt any) error {
			mu.RLock()
			defer mu.RUnlock()
			if closed {
				return nil
			}
			select {
			case ch <- evt.(T):
				return nil
			case <-done:
				return nil
			case <-ctx.Done():
				return ferrors.WrapError(ctx.Err(), ferrors.CategoryRuntime, "event publish canceled").
					WithContext("event_type", topic.String()).Build()
			}
		},
		shut: func() {
			once.Do(func() {
				close(done)
				mu.Lock()
				closed = true
				close(ch)
				mu.Unlock()
			})
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.shut()
		return ch, func() {}
	}
	b.topics[topic] = append(b.topics[topic], sub)

	return ch, func() {
		b.mu.Lock()
		subs := b.topics[topic]
		for i, s := range subs {
			if s == sub {
				b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.shut()
	}
}

// Publish delivers evt to the subscribers of its concrete type.
func (b *Bus) Publish(ctx context.Context, evt any) error {
	if evt == nil {
		return ferrors.ValidationError("event cannot be nil").Build()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ferrors.NewError(ferrors.CategoryRuntime, "event bus is closed").Build()
	}
	targets := b.topics[reflect.TypeOf(evt)]
	b.mu.Unlock()

	for _, s := range targets {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the bus and all subscription channels.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	topics := b.topics
	b.topics = nil
	b.mu.Unlock()

	for _, subs := range topics {
		for _, s := range subs {
			s.shut()
		}
	}
}
