package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[BuildCompleted](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), BuildCompleted{Seq: 3, Outcome: "success"}))

	select {
	case got := <-ch:
		require.Equal(t, uint64(3), got.Seq)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_OnlyMatchingTypeIsDelivered(t *testing.T) {
	b := NewBus()
	defer b.Close()

	changes, unsubChanges := Subscribe[ChangeDetected](b, 1)
	defer unsubChanges()
	builds, unsubBuilds := Subscribe[BuildCompleted](b, 1)
	defer unsubBuilds()

	require.NoError(t, b.Publish(context.Background(), ChangeDetected{Path: "content/a.md", Op: "WRITE"}))

	require.Len(t, changes, 1)
	require.Empty(t, builds)
}

func TestBus_PointerAndValueAreDistinctTopics(t *testing.T) {
	b := NewBus()
	defer b.Close()

	values, unsubscribe := Subscribe[ChangeDetected](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), &ChangeDetected{Path: "x"}))
	require.Empty(t, values)
	require.Error(t, b.Publish(context.Background(), nil))
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[ChangeDetected](b, 0)
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, ChangeDetected{Path: "x"})
	require.Error(t, err)
	require.Equal(t, ferrors.CategoryRuntime, ferrors.GetCategory(err))
}

func TestBus_UnsubscribeAndClose(t *testing.T) {
	b := NewBus()

	first, unsubscribe := Subscribe[ChangeDetected](b, 1)
	unsubscribe()
	unsubscribe()
	_, ok := <-first
	require.False(t, ok)
	require.NoError(t, b.Publish(context.Background(), ChangeDetected{}), "no subscribers left")

	ch, _ := Subscribe[ChangeDetected](b, 1)
	b.Close()
	_, ok = <-ch
	require.False(t, ok)

	require.Error(t, b.Publish(context.Background(), ChangeDetected{}))
	late, _ := Subscribe[ChangeDetected](b, 1)
	_, ok = <-late
	require.False(t, ok)
}

func TestBus_UnsubscribeReleasesBlockedPublish(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[ChangeDetected](b, 0)
	done := make(chan error, 1)
	go func() { done <- b.Publish(context.Background(), ChangeDetected{Path: "x"}) }()

	time.Sleep(20 * time.Millisecond)
	unsubscribe()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish stayed blocked after unsubscribe")
	}
}
