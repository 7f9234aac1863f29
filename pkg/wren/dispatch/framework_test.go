package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenbot/wren/pkg/wren/gateway"
	"github.com/wrenbot/wren/pkg/wren/tracker"
)

func TestData_AvailableWithoutSetup(t *testing.T) {
	t.Parallel()
	f := New(newFakeClient(), DefaultOptions())

	data, err := f.Data(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestData_BlocksUntilSetupCompletes(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	opts.Setup = func(context.Context, *gateway.Ready, *Framework) (any, error) {
		return "state", nil
	}
	f := New(newFakeClient(), opts)

	// Before Ready, readers suspend until the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Data(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// A reader waiting across Ready is released with the data.
	got := make(chan any, 1)
	go func() {
		data, err := f.Data(context.Background())
		if err != nil {
			got <- err
			return
		}
		got <- data
	}()

	f.HandleEvent(context.Background(), gateway.Ready{User: gateway.User{ID: "bot-1"}})

	select {
	case v := <-got:
		assert.Equal(t, "state", v)
	case <-time.After(time.Second):
		t.Fatal("reader was not released after setup completed")
	}
}

func TestHandleReady_SetupRunsOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	opts := DefaultOptions()
	opts.Setup = func(context.Context, *gateway.Ready, *Framework) (any, error) {
		calls.Add(1)
		return "state", nil
	}
	f := New(newFakeClient(), opts)

	f.HandleEvent(context.Background(), gateway.Ready{User: gateway.User{ID: "bot-1"}})
	f.HandleEvent(context.Background(), gateway.Ready{User: gateway.User{ID: "bot-1"}})

	assert.Equal(t, int32(1), calls.Load())
}

func TestHandleReady_RefreshesIdentityOnReconnect(t *testing.T) {
	t.Parallel()
	f := New(newFakeClient(), DefaultOptions())

	f.HandleEvent(context.Background(), gateway.Ready{User: gateway.User{ID: "bot-1", Username: "wren"}})
	assert.Equal(t, "bot-1", f.BotUser().ID)

	f.HandleEvent(context.Background(), gateway.Ready{User: gateway.User{ID: "bot-1", Username: "wren-renamed"}})
	assert.Equal(t, "wren-renamed", f.BotUser().Username)
}

func TestHandleReady_SetupError(t *testing.T) {
	t.Parallel()
	handler := &capturingHandler{}
	setupErr := errors.New("database unreachable")

	opts := DefaultOptions()
	opts.OnError = handler.handle
	opts.Setup = func(context.Context, *gateway.Ready, *Framework) (any, error) {
		return nil, setupErr
	}
	f := New(newFakeClient(), opts)

	f.HandleEvent(context.Background(), gateway.Ready{User: gateway.User{ID: "bot-1"}})

	events := handler.all()
	require.Len(t, events, 1)
	assert.Equal(t, StageSetup, events[0].Stage)
	assert.ErrorIs(t, events[0].Err, setupErr)

	// Data never becomes available: the setup is consumed, not retried.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Data(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_ShutdownReleasesDataReaders(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	opts := DefaultOptions()
	opts.Setup = func(context.Context, *gateway.Ready, *Framework) (any, error) {
		return nil, errors.New("setup failed")
	}
	f := New(client, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	// Setup fails, so this handler would block in Data forever without the
	// shutdown release.
	client.events <- gateway.Ready{User: gateway.User{ID: "bot-1"}}
	client.events <- createEvent("m1", "!ping")

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, err := f.Data(context.Background())
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestRun_EventStreamCloseReleasesDataReaders(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	opts := DefaultOptions()
	opts.Setup = func(context.Context, *gateway.Ready, *Framework) (any, error) {
		return nil, errors.New("setup failed")
	}
	f := New(client, opts)

	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	// Setup fails, so this handler blocks in Data until shutdown.
	client.events <- gateway.Ready{User: gateway.User{ID: "bot-1"}}
	client.events <- createEvent("m1", "!ping")
	time.Sleep(20 * time.Millisecond)

	// The platform closing the stream must release blocked readers the same
	// way context cancellation does.
	close(client.events)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the event stream closed")
	}

	_, err := f.Data(context.Background())
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestRun_DrainsInFlightHandlers(t *testing.T) {
	t.Parallel()
	client := newFakeClient()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	opts := DefaultOptions()
	opts.Prefix = "!"
	opts.Commands = []*Command{{
		Name: "slow",
		Run: func(context.Context, *Invocation, string) error {
			close(started)
			<-release
			finished.Store(true)
			return nil
		},
	}}
	f := New(client, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	client.events <- createEvent("m1", "!slow")
	<-started
	cancel()

	// Run must wait for the handler, not abandon it.
	select {
	case <-done:
		t.Fatal("Run returned while an invocation was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after handlers drained")
	}
	assert.True(t, finished.Load())
}

func TestRun_WithPurgeTask(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	opts := DefaultOptions()
	opts.EditTracker = tracker.New(time.Hour, nil)
	f := New(client, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop the purge task and return")
	}
}

func TestNew_NilOptionsUsesDefaults(t *testing.T) {
	t.Parallel()
	f := New(newFakeClient(), nil)
	assert.True(t, f.Options().MentionAsPrefix)
	assert.True(t, f.Options().CaseInsensitiveCommands)
	assert.NotNil(t, f.Options().OnError)
}
