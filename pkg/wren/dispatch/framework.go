// Package dispatch is the command-dispatch core: it resolves raw platform
// events into authorized invocations of registered command handlers, and
// keeps previously sent responses synchronized with edits to their trigger
// messages.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// purgeSchedule is the fixed interval of the edit-tracker purge job.
const purgeSchedule = "@every 1m"

// Framework ties prefix resolution, command routing, permission gating and
// edit tracking together over a gateway client. Create it with New and
// drive it with Run, or feed events manually through HandleEvent.
type Framework struct {
	client gateway.Client
	opts   *Options
	logger *slog.Logger

	// prefixes is the primary prefix (when set) followed by the
	// additional prefixes, in registration order.
	prefixes []PrefixMatcher

	owners map[string]struct{}

	// Bot identity, written on every Ready event.
	botMu   sync.Mutex
	botUser gateway.User

	// One-time setup: the callback is consumed on the first Ready event;
	// dataReady is closed once data is populated, releasing waiting
	// readers.
	setupMu   sync.Mutex
	setup     SetupFunc
	data      any
	dataReady chan struct{}

	// shutdown releases readers blocked in Data during orderly shutdown,
	// so Run never waits on a handler that can no longer make progress.
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// ErrShuttingDown is returned by Data when the framework shuts down before
// the application state became available.
var ErrShuttingDown = errors.New("dispatch: framework is shutting down")

// New assembles a framework over client. A nil opts uses DefaultOptions.
func New(client gateway.Client, opts *Options) *Framework {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &Framework{
		client:    client,
		opts:      opts,
		logger:    logger,
		setup:     opts.Setup,
		dataReady: make(chan struct{}),
		shutdown:  make(chan struct{}),
		owners:    make(map[string]struct{}, len(opts.Owners)),
	}
	for _, id := range opts.Owners {
		f.owners[id] = struct{}{}
	}

	if opts.Prefix != "" {
		f.prefixes = append(f.prefixes, LiteralPrefix(opts.Prefix))
	}
	f.prefixes = append(f.prefixes, opts.AdditionalPrefixes...)

	if opts.OnError == nil {
		opts.OnError = f.logError
	}
	if opts.Setup == nil {
		// No setup callback: application state is nil and immediately
		// available.
		close(f.dataReady)
	}
	return f
}

// Client returns the gateway client the framework runs on.
func (f *Framework) Client() gateway.Client { return f.client }

// Options returns the framework-wide configuration.
func (f *Framework) Options() *Options { return f.opts }

// BotUser returns the bot's own identity, zero until the first Ready event.
func (f *Framework) BotUser() gateway.User {
	f.botMu.Lock()
	defer f.botMu.Unlock()
	return f.botUser
}

func (f *Framework) setBotUser(u gateway.User) {
	f.botMu.Lock()
	f.botUser = u
	f.botMu.Unlock()
}

// Data returns the application state produced by the setup callback,
// waiting for the setup to complete if it has not yet. Readers suspend
// rather than observe an empty value.
func (f *Framework) Data(ctx context.Context) (any, error) {
	select {
	case <-f.dataReady:
		return f.data, nil
	case <-f.shutdown:
		return nil, ErrShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run opens the gateway, starts the periodic edit-tracker purge and
// dispatches every inbound event on its own goroutine until ctx is
// cancelled. Started invocations are never cancelled; shutdown waits for
// in-flight handlers before returning.
func (f *Framework) Run(ctx context.Context) error {
	if err := f.client.Open(ctx); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	var purger *cron.Cron
	if f.opts.EditTracker != nil {
		purger = cron.New()
		if _, err := purger.AddFunc(purgeSchedule, func() {
			f.opts.EditTracker.Purge(time.Now())
		}); err != nil {
			_ = f.client.Close()
			return fmt.Errorf("schedule purge task: %w", err)
		}
		purger.Start()
	}

	// Handlers run on a context detached from cancellation so that an
	// invocation started before shutdown runs to completion.
	handlerCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	events := f.client.Events()
	for {
		select {
		case <-ctx.Done():
			f.shutdownOnce.Do(func() { close(f.shutdown) })
			if purger != nil {
				<-purger.Stop().Done()
			}
			err := f.client.Close()
			wg.Wait()
			return err
		case evt, ok := <-events:
			if !ok {
				f.shutdownOnce.Do(func() { close(f.shutdown) })
				if purger != nil {
					<-purger.Stop().Done()
				}
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.HandleEvent(handlerCtx, evt)
			}()
		}
	}
}

// logError is the default global error handler: log and stay silent toward
// end users.
func (f *Framework) logError(_ context.Context, e *ErrorEvent) {
	attrs := []any{"stage", e.Stage.String(), "error", e.Err}
	if e.Command != nil {
		attrs = append(attrs, "command", e.Command.Name, "trigger", e.Trigger.String(), "while_checking", e.WhileChecking)
	}
	if e.Invocation != nil {
		attrs = append(attrs, "invocation_id", e.Invocation.ID)
	}
	f.logger.Error("unhandled dispatch error", attrs...)
}
