package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// HandleEvent classifies and processes a single platform event, then runs
// the general listener. Each call is self-contained; callers may invoke it
// concurrently from independent goroutines.
func (f *Framework) HandleEvent(ctx context.Context, evt gateway.Event) {
	switch e := evt.(type) {
	case gateway.Ready:
		f.handleReady(ctx, e)
	case gateway.MessageCreate:
		if cerr := f.dispatchMessage(ctx, &e.Message, false); cerr != nil {
			f.routeCommandError(ctx, cerr)
		}
	case gateway.MessageUpdateEvent:
		f.handleMessageUpdate(ctx, e)
	case gateway.MessageDelete:
		f.handleMessageDelete(ctx, e)
	case gateway.InteractionCreate:
		if cerr := f.dispatchInteraction(ctx, &e.Interaction); cerr != nil {
			f.routeCommandError(ctx, cerr)
		}
	}

	// The listener runs after the framework's own Ready handling so it can
	// rely on Data without deadlocking the first event.
	if f.opts.Listener == nil {
		return
	}
	data, err := f.Data(ctx)
	if err != nil {
		return
	}
	inv := &Invocation{
		ID:        uuid.NewString(),
		framework: f,
		data:      data,
	}
	if err := f.opts.Listener(ctx, evt, inv); err != nil {
		f.opts.OnError(ctx, &ErrorEvent{Err: err, Stage: StageListener, Event: evt})
	}
}

// handleReady stores the bot identity and runs the one-time setup callback.
// Reconnects refresh the identity but never re-run setup.
func (f *Framework) handleReady(ctx context.Context, e gateway.Ready) {
	f.setBotUser(e.User)

	f.setupMu.Lock()
	setup := f.setup
	f.setup = nil
	f.setupMu.Unlock()

	if setup == nil {
		f.logger.Debug("discarding duplicate ready event, setup already consumed")
		return
	}

	data, err := setup(ctx, &e, f)
	if err != nil {
		f.opts.OnError(ctx, &ErrorEvent{Err: err, Stage: StageSetup})
		return
	}
	f.data = data
	close(f.dataReady)
}

// dispatchMessage runs the full prefix→route→gate→execute pipeline for a
// message. A nil return means the message either was not a command or was
// denied; a non-nil return is a command failure for the error pipeline.
func (f *Framework) dispatchMessage(ctx context.Context, msg *gateway.Message, isEdit bool) *commandError {
	data, err := f.Data(ctx)
	if err != nil {
		return nil
	}

	trigger, ok := f.stripPrefix(ctx, msg, data)
	if !ok {
		return nil
	}

	cmd, args, ok := findCommand(f.opts.Commands, trigger, f.opts.CaseInsensitiveCommands)
	if !ok {
		return nil
	}

	inv := &Invocation{
		ID:        uuid.NewString(),
		Trigger:   TriggerPrefix,
		IsEdit:    isEdit,
		Message:   msg,
		Command:   cmd,
		framework: f,
		data:      data,
	}
	return f.invoke(ctx, inv, args)
}

// invoke gates and executes a resolved command.
func (f *Framework) invoke(ctx context.Context, inv *Invocation, args string) *commandError {
	cmd := inv.Command
	if !f.authorize(ctx, inv, f.effectivePermissions(cmd), f.effectiveOwnersOnly(cmd)) {
		f.logger.Debug("invocation not authorized",
			"command", cmd.Name, "user_id", inv.Author().ID, "invocation_id", inv.ID)
		return nil
	}

	if check := f.effectiveCheck(cmd); check != nil {
		ok, err := check(ctx, inv)
		if err != nil {
			return &commandError{err: err, inv: inv, whileChecking: true}
		}
		if !ok {
			return nil
		}
	}

	if inv.Trigger == TriggerPrefix {
		stop := f.broadcastTyping(ctx, inv.ChannelID(), f.effectiveTyping(cmd))
		defer stop()
	}

	if err := cmd.Run(ctx, inv, args); err != nil {
		return &commandError{err: err, inv: inv}
	}
	return nil
}

// handleMessageUpdate feeds a partial edit through the tracker and re-runs
// the dispatch pipeline against the merged message, marked as an edit.
// Meaningless without edit tracking.
func (f *Framework) handleMessageUpdate(ctx context.Context, e gateway.MessageUpdateEvent) {
	tr := f.opts.EditTracker
	if tr == nil {
		return
	}
	msg := tr.ApplyUpdate(e.Update)
	if cerr := f.dispatchMessage(ctx, &msg, true); cerr != nil {
		f.routeCommandError(ctx, cerr)
	}
}

// handleMessageDelete best-effort deletes the tracked response for a
// deleted trigger. Failures are logged, never propagated: nothing is
// waiting on the result.
func (f *Framework) handleMessageDelete(ctx context.Context, e gateway.MessageDelete) {
	tr := f.opts.EditTracker
	if tr == nil {
		return
	}
	resp, ok := tr.Remove(e.MessageID)
	if !ok {
		return
	}
	if err := f.client.DeleteMessage(ctx, resp.ChannelID, resp.ID); err != nil {
		f.logger.Warn("could not delete tracked response after trigger deletion",
			"response_id", resp.ID, "trigger_id", e.MessageID, "error", err)
	}
}

// dispatchInteraction routes an application-command interaction through the
// same gate→check→execute pipeline as prefix commands.
func (f *Framework) dispatchInteraction(ctx context.Context, in *gateway.Interaction) *commandError {
	if in.Command == nil {
		return nil
	}
	data, err := f.Data(ctx)
	if err != nil {
		return nil
	}

	cmd, args, ok := f.resolveInteractionCommand(in.Command)
	if !ok {
		f.logger.Debug("interaction names an unregistered command", "name", in.Command.Name)
		return nil
	}

	inv := &Invocation{
		ID:          uuid.NewString(),
		Trigger:     TriggerInteraction,
		Interaction: in,
		Command:     cmd,
		framework:   f,
		data:        data,
	}
	return f.invoke(ctx, inv, args)
}

// resolveInteractionCommand walks the interaction's subcommand options down
// the registered command tree and flattens remaining leaf option values
// into the args string.
func (f *Framework) resolveInteractionCommand(data *gateway.CommandData) (*Command, string, bool) {
	var cmd *Command
	for _, c := range f.opts.Commands {
		if c.matches(data.Name, f.opts.CaseInsensitiveCommands) {
			cmd = c
			break
		}
	}
	if cmd == nil {
		return nil, "", false
	}

	options := data.Options
	for len(options) == 1 && options[0].Subcommand {
		var next *Command
		for _, c := range cmd.Subcommands {
			if c.matches(options[0].Name, f.opts.CaseInsensitiveCommands) {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		cmd = next
		options = options[0].Options
	}

	values := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.Value != "" {
			values = append(values, opt.Value)
		}
	}
	return cmd, strings.Join(values, " "), true
}

// broadcastTyping starts the typing indicator per the effective behavior:
// nothing, or once after the command has been running for the configured
// delay. The returned stop function cancels a pending broadcast.
func (f *Framework) broadcastTyping(ctx context.Context, channelID string, tb TypingBehavior) func() {
	if !tb.Broadcast {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(tb.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if err := f.client.Typing(ctx, channelID); err != nil {
				f.logger.Warn("failed to broadcast typing", "channel_id", channelID, "error", err)
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// routeCommandError delivers a command failure to the closest-scoped
// handler: the command's own, else the framework-wide one.
func (f *Framework) routeCommandError(ctx context.Context, ce *commandError) {
	e := &ErrorEvent{
		Err:           ce.err,
		Stage:         StageCommand,
		Trigger:       ce.inv.Trigger,
		WhileChecking: ce.whileChecking,
		Command:       ce.inv.Command,
		Invocation:    ce.inv,
	}
	if h := ce.inv.Command.OnError; h != nil {
		h(ctx, e)
		return
	}
	f.opts.OnError(ctx, e)
}
