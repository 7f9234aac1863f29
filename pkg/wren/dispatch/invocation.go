package dispatch

import (
	"context"

	"github.com/wrenbot/wren/pkg/wren/gateway"
	"github.com/wrenbot/wren/pkg/wren/tracker"
)

// Invocation is the per-event dispatch context handed to command handlers,
// checks and the listener. Command is nil when the invocation backs a
// general listener call. Exactly one of Message and Interaction is set
// depending on the trigger kind (both may be nil for listener calls on
// non-message events).
type Invocation struct {
	// ID is a unique identifier for this invocation, for log correlation.
	ID string

	// Trigger reports how the invocation was initiated.
	Trigger TriggerKind

	// IsEdit is true when the invocation was replayed from a message edit
	// rather than a fresh message.
	IsEdit bool

	// Message is the (possibly merged) trigger message for prefix
	// invocations.
	Message *gateway.Message

	// Interaction is the payload for interaction invocations.
	Interaction *gateway.Interaction

	// Command is the resolved command, nil for listener invocations.
	Command *Command

	framework *Framework
	data      any
}

// Framework returns the owning framework.
func (inv *Invocation) Framework() *Framework { return inv.framework }

// Data returns the application state produced by the setup callback.
func (inv *Invocation) Data() any { return inv.data }

// Author returns the invoking user.
func (inv *Invocation) Author() gateway.User {
	switch {
	case inv.Message != nil:
		return inv.Message.Author
	case inv.Interaction != nil:
		if inv.Interaction.Member != nil {
			return inv.Interaction.Member.User
		}
		return inv.Interaction.User
	default:
		return gateway.User{}
	}
}

// ChannelID returns the channel the invocation originated in.
func (inv *Invocation) ChannelID() string {
	switch {
	case inv.Message != nil:
		return inv.Message.ChannelID
	case inv.Interaction != nil:
		return inv.Interaction.ChannelID
	default:
		return ""
	}
}

// GuildID returns the guild the invocation originated in, empty for direct
// messages.
func (inv *Invocation) GuildID() string {
	switch {
	case inv.Message != nil:
		return inv.Message.GuildID
	case inv.Interaction != nil:
		return inv.Interaction.GuildID
	default:
		return ""
	}
}

// Reply is the payload for Send.
type Reply struct {
	Content string
	Embed   *gateway.Embed
	Files   []gateway.File
}

// Send delivers a reply for this invocation. When edit tracking is active
// for the current command and a response is already recorded for the
// trigger message, the existing response is edited in place; otherwise a
// new message is sent and, if tracking is active, recorded.
func (inv *Invocation) Send(ctx context.Context, r Reply) error {
	out := gateway.Outgoing{
		Content: r.Content,
		Embed:   r.Embed,
		Files:   r.Files,
	}
	client := inv.framework.client

	tr := inv.editTracker()
	if tr != nil {
		if resp, ok := tr.Response(inv.Message.ID); ok {
			edited, err := client.EditMessage(ctx, resp.ChannelID, resp.ID, out)
			if err != nil {
				return err
			}
			// The entry may have been purged during the edit; refresh
			// only if it survived.
			if edited != nil {
				tr.SetResponse(inv.Message.ID, *edited)
			}
			return nil
		}
	}

	sent, err := client.SendMessage(ctx, inv.ChannelID(), out)
	if err != nil {
		return err
	}
	if tr != nil && sent != nil {
		tr.Record(*inv.Message, *sent)
	}
	return nil
}

// Say sends a plain-text reply through Send.
func (inv *Invocation) Say(ctx context.Context, text string) error {
	return inv.Send(ctx, Reply{Content: text})
}

// editTracker returns the framework tracker when edit tracking applies to
// this invocation: tracking enabled globally, a prefix-message trigger, and
// the effective command opted in (listener invocations with no command are
// tracked whenever tracking is on).
func (inv *Invocation) editTracker() *tracker.Tracker {
	tr := inv.framework.opts.EditTracker
	if tr == nil || inv.Message == nil {
		return nil
	}
	if inv.Command != nil && !inv.framework.effectiveTrackEdits(inv.Command) {
		return nil
	}
	return tr
}
