package dispatch

import (
	"context"
	"log/slog"

	"github.com/wrenbot/wren/pkg/wren/gateway"
	"github.com/wrenbot/wren/pkg/wren/tracker"
)

// SetupFunc produces the application state once the first Ready event
// arrives. It runs exactly once; later Ready events (reconnects) skip it.
type SetupFunc func(ctx context.Context, ready *gateway.Ready, f *Framework) (any, error)

// ListenerFunc is invoked for every event after the framework's own
// handling, with the resolved application state on the invocation.
type ListenerFunc func(ctx context.Context, evt gateway.Event, inv *Invocation) error

// Options is the framework-wide configuration. The RequiredPermissions,
// OwnersOnly, TrackEdits, Typing, CommandCheck and OnError fields double as
// defaults for commands that leave the corresponding option unset; they are
// resolved at dispatch time, never merged into commands at registration.
type Options struct {
	// Commands is the ordered top-level command forest.
	Commands []*Command

	// Prefix is the primary literal command prefix. It is tried before
	// AdditionalPrefixes.
	Prefix string

	// AdditionalPrefixes are tried in registration order.
	AdditionalPrefixes []PrefixMatcher

	// DynamicPrefix is consulted last, after literal prefixes and the
	// bot mention.
	DynamicPrefix DynamicPrefixFunc

	// MentionAsPrefix treats a leading bot mention as a command prefix.
	MentionAsPrefix bool

	// ExecuteSelfMessages allows the bot's own messages to trigger
	// commands.
	ExecuteSelfMessages bool

	// CaseInsensitiveCommands switches command-name matching for names
	// and aliases alike.
	CaseInsensitiveCommands bool

	// Owners are the user IDs allowed to run owners-only commands.
	Owners []string

	// Framework-wide command defaults.
	RequiredPermissions gateway.Permissions
	OwnersOnly          bool
	TrackEdits          bool
	Typing              TypingBehavior
	CommandCheck        CheckFunc

	// OnError receives every error no more specific handler consumed.
	// Defaults to a handler that logs and otherwise stays silent.
	OnError ErrorHandler

	// Listener runs for every event after framework handling.
	Listener ListenerFunc

	// Setup produces the application state on the first Ready event.
	Setup SetupFunc

	// EditTracker enables edit tracking when non-nil.
	EditTracker *tracker.Tracker

	Logger *slog.Logger
}

// DefaultOptions returns Options with the conventional defaults: mentions
// act as a prefix and command matching is case-insensitive.
func DefaultOptions() *Options {
	return &Options{
		MentionAsPrefix:         true,
		CaseInsensitiveCommands: true,
	}
}

func (f *Framework) effectivePermissions(c *Command) gateway.Permissions {
	if c.RequiredPermissions != nil {
		return *c.RequiredPermissions
	}
	return f.opts.RequiredPermissions
}

func (f *Framework) effectiveOwnersOnly(c *Command) bool {
	if c.OwnersOnly != nil {
		return *c.OwnersOnly
	}
	return f.opts.OwnersOnly
}

func (f *Framework) effectiveTrackEdits(c *Command) bool {
	if c.TrackEdits != nil {
		return *c.TrackEdits
	}
	return f.opts.TrackEdits
}

func (f *Framework) effectiveTyping(c *Command) TypingBehavior {
	if c.Typing != nil {
		return *c.Typing
	}
	return f.opts.Typing
}

func (f *Framework) effectiveCheck(c *Command) CheckFunc {
	if c.Check != nil {
		return c.Check
	}
	return f.opts.CommandCheck
}
