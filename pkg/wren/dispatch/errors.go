package dispatch

import (
	"context"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// Stage identifies which phase of event processing an error escaped from.
type Stage int

const (
	// StageSetup is a failure of the one-time user-data setup callback.
	StageSetup Stage = iota
	// StageListener is a failure of the general event listener.
	StageListener
	// StageCommand is a failure of an admission check or command handler.
	StageCommand
)

func (s Stage) String() string {
	switch s {
	case StageSetup:
		return "setup"
	case StageListener:
		return "listener"
	case StageCommand:
		return "command"
	default:
		return "unknown"
	}
}

// TriggerKind distinguishes how a command was invoked.
type TriggerKind int

const (
	// TriggerPrefix is a prefixed text-message invocation.
	TriggerPrefix TriggerKind = iota
	// TriggerInteraction is an application-command invocation.
	TriggerInteraction
)

func (k TriggerKind) String() string {
	if k == TriggerInteraction {
		return "interaction"
	}
	return "prefix"
}

// ErrorEvent carries an error together with enough context to reconstruct
// which command, check phase and trigger kind produced it. Command and
// Invocation are nil outside StageCommand; Event is set for StageListener.
type ErrorEvent struct {
	Err   error
	Stage Stage

	// Trigger tags command failures with the invocation kind.
	Trigger TriggerKind

	// WhileChecking is true when the error came from an admission check
	// rather than command execution.
	WhileChecking bool

	Command    *Command
	Invocation *Invocation
	Event      gateway.Event
}

// ErrorHandler consumes a dispatch error. Unhandled errors are never
// reported to end users by default; a handler may choose to.
type ErrorHandler func(ctx context.Context, e *ErrorEvent)

// commandError is a command failure in flight to its error handler.
type commandError struct {
	err           error
	inv           *Invocation
	whileChecking bool
}
