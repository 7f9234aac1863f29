package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// HandlerFunc executes a command. args is the remaining text after the
// command (and subcommand) names were consumed, trimmed of leading
// whitespace.
type HandlerFunc func(ctx context.Context, inv *Invocation, args string) error

// CheckFunc gates whether a matched command may proceed. Returning false
// aborts the invocation silently; returning an error routes it through the
// command error pipeline tagged as an admission failure.
type CheckFunc func(ctx context.Context, inv *Invocation) (bool, error)

// Command is a single registered command. Commands form a forest: top-level
// commands may carry subcommands, which match greedily before their parent.
// Registration order is significant; matching is first-match-wins.
//
// The pointer-typed option fields fall back to the framework-wide value when
// nil. Resolution happens at dispatch time, so changing the framework
// defaults affects every command that did not override them.
type Command struct {
	// Name is the primary trigger. Aliases participate identically.
	Name    string
	Aliases []string

	// Description is a short summary for help menus. HelpText is the
	// detailed multi-line usage text. Hidden commands are skipped by help
	// renderers but dispatch normally.
	Description string
	HelpText    string
	Hidden      bool

	// Run is invoked when this command is resolved and authorized.
	Run HandlerFunc

	Subcommands []*Command

	// RequiredPermissions users must hold to invoke the command.
	RequiredPermissions *gateway.Permissions

	// OwnersOnly restricts the command to the configured owner set.
	OwnersOnly *bool

	// TrackEdits opts replies of this command into the edit tracker.
	TrackEdits *bool

	// Typing overrides the framework's typing-broadcast behavior.
	Typing *TypingBehavior

	// OnError handles errors from Check and Run. Falls back to the
	// framework-wide handler when nil.
	OnError ErrorHandler

	// Check is the per-command admission check. Falls back to the
	// framework-wide check when nil.
	Check CheckFunc
}

// TypingBehavior controls the typing indicator while a command runs.
// The zero value broadcasts nothing. With Broadcast set, the indicator is
// sent once the command has been running for Delay (zero for immediate).
type TypingBehavior struct {
	Broadcast bool
	Delay     time.Duration
}

func (c *Command) matches(name string, caseInsensitive bool) bool {
	if equalName(c.Name, name, caseInsensitive) {
		return true
	}
	for _, alias := range c.Aliases {
		if equalName(alias, name, caseInsensitive) {
			return true
		}
	}
	return false
}

func equalName(a, b string, caseInsensitive bool) bool {
	if caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// splitToken cuts the first whitespace-delimited token off text and returns
// it with the remainder, trimmed of leading whitespace.
func splitToken(text string) (token, rest string) {
	text = strings.TrimLeft(text, " \t\n")
	if text == "" {
		return "", ""
	}
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return text[:i], strings.TrimLeft(text[i:], " \t\n")
	}
	return text, ""
}

// findCommand resolves text against the command forest. The first token is
// the candidate name; on a match the search descends into subcommands with
// the remainder, preferring the deepest matching node. Whatever text is left
// after the deepest match becomes the argument string.
func findCommand(cmds []*Command, text string, caseInsensitive bool) (*Command, string, bool) {
	name, rest := splitToken(text)
	if name == "" {
		return nil, "", false
	}
	for _, c := range cmds {
		if !c.matches(name, caseInsensitive) {
			continue
		}
		if sub, subArgs, ok := findCommand(c.Subcommands, rest, caseInsensitive); ok {
			return sub, subArgs, true
		}
		return c, rest, true
	}
	return nil, "", false
}
