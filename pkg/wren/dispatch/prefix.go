package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// PrefixMatcher recognizes a command trigger at the start of a message and
// strips it, returning the remaining text.
type PrefixMatcher interface {
	Strip(content string) (rest string, ok bool)
}

// LiteralPrefix matches an exact, case-sensitive string prefix.
type LiteralPrefix string

// Strip removes the literal prefix when content starts with it.
func (p LiteralPrefix) Strip(content string) (string, bool) {
	return strings.CutPrefix(content, string(p))
}

// RegexPrefix matches a regular-expression prefix anchored at the start of
// the message. The entire matched span is stripped.
type RegexPrefix struct {
	re *regexp.Regexp
}

// NewRegexPrefix compiles expr into an anchored prefix matcher.
func NewRegexPrefix(expr string) (*RegexPrefix, error) {
	re, err := regexp.Compile("^(?:" + expr + ")")
	if err != nil {
		return nil, fmt.Errorf("compile prefix pattern: %w", err)
	}
	return &RegexPrefix{re: re}, nil
}

// Strip removes the matched span when the pattern matches at offset zero.
func (p *RegexPrefix) Strip(content string) (string, bool) {
	loc := p.re.FindStringIndex(content)
	if loc == nil {
		return "", false
	}
	return content[loc[1]:], true
}

// DynamicPrefixFunc resolves a prefix at dispatch time, consulting whatever
// application state it wants. It returns the message content with the
// prefix stripped, or ok=false for no match.
type DynamicPrefixFunc func(ctx context.Context, msg *gateway.Message, data any) (rest string, ok bool)

// stripPrefix determines the trigger text of msg, in priority order:
// self-message guard, registered prefixes in registration order, bot
// mention, dynamic callback. The returned text has leading whitespace
// trimmed. ok=false means the message is not a command trigger.
func (f *Framework) stripPrefix(ctx context.Context, msg *gateway.Message, data any) (string, bool) {
	if !f.opts.ExecuteSelfMessages {
		if bot := f.BotUser(); bot.ID != "" && msg.Author.ID == bot.ID {
			return "", false
		}
	}

	for _, p := range f.prefixes {
		if rest, ok := p.Strip(msg.Content); ok {
			return strings.TrimLeft(rest, " \t\n"), true
		}
	}

	if f.opts.MentionAsPrefix {
		if rest, ok := stripMention(msg.Content, f.BotUser().ID); ok {
			return strings.TrimLeft(rest, " \t\n"), true
		}
	}

	if f.opts.DynamicPrefix != nil {
		if rest, ok := f.opts.DynamicPrefix(ctx, msg, data); ok {
			return strings.TrimLeft(rest, " \t\n"), true
		}
	}

	return "", false
}

// stripMention strips a leading bot-mention token, in either the plain or
// the nickname form.
func stripMention(content, botID string) (string, bool) {
	if botID == "" {
		return "", false
	}
	for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if rest, ok := strings.CutPrefix(content, mention); ok {
			return rest, true
		}
	}
	return "", false
}
