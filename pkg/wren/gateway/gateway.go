// Package gateway defines the platform-neutral types and the collaborator
// interface the dispatch core speaks to. A concrete platform (Discord,
// test fakes) implements Client and feeds Events into the framework; the
// framework never touches a platform SDK directly.
package gateway

import (
	"context"
	"errors"
)

// Client is the connection to a chat platform. Cache accessors (Guild,
// Member) answer from local state and report presence with a bool; Fetch
// and the message operations go over the wire and are fallible.
type Client interface {
	// Open establishes the platform connection. Must be called before
	// Events yields anything.
	Open(ctx context.Context) error

	// Close tears the connection down. The Events channel is closed
	// afterwards.
	Close() error

	// Events returns the stream of platform events.
	Events() <-chan Event

	// Guild returns a guild from the local cache.
	Guild(guildID string) (*Guild, bool)

	// Member returns a guild member from the local cache.
	Member(guildID, userID string) (*Member, bool)

	// FetchMember retrieves a member directly from the platform, used as
	// a fallback when the member is not cached.
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)

	// MemberPermissions computes the effective permissions for a member
	// in a guild channel.
	MemberPermissions(guild *Guild, channel *Channel, member *Member) (Permissions, error)

	// SendMessage posts a new message to a channel.
	SendMessage(ctx context.Context, channelID string, out Outgoing) (*Message, error)

	// EditMessage replaces the content of an existing message.
	EditMessage(ctx context.Context, channelID, messageID string, out Outgoing) (*Message, error)

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// Typing broadcasts a typing indicator in a channel.
	Typing(ctx context.Context, channelID string) error
}

// Outgoing is the payload for SendMessage and EditMessage.
type Outgoing struct {
	Content string
	Embed   *Embed
	Files   []File
}

// ErrNotConnected is returned by operations that need an open connection.
var ErrNotConnected = errors.New("gateway is not connected")
