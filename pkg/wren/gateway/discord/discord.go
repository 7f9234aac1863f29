// Package discord binds the dispatch core to Discord via discordgo. It
// converts gateway websocket events into the unified event types and
// implements the platform operations over the discordgo session and its
// state cache.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// Client implements gateway.Client over a discordgo session.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu     sync.RWMutex
	open   bool
	events chan gateway.Event
}

// New creates a Discord client for the given bot token. The session is not
// opened until Open is called.
func New(token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	c := &Client{
		session: session,
		logger:  logger,
		events:  make(chan gateway.Event, 256),
	}
	c.registerHandlers()
	return c, nil
}

// Open connects the websocket gateway.
func (c *Client) Open(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	c.logger.Info("discord: gateway connected")
	return nil
}

// Close disconnects and closes the event stream.
func (c *Client) Close() error {
	err := c.session.Close()
	c.mu.Lock()
	if c.open {
		c.open = false
		close(c.events)
	}
	c.mu.Unlock()
	c.logger.Info("discord: gateway closed")
	return err
}

// Events returns the unified event stream.
func (c *Client) Events() <-chan gateway.Event {
	return c.events
}

// emit forwards an event unless the stream is closed; a full buffer drops
// the event rather than block the discordgo callback goroutine.
func (c *Client) emit(evt gateway.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.open {
		return
	}
	select {
	case c.events <- evt:
	default:
		c.logger.Warn("discord: event buffer full, dropping event")
	}
}

// Guild returns a guild from the state cache with its channels resolved.
func (c *Client) Guild(guildID string) (*gateway.Guild, bool) {
	g, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, false
	}
	return convertGuild(g), true
}

// Member returns a member from the state cache.
func (c *Client) Member(guildID, userID string) (*gateway.Member, bool) {
	m, err := c.session.State.Member(guildID, userID)
	if err != nil {
		return nil, false
	}
	return convertMember(guildID, m), true
}

// FetchMember retrieves a member over HTTP, bypassing the cache.
func (c *Client) FetchMember(ctx context.Context, guildID, userID string) (*gateway.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch member %s in guild %s: %w", userID, guildID, err)
	}
	return convertMember(guildID, m), nil
}

// MemberPermissions computes the member's effective permissions in the
// channel from the state cache.
func (c *Client) MemberPermissions(guild *gateway.Guild, channel *gateway.Channel, member *gateway.Member) (gateway.Permissions, error) {
	perms, err := c.session.State.UserChannelPermissions(member.User.ID, channel.ID)
	if err != nil {
		return 0, fmt.Errorf("compute permissions for %s in %s: %w", member.User.ID, channel.ID, err)
	}
	return convertPermissions(perms), nil
}

// SendMessage posts a message.
func (c *Client) SendMessage(ctx context.Context, channelID string, out gateway.Outgoing) (*gateway.Message, error) {
	send := &discordgo.MessageSend{
		Content: out.Content,
		Files:   convertFilesOut(out.Files),
	}
	if out.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{convertEmbedOut(out.Embed)}
	}
	msg, err := c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", channelID, err)
	}
	converted := convertMessage(msg)
	return &converted, nil
}

// EditMessage replaces a message's content. An unset reply content resets
// the message text, an unset embed clears existing embeds, and prior
// attachments are dropped in favor of the files uploaded with this edit, so
// a tracked response never keeps stale pieces of its previous rendering.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, out gateway.Outgoing) (*gateway.Message, error) {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	content := out.Content
	edit.Content = &content
	embeds := []*discordgo.MessageEmbed{}
	if out.Embed != nil {
		embeds = append(embeds, convertEmbedOut(out.Embed))
	}
	edit.Embeds = &embeds
	attachments := []*discordgo.MessageAttachment{}
	edit.Attachments = &attachments
	edit.Files = convertFilesOut(out.Files)

	msg, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("edit message %s in %s: %w", messageID, channelID, err)
	}
	converted := convertMessage(msg)
	return &converted, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s in %s: %w", messageID, channelID, err)
	}
	return nil
}

// Typing broadcasts a typing indicator.
func (c *Client) Typing(ctx context.Context, channelID string) error {
	if err := c.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("broadcast typing in %s: %w", channelID, err)
	}
	return nil
}
