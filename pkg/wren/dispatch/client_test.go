package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// fakeClient is an in-memory gateway.Client for dispatch tests. Sent and
// edited messages are captured; cache lookups answer from the configured
// maps.
type fakeClient struct {
	mu sync.Mutex

	guilds  map[string]*gateway.Guild
	members map[string]*gateway.Member
	perms   gateway.Permissions

	fetchErr error
	permsErr error
	sendErr  error
	editErr  error
	delErr   error

	sent    []gateway.Outgoing
	edits   []editCall
	deletes []string
	typing  []string

	nextID int
	events chan gateway.Event
}

type editCall struct {
	channelID string
	messageID string
	out       gateway.Outgoing
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		guilds:  make(map[string]*gateway.Guild),
		members: make(map[string]*gateway.Member),
		events:  make(chan gateway.Event, 16),
	}
}

func memberKey(guildID, userID string) string { return guildID + "/" + userID }

func (c *fakeClient) Open(context.Context) error   { return nil }
func (c *fakeClient) Close() error                 { close(c.events); return nil }
func (c *fakeClient) Events() <-chan gateway.Event { return c.events }

func (c *fakeClient) Guild(guildID string) (*gateway.Guild, bool) {
	g, ok := c.guilds[guildID]
	return g, ok
}

func (c *fakeClient) Member(guildID, userID string) (*gateway.Member, bool) {
	m, ok := c.members[memberKey(guildID, userID)]
	return m, ok
}

func (c *fakeClient) FetchMember(_ context.Context, guildID, userID string) (*gateway.Member, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return &gateway.Member{GuildID: guildID, User: gateway.User{ID: userID}}, nil
}

func (c *fakeClient) MemberPermissions(*gateway.Guild, *gateway.Channel, *gateway.Member) (gateway.Permissions, error) {
	if c.permsErr != nil {
		return 0, c.permsErr
	}
	return c.perms, nil
}

func (c *fakeClient) SendMessage(_ context.Context, channelID string, out gateway.Outgoing) (*gateway.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, out)
	c.nextID++
	return &gateway.Message{
		ID:        fmt.Sprintf("sent-%d", c.nextID),
		ChannelID: channelID,
		Content:   out.Content,
	}, nil
}

func (c *fakeClient) EditMessage(_ context.Context, channelID, messageID string, out gateway.Outgoing) (*gateway.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editErr != nil {
		return nil, c.editErr
	}
	c.edits = append(c.edits, editCall{channelID: channelID, messageID: messageID, out: out})
	return &gateway.Message{ID: messageID, ChannelID: channelID, Content: out.Content}, nil
}

func (c *fakeClient) DeleteMessage(_ context.Context, _, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	c.deletes = append(c.deletes, messageID)
	return nil
}

func (c *fakeClient) Typing(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing = append(c.typing, channelID)
	return nil
}

func (c *fakeClient) sentContents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, s := range c.sent {
		out[i] = s.Content
	}
	return out
}

// addGuildChannel wires a guild with a single channel into the cache.
func (c *fakeClient) addGuildChannel(guildID, channelID string, typ gateway.ChannelType) {
	c.guilds[guildID] = &gateway.Guild{
		ID: guildID,
		Channels: map[string]*gateway.Channel{
			channelID: {ID: channelID, GuildID: guildID, Type: typ},
		},
	}
}
