package dispatch

import (
	"context"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// authorize applies the owners-only check, then the permission check.
// Owners-only short-circuits: a non-owner is rejected before permissions
// are consulted.
func (f *Framework) authorize(ctx context.Context, inv *Invocation, required gateway.Permissions, ownersOnly bool) bool {
	if ownersOnly {
		if _, ok := f.owners[inv.Author().ID]; !ok {
			return false
		}
	}
	return f.checkPermissions(ctx, inv, required)
}

// checkPermissions evaluates required against the invoking member's
// effective permissions in the invocation channel. Every resolution failure
// fails closed.
func (f *Framework) checkPermissions(ctx context.Context, inv *Invocation, required gateway.Permissions) bool {
	if required == 0 {
		return true
	}

	guildID := inv.GuildID()
	if guildID == "" {
		// No permission concept in direct messages.
		return true
	}

	guild, ok := f.client.Guild(guildID)
	if !ok {
		return false
	}

	channel, ok := guild.Channels[inv.ChannelID()]
	if !ok {
		return false
	}
	if channel.Type != gateway.ChannelTypeGuildText {
		f.logger.Warn("guild message supposedly sent in a non-guild channel, denying invocation",
			"channel_id", inv.ChannelID(), "guild_id", guildID)
		return false
	}

	authorID := inv.Author().ID
	member, ok := f.client.Member(guildID, authorID)
	if !ok {
		// Member not cached, retrieve directly from the platform.
		fetched, err := f.client.FetchMember(ctx, guildID, authorID)
		if err != nil {
			return false
		}
		member = fetched
	}

	perms, err := f.client.MemberPermissions(guild, channel, member)
	if err != nil {
		return false
	}
	return perms.Contains(required)
}
