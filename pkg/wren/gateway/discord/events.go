// events.go converts discordgo websocket events into unified gateway
// events.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

func (c *Client) registerHandlers() {
	c.session.AddHandler(c.handleReady)
	c.session.AddHandler(c.handleMessageCreate)
	c.session.AddHandler(c.handleMessageUpdate)
	c.session.AddHandler(c.handleMessageDelete)
	c.session.AddHandler(c.handleInteractionCreate)
}

func (c *Client) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	var user gateway.User
	if r.User != nil {
		user = convertUser(r.User)
	}
	c.emit(gateway.Ready{User: user})
}

func (c *Client) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	c.emit(gateway.MessageCreate{Message: convertMessage(m.Message)})
}

// handleMessageUpdate promotes the sparse update payload into the
// pointer-field update record. Discord omits unchanged fields from the
// payload, which discordgo surfaces as zero values. User edits carry the
// full message including the author; sparse updates (embed unfurls, flag
// changes) carry no author. The booleans are promoted only in the full
// form, since their zero value is indistinguishable from absence.
func (c *Client) handleMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil {
		return
	}
	msg := m.Message
	up := gateway.MessageUpdate{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
	}
	if msg.Content != "" {
		content := msg.Content
		up.Content = &content
	}
	if msg.Author != nil {
		tts := msg.TTS
		up.TTS = &tts
		pinned := msg.Pinned
		up.Pinned = &pinned
		mentionEveryone := msg.MentionEveryone
		up.MentionEveryone = &mentionEveryone
	}
	if !msg.Timestamp.IsZero() {
		ts := msg.Timestamp
		up.Timestamp = &ts
	}
	if msg.EditedTimestamp != nil {
		edited := *msg.EditedTimestamp
		up.EditedTimestamp = &edited
	}
	if msg.Author != nil {
		author := convertUser(msg.Author)
		up.Author = &author
	}
	if msg.Mentions != nil {
		up.Mentions = convertUsers(msg.Mentions)
	}
	if msg.MentionRoles != nil {
		up.MentionRoles = msg.MentionRoles
	}
	if msg.Attachments != nil {
		up.Attachments = convertAttachments(msg.Attachments)
	}
	if msg.Embeds != nil {
		up.Embeds = convertEmbeds(msg.Embeds)
	}
	c.emit(gateway.MessageUpdateEvent{Update: up})
}

func (c *Client) handleMessageDelete(_ *discordgo.Session, m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}
	c.emit(gateway.MessageDelete{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	})
}

func (c *Client) handleInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	in := gateway.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Command: &gateway.CommandData{
			Name:    data.Name,
			Options: convertCommandOptions(data.Options),
		},
	}
	if i.Member != nil {
		in.Member = convertMember(i.GuildID, i.Member)
		in.User = in.Member.User
	} else if i.User != nil {
		in.User = convertUser(i.User)
	}
	c.emit(gateway.InteractionCreate{Interaction: in})
}

func convertCommandOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) []gateway.CommandOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]gateway.CommandOption, 0, len(opts))
	for _, opt := range opts {
		converted := gateway.CommandOption{Name: opt.Name}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionSubCommand,
			discordgo.ApplicationCommandOptionSubCommandGroup:
			converted.Subcommand = true
			converted.Options = convertCommandOptions(opt.Options)
		default:
			if opt.Value != nil {
				converted.Value = fmt.Sprint(opt.Value)
			}
		}
		out = append(out, converted)
	}
	return out
}

func convertMessage(m *discordgo.Message) gateway.Message {
	msg := gateway.Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		Content:         m.Content,
		TTS:             m.TTS,
		Pinned:          m.Pinned,
		Timestamp:       m.Timestamp,
		MentionEveryone: m.MentionEveryone,
		MentionRoles:    m.MentionRoles,
		Mentions:        convertUsers(m.Mentions),
		Attachments:     convertAttachments(m.Attachments),
		Embeds:          convertEmbeds(m.Embeds),
	}
	if m.EditedTimestamp != nil {
		edited := *m.EditedTimestamp
		msg.EditedTimestamp = &edited
	}
	if m.Author != nil {
		msg.Author = convertUser(m.Author)
	}
	return msg
}

func convertUser(u *discordgo.User) gateway.User {
	return gateway.User{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func convertUsers(users []*discordgo.User) []gateway.User {
	if len(users) == 0 {
		return nil
	}
	out := make([]gateway.User, 0, len(users))
	for _, u := range users {
		out = append(out, convertUser(u))
	}
	return out
}

func convertMember(guildID string, m *discordgo.Member) *gateway.Member {
	member := &gateway.Member{GuildID: guildID, Roles: m.Roles}
	if m.User != nil {
		member.User = convertUser(m.User)
	}
	return member
}

func convertGuild(g *discordgo.Guild) *gateway.Guild {
	guild := &gateway.Guild{
		ID:       g.ID,
		Name:     g.Name,
		OwnerID:  g.OwnerID,
		Channels: make(map[string]*gateway.Channel, len(g.Channels)),
	}
	for _, ch := range g.Channels {
		guild.Channels[ch.ID] = &gateway.Channel{
			ID:      ch.ID,
			GuildID: ch.GuildID,
			Name:    ch.Name,
			Type:    convertChannelType(ch.Type),
		}
	}
	return guild
}

func convertChannelType(t discordgo.ChannelType) gateway.ChannelType {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return gateway.ChannelTypeGuildText
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return gateway.ChannelTypeDM
	case discordgo.ChannelTypeGuildVoice:
		return gateway.ChannelTypeGuildVoice
	case discordgo.ChannelTypeGuildCategory:
		return gateway.ChannelTypeGuildCategory
	case discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return gateway.ChannelTypeThread
	default:
		return gateway.ChannelTypeGuildText
	}
}

func convertAttachments(atts []*discordgo.MessageAttachment) []gateway.Attachment {
	if len(atts) == 0 {
		return nil
	}
	out := make([]gateway.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, gateway.Attachment{ID: a.ID, Filename: a.Filename, URL: a.URL})
	}
	return out
}

func convertEmbeds(embeds []*discordgo.MessageEmbed) []gateway.Embed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]gateway.Embed, 0, len(embeds))
	for _, e := range embeds {
		out = append(out, gateway.Embed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Color:       e.Color,
		})
	}
	return out
}

func convertFilesOut(files []gateway.File) []*discordgo.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      f.Reader,
		})
	}
	return out
}

func convertEmbedOut(e *gateway.Embed) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
}

// convertPermissions maps discord permission bits onto the gateway bitset.
var permissionBits = []struct {
	discord int64
	gateway gateway.Permissions
}{
	{discordgo.PermissionViewChannel, gateway.PermissionViewChannel},
	{discordgo.PermissionSendMessages, gateway.PermissionSendMessages},
	{discordgo.PermissionManageMessages, gateway.PermissionManageMessages},
	{discordgo.PermissionKickMembers, gateway.PermissionKickMembers},
	{discordgo.PermissionBanMembers, gateway.PermissionBanMembers},
	{discordgo.PermissionAdministrator, gateway.PermissionAdministrator},
	{discordgo.PermissionManageServer, gateway.PermissionManageGuild},
	{discordgo.PermissionMentionEveryone, gateway.PermissionMentionEveryone},
}

func convertPermissions(perms int64) gateway.Permissions {
	var out gateway.Permissions
	for _, bit := range permissionBits {
		if perms&bit.discord != 0 {
			out |= bit.gateway
		}
	}
	return out
}
