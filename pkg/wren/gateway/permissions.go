package gateway

// Permissions is a bitset of platform permissions.
type Permissions uint64

// Common permission bits.
const (
	PermissionViewChannel Permissions = 1 << iota
	PermissionSendMessages
	PermissionManageMessages
	PermissionKickMembers
	PermissionBanMembers
	PermissionAdministrator
	PermissionManageGuild
	PermissionMentionEveryone
)

// Contains reports whether every bit of required is set in p.
func (p Permissions) Contains(required Permissions) bool {
	return p&required == required
}

// ChannelType distinguishes guild channels from everything else.
type ChannelType int

const (
	ChannelTypeGuildText ChannelType = iota
	ChannelTypeDM
	ChannelTypeGuildVoice
	ChannelTypeGuildCategory
	ChannelTypeThread
)

// Channel is a place messages are sent.
type Channel struct {
	ID      string
	GuildID string
	Name    string
	Type    ChannelType
}

// Guild is a server with its locally cached channels.
type Guild struct {
	ID       string
	Name     string
	OwnerID  string
	Channels map[string]*Channel
}

// Member is a user's membership in a guild.
type Member struct {
	GuildID string
	User    User
	Roles   []string
}
