package gateway

// Event is a tagged platform event. The concrete set is closed: Ready,
// MessageCreate, MessageUpdateEvent, MessageDelete and InteractionCreate.
type Event interface {
	isEvent()
}

// Ready is emitted when the connection is established. It recurs on
// reconnects.
type Ready struct {
	User User
}

// MessageCreate carries a newly posted message.
type MessageCreate struct {
	Message Message
}

// MessageUpdateEvent carries a partial edit payload.
type MessageUpdateEvent struct {
	Update MessageUpdate
}

// MessageDelete announces a removed message.
type MessageDelete struct {
	MessageID string
	ChannelID string
	GuildID   string
}

// InteractionCreate carries an interaction payload.
type InteractionCreate struct {
	Interaction Interaction
}

// Interaction is an interaction payload. Command is non-nil for
// application-command interactions.
type Interaction struct {
	ID        string
	GuildID   string
	ChannelID string
	User      User
	Member    *Member
	Command   *CommandData
}

// CommandData is the application-command sub-variant of an interaction.
type CommandData struct {
	Name    string
	Options []CommandOption
}

// CommandOption is a single option of an application command. Subcommand
// options carry nested Options; leaf options carry a Value.
type CommandOption struct {
	Name       string
	Value      string
	Subcommand bool
	Options    []CommandOption
}

func (Ready) isEvent()              {}
func (MessageCreate) isEvent()      {}
func (MessageUpdateEvent) isEvent() {}
func (MessageDelete) isEvent()      {}
func (InteractionCreate) isEvent()  {}
