package gateway

import (
	"io"
	"time"
)

// User is a platform account.
type User struct {
	ID       string
	Username string
	Bot      bool
}

// Attachment is a file attached to a received message.
type Attachment struct {
	ID       string
	Filename string
	URL      string
}

// File is a file upload for an outgoing message.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// Embed is a rich-content block attached to a message.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
}

// Message is a platform message. The dispatch core keeps derived copies of
// messages it tracks and mutates them incrementally via MessageUpdate.Apply.
type Message struct {
	ID              string
	ChannelID       string
	GuildID         string
	Content         string
	TTS             bool
	Pinned          bool
	Timestamp       time.Time
	EditedTimestamp *time.Time
	Author          User
	MentionEveryone bool
	Mentions        []User
	MentionRoles    []string
	Attachments     []Attachment
	Embeds          []Embed
}

// MessageUpdate is a partial message-edit payload. Identity fields are
// always present; every other field is a pointer (or nil slice) so that an
// absent field is distinguishable from a zero value and leaves the prior
// value untouched on merge.
type MessageUpdate struct {
	ID        string
	ChannelID string
	GuildID   string

	Content         *string
	TTS             *bool
	Pinned          *bool
	Timestamp       *time.Time
	EditedTimestamp *time.Time
	Author          *User
	MentionEveryone *bool
	Mentions        []User
	MentionRoles    []string
	Attachments     []Attachment

	// Embeds is carried for completeness but never merged: partial update
	// payloads do not refresh rich-embed content.
	Embeds []Embed
}

// Apply merges the update into m field by field. Identity fields are copied
// unconditionally; optional fields only when present. Embeds are
// intentionally left alone.
func (u MessageUpdate) Apply(m *Message) {
	m.ID = u.ID
	m.ChannelID = u.ChannelID
	m.GuildID = u.GuildID

	if u.Content != nil {
		m.Content = *u.Content
	}
	if u.TTS != nil {
		m.TTS = *u.TTS
	}
	if u.Pinned != nil {
		m.Pinned = *u.Pinned
	}
	if u.Timestamp != nil {
		m.Timestamp = *u.Timestamp
	}
	if u.EditedTimestamp != nil {
		ts := *u.EditedTimestamp
		m.EditedTimestamp = &ts
	}
	if u.Author != nil {
		m.Author = *u.Author
	}
	if u.MentionEveryone != nil {
		m.MentionEveryone = *u.MentionEveryone
	}
	if u.Mentions != nil {
		m.Mentions = u.Mentions
	}
	if u.MentionRoles != nil {
		m.MentionRoles = u.MentionRoles
	}
	if u.Attachments != nil {
		m.Attachments = u.Attachments
	}
}
