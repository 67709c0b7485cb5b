package event

import (
	"time"
)

// Message is a platform-neutral view of a single chat message, as seen by the moderation engine.
//
// The platform adapter is responsible for filling this in from its own message type.
type Message struct {
	// Identifier of the message itself, for logging
	ID string `json:"id"`
	// Guild (server) the message was posted in; empty for direct messages
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	// Display name of the author, for logging and notifications
	AuthorName string `json:"author_name,omitempty"`
	// Set for messages authored by bots (including this bot)
	AuthorBot bool   `json:"author_bot,omitempty"`
	Content   string `json:"content"`
	// Platform timestamp of the message. Spam windows are evaluated against this, not the local clock.
	CreatedAt time.Time `json:"created_at"`
}

// Scope is the key under which per-community state (spam windows, blocks, tags) is kept: the guild when there is one, otherwise the channel.
func (m *Message) Scope() string {
	if m.GuildID != "" {
		return m.GuildID
	}
	return m.ChannelID
}

// Extends Message with an explicit invocation of a moderation command. The message author is the actor.
type CommandEvent struct {
	Message

	// Command word, eg "ban" or "tag"
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

func (c *CommandEvent) IsCommand() bool {
	return c.Command != ""
}
