package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/nutsandbolts/modcore/automod/engine"
	"github.com/nutsandbolts/modcore/automod/event"
)

func FromMessage(m *discordgo.Message) *event.Message {
	msg := &event.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.String()
		msg.AuthorBot = m.Author.Bot
	}
	return msg
}

// MessageHandler returns a discordgo event handler which feeds every created message through eng.
func MessageHandler(eng *engine.Engine) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Message == nil {
			return
		}
		msg := FromMessage(m.Message)
		verdict, err := eng.ProcessMessage(context.Background(), msg)
		if err != nil {
			eng.Logger.Error("failed to process message", "err", err, "scope", msg.Scope(), "message", msg.ID)
			return
		}
		if verdict == engine.VerdictSpam {
			eng.Logger.Info("spam detected", "scope", msg.Scope(), "author", msg.AuthorID, "message", msg.ID)
		} else {
			eng.Logger.Debug("message processed", "verdict", verdict, "message", msg.ID)
		}
	}
}
