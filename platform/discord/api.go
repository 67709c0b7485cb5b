// Package discord adapts discordgo to the moderation core: inbound messages become event.Message, guild role positions become hierarchy ranks, and REST calls become dispatch effect functions with classified outcomes.
package discord

import (
	"github.com/bwmarrin/discordgo"
)

// GuildAPI is the part of *discordgo.Session used for moderation.
type GuildAPI interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

var _ GuildAPI = (*discordgo.Session)(nil)
