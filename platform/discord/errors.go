package discord

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/nutsandbolts/modcore/automod/dispatch"
)

// Classify maps a discordgo REST failure onto the dispatch outcome taxonomy. Anything unrecognized is Unexpected.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *dispatch.EffectError
	if errors.As(err, &ee) {
		return err
	}

	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return dispatch.UnexpectedError(err)
	}
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownBan, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownGuild:
			return dispatch.NotFoundError(err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return dispatch.NoAccessError(err)
		}
	}
	if rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound:
			return dispatch.NotFoundError(err)
		case http.StatusForbidden:
			return dispatch.NoAccessError(err)
		}
	}
	return dispatch.UnexpectedError(err)
}
