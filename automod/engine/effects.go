package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/nutsandbolts/modcore/automod/blockstore"
	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/spam"
)

var (
	// number of spam escalations the engine will carry out per scope per day (circuit breaker)
	DefaultEscalationQuota = 20

	ErrNotOwner = errors.New("only the bot owner may edit the global deny-list")
)

func (eng *Engine) blockEffect(scope string) dispatch.EffectFunc[string] {
	return func(ctx context.Context, target string, reason string) error {
		added, err := eng.Blocks.Block(ctx, scope, target)
		if err != nil {
			return dispatch.UnexpectedError(err)
		}
		if !added {
			return dispatch.AlreadyInStateError(fmt.Errorf("%s is already blocked", target))
		}
		return nil
	}
}

func (eng *Engine) unblockEffect(scope string) dispatch.EffectFunc[string] {
	return func(ctx context.Context, target string, reason string) error {
		removed, err := eng.Blocks.Unblock(ctx, scope, target)
		if err != nil {
			return dispatch.UnexpectedError(err)
		}
		if !removed {
			return dispatch.AlreadyInStateError(fmt.Errorf("%s is not blocked", target))
		}
		return nil
	}
}

// The global deny-list belongs to the bot owner. Scoped deny-lists follow the platform hierarchy when there is a platform, and are otherwise restricted to the owner and the bot itself.
func (eng *Engine) blockAuthorizer(scope string) dispatch.AuthorizeFunc[string] {
	ownerOnly := func(ctx context.Context, actorID string, target string) error {
		if actorID != "" && (actorID == eng.Config.OwnerID || actorID == eng.Config.BotUserID) {
			return nil
		}
		return ErrNotOwner
	}
	if scope == blockstore.GlobalScope || eng.Platform == nil {
		return ownerOnly
	}
	hierarchy := eng.Platform.Authorizer(scope)
	return func(ctx context.Context, actorID string, target string) error {
		if ownerOnly(ctx, actorID, target) == nil {
			return nil
		}
		return hierarchy(ctx, actorID, target)
	}
}

// escalate carries out the configured spam policy. Each step is attempted even if an earlier one failed; the first error is returned.
func (eng *Engine) escalate(ctx context.Context, msg *event.Message, v spam.Verdict) error {
	scope := msg.Scope()
	esc := eng.Config.Escalation
	logger := eng.Logger.With("scope", scope, "author", msg.AuthorID, "verdict", v.String())

	if !esc.Block && !esc.Ban && !esc.Notify {
		return nil
	}

	over, err := eng.escalations.Check(ctx, scope, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("checking escalation quota: %w", err)
	}
	if over {
		logger.Warn("spam escalation quota exceeded, skipping")
		escalationCount.WithLabelValues("quota").Inc()
		return nil
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if esc.Block {
		added, err := eng.Blocks.Block(ctx, scope, msg.AuthorID)
		keep(err)
		if added {
			logger.Info("blocked spammer")
			escalationCount.WithLabelValues("block").Inc()
		}
	}

	if esc.Notify && eng.Notifier != nil {
		if err := eng.Notifier.SendSpam(ctx, msg, v); err != nil {
			logger.Error("failed to send spam notification", "err", err)
			keep(err)
		} else {
			escalationCount.WithLabelValues("notify").Inc()
		}
	}

	if esc.Ban && msg.GuildID != "" && eng.Platform != nil {
		reason, err := dispatch.FormatReason(eng.botName(), eng.Config.BotUserID, fmt.Sprintf("Automatic ban: %s spam", v.String()))
		if err != nil {
			keep(err)
		} else {
			rep, err := eng.RunAction(ctx, scope, dispatch.Request[string]{
				Action:  dispatch.ActionBan,
				ActorID: eng.Config.BotUserID,
				Targets: []string{msg.AuthorID},
				Reason:  reason,
			})
			keep(err)
			if rep != nil && rep.Count(dispatch.Success) > 0 {
				logger.Info("banned spammer")
				escalationCount.WithLabelValues("ban").Inc()
			}
		}
	}
	return firstErr
}

func (eng *Engine) botName() string {
	if eng.Config.BotName != "" {
		return eng.Config.BotName
	}
	return "automod"
}
