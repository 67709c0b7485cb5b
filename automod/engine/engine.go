package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nutsandbolts/modcore/automod/blockstore"
	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/ratelimit"
	"github.com/nutsandbolts/modcore/automod/spam"
	"github.com/nutsandbolts/modcore/automod/tags"
)

var ErrNoPlatform = errors.New("no platform configured for action")

// Platform supplies the chat-platform side of moderation actions for a scope.
type Platform interface {
	// Effect returns the function which carries out action against one target in scope.
	Effect(scope string, action dispatch.Action) (dispatch.EffectFunc[string], error)
	// Authorizer returns the hierarchy check for actors in scope.
	Authorizer(scope string) dispatch.AuthorizeFunc[string]
}

// RolePlatform is a Platform which can also hand out and take away permission groups.
type RolePlatform interface {
	Platform
	RoleEffect(scope, roleID string, add bool) (dispatch.EffectFunc[string], error)
	// RoleAuthorizer checks the member hierarchy and the rank of the role itself.
	RoleAuthorizer(scope, roleID string) dispatch.AuthorizeFunc[string]
}

// What the engine does when it detects spam.
type Escalation struct {
	// Add the author to the scope's deny-list
	Block bool
	// Ban the author through the platform (guild messages only)
	Ban bool
	// Send a notification
	Notify bool
	// Maximum number of escalations per scope per day (circuit breaker). Zero means DefaultEscalationQuota.
	DailyQuota int
}

type Config struct {
	// Account ID of the bot itself; its messages are never processed
	BotUserID string
	// Display name used to attribute automatic actions
	BotName string
	// Account ID of the bot owner; their messages are never processed, and only they may edit the global deny-list
	OwnerID    string
	Escalation Escalation
}

// Engine runs incoming messages through the deny-list and spam detection, and carries out moderation actions.
//
// The engine owns all per-scope state (detectors, deny-lists, tags) for the life of the process, and is safe for concurrent use.
type Engine struct {
	Logger     *slog.Logger
	Config     Config
	Spam       *spam.Registry
	Blocks     blockstore.BlockStore
	Tags       *tags.Registry
	Dispatcher *dispatch.Dispatcher
	// Optional; needed for platform actions (kick, ban, roles, ...)
	Platform Platform
	// Optional; receives spam escalations and action reports
	Notifier Notifier

	escalations *ratelimit.Bucket
}

// NewEngine wires an engine with in-memory state.
func NewEngine(cfg Config, spamCfg spam.Config, dispatchCfg dispatch.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sr, err := spam.NewRegistry(spamCfg, logger)
	if err != nil {
		return nil, err
	}
	eng := &Engine{
		Logger:     logger,
		Config:     cfg,
		Spam:       sr,
		Blocks:     blockstore.NewMemBlockStore(),
		Tags:       tags.NewRegistry(nil, logger),
		Dispatcher: dispatch.NewDispatcher(dispatchCfg, logger),
	}
	if err := eng.initQuota(); err != nil {
		return nil, err
	}
	return eng, nil
}

func (eng *Engine) initQuota() error {
	quota := eng.Config.Escalation.DailyQuota
	if quota == 0 {
		quota = DefaultEscalationQuota
	}
	b, err := ratelimit.NewBucket("escalations", quota, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("escalation quota: %w", err)
	}
	eng.escalations = b
	return nil
}

// Verdict summarizes what the engine did with a message.
type Verdict string

const (
	// from a bot, or from the bot owner
	VerdictIgnored Verdict = "ignored"
	// author is on a deny-list
	VerdictBlocked Verdict = "blocked"
	VerdictSpam    Verdict = "spam"
	VerdictOK      Verdict = "ok"
)

// ProcessMessage runs a single message through the pipeline. Spam is escalated according to Config.Escalation before returning.
func (eng *Engine) ProcessMessage(ctx context.Context, msg *event.Message) (verdict Verdict, err error) {
	// similar to an HTTP server, we want to recover any panics from message processing
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod message processing exception", "err", r, "scope", msg.Scope(), "author", msg.AuthorID)
			err = fmt.Errorf("message processing panic: %v", r)
		}
	}()

	start := time.Now()
	defer func() {
		messageProcessDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			messageErrorCount.Inc()
		}
		if verdict != "" {
			messageVerdictCount.WithLabelValues(string(verdict)).Inc()
		}
	}()

	if msg.AuthorBot || msg.AuthorID == eng.Config.BotUserID || (eng.Config.OwnerID != "" && msg.AuthorID == eng.Config.OwnerID) {
		return VerdictIgnored, nil
	}

	scope := msg.Scope()
	blocked, err := blockstore.IsBlockedAnywhere(ctx, eng.Blocks, scope, msg.AuthorID)
	if err != nil {
		return "", fmt.Errorf("checking deny-list: %w", err)
	}
	if blocked {
		return VerdictBlocked, nil
	}

	v, err := eng.Spam.Check(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("checking spam: %w", err)
	}
	if !v.Spamming() {
		return VerdictOK, nil
	}

	if err := eng.escalate(ctx, msg, v); err != nil {
		return VerdictSpam, err
	}
	return VerdictSpam, nil
}

// RunAction dispatches a moderation action in scope. Block and unblock act on the engine's own deny-list; everything else goes through the Platform.
func (eng *Engine) RunAction(ctx context.Context, scope string, req dispatch.Request[string]) (*dispatch.Report[string], error) {
	authorize, effect, err := eng.actionFuncs(scope, req.Action)
	if err != nil {
		return nil, err
	}
	return eng.run(ctx, scope, req, authorize, effect)
}

// RunRoleAction adds (ActionAddRole) or removes (ActionRemoveRole) roleID for each target in scope.
func (eng *Engine) RunRoleAction(ctx context.Context, scope, roleID string, req dispatch.Request[string]) (*dispatch.Report[string], error) {
	var add bool
	switch req.Action {
	case dispatch.ActionAddRole:
		add = true
	case dispatch.ActionRemoveRole:
	default:
		return nil, fmt.Errorf("%w: %s is not a role action", dispatch.ErrInvalidRequest, req.Action)
	}
	rp, ok := eng.Platform.(RolePlatform)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPlatform, req.Action)
	}
	effect, err := rp.RoleEffect(scope, roleID, add)
	if err != nil {
		return nil, err
	}
	return eng.run(ctx, scope, req, rp.RoleAuthorizer(scope, roleID), effect)
}

func (eng *Engine) run(ctx context.Context, scope string, req dispatch.Request[string], authorize dispatch.AuthorizeFunc[string], effect dispatch.EffectFunc[string]) (*dispatch.Report[string], error) {
	rep, err := dispatch.Dispatch(ctx, eng.Dispatcher, req, authorize, effect)
	if err != nil {
		return nil, err
	}
	eng.Logger.Info("action dispatched", "scope", scope, "action", req.Action, "actor", req.ActorID, "summary", rep.Summary(), "dropped", len(rep.Dropped))
	if eng.Notifier != nil {
		if err := eng.Notifier.SendReport(ctx, scope, rep); err != nil {
			eng.Logger.Error("failed to send action notification", "err", err, "scope", scope)
		}
	}
	return rep, nil
}

func (eng *Engine) actionFuncs(scope string, action dispatch.Action) (dispatch.AuthorizeFunc[string], dispatch.EffectFunc[string], error) {
	switch action {
	case dispatch.ActionBlock:
		return eng.blockAuthorizer(scope), eng.blockEffect(scope), nil
	case dispatch.ActionUnblock:
		return eng.blockAuthorizer(scope), eng.unblockEffect(scope), nil
	}
	if eng.Platform == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPlatform, action)
	}
	effect, err := eng.Platform.Effect(scope, action)
	if err != nil {
		return nil, nil, err
	}
	return eng.Platform.Authorizer(scope), effect, nil
}
