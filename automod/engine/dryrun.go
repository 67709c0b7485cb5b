package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nutsandbolts/modcore/automod/dispatch"
)

// DryRunPlatform logs platform actions instead of carrying them out. There is no member hierarchy to consult, so every actor is authorized.
type DryRunPlatform struct {
	Logger *slog.Logger

	mu    sync.Mutex
	count int
}

var _ RolePlatform = (*DryRunPlatform)(nil)

func NewDryRunPlatform(logger *slog.Logger) *DryRunPlatform {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunPlatform{
		Logger: logger.With("component", "dryrun"),
	}
}

// Count is the number of actions which would have been carried out.
func (p *DryRunPlatform) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *DryRunPlatform) allow(ctx context.Context, actorID string, target string) error {
	return nil
}

func (p *DryRunPlatform) Authorizer(scope string) dispatch.AuthorizeFunc[string] {
	return p.allow
}

func (p *DryRunPlatform) RoleAuthorizer(scope, roleID string) dispatch.AuthorizeFunc[string] {
	return p.allow
}

func (p *DryRunPlatform) record(scope, action, roleID string) dispatch.EffectFunc[string] {
	return func(ctx context.Context, target string, reason string) error {
		p.mu.Lock()
		p.count++
		p.mu.Unlock()
		p.Logger.Info("dry run, not carrying out action", "scope", scope, "action", action, "target", target, "role", roleID, "reason", reason)
		return nil
	}
}

func (p *DryRunPlatform) Effect(scope string, action dispatch.Action) (dispatch.EffectFunc[string], error) {
	switch action {
	case dispatch.ActionKick, dispatch.ActionBan, dispatch.ActionUnban, dispatch.ActionSoftban:
	default:
		return nil, fmt.Errorf("unsupported action: %s", action)
	}
	return p.record(scope, string(action), ""), nil
}

func (p *DryRunPlatform) RoleEffect(scope, roleID string, add bool) (dispatch.EffectFunc[string], error) {
	action := dispatch.ActionRemoveRole
	if add {
		action = dispatch.ActionAddRole
	}
	return p.record(scope, string(action), roleID), nil
}
