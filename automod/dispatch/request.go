package dispatch

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/nutsandbolts/modcore/automod/helpers"
)

// DefaultMaxTargets is used when neither the request nor the dispatcher set a limit.
const DefaultMaxTargets = 10

// ErrInvalidRequest is returned, before any target is processed, for requests which could never be carried out.
var ErrInvalidRequest = errors.New("invalid action request")

// AuthorizeFunc returns nil if actorID may perform the action on target. Any error denies the target, and the effect is never run for it.
//
// A denial is reported as PermissionDenied, unless the error wraps an *EffectError of another kind: a failed hierarchy lookup reports that kind instead (eg, NotFound for a target which has left the scope, or Unexpected for an API outage).
type AuthorizeFunc[T comparable] func(ctx context.Context, actorID string, target T) error

// EffectFunc performs the action against a single target. Failures should be returned as an *EffectError.
type EffectFunc[T comparable] func(ctx context.Context, target T, reason string) error

// Request describes one moderation command invocation: a single action, applied to a list of targets on behalf of an actor.
type Request[T comparable] struct {
	Action  Action
	ActorID string
	Targets []T
	// Passed verbatim to every effect call. See FormatReason.
	Reason string
	// Per-request cap on targets. Zero means the dispatcher's configured maximum; negative is invalid.
	MaxTargets int
}

func (r *Request[T]) validate() error {
	if r.Action == "" {
		return fmt.Errorf("%w: no action", ErrInvalidRequest)
	}
	if r.MaxTargets < 0 {
		return fmt.Errorf("%w: negative max targets (%d)", ErrInvalidRequest, r.MaxTargets)
	}
	if n := utf8.RuneCountInString(r.Reason); n > MaxReasonLength {
		return fmt.Errorf("%w: %d character reason (%d character max)", ErrInvalidRequest, n, MaxReasonLength)
	}
	return nil
}

// normalizeTargets de-duplicates targets (keeping first occurrences, in order) and truncates to limit, keeping the earliest. Returns the kept and dropped targets.
func normalizeTargets[T comparable](targets []T, limit int) (kept, dropped []T) {
	kept = helpers.Dedupe(targets)
	if len(kept) > limit {
		dropped = kept[limit:]
		kept = kept[:limit]
	}
	return kept, dropped
}
