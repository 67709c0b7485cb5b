package dispatch

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTargetIsOwner = errors.New("target is the owner of this server")
	ErrRankTooLow    = errors.New("actor does not outrank target")
	ErrRoleTooHigh   = errors.New("actor does not outrank role")
)

// Member is the hierarchy view of an account within a scope. Rank is the position of the member's highest-ranked permission group; higher outranks lower.
type Member struct {
	ID      string
	Rank    int
	IsOwner bool
}

// CanAct returns nil if actor may act on target: the owner may act on anyone; anyone else needs a strictly higher rank than the target, and may never act on the owner.
func CanAct(actor, target Member) error {
	if actor.IsOwner {
		return nil
	}
	if target.IsOwner {
		return ErrTargetIsOwner
	}
	if actor.Rank <= target.Rank {
		return fmt.Errorf("%w (%d <= %d)", ErrRankTooLow, actor.Rank, target.Rank)
	}
	return nil
}

// CanAssign returns nil if actor may hand out (or take away) a permission group of the given rank. Same strict rule as CanAct.
func CanAssign(actor Member, roleRank int) error {
	if actor.IsOwner {
		return nil
	}
	if actor.Rank <= roleRank {
		return fmt.Errorf("%w (%d <= %d)", ErrRoleTooHigh, actor.Rank, roleRank)
	}
	return nil
}

// MemberLookup resolves an account ID to its hierarchy position. Lookup failures should be returned as an *EffectError (eg, NotFound for someone who left).
type MemberLookup func(ctx context.Context, id string) (Member, error)

// HierarchyAuthorizer checks CanAct between the actor and each target, both resolved with lookup.
func HierarchyAuthorizer(lookup MemberLookup) AuthorizeFunc[string] {
	return func(ctx context.Context, actorID string, targetID string) error {
		actor, err := lookup(ctx, actorID)
		if err != nil {
			return fmt.Errorf("looking up actor: %w", err)
		}
		target, err := lookup(ctx, targetID)
		if err != nil {
			return fmt.Errorf("looking up target: %w", err)
		}
		return CanAct(actor, target)
	}
}

// RoleAuthorizer is HierarchyAuthorizer plus a CanAssign check for the role being added or removed.
func RoleAuthorizer(lookup MemberLookup, roleRank int) AuthorizeFunc[string] {
	members := HierarchyAuthorizer(lookup)
	return func(ctx context.Context, actorID string, targetID string) error {
		if err := members(ctx, actorID, targetID); err != nil {
			return err
		}
		actor, err := lookup(ctx, actorID)
		if err != nil {
			return fmt.Errorf("looking up actor: %w", err)
		}
		return CanAssign(actor, roleRank)
	}
}
