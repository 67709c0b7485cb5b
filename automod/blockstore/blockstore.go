package blockstore

import (
	"context"
)

// GlobalScope is the scope name for the process-wide deny-list, which applies in every scope.
const GlobalScope = "global"

// BlockStore is a deny-list of account IDs, kept per scope. Messages from blocked accounts are ignored by the engine.
type BlockStore interface {
	IsBlocked(ctx context.Context, scope, id string) (bool, error)
	// Returns false (and no error) if the account was already blocked
	Block(ctx context.Context, scope, id string) (bool, error)
	// Returns false (and no error) if the account was not blocked
	Unblock(ctx context.Context, scope, id string) (bool, error)
	List(ctx context.Context, scope string) ([]string, error)
}

// IsBlockedAnywhere checks the global deny-list, then the given scope's.
func IsBlockedAnywhere(ctx context.Context, bs BlockStore, scope, id string) (bool, error) {
	blocked, err := bs.IsBlocked(ctx, GlobalScope, id)
	if err != nil || blocked {
		return blocked, err
	}
	if scope == "" || scope == GlobalScope {
		return false, nil
	}
	return bs.IsBlocked(ctx, scope, id)
}
