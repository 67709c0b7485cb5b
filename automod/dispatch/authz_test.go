package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAct(t *testing.T) {
	assert := assert.New(t)

	owner := Member{ID: "owner", Rank: 0, IsOwner: true}
	admin := Member{ID: "admin", Rank: 10}
	mod := Member{ID: "mod", Rank: 5}
	otherMod := Member{ID: "mod2", Rank: 5}
	user := Member{ID: "user", Rank: 1}

	assert.NoError(CanAct(owner, admin))
	assert.NoError(CanAct(owner, owner))
	assert.NoError(CanAct(admin, mod))
	assert.NoError(CanAct(mod, user))

	// equal rank is not enough
	assert.ErrorIs(CanAct(mod, otherMod), ErrRankTooLow)
	assert.ErrorIs(CanAct(mod, admin), ErrRankTooLow)
	// nobody but the owner may act on the owner, whatever their rank
	assert.ErrorIs(CanAct(Member{ID: "x", Rank: 100}, owner), ErrTargetIsOwner)
}

func TestCanAssign(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(CanAssign(Member{IsOwner: true}, 50))
	assert.NoError(CanAssign(Member{Rank: 6}, 5))
	assert.ErrorIs(CanAssign(Member{Rank: 5}, 5), ErrRoleTooHigh)
	assert.ErrorIs(CanAssign(Member{Rank: 4}, 5), ErrRoleTooHigh)
}

func testLookup(members map[string]Member) MemberLookup {
	return func(ctx context.Context, id string) (Member, error) {
		m, ok := members[id]
		if !ok {
			return Member{}, NotFoundError(nil)
		}
		return m, nil
	}
}

func TestHierarchyAuthorizer(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	lookup := testLookup(map[string]Member{
		"owner": {ID: "owner", IsOwner: true},
		"mod":   {ID: "mod", Rank: 5},
		"user":  {ID: "user", Rank: 1},
	})
	authorize := HierarchyAuthorizer(lookup)

	assert.NoError(authorize(ctx, "mod", "user"))
	assert.ErrorIs(authorize(ctx, "user", "mod"), ErrRankTooLow)
	assert.ErrorIs(authorize(ctx, "mod", "owner"), ErrTargetIsOwner)
	assert.Equal(NotFound, denialOutcome(authorize(ctx, "mod", "ghost")))

	roles := RoleAuthorizer(lookup, 5)
	assert.ErrorIs(roles(ctx, "mod", "user"), ErrRoleTooHigh)
	assert.NoError(RoleAuthorizer(lookup, 4)(ctx, "mod", "user"))
	assert.NoError(roles(ctx, "owner", "user"))
}

func TestDispatchWithHierarchy(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	fx := &fakeEffects{}

	lookup := testLookup(map[string]Member{
		"mod":   {ID: "mod", Rank: 5},
		"peer":  {ID: "peer", Rank: 5},
		"user":  {ID: "user", Rank: 1},
		"owner": {ID: "owner", IsOwner: true},
	})
	rep, err := Dispatch(ctx, NewDispatcher(Config{}, nil), Request[string]{
		Action:  ActionKick,
		ActorID: "mod",
		Targets: []string{"user", "peer", "owner", "ghost"},
	}, HierarchyAuthorizer(lookup), fx.effect)
	require.NoError(t, err)

	assert.Equal([]string{"user"}, fx.calls())
	assert.Equal([]string{"peer", "owner"}, rep.Targets(PermissionDenied))
	assert.Equal([]string{"ghost"}, rep.Targets(NotFound))
}

func TestFormatReason(t *testing.T) {
	assert := assert.New(t)

	full, err := FormatReason("mod#0001", "1234", "spamming links")
	assert.NoError(err)
	assert.Equal("mod#0001 (ID: 1234): spamming links", full)

	full, err = FormatReason("mod#0001", "1234", "")
	assert.NoError(err)
	assert.Equal("mod#0001 (ID: 1234): No reason provided.", full)

	// prefix "mod#0001 (ID: 1234): " is 21 characters, leaving 491 for the reason
	full, err = FormatReason("mod#0001", "1234", strings.Repeat("x", 491))
	assert.NoError(err)
	assert.Len(full, MaxReasonLength)

	_, err = FormatReason("mod#0001", "1234", strings.Repeat("x", 492))
	assert.ErrorIs(err, ErrReasonTooLong)
	assert.Contains(err.Error(), "492 character reason (491 character max)")
}
