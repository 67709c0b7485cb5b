package blockstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bs := NewMemBlockStore()

	l, err := bs.List(ctx, "guild1")
	assert.NoError(err)
	assert.Empty(l)

	added, err := bs.Block(ctx, "guild1", "user2")
	assert.NoError(err)
	assert.True(added)
	added, err = bs.Block(ctx, "guild1", "user1")
	assert.NoError(err)
	assert.True(added)
	// already blocked
	added, err = bs.Block(ctx, "guild1", "user1")
	assert.NoError(err)
	assert.False(added)

	l, err = bs.List(ctx, "guild1")
	assert.NoError(err)
	assert.Equal([]string{"user1", "user2"}, l)

	blocked, err := bs.IsBlocked(ctx, "guild1", "user1")
	assert.NoError(err)
	assert.True(blocked)
	blocked, err = bs.IsBlocked(ctx, "guild2", "user1")
	assert.NoError(err)
	assert.False(blocked)

	removed, err := bs.Unblock(ctx, "guild1", "user1")
	assert.NoError(err)
	assert.True(removed)
	// never blocked, or already unblocked
	removed, err = bs.Unblock(ctx, "guild1", "user1")
	assert.NoError(err)
	assert.False(removed)
	removed, err = bs.Unblock(ctx, "guild9", "user1")
	assert.NoError(err)
	assert.False(removed)
}

func TestIsBlockedAnywhere(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bs := NewMemBlockStore()
	_, _ = bs.Block(ctx, GlobalScope, "troll")
	_, _ = bs.Block(ctx, "guild1", "local")

	for _, fix := range []struct {
		scope string
		id    string
		out   bool
	}{
		{"guild1", "troll", true},
		{"guild2", "troll", true},
		{"", "troll", true},
		{"guild1", "local", true},
		{"guild2", "local", false},
		{"", "local", false},
		{"guild1", "nobody", false},
	} {
		blocked, err := IsBlockedAnywhere(ctx, bs, fix.scope, fix.id)
		assert.NoError(err)
		assert.Equal(fix.out, blocked, "%s/%s", fix.scope, fix.id)
	}
}

func TestMemBlockStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bs := NewMemBlockStore()

	// Run this with `-race`!
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := bs.Block(ctx, "guild1", fmt.Sprintf("user%d", j))
				assert.NoError(err)
				_, err = bs.IsBlocked(ctx, "guild1", "user0")
				assert.NoError(err)
			}
		}()
	}
	wg.Wait()

	l, err := bs.List(ctx, "guild1")
	assert.NoError(err)
	assert.Len(l, 25)
}
