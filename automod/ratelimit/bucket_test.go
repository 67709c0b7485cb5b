package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/nutsandbolts/modcore/automod/countstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketCapacity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	b, err := NewBucket("content", 15, 18*time.Second)
	require.NoError(t, err)
	start := time.Unix(1_700_000_000, 0)

	for i := 0; i < 15; i++ {
		exceeded, err := b.Check(ctx, "chan1", start.Add(time.Duration(i)*100*time.Millisecond))
		assert.NoError(err)
		assert.False(exceeded, "event %d", i+1)
	}

	// the 16th event in the window trips the bucket, and it stays tripped
	for i := 0; i < 5; i++ {
		exceeded, err := b.Check(ctx, "chan1", start.Add(2*time.Second))
		assert.NoError(err)
		assert.True(exceeded)
	}

	// an unrelated key is not affected
	exceeded, err := b.Check(ctx, "chan2", start.Add(2*time.Second))
	assert.NoError(err)
	assert.False(exceeded)
}

func TestBucketWindowReset(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	b, err := NewBucket("channel", 2, 10*time.Second)
	require.NoError(t, err)
	start := time.Unix(1_700_000_000, 0)

	ex, _ := b.Check(ctx, "k", start)
	assert.False(ex)
	ex, _ = b.Check(ctx, "k", start.Add(time.Second))
	assert.False(ex)
	ex, _ = b.Check(ctx, "k", start.Add(2*time.Second))
	assert.True(ex)

	// an event exactly `period` after the window start does not count against the old window
	ex, _ = b.Check(ctx, "k", start.Add(10*time.Second))
	assert.False(ex)
	c, err := b.Count(ctx, "k")
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestBucketZeroCapacity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	b, err := NewBucket("none", 0, time.Second)
	require.NoError(t, err)
	ex, err := b.Check(ctx, "k", time.Unix(1, 0))
	assert.NoError(err)
	assert.True(ex)
}

func TestBucketSharedStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := countstore.NewMemCountStore()

	a, err := NewBucketWithStore("a", 1, time.Minute, store)
	require.NoError(t, err)
	b, err := NewBucketWithStore("b", 1, time.Minute, store)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	ex, _ := a.Check(ctx, "same", now)
	assert.False(ex)
	// same key, different bucket name: separate counter
	ex, _ = b.Check(ctx, "same", now)
	assert.False(ex)
	ex, _ = a.Check(ctx, "same", now)
	assert.True(ex)
}

func TestBucketInvalidConfig(t *testing.T) {
	assert := assert.New(t)

	_, err := NewBucket("x", -1, time.Second)
	assert.ErrorIs(err, ErrInvalidBucket)
	_, err = NewBucket("x", 1, 0)
	assert.ErrorIs(err, ErrInvalidBucket)
	_, err = NewBucketWithStore("x", 1, time.Second, nil)
	assert.ErrorIs(err, ErrInvalidBucket)
}
