package countstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	period := 10 * time.Second
	t0 := time.Unix(1_700_000_000, 0)

	c, err := cs.GetCount(ctx, "test1")
	assert.NoError(err)
	assert.Equal(0, c)

	for i := 1; i <= 3; i++ {
		c, err = cs.Hit(ctx, "test1", t0.Add(time.Duration(i)*time.Second), period)
		assert.NoError(err)
		assert.Equal(i, c)
	}

	c, err = cs.GetCount(ctx, "test1")
	assert.NoError(err)
	assert.Equal(3, c)

	// other keys are independent
	c, err = cs.Hit(ctx, "test2", t0, period)
	assert.NoError(err)
	assert.Equal(1, c)
	assert.Equal(2, cs.Len())
}

func TestMemCountStoreWindowReset(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	period := 18 * time.Second
	start := time.Unix(1_700_000_000, 0)

	c, _ := cs.Hit(ctx, "k", start, period)
	assert.Equal(1, c)

	// just inside the window
	c, _ = cs.Hit(ctx, "k", start.Add(period-time.Millisecond), period)
	assert.Equal(2, c)

	// exactly one period after window start: new window
	c, _ = cs.Hit(ctx, "k", start.Add(period), period)
	assert.Equal(1, c)

	// the new window is anchored at the reset event, not the old start
	c, _ = cs.Hit(ctx, "k", start.Add(2*period-time.Second), period)
	assert.Equal(2, c)
	c, _ = cs.Hit(ctx, "k", start.Add(2*period), period)
	assert.Equal(1, c)
}

func TestBoundedMemCountStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewBoundedMemCountStore(memShards*2, time.Hour)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 500; i++ {
		_, err := cs.Hit(ctx, fmt.Sprintf("key-%d", i), now, time.Minute)
		assert.NoError(err)
	}
	assert.LessOrEqual(cs.Len(), memShards*2)

	// a recently hit key survives and keeps counting
	c, err := cs.Hit(ctx, "key-499", now, time.Minute)
	assert.NoError(err)
	assert.Equal(2, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	now := time.Unix(1_700_000_000, 0)

	// Hit two different keys from several goroutines, all within one window.
	// Run this with `-race`!
	var wg sync.WaitGroup
	fnHit := func(key string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			_, err := cs.Hit(ctx, key, now, time.Hour)
			assert.NoError(err)
			time.Sleep(time.Nanosecond)
		}
	}
	wg.Add(4)
	go fnHit("test1", 10)
	go fnHit("test1", 10)
	go fnHit("test2", 6)
	go fnHit("test2", 6)
	wg.Wait()

	c, err := cs.GetCount(ctx, "test1")
	assert.NoError(err)
	assert.Equal(20, c)
	c, err = cs.GetCount(ctx, "test2")
	assert.NoError(err)
	assert.Equal(12, c)
}

func TestRedisCountStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCountStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	start := time.Now()

	c, err := cs.Hit(ctx, key, start, time.Minute)
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = cs.Hit(ctx, key, start.Add(time.Second), time.Minute)
	assert.NoError(err)
	assert.Equal(2, c)
	c, err = cs.Hit(ctx, key, start.Add(time.Minute), time.Minute)
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = cs.GetCount(ctx, key)
	assert.NoError(err)
	assert.Equal(1, c)
}
