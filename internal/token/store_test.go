package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func TestStore_Issue(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	tok := store.Issue("10.0.0.1")
	assert.Len(t, tok.Value, valueBytes*2)
	assert.Equal(t, "10.0.0.1", tok.IssuedTo)
	assert.Equal(t, clock.Now().Add(12*time.Hour), tok.ExpiresAt)

	other := store.Issue("10.0.0.1")
	assert.NotEqual(t, tok.Value, other.Value)

	identities, tokens := store.Stats()
	assert.Equal(t, 1, identities)
	assert.Equal(t, 2, tokens)
}

func TestStore_VerifyAndConsume(t *testing.T) {
	t.Run("令牌只能使用一次", func(t *testing.T) {
		store := NewStore()
		tok := store.Issue("1.1.1.1")

		assert.True(t, store.VerifyAndConsume("1.1.1.1", tok.Value))
		assert.False(t, store.VerifyAndConsume("1.1.1.1", tok.Value))
	})

	t.Run("错误的值或身份被拒绝", func(t *testing.T) {
		store := NewStore()
		tok := store.Issue("1.1.1.1")

		assert.False(t, store.VerifyAndConsume("1.1.1.1", "deadbeef"))
		assert.False(t, store.VerifyAndConsume("2.2.2.2", tok.Value))
		assert.False(t, store.VerifyAndConsume("1.1.1.1", ""))

		// 失败的查找不消费任何令牌
		assert.True(t, store.VerifyAndConsume("1.1.1.1", tok.Value))
	})

	t.Run("过期令牌在清理前即被拒绝", func(t *testing.T) {
		clock := newFakeClock()
		store := NewStore(WithClock(clock.Now))
		tok := store.Issue("1.1.1.1")

		clock.Advance(12 * time.Hour)
		assert.False(t, store.VerifyAndConsume("1.1.1.1", tok.Value))
	})

	t.Run("消费中间的令牌保留其他令牌", func(t *testing.T) {
		store := NewStore()
		a := store.Issue("1.1.1.1")
		b := store.Issue("1.1.1.1")
		c := store.Issue("1.1.1.1")

		assert.True(t, store.VerifyAndConsume("1.1.1.1", b.Value))
		assert.True(t, store.VerifyAndConsume("1.1.1.1", a.Value))
		assert.True(t, store.VerifyAndConsume("1.1.1.1", c.Value))

		identities, tokens := store.Stats()
		assert.Zero(t, identities)
		assert.Zero(t, tokens)
	})
}

func TestStore_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	old := store.Issue("1.1.1.1")
	store.Issue("2.2.2.2")

	clock.Advance(6 * time.Hour)
	fresh := store.Issue("1.1.1.1")

	// old 恰好在此刻过期（expiresAt == now）
	clock.Advance(6 * time.Hour)
	removed := store.SweepExpired(clock.Now())
	assert.Equal(t, 2, removed)

	identities, tokens := store.Stats()
	assert.Equal(t, 1, identities)
	assert.Equal(t, 1, tokens)

	assert.False(t, store.VerifyAndConsume("1.1.1.1", old.Value))
	assert.True(t, store.VerifyAndConsume("1.1.1.1", fresh.Value))
}

func TestStore_ConsumeRacesSweep(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now), WithTTL(time.Minute))

	const n = 200
	issued := make([]string, n)
	for i := range issued {
		issued[i] = store.Issue("race").Value
	}
	clock.Advance(time.Minute)

	var consumed, swept atomic.Int64
	var wg sync.WaitGroup
	for _, v := range issued {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			if store.VerifyAndConsume("race", v) {
				consumed.Add(1)
			}
		}(v)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		swept.Add(int64(store.SweepExpired(clock.Now())))
	}()
	wg.Wait()

	// 全部过期：消费必然失败，清理必然回收全部令牌
	assert.Zero(t, consumed.Load())
	assert.Equal(t, int64(n), swept.Load())
}

func TestStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	store := NewStore()
	tok := store.Issue("1.1.1.1")

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.VerifyAndConsume("1.1.1.1", tok.Value) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
}

func TestSweeper(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))
	store.Issue("1.1.1.1")
	clock.Advance(13 * time.Hour)

	var gotRemoved, gotLive int
	sweeper := NewSweeper(store, time.Hour, nil, func(removed, live int) {
		gotRemoved, gotLive = removed, live
	})

	assert.Equal(t, 1, sweeper.SweepOnce())
	assert.Equal(t, 1, gotRemoved)
	assert.Equal(t, 0, gotLive)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "sweeper did not stop after cancel")
	}
}
