package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestSendBudgetRefillsPerMinute(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiterWithClock(3, c.Now)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("u1", ActionSendMessage)
		assert.True(t, ok, "send %d", i)
	}

	ok, wait := rl.Allow("u1", ActionSendMessage)
	assert.False(t, ok)
	assert.Equal(t, 20*time.Second, wait)

	// Other users have their own bucket.
	ok, _ = rl.Allow("u2", ActionSendMessage)
	assert.True(t, ok)

	c.now = c.now.Add(20 * time.Second)
	ok, _ = rl.Allow("u1", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("u1", ActionSendMessage)
	assert.False(t, ok)

	tokens, max := rl.GetStatus("u1", ActionSendMessage)
	assert.Equal(t, 0, tokens)
	assert.Equal(t, 3, max)
}

func TestMarkReadHasLargerBudget(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiterWithClock(2, c.Now)

	for i := 0; i < 8; i++ {
		ok, _ := rl.Allow("u1", ActionMarkRead)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow("u1", ActionMarkRead)
	assert.False(t, ok)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiterWithClock(5, c.Now)

	rl.Allow("idle", ActionSendMessage)
	c.now = c.now.Add(50 * time.Minute)
	rl.Allow("active", ActionSendMessage)
	c.now = c.now.Add(20 * time.Minute)

	rl.Cleanup(time.Hour)

	_, max := rl.GetStatus("idle", ActionSendMessage)
	assert.Zero(t, max)
	_, max = rl.GetStatus("active", ActionSendMessage)
	assert.Equal(t, 5, max)
}
