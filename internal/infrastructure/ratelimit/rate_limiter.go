package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	ActionSendMessage = "send_message"
	ActionMarkRead    = "mark_read"
)

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int           // Current tokens
	maxTokens  int           // Maximum tokens in bucket
	refillRate int           // Tokens to add per refill interval
	refillTime time.Duration // Refill interval
	lastRefill time.Time     // Last refill time
	lastUsed   time.Time
	mutex      sync.Mutex
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	limits  map[string]Limit
	now     func() time.Time
	mutex   sync.RWMutex
}

// Limit allows PerMinute actions per minute, refilled one token at a time.
type Limit struct {
	PerMinute int
}

func (l Limit) bucket(now time.Time) *TokenBucket {
	perMinute := l.PerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	return NewTokenBucket(perMinute, 1, time.Minute/time.Duration(perMinute), now)
}

// NewRateLimiter limits sends to sendPerMinute per user. Read receipts get a
// more generous budget since a client marks read on every snapshot.
func NewRateLimiter(sendPerMinute int) *RateLimiter {
	return NewRateLimiterWithClock(sendPerMinute, time.Now)
}

func NewRateLimiterWithClock(sendPerMinute int, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		limits: map[string]Limit{
			ActionSendMessage: {PerMinute: sendPerMinute},
			ActionMarkRead:    {PerMinute: 4 * sendPerMinute},
		},
		now: now,
	}
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens, refillRate int, refillTime time.Duration, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow checks if an action is allowed and consumes a token if so
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now

	// Calculate tokens to add based on time elapsed
	elapsed := now.Sub(tb.lastRefill)
	intervals := int(elapsed / tb.refillTime)
	if intervals > 0 {
		tb.tokens += intervals * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	// Wait until the next token is available
	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

// GetTokens returns current token count
func (tb *TokenBucket) GetTokens() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.tokens
}

// Allow checks if a user action is allowed
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		// Double-check pattern
		if bucket, exists = rl.buckets[key]; !exists {
			limit, ok := rl.limits[action]
			if !ok {
				// Default rate limit: 20 actions per minute
				limit = Limit{PerMinute: 20}
			}
			bucket = limit.bucket(now)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow(now)
}

// GetStatus returns current rate limit status for a user action
func (rl *RateLimiter) GetStatus(userID, action string) (tokens int, maxTokens int) {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		return 0, 0
	}

	return bucket.GetTokens(), bucket.maxTokens
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastUsed)
		bucket.mutex.Unlock()
		if idle > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine drops idle buckets every 30 minutes until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			}
		}
	}()
}
