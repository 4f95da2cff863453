package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionTyping      = "typing"
	ActionInterest    = "interest"
)

// Policy is a token bucket: Burst tokens, one token back every Every.
type Policy struct {
	Burst int
	Every time.Duration
}

var defaultPolicies = map[string]Policy{
	// 10 messages, then one every 6 seconds
	ActionSendMessage: {Burst: 10, Every: 6 * time.Second},
	// 30 typing events, then one every 2 seconds
	ActionTyping: {Burst: 30, Every: 2 * time.Second},
	// 20 requests, then one every 30 seconds
	ActionInterest: {Burst: 20, Every: 30 * time.Second},
}

var fallbackPolicy = Policy{Burst: 20, Every: 3 * time.Second}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	policies map[string]Policy
	buckets  map[string]*bucket
	mutex    sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithPolicies(nil)
}

// NewRateLimiterWithPolicies overrides the default policy of the given actions.
func NewRateLimiterWithPolicies(overrides map[string]Policy) *RateLimiter {
	policies := make(map[string]Policy, len(defaultPolicies)+len(overrides))
	for action, p := range defaultPolicies {
		policies[action] = p
	}
	for action, p := range overrides {
		policies[action] = p
	}
	return &RateLimiter{
		policies: policies,
		buckets:  make(map[string]*bucket),
	}
}

// Allow consumes a token for userID's action. When none is left it reports
// how long until the next one.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := time.Now()

	rl.mutex.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		p, found := rl.policies[action]
		if !found {
			p = fallbackPolicy
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Tokens returns the tokens currently left for userID's action and the bucket size.
func (rl *RateLimiter) Tokens(userID, action string) (tokens int, maxTokens int) {
	rl.mutex.Lock()
	b, ok := rl.buckets[userID+":"+action]
	rl.mutex.Unlock()

	if !ok {
		return 0, 0
	}
	return int(b.limiter.Tokens()), b.limiter.Burst()
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-done:
				return
			}
		}
	}()
}
