package enrichment

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

type throttleState struct {
	remaining      int
	hasRemaining   bool
	resetAt        time.Time
	throttledUntil time.Time
	attempts       int
}

// Throttle tracks platform rate-limit hints per entity bucket so enrichment
// backs off before the platform starts rejecting calls.
type Throttle struct {
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time

	mu      sync.Mutex
	buckets map[string]*throttleState
}

func NewThrottle(now func() time.Time) *Throttle {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Throttle{
		initialBackoff: time.Second,
		maxBackoff:     time.Minute,
		now:            now,
		buckets:        map[string]*throttleState{},
	}
}

// Wait reports how long the bucket is throttled for, zero when a call may
// proceed.
func (t *Throttle) Wait(bucket string) time.Duration {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.buckets[bucket]
	if !ok {
		return 0
	}
	now := t.now().UTC()
	if now.Before(state.throttledUntil) {
		return state.throttledUntil.Sub(now)
	}
	if state.hasRemaining && state.remaining == 0 && now.Before(state.resetAt) {
		return state.resetAt.Sub(now)
	}
	return 0
}

// Observe records the rate-limit hints of one platform response.
func (t *Throttle) Observe(bucket string, statusCode int, headers map[string]string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.buckets[bucket]
	if !ok {
		state = &throttleState{}
		t.buckets[bucket] = state
	}
	now := t.now().UTC()

	if remaining, ok := headerInt(headers, "x-ratelimit-remaining"); ok {
		state.remaining = remaining
		state.hasRemaining = true
	}
	if reset, ok := headerInt(headers, "x-ratelimit-reset"); ok {
		state.resetAt = time.Unix(int64(reset), 0).UTC()
	}

	retryAfter, hasRetryAfter := headerRetryAfter(headers)
	throttled := statusCode == 429 || (state.hasRemaining && state.remaining == 0)
	if !throttled {
		state.attempts = 0
		state.throttledUntil = time.Time{}
		return
	}

	state.attempts++
	delay := retryAfter
	if !hasRetryAfter {
		delay = t.backoff(state.attempts)
	}
	state.throttledUntil = now.Add(delay)
}

func (t *Throttle) backoff(attempt int) time.Duration {
	delay := t.initialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= t.maxBackoff {
			return t.maxBackoff
		}
	}
	return delay
}

func headerInt(headers map[string]string, key string) (int, bool) {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			parsed, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return 0, false
			}
			return parsed, true
		}
	}
	return 0, false
}

func headerRetryAfter(headers map[string]string) (time.Duration, bool) {
	seconds, ok := headerInt(headers, "retry-after")
	if !ok || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
