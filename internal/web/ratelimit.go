package web

import (
	"sync"
	"time"
)

// tokenBucket limits command submissions. A zero rate disables limiting.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

func newTokenBucket(burst, perSecond float64, now func() time.Time) *tokenBucket {
	if now == nil {
		now = time.Now
	}
	return &tokenBucket{
		tokens:     burst,
		maxTokens:  burst,
		refillRate: perSecond,
		lastRefill: now(),
		now:        now,
	}
}

// TryAcquire takes one token without blocking.
func (b *tokenBucket) TryAcquire() bool {
	if b == nil || b.refillRate <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.tokens = min(b.maxTokens, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
