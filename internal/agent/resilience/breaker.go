package resilience

import (
	"sync"
	"time"
)

// Breaker is a failure-counting gate for one flaky downstream. It rejects
// calls once Threshold consecutive failures have accumulated and the cool-down
// window since the last failure has not elapsed. There is no half-open probe
// state: the first call after cool-down is a normal attempt that may re-open
// the breaker on failure.
//
// One Breaker instance is shared by every concurrent run that talks to the
// guarded downstream, so all state is mutex-protected.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolDown  time.Duration
	failures  int
	openedAt  time.Time
	now       func() time.Time // for testing
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and re-admits calls once coolDown has elapsed.
func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		coolDown:  coolDown,
		now:       time.Now,
	}
}

// Allow reports whether the guarded call may proceed. When it returns false
// the caller must skip the call entirely and degrade.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	return b.now().Sub(b.openedAt) >= b.coolDown
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.openedAt = time.Time{}
}

// RecordFailure counts one guarded-call failure. Reaching the threshold opens
// the breaker; failures past the threshold restart the cool-down window.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.now()
	}
}
