package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// PacingPolicy spaces out page fetches. Implementations decide how long to
// wait between consecutive requests; tests substitute a deterministic one.
type PacingPolicy interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// RandomPacer waits a randomized interval between min and max since the
// previous action, mimicking a human reader's dwell time.
type RandomPacer struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewRandomPacer(minDelay, maxDelay time.Duration) *RandomPacer {
	return &RandomPacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *RandomPacer) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *RandomPacer) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

func (r *RandomPacer) calculateDelay() time.Duration {
	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	jitter := time.Duration(rand.Int63n(int64(delta)))
	return r.minDelay + jitter
}

// AdaptivePacer stretches its delay window after repeated failures and
// relaxes it again after a streak of successes. Blocked-page responses are
// the usual trigger: backing off is the only recovery that works.
type AdaptivePacer struct {
	*RandomPacer
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
}

func NewAdaptivePacer(minDelay, maxDelay time.Duration) *AdaptivePacer {
	return &AdaptivePacer{
		RandomPacer:   NewRandomPacer(minDelay, maxDelay),
		maxErrorCount: 3,
		backoffFactor: 1.5,
	}
}

func (a *AdaptivePacer) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < time.Second {
			newMin = time.Second
		}
		a.minDelay = newMin
		a.successCount = 0
	}
}

func (a *AdaptivePacer) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)

		if newMin > 60*time.Second {
			newMin = 60 * time.Second
		}
		if newMax > 120*time.Second {
			newMax = 120 * time.Second
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorCount = 0
	}
}

// NopPacer waits for nothing. Deterministic stand-in for tests.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context) error  { return ctx.Err() }
func (NopPacer) SetDelay(min, max time.Duration) {}
