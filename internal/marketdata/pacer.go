package marketdata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPacingInterval keeps a free-tier key under its per-minute quota.
const DefaultPacingInterval = 15 * time.Second

// Pacer enforces a minimum interval between consecutive network calls,
// process-wide. Only callers about to hit the network wait on it. A caller
// that reports completion through Done has the interval measured from the end
// of its call rather than from its start.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// PacerOption configures a Pacer.
type PacerOption func(*Pacer)

// WithClock injects the time source.
func WithClock(now func() time.Time) PacerOption {
	return func(p *Pacer) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleeper injects the wait function.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) PacerOption {
	return func(p *Pacer) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// NewPacer creates a pacer. An interval <= 0 disables pacing.
func NewPacer(interval time.Duration, opts ...PacerOption) *Pacer {
	p := &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.limiter = newLimiter(interval)
	return p
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration { return p.interval }

// Wait blocks until the next network call may start and records it as the
// last call. It returns the time spent waiting.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	r := p.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		if err := p.sleep(ctx, delay); err != nil {
			r.CancelAt(now)
			return 0, err
		}
	}
	p.last = now.Add(delay)
	return delay, nil
}

// Done records that the call released by the last Wait has finished. The
// next call may start one interval after now.
func (p *Pacer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.limiter = newLimiter(p.interval)
	p.limiter.ReserveN(now, 1)
	p.last = now
}

// Last returns when the most recent paced call was released or finished, or zero.
func (p *Pacer) Last() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Reset forgets the last call so the next Wait returns immediately.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter = newLimiter(p.interval)
	p.last = time.Time{}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
