package relay

import (
	"context"
	"math"
	"time"

	"github.com/upb/chat-relay/services"
	"github.com/upb/chat-relay/services/providers"
)

// DefaultMaxRetries bounds retries of a rate-limited call (4 attempts in total).
const DefaultMaxRetries = 3

// Backoff computes the wait before a retry.
type Backoff interface {
	// Next returns how long to wait before retrying. attempt starts at 1 for
	// the first retry.
	Next(attempt int) time.Duration
}

// ExponentialBackoff waits Base * Factor^attempt.
type ExponentialBackoff struct {
	Base   time.Duration
	Factor float64
}

// DefaultBackoff waits 1.2s, 2.4s and 4.8s before the three retries.
func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Base:   600 * time.Millisecond,
		Factor: 2,
	}
}

func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(b.Base) * math.Pow(b.Factor, float64(attempt)))
}

// AttemptFunc performs one upstream call.
type AttemptFunc func(ctx context.Context) (string, error)

// RetryHook observes a failed attempt that is about to be retried.
type RetryHook func(ctx context.Context, attempt int, wait time.Duration, err error)

// Retrier runs an AttemptFunc and retries it while the upstream reports a
// transient rate limit. A Retrier holds no per-call state and is safe for
// concurrent use.
type Retrier struct {
	Backoff    Backoff
	MaxRetries int
	OnRetry    RetryHook

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier returns a Retrier with the default schedule.
func NewRetrier() *Retrier {
	return &Retrier{
		Backoff:    DefaultBackoff(),
		MaxRetries: DefaultMaxRetries,
		sleep:      sleepContext,
	}
}

// RunWithRetry calls attempt until it succeeds or fails terminally.
//
// Rate limited failures are retried up to MaxRetries times, waiting
// Backoff.Next(n) before retry n; after that ErrRateLimitExhausted is
// returned. Quota failures return ErrQuotaExhausted and anything else
// ErrUpstream, both without retrying. The wait only blocks the calling
// goroutine and ends early with ctx.Err() if ctx is cancelled.
func (r *Retrier) RunWithRetry(ctx context.Context, attempt AttemptFunc) (string, error) {
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	backoff := r.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	attempts := 0
	for {
		reply, err := attempt(ctx)
		if err == nil {
			return reply, nil
		}

		switch Classify(providers.RawText(err)) {
		case KindRateLimited:
			attempts++
			if attempts > r.MaxRetries {
				return "", services.WrapError(services.ErrRateLimitExhausted, err)
			}
			wait := backoff.Next(attempts)
			if r.OnRetry != nil {
				r.OnRetry(ctx, attempts, wait, err)
			}
			if err := sleep(ctx, wait); err != nil {
				return "", err
			}
		case KindQuotaExhausted:
			return "", services.WrapError(services.ErrQuotaExhausted, err)
		default:
			return "", services.WrapError(services.ErrUpstream, err)
		}
	}
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
