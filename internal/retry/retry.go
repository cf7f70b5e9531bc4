package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Strategy selects how the delay between attempts evolves.
type Strategy string

const (
	// StrategyFixed waits the same delay between every attempt.
	StrategyFixed Strategy = "fixed"
	// StrategyExponential doubles the delay after every attempt, capped at MaxDelay.
	StrategyExponential Strategy = "exponential"
)

// Predicate determines whether an error should be retried.
type Predicate func(error) bool

// Policy controls retry behavior.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
	Strategy    Strategy      `yaml:"strategy,omitempty"`
}

// DefaultPolicy returns five attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Delay:       time.Second,
		Strategy:    StrategyFixed,
	}
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay, Strategy: StrategyFixed}
}

// Do executes fn until it succeeds, shouldRetry rejects the error, the attempts
// are exhausted or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, policy Policy, shouldRetry Predicate, fn func() error) error {
	_, err := DoValue(ctx, policy, shouldRetry, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, shouldRetry Predicate, fn func() (T, error)) (T, error) {
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	operation := func() (T, error) {
		value, err := fn()
		if err != nil && !shouldRetry(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	value, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)

	// A permanent error on the final attempt comes back still wrapped.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return value, err
}

func (p Policy) backOff() backoff.BackOff {
	if p.Delay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	if p.Strategy != StrategyExponential {
		return backoff.NewConstantBackOff(p.Delay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Delay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	return b
}

// IsConnectionError reports whether err looks like the server is not accepting
// requests yet: a dial failure, a refused connection or a timeout.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
