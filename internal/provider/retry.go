package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/reliability"
)

// RetryPolicy bounds how long one logical completion may spend across attempts.
type RetryPolicy struct {
	MaxRetries  int           // attempts, not re-attempts
	CallTimeout time.Duration // per attempt
	TotalBudget time.Duration // wall clock across all attempts
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		CallTimeout: 15 * time.Second,
		TotalBudget: 25 * time.Second,
		BackoffBase: 500 * time.Millisecond,
		BackoffCap:  5 * time.Second,
	}
}

// Retrying wraps a Provider with bounded retries on rate-limit and transient
// upstream failures. The total budget wins over the retry count: once it is
// spent the last error is returned even if attempts remain.
type Retrying struct {
	inner  Provider
	policy RetryPolicy
}

func NewRetrying(inner Provider, policy RetryPolicy) *Retrying {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = 1
	}
	if policy.CallTimeout <= 0 {
		policy.CallTimeout = 15 * time.Second
	}
	if policy.TotalBudget <= 0 {
		policy.TotalBudget = 25 * time.Second
	}
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = 500 * time.Millisecond
	}
	if policy.BackoffCap <= 0 {
		policy.BackoffCap = 5 * time.Second
	}
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) Name() string { return r.inner.Name() }

func (r *Retrying) Complete(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxRetries; attempt++ {
		if time.Since(start) > r.policy.TotalBudget {
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, r.policy.CallTimeout)
		text, err := r.inner.Complete(callCtx, messages)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			return "", err
		}
		if !retryable(err) {
			return "", err
		}

		wait := reliability.ExponentialBackoff(attempt, r.policy.BackoffBase, r.policy.BackoffCap)
		if time.Since(start)+wait > r.policy.TotalBudget {
			break
		}
		var pErr *Error
		rateLimited := errors.As(err, &pErr) && pErr.RateLimited()
		log.Debug().
			Str("provider", r.inner.Name()).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Bool("rate_limited", rateLimited).
			Err(err).
			Msg("completion attempt failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = context.DeadlineExceeded
	}
	return "", lastErr
}

func retryable(err error) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return reliability.IsRetryableHTTPStatus(pErr.Status)
	}
	// Per-attempt deadline: the upstream may simply be slow right now.
	return errors.Is(err, context.DeadlineExceeded)
}
