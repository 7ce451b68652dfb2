package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProvider struct {
	replies []func() (string, error)
	calls   int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(_ context.Context, _ []Message) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i]()
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		CallTimeout: time.Second,
		TotalBudget: 2 * time.Second,
		BackoffBase: time.Millisecond,
		BackoffCap:  5 * time.Millisecond,
	}
}

func TestRetryingRecoversFromRateLimit(t *testing.T) {
	inner := &scriptedProvider{replies: []func() (string, error){
		func() (string, error) { return "", &Error{Status: 429, Message: "rate limited"} },
		func() (string, error) { return "", &Error{Status: 503, Message: "busy"} },
		func() (string, error) { return "ok", nil },
	}}
	r := NewRetrying(inner, fastPolicy())

	text, err := r.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "ok" {
		t.Fatalf("Complete() = %q, want %q", text, "ok")
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingStopsOnNonRetryableStatus(t *testing.T) {
	inner := &scriptedProvider{replies: []func() (string, error){
		func() (string, error) { return "", &Error{Status: 400, Message: "bad request"} },
	}}
	r := NewRetrying(inner, fastPolicy())

	_, err := r.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatalf("Complete() expected error")
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 400)", inner.calls)
	}
}

func TestRetryingExhaustsAttempts(t *testing.T) {
	inner := &scriptedProvider{replies: []func() (string, error){
		func() (string, error) { return "", &Error{Status: 429, Message: "rate limited"} },
	}}
	r := NewRetrying(inner, fastPolicy())

	_, err := r.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatalf("Complete() expected error after exhausting retries")
	}
	var pErr *Error
	if !errors.As(err, &pErr) || !pErr.RateLimited() {
		t.Fatalf("final error = %v, want rate-limit provider error", err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingHonorsTotalBudget(t *testing.T) {
	inner := &scriptedProvider{replies: []func() (string, error){
		func() (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "", &Error{Status: 503, Message: "busy"}
		},
	}}
	r := NewRetrying(inner, RetryPolicy{
		MaxRetries:  10,
		CallTimeout: time.Second,
		TotalBudget: 50 * time.Millisecond,
		BackoffBase: time.Millisecond,
		BackoffCap:  2 * time.Millisecond,
	})

	start := time.Now()
	_, err := r.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatalf("Complete() expected error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("budget not honored, elapsed %v", elapsed)
	}
	if inner.calls >= 10 {
		t.Fatalf("calls = %d, budget should cut retries short", inner.calls)
	}
}

func TestRetryingStopsOnCancel(t *testing.T) {
	inner := &scriptedProvider{replies: []func() (string, error){
		func() (string, error) { return "", context.Canceled },
	}}
	r := NewRetrying(inner, fastPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Complete(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() error = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}
