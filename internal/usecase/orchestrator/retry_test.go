package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vecsync/internal/domain"
)

func TestWithRetryTransientThenSuccess(t *testing.T) {
	calls := 0
	got, err := withRetry(context.Background(), 3, time.Millisecond, 2*time.Millisecond,
		func() (string, error) {
			calls++
			if calls < 3 {
				return "", domain.ErrRateLimited
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls, want %q after 3", got, calls, "ok")
	}
}

func TestWithRetryPermanentFailsImmediately(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 3, time.Millisecond, 2*time.Millisecond,
		func() (string, error) {
			calls++
			return "", domain.ErrProviderRejected
		})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("error = %v, want %v", err, domain.ErrProviderRejected)
	}
	if calls != 1 {
		t.Errorf("permanent failure retried: %d calls, want 1", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 3, time.Millisecond, 2*time.Millisecond,
		func() (string, error) {
			calls++
			return "", domain.ErrProviderUnavailable
		})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("error = %v, want %v", err, domain.ErrProviderUnavailable)
	}
	if calls != 3 {
		t.Errorf("made %d calls, want 3", calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, 5, time.Minute, time.Minute,
		func() (string, error) {
			calls++
			cancel()
			return "", domain.ErrRateLimited
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("made %d calls after cancel, want 1", calls)
	}
}
