package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, discardLogger(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, discardLogger(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := Do(context.Background(), 2, time.Millisecond, discardLogger(), func(context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want last error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want initial + 2 retries", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, discardLogger(), func(context.Context) error {
		calls++
		return &model.HTTPError{StatusCode: 401}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, 4xx must not be retried", calls)
	}
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 3, 50*time.Millisecond, discardLogger(), func(context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffDelayHonorsRetryAfter(t *testing.T) {
	err := &model.HTTPError{StatusCode: 429, RetryAfter: 7 * time.Second}
	if got := backoffDelay(time.Second, 1, err); got != 7*time.Second {
		t.Errorf("delay = %v, want Retry-After value", got)
	}
}

func TestBackoffDelayGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	plain := errors.New("network")

	d1 := backoffDelay(base, 1, plain)
	d3 := backoffDelay(base, 3, plain)

	// attempt 1 centers on base, attempt 3 on 4x base; ±30% jitter
	if d1 < 70*time.Millisecond || d1 > 130*time.Millisecond {
		t.Errorf("attempt 1 delay = %v", d1)
	}
	if d3 < 280*time.Millisecond || d3 > 520*time.Millisecond {
		t.Errorf("attempt 3 delay = %v", d3)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errors.New("connection refused"), true},
		{"rate limited", &model.HTTPError{StatusCode: 429}, true},
		{"server error", &model.HTTPError{StatusCode: 503}, true},
		{"client error", &model.HTTPError{StatusCode: 404}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tc := range cases {
		if got := isRetryable(tc.err); got != tc.want {
			t.Errorf("%s: isRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
