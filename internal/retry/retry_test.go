package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/applytrack/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockNotifier calls a function on each invocation, tracking call count.
type mockNotifier struct {
	calls int
	fn    func(attempt int) error
}

func (m *mockNotifier) Notify(_ context.Context, _ []model.Transition) error {
	m.calls++
	return m.fn(m.calls)
}

var transitions = []model.Transition{{Application: model.Application{ID: "1", Company: "Acme", Role: "Engineer"}, Created: true}}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockNotifier{fn: func(_ int) error { return nil }}

	rn := NewRetryNotifier(mock, 2, 10*time.Millisecond, discardLogger())
	if err := rn.Notify(context.Background(), transitions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockNotifier{fn: func(attempt int) error {
		if attempt == 1 {
			return &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return nil
	}}

	rn := NewRetryNotifier(mock, 2, 10*time.Millisecond, discardLogger())
	if err := rn.Notify(context.Background(), transitions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockNotifier{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 404, Err: errors.New("no_service")}
	}}

	rn := NewRetryNotifier(mock, 2, 10*time.Millisecond, discardLogger())
	err := rn.Notify(context.Background(), transitions)
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockNotifier{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rn := NewRetryNotifier(mock, 2, 10*time.Millisecond, discardLogger())
	if err := rn.Notify(context.Background(), transitions); err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_NetworkErrorRetried(t *testing.T) {
	mock := &mockNotifier{fn: func(attempt int) error {
		if attempt < 3 {
			return errors.New("connection refused")
		}
		return nil
	}}

	rn := NewRetryNotifier(mock, 2, time.Millisecond, discardLogger())
	if err := rn.Notify(context.Background(), transitions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockNotifier{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	rn := NewRetryNotifier(mock, 2, time.Second, discardLogger())
	err := rn.Notify(ctx, transitions)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestRetry_PassesContextToInner(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "scheduler")

	var got context.Context
	inner := notifyFunc(func(c context.Context, _ []model.Transition) error {
		got = c
		return nil
	})
	rn := NewRetryNotifier(inner, 2, time.Millisecond, discardLogger())
	if err := rn.Notify(ctx, transitions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Value(key{}) != "scheduler" {
		t.Fatal("inner notifier did not receive the caller's context")
	}
}

type notifyFunc func(context.Context, []model.Transition) error

func (f notifyFunc) Notify(ctx context.Context, trs []model.Transition) error { return f(ctx, trs) }

func TestBackoffDelay_RetryAfterTakesPrecedence(t *testing.T) {
	rn := NewRetryNotifier(nil, 2, time.Second, discardLogger())
	err := &model.HTTPError{StatusCode: 429, RetryAfter: 3 * time.Second}
	if got := rn.backoffDelay(1, err); got != 3*time.Second {
		t.Errorf("backoffDelay = %v, want 3s", got)
	}
}

func TestBackoffDelay_JitterBounds(t *testing.T) {
	rn := NewRetryNotifier(nil, 3, 100*time.Millisecond, discardLogger())
	for i := 0; i < 50; i++ {
		d := rn.backoffDelay(3, errors.New("boom"))
		// 400ms ± 30%
		if d < 280*time.Millisecond || d > 520*time.Millisecond {
			t.Fatalf("backoffDelay(3) = %v, want within 280ms..520ms", d)
		}
	}
}
