package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/cvvin/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockNotifier calls a function on each invocation, tracking call count.
type mockNotifier struct {
	calls int
	fn    func(attempt int) error
}

func (m *mockNotifier) Notify(_ context.Context, _ model.MatchResult) error {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockNotifier{fn: func(_ int) error { return nil }}

	rn := NewRetryNotifier(mock, 2, 10*time.Millisecond, discardLogger())
	if err := rn.Notify(context.Background(), model.MatchResult{RunID: "r1"}); err != nil {
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
	if err := rn.Notify(context.Background(), model.MatchResult{}); err != nil {
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
	err := rn.Notify(context.Background(), model.MatchResult{})
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
	err := rn.Notify(context.Background(), model.MatchResult{})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected wrapped HTTPError, got %v", err)
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	mock := &mockNotifier{fn: func(attempt int) error {
		if attempt == 1 {
			return &model.HTTPError{StatusCode: 429, RetryAfter: 60 * time.Millisecond}
		}
		return nil
	}}

	rn := NewRetryNotifier(mock, 1, time.Hour, discardLogger())
	start := time.Now()
	if err := rn.Notify(context.Background(), model.MatchResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond || elapsed > 10*time.Second {
		t.Errorf("expected to wait the Retry-After hint, waited %v", elapsed)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockNotifier{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rn := NewRetryNotifier(mock, 2, time.Second, discardLogger())
	err := rn.Notify(ctx, model.MatchResult{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("post: %w", context.DeadlineExceeded), false},
		{&model.HTTPError{StatusCode: 429}, true},
		{&model.HTTPError{StatusCode: 502}, true},
		{&model.HTTPError{StatusCode: 400}, false},
		{errors.New("connection refused"), true},
		{fmt.Errorf("lever: %w", model.ErrPostingNotFound), false},
		{model.ErrUnsupportedPosting, false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestBackoffDelay_Exponential(t *testing.T) {
	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond} {
		got := backoffDelay(100*time.Millisecond, attempt, errors.New("x"))
		lo, hi := time.Duration(float64(base)*0.7), time.Duration(float64(base)*1.3)
		if got < lo || got > hi {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, got, lo, hi)
		}
	}
}

func TestBackoffDelay_PrefersRetryAfter(t *testing.T) {
	err := fmt.Errorf("post: %w", &model.HTTPError{StatusCode: 429, RetryAfter: 3 * time.Second})
	if got := backoffDelay(100*time.Millisecond, 1, err); got != 3*time.Second {
		t.Errorf("delay = %v, want 3s", got)
	}
}

type mockFetcher struct {
	calls int
	fn    func(attempt int) (model.Posting, error)
}

func (m *mockFetcher) FetchPosting(_ context.Context, _ string) (model.Posting, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetryFetcher_RetriesTransientFailure(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) (model.Posting, error) {
		if attempt < 3 {
			return model.Posting{}, &model.HTTPError{StatusCode: 502}
		}
		return model.Posting{Title: "Engineer", Text: "Go"}, nil
	}}

	rf := NewRetryFetcher(mock, 2, time.Millisecond, discardLogger())
	p, err := rf.FetchPosting(context.Background(), "https://jobs.lever.co/acme/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Engineer" {
		t.Errorf("posting = %+v", p)
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetryFetcher_NotFoundFailsImmediately(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Posting, error) {
		return model.Posting{}, fmt.Errorf("lever: %w", model.ErrPostingNotFound)
	}}

	rf := NewRetryFetcher(mock, 3, time.Millisecond, discardLogger())
	_, err := rf.FetchPosting(context.Background(), "https://jobs.lever.co/acme/1")
	if !errors.Is(err, model.ErrPostingNotFound) {
		t.Fatalf("expected ErrPostingNotFound, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetryFetcher_GivesUp(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Posting, error) {
		return model.Posting{}, errors.New("connection reset")
	}}

	rf := NewRetryFetcher(mock, 2, time.Millisecond, discardLogger())
	if _, err := rf.FetchPosting(context.Background(), "u"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 calls, got %d", mock.calls)
	}
}
