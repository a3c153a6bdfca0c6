package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/cvvin/internal/model"
)

func TestWait_SameSink_EnforcesMinDelay(t *testing.T) {
	limiter := NewSinkRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "slack"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "slack"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms of timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSinks_NoCrossBlocking(t *testing.T) {
	limiter := NewSinkRateLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "slack"); err != nil {
		t.Fatalf("slack wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "log"); err != nil {
		t.Fatalf("log wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected log wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ConcurrentCallersAreSpacedOut(t *testing.T) {
	limiter := NewSinkRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx, "slack"); err != nil {
				t.Errorf("wait: %v", err)
			}
		}()
	}
	wg.Wait()

	// Three slots: 0ms, 50ms, 100ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms for three callers, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSinkRateLimiter(5 * time.Second)

	if err := limiter.Wait(context.Background(), "slack"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "slack"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

type recordingNotifier struct {
	called int
}

func (n *recordingNotifier) Notify(_ context.Context, _ model.MatchResult) error {
	n.called++
	return nil
}

func TestRateLimitedNotifier_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewSinkRateLimiter(100 * time.Millisecond)
	inner := &recordingNotifier{}
	n := NewRateLimitedNotifier(inner, limiter, "slack")
	ctx := context.Background()

	if err := n.Notify(ctx, model.MatchResult{RunID: "a"}); err != nil {
		t.Fatalf("first notify: %v", err)
	}

	start := time.Now()
	if err := n.Notify(ctx, model.MatchResult{RunID: "b"}); err != nil {
		t.Fatalf("second notify: %v", err)
	}
	elapsed := time.Since(start)

	if inner.called != 2 {
		t.Fatalf("inner notifier called %d times, want 2", inner.called)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second notify, got %v", elapsed)
	}
}

type fetcherFunc func(ctx context.Context, url string) (model.Posting, error)

func (f fetcherFunc) FetchPosting(ctx context.Context, url string) (model.Posting, error) {
	return f(ctx, url)
}

func TestRateLimitedFetcher_SpacesSameHost(t *testing.T) {
	var calls int
	inner := fetcherFunc(func(_ context.Context, url string) (model.Posting, error) {
		calls++
		return model.Posting{URL: url}, nil
	})
	f := NewRateLimitedFetcher(inner, NewSinkRateLimiter(100*time.Millisecond))
	ctx := context.Background()

	if _, err := f.FetchPosting(ctx, "https://jobs.lever.co/acme/1"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	start := time.Now()
	if _, err := f.FetchPosting(ctx, "https://jobs.ashbyhq.com/acme/2"); err != nil {
		t.Fatalf("other host: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("different host should not wait, took %v", elapsed)
	}

	start = time.Now()
	p, err := f.FetchPosting(ctx, "https://JOBS.lever.co/acme/3")
	if err != nil {
		t.Fatalf("same host: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("same host should wait >= 80ms, took %v", elapsed)
	}
	if p.URL != "https://JOBS.lever.co/acme/3" || calls != 3 {
		t.Errorf("url = %q calls = %d", p.URL, calls)
	}
}
