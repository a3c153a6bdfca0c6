package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/cvvin/internal/model"
)

// SinkRateLimiter enforces a minimum delay between deliveries to the same
// notification sink.
type SinkRateLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: sink name
	minDelay time.Duration
}

// NewSinkRateLimiter creates a limiter that enforces minDelay between
// consecutive deliveries to the same sink.
func NewSinkRateLimiter(minDelay time.Duration) *SinkRateLimiter {
	return &SinkRateLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last delivery to sink.
// The slot is reserved before sleeping, so concurrent callers queue up
// minDelay apart instead of all waking at once.
func (r *SinkRateLimiter) Wait(ctx context.Context, sink string) error {
	r.mu.Lock()
	now := time.Now()
	next := now
	if last, ok := r.lastCall[sink]; ok && last.Add(r.minDelay).After(now) {
		next = last.Add(r.minDelay)
	}
	r.lastCall[sink] = next
	r.mu.Unlock()

	remaining := next.Sub(now)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", sink, ctx.Err())
	case <-timer.C:
	}
	return nil
}

var _ model.Notifier = (*RateLimitedNotifier)(nil)

// RateLimitedNotifier is a decorator that waits for the limiter before
// delegating to the wrapped Notifier.
type RateLimitedNotifier struct {
	inner   model.Notifier
	limiter *SinkRateLimiter
	sink    string
}

// NewRateLimitedNotifier wraps a Notifier with sink-level rate limiting.
// Notifiers posting to the same sink should share one limiter.
func NewRateLimitedNotifier(inner model.Notifier, limiter *SinkRateLimiter, sink string) *RateLimitedNotifier {
	return &RateLimitedNotifier{
		inner:   inner,
		limiter: limiter,
		sink:    sink,
	}
}

func (n *RateLimitedNotifier) Notify(ctx context.Context, res model.MatchResult) error {
	if err := n.limiter.Wait(ctx, n.sink); err != nil {
		return err
	}
	return n.inner.Notify(ctx, res)
}

var _ model.PostingFetcher = (*RateLimitedFetcher)(nil)

// RateLimitedFetcher spaces out posting fetches per host, so watch mode never
// hammers one ATS.
type RateLimitedFetcher struct {
	inner   model.PostingFetcher
	limiter *SinkRateLimiter
}

func NewRateLimitedFetcher(inner model.PostingFetcher, limiter *SinkRateLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{inner: inner, limiter: limiter}
}

func (f *RateLimitedFetcher) FetchPosting(ctx context.Context, rawURL string) (model.Posting, error) {
	sink := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		sink = strings.ToLower(u.Hostname())
	}
	if err := f.limiter.Wait(ctx, sink); err != nil {
		return model.Posting{}, err
	}
	return f.inner.FetchPosting(ctx, rawURL)
}
