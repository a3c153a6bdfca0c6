package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/cvvin/internal/model"
)

var _ model.Notifier = (*RetryNotifier)(nil)

// RetryNotifier is a decorator that retries transient delivery failures with
// exponential backoff and jitter before giving up.
type RetryNotifier struct {
	inner      model.Notifier
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryNotifier wraps a Notifier with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryNotifier(inner model.Notifier, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryNotifier {
	return &RetryNotifier{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Notify delivers res, retrying on transient errors.
func (n *RetryNotifier) Notify(ctx context.Context, res model.MatchResult) error {
	return do(ctx, n.maxRetries, n.baseDelay, func(attempt int, delay time.Duration, err error) {
		n.logger.Warn("retrying notification after transient error",
			"run_id", res.RunID,
			"attempt", attempt,
			"max_retries", n.maxRetries,
			"delay", delay,
			"error", err,
		)
	}, func() error {
		return n.inner.Notify(ctx, res)
	})
}

var _ model.PostingFetcher = (*RetryFetcher)(nil)

// RetryFetcher is a decorator that retries transient posting fetch failures.
// Not-found and unsupported links fail immediately.
type RetryFetcher struct {
	inner      model.PostingFetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

func NewRetryFetcher(inner model.PostingFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (f *RetryFetcher) FetchPosting(ctx context.Context, url string) (model.Posting, error) {
	var p model.Posting
	err := do(ctx, f.maxRetries, f.baseDelay, func(attempt int, delay time.Duration, err error) {
		f.logger.Warn("retrying job posting fetch after transient error",
			"url", url,
			"attempt", attempt,
			"max_retries", f.maxRetries,
			"delay", delay,
			"error", err,
		)
	}, func() error {
		var err error
		p, err = f.inner.FetchPosting(ctx, url)
		return err
	})
	return p, err
}

// do runs op, then retries it up to maxRetries times while it fails with a
// retryable error. onRetry is called before each wait.
func do(ctx context.Context, maxRetries int, baseDelay time.Duration, onRetry func(attempt int, delay time.Duration, err error), op func() error) error {
	err := op()
	if err == nil || !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= maxRetries; attempt++ {
		delay := backoffDelay(baseDelay, attempt, lastErr)
		onRetry(attempt, delay, lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		err = op()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("giving up after %d retries: %w", maxRetries, lastErr)
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After hint on the error takes precedence.
func backoffDelay(baseDelay time.Duration, attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := baseDelay << (attempt - 1)

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, model.ErrPostingNotFound) || errors.Is(err, model.ErrUnsupportedPosting) || errors.Is(err, model.ErrMissingJobDescription) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Network, DNS and the like.
	return true
}
