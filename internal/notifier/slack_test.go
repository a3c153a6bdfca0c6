package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/cvvin/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() model.MatchResult {
	return model.MatchResult{
		RunID:         "run-123",
		MatchScore:    33,
		MatchedSkills: []string{"React", "TypeScript"},
		MissingSkills: []string{"Docker", "Kubernetes", "AWS", "GraphQL"},
		Strengths:     []string{"Strong frontend development experience (React)"},
		Improvements:  []string{"Include containerization skills (Docker, Kubernetes)", "Add cloud platform experience (AWS)"},
		ComputedAt:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotifier_Sends(t *testing.T) {
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	header := payload.Blocks[0]
	if header.Text.Text != "🔴 Resume match: 33%" {
		t.Errorf("header text = %q", header.Text.Text)
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Matched skills:*\nReact, TypeScript" {
		t.Errorf("matched field = %q", got)
	}
	if got := payload.Blocks[1].Fields[1].Text; got != "*Missing skills:*\nDocker, Kubernetes, AWS, GraphQL" {
		t.Errorf("missing field = %q", got)
	}
}

func TestSlackNotifier_PayloadFormat(t *testing.T) {
	payload := buildPayload(sampleResult())

	want := []string{"header", "section", "section", "section", "context", "divider"}
	if len(payload.Blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(payload.Blocks))
	}
	for i, typ := range want {
		if payload.Blocks[i].Type != typ {
			t.Errorf("block[%d] type = %q, want %q", i, payload.Blocks[i].Type, typ)
		}
	}

	improvements := payload.Blocks[3].Text.Text
	wantImprovements := "*Areas for improvement*\n• Include containerization skills (Docker, Kubernetes)\n• Add cloud platform experience (AWS)"
	if improvements != wantImprovements {
		t.Errorf("improvements = %q, want %q", improvements, wantImprovements)
	}

	ctxText := payload.Blocks[4].Elements[0].Text
	if ctxText != "Run `run-123` · Thu, 15 Jan 2026 10:00:00 UTC" {
		t.Errorf("context = %q", ctxText)
	}
}

func TestSlackNotifier_PayloadOmitsEmptySections(t *testing.T) {
	res := model.MatchResult{RunID: "r", MatchedSkills: []string{}, MissingSkills: []string{}}
	payload := buildPayload(res)

	if len(payload.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Matched skills:*\n_none_" {
		t.Errorf("matched field = %q", got)
	}
	if got := payload.Blocks[2].Elements[0].Text; got != "Run `r` · just now" {
		t.Errorf("context = %q", got)
	}
}

func TestScoreEmoji(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "🟢"},
		{80, "🟢"},
		{79, "🟡"},
		{50, "🟡"},
		{49, "🔴"},
		{0, "🔴"},
	}
	for _, tt := range tests {
		if got := scoreEmoji(tt.score); got != tt.want {
			t.Errorf("scoreEmoji(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal_error"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Notify(context.Background(), sampleResult())

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *model.HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", httpErr.StatusCode)
	}
}

func TestSlackNotifier_RateLimitedCarriesRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	err := n.Notify(context.Background(), sampleResult())

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *model.HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests || httpErr.RetryAfter != 3*time.Second {
		t.Errorf("got status %d retry-after %v", httpErr.StatusCode, httpErr.RetryAfter)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected a single attempt, got %d", c)
	}
}

func TestSlackNotifier_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(ctx, sampleResult()); !errors.Is(err, context.Canceled) {
		t.Errorf("Notify() = %v, want context.Canceled", err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{" 10 ", 10 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.header); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestSendTestMessage(t *testing.T) {
	var got model.MatchResult
	n := notifierFunc(func(_ context.Context, res model.MatchResult) error {
		got = res
		return nil
	})
	if err := SendTestMessage(context.Background(), n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if got.RunID != "test-001" || got.MatchScore != 67 {
		t.Errorf("unexpected sample result %+v", got)
	}
}

type notifierFunc func(context.Context, model.MatchResult) error

func (f notifierFunc) Notify(ctx context.Context, res model.MatchResult) error { return f(ctx, res) }
