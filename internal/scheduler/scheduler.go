package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Action is the work re-run when an input changes.
type Action func(ctx context.Context) error

// Watcher owns the watch loop: it runs the action once, then checks the
// watched files on an interval and runs the action again whenever any of
// them changed.
type Watcher struct {
	paths    []string
	interval time.Duration
	action   Action
	logger   *slog.Logger
}

// NewWatcher creates a watcher over paths. Empty paths are ignored.
func NewWatcher(paths []string, interval time.Duration, action Action, logger *slog.Logger) *Watcher {
	var kept []string
	for _, p := range paths {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &Watcher{
		paths:    kept,
		interval: interval,
		action:   action,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching inputs",
		"interval", w.interval.String(),
		"files", len(w.paths),
	)

	prints := w.fingerprints()
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopped watching")
			return nil
		case <-ticker.C:
			next := w.fingerprints()
			changed := changedPaths(prints, next)
			if len(changed) == 0 {
				continue
			}
			prints = next
			w.logger.Info("input changed, re-running", "files", changed)
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.action(ctx); err != nil {
		w.logger.Error("run failed", "error", err)
	}
}

// fingerprints hashes every watched file. Unreadable files map to "" so a
// file that appears later counts as a change.
func (w *Watcher) fingerprints() map[string]string {
	out := make(map[string]string, len(w.paths))
	for _, p := range w.paths {
		sum, err := fingerprint(p)
		if err != nil {
			w.logger.Debug("cannot fingerprint input", "path", p, "error", err)
		}
		out[p] = sum
	}
	return out
}

func fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func changedPaths(prev, next map[string]string) []string {
	var changed []string
	for p, sum := range next {
		if prev[p] != sum {
			changed = append(changed, p)
		}
	}
	return changed
}
