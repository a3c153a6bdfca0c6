package model

import "context"

// TextExtractor pulls plain text out of a binary document (e.g. a PDF).
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeOrExtension string) (string, error)
}

// KVStore is durable local storage addressed by fixed keys.
// Get reports ok=false when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Notifier delivers a completed analysis to some sink (log, Slack).
type Notifier interface {
	Notify(ctx context.Context, result MatchResult) error
}

// ResultStore keeps the latest MatchResult so downstream practice modules
// can read it after the analysis process exits.
type ResultStore interface {
	SaveResult(ctx context.Context, result MatchResult) error
	LatestResult(ctx context.Context) (*MatchResult, error)
}

// PostingFetcher retrieves one job posting by its public URL.
type PostingFetcher interface {
	FetchPosting(ctx context.Context, url string) (Posting, error)
}
