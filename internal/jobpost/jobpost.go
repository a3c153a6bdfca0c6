// Package jobpost fetches job descriptions from the public posting APIs of
// applicant tracking systems, so a posting link can stand in for pasted text.
package jobpost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/amishk599/cvvin/internal/model"
)

const (
	SourceGreenhouse = "greenhouse"
	SourceLever      = "lever"
	SourceAshby      = "ashby"
)

const (
	greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	leverBaseURL      = "https://api.lever.co/v0/postings"
	ashbyBaseURL      = "https://api.ashbyhq.com/posting-api/job-board"
)

// Ref identifies one posting on one board.
type Ref struct {
	Source string
	Board  string
	ID     string
}

// ParseURL recognizes hosted posting links:
//
//	https://boards.greenhouse.io/<board>/jobs/<id>
//	https://job-boards.greenhouse.io/<board>/jobs/<id>
//	https://jobs.lever.co/<company>/<id>[/apply]
//	https://jobs.ashbyhq.com/<board>/<id>[/application]
func ParseURL(raw string) (Ref, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Ref{}, fmt.Errorf("%w: %q", model.ErrUnsupportedPosting, raw)
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	switch strings.ToLower(u.Hostname()) {
	case "boards.greenhouse.io", "job-boards.greenhouse.io":
		if len(parts) >= 3 && parts[1] == "jobs" {
			return Ref{Source: SourceGreenhouse, Board: parts[0], ID: parts[2]}, nil
		}
	case "jobs.lever.co":
		if len(parts) >= 2 {
			return Ref{Source: SourceLever, Board: parts[0], ID: parts[1]}, nil
		}
	case "jobs.ashbyhq.com":
		if len(parts) >= 2 {
			return Ref{Source: SourceAshby, Board: parts[0], ID: parts[1]}, nil
		}
	}
	return Ref{}, fmt.Errorf("%w: %q", model.ErrUnsupportedPosting, raw)
}

var _ model.PostingFetcher = (*Fetcher)(nil)

// Fetcher resolves posting links through each ATS's public API. It makes one
// request per call; wrap it in retry.RetryFetcher for retries.
type Fetcher struct {
	client *resty.Client

	greenhouseBase string
	leverBase      string
	ashbyBase      string
}

func NewFetcher(httpClient *http.Client) *Fetcher {
	return &Fetcher{
		client:         resty.NewWithClient(httpClient),
		greenhouseBase: greenhouseBaseURL,
		leverBase:      leverBaseURL,
		ashbyBase:      ashbyBaseURL,
	}
}

// FetchPosting parses rawURL and returns the posting's title and plain text.
func (f *Fetcher) FetchPosting(ctx context.Context, rawURL string) (model.Posting, error) {
	ref, err := ParseURL(rawURL)
	if err != nil {
		return model.Posting{}, err
	}

	var p model.Posting
	switch ref.Source {
	case SourceGreenhouse:
		p, err = f.greenhouse(ctx, ref)
	case SourceLever:
		p, err = f.lever(ctx, ref)
	case SourceAshby:
		p, err = f.ashby(ctx, ref)
	}
	if err != nil {
		return model.Posting{}, err
	}
	if p.URL == "" {
		p.URL = rawURL
	}
	if strings.TrimSpace(p.Text) == "" {
		return model.Posting{}, fmt.Errorf("%s posting %s/%s has no description: %w", ref.Source, ref.Board, ref.ID, model.ErrMissingJobDescription)
	}
	return p, nil
}

// get performs one GET and returns the body of a 200 response. 404 maps to
// ErrPostingNotFound; other statuses come back as *model.HTTPError.
func (f *Fetcher) get(ctx context.Context, ref Ref, endpoint string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s fetch for %s: %w", ref.Source, ref.Board, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Body(), nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s fetch for %s/%s: %w", ref.Source, ref.Board, ref.ID, model.ErrPostingNotFound)
	default:
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode(),
			RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After")),
			Err:        fmt.Errorf("%s fetch for %s: unexpected status %d", ref.Source, ref.Board, resp.StatusCode()),
		}
	}
}
