package jobpost

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/amishk599/cvvin/internal/model"
)

// ashby reads the whole board, GET /job-board/{board}, and picks the posting
// by id since the public API has no single-posting endpoint.
func (f *Fetcher) ashby(ctx context.Context, ref Ref) (model.Posting, error) {
	body, err := f.get(ctx, ref, fmt.Sprintf("%s/%s", f.ashbyBase, ref.Board))
	if err != nil {
		return model.Posting{}, err
	}
	if !gjson.ValidBytes(body) {
		return model.Posting{}, fmt.Errorf("ashby fetch for %s: invalid JSON", ref.Board)
	}

	var job gjson.Result
	gjson.GetBytes(body, "jobs").ForEach(func(_, j gjson.Result) bool {
		if j.Get("id").String() == ref.ID {
			job = j
			return false
		}
		return true
	})
	if !job.Exists() {
		return model.Posting{}, fmt.Errorf("ashby fetch for %s/%s: %w", ref.Board, ref.ID, model.ErrPostingNotFound)
	}

	text := job.Get("descriptionPlain").String()
	if text == "" {
		text = extractText(job.Get("descriptionHtml").String())
	}
	return model.Posting{
		Source:  SourceAshby,
		Title:   job.Get("title").String(),
		Company: ref.Board,
		URL:     job.Get("jobUrl").String(),
		Text:    text,
	}, nil
}
