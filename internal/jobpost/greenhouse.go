package jobpost

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/amishk599/cvvin/internal/model"
)

// greenhouse reads GET /boards/{board}/jobs/{id}. The content field is
// HTML-escaped HTML.
func (f *Fetcher) greenhouse(ctx context.Context, ref Ref) (model.Posting, error) {
	body, err := f.get(ctx, ref, fmt.Sprintf("%s/%s/jobs/%s", f.greenhouseBase, ref.Board, ref.ID))
	if err != nil {
		return model.Posting{}, err
	}
	if !gjson.ValidBytes(body) {
		return model.Posting{}, fmt.Errorf("greenhouse fetch for %s: invalid JSON", ref.Board)
	}

	job := gjson.ParseBytes(body)
	company := job.Get("company_name").String()
	if company == "" {
		company = ref.Board
	}
	return model.Posting{
		Source:  SourceGreenhouse,
		Title:   job.Get("title").String(),
		Company: company,
		URL:     job.Get("absolute_url").String(),
		Text:    extractText(job.Get("content").String()),
	}, nil
}
