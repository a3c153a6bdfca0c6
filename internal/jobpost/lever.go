package jobpost

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/amishk599/cvvin/internal/model"
)

// lever reads GET /postings/{company}/{id}. The description is split across
// descriptionPlain, the lists (requirements, responsibilities) and
// additionalPlain.
func (f *Fetcher) lever(ctx context.Context, ref Ref) (model.Posting, error) {
	body, err := f.get(ctx, ref, fmt.Sprintf("%s/%s/%s?mode=json", f.leverBase, ref.Board, ref.ID))
	if err != nil {
		return model.Posting{}, err
	}
	if !gjson.ValidBytes(body) {
		return model.Posting{}, fmt.Errorf("lever fetch for %s: invalid JSON", ref.Board)
	}

	job := gjson.ParseBytes(body)
	sections := []string{job.Get("descriptionPlain").String()}
	job.Get("lists").ForEach(func(_, list gjson.Result) bool {
		sections = append(sections, list.Get("text").String()+"\n"+extractText(list.Get("content").String()))
		return true
	})
	sections = append(sections, job.Get("additionalPlain").String())

	return model.Posting{
		Source:  SourceLever,
		Title:   job.Get("text").String(),
		Company: ref.Board,
		URL:     job.Get("hostedUrl").String(),
		Text:    joinSections(sections...),
	}, nil
}
