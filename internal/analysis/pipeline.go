package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amishk599/cvvin/internal/document"
	"github.com/amishk599/cvvin/internal/match"
	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/skills"
)

// Pipeline owns the work of a single run:
// normalize resume → normalize job description → extract → score.
type Pipeline struct {
	normalizer *document.Normalizer
	extractor  *skills.Extractor
	scorer     *match.Scorer
	logger     *slog.Logger
}

// NewPipeline creates a pipeline wired with all its dependencies.
func NewPipeline(
	normalizer *document.Normalizer,
	extractor *skills.Extractor,
	scorer *match.Scorer,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		extractor:  extractor,
		scorer:     scorer,
		logger:     logger,
	}
}

// Run analyzes req. Errors from the normalizer and extractor are returned
// as they are; a done context surfaces as ErrTimeout or ErrCanceled.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest) (model.MatchResult, error) {
	resume, err := p.normalizer.NormalizeResumeDocument(ctx, req.Resume)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("normalizing resume: %w", err)
	}

	jobDesc, err := p.jobDescription(ctx, req)
	if err != nil {
		return model.MatchResult{}, err
	}

	if err := contextErr(ctx); err != nil {
		return model.MatchResult{}, err
	}

	candidate, err := p.extractor.Extract(resume)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("extracting resume skills: %w", err)
	}
	required, err := p.extractor.Extract(jobDesc)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("extracting job skills: %w", err)
	}

	if err := contextErr(ctx); err != nil {
		return model.MatchResult{}, err
	}

	res := p.scorer.Score(candidate, required)

	p.logger.Debug("analyzed documents",
		"resume", resume.Name,
		"candidate_skills", candidate.Len(),
		"required_skills", required.Len(),
		"score", res.MatchScore,
	)

	return res, nil
}

// jobDescription returns the text field as a document, or the pending file
// normalized under ctx when the field is empty.
func (p *Pipeline) jobDescription(ctx context.Context, req model.AnalysisRequest) (model.Document, error) {
	name := "job description"
	if req.JobDescription != nil && req.JobDescription.Name != "" {
		name = req.JobDescription.Name
	}
	if strings.TrimSpace(req.JobDescriptionText) != "" || req.JobDescription == nil {
		return document.FromText(name, req.JobDescriptionText), nil
	}

	doc, err := p.normalizer.Normalize(ctx, *req.JobDescription)
	if err != nil {
		return model.Document{}, fmt.Errorf("normalizing job description: %w", err)
	}
	if doc.Text() == "" {
		return model.Document{}, &model.ValidationError{Kind: model.ErrMissingJobDescription, Field: name}
	}
	return doc, nil
}

func contextErr(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", model.ErrCanceled, err)
	}
}
