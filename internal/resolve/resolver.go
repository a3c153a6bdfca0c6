// Package resolve decides which resume and which job description text feed
// an analysis.
package resolve

import (
	"fmt"
	"strings"

	"github.com/amishk599/cvvin/internal/model"
)

// ResumeSource is the user's explicit choice of resume.
type ResumeSource string

const (
	FromProfile ResumeSource = "profile"
	FromUpload  ResumeSource = "upload"
)

// ParseResumeSource maps a flag value to a ResumeSource.
func ParseResumeSource(s string) (ResumeSource, error) {
	switch ResumeSource(strings.ToLower(strings.TrimSpace(s))) {
	case FromProfile:
		return FromProfile, nil
	case FromUpload:
		return FromUpload, nil
	}
	return "", fmt.Errorf("resume source must be %q or %q, got %q", FromProfile, FromUpload, s)
}

// Inputs is everything the user has supplied for one analysis.
type Inputs struct {
	ResumeSource       ResumeSource
	Profile            model.Profile
	UploadedResume     *model.Document
	JobDescriptionText string
	// JobDescription is the file behind the text field, if any. A file that
	// has not been extracted yet is pending: its text fills an empty field
	// when the analysis runs.
	JobDescription *model.Document
}

// Resolve applies the precedence rules:
//   - the resume comes from exactly the chosen source, never a fallback;
//   - the live job description text is authoritative; a file already loaded
//     into it is not enough on its own, a pending file is.
func Resolve(in Inputs) (model.AnalysisRequest, error) {
	resume, err := ResolveResume(in)
	if err != nil {
		return model.AnalysisRequest{}, err
	}

	text := strings.TrimSpace(in.JobDescriptionText)
	if text == "" && !pending(in.JobDescription) {
		return model.AnalysisRequest{}, &model.ValidationError{Kind: model.ErrMissingJobDescription, Field: "job description text"}
	}

	return model.AnalysisRequest{
		Resume:             resume,
		JobDescriptionText: text,
		JobDescription:     in.JobDescription.Clone(),
	}, nil
}

// ResolveResume picks the resume for in.ResumeSource. It does no I/O, so
// callers can check the choice before fetching anything else.
func ResolveResume(in Inputs) (model.Document, error) {
	var resume *model.Document
	switch in.ResumeSource {
	case FromProfile:
		if in.Profile.Resume == nil {
			return model.Document{}, &model.ValidationError{Kind: model.ErrMissingResumeSource, Field: "profile.resume"}
		}
		resume = in.Profile.Resume.Clone()
		resume.SourceKind = model.SourceProfileStored
	case FromUpload:
		if in.UploadedResume == nil {
			return model.Document{}, &model.ValidationError{Kind: model.ErrMissingResumeSource, Field: "resume upload"}
		}
		resume = in.UploadedResume.Clone()
		resume.SourceKind = model.SourceUpload
	default:
		return model.Document{}, &model.ValidationError{Kind: model.ErrMissingResumeSource, Field: "resume source"}
	}
	return *resume, nil
}

func pending(doc *model.Document) bool {
	return doc != nil && !doc.Normalized()
}
