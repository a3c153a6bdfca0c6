package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/amishk599/cvvin/internal/model"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
)

var (
	resumeTypes  = []string{"PDF (.pdf)"}
	jobDescTypes = []string{"PDF (.pdf)", "plain text (.txt)"}
	pictureTypes = []string{"PNG", "JPEG", "GIF", "WebP"}
)

// Normalizer turns uploads and pasted text into Documents with their
// extracted text populated. PDF text comes from the TextExtractor.
type Normalizer struct {
	extractor model.TextExtractor
	logger    *slog.Logger
}

func NewNormalizer(extractor model.TextExtractor, logger *slog.Logger) *Normalizer {
	return &Normalizer{extractor: extractor, logger: logger}
}

// NormalizeResume accepts only PDFs. Any other type is rejected before the
// extractor is called.
func (n *Normalizer) NormalizeResume(ctx context.Context, up model.Upload) (model.Document, error) {
	if !isPDF(up) {
		return model.Document{}, unsupported(up.Name, resumeTypes)
	}
	return n.Normalize(ctx, newDocument(model.SourceUpload, up, mimePDF))
}

// NormalizeResumeDocument is NormalizeResume for a Document that was accepted
// earlier, such as a profile-stored resume.
func (n *Normalizer) NormalizeResumeDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.Normalized() {
		return doc, nil
	}
	if !isPDF(model.Upload{Name: doc.Name, MIME: doc.MimeOrExtension}) && doc.MimeOrExtension != ".pdf" {
		return model.Document{}, unsupported(doc.Name, resumeTypes)
	}
	return n.Normalize(ctx, doc)
}

// NormalizeJobDescription accepts PDFs and plain-text files.
func (n *Normalizer) NormalizeJobDescription(ctx context.Context, up model.Upload) (model.Document, error) {
	switch {
	case isPDF(up):
		return n.Normalize(ctx, newDocument(model.SourceUpload, up, mimePDF))
	case isText(up):
		return n.Normalize(ctx, newDocument(model.SourceUpload, up, mimeText))
	default:
		return model.Document{}, unsupported(up.Name, jobDescTypes)
	}
}

// AcceptJobDescription checks the type of a job description file and wraps
// it without extracting text, leaving extraction to the analysis run.
func AcceptJobDescription(up model.Upload) (model.Document, error) {
	switch {
	case isPDF(up):
		return newDocument(model.SourceUpload, up, mimePDF), nil
	case isText(up):
		return newDocument(model.SourceUpload, up, mimeText), nil
	}
	return model.Document{}, unsupported(up.Name, jobDescTypes)
}

// AcceptResume checks that up is an acceptable resume and wraps it in a
// Document without extracting text. Used when attaching a resume to the
// profile, where extraction happens later at analysis time.
func AcceptResume(up model.Upload, kind model.SourceKind) (model.Document, error) {
	if !isPDF(up) {
		return model.Document{}, unsupported(up.Name, resumeTypes)
	}
	return newDocument(kind, up, mimePDF), nil
}

// AcceptPicture checks that up is an image usable as a profile picture.
func AcceptPicture(up model.Upload) (model.Document, error) {
	if declared := baseMIME(up.MIME); strings.HasPrefix(declared, "image/") {
		return newDocument(model.SourceProfileStored, up, declared), nil
	}
	switch model.Extension(up.Name) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return newDocument(model.SourceProfileStored, up, model.Extension(up.Name)), nil
	}
	return model.Document{}, unsupported(up.Name, pictureTypes)
}

// FromText wraps pasted text. The text is kept verbatim apart from trimming
// leading and trailing whitespace.
func FromText(name, text string) model.Document {
	trimmed := strings.TrimSpace(text)
	return model.Document{
		SourceKind:      model.SourcePasted,
		Name:            name,
		MimeOrExtension: mimeText,
		Size:            len(text),
		ExtractedText:   &trimmed,
	}
}

// Normalize populates doc.ExtractedText. Already normalized documents are
// returned unchanged.
func (n *Normalizer) Normalize(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.Normalized() {
		return doc, nil
	}

	var text string
	switch doc.MimeOrExtension {
	case mimeText, ".txt":
		text = strings.TrimSpace(string(doc.RawBytes))
	case mimePDF, ".pdf":
		extracted, err := n.extractor.ExtractText(ctx, doc.RawBytes, doc.MimeOrExtension)
		if err != nil {
			return model.Document{}, extractionError(doc.Name, err)
		}
		text = strings.TrimSpace(extracted)
		if text == "" {
			n.logger.Warn("document has no extractable text", "name", doc.Name)
		}
	default:
		return model.Document{}, unsupported(doc.Name, jobDescTypes)
	}

	n.logger.Debug("normalized document", "name", doc.Name, "type", doc.MimeOrExtension, "bytes", doc.Size, "chars", len(text))
	doc.ExtractedText = &text
	return doc, nil
}

func extractionError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.DocumentError{Kind: model.ErrTimeout, Name: name, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &model.DocumentError{Kind: model.ErrCanceled, Name: name, Err: err}
	}
	return &model.DocumentError{Kind: model.ErrExtractionFailure, Name: name, Err: fmt.Errorf("extracting text: %w", err)}
}

func unsupported(name string, accepted []string) error {
	return &model.DocumentError{Kind: model.ErrUnsupportedDocumentType, Name: name, Accepted: accepted}
}

func newDocument(kind model.SourceKind, up model.Upload, mimeType string) model.Document {
	return model.Document{
		SourceKind:      kind,
		Name:            up.Name,
		RawBytes:        up.Data,
		MimeOrExtension: mimeType,
		Size:            len(up.Data),
	}
}

func isPDF(up model.Upload) bool {
	return baseMIME(up.MIME) == mimePDF || model.Extension(up.Name) == ".pdf"
}

func isText(up model.Upload) bool {
	return baseMIME(up.MIME) == mimeText || model.Extension(up.Name) == ".txt"
}

// baseMIME strips parameters such as "; charset=utf-8".
func baseMIME(declared string) string {
	if declared == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mt
}
