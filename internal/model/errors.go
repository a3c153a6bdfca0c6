package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrMissingResumeSource     = errors.New("missing resume source")
	ErrMissingJobDescription   = errors.New("missing job description")
	ErrExtractionFailure       = errors.New("text extraction failed")
	ErrTimeout                 = errors.New("timed out")
	ErrStorageFailure          = errors.New("storage failure")

	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrCanceled           = errors.New("analysis canceled")

	ErrUnsupportedPosting = errors.New("unsupported job posting URL")
	ErrPostingNotFound    = errors.New("job posting not found")
)

// DocumentError describes a rejected or unreadable document.
type DocumentError struct {
	Kind     error    // one of the sentinel errors above
	Name     string   // file name as supplied
	Accepted []string // accepted types, for UnsupportedDocumentType
	Err      error    // underlying cause, may be nil
}

func (e *DocumentError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *DocumentError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ValidationError is returned by the input resolver.
type ValidationError struct {
	Kind  error
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// UserMessage maps an error to an actionable message for the person at the
// keyboard. Unknown errors fall back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var docErr *DocumentError
	var valErr *ValidationError
	switch {
	case errors.Is(err, ErrUnsupportedDocumentType):
		if errors.As(err, &docErr) && len(docErr.Accepted) > 0 {
			return fmt.Sprintf("%q is not a supported file. Please upload a %s file.",
				docErr.Name, strings.Join(docErr.Accepted, " or "))
		}
		return "That file type is not supported. Please upload a PDF."
	case errors.Is(err, ErrMissingResumeSource):
		if errors.As(err, &valErr) && valErr.Field == "profile.resume" {
			return "Your profile has no resume yet. Attach one with `cvvin profile resume <file.pdf>` or upload one with --resume."
		}
		return "Please upload your resume (PDF) with --resume, or choose --resume-source profile."
	case errors.Is(err, ErrMissingJobDescription):
		return "Please paste the job description text with --jd-text, or load it from a file with --jd-file."
	case errors.Is(err, ErrExtractionFailure):
		if errors.As(err, &docErr) && docErr.Name != "" {
			return fmt.Sprintf("Could not read text from %q. Make sure it is a text-based PDF that is not password protected.", docErr.Name)
		}
		return "Could not read text from the document. Make sure it is a text-based PDF."
	case errors.Is(err, ErrTimeout):
		return "Reading the documents took too long. Try a smaller file or raise analysis.timeout in the config."
	case errors.Is(err, ErrStorageFailure):
		return "Could not save your data locally. Check that the store path is writable and try again."
	case errors.Is(err, ErrNotAuthenticated):
		return "Please log in first with `cvvin login` (or create an account with `cvvin signup`)."
	case errors.Is(err, ErrInvalidCredentials):
		if errors.As(err, &valErr) {
			return fmt.Sprintf("Please enter a valid %s.", valErr.Field)
		}
		return "Email or password is incorrect."
	case errors.Is(err, ErrAccountExists):
		return "An account already exists on this machine. Log in with `cvvin login` instead."
	case errors.Is(err, ErrCanceled):
		return "Analysis was canceled."
	case errors.Is(err, ErrUnsupportedPosting):
		return "Only Greenhouse, Lever and Ashby job posting links are supported. Paste the description with --jd-text instead."
	case errors.Is(err, ErrPostingNotFound):
		return "That job posting could not be found. It may have been closed; paste the description with --jd-text instead."
	}
	return err.Error()
}

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
