package model

import (
	"path/filepath"
	"strings"
)

// SourceKind records where a Document came from.
type SourceKind string

const (
	SourceUpload        SourceKind = "upload"
	SourceProfileStored SourceKind = "profileStored"
	SourcePasted        SourceKind = "pasted"
)

// Upload is a raw file as handed over by a file picker.
type Upload struct {
	Name string
	MIME string // declared MIME, may be empty
	Data []byte
}

// Document is a resume or job description in canonical form.
// ExtractedText is nil until the document has been normalized.
type Document struct {
	SourceKind      SourceKind `json:"source_kind"`
	Name            string     `json:"name"`
	RawBytes        []byte     `json:"raw_bytes,omitempty"`
	MimeOrExtension string     `json:"mime_or_extension"`
	Size            int        `json:"size"`
	ExtractedText   *string    `json:"extracted_text,omitempty"`
}

// Normalized reports whether the document's text has been extracted.
func (d Document) Normalized() bool {
	return d.ExtractedText != nil
}

// Text returns the extracted text, or "" when the document is not normalized.
func (d Document) Text() string {
	if d.ExtractedText == nil {
		return ""
	}
	return *d.ExtractedText
}

// Clone returns a deep copy so callers cannot alias stored bytes.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.RawBytes != nil {
		c.RawBytes = append([]byte(nil), d.RawBytes...)
	}
	if d.ExtractedText != nil {
		s := *d.ExtractedText
		c.ExtractedText = &s
	}
	return &c
}

// Extension returns the lowercased file extension of name, including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
