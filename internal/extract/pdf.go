package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/amishk599/cvvin/internal/model"
)

var _ model.TextExtractor = (*PDFExtractor)(nil)

// PDFExtractor pulls plain text out of PDF bytes, page by page.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

type result struct {
	text string
	err  error
}

// ExtractText returns the concatenated plain text of every page. The pdf
// library takes no context, so parsing runs on its own goroutine and
// ExtractText returns ctx.Err() as soon as ctx is done.
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte, mimeOrExtension string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan result, 1)
	go func() {
		text, err := readPages(data)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func readPages(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}
