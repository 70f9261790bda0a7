package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFReader extracts text with a pure Go PDF parser. It needs no external
// binaries but loses most layout, including dot leaders.
type PDFReader struct{}

var _ Extractor = PDFReader{}

// Extract reads every page's plain text. Parser panics on malformed input
// are reported as ErrUnreadable.
func (PDFReader) Extract(ctx context.Context, data []byte) (text Text, err error) {
	if !isPDF(data) {
		return Text{}, fmt.Errorf("%w: missing %%PDF header", ErrUnreadable)
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = Text{}, fmt.Errorf("%w: pdf parser: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Text{}, fmt.Errorf("%w: pdf reader: %w", ErrUnreadable, err)
	}

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return Text{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return Text{}, fmt.Errorf("%w: page %d: %w", ErrUnreadable, i, err)
		}
		pages = append(pages, content)
	}

	content := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if content == "" {
		return Text{}, fmt.Errorf("%w: no extractable text", ErrUnreadable)
	}
	return Text{Content: content, Pages: n}, nil
}
