// Package extract turns brief PDFs into plain text.
//
// The primary extractor shells out to poppler's pdftotext, which keeps the
// dot leaders and page numbers of a Table of Authorities intact. A pure Go
// reader serves as the fallback when the binary is missing or fails.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRecoverable marks a failure another extractor may not share.
	ErrRecoverable = errors.New("recoverable extraction error")

	// ErrUnreadable marks input no extractor can read.
	ErrUnreadable = errors.New("unreadable document")
)

// Text is the extracted content of one document.
type Text struct {
	Content string
	Pages   int
}

// Extractor extracts text from a document's bytes.
// Errors wrap ErrRecoverable or ErrUnreadable.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Text, error)
}

// Chain tries each extractor in turn, moving on only after a recoverable error.
type Chain []Extractor

var _ Extractor = Chain(nil)

// Extract returns the first successful extraction.
func (c Chain) Extract(ctx context.Context, data []byte) (Text, error) {
	var errs []error
	for _, e := range c {
		text, err := e.Extract(ctx, data)
		if err == nil {
			return text, nil
		}
		errs = append(errs, err)
		if !errors.Is(err, ErrRecoverable) || ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Text{}, fmt.Errorf("%w: no extractors configured", ErrUnreadable)
	}
	return Text{}, fmt.Errorf("%w: %w", ErrUnreadable, errors.Join(errs...))
}

// isPDF reports whether data starts with the PDF magic bytes.
func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// countPages counts form-feed separated pages, ignoring a trailing empty page.
func countPages(text string) int {
	pages := strings.Split(text, "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return len(pages)
}
