package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultPDFToTextBinary  = "pdftotext"
	defaultPDFToTextTimeout = 2 * time.Minute
)

// PDFToText runs poppler's pdftotext in layout mode.
type PDFToText struct {
	// Binary is the executable to run. Defaults to "pdftotext" on PATH.
	Binary string
	// Timeout bounds a single run. Defaults to two minutes.
	Timeout time.Duration
}

var _ Extractor = (*PDFToText)(nil)

// Extract writes data to a temp file and converts it.
func (p *PDFToText) Extract(ctx context.Context, data []byte) (Text, error) {
	if !isPDF(data) {
		return Text{}, fmt.Errorf("%w: missing %%PDF header", ErrUnreadable)
	}

	binary := p.Binary
	if binary == "" {
		binary = defaultPDFToTextBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Text{}, fmt.Errorf("%w: pdftotext not found: %w", ErrRecoverable, err)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultPDFToTextTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "brieflink_pdftotext_*")
	if err != nil {
		return Text{}, fmt.Errorf("%w: temp dir: %w", ErrRecoverable, err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "in.pdf")
	outPath := filepath.Join(tmpDir, "out.txt")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return Text{}, fmt.Errorf("%w: write input: %w", ErrRecoverable, err)
	}

	cmd := exec.CommandContext(callCtx, path, "-layout", "-enc", "UTF-8", "-q", inPath, outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return Text{}, fmt.Errorf("%w: pdftotext: %w; stderr=%s", ErrRecoverable, err, s)
		}
		return Text{}, fmt.Errorf("%w: pdftotext: %w", ErrRecoverable, err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return Text{}, fmt.Errorf("%w: read pdftotext output: %w", ErrRecoverable, err)
	}
	raw := string(out)
	if strings.TrimSpace(strings.ReplaceAll(raw, "\f", "")) == "" {
		return Text{}, fmt.Errorf("%w: pdftotext produced empty output", ErrRecoverable)
	}

	return Text{
		Content: strings.TrimSpace(strings.ReplaceAll(raw, "\f", "\n")),
		Pages:   countPages(raw),
	}, nil
}
