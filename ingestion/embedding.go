package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/retry"
)

const defaultEmbedBatchSize = 64

// enricher adds the AI-derived fields of a document: summary, issues and
// embeddings. Every call is retried; failures leave fields empty.
type enricher struct {
	embedder      ai.Embedder
	analyzer      ai.BriefAnalyzer
	policy        retry.Policy
	batchSize     int
	briefChars    int
	fallbackChars int
	logger        *slog.Logger
}

// analyze fills the brief's summary and issues. On failure the summary falls
// back to the opening characters of the text and the error is returned.
func (e *enricher) analyze(ctx context.Context, b *core.Brief) error {
	analysis, err := retry.Do(ctx, e.policy, func(ctx context.Context) (ai.BriefAnalysis, error) {
		return e.analyzer.AnalyzeBrief(ctx, b.FullText)
	})
	if err != nil {
		b.Summary = ai.FallbackSummary(b.FullText, e.fallbackChars)
		b.Issues = nil
		return err
	}

	b.Summary = analysis.Summary
	if b.Summary == "" {
		b.Summary = ai.FallbackSummary(b.FullText, e.fallbackChars)
	}
	b.Issues = analysis.Issues
	return nil
}

// embed fills chunk, sentence and brief embeddings. Each group is
// independent: a failed group stays empty while the others are kept.
func (e *enricher) embed(ctx context.Context, doc *core.Document) error {
	var errs []error

	if len(doc.Chunks) > 0 {
		texts := make([]string, len(doc.Chunks))
		for i, c := range doc.Chunks {
			texts[i] = c.Text
		}
		vectors, err := e.embedTexts(ctx, texts)
		if err != nil {
			errs = append(errs, fmt.Errorf("chunks: %w", err))
		} else {
			for i := range doc.Chunks {
				doc.Chunks[i].Embedding = vectors[i]
			}
		}
	}

	if len(doc.Sentences) > 0 {
		texts := make([]string, len(doc.Sentences))
		for i, s := range doc.Sentences {
			texts[i] = s.Text
		}
		vectors, err := e.embedTexts(ctx, texts)
		if err != nil {
			errs = append(errs, fmt.Errorf("sentences: %w", err))
		} else {
			for i := range doc.Sentences {
				doc.Sentences[i].Embedding = vectors[i]
			}
		}
	}

	if text := ai.Prefix(doc.Brief.FullText, e.briefChars); text != "" {
		vector, err := retry.Do(ctx, e.policy, func(ctx context.Context) ([]float32, error) {
			v, err := e.embedder.EmbedText(ctx, text)
			return v, permanentIfMismatch(err)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("brief: %w", err))
		} else {
			doc.Brief.Embedding = ai.NormalizeVector(vector)
		}
	}

	return errors.Join(errs...)
}

// embedTexts embeds texts in batches and returns normalized vectors in input order.
func (e *enricher) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	size := e.batchSize
	if size <= 0 {
		size = defaultEmbedBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		batch := texts[start:min(start+size, len(texts))]
		vectors, err := retry.Do(ctx, e.policy, func(ctx context.Context) ([][]float32, error) {
			v, err := e.embedder.EmbedTexts(ctx, batch)
			return v, permanentIfMismatch(err)
		})
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
		}
		ai.NormalizeVectors(vectors)
		out = append(out, vectors...)
	}

	e.logger.Debug("embedded texts", "texts", len(texts))
	return out, nil
}

// permanentIfMismatch stops retries for errors another attempt cannot fix.
func permanentIfMismatch(err error) error {
	if errors.Is(err, ai.ErrDimensionMismatch) {
		return retry.Permanent(err)
	}
	return err
}
