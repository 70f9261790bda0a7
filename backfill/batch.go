package backfill

import (
	"context"
	"fmt"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/retry"
	"github.com/poiesic/brieflink/storage"
)

// BatchProcessor embeds batches of pending rows and writes the vectors back.
type BatchProcessor struct {
	repo       storage.EmbeddingRepository
	embedder   ai.Embedder
	policy     retry.Policy
	briefChars int
}

// NewBatchProcessor creates a new batch processor.
// briefChars: how much of a brief's full text is embedded as its vector
func NewBatchProcessor(repo storage.EmbeddingRepository, embedder ai.Embedder, policy retry.Policy, briefChars int) *BatchProcessor {
	return &BatchProcessor{
		repo:       repo,
		embedder:   embedder,
		policy:     policy,
		briefChars: briefChars,
	}
}

// Process embeds rows of target and stores the vectors.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, target storage.EmbeddingTarget, rows []storage.PendingEmbedding) error {
	if len(rows) == 0 {
		return nil
	}

	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = row.Text
		if target == storage.TargetBrief {
			texts[i] = ai.Prefix(row.Text, bp.briefChars)
		}
	}

	embeddings, err := retry.Do(ctx, bp.policy, func(ctx context.Context) ([][]float32, error) {
		return bp.embedder.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.policy.MaxAttempts, err)
	}

	if len(embeddings) != len(rows) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(rows), len(embeddings))
	}

	vectors := make(map[core.ID][]float32, len(rows))
	for i, row := range rows {
		vectors[row.ID] = ai.NormalizeVector(embeddings[i])
	}

	if err := bp.repo.SetEmbeddings(ctx, target, vectors); err != nil {
		return fmt.Errorf("failed to update %s embeddings: %w", target, err)
	}
	return nil
}
