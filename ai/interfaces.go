package ai

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when an embedding has an unexpected width.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// BriefAnalyzer summarizes a brief and lists the issues it raises.
// Implementations must be thread-safe for concurrent use.
type BriefAnalyzer interface {
	// AnalyzeBrief reads the opening portion of a brief. An empty Summary
	// with a nil error means the model produced nothing usable.
	AnalyzeBrief(ctx context.Context, text string) (BriefAnalysis, error)
}

// BriefAnalysis is the model's reading of one brief.
type BriefAnalysis struct {
	Summary string
	// Issues are "Category: description" strings, most important first.
	Issues []string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// BriefAnalyzer returns the brief analysis service.
	BriefAnalyzer() BriefAnalyzer

	// Close releases resources held by the provider and its services.
	Close() error
}
