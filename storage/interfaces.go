package storage

import (
	"context"

	"github.com/poiesic/brieflink/core"
)

// CaseRepository provides lookups over the cases briefs are linked to.
// Implementations must be thread-safe and support concurrent access.
type CaseRepository interface {
	// UpsertCases inserts cases or replaces existing ones with the same Key.
	// NormalizedID is recomputed from FileID before writing.
	UpsertCases(ctx context.Context, cases ...*core.Case) error

	// GetCase retrieves a case by its raw numeric key.
	// Returns ErrNotFound if the case doesn't exist.
	GetCase(ctx context.Context, key int64) (*core.Case, error)

	// FindCaseByNormalizedID retrieves the case whose normalized id equals id.
	// Returns ErrNotFound if no case matches.
	FindCaseByNormalizedID(ctx context.Context, id string) (*core.Case, error)

	// FindCasesBySuffix returns cases whose normalized id ends with suffix,
	// up to limit results ordered by key.
	FindCasesBySuffix(ctx context.Context, suffix string, limit int) ([]*core.Case, error)

	// ListCases returns every case ordered by key.
	ListCases(ctx context.Context) ([]*core.Case, error)
}

// BriefRepository provides operations for briefs and their derived artifacts.
type BriefRepository interface {
	// SaveDocument upserts the brief by SourceFile and replaces every child
	// artifact in one transaction. IDs are assigned with AssignIDs before
	// writing. Returns the stored brief.
	SaveDocument(ctx context.Context, doc *core.Document) (*core.Brief, error)

	// GetBrief retrieves a brief by ID.
	// Returns ErrNotFound if the brief doesn't exist.
	GetBrief(ctx context.Context, id core.ID) (*core.Brief, error)

	// GetBriefBySourceFile retrieves a brief by its natural key.
	// Returns ErrNotFound if the brief doesn't exist.
	GetBriefBySourceFile(ctx context.Context, sourceFile string) (*core.Brief, error)

	// ListBriefsByCase returns the briefs linked to a case ordered by
	// CreatedAt, then ID.
	ListBriefsByCase(ctx context.Context, caseKey int64) ([]*core.Brief, error)

	// ListLinkedCaseKeys returns the distinct case keys that have briefs.
	ListLinkedCaseKeys(ctx context.Context) ([]int64, error)

	// ClaimBackReference sets RespondsTo and Sequence on a brief only if its
	// RespondsTo is still null. Reports whether this call won the claim.
	// Returns ErrNotFound if the brief doesn't exist.
	ClaimBackReference(ctx context.Context, briefID, parentID core.ID, sequence int) (bool, error)

	// GetDocument loads a brief together with its artifacts.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)
}

// EmbeddingRepository finds and fills rows whose embeddings are missing.
type EmbeddingRepository interface {
	// ListMissingEmbeddings returns up to limit rows of the target kind
	// with no embedding and an ID greater than after, ordered by ID.
	ListMissingEmbeddings(ctx context.Context, target EmbeddingTarget, after core.ID, limit int) ([]PendingEmbedding, error)

	// SetEmbeddings writes embeddings for rows of the target kind.
	// Unknown IDs are ignored.
	SetEmbeddings(ctx context.Context, target EmbeddingTarget, vectors map[core.ID][]float32) error

	// PromotePartialBriefs marks partial briefs completed once neither the
	// brief nor any of its chunks or sentences lacks an embedding.
	// Returns the number of briefs promoted.
	PromotePartialBriefs(ctx context.Context) (int, error)
}

// SearchRepository provides retrieval over stored artifacts.
type SearchRepository interface {
	// FindSimilarChunks returns chunks whose embedding scores at least
	// minScore against vector, best first, up to limit. A non-nil caseKey
	// restricts results to that case.
	FindSimilarChunks(ctx context.Context, vector []float32, minScore float32, limit int, caseKey *int64) ([]core.ChunkMatch, error)

	// FindPhrases returns phrases containing query, case-insensitively,
	// most frequent first, up to limit.
	FindPhrases(ctx context.Context, query string, caseKey *int64, limit int) ([]core.PhraseMatch, error)
}

// Store is the relational store briefs are ingested into.
type Store interface {
	CaseRepository
	BriefRepository
	EmbeddingRepository
	SearchRepository

	// Close releases the store's resources.
	Close() error
}

// CheckpointRepository provides resumable processing state.
type CheckpointRepository interface {
	// SaveCheckpoint persists the checkpoint for a processor and source file.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor and source file.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType, sourceFile string) (*core.Checkpoint, error)

	// DeleteCheckpoints removes every checkpoint of a processor type.
	DeleteCheckpoints(ctx context.Context, processorType string) error
}

// EmbeddingTarget names a kind of row that carries an embedding.
type EmbeddingTarget string

const (
	TargetBrief    EmbeddingTarget = "brief"
	TargetChunk    EmbeddingTarget = "chunk"
	TargetSentence EmbeddingTarget = "sentence"
)

// PendingEmbedding is a row waiting for its embedding.
type PendingEmbedding struct {
	ID      core.ID
	BriefID core.ID
	Text    string
}
