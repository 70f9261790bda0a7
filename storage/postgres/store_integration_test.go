//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// startPostgres launches a pgvector-enabled PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "briefs_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/briefs_test?sslmode=disable", host, port.Port())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(sourceFile string, caseKey *int64) *core.Document {
	return &core.Document{
		Brief: core.Brief{
			SourceFile: sourceFile,
			CaseKey:    caseKey,
			Party:      core.PartyAppellant,
			Role:       core.RoleOpening,
			Sequence:   1,
			Issues:     []string{"Evidence: hearsay admitted"},
			FullText:   "The trial court erred. The conviction should be reversed.",
			Status:     core.StatusPartial,
		},
		Chunks: []core.Chunk{
			{Order: 1, Start: 0, End: 22, Text: "The trial court erred.", Section: core.SectionArgument},
			{Order: 2, Start: 23, End: 58, Text: "The conviction should be reversed.", Section: core.SectionConclusion},
		},
		Sentences: []core.Sentence{
			{ChunkOrder: 1, Order: 1, GlobalOrder: 1, Text: "The trial court erred."},
			{ChunkOrder: 2, Order: 1, GlobalOrder: 2, Text: "The conviction should be reversed."},
		},
		Phrases:   []core.Phrase{{Text: "trial court", Length: 2, Frequency: 3, ExampleChunkOrder: 1, ExampleSentence: 1}},
		Arguments: []core.Argument{{Index: 0, ParentIndex: -1, Level: 1, Marker: "I", Path: "I", Title: "THE TRIAL COURT ERRED", Position: 1}},
		Citations: []core.Citation{{Text: "State v. Smith, 150 Wn.2d 489", Kind: core.CitationCase, Pages: []int{4, 9}, Occurrences: 2}},
		Words:     []core.WordOccurrence{{Word: "trial", ChunkOrder: 1, Position: 2}},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestPostgresStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCases(ctx,
		&core.Case{Key: 934, FileID: "83895-4-I", Title: "State v. Johnson"},
		&core.Case{Key: 12, FileID: "10934-1"},
	))

	t.Run("cases", func(t *testing.T) {
		c, err := store.FindCaseByNormalizedID(ctx, "83895-4")
		require.NoError(t, err)
		assert.Equal(t, int64(934), c.Key)

		matches, err := store.FindCasesBySuffix(ctx, "341", 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, int64(12), matches[0].Key)

		_, err = store.GetCase(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("save and reload document", func(t *testing.T) {
		saved, err := store.SaveDocument(ctx, testDocument("2024/838954/opening.pdf", int64Ptr(934)))
		require.NoError(t, err)
		assert.Equal(t, storage.BriefID("2024/838954/opening.pdf"), saved.ID)

		doc, err := store.GetDocument(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, core.PartyAppellant, doc.Brief.Party)
		assert.Equal(t, core.RoleOpening, doc.Brief.Role)
		assert.Equal(t, []string{"Evidence: hearsay admitted"}, doc.Brief.Issues)
		require.Len(t, doc.Chunks, 2)
		require.Len(t, doc.Sentences, 2)
		assert.Equal(t, doc.Chunks[1].ID, doc.Sentences[1].ChunkID)
		require.Len(t, doc.Citations, 1)
		assert.Equal(t, []int{4, 9}, doc.Citations[0].Pages)
		assert.Nil(t, doc.Arguments[0].ParentID)

		again, err := store.SaveDocument(ctx, testDocument("2024/838954/opening.pdf", int64Ptr(934)))
		require.NoError(t, err)
		assert.True(t, again.CreatedAt.Equal(saved.CreatedAt))

		doc, err = store.GetDocument(ctx, saved.ID)
		require.NoError(t, err)
		assert.Len(t, doc.Chunks, 2)
	})

	t.Run("claim back reference", func(t *testing.T) {
		parent, err := store.GetBriefBySourceFile(ctx, "2024/838954/opening.pdf")
		require.NoError(t, err)
		child, err := store.SaveDocument(ctx, testDocument("2024/838954/response.pdf", int64Ptr(934)))
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.ClaimBackReference(ctx, child.ID, parent.ID, 2)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		_, err = store.ClaimBackReference(ctx, core.ID(7), parent.ID, 2)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		briefs, err := store.ListBriefsByCase(ctx, 934)
		require.NoError(t, err)
		assert.Len(t, briefs, 2)

		keys, err := store.ListLinkedCaseKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{934}, keys)
	})

	t.Run("embeddings backfill and promotion", func(t *testing.T) {
		for _, target := range []storage.EmbeddingTarget{storage.TargetBrief, storage.TargetChunk, storage.TargetSentence} {
			pending, err := store.ListMissingEmbeddings(ctx, target, 0, 100)
			require.NoError(t, err)
			require.NotEmpty(t, pending)
			vectors := make(map[core.ID][]float32, len(pending))
			for i, p := range pending {
				if i > 0 {
					assert.Less(t, uint64(pending[i-1].ID), uint64(p.ID))
				}
				vectors[p.ID] = []float32{1, 0, 0}
			}
			require.NoError(t, store.SetEmbeddings(ctx, target, vectors))
		}

		promoted, err := store.PromotePartialBriefs(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, promoted)

		_, err = store.ListMissingEmbeddings(ctx, "concept", 0, 10)
		assert.ErrorIs(t, err, storage.ErrUnknownTarget)
	})

	t.Run("search", func(t *testing.T) {
		matches, err := store.FindSimilarChunks(ctx, []float32{1, 0, 0}, 0.5, 3, int64Ptr(934))
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6)

		matches, err = store.FindSimilarChunks(ctx, []float32{1, 0, 0}, 0.5, 3, int64Ptr(12))
		require.NoError(t, err)
		assert.Empty(t, matches)

		phrases, err := store.FindPhrases(ctx, "TRIAL", nil, 10)
		require.NoError(t, err)
		require.Len(t, phrases, 2)
		assert.Equal(t, int64(934), *phrases[0].CaseKey)
	})
}
