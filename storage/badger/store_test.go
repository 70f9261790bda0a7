package badger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (storage.Store, storage.CheckpointRepository) {
	t.Helper()
	store, checkpoints, backend, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store, checkpoints
}

func testDocument(sourceFile string, caseKey *int64, role core.BriefRole) *core.Document {
	return &core.Document{
		Brief: core.Brief{
			SourceFile: sourceFile,
			CaseKey:    caseKey,
			Role:       role,
			Sequence:   1,
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
		Citations: []core.Citation{{Text: "RCW 9A.36.021", Kind: core.CitationStatute, Occurrences: 1}},
		Words:     []core.WordOccurrence{{Word: "trial", ChunkOrder: 1, Position: 2}},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCases(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.UpsertCases(ctx,
		&core.Case{Key: 934, FileID: "83895-4-I", Title: "State v. Johnson"},
		&core.Case{Key: 12, FileID: "10934-1"},
		&core.Case{Key: 40, FileID: "55555-5"},
	)
	require.NoError(t, err)

	c, err := store.GetCase(ctx, 934)
	require.NoError(t, err)
	assert.Equal(t, "838954", c.NormalizedID)
	assert.False(t, c.CreatedAt.IsZero())

	c, err = store.FindCaseByNormalizedID(ctx, "83895-4")
	require.NoError(t, err)
	assert.Equal(t, int64(934), c.Key)

	_, err = store.FindCaseByNormalizedID(ctx, "99999")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetCase(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	matches, err := store.FindCasesBySuffix(ctx, "341", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(12), matches[0].Key)

	matches, err = store.FindCasesBySuffix(ctx, "4", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	all, err := store.ListCases(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{12, 40, 934}, []int64{all[0].Key, all[1].Key, all[2].Key})

	// Replacing a case moves its normalized index entry.
	require.NoError(t, store.UpsertCases(ctx, &core.Case{Key: 40, FileID: "77777-7"}))
	_, err = store.FindCaseByNormalizedID(ctx, "555555")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	c, err = store.FindCaseByNormalizedID(ctx, "777777")
	require.NoError(t, err)
	assert.Equal(t, int64(40), c.Key)

	assert.ErrorIs(t, store.UpsertCases(ctx, &core.Case{Key: 1, FileID: "no digits"}), core.ErrInvalidCase)
}

func TestSaveDocument(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("2019-briefs/83895-4/brief.pdf", int64Ptr(934), core.RoleOpening)
	saved, err := store.SaveDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, storage.BriefID(doc.Brief.SourceFile), saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := store.GetBriefBySourceFile(ctx, "2019-briefs/83895-4/brief.pdf")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)

	loaded, err := store.GetDocument(ctx, saved.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Chunks, 2)
	assert.Len(t, loaded.Sentences, 2)
	assert.Len(t, loaded.Phrases, 1)
	assert.Len(t, loaded.Arguments, 1)
	assert.Len(t, loaded.Citations, 1)
	assert.Len(t, loaded.Words, 1)
	assert.Equal(t, loaded.Chunks[1].ID, loaded.Sentences[1].ChunkID)

	keys, err := store.ListLinkedCaseKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{934}, keys)

	t.Run("re-ingest replaces children", func(t *testing.T) {
		again := testDocument("2019-briefs/83895-4/brief.pdf", int64Ptr(934), core.RoleOpening)
		again.Chunks = again.Chunks[:1]
		again.Sentences = again.Sentences[:1]
		again.Words = nil

		resaved, err := store.SaveDocument(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, resaved.ID)
		assert.Equal(t, saved.CreatedAt, resaved.CreatedAt)

		loaded, err := store.GetDocument(ctx, saved.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.Chunks, 1)
		assert.Len(t, loaded.Sentences, 1)
		assert.Empty(t, loaded.Words)

		pending, err := store.ListMissingEmbeddings(ctx, storage.TargetChunk, 0, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1, "stale rows are gone")
	})

	t.Run("moving to another case updates the case index", func(t *testing.T) {
		moved := testDocument("2019-briefs/83895-4/brief.pdf", int64Ptr(12), core.RoleOpening)
		_, err := store.SaveDocument(ctx, moved)
		require.NoError(t, err)

		briefs, err := store.ListBriefsByCase(ctx, 934)
		require.NoError(t, err)
		assert.Empty(t, briefs)
		briefs, err = store.ListBriefsByCase(ctx, 12)
		require.NoError(t, err)
		assert.Len(t, briefs, 1)
	})

	t.Run("invalid document", func(t *testing.T) {
		bad := testDocument("2019-briefs/83895-4/bad.pdf", nil, core.RoleOpening)
		bad.Chunks[1].Order = 5
		_, err := store.SaveDocument(ctx, bad)
		assert.ErrorIs(t, err, core.ErrInvalidDocument)
	})
}

func TestClaimBackReference(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	opening, err := store.SaveDocument(ctx, testDocument("a/opening.pdf", int64Ptr(1), core.RoleOpening))
	require.NoError(t, err)
	response, err := store.SaveDocument(ctx, testDocument("a/response.pdf", int64Ptr(1), core.RoleResponse))
	require.NoError(t, err)

	ok, err := store.ClaimBackReference(ctx, response.ID, opening.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ClaimBackReference(ctx, response.ID, opening.ID+1, 3)
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")

	got, err := store.GetBrief(ctx, response.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RespondsTo)
	assert.Equal(t, opening.ID, *got.RespondsTo)
	assert.Equal(t, 2, got.Sequence)

	_, err = store.ClaimBackReference(ctx, 12345, opening.ID, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClaimBackReference_Concurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	opening, err := store.SaveDocument(ctx, testDocument("a/opening.pdf", int64Ptr(1), core.RoleOpening))
	require.NoError(t, err)
	response, err := store.SaveDocument(ctx, testDocument("a/response.pdf", int64Ptr(1), core.RoleResponse))
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ClaimBackReference(ctx, response.ID, opening.ID, 2)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestEmbeddings(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveDocument(ctx, testDocument("a/brief.pdf", nil, core.RoleOpening))
	require.NoError(t, err)

	chunks, err := store.ListMissingEmbeddings(ctx, storage.TargetChunk, 0, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Less(t, chunks[0].ID, chunks[1].ID)

	page, err := store.ListMissingEmbeddings(ctx, storage.TargetChunk, chunks[0].ID, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1, "cursor skips earlier IDs")

	_, err = store.ListMissingEmbeddings(ctx, storage.EmbeddingTarget("concept"), 0, 10)
	assert.ErrorIs(t, err, storage.ErrUnknownTarget)

	promoted, err := store.PromotePartialBriefs(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	vec := []float32{1, 0}
	fill := func(target storage.EmbeddingTarget) {
		pending, err := store.ListMissingEmbeddings(ctx, target, 0, 10)
		require.NoError(t, err)
		vectors := make(map[core.ID][]float32, len(pending))
		for _, p := range pending {
			vectors[p.ID] = vec
		}
		require.NoError(t, store.SetEmbeddings(ctx, target, vectors))
	}
	fill(storage.TargetBrief)
	fill(storage.TargetChunk)
	fill(storage.TargetSentence)

	for _, target := range []storage.EmbeddingTarget{storage.TargetBrief, storage.TargetChunk, storage.TargetSentence} {
		pending, err := store.ListMissingEmbeddings(ctx, target, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, pending, target)
	}

	promoted, err = store.PromotePartialBriefs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	got, err := store.GetBrief(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
}

func TestSearch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := testDocument("a/one.pdf", int64Ptr(1), core.RoleOpening)
	first.Chunks[0].Embedding = []float32{1, 0}
	first.Chunks[1].Embedding = []float32{0.6, 0.8}
	_, err := store.SaveDocument(ctx, first)
	require.NoError(t, err)

	second := testDocument("b/two.pdf", int64Ptr(2), core.RoleOpening)
	second.Chunks[0].Embedding = []float32{0.8, 0.6}
	second.Phrases = []core.Phrase{{Text: "trial court erred", Length: 3, Frequency: 5}}
	_, err = store.SaveDocument(ctx, second)
	require.NoError(t, err)

	matches, err := store.FindSimilarChunks(ctx, []float32{1, 0}, 0.7, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.8, matches[1].Score, 1e-6)

	matches, err = store.FindSimilarChunks(ctx, []float32{1, 0}, 0, 10, int64Ptr(2))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), *matches[0].Chunk.CaseKey)

	_, err = store.FindSimilarChunks(ctx, nil, 0, 10, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	phrases, err := store.FindPhrases(ctx, "TRIAL", nil, 10)
	require.NoError(t, err)
	require.Len(t, phrases, 2)
	assert.Equal(t, "trial court erred", phrases[0].Phrase.Text, "most frequent first")
	assert.Equal(t, int64(2), *phrases[0].CaseKey)

	phrases, err = store.FindPhrases(ctx, "trial", int64Ptr(1), 10)
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, "trial court", phrases[0].Phrase.Text)
}

func TestCheckpoints(t *testing.T) {
	_, checkpoints := newTestStore(t)
	ctx := context.Background()

	cp, err := checkpoints.LoadCheckpoint(ctx, "ingest", "a/brief.pdf")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: "ingest",
		SourceFile:    "a/brief.pdf",
		ContentID:     core.IDFromString("pdf bytes"),
		Status:        core.StatusCompleted,
	}))

	cp, err = checkpoints.LoadCheckpoint(ctx, "ingest", "a/brief.pdf")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, core.IDFromString("pdf bytes"), cp.ContentID)
	assert.False(t, cp.UpdatedAt.IsZero())

	cp, err = checkpoints.LoadCheckpoint(ctx, "backfill", "a/brief.pdf")
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoints are scoped by processor type")

	require.NoError(t, checkpoints.DeleteCheckpoints(ctx, "ingest"))
	cp, err = checkpoints.LoadCheckpoint(ctx, "ingest", "a/brief.pdf")
	require.NoError(t, err)
	assert.Nil(t, cp)
}
