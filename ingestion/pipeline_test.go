package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/ai/mock"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/extract"
	"github.com/poiesic/brieflink/link"
	"github.com/poiesic/brieflink/retry"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage"
	"github.com/poiesic/brieflink/storage/badger"
)

const (
	replyPath   = "2024-briefs/83895-4-I/762508_appellants_reply_brief_934.pdf"
	openingPath = "2024-briefs/83895-4-I/700001_appellants_opening_brief.pdf"
	orphanPath  = "2024-briefs/11111-1-I/respondents_brief.pdf"
)

const briefText = `INTRODUCTION
The trial court erred when it admitted the hearsay testimony. See State v. Johnson, 123 Wn.2d 456 (1994).

ARGUMENT
I. THE TRIAL COURT ERRED
The trial court abused its discretion under RCW 9A.36.021 when it denied the motion.
`

// memSource serves files from memory.
type memSource struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ source.Source = (*memSource)(nil)

func newMemSource(files map[string]string) *memSource {
	s := &memSource{files: make(map[string][]byte)}
	for path, text := range files {
		s.files[path] = []byte(text)
	}
	return s
}

func (s *memSource) set(path, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = []byte(text)
}

func (s *memSource) List(ctx context.Context) ([]source.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var files []source.File
	for path, data := range s.files {
		files = append(files, source.File{Path: path, Size: int64(len(data))})
	}
	slices.SortFunc(files, func(a, b source.File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

func (s *memSource) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

func (s *memSource) Location(path string) string {
	return "mem://" + path
}

// textExtractor treats file bytes as text. Content starting with "BAD" is unreadable.
type textExtractor struct{}

func (textExtractor) Extract(ctx context.Context, data []byte) (extract.Text, error) {
	if strings.HasPrefix(string(data), "BAD") {
		return extract.Text{}, fmt.Errorf("%w: not a pdf", extract.ErrUnreadable)
	}
	return extract.Text{Content: string(data), Pages: 2}, nil
}

type testEnv struct {
	store       storage.Store
	checkpoints storage.CheckpointRepository
	source      *memSource
	embedder    *mock.MockEmbedder
	analyzer    *mock.MockBriefAnalyzer
}

func setupTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()
	store, checkpoints, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})

	err = store.UpsertCases(context.Background(), &core.Case{
		Key:             934,
		FileID:          "83895-4-I",
		Title:           "State v. Johnson",
		WinnerLegalRole: "Appellant",
		AppealOutcome:   "Reversed",
	})
	require.NoError(t, err)

	return &testEnv{
		store:       store,
		checkpoints: checkpoints,
		source:      newMemSource(files),
		embedder:    mock.NewMockEmbedder(),
		analyzer:    mock.NewMockBriefAnalyzer(),
	}
}

func (env *testEnv) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	provider := mock.NewMockProviderWithServices(env.embedder, env.analyzer)
	opts = append([]Option{
		WithExtractor(textExtractor{}),
		WithRetryPolicy(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}),
		WithPoolSize(2),
	}, opts...)
	p, err := NewPipeline(env.store, env.checkpoints, env.source, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	env := setupTestEnv(t, nil)
	provider := mock.NewMockProvider()

	tests := []struct {
		name    string
		build   func() (*Pipeline, error)
		wantErr error
	}{
		{"store", func() (*Pipeline, error) { return NewPipeline(nil, env.checkpoints, env.source, provider) }, ErrStoreRequired},
		{"checkpoints", func() (*Pipeline, error) { return NewPipeline(env.store, nil, env.source, provider) }, ErrCheckpointRepositoryRequired},
		{"source", func() (*Pipeline, error) { return NewPipeline(env.store, env.checkpoints, nil, provider) }, ErrSourceRequired},
		{"provider", func() (*Pipeline, error) { return NewPipeline(env.store, env.checkpoints, env.source, nil) }, ErrAIProviderRequired},
		{"retry policy", func() (*Pipeline, error) {
			return NewPipeline(env.store, env.checkpoints, env.source, provider, WithRetryPolicy(retry.Policy{}))
		}, retry.ErrInvalidMaxAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, p)
		})
	}
}

func TestIngestFile_LinksAndPersists(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	p := env.pipeline(t)
	ctx := context.Background()

	res, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Empty(t, res.Stage)
	assert.IsType(t, link.LinkedByBoth{}, res.Link)
	require.NotNil(t, res.CaseKey)
	assert.Equal(t, int64(934), *res.CaseKey)
	assert.Positive(t, res.Chunks)
	assert.Positive(t, res.Sentences)
	assert.Positive(t, res.Citations)
	assert.Equal(t, 2, res.Pages)

	doc, err := env.store.GetDocument(ctx, res.BriefID)
	require.NoError(t, err)
	b := doc.Brief
	assert.Equal(t, replyPath, b.SourceFile)
	assert.Equal(t, "mem://"+replyPath, b.SourcePath)
	assert.Equal(t, core.StatusCompleted, b.Status)
	assert.Equal(t, core.PartyAppellant, b.Party)
	assert.Equal(t, core.RoleReply, b.Role)
	assert.Equal(t, core.LinkBoth, b.LinkStrategy)
	assert.Equal(t, core.FilenameMatchKey, b.FilenameMatch)
	assert.Equal(t, "838954", b.NormalizedCaseID)
	assert.Equal(t, "Appellant", b.WinnerLegalRole)
	assert.Equal(t, "Reversed", b.AppealOutcome)
	assert.Equal(t, 1, b.Sequence)
	assert.Nil(t, b.RespondsTo)
	assert.Equal(t, 2024, b.Year)
	assert.Equal(t, core.IDFromContent([]byte(briefText)), b.ContentID)
	assert.Equal(t, "INTRODUCTION", b.Summary)
	assert.NotEmpty(t, b.Embedding)
	for _, c := range doc.Chunks {
		assert.NotEmpty(t, c.Embedding, "chunk %d", c.Order)
	}
	for _, s := range doc.Sentences {
		assert.NotEmpty(t, s.Embedding, "sentence %d", s.GlobalOrder)
	}

	cp, err := env.checkpoints.LoadCheckpoint(ctx, ProcessorType, replyPath)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, b.ContentID, cp.ContentID)
	assert.Equal(t, core.StatusCompleted, cp.Status)
}

func TestIngestFile_Unlinked(t *testing.T) {
	env := setupTestEnv(t, map[string]string{orphanPath: briefText})
	p := env.pipeline(t)

	res, err := p.IngestFile(context.Background(), orphanPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, link.Unlinked{}, res.Link)
	assert.False(t, res.Linked())

	b, err := env.store.GetBriefBySourceFile(context.Background(), orphanPath)
	require.NoError(t, err)
	assert.Nil(t, b.CaseKey)
	assert.Equal(t, core.LinkNone, b.LinkStrategy)
}

func TestIngestFile_SkipsUnchangedContent(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	p := env.pipeline(t)
	ctx := context.Background()

	first, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, first.Outcome)
	stored, err := env.store.GetBrief(ctx, first.BriefID)
	require.NoError(t, err)

	second, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second.Outcome)

	env.source.set(replyPath, briefText+"\nThe judgment should be reversed.\n")
	third, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, third.Outcome)
	assert.Equal(t, first.BriefID, third.BriefID)

	updated, err := env.store.GetBrief(ctx, first.BriefID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(updated.CreatedAt), "re-ingest keeps CreatedAt")
	assert.NotEqual(t, stored.ContentID, updated.ContentID)

	forced := env.pipeline(t, WithForce(true))
	fourth, err := forced.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, fourth.Outcome)
}

func TestIngestFile_EmbeddingFailureIsPartial(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	env.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	p := env.pipeline(t)
	ctx := context.Background()

	res, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, StageEmbed, res.Stage)
	assert.Contains(t, res.Note, "embedding service down")
	assert.Positive(t, res.Chunks, "structure is stored despite the failure")

	doc, err := env.store.GetDocument(ctx, res.BriefID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartial, doc.Brief.Status)
	assert.Empty(t, doc.Brief.Embedding)
	for _, c := range doc.Chunks {
		assert.Empty(t, c.Embedding)
	}

	// 2 attempts each for chunks, sentences and the brief
	assert.Equal(t, 6, env.embedder.CallCount())

	cp, err := env.checkpoints.LoadCheckpoint(ctx, ProcessorType, replyPath)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPartial, cp.Status)
}

func TestIngestFile_DimensionMismatchIsNotRetried(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: expected 16, got 8", ai.ErrDimensionMismatch)
	}
	p := env.pipeline(t)

	res, err := p.IngestFile(context.Background(), replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	// one call each for chunks and sentences, one for the brief
	assert.Equal(t, 3, env.embedder.CallCount())
}

func TestIngestFile_AnalysisFailureUsesFallbackSummary(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	env.analyzer.WithAnalyzeBriefFunc(func(ctx context.Context, text string) (ai.BriefAnalysis, error) {
		return ai.BriefAnalysis{}, errors.New("model unavailable")
	})
	p := env.pipeline(t, WithTextLimits(8000, 12))
	ctx := context.Background()

	res, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, StageAnalyze, res.Stage)

	b, err := env.store.GetBrief(ctx, res.BriefID)
	require.NoError(t, err)
	assert.Equal(t, "INTRODUCTION", b.Summary)
	assert.Empty(t, b.Issues)
	assert.NotEmpty(t, b.Embedding)
	assert.Contains(t, b.StatusNote, "model unavailable")
}

func TestIngestFile_Issues(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	env.analyzer.WithAnalyzeBriefFunc(func(ctx context.Context, text string) (ai.BriefAnalysis, error) {
		return ai.BriefAnalysis{
			Summary: "Appellant argues the hearsay ruling was error.",
			Issues:  []string{"Evidence: hearsay admitted over objection"},
		}, nil
	})
	p := env.pipeline(t)
	ctx := context.Background()

	res, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	b, err := env.store.GetBrief(ctx, res.BriefID)
	require.NoError(t, err)
	assert.Equal(t, "Appellant argues the hearsay ruling was error.", b.Summary)
	assert.Equal(t, []string{"Evidence: hearsay admitted over objection"}, b.Issues)
}

func TestIngestFile_ExtractionFailure(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: "BAD bytes"})
	p := env.pipeline(t)
	ctx := context.Background()

	res, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, StageExtract, res.Stage)
	assert.ErrorIs(t, res.Err, extract.ErrUnreadable)

	b, err := env.store.GetBriefBySourceFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, b.Status)
	assert.NotEmpty(t, b.StatusNote)

	again, err := p.IngestFile(ctx, replyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, again.Outcome, "failed files are never skipped")
}

func TestIngestFile_ReadFailure(t *testing.T) {
	env := setupTestEnv(t, nil)
	p := env.pipeline(t)

	res, err := p.IngestFile(context.Background(), "2024-briefs/83895-4-I/missing.pdf")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, StageRead, res.Stage)
	assert.ErrorIs(t, res.Err, fs.ErrNotExist)
}

func TestIngestBatch_Summary(t *testing.T) {
	env := setupTestEnv(t, map[string]string{
		replyPath:   briefText,
		openingPath: briefText,
		orphanPath:  "BAD bytes",
	})
	p := env.pipeline(t)

	summary, err := p.IngestSource(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, summary.RunID)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 2, summary.Processed())
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Linked)
	assert.Len(t, summary.Results, 3)
	require.Len(t, summary.FailedFiles, 1)
	assert.Equal(t, orphanPath, summary.FailedFiles[0].SourceFile)
	assert.Equal(t, StageExtract, summary.FailedFiles[0].Stage)
	assert.False(t, summary.Finished.Before(summary.Started))

	again, err := p.IngestSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, 1, again.Failed)
	assert.NotEqual(t, summary.RunID, again.RunID)

	briefs, err := env.store.ListBriefsByCase(context.Background(), 934)
	require.NoError(t, err)
	assert.Len(t, briefs, 2)
}

func TestIngestSource_SameFileNameInDifferentCaseFolders(t *testing.T) {
	first := "83895-4-I/opening.pdf"
	second := "11111-1-I/opening.pdf"
	env := setupTestEnv(t, map[string]string{
		first:  briefText,
		second: briefText + "\nThe sentence should be vacated.\n",
	})
	ctx := context.Background()
	require.NoError(t, env.store.UpsertCases(ctx, &core.Case{Key: 111, FileID: "11111-1-I", Title: "State v. Smith"}))
	p := env.pipeline(t)

	summary, err := p.IngestSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Completed)
	require.Len(t, summary.Results, 2)
	assert.NotEqual(t, summary.Results[0].BriefID, summary.Results[1].BriefID)

	for path, key := range map[string]int64{first: 934, second: 111} {
		b, err := env.store.GetBriefBySourceFile(ctx, path)
		require.NoError(t, err, path)
		require.NotNil(t, b.CaseKey, path)
		assert.Equal(t, key, *b.CaseKey, path)

		briefs, err := env.store.ListBriefsByCase(ctx, key)
		require.NoError(t, err)
		assert.Len(t, briefs, 1, "case %d", key)
	}
}

func TestIngestBatch_CancelledContext(t *testing.T) {
	env := setupTestEnv(t, map[string]string{replyPath: briefText})
	p := env.pipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := p.IngestBatch(ctx, []string{replyPath, openingPath})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, env.analyzer.CallCount())
}

func TestPipeline_Released(t *testing.T) {
	env := setupTestEnv(t, nil)
	p := env.pipeline(t)
	p.Release()
	p.Release()

	_, err := p.IngestFile(context.Background(), replyPath)
	assert.ErrorIs(t, err, ErrPipelineReleased)
	_, err = p.IngestBatch(context.Background(), []string{replyPath})
	assert.ErrorIs(t, err, ErrPipelineReleased)
}

func TestSummary_Add(t *testing.T) {
	s := newSummary()
	key := int64(1)
	s.add(Result{Outcome: OutcomeCompleted, CaseKey: &key})
	s.add(Result{Outcome: OutcomePartial})
	s.add(Result{Outcome: OutcomeSkipped, CaseKey: &key})
	s.add(Result{SourceFile: "x.pdf", Outcome: OutcomeFailed, Stage: StagePersist, Err: errors.New("boom")})

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Processed())
	assert.Equal(t, 1, s.Linked)
	assert.Equal(t, []FailedFile{{SourceFile: "x.pdf", Stage: StagePersist, Error: "boom"}}, s.FailedFiles)
}
