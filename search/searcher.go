package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

const (
	// DefaultMinScore is the similarity floor for semantic hits.
	DefaultMinScore float32 = 0.60

	// VerbatimBoost is added to the score of a chunk containing every query word.
	VerbatimBoost float32 = 0.3

	// candidateFactor widens the semantic fetch so the verbatim boost can
	// promote hits that ranked just below the cut.
	candidateFactor = 3
)

// Result is a ranked chunk.
type Result struct {
	Chunk      *core.Chunk
	Similarity float32 // raw vector similarity
	Score      float32 // similarity plus any verbatim boost
	Verbatim   bool
}

// Searcher provides semantic chunk search and phrase search over ingested briefs.
type Searcher struct {
	repo     storage.SearchRepository
	embedder ai.Embedder
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore sets the similarity floor. Vectors are normalized, so the
// score must lie in [-1, 1].
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score %v outside [-1, 1]", score)
		}
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repo storage.SearchRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repo:     repo,
		embedder: provider.Embedder(),
		minScore: DefaultMinScore,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// FindChunks returns up to maxHits chunks similar to query, best first.
// A non-nil caseKey restricts the search to that case.
func (s *Searcher) FindChunks(ctx context.Context, query string, maxHits int, caseKey *int64) ([]*Result, error) {
	return s.FindChunksWithMonitor(ctx, query, maxHits, caseKey, nil)
}

// FindChunksWithMonitor is FindChunks with callbacks at each stage of the search.
func (s *Searcher) FindChunksWithMonitor(ctx context.Context, query string, maxHits int, caseKey *int64, monitor SearchMonitor) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, fmt.Errorf("%w: maxHits must be positive", storage.ErrInvalidQuery)
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.repo.FindSimilarChunks(ctx, ai.NormalizeVector(embedding), s.minScore, maxHits*candidateFactor, caseKey)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	words := tokenizeAndFilter(query)
	results := make([]*Result, 0, len(matches))
	for _, m := range matches {
		r := &Result{Chunk: m.Chunk, Similarity: m.Score, Score: m.Score}
		if containsAllWords(m.Chunk.Text, words) {
			r.Verbatim = true
			r.Score += VerbatimBoost
			monitor.VerbatimHit(m.Chunk)
		}
		results = append(results, r)
	}

	// Stable, so equal scores keep the store's order.
	slices.SortStableFunc(results, func(a, b *Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("chunk search complete", "query", query, "candidates", len(matches), "results", len(results))
	return results, nil
}

// FindPhrases returns up to limit phrases containing query, case-insensitively,
// most frequent first. A non-nil caseKey restricts the search to that case.
func (s *Searcher) FindPhrases(ctx context.Context, query string, caseKey *int64, limit int) ([]core.PhraseMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	matches, err := s.repo.FindPhrases(ctx, query, caseKey, limit)
	if err != nil {
		s.logger.Error("error querying phrases", "query", query, "err", err)
		return nil, err
	}
	if matches == nil {
		matches = []core.PhraseMatch{}
	}
	return matches, nil
}
