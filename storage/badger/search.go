package badger

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// FindSimilarChunks scores every embedded chunk against vector.
// Vectors are expected to be normalized, so the dot product is the cosine similarity.
func (s *Store) FindSimilarChunks(ctx context.Context, vector []float32, minScore float32, limit int, caseKey *int64) ([]core.ChunkMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []core.ChunkMatch
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scanValues(tx, chunkPrefix, storage.UnmarshalChunk, func(c *core.Chunk) {
			if len(c.Embedding) == 0 {
				return
			}
			if caseKey != nil && (c.CaseKey == nil || *c.CaseKey != *caseKey) {
				return
			}
			if score := dotProduct(vector, c.Embedding); score >= minScore {
				results = append(results, core.ChunkMatch{Chunk: c, Score: score})
			}
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FindPhrases returns phrases containing query, most frequent first.
func (s *Store) FindPhrases(ctx context.Context, query string, caseKey *int64, limit int) ([]core.PhraseMatch, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []core.PhraseMatch
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		cases := make(map[core.ID]*int64)
		caseOf := func(briefID core.ID) (*int64, error) {
			if key, ok := cases[briefID]; ok {
				return key, nil
			}
			b, err := readBrief(tx, briefID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			var key *int64
			if b != nil {
				key = b.CaseKey
			}
			cases[briefID] = key
			return key, nil
		}

		var matched []*core.Phrase
		err := scanValues(tx, phrasePrefix, storage.UnmarshalPhrase, func(p *core.Phrase) {
			if strings.Contains(strings.ToLower(p.Text), query) {
				matched = append(matched, p)
			}
		})
		if err != nil {
			return err
		}

		for _, p := range matched {
			key, err := caseOf(p.BriefID)
			if err != nil {
				return err
			}
			if caseKey != nil && (key == nil || *key != *caseKey) {
				continue
			}
			results = append(results, core.PhraseMatch{Phrase: p, CaseKey: key})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b core.PhraseMatch) int {
		return b.Phrase.Frequency - a.Phrase.Frequency
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
