package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// FindSimilarChunks ranks embedded chunks by inner product with vector.
// pgvector's <#> operator yields the negated inner product.
func (s *Store) FindSimilarChunks(ctx context.Context, vector []float32, minScore float32, limit int, caseKey *int64) ([]core.ChunkMatch, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, brief_id, case_key, chunk_order, start_pos, end_pos, text, section,
			word_count, char_count, embedding, -(embedding <#> $1) AS score
		FROM chunks
		WHERE embedding IS NOT NULL
			AND vector_dims(embedding) = vector_dims($1)
			AND ($2::bigint IS NULL OR case_key = $2)
			AND -(embedding <#> $1) >= $3
		ORDER BY embedding <#> $1
		LIMIT $4`, pgvector.NewVector(vector), caseKey, minScore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []core.ChunkMatch
	for rows.Next() {
		var c core.Chunk
		var id, briefID int64
		var emb *pgvector.Vector
		var score float64
		err := rows.Scan(&id, &briefID, &c.CaseKey, &c.Order, &c.Start, &c.End, &c.Text, &c.Section,
			&c.WordCount, &c.CharCount, &emb, &score)
		if err != nil {
			return nil, err
		}
		c.ID, c.BriefID, c.Embedding = fromDBID(id), fromDBID(briefID), fromVec(emb)
		results = append(results, core.ChunkMatch{Chunk: &c, Score: float32(score)})
	}
	return results, rows.Err()
}

// FindPhrases returns phrases containing query case-insensitively, most
// frequent first.
func (s *Store) FindPhrases(ctx context.Context, query string, caseKey *int64, limit int) ([]core.PhraseMatch, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.brief_id, p.text, p.length, p.frequency, p.example_chunk_order, p.example_sentence, b.case_key
		FROM phrases p
		JOIN briefs b ON b.id = p.brief_id
		WHERE p.text ILIKE $1 ESCAPE '\'
			AND ($2::bigint IS NULL OR b.case_key = $2)
		ORDER BY p.frequency DESC, p.brief_id, p.ordinal
		LIMIT $3`, likeContains(query), caseKey, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.PhraseMatch, error) {
		var p core.Phrase
		var id, briefID int64
		var key *int64
		err := row.Scan(&id, &briefID, &p.Text, &p.Length, &p.Frequency, &p.ExampleChunkOrder, &p.ExampleSentence, &key)
		p.ID, p.BriefID = fromDBID(id), fromDBID(briefID)
		return core.PhraseMatch{Phrase: &p, CaseKey: key}, err
	})
}
