package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// embeddingTables maps a target to its table and the filter limiting which
// rows are eligible. Failed briefs are never returned.
var embeddingTables = map[storage.EmbeddingTarget]struct {
	table  string
	filter string
	brief  string
}{
	storage.TargetBrief:    {table: "briefs", filter: "t.status <> 'failed'", brief: "t.id"},
	storage.TargetChunk:    {table: "chunks", filter: "TRUE", brief: "t.brief_id"},
	storage.TargetSentence: {table: "sentences", filter: "TRUE", brief: "t.brief_id"},
}

// ListMissingEmbeddings returns rows of the target kind with no embedding,
// ordered by ID and starting after the given cursor.
func (s *Store) ListMissingEmbeddings(ctx context.Context, target storage.EmbeddingTarget, after core.ID, limit int) ([]storage.PendingEmbedding, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	tbl, ok := embeddingTables[target]
	if !ok {
		return nil, storage.ErrUnknownTarget
	}

	textColumn := "t.text"
	if target == storage.TargetBrief {
		textColumn = "t.full_text"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, `+tbl.brief+`, `+textColumn+`
		FROM `+tbl.table+` t
		WHERE t.embedding IS NULL AND `+textColumn+` <> '' AND t.id > $1 AND `+tbl.filter+`
		ORDER BY t.id
		LIMIT $2`, dbID(after), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []storage.PendingEmbedding
	for rows.Next() {
		var id, briefID int64
		var text string
		if err := rows.Scan(&id, &briefID, &text); err != nil {
			return nil, err
		}
		pending = append(pending, storage.PendingEmbedding{ID: fromDBID(id), BriefID: fromDBID(briefID), Text: text})
	}
	return pending, rows.Err()
}

// SetEmbeddings writes embeddings for rows of the target kind in one
// transaction. Unknown IDs update nothing.
func (s *Store) SetEmbeddings(ctx context.Context, target storage.EmbeddingTarget, vectors map[core.ID][]float32) error {
	tbl, ok := embeddingTables[target]
	if !ok {
		return storage.ErrUnknownTarget
	}
	touch := ""
	if target == storage.TargetBrief {
		touch = ", updated_at = now()"
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for id, vector := range vectors {
			batch.Queue(`UPDATE `+tbl.table+` SET embedding = $2`+touch+` WHERE id = $1`, dbID(id), vec(vector))
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// PromotePartialBriefs marks partial briefs completed once the brief and all
// of its chunks and sentences carry embeddings.
func (s *Store) PromotePartialBriefs(ctx context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE briefs b SET status = 'completed', status_note = '', updated_at = now()
		WHERE b.status = 'partial'
			AND b.embedding IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM chunks c WHERE c.brief_id = b.id AND c.embedding IS NULL)
			AND NOT EXISTS (SELECT 1 FROM sentences st WHERE st.brief_id = b.id AND st.embedding IS NULL)`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
