package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

const briefColumns = `id, source_file, case_key, link_strategy, filename_match,
	folder_case_id, filename_case_id, normalized_case_id, party, role,
	sequence_token, sequence, responds_to, year, page_count, word_count,
	summary, issues, full_text, source_path, content_id, status, status_note,
	winner_legal_role, winner_personal_role, appeal_outcome, embedding,
	created_at, updated_at`

var childTables = []string{"words", "citations", "arguments", "phrases", "sentences", "chunks"}

// SaveDocument upserts the brief by SourceFile and replaces its artifacts.
func (s *Store) SaveDocument(ctx context.Context, doc *core.Document) (*core.Brief, error) {
	storage.AssignIDs(doc)
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	b := &doc.Brief

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		issues := b.Issues
		if issues == nil {
			issues = []string{}
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO briefs (`+briefColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, now(), now())
			ON CONFLICT (source_file) DO UPDATE SET
				case_key = EXCLUDED.case_key,
				link_strategy = EXCLUDED.link_strategy,
				filename_match = EXCLUDED.filename_match,
				folder_case_id = EXCLUDED.folder_case_id,
				filename_case_id = EXCLUDED.filename_case_id,
				normalized_case_id = EXCLUDED.normalized_case_id,
				party = EXCLUDED.party,
				role = EXCLUDED.role,
				sequence_token = EXCLUDED.sequence_token,
				sequence = EXCLUDED.sequence,
				responds_to = EXCLUDED.responds_to,
				year = EXCLUDED.year,
				page_count = EXCLUDED.page_count,
				word_count = EXCLUDED.word_count,
				summary = EXCLUDED.summary,
				issues = EXCLUDED.issues,
				full_text = EXCLUDED.full_text,
				source_path = EXCLUDED.source_path,
				content_id = EXCLUDED.content_id,
				status = EXCLUDED.status,
				status_note = EXCLUDED.status_note,
				winner_legal_role = EXCLUDED.winner_legal_role,
				winner_personal_role = EXCLUDED.winner_personal_role,
				appeal_outcome = EXCLUDED.appeal_outcome,
				embedding = EXCLUDED.embedding,
				updated_at = now()
			RETURNING created_at, updated_at`,
			dbID(b.ID), b.SourceFile, b.CaseKey, string(b.LinkStrategy), string(b.FilenameMatch),
			b.FolderCaseID, b.FilenameCaseID, b.NormalizedCaseID, b.Party.String(), b.Role.String(),
			b.SequenceToken, b.Sequence, dbIDPtr(b.RespondsTo), b.Year, b.PageCount, b.WordCount,
			b.Summary, issues, b.FullText, b.SourcePath, dbID(b.ContentID), string(b.Status), b.StatusNote,
			b.WinnerLegalRole, b.WinnerPersonalRole, b.AppealOutcome, vec(b.Embedding),
		).Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return err
		}

		for _, table := range childTables {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE brief_id = $1`, dbID(b.ID)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return writeChildren(ctx, tx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", b.SourceFile, err)
	}
	return b, nil
}

func writeChildren(ctx context.Context, tx pgx.Tx, doc *core.Document) error {
	briefID := dbID(doc.Brief.ID)

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"chunks"},
		[]string{"id", "brief_id", "case_key", "chunk_order", "start_pos", "end_pos", "text", "section", "word_count", "char_count", "embedding"},
		pgx.CopyFromSlice(len(doc.Chunks), func(i int) ([]any, error) {
			c := &doc.Chunks[i]
			return []any{dbID(c.ID), briefID, c.CaseKey, c.Order, c.Start, c.End, c.Text, c.Section, c.WordCount, c.CharCount, vec(c.Embedding)}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy chunks: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"sentences"},
		[]string{"id", "brief_id", "chunk_id", "chunk_order", "sentence_order", "global_order", "text", "word_count", "embedding"},
		pgx.CopyFromSlice(len(doc.Sentences), func(i int) ([]any, error) {
			st := &doc.Sentences[i]
			return []any{dbID(st.ID), briefID, dbID(st.ChunkID), st.ChunkOrder, st.Order, st.GlobalOrder, st.Text, st.WordCount, vec(st.Embedding)}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy sentences: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"phrases"},
		[]string{"id", "brief_id", "ordinal", "text", "length", "frequency", "example_chunk_order", "example_sentence"},
		pgx.CopyFromSlice(len(doc.Phrases), func(i int) ([]any, error) {
			p := &doc.Phrases[i]
			return []any{dbID(p.ID), briefID, i, p.Text, p.Length, p.Frequency, p.ExampleChunkOrder, p.ExampleSentence}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy phrases: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"words"},
		[]string{"brief_id", "ordinal", "word", "chunk_order", "position"},
		pgx.CopyFromSlice(len(doc.Words), func(i int) ([]any, error) {
			w := &doc.Words[i]
			return []any{briefID, i, w.Word, w.ChunkOrder, w.Position}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy words: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range doc.Arguments {
		a := &doc.Arguments[i]
		batch.Queue(`
			INSERT INTO arguments (id, brief_id, parent_id, idx, parent_idx, level, marker, path, title, position, line)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			dbID(a.ID), briefID, dbIDPtr(a.ParentID), a.Index, a.ParentIndex, a.Level, a.Marker, a.Path, a.Title, a.Position, a.Line)
	}
	for i := range doc.Citations {
		c := &doc.Citations[i]
		batch.Queue(`
			INSERT INTO citations (id, brief_id, ordinal, text, kind, high_confidence, pages, reporter, volume, page, occurrences, text_offset)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			dbID(c.ID), briefID, i, c.Text, string(c.Kind), c.HighConfidence, c.Pages, c.Reporter, c.Volume, c.Page, c.Occurrences, c.Offset)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert outline and citations: %w", err)
	}
	return nil
}

// GetBrief retrieves a brief by ID.
func (s *Store) GetBrief(ctx context.Context, id core.ID) (*core.Brief, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return scanBrief(s.pool.QueryRow(ctx, `SELECT `+briefColumns+` FROM briefs WHERE id = $1`, dbID(id)))
}

// GetBriefBySourceFile retrieves a brief by its natural key.
func (s *Store) GetBriefBySourceFile(ctx context.Context, sourceFile string) (*core.Brief, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return scanBrief(s.pool.QueryRow(ctx, `SELECT `+briefColumns+` FROM briefs WHERE source_file = $1`, sourceFile))
}

// ListBriefsByCase returns the briefs linked to a case ordered by CreatedAt, then ID.
func (s *Store) ListBriefsByCase(ctx context.Context, caseKey int64) ([]*core.Brief, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+briefColumns+` FROM briefs
		WHERE case_key = $1
		ORDER BY created_at, id`, caseKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Brief
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListLinkedCaseKeys returns the distinct case keys that have briefs.
func (s *Store) ListLinkedCaseKeys(ctx context.Context) ([]int64, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT case_key FROM briefs
		WHERE case_key IS NOT NULL
		ORDER BY case_key`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ClaimBackReference sets RespondsTo and Sequence only while RespondsTo is
// null. The conditional update is atomic, so concurrent chain passes can
// race and exactly one wins.
func (s *Store) ClaimBackReference(ctx context.Context, briefID, parentID core.ID, sequence int) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE briefs SET responds_to = $2, sequence = $3, updated_at = now()
		WHERE id = $1 AND responds_to IS NULL`,
		dbID(briefID), dbID(parentID), sequence)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM briefs WHERE id = $1)`, dbID(briefID)).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}

// GetDocument loads a brief together with its artifacts.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	b, err := s.GetBrief(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := &core.Document{Brief: *b}
	key := dbID(id)

	if doc.Chunks, err = queryAll(ctx, s, `
		SELECT id, case_key, chunk_order, start_pos, end_pos, text, section, word_count, char_count, embedding
		FROM chunks WHERE brief_id = $1 ORDER BY chunk_order`, key, func(row pgx.Row) (core.Chunk, error) {
		var c core.Chunk
		var rid int64
		var emb *pgvector.Vector
		err := row.Scan(&rid, &c.CaseKey, &c.Order, &c.Start, &c.End, &c.Text, &c.Section, &c.WordCount, &c.CharCount, &emb)
		c.ID, c.BriefID, c.Embedding = fromDBID(rid), id, fromVec(emb)
		return c, err
	}); err != nil {
		return nil, err
	}

	if doc.Sentences, err = queryAll(ctx, s, `
		SELECT id, chunk_id, chunk_order, sentence_order, global_order, text, word_count, embedding
		FROM sentences WHERE brief_id = $1 ORDER BY global_order`, key, func(row pgx.Row) (core.Sentence, error) {
		var st core.Sentence
		var rid, chunkID int64
		var emb *pgvector.Vector
		err := row.Scan(&rid, &chunkID, &st.ChunkOrder, &st.Order, &st.GlobalOrder, &st.Text, &st.WordCount, &emb)
		st.ID, st.BriefID, st.ChunkID, st.Embedding = fromDBID(rid), id, fromDBID(chunkID), fromVec(emb)
		return st, err
	}); err != nil {
		return nil, err
	}

	if doc.Phrases, err = queryAll(ctx, s, `
		SELECT id, text, length, frequency, example_chunk_order, example_sentence
		FROM phrases WHERE brief_id = $1 ORDER BY ordinal`, key, scanPhrase(id)); err != nil {
		return nil, err
	}

	if doc.Arguments, err = queryAll(ctx, s, `
		SELECT id, parent_id, idx, parent_idx, level, marker, path, title, position, line
		FROM arguments WHERE brief_id = $1 ORDER BY idx`, key, func(row pgx.Row) (core.Argument, error) {
		var a core.Argument
		var rid int64
		var parent *int64
		err := row.Scan(&rid, &parent, &a.Index, &a.ParentIndex, &a.Level, &a.Marker, &a.Path, &a.Title, &a.Position, &a.Line)
		a.ID, a.BriefID, a.ParentID = fromDBID(rid), id, fromDBIDPtr(parent)
		return a, err
	}); err != nil {
		return nil, err
	}

	if doc.Citations, err = queryAll(ctx, s, `
		SELECT id, text, kind, high_confidence, pages, reporter, volume, page, occurrences, text_offset
		FROM citations WHERE brief_id = $1 ORDER BY ordinal`, key, func(row pgx.Row) (core.Citation, error) {
		var c core.Citation
		var rid int64
		var kind string
		err := row.Scan(&rid, &c.Text, &kind, &c.HighConfidence, &c.Pages, &c.Reporter, &c.Volume, &c.Page, &c.Occurrences, &c.Offset)
		c.ID, c.BriefID, c.Kind = fromDBID(rid), id, core.CitationKind(kind)
		return c, err
	}); err != nil {
		return nil, err
	}

	if doc.Words, err = queryAll(ctx, s, `
		SELECT word, chunk_order, position
		FROM words WHERE brief_id = $1 ORDER BY ordinal`, key, func(row pgx.Row) (core.WordOccurrence, error) {
		var w core.WordOccurrence
		err := row.Scan(&w.Word, &w.ChunkOrder, &w.Position)
		return w, err
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

func scanPhrase(briefID core.ID) func(pgx.Row) (core.Phrase, error) {
	return func(row pgx.Row) (core.Phrase, error) {
		var p core.Phrase
		var rid int64
		err := row.Scan(&rid, &p.Text, &p.Length, &p.Frequency, &p.ExampleChunkOrder, &p.ExampleSentence)
		p.ID, p.BriefID = fromDBID(rid), briefID
		return p, err
	}
}

// queryAll runs a single-argument query and scans every row with scan.
func queryAll[T any](ctx context.Context, s *Store, sql string, arg any, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := s.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanBrief(row pgx.Row) (*core.Brief, error) {
	var b core.Brief
	var id, contentID int64
	var respondsTo *int64
	var linkStrategy, filenameMatch, party, role, status string
	var emb *pgvector.Vector

	err := row.Scan(&id, &b.SourceFile, &b.CaseKey, &linkStrategy, &filenameMatch,
		&b.FolderCaseID, &b.FilenameCaseID, &b.NormalizedCaseID, &party, &role,
		&b.SequenceToken, &b.Sequence, &respondsTo, &b.Year, &b.PageCount, &b.WordCount,
		&b.Summary, &b.Issues, &b.FullText, &b.SourcePath, &contentID, &status, &b.StatusNote,
		&b.WinnerLegalRole, &b.WinnerPersonalRole, &b.AppealOutcome, &emb,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.ID = fromDBID(id)
	b.ContentID = fromDBID(contentID)
	b.RespondsTo = fromDBIDPtr(respondsTo)
	b.LinkStrategy = core.LinkStrategy(linkStrategy)
	b.FilenameMatch = core.FilenameMatch(filenameMatch)
	b.Party = core.ParseParty(party)
	b.Role = core.ParseBriefRole(role)
	b.Status = core.ProcessingStatus(status)
	b.Embedding = fromVec(emb)
	if len(b.Issues) == 0 {
		b.Issues = nil
	}
	return &b, nil
}
