package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/poiesic/brieflink/caseid"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

const caseColumns = `case_key, file_id, normalized_id, title, court,
	winner_legal_role, winner_personal_role, appeal_outcome, created_at`

// UpsertCases inserts cases or replaces existing ones with the same Key.
// An existing CreatedAt is kept unless the case carries its own.
func (s *Store) UpsertCases(ctx context.Context, cases ...*core.Case) error {
	for _, c := range cases {
		if err := core.ValidateCase(c); err != nil {
			return err
		}
		c.NormalizedID = caseid.Normalize(c.FileID)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, c := range cases {
			var createdAt *time.Time
			if !c.CreatedAt.IsZero() {
				createdAt = &c.CreatedAt
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO cases (`+caseColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::timestamptz, now()))
				ON CONFLICT (case_key) DO UPDATE SET
					file_id = EXCLUDED.file_id,
					normalized_id = EXCLUDED.normalized_id,
					title = EXCLUDED.title,
					court = EXCLUDED.court,
					winner_legal_role = EXCLUDED.winner_legal_role,
					winner_personal_role = EXCLUDED.winner_personal_role,
					appeal_outcome = EXCLUDED.appeal_outcome,
					created_at = COALESCE($9::timestamptz, cases.created_at)
				RETURNING created_at`,
				c.Key, c.FileID, c.NormalizedID, c.Title, c.Court,
				c.WinnerLegalRole, c.WinnerPersonalRole, c.AppealOutcome, createdAt,
			).Scan(&c.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCase retrieves a case by its raw numeric key.
func (s *Store) GetCase(ctx context.Context, key int64) (*core.Case, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE case_key = $1`, key)
	return scanCase(row)
}

// FindCaseByNormalizedID retrieves the case whose normalized id equals id.
// When several cases share a normalized id the lowest key wins.
func (s *Store) FindCaseByNormalizedID(ctx context.Context, id string) (*core.Case, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	normalized := caseid.Normalize(id)
	if normalized == "" {
		return nil, storage.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE normalized_id = $1
		ORDER BY case_key
		LIMIT 1`, normalized)
	return scanCase(row)
}

// FindCasesBySuffix returns cases whose normalized id ends with suffix.
func (s *Store) FindCasesBySuffix(ctx context.Context, suffix string, limit int) ([]*core.Case, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	normalized := caseid.Normalize(suffix)
	if normalized == "" || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE reverse(normalized_id) LIKE reverse($1::text) || '%'
		ORDER BY case_key
		LIMIT $2`, normalized, limit)
	if err != nil {
		return nil, err
	}
	return collectCases(rows)
}

// ListCases returns every case ordered by key.
func (s *Store) ListCases(ctx context.Context) ([]*core.Case, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY case_key`)
	if err != nil {
		return nil, err
	}
	return collectCases(rows)
}

func scanCase(row pgx.Row) (*core.Case, error) {
	var c core.Case
	err := row.Scan(&c.Key, &c.FileID, &c.NormalizedID, &c.Title, &c.Court,
		&c.WinnerLegalRole, &c.WinnerPersonalRole, &c.AppealOutcome, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCases(rows pgx.Rows) ([]*core.Case, error) {
	defer rows.Close()
	var out []*core.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
