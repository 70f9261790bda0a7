package badger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/brieflink/caseid"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// UpsertCases inserts cases or replaces existing ones with the same Key.
func (s *Store) UpsertCases(ctx context.Context, cases ...*core.Case) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, c := range cases {
			if err := core.ValidateCase(c); err != nil {
				return err
			}
			c.NormalizedID = caseid.Normalize(c.FileID)

			old, err := readCase(tx, c.Key)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if old != nil {
				if err := tx.Delete(makeCaseNormalizedKey(old.NormalizedID, old.Key)); err != nil {
					return err
				}
				if c.CreatedAt.IsZero() {
					c.CreatedAt = old.CreatedAt
				}
			}
			if c.CreatedAt.IsZero() {
				c.CreatedAt = time.Now().UTC()
			}

			if err := tx.Set(makeCaseKey(c.Key), storage.MarshalCase(c)); err != nil {
				return err
			}
			if err := tx.Set(makeCaseNormalizedKey(c.NormalizedID, c.Key), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetCase retrieves a case by its raw numeric key.
func (s *Store) GetCase(ctx context.Context, key int64) (*core.Case, error) {
	var result *core.Case
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCase(tx, key)
		return err
	}, false)
	return result, err
}

// FindCaseByNormalizedID retrieves the case whose normalized id equals id.
// When several cases share a normalized id the lowest key wins.
func (s *Store) FindCaseByNormalizedID(ctx context.Context, id string) (*core.Case, error) {
	normalized := caseid.Normalize(id)
	if normalized == "" {
		return nil, storage.ErrNotFound
	}

	var result *core.Case
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialCaseNormalizedKey(normalized)
		key, found := int64(0), false
		err := scanPrefix(tx, prefix, true, func(item *badger.Item) error {
			if !found {
				key, found = readInt64(item.Key()[len(prefix):]), true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}
		result, err = readCase(tx, key)
		return err
	}, false)
	return result, err
}

// FindCasesBySuffix returns cases whose normalized id ends with suffix.
func (s *Store) FindCasesBySuffix(ctx context.Context, suffix string, limit int) ([]*core.Case, error) {
	normalized := caseid.Normalize(suffix)
	if normalized == "" || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Case
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var keys []int64
		err := scanPrefix(tx, []byte(caseNormalizedPrefix), true, func(item *badger.Item) error {
			k := item.Key()
			if len(k) < len(caseNormalizedPrefix)+9 {
				return nil
			}
			id := string(k[len(caseNormalizedPrefix) : len(k)-9])
			if strings.HasSuffix(id, normalized) {
				keys = append(keys, readInt64(k[len(k)-8:]))
			}
			return nil
		})
		if err != nil {
			return err
		}

		slices.Sort(keys)
		for _, key := range keys {
			if len(results) >= limit {
				break
			}
			c, err := readCase(tx, key)
			if err != nil {
				return err
			}
			results = append(results, c)
		}
		return nil
	}, false)
	return results, err
}

// ListCases returns every case ordered by key.
func (s *Store) ListCases(ctx context.Context) ([]*core.Case, error) {
	var results []*core.Case
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(casePrefix), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				c, err := storage.UnmarshalCase(val)
				if err != nil {
					return err
				}
				results = append(results, c)
				return nil
			})
		})
	}, false)
	return results, err
}

// readCase reads a case within an existing transaction.
// Returns storage.ErrNotFound if the case doesn't exist.
func readCase(tx *badger.Txn, key int64) (*core.Case, error) {
	item, err := tx.Get(makeCaseKey(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var c *core.Case
	err = item.Value(func(val []byte) error {
		var err error
		c, err = storage.UnmarshalCase(val)
		return err
	})
	return c, err
}
