package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

var childPrefixes = []string{chunkPrefix, sentencePrefix, phrasePrefix, argumentPrefix, citationPrefix, wordPrefix}

// SaveDocument upserts the brief by SourceFile and replaces its artifacts.
func (s *Store) SaveDocument(ctx context.Context, doc *core.Document) (*core.Brief, error) {
	storage.AssignIDs(doc)
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	b := &doc.Brief

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readBrief(tx, b.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		b.CreatedAt, b.UpdatedAt = now, now
		if old != nil {
			b.CreatedAt = old.CreatedAt
			if old.CaseKey != nil {
				if err := tx.Delete(makeBriefCaseKey(*old.CaseKey, old.ID)); err != nil {
					return err
				}
			}
			if err := deleteChildren(tx, old.ID); err != nil {
				return err
			}
		}

		if err := tx.Set(makeBriefKey(b.ID), storage.MarshalBrief(b)); err != nil {
			return err
		}
		if err := tx.Set(makeBriefSourceKey(b.SourceFile), storage.MarshalID(b.ID)); err != nil {
			return err
		}
		if b.CaseKey != nil {
			if err := tx.Set(makeBriefCaseKey(*b.CaseKey, b.ID), nil); err != nil {
				return err
			}
		}
		if err := writeChildren(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", b.SourceFile, err)
	}
	return b, nil
}

func writeChildren(tx *badger.Txn, doc *core.Document) error {
	id := doc.Brief.ID
	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		key := makeChildKey(chunkPrefix, id, c.Order)
		if err := setRow(tx, key, storage.MarshalChunk(c), storage.TargetChunk, c.ID); err != nil {
			return err
		}
	}
	for i := range doc.Sentences {
		st := &doc.Sentences[i]
		key := makeChildKey(sentencePrefix, id, st.GlobalOrder)
		if err := setRow(tx, key, storage.MarshalSentence(st), storage.TargetSentence, st.ID); err != nil {
			return err
		}
	}
	for i := range doc.Phrases {
		if err := tx.Set(makeChildKey(phrasePrefix, id, i), storage.MarshalPhrase(&doc.Phrases[i])); err != nil {
			return err
		}
	}
	for i := range doc.Arguments {
		if err := tx.Set(makeChildKey(argumentPrefix, id, i), storage.MarshalArgument(&doc.Arguments[i])); err != nil {
			return err
		}
	}
	for i := range doc.Citations {
		if err := tx.Set(makeChildKey(citationPrefix, id, i), storage.MarshalCitation(&doc.Citations[i])); err != nil {
			return err
		}
	}
	for i := range doc.Words {
		if err := tx.Set(makeChildKey(wordPrefix, id, i), storage.MarshalWord(&doc.Words[i])); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes an embedded row and its ID index entry.
func setRow(tx *badger.Txn, key, value []byte, target storage.EmbeddingTarget, id core.ID) error {
	if err := tx.Set(key, value); err != nil {
		return err
	}
	return tx.Set(makeRowIDKey(target, id), key)
}

func deleteChildren(tx *badger.Txn, briefID core.ID) error {
	chunks, err := readChildren(tx, chunkPrefix, briefID, storage.UnmarshalChunk)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if err := tx.Delete(makeRowIDKey(storage.TargetChunk, c.ID)); err != nil {
			return err
		}
	}
	sentences, err := readChildren(tx, sentencePrefix, briefID, storage.UnmarshalSentence)
	if err != nil {
		return err
	}
	for _, st := range sentences {
		if err := tx.Delete(makeRowIDKey(storage.TargetSentence, st.ID)); err != nil {
			return err
		}
	}
	for _, prefix := range childPrefixes {
		if err := deletePrefix(tx, makePartialChildKey(prefix, briefID)); err != nil {
			return err
		}
	}
	return nil
}

// readChildren decodes every artifact of one kind for a brief, in key order.
func readChildren[T any](tx *badger.Txn, prefix string, briefID core.ID, decode func([]byte) (*T, error)) ([]*T, error) {
	var out []*T
	err := scanPrefix(tx, makePartialChildKey(prefix, briefID), false, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			v, err := decode(val)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
	})
	return out, err
}

// GetBrief retrieves a brief by ID.
func (s *Store) GetBrief(ctx context.Context, id core.ID) (*core.Brief, error) {
	var result *core.Brief
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readBrief(tx, id)
		return err
	}, false)
	return result, err
}

// GetBriefBySourceFile retrieves a brief by its natural key.
func (s *Store) GetBriefBySourceFile(ctx context.Context, sourceFile string) (*core.Brief, error) {
	var result *core.Brief
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBriefSourceKey(sourceFile))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		var id core.ID
		if err := item.Value(func(val []byte) error {
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}
		result, err = readBrief(tx, id)
		return err
	}, false)
	return result, err
}

// ListBriefsByCase returns the briefs linked to a case ordered by CreatedAt, then ID.
func (s *Store) ListBriefsByCase(ctx context.Context, caseKey int64) ([]*core.Brief, error) {
	var results []*core.Brief
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialBriefCaseKey(caseKey)
		var ids []core.ID
		err := scanPrefix(tx, prefix, true, func(item *badger.Item) error {
			ids = append(ids, core.ID(readUint64(item.Key()[len(prefix):])))
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			b, err := readBrief(tx, id)
			if err != nil {
				return err
			}
			results = append(results, b)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Brief) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return results, nil
}

// ListLinkedCaseKeys returns the distinct case keys that have briefs.
func (s *Store) ListLinkedCaseKeys(ctx context.Context) ([]int64, error) {
	var keys []int64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(briefCasePrefix), true, func(item *badger.Item) error {
			k := readInt64(item.Key()[len(briefCasePrefix):])
			if len(keys) == 0 || keys[len(keys)-1] != k {
				keys = append(keys, k)
			}
			return nil
		})
	}, false)
	return keys, err
}

// ClaimBackReference sets RespondsTo and Sequence if RespondsTo is still null.
// A concurrent writer touching the same brief makes the commit conflict,
// which is reported as a lost claim.
func (s *Store) ClaimBackReference(ctx context.Context, briefID, parentID core.ID, sequence int) (bool, error) {
	claimed := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		b, err := readBrief(tx, briefID)
		if err != nil {
			return err
		}
		if b.RespondsTo != nil {
			return nil
		}
		b.RespondsTo = &parentID
		b.Sequence = sequence
		b.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeBriefKey(b.ID), storage.MarshalBrief(b)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = true
		return nil
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	return claimed, err
}

// GetDocument loads a brief together with its artifacts.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	doc := &core.Document{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		b, err := readBrief(tx, id)
		if err != nil {
			return err
		}
		doc.Brief = *b
		if doc.Chunks, err = readChildValues(tx, chunkPrefix, id, storage.UnmarshalChunk); err != nil {
			return err
		}
		if doc.Sentences, err = readChildValues(tx, sentencePrefix, id, storage.UnmarshalSentence); err != nil {
			return err
		}
		if doc.Phrases, err = readChildValues(tx, phrasePrefix, id, storage.UnmarshalPhrase); err != nil {
			return err
		}
		if doc.Arguments, err = readChildValues(tx, argumentPrefix, id, storage.UnmarshalArgument); err != nil {
			return err
		}
		if doc.Citations, err = readChildValues(tx, citationPrefix, id, storage.UnmarshalCitation); err != nil {
			return err
		}
		doc.Words, err = readChildValues(tx, wordPrefix, id, storage.UnmarshalWord)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func readChildValues[T any](tx *badger.Txn, prefix string, briefID core.ID, decode func([]byte) (*T, error)) ([]T, error) {
	ptrs, err := readChildren(tx, prefix, briefID, decode)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out, nil
}

// readBrief reads a brief within an existing transaction.
// Returns storage.ErrNotFound if the brief doesn't exist.
func readBrief(tx *badger.Txn, id core.ID) (*core.Brief, error) {
	item, err := tx.Get(makeBriefKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var b *core.Brief
	err = item.Value(func(val []byte) error {
		var err error
		b, err = storage.UnmarshalBrief(val)
		return err
	})
	return b, err
}
