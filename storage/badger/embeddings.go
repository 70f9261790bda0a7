package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// ListMissingEmbeddings returns rows of the target kind with no embedding.
// Failed briefs are never returned.
func (s *Store) ListMissingEmbeddings(ctx context.Context, target storage.EmbeddingTarget, after core.ID, limit int) ([]storage.PendingEmbedding, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var pending []storage.PendingEmbedding
	collect := func(id, briefID core.ID, text string, embedding []float32) {
		if id > after && len(embedding) == 0 && text != "" {
			pending = append(pending, storage.PendingEmbedding{ID: id, BriefID: briefID, Text: text})
		}
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		switch target {
		case storage.TargetBrief:
			return scanValues(tx, briefPrefix, storage.UnmarshalBrief, func(b *core.Brief) {
				if b.Status != core.StatusFailed {
					collect(b.ID, b.ID, b.FullText, b.Embedding)
				}
			})
		case storage.TargetChunk:
			return scanValues(tx, chunkPrefix, storage.UnmarshalChunk, func(c *core.Chunk) {
				collect(c.ID, c.BriefID, c.Text, c.Embedding)
			})
		case storage.TargetSentence:
			return scanValues(tx, sentencePrefix, storage.UnmarshalSentence, func(st *core.Sentence) {
				collect(st.ID, st.BriefID, st.Text, st.Embedding)
			})
		}
		return storage.ErrUnknownTarget
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(pending, func(a, b storage.PendingEmbedding) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// SetEmbeddings writes embeddings for rows of the target kind.
func (s *Store) SetEmbeddings(ctx context.Context, target storage.EmbeddingTarget, vectors map[core.ID][]float32) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for id, vector := range vectors {
			var err error
			switch target {
			case storage.TargetBrief:
				err = setBriefEmbedding(tx, id, vector)
			case storage.TargetChunk:
				err = updateRow(tx, target, id, storage.UnmarshalChunk, storage.MarshalChunk, func(c *core.Chunk) {
					c.Embedding = vector
				})
			case storage.TargetSentence:
				err = updateRow(tx, target, id, storage.UnmarshalSentence, storage.MarshalSentence, func(st *core.Sentence) {
					st.Embedding = vector
				})
			default:
				err = storage.ErrUnknownTarget
			}
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

func setBriefEmbedding(tx *badger.Txn, id core.ID, vector []float32) error {
	b, err := readBrief(tx, id)
	if err != nil {
		return err
	}
	b.Embedding = vector
	b.UpdatedAt = time.Now().UTC()
	return tx.Set(makeBriefKey(id), storage.MarshalBrief(b))
}

// updateRow resolves an embedded row through its ID index and rewrites it.
func updateRow[T any](tx *badger.Txn, target storage.EmbeddingTarget, id core.ID,
	decode func([]byte) (*T, error), encode func(*T) []byte, mutate func(*T)) error {
	item, err := tx.Get(makeRowIDKey(target, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		return err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	row, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		return err
	}
	var v *T
	if err := row.Value(func(val []byte) error {
		v, err = decode(val)
		return err
	}); err != nil {
		return err
	}
	mutate(v)
	return tx.Set(key, encode(v))
}

// PromotePartialBriefs marks partial briefs completed once every embedding exists.
func (s *Store) PromotePartialBriefs(ctx context.Context) (int, error) {
	promoted := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var candidates []*core.Brief
		err := scanValues(tx, briefPrefix, storage.UnmarshalBrief, func(b *core.Brief) {
			if b.Status == core.StatusPartial && len(b.Embedding) > 0 {
				candidates = append(candidates, b)
			}
		})
		if err != nil {
			return err
		}

		for _, b := range candidates {
			complete, err := childrenEmbedded(tx, b.ID)
			if err != nil {
				return err
			}
			if !complete {
				continue
			}
			b.Status = core.StatusCompleted
			b.StatusNote = ""
			b.UpdatedAt = time.Now().UTC()
			if err := tx.Set(makeBriefKey(b.ID), storage.MarshalBrief(b)); err != nil {
				return err
			}
			promoted++
		}
		return tx.Commit()
	}, true)
	return promoted, err
}

func childrenEmbedded(tx *badger.Txn, briefID core.ID) (bool, error) {
	chunks, err := readChildren(tx, chunkPrefix, briefID, storage.UnmarshalChunk)
	if err != nil {
		return false, err
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return false, nil
		}
	}
	sentences, err := readChildren(tx, sentencePrefix, briefID, storage.UnmarshalSentence)
	if err != nil {
		return false, err
	}
	for _, st := range sentences {
		if len(st.Embedding) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// scanValues decodes every record under prefix and hands it to fn.
func scanValues[T any](tx *badger.Txn, prefix string, decode func([]byte) (*T, error), fn func(*T)) error {
	return scanPrefix(tx, []byte(prefix), false, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			v, err := decode(val)
			if err != nil {
				return err
			}
			fn(v)
			return nil
		})
	})
}
