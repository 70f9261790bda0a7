// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backfill

import (
	"context"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

const (
	// DefaultBatchSize is the default number of rows to fetch in each batch
	DefaultBatchSize = 100
)

// PendingIterator pages through the rows of one target that lack an embedding.
type PendingIterator struct {
	repo      storage.EmbeddingRepository
	target    storage.EmbeddingTarget
	batchSize int
}

// NewPendingIterator creates a new iterator.
// batchSize: number of rows to fetch in each batch (must be > 0)
func NewPendingIterator(repo storage.EmbeddingRepository, target storage.EmbeddingTarget, batchSize int) *PendingIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &PendingIterator{
		repo:      repo,
		target:    target,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of pending rows.
// The cursor advances past every row handed to fn, so a row fn could not
// embed is not returned again in the same pass.
// Iteration stops on first error from fn or when no rows remain.
// Context cancellation is checked between batches.
func (it *PendingIterator) ForEach(ctx context.Context, fn func([]storage.PendingEmbedding) error) error {
	var after core.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.repo.ListMissingEmbeddings(ctx, it.target, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		after = batch[len(batch)-1].ID
		if len(batch) < it.batchSize {
			return nil
		}
	}
}
