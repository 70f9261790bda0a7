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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/brieflink/ai"
	"github.com/poiesic/brieflink/retry"
	"github.com/poiesic/brieflink/storage"
)

// Config holds configuration for the backfill operation.
type Config struct {
	// BatchSize is the number of rows to embed in each request
	BatchSize int

	// ReportInterval is how often to report progress (number of rows)
	ReportInterval int

	// Policy governs retries of failed embedding calls
	Policy retry.Policy

	// BriefEmbeddingChars is how much of a brief's text its vector covers
	BriefEmbeddingChars int

	// Targets are the row kinds to fill, in order
	Targets []storage.EmbeddingTarget
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:           DefaultBatchSize,
		ReportInterval:      100,
		Policy:              retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		BriefEmbeddingChars: 8000,
		Targets:             []storage.EmbeddingTarget{storage.TargetBrief, storage.TargetChunk, storage.TargetSentence},
	}
}

// Report summarizes a backfill pass.
type Report struct {
	Embedded map[storage.EmbeddingTarget]int
	Promoted int
	Elapsed  time.Duration
}

// Total is the number of vectors written across targets.
func (r Report) Total() int {
	n := 0
	for _, v := range r.Embedded {
		n += v
	}
	return n
}

// Backfiller embeds every row that is missing a vector.
type Backfiller struct {
	repo      storage.EmbeddingRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewBackfiller creates a new backfiller.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(repo storage.EmbeddingRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Backfiller, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Policy.MaxAttempts <= 0 {
		return nil, retry.ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Backfiller{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.Policy, config.BriefEmbeddingChars),
		logger:    slog.Default().With("component", "backfill"),
	}, nil
}

// Run fills every configured target, then promotes partial briefs whose
// vectors are now complete. The report covers the work done before any error.
func (b *Backfiller) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	report := Report{Embedded: make(map[storage.EmbeddingTarget]int)}

	for _, target := range b.config.Targets {
		n, err := b.fill(ctx, target)
		report.Embedded[target] = n
		if err != nil {
			report.Elapsed = time.Since(started)
			return report, fmt.Errorf("backfill %s: %w", target, err)
		}
	}

	promoted, err := b.repo.PromotePartialBriefs(ctx)
	report.Promoted = promoted
	report.Elapsed = time.Since(started)
	if err != nil {
		return report, fmt.Errorf("promote partial briefs: %w", err)
	}

	fmt.Fprintf(b.progress, "Backfill complete. Embedded %d rows, promoted %d briefs in %v\n",
		report.Total(), report.Promoted, report.Elapsed.Round(time.Millisecond))
	b.logger.Info("backfill complete", "embedded", report.Total(), "promoted", report.Promoted)
	return report, nil
}

func (b *Backfiller) fill(ctx context.Context, target storage.EmbeddingTarget) (int, error) {
	tracker := NewProgressTracker(b.progress, string(target), 0, b.config.ReportInterval)
	tracker.Start()

	it := NewPendingIterator(b.repo, target, b.config.BatchSize)
	err := it.ForEach(ctx, func(rows []storage.PendingEmbedding) error {
		if err := b.processor.Process(ctx, target, rows); err != nil {
			return err
		}
		tracker.Increment(len(rows))
		return nil
	})

	done := tracker.Current()
	if done > 0 {
		tracker.Finish()
	}
	b.logger.Debug("target filled", "target", target, "rows", done)
	return done, err
}
