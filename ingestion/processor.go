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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/brieflink/authority"
	"github.com/poiesic/brieflink/caseid"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/extract"
	"github.com/poiesic/brieflink/link"
	"github.com/poiesic/brieflink/metadata"
	"github.com/poiesic/brieflink/segment"
	"github.com/poiesic/brieflink/source"
	"github.com/poiesic/brieflink/storage"
)

// ProcessorType keys the checkpoints written by the ingestion pipeline.
const ProcessorType = "ingest"

// processor takes one source file end to end.
type processor interface {
	process(ctx context.Context, path string) Result
}

// documentProcessor is the production processor. It shares no mutable state
// between calls, so one instance serves every worker.
type documentProcessor struct {
	store       storage.Store
	checkpoints storage.CheckpointRepository
	source      source.Source
	extractor   extract.Extractor
	linker      *link.Linker
	segmenter   *segment.Segmenter
	authorities *authority.Extractor
	enricher    *enricher
	force       bool
	logger      *slog.Logger
}

var _ processor = (*documentProcessor)(nil)

func (dp *documentProcessor) process(ctx context.Context, path string) Result {
	started := time.Now()
	rec := metadata.Parse(path)
	if rec.SourceFile == "" {
		rec.SourceFile = path
	}
	res := Result{SourceFile: rec.SourceFile, BriefID: storage.BriefID(rec.SourceFile)}
	logger := dp.logger.With("source", rec.SourceFile)

	finish := func() Result {
		res.Duration = time.Since(started)
		return res
	}
	fail := func(stage Stage, err error) Result {
		res.Outcome, res.Stage, res.Err = OutcomeFailed, stage, err
		logger.Error("ingestion failed", "stage", stage, "err", err)
		return finish()
	}

	data, err := dp.source.Read(ctx, path)
	if err != nil {
		return fail(StageRead, err)
	}
	contentID := core.IDFromContent(data)

	if !dp.force {
		skip, err := dp.unchanged(ctx, rec.SourceFile, contentID)
		if err != nil {
			logger.Warn("checkpoint lookup failed", "err", err)
		}
		if skip {
			logger.Debug("content unchanged, skipping")
			res.Outcome = OutcomeSkipped
			return finish()
		}
	}

	brief := core.Brief{
		FolderCaseID:     rec.FolderCaseID,
		FilenameCaseID:   rec.FilenameCaseID,
		NormalizedCaseID: caseid.Normalize(rec.FolderCaseID),
		Party:            rec.Party,
		Role:             rec.Role,
		SequenceToken:    rec.SequenceToken,
		Sequence:         1,
		Year:             rec.Year,
		SourceFile:       rec.SourceFile,
		SourcePath:       dp.source.Location(path),
		ContentID:        contentID,
		Status:           core.StatusCompleted,
	}
	if brief.NormalizedCaseID == "" {
		brief.NormalizedCaseID = caseid.Normalize(rec.FilenameCaseID)
	}

	text, err := dp.extractor.Extract(ctx, data)
	if err != nil {
		dp.recordFailure(ctx, logger, brief, err)
		return fail(StageExtract, err)
	}

	linked, err := dp.linker.Link(ctx, rec)
	if err != nil {
		return fail(StageLink, err)
	}
	link.Apply(linked, &brief)
	res.Link, res.CaseKey = linked, brief.CaseKey

	brief.FullText = text.Content
	brief.PageCount = text.Pages
	brief.WordCount = segment.CountWords(text.Content)

	seg := dp.segmenter.Segment(text.Content)
	doc := &core.Document{
		Brief:     brief,
		Chunks:    seg.Chunks,
		Sentences: seg.Sentences,
		Phrases:   seg.Phrases,
		Arguments: seg.Arguments,
		Citations: dp.authorities.Extract(text.Content).All(),
		Words:     seg.Words,
	}

	var notes []string
	if err := dp.enricher.analyze(ctx, &doc.Brief); err != nil {
		logger.Warn("brief analysis failed, using fallback summary", "err", err)
		notes = append(notes, "analysis: "+err.Error())
		res.Stage = StageAnalyze
	}
	if err := dp.enricher.embed(ctx, doc); err != nil {
		logger.Warn("embedding failed, leaving vectors for backfill", "err", err)
		notes = append(notes, "embedding: "+err.Error())
		res.Stage = StageEmbed
	}
	if len(notes) > 0 {
		doc.Brief.Status = core.StatusPartial
		doc.Brief.StatusNote = strings.Join(notes, "; ")
	}
	if err := ctx.Err(); err != nil {
		return fail(res.Stage, err)
	}

	saved, err := dp.store.SaveDocument(ctx, doc)
	if err != nil {
		return fail(StagePersist, err)
	}

	res.BriefID = saved.ID
	res.Outcome = OutcomeCompleted
	if saved.Status == core.StatusPartial {
		res.Outcome = OutcomePartial
		res.Note = saved.StatusNote
	}
	res.Chunks = len(doc.Chunks)
	res.Sentences = len(doc.Sentences)
	res.Phrases = len(doc.Phrases)
	res.Arguments = len(doc.Arguments)
	res.Citations = len(doc.Citations)
	res.Words = len(doc.Words)
	res.Pages = brief.PageCount

	if err := dp.checkpoint(ctx, saved); err != nil {
		logger.Warn("checkpoint failed", "stage", StageCheckpoint, "err", err)
	}

	logger.Info("ingested brief",
		"outcome", res.Outcome,
		"case", caseKeyAttr(res.CaseKey),
		"link", saved.LinkStrategy,
		"chunks", res.Chunks,
		"sentences", res.Sentences,
		"phrases", res.Phrases,
		"citations", res.Citations)
	return finish()
}

// unchanged reports whether the last checkpoint saw the same content and did not fail.
func (dp *documentProcessor) unchanged(ctx context.Context, sourceFile string, contentID core.ID) (bool, error) {
	cp, err := dp.checkpoints.LoadCheckpoint(ctx, ProcessorType, sourceFile)
	if err != nil || cp == nil {
		return false, err
	}
	return cp.ContentID == contentID && cp.Status != core.StatusFailed, nil
}

func (dp *documentProcessor) checkpoint(ctx context.Context, b *core.Brief) error {
	return dp.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: ProcessorType,
		SourceFile:    b.SourceFile,
		ContentID:     b.ContentID,
		BriefID:       b.ID,
		Status:        b.Status,
		UpdatedAt:     time.Now().UTC(),
	})
}

// recordFailure stores a failed brief without artifacts so the file shows up
// in the store and is retried on the next run. Errors are only logged.
func (dp *documentProcessor) recordFailure(ctx context.Context, logger *slog.Logger, b core.Brief, cause error) {
	b.Status = core.StatusFailed
	b.StatusNote = cause.Error()
	saved, err := dp.store.SaveDocument(ctx, &core.Document{Brief: b})
	if err != nil {
		logger.Warn("could not record failed brief", "err", err)
		return
	}
	if err := dp.checkpoint(ctx, saved); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("checkpoint failed", "stage", StageCheckpoint, "err", err)
	}
}

func caseKeyAttr(key *int64) string {
	if key == nil {
		return "none"
	}
	return fmt.Sprint(*key)
}
