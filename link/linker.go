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

// Package link resolves a brief to the case it was filed in.
//
// Two independent signals are consulted: the case folder the file sits in and
// the numeric id embedded in the filename. Either one is enough to link. When
// both agree the link is corroborated. The result records which signal
// produced it so links can be audited later.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/poiesic/brieflink/caseid"
	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/metadata"
	"github.com/poiesic/brieflink/storage"
)

// CaseFinder is the subset of storage.CaseRepository the linker needs.
type CaseFinder interface {
	GetCase(ctx context.Context, key int64) (*core.Case, error)
	FindCaseByNormalizedID(ctx context.Context, id string) (*core.Case, error)
	FindCasesBySuffix(ctx context.Context, suffix string, limit int) ([]*core.Case, error)
}

var _ CaseFinder = (storage.CaseRepository)(nil)

// ErrFinderRequired is returned by New when no CaseFinder is given.
var ErrFinderRequired = errors.New("case finder is required")

// Linker resolves briefs to cases. It is safe for concurrent use.
type Linker struct {
	cases           CaseFinder
	minSuffixDigits int
	rejectAmbiguous bool
	logger          *slog.Logger
}

// Option configures a Linker.
type Option func(*Linker)

// WithMinSuffixDigits disables the suffix match for filename ids shorter than n digits.
// The exact key match is unaffected.
func WithMinSuffixDigits(n int) Option {
	return func(l *Linker) {
		l.minSuffixDigits = max(n, 0)
	}
}

// WithRejectAmbiguousSuffix makes a filename suffix that matches more than one
// case link nothing. By default the lowest case key wins and the result is
// flagged Ambiguous.
func WithRejectAmbiguousSuffix() Option {
	return func(l *Linker) {
		l.rejectAmbiguous = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Linker over the given case lookups.
func New(cases CaseFinder, opts ...Option) (*Linker, error) {
	if cases == nil {
		return nil, ErrFinderRequired
	}
	l := &Linker{
		cases:  cases,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "linker")
	return l, nil
}

// Link runs both strategies for rec. Only storage failures are returned as
// errors; a brief that matches nothing is Unlinked.
func (l *Linker) Link(ctx context.Context, rec metadata.Record) (Result, error) {
	byFolder, err := l.folderCase(ctx, rec.FolderCaseID)
	if err != nil {
		return nil, err
	}
	hit, err := l.filenameCase(ctx, rec.FilenameCaseID)
	if err != nil {
		return nil, err
	}
	byFilename := hit.c
	if hit.ambiguous {
		l.logger.Warn("filename suffix matches several cases, using lowest key",
			"source", rec.SourceFile,
			"suffix", caseid.Normalize(rec.FilenameCaseID),
			"case", byFilename.Key)
	}

	switch {
	case byFolder != nil && byFilename != nil:
		if byFolder.Key == byFilename.Key {
			return LinkedByBoth{Case: byFolder, Match: hit.match, Ambiguous: hit.ambiguous}, nil
		}
		l.logger.Warn("folder and filename name different cases",
			"source", rec.SourceFile,
			"folder_case", byFolder.Key,
			"filename_case", byFilename.Key)
		return LinkedByFolder{Case: byFolder, Conflict: byFilename}, nil
	case byFolder != nil:
		return LinkedByFolder{Case: byFolder}, nil
	case byFilename != nil:
		return LinkedByFilename{Case: byFilename, Match: hit.match, Ambiguous: hit.ambiguous}, nil
	}

	l.logger.Debug("brief unlinked",
		"source", rec.SourceFile,
		"folder_id", rec.FolderCaseID,
		"filename_id", rec.FilenameCaseID)
	return Unlinked{}, nil
}

// folderCase looks up the case whose normalized id equals the folder's.
func (l *Linker) folderCase(ctx context.Context, folderID string) (*core.Case, error) {
	normalized := caseid.Normalize(folderID)
	if normalized == "" {
		return nil, nil
	}
	c, err := l.cases.FindCaseByNormalizedID(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("folder lookup %q: %w", folderID, err)
	}
	return c, nil
}

type filenameHit struct {
	c         *core.Case
	match     core.FilenameMatch
	ambiguous bool
}

// filenameCase tries the case key first, then a normalized id suffix. Among
// several suffix matches the lowest key is taken.
func (l *Linker) filenameCase(ctx context.Context, filenameID string) (filenameHit, error) {
	normalized := caseid.Normalize(filenameID)
	if normalized == "" {
		return filenameHit{}, nil
	}

	if key, err := strconv.ParseInt(normalized, 10, 64); err == nil {
		c, err := l.cases.GetCase(ctx, key)
		switch {
		case err == nil:
			return filenameHit{c: c, match: core.FilenameMatchKey}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return filenameHit{}, fmt.Errorf("key lookup %d: %w", key, err)
		}
	}

	if len(normalized) < l.minSuffixDigits {
		return filenameHit{}, nil
	}
	matches, err := l.cases.FindCasesBySuffix(ctx, normalized, 2)
	if err != nil {
		return filenameHit{}, fmt.Errorf("suffix lookup %q: %w", normalized, err)
	}
	switch {
	case len(matches) == 0:
		return filenameHit{}, nil
	case len(matches) > 1 && l.rejectAmbiguous:
		l.logger.Debug("ambiguous filename suffix rejected", "suffix", normalized)
		return filenameHit{}, nil
	}
	return filenameHit{c: matches[0], match: core.FilenameMatchSuffix, ambiguous: len(matches) > 1}, nil
}
