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

package core

import (
	"fmt"

	"github.com/poiesic/brieflink/caseid"
)

// ValidateCase validates a Case according to domain rules.
//
// Validation rules:
//   - FileID must not be empty
//   - FileID must contain at least one digit
//
// NOT validated (assigned by the store):
//   - Key
//   - NormalizedID (derived from FileID on save)
func ValidateCase(c *Case) error {
	if c == nil {
		return fmt.Errorf("%w: case is nil", ErrInvalidCase)
	}

	if c.FileID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCase, ErrEmptyCaseFileID)
	}

	if caseid.Normalize(c.FileID) == "" {
		return fmt.Errorf("%w: %w: %q", ErrInvalidCase, ErrNoDigits, c.FileID)
	}

	return nil
}

// ValidateBrief validates a Brief according to domain rules.
//
// Validation rules:
//   - SourceFile must not be empty
//   - Opening briefs never carry a back-reference
//   - Status must be a known value
//
// NOT validated (populated by later passes):
//   - Embedding (can be empty until backfilled)
//   - RespondsTo on non-opening briefs (set by chaining)
func ValidateBrief(b *Brief) error {
	if b == nil {
		return fmt.Errorf("%w: brief is nil", ErrInvalidBrief)
	}

	if b.SourceFile == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBrief, ErrEmptySourceFile)
	}

	if b.Role == RoleOpening && b.RespondsTo != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBrief, ErrOpeningBackReference)
	}

	if err := ValidateStatus(b.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBrief, err)
	}

	return nil
}

// ValidateStatus checks that s is one of the known processing states.
func ValidateStatus(s ProcessingStatus) error {
	switch s {
	case StatusProcessing, StatusCompleted, StatusPartial, StatusFailed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ValidateDocument checks the brief and the structural consistency of its children.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if err := ValidateBrief(&doc.Brief); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	prevEnd := 0
	for i, ch := range doc.Chunks {
		if ch.Order != i+1 || ch.Start < prevEnd || ch.End < ch.Start {
			return fmt.Errorf("%w: %w: chunk %d", ErrInvalidDocument, ErrChunkOrder, i+1)
		}
		prevEnd = ch.End
	}

	n := len(doc.Chunks)
	for _, s := range doc.Sentences {
		if s.ChunkOrder < 1 || s.ChunkOrder > n {
			return fmt.Errorf("%w: %w: sentence %d references chunk %d",
				ErrInvalidDocument, ErrDanglingReference, s.GlobalOrder, s.ChunkOrder)
		}
	}

	for _, w := range doc.Words {
		if w.ChunkOrder < 1 || w.ChunkOrder > n {
			return fmt.Errorf("%w: %w: word %q references chunk %d",
				ErrInvalidDocument, ErrDanglingReference, w.Word, w.ChunkOrder)
		}
	}

	for i, a := range doc.Arguments {
		if a.ParentIndex >= i || a.ParentIndex < -1 {
			return fmt.Errorf("%w: %w: argument %s", ErrInvalidDocument, ErrDanglingReference, a.Path)
		}
	}

	return nil
}
