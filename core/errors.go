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

import "errors"

// Domain validation errors
var (
	// ErrInvalidCase indicates a Case failed validation.
	ErrInvalidCase = errors.New("invalid case")

	// ErrInvalidBrief indicates a Brief failed validation.
	ErrInvalidBrief = errors.New("invalid brief")

	// ErrInvalidDocument indicates a Document bundle failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptySourceFile indicates the SourceFile natural key is empty.
	ErrEmptySourceFile = errors.New("source file cannot be empty")

	// ErrEmptyCaseFileID indicates a case has no docket number.
	ErrEmptyCaseFileID = errors.New("case file id cannot be empty")

	// ErrNoDigits indicates a case file id normalizes to an empty string.
	ErrNoDigits = errors.New("case file id has no digits")

	// ErrOpeningBackReference indicates an Opening brief that points at another brief.
	ErrOpeningBackReference = errors.New("opening brief cannot respond to another brief")

	// ErrChunkOrder indicates chunks that are not ordered 1..N with ascending spans.
	ErrChunkOrder = errors.New("chunks out of order")

	// ErrDanglingReference indicates a child row referencing a missing chunk or argument.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrInvalidStatus indicates an unknown processing status.
	ErrInvalidStatus = errors.New("invalid processing status")
)
