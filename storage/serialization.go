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

package storage

import (
	"fmt"

	"github.com/poiesic/brieflink/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalCase serializes a Case to bytes.
func MarshalCase(c *core.Case) []byte {
	return core.CaseMUS.Encode(*c)
}

// UnmarshalCase deserializes a Case from bytes.
func UnmarshalCase(data []byte) (*core.Case, error) {
	return decode(core.CaseMUS.Decode, data)
}

// MarshalBrief serializes a Brief to bytes.
func MarshalBrief(b *core.Brief) []byte {
	return core.BriefMUS.Encode(*b)
}

// UnmarshalBrief deserializes a Brief from bytes.
func UnmarshalBrief(data []byte) (*core.Brief, error) {
	return decode(core.BriefMUS.Decode, data)
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(c *core.Chunk) []byte {
	return core.ChunkMUS.Encode(*c)
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	return decode(core.ChunkMUS.Decode, data)
}

// MarshalSentence serializes a Sentence to bytes.
func MarshalSentence(s *core.Sentence) []byte {
	return core.SentenceMUS.Encode(*s)
}

// UnmarshalSentence deserializes a Sentence from bytes.
func UnmarshalSentence(data []byte) (*core.Sentence, error) {
	return decode(core.SentenceMUS.Decode, data)
}

// MarshalPhrase serializes a Phrase to bytes.
func MarshalPhrase(p *core.Phrase) []byte {
	return core.PhraseMUS.Encode(*p)
}

// UnmarshalPhrase deserializes a Phrase from bytes.
func UnmarshalPhrase(data []byte) (*core.Phrase, error) {
	return decode(core.PhraseMUS.Decode, data)
}

// MarshalArgument serializes an Argument to bytes.
func MarshalArgument(a *core.Argument) []byte {
	return core.ArgumentMUS.Encode(*a)
}

// UnmarshalArgument deserializes an Argument from bytes.
func UnmarshalArgument(data []byte) (*core.Argument, error) {
	return decode(core.ArgumentMUS.Decode, data)
}

// MarshalCitation serializes a Citation to bytes.
func MarshalCitation(c *core.Citation) []byte {
	return core.CitationMUS.Encode(*c)
}

// UnmarshalCitation deserializes a Citation from bytes.
func UnmarshalCitation(data []byte) (*core.Citation, error) {
	return decode(core.CitationMUS.Decode, data)
}

// MarshalWord serializes a WordOccurrence to bytes.
func MarshalWord(w *core.WordOccurrence) []byte {
	return core.WordMUS.Encode(*w)
}

// UnmarshalWord deserializes a WordOccurrence from bytes.
func UnmarshalWord(data []byte) (*core.WordOccurrence, error) {
	return decode(core.WordMUS.Decode, data)
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	return core.CheckpointMUS.Encode(*checkpoint)
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	return decode(core.CheckpointMUS.Decode, data)
}

func decode[T any](fn func([]byte) (T, error), data []byte) (*T, error) {
	v, err := fn(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}
