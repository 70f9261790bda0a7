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

// Package storage provides the storage abstraction layer for brieflink.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two backends implement Store:
//
//   - storage/postgres: the relational store with pgvector columns, used in production
//   - storage/badger: an embedded store, used for local runs and tests
//
// Checkpoints always live in Badger, next to the process, whichever Store is used.
//
// # Architecture
//
//   - CaseRepository: case lookups used by the linker
//   - BriefRepository: document persistence and the chaining compare-and-set
//   - EmbeddingRepository: finding and filling missing embeddings
//   - SearchRepository: similarity and phrase search
//   - CheckpointRepository: resumable ingestion state
//
// # Identity
//
// A brief's ID is derived from its source file (BriefID) and its artifacts'
// IDs from the brief ID and their position (AssignIDs). Both backends use the
// same derivation, so re-ingesting a file addresses the same rows.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	store, checkpoints, backend, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
