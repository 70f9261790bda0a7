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

// Package badger implements the storage interfaces on an embedded BadgerDB.
//
// Records are encoded with the mus codecs in core. Secondary indexes (case
// normalized ids, source files, briefs per case, embedded row IDs) are plain
// keys maintained in the same transaction as the record they point at.
package badger

import (
	"github.com/poiesic/brieflink/storage"
)

// Store implements storage.Store for BadgerDB.
type Store struct {
	backend *Backend
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store over an open backend.
// The backend is owned by the caller and must outlive the store.
func NewStore(backend *Backend) storage.Store {
	return &Store{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (s *Store) Close() error {
	return nil
}
