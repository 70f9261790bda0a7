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

// Package search retrieves ingested brief content.
//
// The Searcher type offers two lookups:
//   - Semantic chunk search: the query is embedded and compared against chunk
//     vectors, optionally restricted to one case
//   - Phrase search: case-insensitive substring match over extracted phrases
//
// Semantic hits whose text contains every non-stop-word of the query receive
// a verbatim boost, so exact wording ranks ahead of paraphrase.
package search
