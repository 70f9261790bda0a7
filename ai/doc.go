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

// Package ai provides abstractions for the external AI services used by
// brief ingestion.
//
// Two capabilities are modeled:
//
//   - Embedder: vector embeddings for briefs, chunks and sentences
//   - BriefAnalyzer: a summary and issue list for a brief
//
// AIProvider groups them so they share configuration and lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (Ollama, vLLM, OpenAI) via langchaingo
//   - ai/mock: test doubles with injectable behavior and call counters
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and assert call counts.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithDimensions(768)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, chunk.Text)
//	analysis, err := provider.BriefAnalyzer().AnalyzeBrief(ctx, brief.FullText)
//
// Failures from either service are not fatal to ingestion: the caller
// retries, then stores the brief as partial and leaves the field for the
// backfill pass.
package ai
