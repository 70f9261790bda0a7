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

// Package opinion turns court opinions into the cases briefs are linked to.
//
// Parse reads the caption and disposition of an opinion with regular
// expressions: docket number, title, court and division, filing date and the
// appeal outcome. No model is consulted. The Ingester runs Parse over every
// opinion in a document tree and upserts the resulting cases, reusing the key
// of a case already known under the same docket.
package opinion
