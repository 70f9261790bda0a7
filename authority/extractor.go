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

// Package authority extracts the cases, statutes and rules a brief cites.
//
// Two sources are combined. Entries of the brief's Table of Authorities are
// high confidence and carry the brief pages they are cited on. Citations found
// by pattern in the body text are low confidence and carry an occurrence count.
// The same authority may appear in both lists.
package authority

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/segment"
)

const (
	// DefaultSearchWindow is how far into the text the table heading is looked for.
	DefaultSearchWindow = 40000

	maxPendingChars = 400
	maxRangeExpand  = 50
)

// Result holds both citation sources.
type Result struct {
	TableCitations  []core.Citation
	InlineCitations []core.Citation

	// TableStart and TableEnd delimit the table in the source text.
	// Both are -1 when no table was found.
	TableStart, TableEnd int
}

// All returns table citations followed by inline citations.
func (r Result) All() []core.Citation {
	all := make([]core.Citation, 0, len(r.TableCitations)+len(r.InlineCitations))
	all = append(all, r.TableCitations...)
	return append(all, r.InlineCitations...)
}

// Extractor finds authorities in brief text. It holds no state between calls.
type Extractor struct {
	window int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSearchWindow bounds how many leading bytes are searched for the table heading.
func WithSearchWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.window = n
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{window: DefaultSearchWindow}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the table and inline citations of text.
func (e *Extractor) Extract(text string) Result {
	res := Result{TableStart: -1, TableEnd: -1}

	start, end := e.locateTable(text)
	if start >= 0 {
		res.TableStart, res.TableEnd = start, end
		res.TableCitations = parseTable(text, start, end)
	}
	res.InlineCitations = scanInline(text, start, end)
	return res
}

type line struct {
	text   string
	offset int
}

func splitLines(text string, from, to int) []line {
	var out []line
	pos := from
	for pos < to {
		nl := strings.IndexByte(text[pos:to], '\n')
		end := to
		if nl >= 0 {
			end = pos + nl
		}
		out = append(out, line{text: text[pos:end], offset: pos})
		pos = end + 1
	}
	return out
}

// locateTable finds the table heading within the search window and returns the
// byte span from the heading to the next heading of another section.
func (e *Extractor) locateTable(text string) (int, int) {
	start := -1
	for _, l := range splitLines(text, 0, len(text)) {
		if start < 0 && l.offset >= e.window {
			return -1, -1
		}
		label, _, ok := segment.MatchHeading(l.text)
		if !ok {
			continue
		}
		if label == core.SectionTableOfAuthorities {
			if start < 0 {
				start = l.offset
			}
			continue
		}
		if start >= 0 {
			return start, l.offset
		}
	}
	if start < 0 {
		return -1, -1
	}
	return start, len(text)
}

func parseTable(text string, start, end int) []core.Citation {
	var (
		out           []core.Citation
		pending       []string
		pendingOffset = -1
	)
	reset := func() {
		pending = pending[:0]
		pendingOffset = -1
	}

	for _, l := range splitLines(text, start, end) {
		trimmed := strings.TrimSpace(l.text)
		if trimmed == "" || pageMarker.MatchString(trimmed) {
			continue
		}
		if label, _, ok := segment.MatchHeading(trimmed); ok && label == core.SectionTableOfAuthorities {
			reset()
			continue
		}
		if tableCategory.MatchString(trimmed) {
			reset()
			continue
		}

		m := tableEntry.FindStringSubmatch(trimmed)
		if m == nil {
			if pendingOffset < 0 {
				pendingOffset = l.offset
			}
			pending = append(pending, trimmed)
			if len(strings.Join(pending, " ")) > maxPendingChars {
				reset()
			}
			continue
		}

		body := strings.TrimRight(strings.Join(strings.Fields(m[1]), " "), " ,;")
		offset := l.offset
		if len(pending) > 0 {
			body = strings.Join(append(pending, body), " ")
			offset = pendingOffset
		}
		reset()
		if body == "" {
			continue
		}

		c := core.Citation{
			Text:           body,
			Kind:           classify(body),
			HighConfidence: true,
			Pages:          parsePages(m[2]),
			Occurrences:    1,
			Offset:         offset,
		}
		if rm := reporterCitation.FindStringSubmatch(body); rm != nil {
			c.Volume, c.Reporter, c.Page = rm[1], normalizeReporter(rm[2]), rm[3]
		}
		out = append(out, c)
	}
	return out
}

// parsePages turns "5, 12-14, 18" into [5 12 13 14 18]. "passim" yields no pages.
func parsePages(s string) []int {
	if strings.EqualFold(s, "passim") {
		return nil
	}
	var pages []int
	for _, m := range pageRange.FindAllStringSubmatch(s, -1) {
		from, _ := strconv.Atoi(m[1])
		to := from
		if m[2] != "" {
			to, _ = strconv.Atoi(m[2])
		}
		if to < from || to-from > maxRangeExpand {
			pages = append(pages, from)
			if to > from {
				pages = append(pages, to)
			}
			continue
		}
		for p := from; p <= to; p++ {
			pages = append(pages, p)
		}
	}
	return pages
}

type inlinePattern struct {
	re    *regexp.Regexp
	kind  core.CitationKind
	build func(m []string) (text, reporter, volume, page string)
}

var inlinePatterns = []inlinePattern{
	{
		re:   reporterCitation,
		kind: core.CitationCase,
		build: func(m []string) (string, string, string, string) {
			rep := normalizeReporter(m[2])
			return m[1] + " " + rep + " " + m[3], rep, m[1], m[3]
		},
	},
	{
		re:   rcwCitation,
		kind: core.CitationStatute,
		build: func(m []string) (string, string, string, string) {
			return "RCW " + strings.TrimRight(strings.ToUpper(m[1]), "."), "", "", ""
		},
	},
	{
		re:   wacCitation,
		kind: core.CitationStatute,
		build: func(m []string) (string, string, string, string) {
			return "WAC " + strings.ToUpper(m[1]), "", "", ""
		},
	},
	{
		re:   uscCitation,
		kind: core.CitationStatute,
		build: func(m []string) (string, string, string, string) {
			return m[1] + " U.S.C. § " + m[2], "", "", ""
		},
	},
	{
		re:   constitutionCitation,
		kind: core.CitationConstitution,
		build: func(m []string) (string, string, string, string) {
			return m[1] + " Const. " + strings.Join(strings.Fields(m[2]), " "), "", "", ""
		},
	},
}

// scanInline collects pattern citations outside [skipStart, skipEnd). Each
// distinct citation is reported once, at its first offset, with its count.
func scanInline(text string, skipStart, skipEnd int) []core.Citation {
	index := make(map[string]int)
	var out []core.Citation

	for _, p := range inlinePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if skipStart >= 0 && loc[0] >= skipStart && loc[0] < skipEnd {
				continue
			}
			m := make([]string, len(loc)/2)
			for i := range m {
				if loc[2*i] >= 0 {
					m[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			cite, reporter, volume, page := p.build(m)
			if at, seen := index[cite]; seen {
				out[at].Occurrences++
				continue
			}
			index[cite] = len(out)
			out = append(out, core.Citation{
				Text:        cite,
				Kind:        p.kind,
				Reporter:    reporter,
				Volume:      volume,
				Page:        page,
				Occurrences: 1,
				Offset:      loc[0],
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}
