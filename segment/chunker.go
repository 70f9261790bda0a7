package segment

import (
	"regexp"
	"strings"

	"github.com/poiesic/brieflink/core"
)

var wordSpan = regexp.MustCompile(`\S+`)

// paragraph is a trimmed byte span of the source text.
type paragraph struct {
	start, end int
	words      int
	label      string // section label when the paragraph opens with a heading
}

// splitParagraphs splits text on blank lines. A line that is a section heading
// also starts a new paragraph, since extracted PDF text often runs a heading
// straight into its first paragraph.
func splitParagraphs(text string) []paragraph {
	var paras []paragraph
	cur := paragraph{start: -1}

	flush := func() {
		if cur.start >= 0 {
			cur.words = CountWords(text[cur.start:cur.end])
			paras = append(paras, cur)
		}
		cur = paragraph{start: -1}
	}

	pos := 0
	for pos <= len(text) {
		nl := strings.IndexByte(text[pos:], '\n')
		lineEnd := len(text)
		if nl >= 0 {
			lineEnd = pos + nl
		}
		line := text[pos:lineEnd]

		if trimmed := strings.TrimSpace(line); trimmed == "" {
			flush()
		} else {
			lead := pos + strings.Index(line, trimmed)
			label, _, isHeading := MatchHeading(trimmed)
			if isHeading {
				flush()
			}
			if cur.start < 0 {
				cur.start = lead
				cur.label = label
			}
			cur.end = lead + len(trimmed)
		}

		if nl < 0 {
			break
		}
		pos = lineEnd + 1
	}
	flush()
	return paras
}

type chunker struct {
	minWords, targetWords, maxWords int
}

// chunk groups paragraphs into chunks of roughly targetWords words. A heading
// always starts a new chunk, and a paragraph longer than maxWords is split at
// word boundaries.
func (c chunker) chunk(text string) []core.Chunk {
	var chunks []core.Chunk
	section := core.SectionUnlabeled

	var (
		start, end = -1, -1
		words      int
		label      string
	)

	emit := func() {
		if start < 0 {
			return
		}
		body := text[start:end]
		chunks = append(chunks, core.Chunk{
			Order:     len(chunks) + 1,
			Start:     start,
			End:       end,
			Text:      body,
			Section:   label,
			WordCount: words,
			CharCount: len([]rune(body)),
		})
		start, end, words = -1, -1, 0
	}

	add := func(s, e, n int) {
		if start < 0 {
			start = s
			label = section
		}
		end = e
		words += n
	}

	for _, p := range splitParagraphs(text) {
		if p.label != "" {
			emit()
			section = p.label
		}

		switch {
		case p.words > c.maxWords:
			emit()
			pieces := c.splitLong(text, p)
			for i, piece := range pieces {
				add(piece.start, piece.end, piece.words)
				if i < len(pieces)-1 {
					emit()
				}
			}
		case words+p.words > c.maxWords:
			emit()
			add(p.start, p.end, p.words)
		default:
			add(p.start, p.end, p.words)
		}

		if words >= c.targetWords {
			emit()
		}
	}
	emit()

	return c.absorbTail(text, chunks)
}

// splitLong cuts an oversized paragraph into pieces of targetWords words.
func (c chunker) splitLong(text string, p paragraph) []paragraph {
	spans := wordSpan.FindAllStringIndex(text[p.start:p.end], -1)
	var pieces []paragraph
	for i := 0; i < len(spans); i += c.targetWords {
		j := min(i+c.targetWords, len(spans)) - 1
		pieces = append(pieces, paragraph{
			start: p.start + spans[i][0],
			end:   p.start + spans[j][1],
			words: j - i + 1,
		})
	}
	return pieces
}

// absorbTail folds a trailing chunk that is too small to stand alone into its
// predecessor when both belong to the same section and the result stays in budget.
func (c chunker) absorbTail(text string, chunks []core.Chunk) []core.Chunk {
	n := len(chunks)
	if n < 2 {
		return chunks
	}
	last, prev := chunks[n-1], &chunks[n-2]
	if last.WordCount >= c.minWords/2 || last.Section != prev.Section || prev.WordCount+last.WordCount > c.maxWords {
		return chunks
	}
	prev.End = last.End
	prev.Text = text[prev.Start:prev.End]
	prev.WordCount += last.WordCount
	prev.CharCount = len([]rune(prev.Text))
	return chunks[:n-1]
}
