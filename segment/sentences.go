package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minSentenceChars is the length below which a candidate sentence is treated as
// a fragment and merged into a neighbour.
const minSentenceChars = 15

// citationPatterns match reporter and code citations whose periods must not end a sentence.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s+Wn\.\s*(?:2d|App\.(?:\s*2d)?)?\s*\d+`),
	regexp.MustCompile(`\d+\s+Wash\.\s*(?:2d|App\.)?\s*\d+`),
	regexp.MustCompile(`\d+\s+P\.\s*(?:2d|3d)?\s*\d+`),
	regexp.MustCompile(`\d+\s+F\.\s*(?:Supp\.\s*)?(?:2d|3d|4th)?\s*\d+`),
	regexp.MustCompile(`\d+\s+U\.\s?S\.\s+\d+`),
	regexp.MustCompile(`\d+\s+S\.\s*Ct\.\s+\d+`),
	regexp.MustCompile(`\d+\s+L\.\s*Ed\.\s*(?:2d)?\s*\d+`),
	regexp.MustCompile(`(?i)RCW\s+\d+[A-Z]?\.\d+[A-Z]?(?:\.\d+)?`),
	regexp.MustCompile(`(?i)WAC\s+\d+-\d+-\d+`),
	regexp.MustCompile(`\d+\s+U\.S\.C\.(?:\s*§+)?\s*\d+`),
}

var abbreviations = toSet(
	"No.", "Nos.", "no.", "v.", "vs.", "Id.", "id.", "Ibid.", "e.g.", "i.e.", "cf.", "Cf.",
	"Mr.", "Mrs.", "Ms.", "Dr.", "Jr.", "Sr.", "St.", "Inc.", "Co.", "Corp.", "Ltd.",
	"Dep't.", "Dept.", "App.", "Wn.", "Wash.", "Supp.", "Ct.", "Cir.", "Const.",
	"art.", "Art.", "amend.", "Amend.", "para.", "p.", "pp.", "ch.", "sec.", "Sec.",
	"Ex.", "Stat.", "Rev.", "Civ.", "Crim.", "Evid.", "Gen.", "Mun.", "Ann.",
	"et al.", "al.", "Super.", "Ed.", "Div.",
)

var dottedInitials = regexp.MustCompile(`^(?:[A-Za-z]\.)+$`)

type span struct{ start, end int }

// SplitSentences splits text into sentences. A boundary is a '.', '!' or '?'
// followed by whitespace and then an uppercase letter, a quote or an opening
// parenthesis. Periods inside citations and known abbreviations are not
// boundaries. Fragments shorter than minSentenceChars are merged, never dropped.
func SplitSentences(text string) []string {
	spans := sentenceSpans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s.start:s.end]
	}
	return out
}

func sentenceSpans(text string) []span {
	protected := protectedRanges(text)

	var candidates []span
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		end := i + 1
		// keep closing quotes and parentheses with the sentence they close
		for end < len(text) && strings.IndexByte(`"')]`, text[end]) >= 0 {
			end++
		}
		if r, size := utf8.DecodeRuneInString(text[end:]); r == '”' || r == '’' {
			end += size
		}
		if !boundaryFollows(text, end) || inRanges(protected, i) {
			continue
		}
		if c == '.' && isAbbreviation(text, start, i) {
			continue
		}
		candidates = appendTrimmed(candidates, text, start, end)
		start = end
		i = end - 1
	}
	candidates = appendTrimmed(candidates, text, start, len(text))

	return mergeFragments(text, candidates)
}

// boundaryFollows reports whether text[pos:] is whitespace followed by a
// sentence opener.
func boundaryFollows(text string, pos int) bool {
	ws := pos
	for ws < len(text) {
		r, size := utf8.DecodeRuneInString(text[ws:])
		if !unicode.IsSpace(r) {
			break
		}
		ws += size
	}
	if ws == pos || ws >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[ws:])
	return unicode.IsUpper(r) || strings.ContainsRune(`"'(“‘[`, r)
}

// isAbbreviation reports whether the word ending at the period text[dot] is an
// abbreviation or an initial.
func isAbbreviation(text string, from, dot int) bool {
	wordStart := dot
	for wordStart > from {
		r, size := utf8.DecodeLastRuneInString(text[from:wordStart])
		if unicode.IsSpace(r) {
			break
		}
		wordStart -= size
	}
	word := strings.TrimLeft(text[wordStart:dot+1], `"'(“‘[`)
	if _, ok := abbreviations[word]; ok {
		return true
	}
	if dottedInitials.MatchString(word) && len(word) <= 6 {
		// "J." and "U.S." but not a sentence ending in a single lowercase letter
		return unicode.IsUpper(rune(word[0])) || strings.Count(word, ".") > 1
	}
	// "et al."
	if word == "al." && wordStart >= 3 && strings.HasSuffix(text[:wordStart], "et ") {
		return true
	}
	return false
}

func protectedRanges(text string) []span {
	var ranges []span
	for _, re := range citationPatterns {
		for _, m := range re.FindAllStringIndex(text, -1) {
			ranges = append(ranges, span{m[0], m[1]})
		}
	}
	return ranges
}

func inRanges(ranges []span, pos int) bool {
	for _, r := range ranges {
		if pos >= r.start && pos < r.end {
			return true
		}
	}
	return false
}

func appendTrimmed(spans []span, text string, start, end int) []span {
	seg := text[start:end]
	trimmed := strings.TrimSpace(seg)
	if trimmed == "" {
		return spans
	}
	lead := start + strings.Index(seg, trimmed)
	return append(spans, span{lead, lead + len(trimmed)})
}

// mergeFragments joins spans shorter than minSentenceChars to the following
// span, or to the preceding one when the fragment is last.
func mergeFragments(text string, spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	merged := make([]span, 0, len(spans))
	pending := -1
	for _, s := range spans {
		if pending >= 0 {
			s.start = pending
			pending = -1
		}
		if utf8.RuneCountInString(text[s.start:s.end]) < minSentenceChars {
			pending = s.start
			continue
		}
		merged = append(merged, s)
	}
	if pending >= 0 {
		if len(merged) == 0 {
			return []span{{pending, spans[len(spans)-1].end}}
		}
		merged[len(merged)-1].end = spans[len(spans)-1].end
	}
	return merged
}
