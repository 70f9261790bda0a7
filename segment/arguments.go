package segment

import (
	"regexp"
	"strings"

	"github.com/poiesic/brieflink/core"
)

type markerKind int

const (
	kindRoman markerKind = iota + 1
	kindCapital
	kindDigit
	kindLower
)

// outlineLine matches a numbered heading line: marker, then title.
var outlineLine = regexp.MustCompile(`^\s*(?:\(([A-Za-z0-9]{1,6})\)|([IVXLC]{1,6}|[A-Za-z]|\d{1,3})[.)])\s+(\S.*)$`)

const maxOutlineLineChars = 300

type outlineEntry struct {
	marker string
	kind   markerKind
	title  string
	line   int
}

type frame struct {
	index int
	kind  markerKind
	// lastCapital is the most recent capital-letter child, used to tell
	// the letter "I" after "H" from the numeral "I".
	lastCapital byte
	children    int
}

// ExtractArguments builds the argument outline of text.
//
// The outline starts at the ARGUMENT heading. When that heading carries a roman
// numeral ("III. ARGUMENT") it becomes the single top-level node and the next
// roman numeral ends the outline; otherwise roman numerals under it are top
// level. The outline also ends at the next heading of any other section.
// Capital letters nest under roman numerals, digits under capitals and
// lowercase letters under digits; a marker only attaches to the nearest
// shallower open node.
func ExtractArguments(text string) []core.Argument {
	lines := strings.Split(text, "\n")

	start, rootMarker := -1, ""
	for i, l := range lines {
		if label, marker, ok := MatchHeading(l); ok && label == core.SectionArgument {
			// the last occurrence skips a table of contents that lists the heading
			start, rootMarker = i, marker
		}
	}
	if start < 0 {
		return nil
	}

	var (
		args  []core.Argument
		stack []*frame
		roots frame
	)

	push := func(e outlineEntry) {
		for len(stack) > 0 && stack[len(stack)-1].kind >= e.kind {
			stack = stack[:len(stack)-1]
		}
		parent := &roots
		parentIndex := -1
		path := e.marker
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
			parentIndex = parent.index
			path = args[parentIndex].Path + "." + e.marker
		}
		parent.children++
		if e.kind == kindCapital {
			parent.lastCapital = e.marker[0]
		}
		idx := len(args)
		args = append(args, core.Argument{
			Index:       idx,
			ParentIndex: parentIndex,
			Level:       len(stack) + 1,
			Marker:      e.marker,
			Path:        path,
			Title:       e.title,
			Position:    parent.children,
			Line:        e.line,
		})
		stack = append(stack, &frame{index: idx, kind: e.kind})
	}

	if roman := strings.ToUpper(rootMarker); roman != "" && isRoman(roman) {
		push(outlineEntry{marker: roman, kind: kindRoman, title: "ARGUMENT", line: start + 1})
	}
	rooted := len(args) == 1

	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		label, _, isHeading := MatchHeading(line)
		otherSection := isHeading && label != core.SectionArgument
		e, ok := parseOutlineLine(line, i+1)
		if !ok {
			if otherSection {
				break
			}
			continue
		}
		e.kind = classify(e.marker, stack, &roots)
		// "A. Facts" is a sub-heading; "V. CONCLUSION" is the next section
		if otherSection && e.kind == kindRoman {
			break
		}
		if e.kind == kindRoman {
			if rooted {
				break
			}
			e.marker = strings.ToUpper(e.marker)
		}
		push(e)
	}
	return args
}

func parseOutlineLine(line string, lineNo int) (outlineEntry, bool) {
	if len(line) > maxOutlineLineChars {
		return outlineEntry{}, false
	}
	m := outlineLine.FindStringSubmatch(line)
	if m == nil {
		return outlineEntry{}, false
	}
	marker := m[1]
	if marker == "" {
		marker = m[2]
	}
	title := strings.TrimSpace(tocEntry.ReplaceAllString(m[3], ""))
	if title == "" || !startsTitle(title) {
		return outlineEntry{}, false
	}
	return outlineEntry{marker: marker, title: title, line: lineNo}, true
}

// startsTitle reports whether s opens like a heading rather than running text
// that happens to follow a list marker.
func startsTitle(s string) bool {
	c := s[0]
	return c >= 'A' && c <= 'Z' || c == '"' || c == '\'' || c == '(' || strings.HasPrefix(s, "“")
}

// classify assigns a marker kind. The single letters I, V, X, L and C are
// capitals when they continue a capital-letter sequence at the current depth
// (H then I, U then V) and roman numerals otherwise.
func classify(marker string, stack []*frame, roots *frame) markerKind {
	switch {
	case isDigits(marker):
		return kindDigit
	case len(marker) == 1 && marker[0] >= 'a' && marker[0] <= 'z':
		return kindLower
	case len(marker) == 1 && isRoman(marker):
		for i := len(stack) - 1; i >= -1; i-- {
			f := roots
			if i >= 0 {
				f = stack[i]
			}
			if f.lastCapital != 0 {
				if f.lastCapital+1 == marker[0] {
					return kindCapital
				}
				break
			}
		}
		return kindRoman
	case isRoman(marker):
		return kindRoman
	case len(marker) == 1 && marker[0] >= 'A' && marker[0] <= 'Z':
		return kindCapital
	default:
		return kindLower
	}
}

func isRoman(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte("IVXLC", s[i]) < 0 {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
