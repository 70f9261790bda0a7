package segment

import (
	"regexp"
	"strings"

	"github.com/poiesic/brieflink/core"
)

type heading struct {
	text  string
	label string
	words int
}

// headings is ordered longest first so that the most specific variant wins.
var headings = buildHeadings([][2]string{
	{"ISSUES PERTAINING TO ASSIGNMENTS OF ERROR", core.SectionIssues},
	{"STATEMENT OF THE ISSUES", core.SectionIssues},
	{"STATEMENT OF ISSUES", core.SectionIssues},
	{"ISSUES PRESENTED", core.SectionIssues},
	{"ISSUES", core.SectionIssues},
	{"TABLE OF AUTHORITIES", core.SectionTableOfAuthorities},
	{"TABLE OF CASES", core.SectionTableOfAuthorities},
	{"AUTHORITIES CITED", core.SectionTableOfAuthorities},
	{"TABLE OF CONTENTS", core.SectionTableOfContents},
	{"PRELIMINARY STATEMENT", core.SectionIntroduction},
	{"INTRODUCTION", core.SectionIntroduction},
	{"ASSIGNMENTS OF ERROR", core.SectionAssignmentsOfError},
	{"ASSIGNMENT OF ERROR", core.SectionAssignmentsOfError},
	{"STATEMENT OF THE CASE", core.SectionStatementOfCase},
	{"STATEMENT OF CASE", core.SectionStatementOfCase},
	{"STATEMENT OF THE FACTS", core.SectionStatementOfFacts},
	{"STATEMENT OF FACTS", core.SectionStatementOfFacts},
	{"FACTS", core.SectionStatementOfFacts},
	{"SUMMARY OF THE ARGUMENT", core.SectionSummaryOfArgument},
	{"SUMMARY OF ARGUMENT", core.SectionSummaryOfArgument},
	{"ARGUMENT", core.SectionArgument},
	{"CONCLUSION", core.SectionConclusion},
	{"APPENDIX", core.SectionAppendix},
})

func buildHeadings(pairs [][2]string) []heading {
	hs := make([]heading, 0, len(pairs))
	for _, p := range pairs {
		hs = append(hs, heading{text: p[0], label: p[1], words: len(strings.Fields(p[0]))})
	}
	return hs
}

var (
	// outlineMarker matches "III. ", "A) ", "(1) " and similar prefixes.
	outlineMarker = regexp.MustCompile(`^(?:\(([A-Za-z0-9]{1,6})\)|([IVXLC]{1,6}|[A-Za-z]|\d{1,3})[.)])\s+`)

	// tocEntry matches lines that end in a dot leader or a page number,
	// including the roman numerals of front matter pages.
	tocEntry = regexp.MustCompile(`(?:(?:\.{3,}|…)\s*(?:[ivxlc]+|\d{1,4})?|\s\d{1,4})\s*$`)
)

// maxExtraHeadingWords bounds the words a heading line may carry beyond the
// heading itself, e.g. "ARGUMENT IN REPLY".
const maxExtraHeadingWords = 3

// MatchHeading reports whether line is a section heading and returns its label.
// The marker is the outline prefix of the line ("III" for "III. ARGUMENT"), if any.
// Table of contents entries, which end in dot leaders or page numbers, never match.
func MatchHeading(line string) (label, marker string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || tocEntry.MatchString(line) {
		return "", "", false
	}

	rest := line
	if m := outlineMarker.FindStringSubmatchIndex(line); m != nil {
		marker = submatch(line, m, 1)
		if marker == "" {
			marker = submatch(line, m, 2)
		}
		rest = line[m[1]:]
	}

	upper := strings.ToUpper(rest)
	words := len(strings.Fields(rest))
	for _, h := range headings {
		if !strings.HasPrefix(upper, h.text) {
			continue
		}
		if len(upper) > len(h.text) && isLetter(upper[len(h.text)]) {
			continue
		}
		if words > h.words+maxExtraHeadingWords {
			continue
		}
		return h.label, marker, true
	}
	return "", "", false
}

func submatch(s string, m []int, group int) string {
	if m[2*group] < 0 {
		return ""
	}
	return s[m[2*group]:m[2*group+1]]
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}
