package opinion

import (
	"regexp"
	"strings"
	"time"
)

// Outcome values stored on a case.
const (
	OutcomeAffirmed  = "Affirmed"
	OutcomeReversed  = "Reversed"
	OutcomeRemanded  = "Remanded"
	OutcomeDismissed = "Dismissed"
)

// Legal roles credited with winning an appeal.
const (
	RoleAppellant  = "Appellant"
	RoleRespondent = "Respondent"
)

const (
	headerChars = 3000
	footerChars = 5000
)

// Opinion is what Parse recovers from an opinion's text. Fields that could
// not be found are left empty.
type Opinion struct {
	FileID        string // docket as printed, e.g. "83895-4-I"
	Title         string // "STATE OF WASHINGTON v. JOHN DOE"
	Court         string // "Court of Appeals, Division I"
	Division      string // "I", "II" or "III"
	Filed         time.Time
	EnBanc        bool
	County        string
	Outcome       string
	OutcomeDetail string // "reversed and remanded"; empty for a plain outcome
}

// WinnerLegalRole credits a reversal or remand to the appellant and an
// affirmance or dismissal to the respondent.
func (o Opinion) WinnerLegalRole() string {
	switch o.Outcome {
	case OutcomeReversed, OutcomeRemanded:
		return RoleAppellant
	case OutcomeAffirmed, OutcomeDismissed:
		return RoleRespondent
	}
	return ""
}

var (
	// PDF extraction splits words at line ends.
	splitInitial   = regexp.MustCompile(`(^|[^A-Za-z])([A-Z])[ \t]*\n[ \t]*([A-Z]{2,})`)
	splitHyphen    = regexp.MustCompile(`([A-Z]+)-([A-Z]{1,3})[ \t]*\n[ \t]*([A-Z]+)`)
	splitAtHyphen  = regexp.MustCompile(`([A-Za-z]+)-[ \t]*\n[ \t]*([A-Za-z]+)`)
	docketRe       = regexp.MustCompile(`(?i)\bNo\.?\s*(\d{2,6}-\d(?:-(?:III|II|I))?)\b`)
	bareDocketRe   = regexp.MustCompile(`\b(\d{2,6}-\d(?:-(?:III|II|I))?)\b`)
	supremeCourtRe = regexp.MustCompile(`(?i)SUPREME\s+COURT[,\s]+(?:OF\s+)?(?:THE\s+)?STATE\s+OF\s+WASHINGTON`)
	appealsCourtRe = regexp.MustCompile(`(?i)COURT\s+OF\s+APPEALS`)
	divisionRe     = regexp.MustCompile(`(?i)DIVISION\s+(ONE|TWO|THREE|III|II|I|[123])\b`)
	filedRe        = regexp.MustCompile(`(?i)Filed[:\s]+([A-Za-z]+\.?\s+\d{1,2},?\s+\d{4})`)
	enBancRe       = regexp.MustCompile(`(?i)\bEN\s+BANC\b`)
	countyRe       = regexp.MustCompile(`(?i)Superior\s+Court\s+(?:of|for)\s+([A-Za-z]+(?:\s+[A-Za-z]+)?)\s+County`)
	versusLine     = regexp.MustCompile(`(?i)^vs?\.?$`)
	roleSuffix     = regexp.MustCompile(`(?i)^(.*?)[,\s]*\b(?:respondents?|appellants?|petitioners?|plaintiffs?|defendants?)\b.*$`)
)

var divisions = map[string]string{
	"ONE": "I", "1": "I", "I": "I",
	"TWO": "II", "2": "II", "II": "II",
	"THREE": "III", "3": "III", "III": "III",
}

type outcomePattern struct {
	re      *regexp.Regexp
	outcome string
	detail  string
}

// Most specific first; the first match wins.
var outcomePatterns = []outcomePattern{
	{regexp.MustCompile(`(?i)affirm(?:ed)?\s+in\s+part[,\s]+(?:and\s+)?revers(?:ed)?\s+in\s+part`), OutcomeAffirmed, "affirmed in part, reversed in part"},
	{regexp.MustCompile(`(?i)revers(?:ed)?\s+in\s+part[,\s]+(?:and\s+)?affirm(?:ed)?\s+in\s+part`), OutcomeReversed, "reversed in part, affirmed in part"},
	{regexp.MustCompile(`(?i)(?:we\s+)?revers(?:e|ed)\s+(?:and\s+)?remand`), OutcomeReversed, "reversed and remanded"},
	{regexp.MustCompile(`(?i)(?:we\s+)?affirm(?:ed)?\s+(?:and\s+)?remand`), OutcomeAffirmed, "affirmed and remanded"},
	{regexp.MustCompile(`(?i)\bwe\s+remand\b`), OutcomeRemanded, ""},
	{regexp.MustCompile(`(?i)\bwe\s+affirm\b`), OutcomeAffirmed, ""},
	{regexp.MustCompile(`(?i)\bwe\s+reverse\b`), OutcomeReversed, ""},
	{regexp.MustCompile(`(?i)\bwe\s+dismiss\b`), OutcomeDismissed, ""},
	{regexp.MustCompile(`(?i)\bis\s+(?:hereby\s+)?affirmed\b`), OutcomeAffirmed, ""},
	{regexp.MustCompile(`(?i)\bis\s+(?:hereby\s+)?reversed\b`), OutcomeReversed, ""},
	{regexp.MustCompile(`(?i)\bis\s+(?:hereby\s+)?remanded\b`), OutcomeRemanded, ""},
	{regexp.MustCompile(`(?i)\bis\s+(?:hereby\s+)?dismissed\b`), OutcomeDismissed, ""},
	{regexp.MustCompile(`(?i)\baffirmed\b`), OutcomeAffirmed, ""},
	{regexp.MustCompile(`(?i)\breversed\b`), OutcomeReversed, ""},
	{regexp.MustCompile(`(?i)\bremanded\b`), OutcomeRemanded, ""},
	{regexp.MustCompile(`(?i)\bdismissed\b`), OutcomeDismissed, ""},
}

var dateLayouts = []string{"January 2, 2006", "January 2 2006", "Jan. 2, 2006", "Jan 2, 2006", "Jan. 2 2006", "Jan 2 2006"}

// Parse extracts the caption and disposition of an opinion.
func Parse(text string) Opinion {
	text = normalize(text)
	header := prefix(text, headerChars)
	footer := suffix(text, footerChars)

	var op Opinion
	if m := docketRe.FindStringSubmatch(header); m != nil {
		op.FileID = strings.ToUpper(m[1])
	}
	op.Title = caption(header)

	switch {
	case supremeCourtRe.MatchString(header):
		op.Court = "Supreme Court"
	case appealsCourtRe.MatchString(header):
		op.Court = "Court of Appeals"
		if m := divisionRe.FindStringSubmatch(header); m != nil {
			op.Division = divisions[strings.ToUpper(m[1])]
			op.Court += ", Division " + op.Division
		}
	}

	if m := filedRe.FindStringSubmatch(header); m != nil {
		op.Filed = parseDate(m[1])
	}
	op.EnBanc = enBancRe.MatchString(header)
	if m := countyRe.FindStringSubmatch(text); m != nil {
		op.County = m[1]
	}

	for _, p := range outcomePatterns {
		if p.re.MatchString(footer) {
			op.Outcome, op.OutcomeDetail = p.outcome, p.detail
			break
		}
	}
	return op
}

// DocketFromName finds a docket number in a file name.
func DocketFromName(name string) string {
	return strings.ToUpper(bareDocketRe.FindString(name))
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = splitInitial.ReplaceAllString(text, "$1$2$3")
	text = splitHyphen.ReplaceAllString(text, "$1-$2$3")
	return splitAtHyphen.ReplaceAllString(text, "$1-$2")
}

// caption reads the party block around the "v." line. Captions are usually
// set beside a column of ')' characters holding the docket, so each line is
// cut at the first ')'.
func caption(header string) string {
	var lines []string
	for _, line := range strings.Split(header, "\n") {
		if i := strings.IndexAny(line, ")|"); i >= 0 {
			line = line[:i]
		}
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		if !versusLine.MatchString(line) {
			continue
		}
		first := partyBefore(lines[:i])
		second := partyAfter(lines[i+1:])
		if first != "" && second != "" {
			return first + " v. " + second
		}
	}
	return ""
}

func partyBefore(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if name := partyName(lines[i]); name != "" {
			return name
		}
	}
	return ""
}

func partyAfter(lines []string) string {
	for _, line := range lines {
		if name := partyName(line); name != "" {
			return name
		}
	}
	return ""
}

// partyName strips a trailing role ("Respondent,") and punctuation from line.
func partyName(line string) string {
	if m := roleSuffix.FindStringSubmatch(line); m != nil {
		line = m[1]
	}
	return strings.TrimRight(strings.TrimSpace(line), ",.;:")
}

func parseDate(s string) time.Time {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
