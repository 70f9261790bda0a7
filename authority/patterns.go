package authority

import (
	"regexp"
	"strings"

	"github.com/poiesic/brieflink/core"
)

var (
	// tableEntry splits a table line into its citation text and its page list.
	// The two are separated by a dot leader or a run of spaces.
	tableEntry = regexp.MustCompile(`(?i)^(.*?)\s*(?:(?:\.\s*){2,}|…+\s*|\s{2,})(passim|\d{1,4}(?:\s*[-–]\s*\d{1,4})?(?:\s*,\s*\d{1,4}(?:\s*[-–]\s*\d{1,4})?)*)\s*$`)

	pageRange = regexp.MustCompile(`(\d{1,4})(?:\s*[-–]\s*(\d{1,4}))?`)

	// tableCategory matches the sub-headings that group table entries.
	tableCategory = regexp.MustCompile(`(?i)^(?:washington |federal |other |state )?(?:cases|statutes|rules(?: of [a-z ]+)?|court rules|regulations|constitutional provisions|other authorities|treatises|secondary sources|ordinances|authorities)(?: cited)?:?$`)

	pageMarker = regexp.MustCompile(`(?i)^(?:[ivxlc]+|\d{1,4}|-\s*\d{1,4}\s*-|page \d+)$`)
)

var (
	reporterCitation = regexp.MustCompile(`(\d{1,4})\s+(Wn\.?\s*(?:App\.?\s*)?2d|Wn\.?\s*App\.?|Wash\.?\s*2d|Wash\.?\s*App\.?|Wash\.?|P\.\s*[23]d|P\.|F\.\s*Supp\.\s*(?:2d|3d)?|F\.\s*(?:2d|3d|4th)|F\.|U\.\s?S\.|S\.\s*Ct\.|L\.\s*Ed\.\s*(?:2d)?)\s+(\d{1,5})`)

	rcwCitation          = regexp.MustCompile(`(?i)\bRCW\s+(\d+[A-Z]?\.\d+[A-Z]?(?:\.\d+[A-Z]?)?)`)
	wacCitation          = regexp.MustCompile(`(?i)\bWAC\s+(\d+-\d+[A-Z]?-\d+)`)
	uscCitation          = regexp.MustCompile(`(\d{1,2})\s+U\.S\.C\.\s*(?:§+\s*)?(\d+[a-z]?)`)
	constitutionCitation = regexp.MustCompile(`(?i)\b(U\.S\.|Wash\.)\s*Const\.\s*(art\.\s*[IVXL]+,\s*§\s*\d+|amend\.\s*[IVXL]+)`)

	courtRule     = regexp.MustCompile(`^(?:RAP|CrR|CrRLJ|CR|CRLJ|ER|GR|RPC|JuCR|RALJ|MAR|SPR|Fed\. R\.)\s`)
	statuteText   = regexp.MustCompile(`(?i)^(?:RCW|WAC)\b|U\.S\.C\.|§`)
	constitutionT = regexp.MustCompile(`(?i)\bconst\.|constitution|\bamend\.|amendment`)
	caseText      = regexp.MustCompile(`\sv\.?\s|^In re\b|^State ex rel\.|\bex parte\b`)
)

// normalizeReporter maps the surface forms of a reporter to one spelling.
func normalizeReporter(raw string) string {
	compact := strings.NewReplacer(" ", "", ".", "").Replace(raw)
	switch {
	case strings.HasPrefix(compact, "Wn") || strings.HasPrefix(compact, "Wash"):
		switch {
		case strings.Contains(compact, "App2d"):
			return "Wn. App. 2d"
		case strings.Contains(compact, "App"):
			return "Wn. App."
		case strings.HasSuffix(compact, "2d"):
			return "Wn.2d"
		case strings.HasPrefix(compact, "Wash"):
			return "Wash."
		}
		return "Wn.2d"
	case compact == "US":
		return "U.S."
	case compact == "SCt":
		return "S. Ct."
	case strings.HasPrefix(compact, "FSupp"):
		return strings.TrimSpace("F. Supp. " + strings.TrimPrefix(compact, "FSupp"))
	case strings.HasPrefix(compact, "LEd"):
		return strings.TrimSpace("L. Ed. " + strings.TrimPrefix(compact, "LEd"))
	case compact == "P" || compact == "F":
		return compact + "."
	case strings.HasPrefix(compact, "P") || strings.HasPrefix(compact, "F"):
		return compact[:1] + "." + compact[1:]
	}
	return strings.Join(strings.Fields(raw), " ")
}

// classify guesses the kind of authority a table entry names.
func classify(text string) core.CitationKind {
	switch {
	case courtRule.MatchString(text):
		return core.CitationRule
	case constitutionT.MatchString(text):
		return core.CitationConstitution
	case statuteText.MatchString(text):
		return core.CitationStatute
	case caseText.MatchString(text) || reporterCitation.MatchString(text):
		return core.CitationCase
	}
	return core.CitationOther
}
