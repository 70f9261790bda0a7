// Package metadata derives structural facts about a brief from its path.
//
// Briefs are stored as <year>-briefs/<case folder>/<file>.pdf. The case folder
// carries the docket number as issued by the court and the filename carries the
// filing party, the brief role and sometimes a second case identifier.
// Parsing is total: anything unrecognized degrades to an empty or Unknown field.
package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/brieflink/core"
)

// Record is the result of parsing one path.
type Record struct {
	Year           int    // 0 when the path has no year folder
	FolderCaseID   string // raw docket string from the case folder
	FilenameCaseID string // empty when the filename carries no numeric id
	Party          core.Party
	Role           core.BriefRole
	SequenceToken  string // leading digits of the filename, ordering hint only
	FileName       string
	SourceFile     string // tree-relative natural key
}

// HasFilenameCaseID reports whether the filename carried a numeric id.
func (r Record) HasFilenameCaseID() bool {
	return r.FilenameCaseID != ""
}

var (
	yearFolder    = regexp.MustCompile(`^(\d{4})-briefs$`)
	leadingDigits = regexp.MustCompile(`^\d+`)
)

// Parse extracts a Record from path. Both '/' and the OS separator are accepted,
// so object-store keys parse the same way as local paths.
func Parse(path string) Record {
	parts := splitPath(path)
	if len(parts) == 0 {
		return Record{}
	}

	rec := Record{FileName: parts[len(parts)-1]}
	stem := strings.TrimSuffix(rec.FileName, filepath.Ext(rec.FileName))

	yearIdx := -1
	for i := len(parts) - 2; i >= 0; i-- {
		if m := yearFolder.FindStringSubmatch(parts[i]); m != nil {
			yearIdx = i
			rec.Year, _ = strconv.Atoi(m[1])
			break
		}
	}

	// The key keeps every segment from the year folder down, or the whole
	// path when there is none, so same-named files in sibling case folders
	// never share a key.
	switch {
	case yearIdx >= 0:
		if yearIdx+1 < len(parts)-1 {
			rec.FolderCaseID = parts[yearIdx+1]
		}
		rec.SourceFile = strings.Join(parts[yearIdx:], "/")
	default:
		if len(parts) >= 2 && hasDigit(parts[len(parts)-2]) {
			rec.FolderCaseID = parts[len(parts)-2]
		}
		rec.SourceFile = strings.Join(parts, "/")
	}

	rec.FilenameCaseID = filenameCaseID(stem)
	rec.SequenceToken = leadingDigits.FindString(stem)

	words := tokenize(stem)
	rec.Party = detectParty(words)
	rec.Role = detectRole(words, rec.Party)
	if rec.Party == core.PartyUnknown {
		// Keywords run together in one case ("APPELLANTREPLY") never split
		// into words. Scan for them as substrings, accepting only a single party.
		embedded := embeddedKeywords(stem)
		if p := detectParty(embedded); p != core.PartyUnknown {
			rec.Party = p
			if rec.Role == core.RoleUnknown {
				rec.Role = detectRole(embedded, p)
			}
		}
	}

	return rec
}

func splitPath(path string) []string {
	path = filepath.ToSlash(path)
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

// filenameCaseID returns the last underscore-delimited token of stem when it
// is fully numeric. A stem that is a single token has no embedded id; that
// token is the sequence prefix.
func filenameCaseID(stem string) string {
	idx := strings.LastIndexByte(stem, '_')
	if idx < 0 {
		return ""
	}
	last := stem[idx+1:]
	if last == "" {
		return ""
	}
	for _, r := range last {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return last
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// tokenize lowercases stem and splits it into alphabetic words. Digits and
// punctuation separate words, and so do lower-to-upper case transitions
// ("AppellantReply" yields "appellant", "reply").
func tokenize(stem string) []string {
	var words []string
	var cur strings.Builder
	var prev rune

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range stem {
		switch {
		case unicode.IsLetter(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			}
			cur.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
		prev = r
	}
	flush()
	return words
}

var keywords = []string{
	"appellant", "petitioner", "respondent",
	"reply", "response", "answer", "opening", "initial",
	"additional", "grounds", "supplemental", "amended", "brief",
}

// embeddedKeywords returns the known keywords found anywhere in stem.
func embeddedKeywords(stem string) []string {
	lower := strings.ToLower(stem)
	var found []string
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}

var partyWords = map[string]core.Party{
	"appellant":   core.PartyAppellant,
	"appellants":  core.PartyAppellant,
	"petitioner":  core.PartyAppellant,
	"petitioners": core.PartyAppellant,
	"respondent":  core.PartyRespondent,
	"respondents": core.PartyRespondent,
}

// detectParty returns the single party named in words. A filename naming both
// sides, or neither, is ambiguous.
func detectParty(words []string) core.Party {
	found := core.PartyUnknown
	for _, w := range words {
		p, ok := partyWords[w]
		if !ok {
			continue
		}
		if found != core.PartyUnknown && found != p {
			return core.PartyUnknown
		}
		found = p
	}
	return found
}

func detectRole(words []string, party core.Party) core.BriefRole {
	has := make(map[string]bool, len(words))
	for _, w := range words {
		has[w] = true
	}
	supplemental := has["supplemental"] || has["supp"]
	amended := has["amended"]

	switch {
	case has["reply"]:
		switch {
		case supplemental:
			return core.RoleSupplementalReply
		case amended:
			return core.RoleAmendedReply
		}
		return core.RoleReply
	case has["response"] || has["answer"]:
		switch {
		case supplemental:
			return core.RoleSupplementalResponse
		case amended:
			return core.RoleAmendedResponse
		}
		return core.RoleResponse
	case has["opening"] || has["initial"]:
		return core.RoleOpening
	case has["additional"] && has["grounds"]:
		return core.RoleAdditionalGrounds
	case supplemental:
		return core.RoleSupplemental
	case amended:
		return core.RoleAmended
	}

	if has["brief"] {
		switch party {
		case core.PartyRespondent:
			return core.RoleResponse
		case core.PartyAppellant:
			return core.RoleOpening
		}
	}
	return core.RoleUnknown
}
