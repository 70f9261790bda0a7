package ai

import "strings"

// IssueCategories are the top-level categories an analyzer may assign to
// an appellate issue.
var IssueCategories = []string{
	"Criminal Law & Procedure",
	"Constitutional Law",
	"Civil Procedure",
	"Evidence",
	"Contracts",
	"Torts / Personal Injury",
	"Property Law",
	"Employment Law",
	"Estate & Probate",
	"Administrative Law",
	"Business & Commercial",
	"Insurance Law",
	"Environmental Law",
	"Family Law",
	"Spousal Support / Maintenance",
	"Child Support",
	"Parenting Plan / Custody / Visitation",
	"Property Division / Debt Allocation",
	"Attorney Fees & Costs",
	"Procedural & Evidentiary Issues",
	"Jurisdiction & Venue",
	"Enforcement & Contempt Orders",
	"Modification Orders",
	"Miscellaneous / Unclassified",
}

// NormalizeIssueCategory maps a model-supplied category onto IssueCategories,
// case-insensitively and by prefix. Unknown values become
// "Miscellaneous / Unclassified".
func NormalizeIssueCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return "Miscellaneous / Unclassified"
	}
	for _, known := range IssueCategories {
		if strings.EqualFold(known, c) {
			return known
		}
	}
	for _, known := range IssueCategories {
		k := strings.ToLower(known)
		if strings.HasPrefix(k, c) || strings.HasPrefix(c, k) {
			return known
		}
	}
	return "Miscellaneous / Unclassified"
}

// FallbackSummary returns the first n runes of text, trimmed.
func FallbackSummary(text string, n int) string {
	return strings.TrimSpace(Prefix(text, n))
}

// Prefix returns at most the first n runes of text.
func Prefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
