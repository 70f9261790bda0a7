package segment

import (
	"regexp"
	"strings"
)

var (
	tokenPattern     = regexp.MustCompile(`\b[\w'-]+\b`)
	possessiveSuffix = regexp.MustCompile(`'s?$`)
)

var stopWords = toSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
	"be", "have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "may", "might", "must", "shall", "can", "this", "that", "these",
	"those", "it", "its", "he", "she", "they", "we", "you", "i", "me", "him",
	"her", "us", "them", "my", "your", "his", "our", "their", "which", "who",
	"whom", "what", "when", "where", "why", "how", "all", "each", "every",
	"both", "few", "more", "most", "other", "some", "such", "no", "nor", "not",
	"only", "own", "same", "so", "than", "too", "very", "just", "also", "now",
	"here", "there", "then", "once", "if", "because", "until", "while", "about",
	"against", "between", "into", "through", "during", "before", "after",
	"above", "below", "up", "down", "out", "off", "over", "under", "again",
	"further", "any", "however", "therefore", "thus", "hence", "although",
)

// Tokenize lowercases text and returns its word tokens. Tokens shorter than two
// characters or without a letter are dropped and possessive endings are removed.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if len(tok) < 2 || !hasLetter(tok) {
			continue
		}
		if tok = possessiveSuffix.ReplaceAllString(tok, ""); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// IsStopWord reports whether word is too common to index.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func hasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			return true
		}
	}
	return false
}

func toSet(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
