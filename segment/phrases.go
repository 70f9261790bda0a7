package segment

import (
	"strings"

	"github.com/poiesic/brieflink/core"
)

const (
	minPhraseLength     = 2
	maxPhraseLengthCap  = 5
	defaultPhraseLength = 4
	defaultMinFrequency = 2
)

var legalKeywords = toSet(
	"court", "judge", "attorney", "counsel", "appellant", "respondent",
	"petitioner", "defendant", "plaintiff", "trial", "appeal", "motion",
	"order", "ruling", "decision", "judgment", "decree", "statute",
	"law", "legal", "constitutional", "evidence", "testimony", "witness",
	"hearing", "proceeding", "case", "matter", "marriage", "divorce",
	"custody", "support", "maintenance", "property", "assets", "debt",
	"alimony", "parenting", "visitation", "modification", "enforcement",
	"jurisdiction", "venue", "service", "notice", "pleading", "rcw",
	"regulation", "code", "criminal", "civil", "felony",
	"misdemeanor", "conviction", "sentence", "probation", "parole",
)

var legalPhrases = toSet(
	"due process", "equal protection", "best interests", "child support",
	"spousal support", "community property", "separate property",
	"parenting plan", "residential time", "decision making",
	"attorney fees", "court costs", "trial court", "appeals court",
	"supreme court", "family court", "superior court",
	"motion to", "order to", "failure to", "burden of proof",
	"standard of review", "abuse of discretion", "clearly erroneous",
	"substantial evidence", "preponderance of evidence",
	"beyond reasonable doubt", "material change", "best interest",
	"de novo", "res judicata", "collateral estoppel", "summary judgment",
	"preliminary injunction", "temporary restraining", "directed verdict",
	"reasonable doubt", "probable cause", "search and seizure",
	"miranda rights", "fifth amendment", "fourth amendment",
	"sixth amendment", "first amendment", "fourteenth amendment",
)

// highValuePatterns are kept even when they occur once.
var highValuePatterns = []string{
	"constitutional", "due process", "equal protection", "first amendment",
	"fourteenth amendment", "best interests", "substantial evidence",
	"abuse of discretion", "clearly erroneous", "standard of review",
	"burden of proof", "preponderance of evidence", "beyond reasonable doubt",
	"material change", "significant change", "contempt of court",
	"res judicata", "collateral estoppel", "statute of limitations",
	"child support", "spousal support", "spousal maintenance",
	"community property", "separate property", "parenting plan",
	"residential time", "decision making authority",
}

var stopPhrases = toSet(
	"of the", "in the", "to the", "for the", "and the", "at the",
	"on the", "by the", "with the", "from the", "this is",
	"that is", "it is", "there is", "here is", "what is",
	"how is", "when is", "where is", "why is", "who is",
	"was the", "were the", "has the", "had the", "have the",
	"be the", "been the", "being the", "as the", "but the",
)

// legalPatterns mark a phrase as legal vocabulary when contained in it.
var legalPatterns = []string{
	"versus", "ex rel", "in re", "in the matter of",
	"rcw", "usc", "cfr", "wac", "pursuant to", "according to",
	"based on", "consistent with", "in accordance with",
	"subject to", "provided that", "notwithstanding",
	"shall be", "may be", "must be", "should be",
}

// containsWords reports whether the word sequence pattern occurs in phrase on
// word boundaries.
func containsWords(phrase, pattern string) bool {
	return strings.Contains(" "+phrase+" ", " "+pattern+" ")
}

func isLegalPhrase(phrase string) bool {
	if _, stop := stopPhrases[phrase]; stop {
		return false
	}
	if _, ok := legalPhrases[phrase]; ok {
		return true
	}
	for _, w := range strings.Fields(phrase) {
		if _, ok := legalKeywords[w]; ok {
			return true
		}
	}
	for _, p := range legalPatterns {
		if containsWords(phrase, p) {
			return true
		}
	}
	return false
}

func isHighValuePhrase(phrase string) bool {
	for _, p := range highValuePatterns {
		if containsWords(phrase, p) {
			return true
		}
	}
	return false
}

type phraseExtractor struct {
	strict       bool
	maxN         int
	minFrequency int
}

// extract aggregates n-grams over all sentences of a document. Phrases are
// returned in order of first occurrence.
func (p phraseExtractor) extract(sentences []core.Sentence) []core.Phrase {
	index := make(map[string]int)
	var phrases []core.Phrase

	for _, s := range sentences {
		tokens := Tokenize(s.Text)
		for n := minPhraseLength; n <= p.maxN; n++ {
			for i := 0; i+n <= len(tokens); i++ {
				text := strings.Join(tokens[i:i+n], " ")
				if p.strict && !isLegalPhrase(text) {
					continue
				}
				if at, seen := index[text]; seen {
					phrases[at].Frequency++
					continue
				}
				index[text] = len(phrases)
				phrases = append(phrases, core.Phrase{
					Text:              text,
					Length:            n,
					Frequency:         1,
					ExampleChunkOrder: s.ChunkOrder,
					ExampleSentence:   s.GlobalOrder,
				})
			}
		}
	}

	kept := phrases[:0]
	for _, ph := range phrases {
		if p.keep(ph) {
			kept = append(kept, ph)
		}
	}
	return kept
}

func (p phraseExtractor) keep(ph core.Phrase) bool {
	if p.strict {
		return ph.Frequency >= 2 || isHighValuePhrase(ph.Text)
	}
	return ph.Frequency >= p.minFrequency
}
