package segment

import (
	"errors"
	"fmt"

	"github.com/poiesic/brieflink/core"
)

// Default chunk budgets, in words.
const (
	DefaultMinWords    = 200
	DefaultTargetWords = 350
	DefaultMaxWords    = 500
)

// ErrInvalidChunkSizes indicates chunk budgets that are not ordered min <= target <= max.
var ErrInvalidChunkSizes = errors.New("chunk sizes must satisfy 0 < min <= target <= max")

// Result is the full decomposition of one document.
type Result struct {
	Chunks    []core.Chunk
	Sentences []core.Sentence
	Phrases   []core.Phrase
	Arguments []core.Argument
	Words     []core.WordOccurrence
}

// Segmenter splits brief text into chunks, sentences, phrases, arguments and words.
// A Segmenter is immutable after construction and safe for concurrent use.
type Segmenter struct {
	chunker chunker
	phrases phraseExtractor
}

// Option configures a Segmenter.
type Option func(*Segmenter) error

// WithChunkSizes sets the chunk word budgets.
func WithChunkSizes(minWords, targetWords, maxWords int) Option {
	return func(s *Segmenter) error {
		if minWords <= 0 || minWords > targetWords || targetWords > maxWords {
			return fmt.Errorf("%w: got %d/%d/%d", ErrInvalidChunkSizes, minWords, targetWords, maxWords)
		}
		s.chunker = chunker{minWords: minWords, targetWords: targetWords, maxWords: maxWords}
		return nil
	}
}

// WithRelaxedPhrases keeps every phrase that occurs at least minFrequency
// times instead of only legal vocabulary.
func WithRelaxedPhrases(minFrequency int) Option {
	return func(s *Segmenter) error {
		if minFrequency < 1 {
			minFrequency = 1
		}
		s.phrases.strict = false
		s.phrases.minFrequency = minFrequency
		return nil
	}
}

// WithMaxPhraseLength sets the longest n-gram extracted. Values are clamped to [2, 5].
func WithMaxPhraseLength(n int) Option {
	return func(s *Segmenter) error {
		s.phrases.maxN = max(minPhraseLength, min(n, maxPhraseLengthCap))
		return nil
	}
}

// New creates a Segmenter. Without options it uses the default chunk budgets
// and strict phrase filtering with n-grams of two to four words.
func New(opts ...Option) (*Segmenter, error) {
	s := &Segmenter{
		chunker: chunker{minWords: DefaultMinWords, targetWords: DefaultTargetWords, maxWords: DefaultMaxWords},
		phrases: phraseExtractor{strict: true, maxN: defaultPhraseLength, minFrequency: defaultMinFrequency},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Segment decomposes text. Chunks, sentences and arguments are numbered from 1
// in document order; IDs are left for the store to assign.
func (s *Segmenter) Segment(text string) Result {
	var res Result
	res.Chunks = s.chunker.chunk(text)

	global := 0
	for _, ch := range res.Chunks {
		for i, sp := range sentenceSpans(ch.Text) {
			global++
			body := ch.Text[sp.start:sp.end]
			res.Sentences = append(res.Sentences, core.Sentence{
				ChunkOrder:  ch.Order,
				Order:       i + 1,
				GlobalOrder: global,
				Text:        body,
				WordCount:   CountWords(body),
			})
		}
		res.Words = append(res.Words, indexWords(ch)...)
	}

	res.Phrases = s.phrases.extract(res.Sentences)
	res.Arguments = ExtractArguments(text)
	return res
}

// indexWords records the position of every non-stop token in a chunk.
// Positions count all tokens, stop words included, from 1.
func indexWords(ch core.Chunk) []core.WordOccurrence {
	var out []core.WordOccurrence
	for i, tok := range Tokenize(ch.Text) {
		if IsStopWord(tok) {
			continue
		}
		out = append(out, core.WordOccurrence{Word: tok, ChunkOrder: ch.Order, Position: i + 1})
	}
	return out
}
