// Package tokenizer turns option text and queries into word sets. It
// lower-cases input, drops markup, splits on separator characters, removes
// stop-words and, for the stemmed variant, reduces words to their stems.
package tokenizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// StemFunc reduces a lower-case word to its stem. An empty result means the
// stemmer has nothing to offer for the word.
type StemFunc func(word string) string

// SnowballStem is the default StemFunc, backed by the snowball English
// stemmer.
func SnowballStem(word string) string {
	return snowballeng.Stem(word, true)
}

var (
	headPattern = regexp.MustCompile(`(?is)<head>.*?</head>`)
	tagPattern  = regexp.MustCompile(`<[^<>]*>`)
)

// Tokenizer is immutable and safe for concurrent use.
type Tokenizer struct {
	stopWords StopWords
	stem      StemFunc
}

// New builds a Tokenizer. A nil stem falls back to SnowballStem.
func New(stopWords StopWords, stem StemFunc) *Tokenizer {
	if stem == nil {
		stem = SnowballStem
	}
	return &Tokenizer{stopWords: stopWords, stem: stem}
}

// Words returns the distinct non-stop words of text in discovery order,
// without stemming.
func (t *Tokenizer) Words(text string) []string {
	return t.collect(text, false)
}

// StemmedWords returns the distinct stems of the non-stop words of text.
// A word whose stem is itself a stop word is dropped.
func (t *Tokenizer) StemmedWords(text string) []string {
	return t.collect(text, true)
}

// Split lower-cases text and splits it on separator characters only.
func (t *Tokenizer) Split(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), IsSeparator)
}

// Stem returns the stem of word, or word itself if the stemmer yields
// nothing.
func (t *Tokenizer) Stem(word string) string {
	if stemmed := t.stem(word); stemmed != "" {
		return stemmed
	}
	return word
}

func (t *Tokenizer) IsStopWord(word string) bool {
	return t.stopWords.Contains(word)
}

func (t *Tokenizer) collect(text string, stemmed bool) []string {
	words := strings.FieldsFunc(stripMarkup(strings.ToLower(text)), IsSeparator)
	seen := make(map[string]struct{}, len(words))
	result := make([]string, 0, len(words))
	for _, word := range words {
		if t.stopWords.Contains(word) {
			continue
		}
		if stemmed {
			word = t.Stem(word)
			if t.stopWords.Contains(word) {
				continue
			}
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		result = append(result, word)
	}
	return result
}

// MarkupSpans returns the byte ranges of text covered by a <head> block or
// a markup tag, in order of appearance. Ranges may overlap.
func MarkupSpans(text string) [][]int {
	if strings.IndexByte(text, '<') < 0 {
		return nil
	}
	spans := headPattern.FindAllStringIndex(text, -1)
	spans = append(spans, tagPattern.FindAllStringIndex(text, -1)...)
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	return spans
}

func stripMarkup(text string) string {
	if strings.IndexByte(text, '<') < 0 {
		return text
	}
	text = headPattern.ReplaceAllString(text, " ")
	return tagPattern.ReplaceAllString(text, " ")
}

// IsSeparator reports whether r splits words. Letters, digits, '-', '#'
// and '+' are word characters.
func IsSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return r != '-' && r != '#' && r != '+'
}
