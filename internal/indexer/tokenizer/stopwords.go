package tokenizer

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// StopWords is an immutable set of lower-case words excluded from indexing
// and from query tokenisation. The zero value is an empty set.
type StopWords struct {
	words map[string]struct{}
}

func NewStopWords(words ...string) StopWords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return StopWords{words: set}
}

func DefaultStopWords() StopWords {
	return NewStopWords(defaultStopWords...)
}

// LoadStopWords reads one word per line. Blank lines and lines starting with
// '#' are ignored.
func LoadStopWords(path string) (StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		return StopWords{}, fmt.Errorf("opening stop-word list %s: %w", path, err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return StopWords{}, fmt.Errorf("reading stop-word list %s: %w", path, err)
	}
	return NewStopWords(words...), nil
}

// LoadStopWordsOrEmpty returns the built-in list when path is empty. A file
// that cannot be read degrades to an empty set with a warning.
func LoadStopWordsOrEmpty(path string) StopWords {
	if path == "" {
		return DefaultStopWords()
	}
	words, err := LoadStopWords(path)
	if err != nil {
		slog.Warn("stop words unavailable, continuing without",
			"path", path,
			"error", err,
		)
		return NewStopWords()
	}
	return words
}

func (s StopWords) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

func (s StopWords) Len() int {
	return len(s.words)
}
