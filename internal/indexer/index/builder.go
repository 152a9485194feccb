package index

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/descriptor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/interner"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
)

// Processor is the callback surface handed to contributors during a build.
type Processor interface {
	// AddOptions indexes every word of text under one descriptor built from
	// the remaining fields. groupName is the display name of the owning
	// configurable.
	AddOptions(text, path, hit, configurableID, groupName string, applyStemming bool) error
	// AddSynonyms files the raw words of each synonym under the descriptor of
	// highlight and records them for synonym expansion.
	AddSynonyms(highlight, configurableID, groupName, path string, synonyms []string) error
}

// Builder accumulates one generation. It is used by a single goroutine.
type Builder struct {
	tok         *tokenizer.Tokenizer
	in          *interner.Interner
	check       func() error
	entries     []Entry
	byWord      map[string]int
	synonyms    map[synonymKey][]string
	descriptors int
	full        error
}

// NewBuilder creates a builder. check is consulted before every tuple and
// aborts the tuple when it returns an error; nil disables it.
func NewBuilder(tok *tokenizer.Tokenizer, check func() error) *Builder {
	if check == nil {
		check = func() error { return nil }
	}
	return &Builder{
		tok:      tok,
		in:       interner.New(),
		check:    check,
		byWord:   make(map[string]int),
		synonyms: make(map[synonymKey][]string),
	}
}

func (b *Builder) AddOptions(text, path, hit, configurableID, groupName string, applyStemming bool) error {
	if err := b.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(configurableID) == "" {
		return fmt.Errorf("option %q has no configurable id: %w", text, apperrors.ErrInvalidInput)
	}
	var words []string
	if applyStemming {
		words = b.tok.StemmedWords(text)
	} else {
		words = b.tok.Words(text)
	}
	if len(words) == 0 {
		return nil
	}
	packed, err := b.pack(configurableID, hit, path, groupName)
	if err != nil {
		return err
	}
	for _, word := range words {
		b.put(word, packed, applyStemming)
	}
	return nil
}

func (b *Builder) AddSynonyms(highlight, configurableID, groupName, path string, synonyms []string) error {
	if err := b.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(configurableID) == "" {
		return fmt.Errorf("synonyms for %q have no configurable id: %w", highlight, apperrors.ErrInvalidInput)
	}
	if len(synonyms) == 0 {
		return nil
	}
	packed, err := b.pack(configurableID, highlight, path, groupName)
	if err != nil {
		return err
	}
	cleaned := make([]string, 0, len(synonyms))
	for _, synonym := range synonyms {
		synonym = strings.ToLower(strings.TrimSpace(synonym))
		if synonym == "" {
			continue
		}
		cleaned = append(cleaned, synonym)
		for _, word := range b.tok.Words(synonym) {
			b.put(word, packed, false)
		}
	}
	id := strings.TrimSpace(configurableID)
	for _, word := range b.tok.Words(highlight) {
		key := synonymKey{word: word, configurableID: id}
		b.synonyms[key] = appendMissing(b.synonyms[key], cleaned...)
	}
	return nil
}

// Full reports the capacity error that stopped the build, if any. The
// built Storage is truncated exactly when Full is non-nil.
func (b *Builder) Full() error {
	return b.full
}

// Build freezes the accumulated state into a Storage.
func (b *Builder) Build(generation uint64) *Storage {
	return &Storage{
		generation:  generation,
		entries:     b.entries,
		byWord:      b.byWord,
		synonyms:    b.synonyms,
		interner:    b.in,
		descriptors: b.descriptors,
		truncated:   b.full != nil,
		builtAt:     time.Now(),
	}
}

func (b *Builder) ready() error {
	if b.full != nil {
		return b.full
	}
	return b.check()
}

func (b *Builder) pack(configurableID, hit, path, groupName string) (uint64, error) {
	packed, err := descriptor.Pack(b.in, configurableID, hit, path, groupName)
	if err != nil {
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			b.full = err
		}
		return 0, err
	}
	return packed, nil
}

// put files packed under word unless it is a stop word. Stemmed words are
// also dropped when their stem is one; raw words are judged as written.
func (b *Builder) put(word string, packed uint64, stemmed bool) {
	if b.tok.IsStopWord(word) {
		return
	}
	stem := b.tok.Stem(word)
	if stemmed && b.tok.IsStopWord(stem) {
		return
	}
	i, ok := b.byWord[word]
	if !ok {
		b.byWord[word] = len(b.entries)
		b.entries = append(b.entries, Entry{Word: word, Stem: stem, Descriptors: []uint64{packed}})
		b.descriptors++
		return
	}
	entry := &b.entries[i]
	for _, existing := range entry.Descriptors {
		if existing == packed {
			return
		}
	}
	entry.Descriptors = append(entry.Descriptors, packed)
	b.descriptors++
}

func appendMissing(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
