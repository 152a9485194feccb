// Package index holds one immutable generation of the searchable-options
// index and the builder that produces it.
package index

import (
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/descriptor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/interner"
)

// Entry is one indexed word with its precomputed stem and the packed
// descriptors filed under it.
type Entry struct {
	Word        string
	Stem        string
	Descriptors []uint64
}

type synonymKey struct {
	word           string
	configurableID string
}

// Storage is a published generation. It is never mutated after Build returns,
// so readers may use it without locking.
type Storage struct {
	generation  uint64
	entries     []Entry
	byWord      map[string]int
	synonyms    map[synonymKey][]string
	interner    *interner.Interner
	descriptors int
	truncated   bool
	builtAt     time.Time
}

func (s *Storage) Generation() uint64 { return s.generation }

func (s *Storage) BuiltAt() time.Time { return s.builtAt }

// Truncated reports whether the build stopped early because the interner ran
// out of ids.
func (s *Storage) Truncated() bool { return s.truncated }

func (s *Storage) Words() int { return len(s.entries) }

func (s *Storage) Descriptors() int { return s.descriptors }

func (s *Storage) Interned() int { return s.interner.Len() }

// Entries returns the indexed words in discovery order. Callers must not
// modify the result.
func (s *Storage) Entries() []Entry {
	return s.entries
}

// lookup returns the packed descriptors filed under exactly word.
func (s *Storage) lookup(word string) []uint64 {
	i, ok := s.byWord[word]
	if !ok {
		return nil
	}
	return s.entries[i].Descriptors
}

// Unpack decodes a descriptor packed by this generation.
func (s *Storage) Unpack(word uint64) descriptor.OptionDescription {
	return descriptor.Unpack(word, s.interner)
}

// ConfigurableID decodes only the configurable id of a descriptor.
func (s *Storage) ConfigurableID(word uint64) string {
	return descriptor.ConfigurableID(word, s.interner)
}

// Synonyms returns the synonyms recorded for word within configurableID.
func (s *Storage) Synonyms(word, configurableID string) ([]string, bool) {
	syn, ok := s.synonyms[synonymKey{word: strings.ToLower(word), configurableID: configurableID}]
	return slices.Clone(syn), ok
}
