// Package executor answers option queries against the current index
// snapshot. Every public method loads the snapshot once and works on that
// pointer only, so a concurrent rebuild is never observed half way.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/descriptor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/metrics"
)

// Source provides index snapshots. *indexer.Engine implements it.
type Source interface {
	EnsureBuilt(ctx context.Context) (*index.Storage, error)
	Tokenizer() *tokenizer.Tokenizer
}

// Request is one search over the configurable tree.
type Request struct {
	// Groups are the roots of the tree to search.
	Groups []*configurable.Configurable
	Query  string
	// Previous is the ContentHits of the prior query when Incremental.
	Previous    []*configurable.Configurable
	Incremental bool
}

// Hit is the result of GetConfigurables. SpotlightFilter is the text to
// highlight inside the hits: the query, or the unmatched part of a path.
type Hit struct {
	NameHits        []*configurable.Configurable
	NameFullHits    []*configurable.Configurable
	ContentHits     []*configurable.Configurable
	SpotlightFilter string
}

// SpotlightResult is what to highlight inside one configurable.
type SpotlightResult struct {
	ConfigurableID string   `json:"configurable_id"`
	Words          []string `json:"words"`
	Paths          []string `json:"paths"`
}

type Executor struct {
	source  Source
	paths   *parser.PathParser
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an executor. m may be nil.
func New(source Source, paths *parser.PathParser, m *metrics.Metrics) *Executor {
	if paths == nil {
		paths = &parser.PathParser{}
	}
	return &Executor{
		source:  source,
		paths:   paths,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// FindByPrefix returns every descriptor filed under a word whose raw or
// stemmed form starts with the raw or stemmed prefix. It reports false when
// the stemmed prefix is blank, which callers treat as no constraint.
func (e *Executor) FindByPrefix(ctx context.Context, prefix string) ([]descriptor.OptionDescription, bool, error) {
	start := time.Now()
	st, err := e.source.EnsureBuilt(ctx)
	if err != nil {
		e.observe("prefix", start, 0, err)
		return nil, false, fmt.Errorf("find by prefix %q: %w", prefix, err)
	}
	packed, ok := e.findByPrefix(st, prefix)
	out := make([]descriptor.OptionDescription, 0, len(packed))
	for _, word := range packed {
		out = append(out, st.Unpack(word))
	}
	e.observe("prefix", start, len(out), nil)
	return out, ok, nil
}

// GetConfigurables finds the configurables matching req.Query by display
// name and by indexed content.
func (e *Executor) GetConfigurables(ctx context.Context, req Request) (*Hit, error) {
	start := time.Now()
	st, err := e.source.EnsureBuilt(ctx)
	if err != nil {
		e.observe("search", start, 0, err)
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}
	hit := e.getConfigurables(st, req)
	e.observe("search", start, len(hit.ContentHits)+len(hit.NameHits), nil)
	e.logger.Debug("search executed",
		"query", req.Query,
		"incremental", req.Incremental,
		"name_hits", len(hit.NameHits),
		"content_hits", len(hit.ContentHits),
		"generation", st.Generation(),
	)
	return hit, nil
}

// ReplaceSynonyms swaps each word that has synonyms registered for
// configurableID with those synonyms. Other words are kept.
func (e *Executor) ReplaceSynonyms(ctx context.Context, words []string, configurableID string) ([]string, error) {
	st, err := e.source.EnsureBuilt(ctx)
	if err != nil {
		return nil, fmt.Errorf("replace synonyms: %w", err)
	}
	return replaceSynonyms(st, words, configurableID), nil
}

// GetInnerPaths returns the sorted option paths inside configurableID that
// match every stemmed word of query.
func (e *Executor) GetInnerPaths(ctx context.Context, configurableID, query string) ([]string, error) {
	start := time.Now()
	st, err := e.source.EnsureBuilt(ctx)
	if err != nil {
		e.observe("paths", start, 0, err)
		return nil, fmt.Errorf("inner paths of %s: %w", configurableID, err)
	}
	paths := e.innerPaths(st, configurableID, query)
	e.observe("paths", start, len(paths), nil)
	return paths, nil
}

// Spotlight reports what to highlight after drilling into one configurable:
// the filter's words with their synonyms and the matching inner paths.
func (e *Executor) Spotlight(ctx context.Context, configurableID, filter string) (*SpotlightResult, error) {
	start := time.Now()
	st, err := e.source.EnsureBuilt(ctx)
	if err != nil {
		e.observe("spotlight", start, 0, err)
		return nil, fmt.Errorf("spotlight %s: %w", configurableID, err)
	}
	words := e.source.Tokenizer().Words(filter)
	result := &SpotlightResult{
		ConfigurableID: configurableID,
		Words:          mergeUnique(words, replaceSynonyms(st, words, configurableID)),
		Paths:          e.innerPaths(st, configurableID, filter),
	}
	e.observe("spotlight", start, len(result.Paths), nil)
	return result, nil
}

func (e *Executor) getConfigurables(st *index.Storage, req Request) *Hit {
	tok := e.source.Tokenizer()
	trimmed := strings.TrimSpace(req.Query)

	// Path segments match case-insensitively; the residual keeps the
	// user's casing.
	if path, ok := e.paths.Resolve(req.Groups, trimmed); ok {
		single := []*configurable.Configurable{path.Configurable}
		return &Hit{
			NameHits:        single,
			NameFullHits:    single,
			ContentHits:     single,
			SpotlightFilter: path.Residual,
		}
	}

	refining := req.Incremental && len(req.Previous) > 0
	var candidates []*configurable.Configurable
	if refining {
		candidates = uniqueByID(req.Previous)
	} else {
		candidates = uniqueByID(configurable.Flatten(req.Groups))
	}

	query := strings.ToLower(trimmed)
	hit := &Hit{SpotlightFilter: req.Query}
	words := tok.Words(query)
	for _, c := range candidates {
		if c.DisplayName == "" {
			continue
		}
		if len(words) == 0 || strings.Contains(strings.ToLower(c.DisplayName), query) {
			hit.NameHits = append(hit.NameHits, c)
			hit.NameFullHits = append(hit.NameFullHits, c)
		}
	}

	if query == "" {
		hit.ContentHits = candidates
	} else {
		options := words
		if len(options) == 0 {
			options = tok.Split(query)
		}
		if len(options) == 0 {
			options = []string{query}
		}
		if ids, ok := e.contentIDs(st, options); ok {
			for _, c := range candidates {
				if _, match := ids[c.ID]; match {
					hit.ContentHits = append(hit.ContentHits, c)
				}
			}
		}
	}

	if refining && len(hit.ContentHits) == len(candidates) {
		return e.getConfigurables(st, Request{Groups: req.Groups, Query: req.Query})
	}
	return hit
}

// contentIDs intersects the configurable ids matched by each word. It
// reports false when any word gives no constraint.
func (e *Executor) contentIDs(st *index.Storage, words []string) (map[string]struct{}, bool) {
	var matched map[string]struct{}
	for _, word := range words {
		packed, ok := e.findByPrefix(st, word)
		if !ok {
			return nil, false
		}
		ids := make(map[string]struct{}, len(packed))
		for _, p := range packed {
			ids[st.ConfigurableID(p)] = struct{}{}
		}
		if matched == nil {
			matched = ids
		} else {
			for id := range matched {
				if _, keep := ids[id]; !keep {
					delete(matched, id)
				}
			}
		}
		if len(matched) == 0 {
			break
		}
	}
	return matched, true
}

func (e *Executor) findByPrefix(st *index.Storage, prefix string) ([]uint64, bool) {
	raw := strings.ToLower(strings.TrimSpace(prefix))
	stemmed := strings.TrimSpace(e.source.Tokenizer().Stem(raw))
	if stemmed == "" {
		return nil, false
	}
	seen := make(map[uint64]struct{})
	var out []uint64
	for _, entry := range st.Entries() {
		if !matchesPrefix(entry, raw, stemmed) {
			continue
		}
		for _, d := range entry.Descriptors {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out, true
}

func matchesPrefix(entry index.Entry, raw, stemmed string) bool {
	return strings.HasPrefix(entry.Word, raw) ||
		strings.HasPrefix(entry.Word, stemmed) ||
		strings.HasPrefix(entry.Stem, raw) ||
		strings.HasPrefix(entry.Stem, stemmed)
}

func (e *Executor) innerPaths(st *index.Storage, configurableID, query string) []string {
	tokens := e.source.Tokenizer().StemmedWords(query)
	if len(tokens) == 0 {
		return []string{}
	}

	var matched map[uint64]struct{}
	for _, token := range tokens {
		packed, ok := e.findByPrefix(st, token)
		if !ok {
			continue
		}
		current := make(map[uint64]struct{}, len(packed))
		for _, p := range packed {
			if st.ConfigurableID(p) == configurableID {
				current[p] = struct{}{}
			}
		}
		if matched == nil {
			matched = current
		} else {
			for p := range matched {
				if _, keep := current[p]; !keep {
					delete(matched, p)
				}
			}
		}
		if len(matched) == 0 {
			return []string{}
		}
	}

	var best, fallback []string
	for p := range matched {
		desc := st.Unpack(p)
		if desc.Path == "" {
			continue
		}
		fallback = append(fallback, desc.Path)
		if containsAll(strings.ToLower(desc.Hit), tokens) {
			best = append(best, desc.Path)
		}
	}
	if len(best) > 0 {
		return sortedUnique(best)
	}
	if len(fallback) == 0 {
		return []string{}
	}
	sort.Strings(fallback)
	return fallback[:1]
}

func replaceSynonyms(st *index.Storage, words []string, configurableID string) []string {
	var out []string
	for _, word := range words {
		if synonyms, ok := st.Synonyms(word, configurableID); ok {
			out = mergeUnique(out, synonyms)
			continue
		}
		out = mergeUnique(out, []string{word})
	}
	if out == nil {
		return []string{}
	}
	return out
}

func (e *Executor) observe(operation string, start time.Time, results int, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "hit"
	switch {
	case err != nil:
		outcome = "error"
	case results == 0:
		outcome = "empty"
	}
	e.metrics.QueriesTotal.WithLabelValues(operation, outcome).Inc()
	e.metrics.QueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func containsAll(text string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func uniqueByID(list []*configurable.Configurable) []*configurable.Configurable {
	seen := make(map[string]struct{}, len(list))
	out := make([]*configurable.Configurable, 0, len(list))
	for _, c := range list {
		if c == nil {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func mergeUnique(dst []string, values []string) []string {
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

func sortedUnique(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
