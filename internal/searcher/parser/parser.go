// Package parser recognises hierarchical "A | B | C" queries and resolves
// them against the configurable tree.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
)

const DefaultSeparator = " | "

// DefaultRootPrefixes lists the leading segments that name the settings
// dialog itself rather than an entry in it. Order matters: the first match
// is stripped and the scan restarts.
func DefaultRootPrefixes(product string) [][]string {
	prefixes := [][]string{
		{"Settings"},
		{"Preferences"},
		{"File", "Settings"},
	}
	if product = strings.TrimSpace(product); product != "" {
		prefixes = append(prefixes,
			[]string{product, "Settings"},
			[]string{product, "Preferences"},
		)
	}
	return append(prefixes,
		[]string{"Einstellungen"},
		[]string{"Paramètres"},
		[]string{"Configuración"},
		[]string{"設定"},
	)
}

// PathParser splits path queries. The zero value uses DefaultSeparator and
// no root prefixes.
type PathParser struct {
	Separator    string
	RootPrefixes [][]string
}

// New builds a parser from the search settings, falling back to the
// default root prefixes when none are configured.
func New(cfg config.SearchConfig) *PathParser {
	prefixes := cfg.RootPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultRootPrefixes(cfg.ProductName)
	}
	return &PathParser{Separator: cfg.PathSeparator, RootPrefixes: prefixes}
}

// PathHit is the deepest configurable a path reached and the unmatched
// trailing segments, joined by single spaces.
type PathHit struct {
	Configurable *configurable.Configurable
	Residual     string
}

// ParsePath returns the segments of text with root prefixes removed, or
// false when text contains no separator or no segment survives.
func (p *PathParser) ParsePath(text string) ([]string, bool) {
	sep := p.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	if !strings.Contains(text, sep) {
		return nil, false
	}
	var segments []string
	for _, part := range strings.Split(text, sep) {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	segments = p.stripRootPrefixes(segments)
	if len(segments) == 0 {
		return nil, false
	}
	return segments, true
}

func (p *PathParser) stripRootPrefixes(segments []string) []string {
	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range p.RootPrefixes {
			if hasPrefixFold(segments, prefix) {
				segments = segments[len(prefix):]
				stripped = true
				break
			}
		}
	}
	return segments
}

func hasPrefixFold(segments, prefix []string) bool {
	if len(prefix) == 0 || len(prefix) > len(segments) {
		return false
	}
	for i, want := range prefix {
		if !strings.EqualFold(segments[i], strings.TrimSpace(want)) {
			return false
		}
	}
	return true
}

// FindByPath descends from roots one segment at a time by display name.
// It stops at a leaf or at the first segment with no matching child and
// reports false only when the first segment matched nothing.
func FindByPath(roots []*configurable.Configurable, segments []string) (*PathHit, bool) {
	level := roots
	var last *configurable.Configurable
	matched := 0
	for matched < len(segments) {
		node := configurable.FindByName(level, segments[matched])
		if node == nil {
			break
		}
		last = node
		matched++
		if !node.IsComposite() {
			break
		}
		level = node.Children
	}
	if last == nil {
		return nil, false
	}
	return &PathHit{
		Configurable: last,
		Residual:     strings.Join(segments[matched:], " "),
	}, true
}

// Resolve parses text and resolves it against roots in one step.
func (p *PathParser) Resolve(roots []*configurable.Configurable, text string) (*PathHit, bool) {
	segments, ok := p.ParsePath(text)
	if !ok {
		return nil, false
	}
	return FindByPath(roots, segments)
}
