// Package highlight locates the words of a search filter inside arbitrary,
// possibly marked-up text so a renderer can emphasise them.
package highlight

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
)

// Range is a half-open byte range into MarkedText.Text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MarkedText is the original text with the ranges to emphasise, sorted and
// non-overlapping.
type MarkedText struct {
	Text   string  `json:"text"`
	Ranges []Range `json:"ranges"`
}

// Render wraps every range in open and close.
func (m MarkedText) Render(open, close string) string {
	if len(m.Ranges) == 0 {
		return m.Text
	}
	var b strings.Builder
	b.Grow(len(m.Text) + len(m.Ranges)*(len(open)+len(close)))
	last := 0
	for _, r := range m.Ranges {
		b.WriteString(m.Text[last:r.Start])
		b.WriteString(open)
		b.WriteString(m.Text[r.Start:r.End])
		b.WriteString(close)
		last = r.End
	}
	b.WriteString(m.Text[last:])
	return b.String()
}

type Highlighter struct {
	tok *tokenizer.Tokenizer
}

func New(tok *tokenizer.Tokenizer) *Highlighter {
	return &Highlighter{tok: tok}
}

type occurrence struct {
	word       string
	start, end int
}

// MarkMatches marks the parts of text that match filter. A filter word found
// anywhere in text, even inside a longer word, marks every place it occurs
// and nothing else; the other filter words mark any text word with the same
// stem. Stop words are never marked, and text inside markup tags or a <head>
// block is ignored.
func (h *Highlighter) MarkMatches(text, filter string) MarkedText {
	marked := MarkedText{Text: text}
	filterWords := h.tok.Split(filter)
	if len(filterWords) == 0 || text == "" {
		return marked
	}

	spans := tokenizer.MarkupSpans(text)
	occurrences := occurrencesOutside(text, spans)
	present := make(map[string]struct{}, len(occurrences))
	for _, occ := range occurrences {
		present[occ.word] = struct{}{}
	}

	// Substring offsets are only valid when lower-casing keeps byte lengths.
	lower := strings.ToLower(text)
	bySubstring := len(lower) == len(text)

	var ranges []Range
	quoted := make(map[string]struct{})
	var rest []string
	for _, w := range filterWords {
		if h.tok.IsStopWord(w) {
			continue
		}
		switch {
		case bySubstring && strings.Contains(lower, w):
			quoted[w] = struct{}{}
			ranges = appendSubstrings(ranges, lower, w, spans)
		case !bySubstring && hasWord(present, w):
			quoted[w] = struct{}{}
		default:
			rest = append(rest, w)
		}
	}
	stems := make(map[string]struct{})
	for _, s := range h.tok.StemmedWords(strings.Join(rest, " ")) {
		stems[s] = struct{}{}
	}

	for _, occ := range occurrences {
		if h.tok.IsStopWord(occ.word) {
			continue
		}
		if _, ok := quoted[occ.word]; ok {
			if !bySubstring {
				ranges = append(ranges, Range{Start: occ.start, End: occ.end})
			}
			continue
		}
		if _, ok := stems[h.tok.Stem(occ.word)]; ok {
			ranges = append(ranges, Range{Start: occ.start, End: occ.end})
		}
	}

	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	for _, r := range ranges {
		marked.Ranges = appendRange(marked.Ranges, r)
	}
	return marked
}

func hasWord(present map[string]struct{}, w string) bool {
	_, ok := present[w]
	return ok
}

// appendSubstrings adds every occurrence of w in lower that lies outside
// spans.
func appendSubstrings(ranges []Range, lower, w string, spans [][]int) []Range {
	for from := 0; from < len(lower); {
		i := strings.Index(lower[from:], w)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(w)
		if !insideSpan(start, end, spans) {
			ranges = append(ranges, Range{Start: start, End: end})
		}
		from = start + 1
	}
	return ranges
}

func insideSpan(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

// occurrencesOutside lists the lower-cased words of text outside spans with
// their byte offsets.
func occurrencesOutside(text string, spans [][]int) []occurrence {
	var out []occurrence
	emit := func(start, end int) {
		if insideSpan(start, end, spans) {
			return
		}
		out = append(out, occurrence{word: strings.ToLower(text[start:end]), start: start, end: end})
	}
	start := -1
	for i, r := range text {
		if tokenizer.IsSeparator(r) {
			if start >= 0 {
				emit(start, i)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		emit(start, len(text))
	}
	return out
}

func appendRange(ranges []Range, r Range) []Range {
	if n := len(ranges); n > 0 && r.Start <= ranges[n-1].End {
		if r.End > ranges[n-1].End {
			ranges[n-1].End = r.End
		}
		return ranges
	}
	return append(ranges, r)
}
