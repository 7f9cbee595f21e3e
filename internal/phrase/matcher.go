package phrase

import (
	"fmt"
	"strings"
)

// Span is a contiguous reference region [Start, End) identified around an
// error. ID is deterministic: identical spans share one ID.
type Span struct {
	ID         string
	Start      int
	End        int
	Text       string
	PatternKey string
}

// Len returns the number of tokens in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Widened reports whether the span came from a multi-word pattern.
func (s Span) Widened() bool {
	return s.PatternKey != ""
}

// SpanKey builds the memo key for a span.
func SpanKey(start, end int, text string) string {
	return fmt.Sprintf("%d:%d:%s", start, end, text)
}

// Matcher finds pattern spans in a reference token sequence.
type Matcher struct {
	registry *Registry
}

// NewMatcher returns a matcher over registry, or the default registry when nil.
func NewMatcher(registry *Registry) *Matcher {
	if registry == nil {
		registry = Default()
	}
	return &Matcher{registry: registry}
}

// Registry returns the patterns the matcher uses.
func (m *Matcher) Registry() *Registry {
	return m.registry
}

// Match looks for the first pattern, in priority order, that covers the
// reference token at anchor. For a pattern of length n the candidate starts
// are anchor-(n-1) through anchor. Only exact token matches count.
func (m *Matcher) Match(ref []string, anchor int) (start, end int, p *Pattern, ok bool) {
	if anchor < 0 || anchor >= len(ref) {
		return 0, 0, nil, false
	}
	for _, pat := range m.registry.Patterns() {
		for _, form := range pat.Forms() {
			n := len(form)
			for s := anchor - (n - 1); s <= anchor; s++ {
				if s < 0 || s+n > len(ref) {
					continue
				}
				if equalRun(ref[s:s+n], form) {
					return s, s + n, pat, true
				}
			}
		}
	}
	return 0, 0, nil, false
}

// Table memoizes spans for one reference sequence so that events sharing a
// span also share its identity. A Table is not safe for concurrent use; make
// one per alignment.
type Table struct {
	matcher *Matcher
	ref     []string
	spans   map[string]*Span
	order   []*Span
}

// NewTable returns an empty span table over ref.
func (m *Matcher) NewTable(ref []string) *Table {
	return &Table{
		matcher: m,
		ref:     ref,
		spans:   map[string]*Span{},
	}
}

// Expand returns the span for the token at anchor: the first matching
// pattern, or the single token itself when nothing matches.
func (t *Table) Expand(anchor int) *Span {
	if start, end, p, ok := t.matcher.Match(t.ref, anchor); ok {
		return t.intern(start, end, p.Key)
	}
	return t.intern(anchor, anchor+1, "")
}

// Spans returns every distinct span in first-seen order.
func (t *Table) Spans() []*Span {
	return t.order
}

func (t *Table) intern(start, end int, patternKey string) *Span {
	text := strings.Join(t.ref[start:end], " ")
	key := SpanKey(start, end, text)
	if s, ok := t.spans[key]; ok {
		return s
	}
	s := &Span{ID: key, Start: start, End: end, Text: text, PatternKey: patternKey}
	t.spans[key] = s
	t.order = append(t.order, s)
	return s
}

func equalRun(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
