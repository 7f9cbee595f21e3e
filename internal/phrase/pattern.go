// Package phrase widens single-word errors into the multi-word patterns
// they belong to ("to" inside "want to").
package phrase

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/hearback/internal/feedback"
)

// Pattern is a curated multi-word unit. Words is the canonical form; Variants
// are alternative surface forms that count as the same pattern. Parent, when
// set, names the key of a broader pattern this one refines.
type Pattern struct {
	Key      string
	Words    []string
	Category feedback.Category
	Parent   string
	Variants [][]string
}

// Forms returns the canonical form followed by each variant.
func (p *Pattern) Forms() [][]string {
	forms := make([][]string, 0, 1+len(p.Variants))
	forms = append(forms, p.Words)
	forms = append(forms, p.Variants...)
	return forms
}

// Text returns the canonical form as a single string.
func (p *Pattern) Text() string {
	return strings.Join(p.Words, " ")
}

// Registry holds patterns in priority order with lookup by key.
type Registry struct {
	patterns []*Pattern
	byKey    map[string]*Pattern
}

// NewRegistry builds a registry and validates that every pattern has a key,
// at least two words, a known category and a resolvable, acyclic parent.
func NewRegistry(patterns []Pattern) (*Registry, error) {
	r := &Registry{byKey: make(map[string]*Pattern, len(patterns))}
	for i := range patterns {
		p := patterns[i]
		if p.Key == "" {
			return nil, fmt.Errorf("pattern %d has no key", i)
		}
		if len(p.Words) < 2 {
			return nil, fmt.Errorf("pattern %q needs at least two words", p.Key)
		}
		if !p.Category.Valid() {
			return nil, fmt.Errorf("pattern %q has unknown category %q", p.Key, p.Category)
		}
		if _, dup := r.byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate pattern key %q", p.Key)
		}
		r.patterns = append(r.patterns, &p)
		r.byKey[p.Key] = &p
	}
	for _, p := range r.patterns {
		if _, err := r.Root(p.Key); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on invalid input.
func MustRegistry(patterns []Pattern) *Registry {
	r, err := NewRegistry(patterns)
	if err != nil {
		panic(err)
	}
	return r
}

// Patterns returns the patterns in priority order.
func (r *Registry) Patterns() []*Pattern {
	return r.patterns
}

// Lookup returns the pattern with the given key.
func (r *Registry) Lookup(key string) (*Pattern, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// Root follows parent links from key to the outermost pattern.
func (r *Registry) Root(key string) (*Pattern, error) {
	p, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("unknown pattern %q", key)
	}
	seen := map[string]struct{}{key: {}}
	for p.Parent != "" {
		parent, ok := r.byKey[p.Parent]
		if !ok {
			return nil, fmt.Errorf("pattern %q has unknown parent %q", p.Key, p.Parent)
		}
		if _, loop := seen[parent.Key]; loop {
			return nil, fmt.Errorf("pattern %q has a parent cycle", key)
		}
		seen[parent.Key] = struct{}{}
		p = parent
	}
	return p, nil
}

// DefaultPatterns lists the built-in patterns, highest priority first.
// Longer patterns come before the shorter ones they contain.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Key: "a-lot-of", Words: []string{"a", "lot", "of"}, Category: feedback.Linking, Parent: "lot-of"},
		{Key: "have-got-to", Words: []string{"have", "got", "to"}, Category: feedback.Linking, Parent: "got-to",
			Variants: [][]string{{"has", "got", "to"}}},
		{Key: "going-to", Words: []string{"going", "to"}, Category: feedback.Elision},
		{Key: "want-to", Words: []string{"want", "to"}, Category: feedback.Elision,
			Variants: [][]string{{"wants", "to"}, {"wanted", "to"}}},
		{Key: "got-to", Words: []string{"got", "to"}, Category: feedback.Linking},
		{Key: "have-to", Words: []string{"have", "to"}, Category: feedback.Linking,
			Variants: [][]string{{"has", "to"}, {"had", "to"}}},
		{Key: "need-to", Words: []string{"need", "to"}, Category: feedback.Linking,
			Variants: [][]string{{"needs", "to"}, {"needed", "to"}}},
		{Key: "used-to", Words: []string{"used", "to"}, Category: feedback.Linking},
		{Key: "kind-of", Words: []string{"kind", "of"}, Category: feedback.Linking},
		{Key: "sort-of", Words: []string{"sort", "of"}, Category: feedback.Linking},
		{Key: "out-of", Words: []string{"out", "of"}, Category: feedback.Linking},
		{Key: "lot-of", Words: []string{"lot", "of"}, Category: feedback.Linking},
		{Key: "give-me", Words: []string{"give", "me"}, Category: feedback.Linking},
		{Key: "let-me", Words: []string{"let", "me"}, Category: feedback.Linking},
		{Key: "pick-up", Words: []string{"pick", "up"}, Category: feedback.SpeedChunking,
			Variants: [][]string{{"picks", "up"}, {"picked", "up"}, {"picking", "up"}}},
		{Key: "turn-off", Words: []string{"turn", "off"}, Category: feedback.SpeedChunking,
			Variants: [][]string{{"turns", "off"}, {"turned", "off"}}},
		{Key: "turn-on", Words: []string{"turn", "on"}, Category: feedback.SpeedChunking,
			Variants: [][]string{{"turns", "on"}, {"turned", "on"}}},
		{Key: "find-out", Words: []string{"find", "out"}, Category: feedback.SpeedChunking,
			Variants: [][]string{{"found", "out"}}},
		{Key: "come-on", Words: []string{"come", "on"}, Category: feedback.SpeedChunking},
		{Key: "at-all", Words: []string{"at", "all"}, Category: feedback.SpeedChunking},
		{Key: "a-little-bit", Words: []string{"a", "little", "bit"}, Category: feedback.SpeedChunking},
		{Key: "as-well", Words: []string{"as", "well"}, Category: feedback.SpeedChunking},
		{Key: "of-course", Words: []string{"of", "course"}, Category: feedback.SpeedChunking},
		{Key: "in-front-of", Words: []string{"in", "front", "of"}, Category: feedback.SpeedChunking},
	}
}

var defaultRegistry = MustRegistry(DefaultPatterns())

// Default returns the shared built-in registry. It is read-only.
func Default() *Registry {
	return defaultRegistry
}
