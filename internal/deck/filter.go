package deck

import "github.com/verte-zerg/hearback/internal/textnorm"

// FilterFunc returns true when a phrase should be kept.
type FilterFunc func(Phrase) bool

// Scorable keeps phrases that still have words after normalization.
func Scorable(p Phrase) bool {
	return len(textnorm.Tokens(p.Text)) > 0
}

// MaxWords keeps phrases of at most n normalized words. n <= 0 keeps all.
func MaxWords(n int) FilterFunc {
	return func(p Phrase) bool {
		return n <= 0 || len(textnorm.Tokens(p.Text)) <= n
	}
}

// WithTag keeps phrases carrying tag. An empty tag keeps all.
func WithTag(tag string) FilterFunc {
	return func(p Phrase) bool {
		if tag == "" {
			return true
		}
		for _, t := range p.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}
}

// Filter returns the phrases every filter keeps.
func Filter(phrases []Phrase, filters ...FilterFunc) []Phrase {
	out := make([]Phrase, 0, len(phrases))
next:
	for _, p := range phrases {
		for _, f := range filters {
			if !f(p) {
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}
