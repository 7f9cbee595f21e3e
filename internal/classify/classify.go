// Package classify assigns one feedback category to each alignment event
// using an ordered chain of table-driven rules.
package classify

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/feedback"
)

// ErrPrecondition marks an event whose indices do not fit the token slices it
// was categorized against. It signals a bug in event construction.
var ErrPrecondition = errors.New("classify: precondition violated")

// Result is the category chosen for an event and the rule that chose it.
type Result struct {
	Category feedback.Category
	Rule     string
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithRules replaces the rule chain.
func WithRules(rules []Rule) Option {
	return func(c *Categorizer) {
		c.rules = rules
	}
}

// WithLexicon adds words the similar-words rule accepts as real words.
func WithLexicon(words []string) Option {
	return func(c *Categorizer) {
		if c.lexicon == nil {
			c.lexicon = make(map[string]struct{}, len(words))
		}
		for _, w := range words {
			c.lexicon[w] = struct{}{}
		}
	}
}

// Categorizer is read-only after construction and safe for concurrent use.
type Categorizer struct {
	rules   []Rule
	lexicon map[string]struct{}
}

// New returns a Categorizer using DefaultRules unless overridden.
func New(opts ...Option) *Categorizer {
	c := &Categorizer{rules: DefaultRules()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Categorize assigns a category to ev. refTokens and observedTokens are the
// full reference and hypothesis token texts the event indexes into.
func (c *Categorizer) Categorize(ev align.Event, refTokens, observedTokens []string) (Result, error) {
	if err := checkEvent(ev, len(refTokens), len(observedTokens)); err != nil {
		return Result{}, err
	}

	in := &Input{Known: c.known}
	var observed []string
	if ev.HasHyp {
		observed = observedTokens[ev.HypStart:ev.HypEnd]
	}
	start, end := ev.PhraseSpan()
	span := refTokens[start:end]

	if ev.Kind == align.EventExtra {
		// Nothing was expected here; judge what the listener added.
		in.Phrase = observed
		in.Expected = observed
		span = observed
	} else {
		in.Phrase = span
		in.Expected = refTokens[ev.RefStart:ev.RefEnd]
		in.Observed = observed
	}

	cat, rule := Run(c.rules, in)
	if guarded := Guard(cat, span); guarded != cat {
		return Result{Category: guarded, Rule: "content-guard"}, nil
	}
	return Result{Category: cat, Rule: rule}, nil
}

func (c *Categorizer) known(word string) bool {
	_, ok := c.lexicon[word]
	return ok
}

// Guard re-labels weak_form as missed when span holds a content word.
func Guard(cat feedback.Category, span []string) feedback.Category {
	if cat == feedback.WeakForm && feedback.HasContentWord(span) {
		return feedback.Missed
	}
	return cat
}

func checkEvent(ev align.Event, refLen, hypLen int) error {
	if ev.RefStart < 0 || ev.RefEnd < ev.RefStart || ev.RefEnd > refLen {
		return fmt.Errorf("%w: event %s reference span [%d,%d) outside %d tokens",
			ErrPrecondition, ev.ID, ev.RefStart, ev.RefEnd, refLen)
	}
	if ev.Kind != align.EventExtra && ev.RefEnd == ev.RefStart {
		return fmt.Errorf("%w: event %s has an empty reference span", ErrPrecondition, ev.ID)
	}
	if ev.HasHyp {
		if ev.HypStart < 0 || ev.HypEnd <= ev.HypStart || ev.HypEnd > hypLen {
			return fmt.Errorf("%w: event %s hypothesis span [%d,%d) outside %d tokens",
				ErrPrecondition, ev.ID, ev.HypStart, ev.HypEnd, hypLen)
		}
	} else if ev.Kind != align.EventMissing {
		return fmt.Errorf("%w: %s event %s has no hypothesis span", ErrPrecondition, ev.Kind, ev.ID)
	}
	if ev.Hint != nil && (ev.Hint.Start < 0 || ev.Hint.End > refLen || ev.Hint.Start >= ev.Hint.End) {
		return fmt.Errorf("%w: event %s phrase hint [%d,%d) outside %d tokens",
			ErrPrecondition, ev.ID, ev.Hint.Start, ev.Hint.End, refLen)
	}
	return nil
}

// Exposure reports which categories a reference phrase could trigger, in
// enumeration order. It is used to steer practice toward weak categories.
func Exposure(tokens []string) []feedback.Category {
	if len(tokens) == 0 {
		return nil
	}
	hit := map[feedback.Category]bool{}
	for i, tok := range tokens {
		if feedback.IsContraction(tok) {
			hit[feedback.Contraction] = true
		}
		if feedback.IsFunctionWord(tok) {
			hit[feedback.WeakForm] = true
		} else {
			hit[feedback.Missed] = true
		}
		for n := 2; n <= 3 && i+n <= len(tokens); n++ {
			if feedback.IsLinkingPhrase(feedback.JoinTokens(tokens[i : i+n])) {
				hit[feedback.Linking] = true
			}
		}
		if len([]rune(tok)) <= SimilarWordMaxRunes && feedback.IsKnownWord(tok) {
			hit[feedback.SimilarWords] = true
		}
	}
	if feedback.ContainsElisionFragment(tokens) {
		hit[feedback.Elision] = true
	}
	if len(tokens) >= 2 {
		hit[feedback.SpeedChunking] = true
	}
	var out []feedback.Category
	for _, c := range feedback.All() {
		if hit[c] {
			out = append(out, c)
		}
	}
	return out
}
