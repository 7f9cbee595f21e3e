package classify

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/verte-zerg/hearback/internal/feedback"
)

const (
	// SimilarWordMaxRunes bounds the edit-distance branch of the similar
	// words rule.
	SimilarWordMaxRunes = 6
	// SpellingMaxRunes bounds the spelling rule.
	SpellingMaxRunes = 12
)

// Input is what every rule sees. Phrase is the span under test: the phrase
// hint when the event has one, otherwise its own tokens. Expected and
// Observed are the event's own tokens; Observed is nil when the event has no
// hypothesis span.
type Input struct {
	Phrase   []string
	Expected []string
	Observed []string
	Known    func(word string) bool
}

// HasObserved reports whether an observed span is present.
func (in *Input) HasObserved() bool {
	return len(in.Observed) > 0
}

func (in *Input) known(word string) bool {
	if feedback.IsKnownWord(word) {
		return true
	}
	return in.Known != nil && in.Known(word)
}

// singlePair returns the expected and observed words when both sides are a
// single token.
func (in *Input) singlePair() (string, string, bool) {
	if len(in.Expected) != 1 || len(in.Observed) != 1 {
		return "", "", false
	}
	return in.Expected[0], in.Observed[0], true
}

// Rule is one step of the ordered categorization chain.
type Rule interface {
	Name() string
	Category() feedback.Category
	Match(in *Input) bool
}

// DefaultRules returns the rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		ContractionRule{},
		LinkingRule{},
		ElisionRule{},
		WeakFormRule{},
		SimilarWordsRule{},
		SpellingRule{},
		SpeedChunkingRule{},
		MissedRule{},
	}
}

// Run evaluates rules in order and returns the first match. It falls back to
// Missed when nothing matches.
func Run(rules []Rule, in *Input) (feedback.Category, string) {
	for _, r := range rules {
		if r.Match(in) {
			return r.Category(), r.Name()
		}
	}
	return feedback.Missed, MissedRule{}.Name()
}

type ContractionRule struct{}

func (ContractionRule) Name() string                { return "contraction" }
func (ContractionRule) Category() feedback.Category { return feedback.Contraction }
func (ContractionRule) Match(in *Input) bool {
	return feedback.IsContraction(feedback.JoinTokens(in.Phrase))
}

type LinkingRule struct{}

func (LinkingRule) Name() string                { return "linking" }
func (LinkingRule) Category() feedback.Category { return feedback.Linking }
func (LinkingRule) Match(in *Input) bool {
	return feedback.IsLinkingPhrase(feedback.JoinTokens(in.Phrase))
}

// ElisionRule matches phrases that contain, but are not exactly, a linking
// fragment whose sounds get dropped.
type ElisionRule struct{}

func (ElisionRule) Name() string                { return "elision" }
func (ElisionRule) Category() feedback.Category { return feedback.Elision }
func (ElisionRule) Match(in *Input) bool {
	return feedback.ContainsElisionFragment(in.Phrase)
}

// WeakFormRule matches phrases made only of function words. A single content
// word disqualifies the phrase.
type WeakFormRule struct{}

func (WeakFormRule) Name() string                { return "weak-form" }
func (WeakFormRule) Category() feedback.Category { return feedback.WeakForm }
func (WeakFormRule) Match(in *Input) bool {
	return feedback.OnlyFunctionWords(in.Phrase)
}

// SimilarWordsRule matches known sound-alike pairs, and short words one edit
// apart when the observed word is itself a real word.
type SimilarWordsRule struct{}

func (SimilarWordsRule) Name() string                { return "similar-words" }
func (SimilarWordsRule) Category() feedback.Category { return feedback.SimilarWords }
func (SimilarWordsRule) Match(in *Input) bool {
	if !in.HasObserved() {
		return false
	}
	if feedback.IsConfusablePair(feedback.JoinTokens(in.Expected), feedback.JoinTokens(in.Observed)) {
		return true
	}
	exp, obs, ok := in.singlePair()
	if !ok {
		return false
	}
	if utf8.RuneCountInString(exp) > SimilarWordMaxRunes || utf8.RuneCountInString(obs) > SimilarWordMaxRunes {
		return false
	}
	return matchr.Levenshtein(exp, obs) == 1 && in.known(obs)
}

// SpellingRule matches single-token typos. Spelling is orthographic, so it
// is never narrated as a listening problem.
type SpellingRule struct{}

func (SpellingRule) Name() string                { return "spelling" }
func (SpellingRule) Category() feedback.Category { return feedback.Spelling }
func (SpellingRule) Match(in *Input) bool {
	exp, obs, ok := in.singlePair()
	if !ok {
		return false
	}
	if utf8.RuneCountInString(exp) > SpellingMaxRunes {
		return false
	}
	return matchr.Levenshtein(exp, obs) == 1
}

type SpeedChunkingRule struct{}

func (SpeedChunkingRule) Name() string                { return "speed-chunking" }
func (SpeedChunkingRule) Category() feedback.Category { return feedback.SpeedChunking }
func (SpeedChunkingRule) Match(in *Input) bool {
	return len(in.Phrase) >= 2
}

type MissedRule struct{}

func (MissedRule) Name() string                { return "missed" }
func (MissedRule) Category() feedback.Category { return feedback.Missed }
func (MissedRule) Match(*Input) bool           { return true }
