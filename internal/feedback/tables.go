package feedback

import "strings"

// NarrationThreshold is the minimum substitution confidence at which a
// substitution may be described as "you heard X instead of Y".
const NarrationThreshold = 0.55

var contractions = wordSet(
	"i'm", "i've", "i'll", "i'd",
	"you're", "you've", "you'll", "you'd",
	"he's", "he'll", "he'd",
	"she's", "she'll", "she'd",
	"it's", "it'll", "it'd",
	"we're", "we've", "we'll", "we'd",
	"they're", "they've", "they'll", "they'd",
	"that's", "that'll", "there's", "here's", "what's", "who's", "where's",
	"how's", "let's",
	"don't", "doesn't", "didn't", "can't", "couldn't", "won't", "wouldn't",
	"shouldn't", "isn't", "aren't", "wasn't", "weren't", "haven't", "hasn't",
	"hadn't", "mustn't", "needn't", "ain't",
	"could've", "would've", "should've", "might've", "must've",
)

// Multi-word patterns that are run together in connected speech.
var linkingPhrases = wordSet(
	"want to",
	"going to",
	"got to",
	"have to",
	"need to",
	"has to",
	"had to",
	"used to",
	"ought to",
	"kind of",
	"sort of",
	"out of",
	"lot of",
	"a lot of",
	"give me",
	"let me",
)

// Fragments whose inner sounds are commonly dropped ("gonna", "wanna").
var elisionFragments = [][]string{
	{"going", "to"},
	{"want", "to"},
}

// Closed-class words: articles, prepositions, conjunctions, pronouns and
// auxiliaries. These are the words that shrink to weak forms in speech.
var functionWords = wordSet(
	// articles and determiners
	"a", "an", "the", "this", "that", "these", "those", "some", "any",
	"my", "your", "his", "her", "its", "our", "their",
	// prepositions
	"to", "of", "in", "on", "at", "for", "from", "with", "by", "about",
	"as", "into", "onto", "up", "out", "off", "over", "than",
	// conjunctions
	"and", "or", "but", "so", "if", "because", "then",
	// pronouns
	"i", "you", "he", "she", "it", "we", "they", "me", "him", "us", "them",
	// auxiliaries and modals
	"am", "is", "are", "was", "were", "be", "been", "being",
	"do", "does", "did", "have", "has", "had",
	"can", "could", "will", "would", "shall", "should", "may", "might",
	"must",
	// misc particles
	"there", "not",
)

type wordPair struct {
	a, b string
}

// Pairs of words listeners confuse by ear. Lookups are symmetric.
var confusablePairs = pairSet(
	wordPair{"a", "the"},
	wordPair{"a", "an"},
	wordPair{"an", "and"},
	wordPair{"and", "in"},
	wordPair{"your", "you're"},
	wordPair{"its", "it's"},
	wordPair{"their", "there"},
	wordPair{"their", "they're"},
	wordPair{"there", "they're"},
	wordPair{"then", "than"},
	wordPair{"to", "too"},
	wordPair{"to", "two"},
	wordPair{"of", "have"},
	wordPair{"were", "where"},
	wordPair{"we're", "were"},
	wordPair{"whose", "who's"},
	wordPair{"can", "can't"},
	wordPair{"he's", "his"},
	wordPair{"want", "won't"},
	wordPair{"this", "these"},
	wordPair{"that", "the"},
	wordPair{"live", "leave"},
	wordPair{"ship", "sheep"},
	wordPair{"fill", "feel"},
	wordPair{"walk", "work"},
	wordPair{"hear", "here"},
	wordPair{"know", "no"},
	wordPair{"buy", "by"},
	wordPair{"for", "four"},
	wordPair{"right", "write"},
)

var confusableWords = func() map[string]struct{} {
	out := map[string]struct{}{}
	for p := range confusablePairs {
		out[p.a] = struct{}{}
		out[p.b] = struct{}{}
	}
	return out
}()

// IsContraction reports whether phrase is a listed contraction.
func IsContraction(phrase string) bool {
	_, ok := contractions[phrase]
	return ok
}

// IsLinkingPhrase reports whether phrase is a listed linking pattern.
func IsLinkingPhrase(phrase string) bool {
	_, ok := linkingPhrases[phrase]
	return ok
}

// ContainsElisionFragment reports whether tokens contain "going to" or
// "want to" as a contiguous run.
func ContainsElisionFragment(tokens []string) bool {
	for _, frag := range elisionFragments {
		if containsRun(tokens, frag) {
			return true
		}
	}
	return false
}

// IsFunctionWord reports whether word belongs to the closed-class set.
func IsFunctionWord(word string) bool {
	_, ok := functionWords[word]
	return ok
}

// OnlyFunctionWords reports whether tokens is non-empty and contains no
// content word.
func OnlyFunctionWords(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !IsFunctionWord(t) {
			return false
		}
	}
	return true
}

// HasContentWord reports whether any token is outside the closed-class set.
func HasContentWord(tokens []string) bool {
	for _, t := range tokens {
		if !IsFunctionWord(t) {
			return true
		}
	}
	return false
}

// IsConfusablePair reports whether a and b are a known sound-alike pair, in
// either order.
func IsConfusablePair(a, b string) bool {
	if a == b {
		return false
	}
	if _, ok := confusablePairs[wordPair{a, b}]; ok {
		return true
	}
	_, ok := confusablePairs[wordPair{b, a}]
	return ok
}

// IsKnownWord reports whether word appears in any built-in table.
func IsKnownWord(word string) bool {
	if IsFunctionWord(word) || IsContraction(word) {
		return true
	}
	_, ok := confusableWords[word]
	return ok
}

// JoinTokens joins tokens with single spaces.
func JoinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func containsRun(tokens, run []string) bool {
	if len(run) == 0 || len(tokens) < len(run) {
		return false
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		match := true
		for j, w := range run {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func pairSet(pairs ...wordPair) map[wordPair]struct{} {
	out := make(map[wordPair]struct{}, len(pairs))
	for _, p := range pairs {
		out[p] = struct{}{}
	}
	return out
}
