// Package textnorm canonicalizes raw text into comparable word tokens.
//
// Normalization lowercases, folds compatibility characters, strips
// punctuation (keeping apostrophes inside contractions), repairs contractions
// typed without an apostrophe and expands casual reduced forms such as
// "gonna" into their canonical multi-word form. The output is stable under
// re-normalization.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Missing-apostrophe spellings mapped to their canonical contraction. Words
// that are also ordinary English words ("its", "were", "ill", "well", "id")
// are deliberately absent.
var apostropheRepairs = map[string]string{
	"dont":     "don't",
	"doesnt":   "doesn't",
	"didnt":    "didn't",
	"cant":     "can't",
	"couldnt":  "couldn't",
	"wouldnt":  "wouldn't",
	"shouldnt": "shouldn't",
	"isnt":     "isn't",
	"arent":    "aren't",
	"wasnt":    "wasn't",
	"werent":   "weren't",
	"havent":   "haven't",
	"hasnt":    "hasn't",
	"hadnt":    "hadn't",
	"mustnt":   "mustn't",
	"aint":     "ain't",
	"im":       "i'm",
	"ive":      "i've",
	"youre":    "you're",
	"youve":    "you've",
	"youll":    "you'll",
	"youd":     "you'd",
	"theyre":   "they're",
	"theyve":   "they've",
	"theyll":   "they'll",
	"theyd":    "they'd",
	"weve":     "we've",
	"thats":    "that's",
	"whats":    "what's",
	"theres":   "there's",
	"heres":    "here's",
	"shes":     "she's",
	"hes":      "he's",
	"couldve":  "could've",
	"wouldve":  "would've",
	"shouldve": "should've",
}

// Casual reduced forms mapped to their canonical multi-word expansion.
var reducedForms = map[string][]string{
	"gonna": {"going", "to"},
	"wanna": {"want", "to"},
	"gotta": {"got", "to"},
	"kinda": {"kind", "of"},
	"sorta": {"sort", "of"},
	"gimme": {"give", "me"},
	"lemme": {"let", "me"},
	"hafta": {"have", "to"},
	"outta": {"out", "of"},
	"lotta": {"lot", "of"},
	"dunno": {"don't", "know"},
}

// Normalize returns the canonical form of raw. It never fails: input with
// nothing recognizable comes back as the cleaned-up word sequence.
func Normalize(raw string) string {
	words := cleanWords(raw)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if fixed, ok := apostropheRepairs[w]; ok {
			w = fixed
		}
		if exp, ok := reducedForms[w]; ok {
			out = append(out, exp...)
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// cleanWords folds, lowercases and strips punctuation, returning the
// whitespace-separated words.
func cleanWords(raw string) []string {
	folded := norm.NFKC.String(raw)
	runes := []rune(strings.ToLower(folded))

	var b strings.Builder
	b.Grow(len(runes))
	for i, r := range runes {
		switch {
		case isApostrophe(r):
			if i > 0 && i+1 < len(runes) && isWordRune(runes[i-1]) && isWordRune(runes[i+1]) {
				b.WriteRune('\'')
			}
		case isWordRune(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), isSeparator(r):
			b.WriteRune(' ')
		default:
			// Other punctuation and symbols vanish.
		}
	}
	return strings.Fields(b.String())
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', 'ʼ', '´', '`':
		return true
	}
	return false
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '‐', '‑', '‒', '–', '—', '―', '/', '\\':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
