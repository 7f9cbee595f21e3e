package align

import (
	"math"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/verte-zerg/hearback/internal/feedback"
)

const (
	defaultSubstitutionThreshold = 0.5
	confusablePairConfidence     = 0.9
	phoneticFloor                = 0.7
	phoneticBonus                = 0.1
	lengthPenalty                = 0.6
)

// Verdict is the similarity gate's decision on a raw substitution.
type Verdict struct {
	IsSubstitution bool
	Confidence     float64
}

// Similarity decides whether two differing words are related closely enough
// to be reported as "heard X as Y". It is read-only and safe for concurrent
// use.
type Similarity struct {
	threshold float64
}

// NewSimilarity returns a gate that accepts substitutions whose confidence is
// at least threshold.
func NewSimilarity(threshold float64) *Similarity {
	return &Similarity{threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (s *Similarity) Threshold() float64 {
	return s.threshold
}

// Evaluate scores ref against hyp. Known confusable pairs score high
// outright. Other pairs blend character-level similarity with Jaro-Winkler,
// lift words that share a Double Metaphone code and penalize large length
// differences.
func (s *Similarity) Evaluate(ref, hyp string) Verdict {
	conf := Confidence(ref, hyp)
	return Verdict{IsSubstitution: conf >= s.threshold, Confidence: conf}
}

// Confidence returns how likely hyp is a mishearing of ref, in [0, 1].
func Confidence(ref, hyp string) float64 {
	if ref == hyp {
		return 1
	}
	if ref == "" || hyp == "" {
		return 0
	}
	if feedback.IsConfusablePair(ref, hyp) {
		return confusablePairConfidence
	}

	refLen := utf8.RuneCountInString(ref)
	hypLen := utf8.RuneCountInString(hyp)
	maxLen := max(refLen, hypLen)

	dist := matchr.Levenshtein(ref, hyp)
	charSim := 1 - float64(dist)/float64(maxLen)
	jw := matchr.JaroWinkler(ref, hyp, false)
	conf := 0.5*charSim + 0.5*jw

	if soundsAlike(ref, hyp) {
		conf = math.Max(conf, phoneticFloor) + phoneticBonus
	}

	diff := refLen - hypLen
	if diff < 0 {
		diff = -diff
	}
	if diff > max(2, maxLen/2) {
		conf *= lengthPenalty
	}
	return clamp01(conf)
}

func soundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
