// Package align computes the word-level edit alignment between a reference
// phrase and what the learner typed, and turns the non-matching operations
// into reportable events.
package align

import (
	"github.com/verte-zerg/hearback/internal/phrase"
	"github.com/verte-zerg/hearback/internal/textnorm"
)

// OpKind classifies one aligned pair.
type OpKind int

// Operation kinds.
const (
	OpCorrect OpKind = iota
	OpSubstitution
	OpDeletion
	OpInsertion
)

func (k OpKind) String() string {
	switch k {
	case OpCorrect:
		return "correct"
	case OpSubstitution:
		return "substitution"
	case OpDeletion:
		return "deletion"
	case OpInsertion:
		return "insertion"
	default:
		return "unknown"
	}
}

// Operation is one step of an alignment. RefIdx is -1 for insertions and
// HypIdx is -1 for deletions. Confidence is set only for substitutions.
type Operation struct {
	Kind       OpKind
	RefIdx     int
	HypIdx     int
	Confidence float64
}

// Stats counts operations by kind after gating.
type Stats struct {
	Correct      int
	Substitution int
	Deletion     int
	Insertion    int
	RefWordCount int
}

// Errors returns substitutions + deletions + insertions.
func (s Stats) Errors() int {
	return s.Substitution + s.Deletion + s.Insertion
}

// Result is the full outcome of aligning a hypothesis against a reference.
type Result struct {
	Reference  []textnorm.Token
	Hypothesis []textnorm.Token
	Operations []Operation
	Events     []Event
	Spans      []*phrase.Span
	Stats      Stats
	WER        float64
	Accuracy   float64
}

// RefWords returns the reference token texts.
func (r *Result) RefWords() []string {
	return textnorm.Words(r.Reference)
}

// HypWords returns the hypothesis token texts.
func (r *Result) HypWords() []string {
	return textnorm.Words(r.Hypothesis)
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithSubstitutionThreshold sets the minimum similarity confidence for a raw
// substitution to be kept. Default: 0.5.
func WithSubstitutionThreshold(threshold float64) Option {
	return func(a *Aligner) {
		a.similarity = NewSimilarity(threshold)
	}
}

// WithRegistry replaces the phrase patterns used for phrase hints.
func WithRegistry(r *phrase.Registry) Option {
	return func(a *Aligner) {
		a.matcher = phrase.NewMatcher(r)
	}
}

// Aligner aligns token sequences. It holds no mutable state and is safe for
// concurrent use.
type Aligner struct {
	similarity *Similarity
	matcher    *phrase.Matcher
}

// New returns an Aligner with the given options.
func New(opts ...Option) *Aligner {
	a := &Aligner{
		similarity: NewSimilarity(defaultSubstitutionThreshold),
		matcher:    phrase.NewMatcher(nil),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Similarity returns the substitution gate in use.
func (a *Aligner) Similarity() *Similarity {
	return a.similarity
}

// Align normalizes both texts and aligns them.
func (a *Aligner) Align(reference, hypothesis string) Result {
	return a.AlignTokens(textnorm.Tokens(reference), textnorm.Tokens(hypothesis))
}

// AlignTokens aligns already tokenized sequences.
func (a *Aligner) AlignTokens(ref, hyp []textnorm.Token) Result {
	refWords := textnorm.Words(ref)
	hypWords := textnorm.Words(hyp)

	raw := backtrack(refWords, hypWords, costMatrix(refWords, hypWords))
	ops := a.gate(raw, refWords, hypWords)
	stats := countOps(ops, len(refWords))

	table := a.matcher.NewTable(refWords)
	events := buildEvents(ops, refWords, hypWords, table)

	wer, acc := rates(stats)
	return Result{
		Reference:  ref,
		Hypothesis: hyp,
		Operations: ops,
		Events:     events,
		Spans:      table.Spans(),
		Stats:      stats,
		WER:        wer,
		Accuracy:   acc,
	}
}

// costMatrix fills the (M+1)x(N+1) unit-cost edit distance table.
func costMatrix(ref, hyp []string) [][]int {
	m, n := len(ref), len(hyp)
	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if ref[i-1] == hyp[j-1] {
				d[i][j] = d[i-1][j-1]
				continue
			}
			d[i][j] = 1 + min(d[i-1][j-1], d[i-1][j], d[i][j-1])
		}
	}
	return d
}

// backtrack walks from (M,N) to (0,0). At each cell it prefers, in order: an
// exact match, a substitution, a deletion, and finally an insertion. The
// returned operations are in forward order.
func backtrack(ref, hyp []string, d [][]int) []Operation {
	var ops []Operation
	i, j := len(ref), len(hyp)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1]:
			ops = append(ops, Operation{Kind: OpCorrect, RefIdx: i - 1, HypIdx: j - 1})
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			ops = append(ops, Operation{Kind: OpSubstitution, RefIdx: i - 1, HypIdx: j - 1})
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			ops = append(ops, Operation{Kind: OpDeletion, RefIdx: i - 1, HypIdx: -1})
			i--
		default:
			ops = append(ops, Operation{Kind: OpInsertion, RefIdx: -1, HypIdx: j - 1})
			j--
		}
	}
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}
	return ops
}

// gate runs every raw substitution through the similarity evaluator. Pairs
// that are not plausibly related become an independent deletion followed by
// an insertion.
func (a *Aligner) gate(raw []Operation, ref, hyp []string) []Operation {
	out := make([]Operation, 0, len(raw))
	for _, op := range raw {
		if op.Kind != OpSubstitution {
			out = append(out, op)
			continue
		}
		v := a.similarity.Evaluate(ref[op.RefIdx], hyp[op.HypIdx])
		if v.IsSubstitution {
			op.Confidence = v.Confidence
			out = append(out, op)
			continue
		}
		out = append(out,
			Operation{Kind: OpDeletion, RefIdx: op.RefIdx, HypIdx: -1},
			Operation{Kind: OpInsertion, RefIdx: -1, HypIdx: op.HypIdx},
		)
	}
	return out
}

func countOps(ops []Operation, refWords int) Stats {
	s := Stats{RefWordCount: refWords}
	for _, op := range ops {
		switch op.Kind {
		case OpCorrect:
			s.Correct++
		case OpSubstitution:
			s.Substitution++
		case OpDeletion:
			s.Deletion++
		case OpInsertion:
			s.Insertion++
		}
	}
	return s
}

// rates derives WER and accuracy. An empty reference always scores zero
// accuracy.
func rates(s Stats) (wer, accuracy float64) {
	wer = float64(s.Errors()) / float64(max(s.RefWordCount, 1))
	if s.RefWordCount == 0 {
		return wer, 0
	}
	return wer, clamp01(1 - wer)
}
