package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/feedback"
)

func TestDefaultRulesOrder(t *testing.T) {
	want := []feedback.Category{
		feedback.Contraction,
		feedback.Linking,
		feedback.Elision,
		feedback.WeakForm,
		feedback.SimilarWords,
		feedback.Spelling,
		feedback.SpeedChunking,
		feedback.Missed,
	}
	rules := DefaultRules()
	require.Len(t, rules, len(want))
	for i, r := range rules {
		assert.Equal(t, want[i], r.Category(), "rule %d (%s)", i, r.Name())
	}
}

func TestRunRules(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		want     feedback.Category
		wantRule string
	}{
		{"contraction", Input{Phrase: []string{"you're"}, Expected: []string{"you're"}}, feedback.Contraction, "contraction"},
		{"linking", Input{Phrase: []string{"want", "to"}, Expected: []string{"to"}}, feedback.Linking, "linking"},
		{"elision", Input{Phrase: []string{"i'm", "going", "to"}, Expected: []string{"i'm", "going", "to"}}, feedback.Elision, "elision"},
		{"weak form", Input{Phrase: []string{"of", "the"}, Expected: []string{"of", "the"}}, feedback.WeakForm, "weak-form"},
		{"content word blocks weak form", Input{Phrase: []string{"the", "store"}, Expected: []string{"the", "store"}}, feedback.SpeedChunking, "speed-chunking"},
		{"confusable pair", Input{Phrase: []string{"ship"}, Expected: []string{"ship"}, Observed: []string{"sheep"}}, feedback.SimilarWords, "similar-words"},
		{"short known word", Input{Phrase: []string{"cat"}, Expected: []string{"cat"}, Observed: []string{"can"}}, feedback.SimilarWords, "similar-words"},
		{"short unknown word", Input{Phrase: []string{"cat"}, Expected: []string{"cat"}, Observed: []string{"cet"}}, feedback.Spelling, "spelling"},
		{"long typo", Input{Phrase: []string{"beautiful"}, Expected: []string{"beautiful"}, Observed: []string{"beautifl"}}, feedback.Spelling, "spelling"},
		{"too long for spelling", Input{Phrase: []string{"internationally"}, Expected: []string{"internationally"}, Observed: []string{"internationaly"}}, feedback.Missed, "missed"},
		{"unrelated substitution", Input{Phrase: []string{"coffee"}, Expected: []string{"coffee"}, Observed: []string{"table"}}, feedback.Missed, "missed"},
		{"multi word", Input{Phrase: []string{"red", "car"}, Expected: []string{"red", "car"}}, feedback.SpeedChunking, "speed-chunking"},
		{"single content word", Input{Phrase: []string{"store"}, Expected: []string{"store"}}, feedback.Missed, "missed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.in
			cat, rule := Run(DefaultRules(), &in)
			assert.Equal(t, tc.want, cat)
			assert.Equal(t, tc.wantRule, rule)
		})
	}
}

func TestRunEmptyChainFallsBackToMissed(t *testing.T) {
	cat, rule := Run(nil, &Input{Phrase: []string{"you're"}})
	assert.Equal(t, feedback.Missed, cat)
	assert.Equal(t, "missed", rule)
}

func TestSimilarWordsNeedsObserved(t *testing.T) {
	in := &Input{Phrase: []string{"ship"}, Expected: []string{"ship"}}
	assert.False(t, SimilarWordsRule{}.Match(in))
	assert.False(t, SpellingRule{}.Match(in))
}

func TestLexiconExtendsKnownWords(t *testing.T) {
	ev := align.Event{
		ID: "substitution:1-2:1-2", Kind: align.EventSubstitution,
		RefStart: 1, RefEnd: 2, HypStart: 1, HypEnd: 2, HasHyp: true,
	}
	ref := []string{"the", "cat", "sat"}
	hyp := []string{"the", "cot", "sat"}

	res, err := New().Categorize(ev, ref, hyp)
	require.NoError(t, err)
	assert.Equal(t, feedback.Spelling, res.Category)

	res, err = New(WithLexicon([]string{"cot"})).Categorize(ev, ref, hyp)
	require.NoError(t, err)
	assert.Equal(t, feedback.SimilarWords, res.Category)
}

func TestCategorizeAlignedEvents(t *testing.T) {
	a := align.New()
	c := New()

	cases := []struct {
		ref, hyp string
		want     []feedback.Category
	}{
		{"I want to go home", "I want go home", []feedback.Category{feedback.Linking}},
		{"you're late", "late", []feedback.Category{feedback.Contraction}},
		{"the red car", "the car", []feedback.Category{feedback.Missed}},
		{"put it on the table", "put it table", []feedback.Category{feedback.WeakForm}},
		{"I want coffee", "I want tea", []feedback.Category{feedback.Missed, feedback.Missed}},
	}
	for _, tc := range cases {
		res := a.Align(tc.ref, tc.hyp)
		require.Len(t, res.Events, len(tc.want), "%q vs %q", tc.ref, tc.hyp)
		for i, ev := range res.Events {
			got, err := c.Categorize(ev, res.RefWords(), res.HypWords())
			require.NoError(t, err)
			assert.Equal(t, tc.want[i], got.Category, "%q vs %q event %s", tc.ref, tc.hyp, ev.ID)
		}
	}
}

func TestCategorizeExtraUsesObservedTokens(t *testing.T) {
	res := align.New().Align("I want coffee", "I want the coffee")
	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	require.Equal(t, align.EventExtra, ev.Kind)

	got, err := New().Categorize(ev, res.RefWords(), res.HypWords())
	require.NoError(t, err)
	assert.Equal(t, feedback.WeakForm, got.Category)
}

func TestCategorizePreconditions(t *testing.T) {
	ref := []string{"a", "b"}
	hyp := []string{"c"}
	bad := []align.Event{
		{ID: "neg", Kind: align.EventMissing, RefStart: -1, RefEnd: 1},
		{ID: "past-end", Kind: align.EventMissing, RefStart: 1, RefEnd: 3},
		{ID: "empty", Kind: align.EventMissing, RefStart: 1, RefEnd: 1},
		{ID: "hyp", Kind: align.EventSubstitution, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 2, HasHyp: true},
		{ID: "no-hyp", Kind: align.EventExtra, RefStart: 2, RefEnd: 2},
	}
	for _, ev := range bad {
		_, err := New().Categorize(ev, ref, hyp)
		require.Error(t, err, ev.ID)
		assert.True(t, errors.Is(err, ErrPrecondition), ev.ID)
	}
}

func TestGuard(t *testing.T) {
	assert.Equal(t, feedback.Missed, Guard(feedback.WeakForm, []string{"the", "store"}))
	assert.Equal(t, feedback.WeakForm, Guard(feedback.WeakForm, []string{"of", "the"}))
	assert.Equal(t, feedback.Linking, Guard(feedback.Linking, []string{"want", "to"}))
}

type alwaysWeak struct{}

func (alwaysWeak) Name() string                { return "always-weak" }
func (alwaysWeak) Category() feedback.Category { return feedback.WeakForm }
func (alwaysWeak) Match(*Input) bool           { return true }

func TestCategorizeAppliesGuard(t *testing.T) {
	ev := align.Event{ID: "missing:0-1:-1--1", Kind: align.EventMissing, RefStart: 0, RefEnd: 1}
	got, err := New(WithRules([]Rule{alwaysWeak{}})).Categorize(ev, []string{"store"}, nil)
	require.NoError(t, err)
	assert.Equal(t, feedback.Missed, got.Category)
	assert.Equal(t, "content-guard", got.Rule)
}

func TestExposure(t *testing.T) {
	got := Exposure([]string{"i'm", "going", "to", "the", "store"})
	assert.Equal(t, []feedback.Category{
		feedback.WeakForm,
		feedback.Linking,
		feedback.Elision,
		feedback.Contraction,
		feedback.SimilarWords,
		feedback.SpeedChunking,
		feedback.Missed,
	}, got)

	assert.Nil(t, Exposure(nil))
	assert.Equal(t, []feedback.Category{feedback.Missed}, Exposure([]string{"elephant"}))
}
