package generator

import (
	"testing"

	"github.com/verte-zerg/hearback/internal/deck"
	"github.com/verte-zerg/hearback/internal/feedback"
)

var phrases = []deck.Phrase{
	{ID: "plain", Text: "elephants swim"},
	{ID: "linking", Text: "I want to go"},
}

func TestGenerateUniform(t *testing.T) {
	g := NewWithSeed(1)
	out := g.Generate(phrases, 10)
	if len(out) != 10 {
		t.Fatalf("got %d phrases, want 10", len(out))
	}
	if g.Generate(nil, 3) != nil || g.Generate(phrases, 0) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestWeights(t *testing.T) {
	weakness := map[feedback.Category]float64{feedback.Linking: 0.5}
	w := Weights(phrases, weakness, 4)
	if w[0] != 1 {
		t.Fatalf("plain weight = %v, want 1", w[0])
	}
	if w[1] != 3 {
		t.Fatalf("linking weight = %v, want 3", w[1])
	}
}

func TestGenerateWeightedFavorsWeakCategories(t *testing.T) {
	g := NewWithSeed(42)
	weakness := map[feedback.Category]float64{feedback.Linking: 1}
	out := g.GenerateWeighted(phrases, 2000, weakness, 20)
	linking := 0
	for _, p := range out {
		if p.ID == "linking" {
			linking++
		}
	}
	// Weights are 1 and 21, so roughly 95% should be the linking phrase.
	if linking < 1700 {
		t.Fatalf("linking phrase picked %d/2000 times, expected strong bias", linking)
	}
}
