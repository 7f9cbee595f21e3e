// Package generator picks practice phrases.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/hearback/internal/classify"
	"github.com/verte-zerg/hearback/internal/deck"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/textnorm"
)

// Generator produces randomized phrase sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate selects phrases uniformly.
func (g *Generator) Generate(phrases []deck.Phrase, count int) []deck.Phrase {
	if len(phrases) == 0 || count <= 0 {
		return nil
	}
	result := make([]deck.Phrase, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, phrases[g.rnd.Intn(len(phrases))])
	}
	return result
}

// Weights returns the selection weight of each phrase: 1 plus factor times
// the summed weakness (1 - score) of every weak category the phrase exposes.
func Weights(phrases []deck.Phrase, weakness map[feedback.Category]float64, factor float64) []float64 {
	weights := make([]float64, len(phrases))
	for i, p := range phrases {
		sum := 0.0
		for _, c := range classify.Exposure(textnorm.Words(textnorm.Tokens(p.Text))) {
			sum += weakness[c]
		}
		weights[i] = 1.0 + sum*factor
	}
	return weights
}

// GenerateWeighted selects phrases with a bias toward weak categories.
func (g *Generator) GenerateWeighted(phrases []deck.Phrase, count int, weakness map[feedback.Category]float64, factor float64) []deck.Phrase {
	if len(phrases) == 0 || count <= 0 {
		return nil
	}
	weights := Weights(phrases, weakness, factor)
	total := 0.0
	for _, w := range weights {
		total += w
	}

	result := make([]deck.Phrase, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := len(weights) - 1
		for j, w := range weights {
			acc += w
			if r <= acc {
				idx = j
				break
			}
		}
		result = append(result, phrases[idx])
	}
	return result
}
