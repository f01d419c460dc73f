// Package style implements the stochastic reply-style selector: each turn
// it draws a response length bucket and a language proficiency level from
// configured probability tables, blended with a per-table randomness knob.
package style

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dkoksal/mira/internal/config"
)

// LengthBucket is one of the five configured response length categories.
type LengthBucket string

// LanguageLevel is a CEFR proficiency level.
type LanguageLevel string

// Selection is the outcome of one draw.
type Selection struct {
	Length LengthBucket
	Level  LanguageLevel
}

// Selector draws reply styles. It holds validated tables only; construction
// fails on any table the config layer would reject.
type Selector struct {
	length table
	level  table

	mu  sync.Mutex
	rng *rand.Rand
}

type table struct {
	categories []string
	weights    []float64
	randomness float64
}

// NewSelector validates the configured tables and builds a selector.
func NewSelector(cfg config.StyleConfig) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Selector{
		length: newTable(config.LengthBuckets, cfg.Length),
		level:  newTable(config.LanguageLevels, cfg.Level),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Pick draws with the selector's own seeded source. Handlers run
// concurrently, so the internal source is guarded.
func (s *Selector) Pick() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Select(s.rng)
}

func newTable(categories []string, sel config.SelectionConfig) table {
	weights := make([]float64, len(categories))
	for i, c := range categories {
		weights[i] = sel.Probabilities[c]
	}

	return table{
		categories: categories,
		weights:    weights,
		randomness: sel.Randomness,
	}
}

// Select draws a length bucket and a language level. The two draws are
// independent. rng is injected so callers can seed deterministic tests.
func (s *Selector) Select(rng *rand.Rand) Selection {
	return Selection{
		Length: LengthBucket(s.length.draw(rng)),
		Level:  LanguageLevel(s.level.draw(rng)),
	}
}

// draw blends determinism with the configured weights: with probability
// randomness the category is sampled from the weight table; otherwise the
// highest-weight category wins. At randomness 1 the observed frequencies
// converge on the configured probabilities; at 0 the draw is a constant.
func (t table) draw(rng *rand.Rand) string {
	if rng.Float64() < t.randomness {
		return t.categories[weightedIndex(rng, t.weights)]
	}
	return t.categories[argmax(t.weights)]
}

// weightedIndex samples an index proportionally to weights. Weights are
// validated to sum to ~1 but the residual tolerance is absorbed by
// clamping to the last category.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	target := rng.Float64()
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

// argmax returns the index of the largest weight; ties resolve to the
// earliest category in canonical order, keeping the degenerate
// randomness=0 case deterministic.
func argmax(weights []float64) int {
	best := 0
	for i, w := range weights {
		if w > weights[best] {
			best = i
		}
	}
	return best
}

var lengthInstructions = map[LengthBucket]string{
	"extremely_short": "Keep your reply extremely short: a few words, one short sentence at most.",
	"slightly_short":  "Keep your reply slightly shorter than usual, one or two sentences.",
	"medium":          "Write a medium-length reply, a short paragraph.",
	"slightly_long":   "Write a slightly longer reply than usual, a full paragraph.",
	"long":            "Write a long, detailed reply of several paragraphs.",
}

var levelInstructions = map[LanguageLevel]string{
	"A1": "Use beginner-level (CEFR A1) language: very simple words and short sentences.",
	"A2": "Use elementary-level (CEFR A2) language: simple everyday vocabulary.",
	"B1": "Use intermediate-level (CEFR B1) language: clear standard phrasing.",
	"B2": "Use upper-intermediate-level (CEFR B2) language: varied vocabulary, natural flow.",
	"C1": "Use advanced-level (CEFR C1) language: rich vocabulary and idiom.",
	"C2": "Use mastery-level (CEFR C2) language: nuanced, precise, fully natural.",
}

// Instruction renders the selection as a prompt snippet.
func (sel Selection) Instruction() string {
	return fmt.Sprintf("%s %s", lengthInstructions[sel.Length], levelInstructions[sel.Level])
}
