package style_test

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/dkoksal/mira/internal/config"
	"github.com/dkoksal/mira/internal/style"
)

func testStyleConfig(lengthRandomness, levelRandomness float64) config.StyleConfig {
	return config.StyleConfig{
		Length: config.SelectionConfig{
			Probabilities: map[string]float64{
				"extremely_short": 0.05,
				"slightly_short":  0.10,
				"medium":          0.25,
				"slightly_long":   0.35,
				"long":            0.25,
			},
			Randomness: lengthRandomness,
		},
		Level: config.SelectionConfig{
			Probabilities: map[string]float64{
				"A1": 0.15, "A2": 0.15, "B1": 0.20,
				"B2": 0.20, "C1": 0.15, "C2": 0.15,
			},
			Randomness: levelRandomness,
		},
		Tolerance: 0.01,
	}
}

func TestNewSelector_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testStyleConfig(0.7, 1.0)
	cfg.Length.Probabilities["medium"] = 0.20 // sum drops to 0.95

	_, err := style.NewSelector(cfg)
	if !errors.Is(err, config.ErrConfigValidation) {
		t.Fatalf("got %v, want ErrConfigValidation", err)
	}
}

func TestSelect_ZeroRandomnessIsDeterministic(t *testing.T) {
	t.Parallel()

	s, err := style.NewSelector(testStyleConfig(0, 0))
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		sel := s.Select(rng)
		if sel.Length != "slightly_long" {
			t.Fatalf("draw %d: length = %q, want the highest-weight bucket slightly_long", i, sel.Length)
		}
		if sel.Level != "B1" {
			t.Fatalf("draw %d: level = %q, want B1 (earliest of the tied maxima)", i, sel.Level)
		}
	}
}

func TestSelect_FullRandomnessMatchesWeights(t *testing.T) {
	t.Parallel()

	s, err := style.NewSelector(testStyleConfig(1.0, 1.0))
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	const draws = 200000
	rng := rand.New(rand.NewSource(42))
	lengthCounts := make(map[style.LengthBucket]int)
	levelCounts := make(map[style.LanguageLevel]int)
	for i := 0; i < draws; i++ {
		sel := s.Select(rng)
		lengthCounts[sel.Length]++
		levelCounts[sel.Level]++
	}

	wantLength := map[style.LengthBucket]float64{
		"extremely_short": 0.05, "slightly_short": 0.10, "medium": 0.25,
		"slightly_long": 0.35, "long": 0.25,
	}
	for bucket, want := range wantLength {
		got := float64(lengthCounts[bucket]) / draws
		if math.Abs(got-want) > 0.01 {
			t.Errorf("length %q frequency = %.4f, want %.4f ±0.01", bucket, got, want)
		}
	}

	wantLevel := map[style.LanguageLevel]float64{
		"A1": 0.15, "A2": 0.15, "B1": 0.20, "B2": 0.20, "C1": 0.15, "C2": 0.15,
	}
	for level, want := range wantLevel {
		got := float64(levelCounts[level]) / draws
		if math.Abs(got-want) > 0.01 {
			t.Errorf("level %q frequency = %.4f, want %.4f ±0.01", level, got, want)
		}
	}
}

func TestSelect_BlendedRandomness(t *testing.T) {
	t.Parallel()

	// At randomness r, each category's frequency is r times its weight,
	// plus (1-r) concentrated on the highest-weight category.
	const r = 0.95
	s, err := style.NewSelector(testStyleConfig(r, 1.0))
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	const draws = 200000
	rng := rand.New(rand.NewSource(7))
	counts := make(map[style.LengthBucket]int)
	for i := 0; i < draws; i++ {
		counts[s.Select(rng).Length]++
	}

	weights := map[style.LengthBucket]float64{
		"extremely_short": 0.05, "slightly_short": 0.10, "medium": 0.25,
		"slightly_long": 0.35, "long": 0.25,
	}
	for bucket, w := range weights {
		want := r * w
		if bucket == "slightly_long" {
			want += 1 - r
		}
		got := float64(counts[bucket]) / draws
		if math.Abs(got-want) > 0.01 {
			t.Errorf("length %q frequency = %.4f, want %.4f ±0.01", bucket, got, want)
		}
	}
}

func TestSelection_Instruction(t *testing.T) {
	t.Parallel()

	sel := style.Selection{Length: "extremely_short", Level: "C2"}
	got := sel.Instruction()

	if got == "" {
		t.Fatal("instruction is empty")
	}
	for _, want := range []string{"extremely short", "C2"} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction %q missing %q", got, want)
		}
	}
}
