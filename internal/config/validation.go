package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// LengthBuckets and LanguageLevels are the category sets the style
// probability tables must cover, in ascending order.
var (
	LengthBuckets  = []string{"extremely_short", "slightly_short", "medium", "slightly_long", "long"}
	LanguageLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}
)

// ValidateStyle checks both style probability tables: every expected
// category present, no extras, and sums within tolerance of 1.0. Failures
// wrap ErrConfigValidation and must abort startup.
func (c *Config) ValidateStyle() error {
	return c.Style.Validate()
}

// Validate checks both probability tables of a style configuration.
func (s StyleConfig) Validate() error {
	if err := validateTable("style.length", s.Length.Probabilities, LengthBuckets, s.Tolerance); err != nil {
		return err
	}
	return validateTable("style.level", s.Level.Probabilities, LanguageLevels, s.Tolerance)
}

func validateTable(name string, table map[string]float64, categories []string, tolerance float64) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: %s probabilities are empty", ErrConfigValidation, name)
	}

	var sum float64
	for _, cat := range categories {
		p, ok := table[cat]
		if !ok {
			return fmt.Errorf("%w: %s is missing category %q", ErrConfigValidation, name, cat)
		}
		if p < 0 {
			return fmt.Errorf("%w: %s probability for %q is negative (%g)", ErrConfigValidation, name, cat, p)
		}
		sum += p
	}

	if len(table) != len(categories) {
		extras := make([]string, 0, len(table))
		for k := range table {
			known := false
			for _, cat := range categories {
				if k == cat {
					known = true
					break
				}
			}
			if !known {
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		return fmt.Errorf("%w: %s has unknown categories: %s", ErrConfigValidation, name, strings.Join(extras, ", "))
	}

	if math.Abs(sum-1.0) > tolerance {
		return fmt.Errorf("%w: %s probabilities sum to %.4f, expected 1.0 ±%.4f", ErrConfigValidation, name, sum, tolerance)
	}

	return nil
}
