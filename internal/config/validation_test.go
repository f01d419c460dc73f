package config_test

import (
	"errors"
	"testing"

	"github.com/dkoksal/mira/internal/config"
)

func validStyle() config.StyleConfig {
	return config.StyleConfig{
		Length: config.SelectionConfig{
			Probabilities: map[string]float64{
				"extremely_short": 0.05,
				"slightly_short":  0.10,
				"medium":          0.25,
				"slightly_long":   0.35,
				"long":            0.25,
			},
			Randomness: 0.7,
		},
		Level: config.SelectionConfig{
			Probabilities: map[string]float64{
				"A1": 0.15, "A2": 0.15, "B1": 0.20,
				"B2": 0.20, "C1": 0.15, "C2": 0.15,
			},
			Randomness: 1.0,
		},
		Tolerance: 0.01,
	}
}

func TestStyleValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.StyleConfig)
		wantErr bool
	}{
		{
			name:   "valid tables",
			mutate: func(s *config.StyleConfig) {},
		},
		{
			name: "sum within tolerance",
			mutate: func(s *config.StyleConfig) {
				s.Length.Probabilities["long"] = 0.255
				s.Tolerance = 0.01
			},
		},
		{
			name: "sum off by more than tolerance",
			mutate: func(s *config.StyleConfig) {
				s.Length.Probabilities["medium"] = 0.22 // sum 0.97
			},
			wantErr: true,
		},
		{
			name: "missing category",
			mutate: func(s *config.StyleConfig) {
				delete(s.Level.Probabilities, "C2")
				s.Level.Probabilities["C1"] = 0.30
			},
			wantErr: true,
		},
		{
			name: "unknown category",
			mutate: func(s *config.StyleConfig) {
				s.Length.Probabilities["verbose"] = 0.0
			},
			wantErr: true,
		},
		{
			name: "negative probability",
			mutate: func(s *config.StyleConfig) {
				s.Length.Probabilities["medium"] = -0.25
				s.Length.Probabilities["long"] = 0.75
			},
			wantErr: true,
		},
		{
			name: "empty table",
			mutate: func(s *config.StyleConfig) {
				s.Level.Probabilities = nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			style := validStyle()
			tt.mutate(&style)

			err := style.Validate()
			if tt.wantErr {
				if !errors.Is(err, config.ErrConfigValidation) {
					t.Fatalf("got %v, want ErrConfigValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
