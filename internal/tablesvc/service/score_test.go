package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

func TestFinalScore(t *testing.T) {
	tests := []struct {
		name string
		in   models.Breakdown
		want float64
	}{
		{"worked example", models.Breakdown{Taste: 8, Cohesion: 7, Regret: 2, Waste: 3}, 8.0},
		{"perfect plate", models.Breakdown{Taste: 10, Cohesion: 10, Regret: 1, Waste: 1}, 10.0},
		{"worst plate", models.Breakdown{Taste: 1, Cohesion: 1, Regret: 10, Waste: 10}, 1.0},
		{"half step", models.Breakdown{Taste: 7, Cohesion: 6, Regret: 5, Waste: 4}, 6.5},
		{"quarter rounds up", models.Breakdown{Taste: 5, Cohesion: 5, Regret: 5, Waste: 6}, 5.3},
		{"three quarters round up", models.Breakdown{Taste: 9, Cohesion: 9, Regret: 2, Waste: 3}, 8.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinalScore(tt.in))
		})
	}
}

func TestValidateBreakdown(t *testing.T) {
	tests := []struct {
		name    string
		in      models.Breakdown
		wantErr bool
	}{
		{"all in range", models.Breakdown{Taste: 1, Cohesion: 10, Regret: 5, Waste: 5}, false},
		{"taste zero", models.Breakdown{Taste: 0, Cohesion: 5, Regret: 5, Waste: 5}, true},
		{"waste eleven", models.Breakdown{Taste: 5, Cohesion: 5, Regret: 5, Waste: 11}, true},
		{"negative regret", models.Breakdown{Taste: 5, Cohesion: 5, Regret: -1, Waste: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBreakdown(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScore)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeBadges(t *testing.T) {
	got, err := NormalizeBadges([]string{"Clean Sweep", "Dessert First", "Clean Sweep"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Clean Sweep", "Dessert First"}, got)

	_, err = NormalizeBadges([]string{"Clean Sweep", "Free Lunch"})
	assert.ErrorIs(t, err, ErrInvalidScore)

	got, err = NormalizeBadges(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
