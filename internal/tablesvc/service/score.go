package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/avvvet/buffet-bingo/internal/missions"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

// FinalScore is (taste + cohesion + (11-regret) + (11-waste)) / 4 rounded
// half away from zero to one decimal.
func FinalScore(b models.Breakdown) float64 {
	sum := decimal.NewFromInt(int64(b.Taste + b.Cohesion + (11 - b.Regret) + (11 - b.Waste)))
	f, _ := sum.Div(decimal.NewFromInt(4)).Round(1).Float64()
	return f
}

func ValidateBreakdown(b models.Breakdown) error {
	metrics := []struct {
		name  string
		value int
	}{
		{"taste", b.Taste},
		{"cohesion", b.Cohesion},
		{"regret", b.Regret},
		{"waste", b.Waste},
	}
	for _, m := range metrics {
		if m.value < 1 || m.value > 10 {
			return fmt.Errorf("%w: %s must be between 1 and 10, got %d", ErrInvalidScore, m.name, m.value)
		}
	}
	return nil
}

// NormalizeBadges drops duplicates and rejects names outside the catalog.
func NormalizeBadges(badges []string) ([]string, error) {
	seen := make(map[string]struct{}, len(badges))
	out := make([]string, 0, len(badges))
	for _, b := range badges {
		if !missions.IsBadge(b) {
			return nil, fmt.Errorf("%w: unknown badge %q", ErrInvalidScore, b)
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out, nil
}
