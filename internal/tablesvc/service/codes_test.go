package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/memstore"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

func scripted(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func seedTable(t *testing.T, ms *memstore.Store, id, code string, age time.Duration) {
	t.Helper()
	c := code
	require.NoError(t, ms.CreateTable(context.Background(), &models.Table{
		ID:        id,
		ShortCode: &c,
		Host:      "host-" + id,
		CreatedAt: time.Now().Add(-age),
		Status:    models.TableOpen,
	}))
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{4}$`, code)
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12", NormalizeCode("  ab12 "))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestCodeAllocator(t *testing.T) {
	ctx := context.Background()
	window := 14 * 24 * time.Hour

	tests := []struct {
		name      string
		seed      map[string]time.Duration // table id -> age, all carry code "AAAA"
		draws     []string
		attempts  int
		want      string
		wantErr   bool
		wantClear []string
	}{
		{
			name:  "fresh code accepted",
			draws: []string{"QW12"},
			want:  "QW12",
		},
		{
			name:     "active collision retried",
			seed:     map[string]time.Duration{"t-active": time.Hour},
			draws:    []string{"AAAA", "BBBB"},
			attempts: 5,
			want:     "BBBB",
		},
		{
			name:      "stale collision cleared and reused",
			seed:      map[string]time.Duration{"t-stale": 20 * 24 * time.Hour},
			draws:     []string{"AAAA"},
			want:      "AAAA",
			wantClear: []string{"t-stale"},
		},
		{
			name:     "exhausted",
			seed:     map[string]time.Duration{"t-active": time.Minute},
			draws:    []string{"AAAA"},
			attempts: 3,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := memstore.New()
			for id, age := range tt.seed {
				seedTable(t, ms, id, "AAAA", age)
			}

			a := NewCodeAllocator(ms, window, tt.attempts)
			a.draw = scripted(tt.draws...)

			got, err := a.Allocate(ctx)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAttemptsExhausted)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			for _, id := range tt.wantClear {
				table, err := ms.GetTable(ctx, id)
				require.NoError(t, err)
				assert.Nil(t, table.ShortCode, "stale table %s keeps its code", id)
			}
		})
	}
}

func TestCodeAllocatorActive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewCodeAllocator(memstore.New(), 24*time.Hour, 0)
	a.now = func() time.Time { return now }

	assert.True(t, a.Active(now.Add(-23*time.Hour)))
	assert.False(t, a.Active(now.Add(-24*time.Hour)))
	assert.Equal(t, 24*time.Hour, a.Window())
}
