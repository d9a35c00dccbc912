package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClearer struct {
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakeClearer) ClearStaleCodes(ctx context.Context, createdBefore time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, createdBefore)
	return f.n, f.err
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		clearer *fakeClearer
		want    int64
		wantErr bool
	}{
		{name: "released", clearer: &fakeClearer{n: 3}, want: 3},
		{name: "nothing stale", clearer: &fakeClearer{}},
		{name: "store error", clearer: &fakeClearer{err: errors.New("timeout")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.clearer, 14*24*time.Hour, time.Hour)
			s.now = func() time.Time { return now }

			n, err := s.Sweep(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			require.Len(t, tt.clearer.cutoffs, 1)
			assert.Equal(t, now.Add(-14*24*time.Hour), tt.clearer.cutoffs[0])
		})
	}
}

func TestStopWithoutStart(t *testing.T) {
	assert.NoError(t, New(&fakeClearer{}, time.Hour, time.Hour).Stop())
}
