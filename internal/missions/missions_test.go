package missions

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorNext(t *testing.T) {
	g := NewGenerator(rand.NewSource(7))
	mirror, static := 0, 0
	for i := 0; i < 500; i++ {
		m := g.Next()
		assert.NotEmpty(t, m)
		if strings.HasPrefix(m, "Find a ") && strings.HasSuffix(m, ".") {
			mirror++
			continue
		}
		assert.Contains(t, staticMissions, m)
		static++
	}
	assert.Greater(t, mirror, static)
	assert.NotZero(t, static)
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(rand.NewSource(42))
	b := NewGenerator(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10, "Grandmaster of the Galley!"},
		{9, "Grandmaster of the Galley!"},
		{8.9, "A Master of Shadows."},
		{7.5, "A Master of Shadows."},
		{7.4, "Acceptable Fate. But finish your greens."},
		{5, "Acceptable Fate. But finish your greens."},
		{4.9, "Disgraceful. The Buffet Gods are displeased."},
		{0, "Disgraceful. The Buffet Gods are displeased."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Verdict(tt.score), "score %v", tt.score)
	}
}

func TestIsBadge(t *testing.T) {
	assert.True(t, IsBadge("Ghost Protocol"))
	assert.False(t, IsBadge("ghost protocol"))
	assert.False(t, IsBadge(""))
}
