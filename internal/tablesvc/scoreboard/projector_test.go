package scoreboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

func player(uid, name string, score float64) *models.Player {
	return &models.Player{TableID: "t1", UID: uid, Name: name, Score: score}
}

func openTable() *models.Table {
	code := "AB12"
	return &models.Table{ID: "t1", ShortCode: &code, Host: "a", Name: "Brunch", Status: models.TableOpen}
}

func TestProject(t *testing.T) {
	players := []*models.Player{
		player("a", "Ann", 7.5),
		player("b", "Ben", 9.0),
		player("c", "Cat", 9.0),
		player("d", "Dan", 0),
	}

	view := Project("t1", openTable(), players)

	assert.Equal(t, "Brunch", view.Name)
	assert.Equal(t, "AB12", view.Code)
	assert.Equal(t, "a", view.Host)
	assert.False(t, view.Closed)
	assert.False(t, view.Deleted)
	assert.Equal(t, 4, view.Total)
	assert.Len(t, view.Members, 4)

	require.Len(t, view.Ranked, 3)
	got := make([]string, 0, 3)
	for i, r := range view.Ranked {
		assert.Equal(t, i+1, r.Rank)
		got = append(got, r.Player.UID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, got)
	assert.Equal(t, "Grandmaster of the Galley!", view.Ranked[0].Verdict)
	assert.Equal(t, "A Master of Shadows.", view.Ranked[2].Verdict)
}

func TestProjectDeletedAndEmpty(t *testing.T) {
	view := Project("gone", nil, nil)
	assert.True(t, view.Deleted)
	assert.NotNil(t, view.Ranked)
	assert.NotNil(t, view.Members)
	assert.Zero(t, view.Total)
}

func TestProjectorJoinNotifications(t *testing.T) {
	proj := NewProjector("me")

	view, joined := proj.Apply(Snapshot{TableID: "t1", Table: openTable(), Players: []*models.Player{
		player("a", "Ann", 0),
		player("me", "Me", 0),
	}})
	assert.Empty(t, joined, "first snapshot only primes")
	assert.Equal(t, 2, view.Total)

	_, joined = proj.Apply(Snapshot{TableID: "t1", Table: openTable(), Players: []*models.Player{
		player("a", "Ann", 8),
		player("me", "Me", 0),
		player("b", "", 0),
	}})
	require.Len(t, joined, 1)
	assert.Equal(t, "b", joined[0].PlayerUID)
	assert.Equal(t, "Someone joined", joined[0].Message)
	assert.Equal(t, "t1-1", joined[0].ID)

	// leaving and coming back is a new join
	_, joined = proj.Apply(Snapshot{TableID: "t1", Table: openTable(), Players: []*models.Player{player("a", "Ann", 8)}})
	assert.Empty(t, joined)
	_, joined = proj.Apply(Snapshot{TableID: "t1", Table: openTable(), Players: []*models.Player{
		player("a", "Ann", 8),
		player("b", "Bo", 0),
	}})
	require.Len(t, joined, 1)
	assert.Equal(t, "Bo joined", joined[0].Message)
	assert.Equal(t, "t1-2", joined[0].ID)
}

func TestProjectorViewerNeverAnnounced(t *testing.T) {
	proj := NewProjector("me")
	proj.Apply(Snapshot{TableID: "t1", Table: openTable()})

	_, joined := proj.Apply(Snapshot{TableID: "t1", Table: openTable(), Players: []*models.Player{player("me", "Me", 0)}})
	assert.Empty(t, joined)
}

func TestProjectorDedupe(t *testing.T) {
	proj := NewProjector("")
	view, _ := proj.Apply(Snapshot{TableID: "t1", Table: openTable(), Players: []*models.Player{
		player("a", "Ann", 5),
		player("b", "Ben", 6),
		player("a", "Ann", 8),
	}})

	assert.Equal(t, 2, view.Total)
	require.Len(t, view.Ranked, 2)
	assert.Equal(t, "a", view.Ranked[0].Player.UID)
	assert.Equal(t, 8.0, view.Ranked[0].Player.Score)
}

func TestProjectTieBreak(t *testing.T) {
	early := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	x := player("x", "Xia", 8.0)
	x.SubmittedAt = &late
	y := player("y", "Yan", 8.0)
	y.SubmittedAt = &early
	z := player("z", "Zed", 8.0)
	z.SubmittedAt = &late

	for _, order := range [][]*models.Player{{x, y, z}, {z, x, y}, {y, z, x}} {
		view := Project("t1", openTable(), order)
		var got []string
		for _, r := range view.Ranked {
			got = append(got, r.Player.UID)
		}
		assert.Equal(t, []string{"y", "x", "z"}, got)
	}
}
