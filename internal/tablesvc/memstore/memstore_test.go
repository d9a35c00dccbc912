package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
)

func newTable(id, code string, created time.Time) *models.Table {
	return &models.Table{ID: id, ShortCode: &code, Host: "h", CreatedAt: created, Status: models.TableOpen}
}

func receive(t *testing.T, ch <-chan scoreboard.Snapshot) scoreboard.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
		return scoreboard.Snapshot{}
	}
}

func TestTables(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateTable(ctx, newTable("old", "AAAA", base)))
	require.NoError(t, s.CreateTable(ctx, newTable("new", "AAAA", base.Add(time.Hour))))
	require.NoError(t, s.CreateTable(ctx, newTable("other", "BBBB", base.Add(2*time.Hour))))

	found, err := s.FindTablesByCode(ctx, "AAAA")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "new", found[0].ID)

	n, err := s.ClearStaleCodes(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := s.GetTable(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old.ShortCode)

	// returned tables are copies
	old.Host = "mutated"
	again, err := s.GetTable(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "h", again.Host)

	require.NoError(t, s.DeleteTable(ctx, "old"))
	_, err = s.GetTable(ctx, "old")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTable(ctx, "old"), models.ErrNotFound)
	assert.ErrorIs(t, s.SetStatus(ctx, "old", models.TableClosed), models.ErrNotFound)
}

func TestPlayersAndEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Now()

	require.NoError(t, s.PutPlayer(ctx, &models.Player{TableID: "t", UID: "b", Name: "Bee", Score: 6}))
	require.NoError(t, s.PutPlayer(ctx, &models.Player{TableID: "t", UID: "a", Name: "Ay", Score: 8}))
	require.NoError(t, s.RenamePlayer(ctx, "t", "a", "Ava"))

	players, err := s.ListPlayers(ctx, "t")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "a", players[0].UID)
	assert.Equal(t, "Ava", players[0].Name)

	assert.ErrorIs(t, s.RenamePlayer(ctx, "t", "zz", "x"), models.ErrNotFound)

	for i, p := range players {
		require.NoError(t, s.CreateEntry(ctx, &models.HallOfFameEntry{
			ID:                 "t:" + p.UID,
			UserID:             p.UID,
			OriginTableID:      "t",
			HallOfFameJoinedAt: at.Add(time.Duration(i) * time.Second),
			Player:             *p,
		}))
	}
	top, err := s.ListTopEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].UserID)

	n, err := s.DeleteEntriesByOrigin(ctx, "t", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.DeleteEntriesByTable(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateTable(ctx, newTable("t", "CODE", time.Now())))

	ch, cancel, err := s.Subscribe(ctx, "t")
	require.NoError(t, err)

	first := receive(t, ch)
	require.NotNil(t, first.Table)
	assert.Empty(t, first.Players)

	// a slow reader only sees the latest state
	require.NoError(t, s.PutPlayer(ctx, &models.Player{TableID: "t", UID: "a"}))
	require.NoError(t, s.PutPlayer(ctx, &models.Player{TableID: "t", UID: "b"}))
	latest := receive(t, ch)
	assert.Len(t, latest.Players, 2)

	require.NoError(t, s.DeleteTable(ctx, "t"))
	gone := receive(t, ch)
	assert.Nil(t, gone.Table)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	s := New()
	ch, cancel, err := s.Subscribe(ctx, "t")
	require.NoError(t, err)
	defer cancel()

	receive(t, ch)
	s.Drop("t")
	_, ok := <-ch
	assert.False(t, ok)
}

func TestVisitsAndAccounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.RecordVisit(ctx, &models.VisitedTable{UserID: "u", TableID: "t1", JoinedAt: now}))
	require.NoError(t, s.RecordVisit(ctx, &models.VisitedTable{UserID: "u", TableID: "t2", JoinedAt: now.Add(time.Minute)}))
	require.NoError(t, s.RecordVisit(ctx, &models.VisitedTable{UserID: "u", TableID: "t1", JoinedAt: now.Add(2 * time.Minute)}))

	visits, err := s.ListVisits(ctx, "u")
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "t1", visits[0].TableID)

	require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: "acc", IsAnonymous: true}))
	_, err = s.FindAccountByCredential(ctx, "google", "1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.LinkCredential(ctx, "acc", "google", "1", "Lin"))
	acc, err := s.FindAccountByCredential(ctx, "google", "1")
	require.NoError(t, err)
	assert.Equal(t, "acc", acc.ID)
	assert.False(t, acc.IsAnonymous)
	assert.ErrorIs(t, s.LinkCredential(ctx, "nope", "google", "2", ""), models.ErrNotFound)
}

func TestMedia(t *testing.T) {
	ctx := context.Background()
	m := NewMedia("https://cdn.test/")

	handle, err := m.Put(ctx, "t/a", []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/t/a", m.PublicURL(handle))

	copied, err := m.Copy(ctx, "t/a", "t/b")
	require.NoError(t, err)
	data, ct, ok := m.Get(copied)
	require.True(t, ok)
	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, "image/png", ct)

	_, err = m.Copy(ctx, "t/missing", "t/c")
	assert.Error(t, err)

	require.NoError(t, m.Delete(ctx, "t/a"))
	_, _, ok = m.Get("t/a")
	assert.False(t, ok)
}
