package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/memstore"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type failingPlayers struct{}

func (failingPlayers) ListPlayers(ctx context.Context, tableID string) ([]*models.Player, error) {
	return nil, errors.New("socket closed")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "tables.abc.players", Subject("abc"))
}

func TestStoreLoader(t *testing.T) {
	ctx := context.Background()
	ms := memstore.New()
	code := "LOAD"
	require.NoError(t, ms.CreateTable(ctx, &models.Table{ID: "t1", ShortCode: &code, Host: "h", CreatedAt: time.Now(), Status: models.TableOpen}))
	require.NoError(t, ms.PutPlayer(ctx, &models.Player{TableID: "t1", UID: "h", Name: "Host"}))

	load := StoreLoader(ms, ms)

	snap, err := load(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, snap.Table)
	assert.Equal(t, "LOAD", snap.Table.Code())
	assert.Len(t, snap.Players, 1)

	snap, err = load(ctx, "deleted")
	require.NoError(t, err)
	assert.Nil(t, snap.Table)
	assert.Empty(t, snap.Players)

	_, err = StoreLoader(ms, failingPlayers{})(ctx, "t1")
	assert.Error(t, err)
}
