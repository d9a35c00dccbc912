package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/memstore"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type fixture struct {
	ctx   context.Context
	store *memstore.Store
	media *memstore.Media
	ident *identity.Provider
	svc   *TableService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()
	media := memstore.NewMedia("https://cdn.test")
	ident := identity.NewProvider(ms, "test-secret")
	return &fixture{
		ctx:   context.Background(),
		store: ms,
		media: media,
		ident: ident,
		svc:   NewTableService(Stores{Tables: ms, Players: ms, HallOfFame: ms, Visits: ms}, media, ident, nil, Options{}),
	}
}

func (f *fixture) anonymous(t *testing.T) models.Principal {
	t.Helper()
	p, err := f.ident.SignInAnonymous(f.ctx)
	require.NoError(t, err)
	return p
}

func (f *fixture) persistent(t *testing.T, subject, name string) models.Principal {
	t.Helper()
	p, err := f.ident.SignInPersistent(f.ctx, identity.Credential{Provider: "google", Subject: subject, DisplayName: name})
	require.NoError(t, err)
	return p
}

func (f *fixture) createTable(t *testing.T, host models.Principal, playerName string) *models.Table {
	t.Helper()
	table, err := f.svc.CreateTable(f.ctx, host, CreateTableRequest{Name: "Sunday Brunch", PlayerName: playerName})
	require.NoError(t, err)
	return table
}

func (f *fixture) join(t *testing.T, p models.Principal, table *models.Table, name string) {
	t.Helper()
	_, err := f.svc.JoinTable(f.ctx, p, JoinRequest{TableID: table.ID, Name: name})
	require.NoError(t, err)
}

func (f *fixture) submit(t *testing.T, p models.Principal, tableID string, b models.Breakdown) *models.Player {
	t.Helper()
	player, err := f.svc.SubmitScore(f.ctx, p, tableID, ScoreSubmission{
		Breakdown:   b,
		Photo:       []byte("jpeg-bytes-" + p.ID),
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)
	return player
}

func (f *fixture) players(t *testing.T, tableID string) []*models.Player {
	t.Helper()
	players, err := f.store.ListPlayers(f.ctx, tableID)
	require.NoError(t, err)
	return players
}
