package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/handlers"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/memstore"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memstore.New()
	media := memstore.NewMedia("http://media.test")
	ident := identity.NewProvider(store, "client-secret")
	svc := service.NewTableService(service.Stores{Tables: store, Players: store, HallOfFame: store, Visits: store}, media, ident, nil, service.Options{})

	r := chi.NewRouter()
	handlers.NewHandler(handlers.Deps{
		Service:       svc,
		Identity:      ident,
		Source:        store,
		Media:         media,
		PublicBaseURL: "https://bingo.test",
	}).SetRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func signedInClient(t *testing.T, baseURL string) (*Client, models.Principal) {
	t.Helper()
	c := New(baseURL, "")
	s, err := c.SignInAnonymous(context.Background())
	require.NoError(t, err)
	c.SetToken(s.Token)
	return c, s.Principal
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	host, _ := signedInClient(t, srv.URL)
	guest, guestID := signedInClient(t, srv.URL)

	info, err := host.CreateTable(ctx, service.CreateTableRequest{Name: "Lunch", PlayerName: "Host"})
	require.NoError(t, err)
	assert.Equal(t, "https://bingo.test/play?join="+info.Table.ID, info.ShareURL)

	_, err = guest.JoinTable(ctx, service.JoinRequest{Code: info.Table.Code(), Name: "Host"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	_, err = guest.JoinTable(ctx, service.JoinRequest{Code: info.Table.Code(), Name: "Guest"})
	require.NoError(t, err)

	photo := []byte("\xff\xd8\xff\xe0fake-jpeg")
	sub, err := guest.SubmitScore(ctx, info.Table.ID, models.Breakdown{Taste: 7, Cohesion: 7, Regret: 4, Waste: 4}, []string{"Clean Sweep"}, photo, "/tmp/plate.jpg")
	require.NoError(t, err)
	assert.Equal(t, 7.0, sub.Player.Score)
	assert.Equal(t, "Acceptable Fate. But finish your greens.", sub.Verdict)

	view, err := host.Table(ctx, info.Table.ID)
	require.NoError(t, err)
	require.Len(t, view.Ranked, 1)
	assert.Equal(t, guestID.ID, view.Ranked[0].Player.UID)

	link, err := host.ShareLink(ctx, info.Table.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ShareURL, link)

	tables, err := host.MyTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	require.NoError(t, host.DeletePlayer(ctx, info.Table.ID, guestID.ID))
	require.NoError(t, host.CloseTable(ctx, info.Table.ID))
	require.NoError(t, host.DeleteTable(ctx, info.Table.ID))

	_, err = host.Table(ctx, info.Table.ID)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClientMigrate(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	cred := identity.Credential{Provider: "google", Subject: "m-1", DisplayName: "Mo"}

	owner := New(srv.URL, "")
	_, err := owner.SignIn(ctx, cred)
	require.NoError(t, err)

	anon, _ := signedInClient(t, srv.URL)
	info, err := anon.CreateTable(ctx, service.CreateTableRequest{PlayerName: "Mo"})
	require.NoError(t, err)
	_, err = anon.SubmitScore(ctx, info.Table.ID, models.Breakdown{Taste: 9, Cohesion: 9, Regret: 2, Waste: 2}, nil, []byte("jpeg"), "p.jpg")
	require.NoError(t, err)

	_, err = anon.Link(ctx, cred)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	_, err = anon.Migrate(ctx, info.Table.ID, cred, false)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	res, err := anon.Migrate(ctx, info.Table.ID, cred, true)
	require.NoError(t, err)
	assert.Equal(t, service.StateMigrated, res.Migration.State)
	assert.NotEmpty(t, res.Token)

	entries, err := owner.HallOfFame(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 9.0, entries[0].Score)
}

func TestClientMigrateUnscoredKeepsToken(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	anon, _ := signedInClient(t, srv.URL)
	info, err := anon.CreateTable(ctx, service.CreateTableRequest{PlayerName: "Una"})
	require.NoError(t, err)

	res, err := anon.Migrate(ctx, info.Table.ID, identity.Credential{Provider: "google", Subject: "u-1", DisplayName: "Una"}, false)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.NotNil(t, res.Migration)
	assert.Equal(t, service.StateLinked, res.Migration.State)
	assert.False(t, res.Migration.To.IsAnonymous)
	assert.NotEmpty(t, res.Token)
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/v1/ws?jwt=tok&table=t+1"},
		{"https://bingo.test/api/", "wss://bingo.test/api/v1/ws?jwt=tok&table=t+1"},
	}
	for _, tt := range tests {
		got, err := New(tt.base, "tok").wsURL("t 1")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
