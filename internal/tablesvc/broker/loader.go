package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
)

type TableReader interface {
	GetTable(ctx context.Context, id string) (*models.Table, error)
}

type PlayerLister interface {
	ListPlayers(ctx context.Context, tableID string) ([]*models.Player, error)
}

// StoreLoader reads snapshots straight from the session store. A deleted
// table yields a snapshot with a nil Table.
func StoreLoader(tables TableReader, players PlayerLister) Loader {
	return func(ctx context.Context, tableID string) (scoreboard.Snapshot, error) {
		snap := scoreboard.Snapshot{TableID: tableID}

		table, err := tables.GetTable(ctx, tableID)
		switch {
		case err == nil:
			snap.Table = table
		case !errors.Is(err, models.ErrNotFound):
			return snap, fmt.Errorf("load table: %w", err)
		}

		snap.Players, err = players.ListPlayers(ctx, tableID)
		if err != nil {
			return snap, fmt.Errorf("load players: %w", err)
		}
		return snap, nil
	}
}
