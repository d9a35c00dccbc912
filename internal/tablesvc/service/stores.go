package service

import (
	"context"
	"time"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

// TableStore persists tables. Lookups return models.ErrNotFound when the
// table does not exist.
type TableStore interface {
	CreateTable(ctx context.Context, t *models.Table) error
	GetTable(ctx context.Context, id string) (*models.Table, error)
	FindTablesByCode(ctx context.Context, code string) ([]*models.Table, error)
	ListTablesByHost(ctx context.Context, host string) ([]*models.Table, error)
	ClearShortCode(ctx context.Context, id string) error
	ClearStaleCodes(ctx context.Context, createdBefore time.Time) (int64, error)
	SetStatus(ctx context.Context, id, status string) error
	SetHost(ctx context.Context, id, host string) error
	DeleteTable(ctx context.Context, id string) error
}

// PlayerStore persists the players of each table, keyed by (table, uid).
type PlayerStore interface {
	GetPlayer(ctx context.Context, tableID, uid string) (*models.Player, error)
	ListPlayers(ctx context.Context, tableID string) ([]*models.Player, error)
	PutPlayer(ctx context.Context, p *models.Player) error
	RenamePlayer(ctx context.Context, tableID, uid, name string) error
	SetHallOfFame(ctx context.Context, tableID, uid string, in bool) error
	DeletePlayer(ctx context.Context, tableID, uid string) error
}

type HallOfFameStore interface {
	CreateEntry(ctx context.Context, e *models.HallOfFameEntry) error
	GetEntry(ctx context.Context, id string) (*models.HallOfFameEntry, error)
	ListTopEntries(ctx context.Context, limit int64) ([]*models.HallOfFameEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	DeleteEntriesByTable(ctx context.Context, tableID string) (int64, error)
	DeleteEntriesByOrigin(ctx context.Context, tableID, userID string) (int64, error)
}

type VisitStore interface {
	RecordVisit(ctx context.Context, v *models.VisitedTable) error
	ListVisits(ctx context.Context, userID string) ([]*models.VisitedTable, error)
}

// MediaStore holds plate photos under keys of the form {tableId}/{principalId}.
type MediaStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Copy(ctx context.Context, srcKey, dstKey string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(handle string) string
}

// Notifier announces that the state of a table or its players changed.
type Notifier interface {
	Changed(ctx context.Context, tableID string)
}

// Identity is the part of the identity provider the migration workflow needs.
type Identity interface {
	AttachPersistentCredential(ctx context.Context, p models.Principal, cred identity.Credential) (models.Principal, error)
	SignInPersistent(ctx context.Context, cred identity.Credential) (models.Principal, error)
}

// Stores groups the persistence collaborators of the table service.
type Stores struct {
	Tables     TableStore
	Players    PlayerStore
	HallOfFame HallOfFameStore
	Visits     VisitStore
}

func mediaKey(tableID, uid string) string {
	return tableID + "/" + uid
}
