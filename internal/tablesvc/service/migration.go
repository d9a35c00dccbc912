package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

type MigrationState int

const (
	StateAnonymous MigrationState = iota
	StateLinked
	StateConflictDetected
	StateAwaitingUserConfirmation
	StateMigrating
	StateMigrated
	StateMigrationFailed
)

var migrationStateNames = map[MigrationState]string{
	StateAnonymous:                "anonymous",
	StateLinked:                   "linked",
	StateConflictDetected:         "conflict_detected",
	StateAwaitingUserConfirmation: "awaiting_user_confirmation",
	StateMigrating:                "migrating",
	StateMigrated:                 "migrated",
	StateMigrationFailed:          "migration_failed",
}

func (s MigrationState) String() string {
	if name, ok := migrationStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s MigrationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MigrationState) UnmarshalText(text []byte) error {
	for state, name := range migrationStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown migration state %q", text)
}

var migrationTransitions = map[MigrationState][]MigrationState{
	StateAnonymous:                {StateLinked, StateConflictDetected},
	StateConflictDetected:         {StateAwaitingUserConfirmation},
	StateAwaitingUserConfirmation: {StateMigrating},
	StateMigrating:                {StateMigrated, StateMigrationFailed},
}

type MigrationRequest struct {
	Principal  models.Principal
	TableID    string
	Credential identity.Credential
	// Confirmed is the user's explicit consent to move their anonymous plate
	// into an account that already exists under another id.
	Confirmed bool
}

// Migration is the outcome of one run of the identity migration workflow.
type Migration struct {
	State        MigrationState          `json:"state"`
	From         models.Principal        `json:"from"`
	To           models.Principal        `json:"to"`
	TableID      string                  `json:"table_id"`
	ConflictWith string                  `json:"conflict_with,omitempty"`
	Entry        *models.HallOfFameEntry `json:"entry,omitempty"`
	Warnings     []string                `json:"warnings,omitempty"`
}

func (m *Migration) advance(next MigrationState) error {
	for _, allowed := range migrationTransitions[m.State] {
		if allowed == next {
			log.Debugf("[Migration] %s: %s -> %s", m.From.ID, m.State, next)
			m.State = next
			return nil
		}
	}
	return fmt.Errorf("illegal migration transition %s -> %s", m.State, next)
}

func (m *Migration) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warnf("[Migration] %s: %s", m.From.ID, msg)
	m.Warnings = append(m.Warnings, msg)
}

// MigrateIdentity upgrades an anonymous player so their plate can enter the
// hall of fame. Linking in place keeps the principal id and needs no data
// movement. When the credential belongs to another account the caller gets
// ErrConflictDetected until the request is repeated with Confirmed set; the
// plate is then moved to the existing account.
func (s *TableService) MigrateIdentity(ctx context.Context, req MigrationRequest) (*Migration, error) {
	if req.Principal.ID == "" {
		return nil, ErrNotReady
	}
	if req.TableID == "" {
		return nil, fmt.Errorf("%w: table id required", ErrTableNotFound)
	}
	if s.identity == nil {
		return nil, fmt.Errorf("identity provider not configured")
	}

	m := &Migration{State: StateAnonymous, From: req.Principal, TableID: req.TableID}

	linked, err := s.identity.AttachPersistentCredential(ctx, req.Principal, req.Credential)
	if err == nil {
		if err := m.advance(StateLinked); err != nil {
			return m, err
		}
		m.To = linked
		entry, err := s.AddToHallOfFame(ctx, linked, req.TableID)
		if err != nil {
			return m, err
		}
		m.Entry = entry
		s.recordVisit(ctx, linked, req.TableID)
		return m, nil
	}

	var conflict *identity.ConflictError
	if !errors.As(err, &conflict) {
		return m, fmt.Errorf("attach credential: %w", err)
	}

	if err := m.advance(StateConflictDetected); err != nil {
		return m, err
	}
	m.ConflictWith = conflict.ExistingID
	if err := m.advance(StateAwaitingUserConfirmation); err != nil {
		return m, err
	}
	if !req.Confirmed {
		return m, ErrConflictDetected
	}

	persistent, err := s.identity.SignInPersistent(ctx, req.Credential)
	if err != nil {
		return m, fmt.Errorf("sign in: %w", err)
	}
	m.To = persistent

	if err := m.advance(StateMigrating); err != nil {
		return m, err
	}
	if err := s.movePlate(ctx, m); err != nil {
		if advErr := m.advance(StateMigrationFailed); advErr != nil {
			return m, errors.Join(err, advErr)
		}
		return m, err
	}
	if err := m.advance(StateMigrated); err != nil {
		return m, err
	}

	s.notify(ctx, req.TableID)
	return m, nil
}

// movePlate moves the anonymous player record, its photo and host rights to
// the persistent principal. The new record is written before the old one is
// removed; a run that finds no old record has nothing left to do.
func (s *TableService) movePlate(ctx context.Context, m *Migration) error {
	from, to, tableID := m.From.ID, m.To.ID, m.TableID

	old, err := s.players.GetPlayer(ctx, tableID, from)
	if errors.Is(err, models.ErrNotFound) {
		log.Infof("no player %s on table %s, migration already applied", from, tableID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get anonymous player: %w", err)
	}

	table, err := s.tables.GetTable(ctx, tableID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrTableNotFound
	}
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}

	existing, err := s.players.GetPlayer(ctx, tableID, to)
	if errors.Is(err, models.ErrNotFound) {
		existing = nil
	} else if err != nil {
		return fmt.Errorf("get persistent player: %w", err)
	}

	if existing != nil && existing.IsScored() && !sameSubmission(existing, old) {
		if !outscores(old, existing) {
			if old.IsScored() {
				m.warn("account already has a %.1f plate on this table, anonymous %.1f plate discarded", existing.Score, old.Score)
			}
			return s.retireAnonymous(ctx, m, table, old, existing)
		}
		m.warn("anonymous %.1f plate replaces the account's %.1f plate on this table", old.Score, existing.Score)
	}

	moved := old.Clone()
	moved.UID = to
	moved.InHallOfFame = false
	moved.MigratedFrom = from

	photoMoved := false
	if old.PhotoURL != "" {
		handle, err := s.media.Copy(ctx, mediaKey(tableID, from), mediaKey(tableID, to))
		if err == nil {
			moved.PhotoURL = s.media.PublicURL(handle)
			photoMoved = true
		} else if existing != nil && sameSubmission(existing, old) && existing.PhotoURL != "" {
			// an earlier interrupted run already moved the photo
			moved.PhotoURL = existing.PhotoURL
		} else {
			m.warn("photo copy failed, keeping original reference: %s", err)
		}
	}

	if err := s.players.PutPlayer(ctx, moved); err != nil {
		return fmt.Errorf("write migrated player: %w", err)
	}
	if !photoMoved && existing != nil && existing.PhotoURL != "" && existing.PhotoURL != moved.PhotoURL {
		s.deleteMedia(ctx, tableID, to)
	}

	oldRemoved := true
	if err := s.players.DeletePlayer(ctx, tableID, from); err != nil && !errors.Is(err, models.ErrNotFound) {
		oldRemoved = false
		m.warn("old player record left behind: %s", err)
	}
	if photoMoved && oldRemoved {
		s.deleteMedia(ctx, tableID, from)
	}

	var failures []error
	if table.Host == from {
		if err := s.tables.SetHost(ctx, tableID, to); err != nil {
			failures = append(failures, fmt.Errorf("repoint host: %w", err))
		}
	}

	if moved.IsScored() {
		entry, err := s.induct(ctx, to, moved)
		if err != nil {
			failures = append(failures, err)
		} else {
			m.Entry = entry
		}
	}

	s.recordVisit(ctx, m.To, tableID)
	return errors.Join(failures...)
}

// retireAnonymous finishes a migration whose plate lost to the one the
// account already has on the table: the anonymous record goes, host rights
// and the hall of fame follow the account.
func (s *TableService) retireAnonymous(ctx context.Context, m *Migration, table *models.Table, old, kept *models.Player) error {
	from, to, tableID := m.From.ID, m.To.ID, m.TableID

	if err := s.players.DeletePlayer(ctx, tableID, from); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("delete anonymous player: %w", err)
	}
	if old.PhotoURL != "" && old.PhotoURL != kept.PhotoURL {
		s.deleteMedia(ctx, tableID, from)
	}

	var failures []error
	if table.Host == from {
		if err := s.tables.SetHost(ctx, tableID, to); err != nil {
			failures = append(failures, fmt.Errorf("repoint host: %w", err))
		}
	}
	entry, err := s.induct(ctx, to, kept)
	if err != nil {
		failures = append(failures, err)
	} else {
		m.Entry = entry
	}

	s.recordVisit(ctx, m.To, tableID)
	return errors.Join(failures...)
}

// outscores reports whether the incoming plate beats the one already on the
// account: a higher score wins, a tie keeps the account's plate.
func outscores(incoming, current *models.Player) bool {
	return incoming.Score > current.Score
}

func sameSubmission(a, b *models.Player) bool {
	if a.SubmittedAt == nil || b.SubmittedAt == nil {
		return false
	}
	return a.SubmittedAt.Equal(*b.SubmittedAt) && a.Score == b.Score
}
