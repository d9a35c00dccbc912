package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

const (
	DefaultHallOfFameLimit = 20
	MaxHallOfFameLimit     = 100
)

// HallOfFameEntryID is deterministic so inducting the same plate twice
// overwrites a single entry.
func HallOfFameEntryID(tableID, uid string) string {
	return tableID + ":" + uid
}

// AddToHallOfFame snapshots the principal's scored plate into the global
// hall of fame. Anonymous principals must link an account first.
func (s *TableService) AddToHallOfFame(ctx context.Context, p models.Principal, tableID string) (*models.HallOfFameEntry, error) {
	if p.ID == "" {
		return nil, ErrNotReady
	}
	if p.IsAnonymous {
		return nil, fmt.Errorf("%w: sign in to join the hall of fame", ErrUnauthorized)
	}

	player, err := s.players.GetPlayer(ctx, tableID, p.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: no plate on table %s", ErrNotFound, tableID)
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	if !player.IsScored() {
		return nil, fmt.Errorf("%w: plate has not been rated yet", ErrInvalidScore)
	}

	entry, err := s.induct(ctx, p.ID, player)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, tableID)
	return entry, nil
}

func (s *TableService) induct(ctx context.Context, userID string, player *models.Player) (*models.HallOfFameEntry, error) {
	snapshot := player.Clone()
	snapshot.UID = userID
	snapshot.InHallOfFame = true

	entry := &models.HallOfFameEntry{
		ID:                 HallOfFameEntryID(player.TableID, userID),
		UserID:             userID,
		OriginTableID:      player.TableID,
		HallOfFameJoinedAt: s.now().UTC(),
		Player:             *snapshot,
	}
	if err := s.hallOfFame.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create hall of fame entry: %w", err)
	}
	if err := s.players.SetHallOfFame(ctx, player.TableID, userID, true); err != nil {
		return nil, fmt.Errorf("flag player: %w", err)
	}
	return entry, nil
}

// RemoveFromHallOfFame deletes an entry owned by the principal. Removing an
// entry that no longer exists succeeds.
func (s *TableService) RemoveFromHallOfFame(ctx context.Context, p models.Principal, entryID string) error {
	entry, err := s.hallOfFame.GetEntry(ctx, entryID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get hall of fame entry: %w", err)
	}
	if entry.UserID != p.ID {
		return ErrUnauthorized
	}

	if err := s.hallOfFame.DeleteEntry(ctx, entryID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("delete hall of fame entry: %w", err)
	}

	err = s.players.SetHallOfFame(ctx, entry.OriginTableID, entry.UserID, false)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Warnf("[TableService.RemoveFromHallOfFame] unflag %s/%s: %s", entry.OriginTableID, entry.UserID, err)
	}

	s.notify(ctx, entry.OriginTableID)
	return nil
}

// ListHallOfFame returns the best entries, highest score first, at most
// MaxHallOfFameLimit of them.
func (s *TableService) ListHallOfFame(ctx context.Context, limit int64) ([]*models.HallOfFameEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHallOfFameLimit
	case limit > MaxHallOfFameLimit:
		limit = MaxHallOfFameLimit
	}
	entries, err := s.hallOfFame.ListTopEntries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list hall of fame: %w", err)
	}
	return entries, nil
}
