package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

// PgHallOfFameStore keeps the global hall of fame in Postgres. The plate
// snapshot is stored as JSONB next to the columns used for ranking.
type PgHallOfFameStore struct {
	db *pgxpool.Pool
}

func NewPgHallOfFameStore(db *pgxpool.Pool) *PgHallOfFameStore {
	return &PgHallOfFameStore{db: db}
}

func (s *PgHallOfFameStore) CreateEntry(ctx context.Context, e *models.HallOfFameEntry) error {
	player, err := json.Marshal(e.Player)
	if err != nil {
		return fmt.Errorf("failed to encode hall of fame plate: %w", err)
	}

	query := `
		INSERT INTO hall_of_fame (id, user_id, origin_table_id, joined_at, score, player)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			origin_table_id = EXCLUDED.origin_table_id,
			joined_at = EXCLUDED.joined_at,
			score = EXCLUDED.score,
			player = EXCLUDED.player
	`
	_, err = s.db.Exec(ctx, query, e.ID, e.UserID, e.OriginTableID, e.HallOfFameJoinedAt, e.Score, player)
	if err != nil {
		return fmt.Errorf("failed to save hall of fame entry: %w", err)
	}
	return nil
}

func (s *PgHallOfFameStore) GetEntry(ctx context.Context, id string) (*models.HallOfFameEntry, error) {
	query := `
		SELECT id, user_id, origin_table_id, joined_at, player
		FROM hall_of_fame
		WHERE id = $1
	`
	e, err := scanEntry(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hall of fame entry: %w", err)
	}
	return e, nil
}

func (s *PgHallOfFameStore) ListTopEntries(ctx context.Context, limit int64) ([]*models.HallOfFameEntry, error) {
	query := `
		SELECT id, user_id, origin_table_id, joined_at, player
		FROM hall_of_fame
		ORDER BY score DESC, joined_at ASC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list hall of fame: %w", err)
	}
	defer rows.Close()

	entries := []*models.HallOfFameEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hall of fame entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list hall of fame: %w", err)
	}
	return entries, nil
}

func (s *PgHallOfFameStore) DeleteEntry(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM hall_of_fame WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete hall of fame entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PgHallOfFameStore) DeleteEntriesByTable(ctx context.Context, tableID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM hall_of_fame WHERE origin_table_id = $1`, tableID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete hall of fame entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgHallOfFameStore) DeleteEntriesByOrigin(ctx context.Context, tableID, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM hall_of_fame WHERE origin_table_id = $1 AND user_id = $2`, tableID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete hall of fame entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (*models.HallOfFameEntry, error) {
	var (
		e        models.HallOfFameEntry
		joinedAt time.Time
		player   []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.OriginTableID, &joinedAt, &player); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(player, &e.Player); err != nil {
		return nil, fmt.Errorf("decode plate: %w", err)
	}
	e.HallOfFameJoinedAt = joinedAt.UTC()
	return &e, nil
}
