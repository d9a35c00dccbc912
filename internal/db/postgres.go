package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const hallOfFameSchema = `
CREATE TABLE IF NOT EXISTS hall_of_fame (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	origin_table_id TEXT NOT NULL,
	joined_at       TIMESTAMPTZ NOT NULL,
	score           NUMERIC(3,1) NOT NULL,
	player          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS hall_of_fame_rank_idx ON hall_of_fame (score DESC, joined_at ASC);
CREATE INDEX IF NOT EXISTS hall_of_fame_origin_idx ON hall_of_fame (origin_table_id, user_id);
`

// ConnectPostgres opens a pgx pool and pings it.
func ConnectPostgres(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// Try pinging to make sure it's valid
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Infof("connected to postgres %s", pool.Config().ConnConfig.Database)
	return pool, nil
}

func EnsureHallOfFameSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, hallOfFameSchema); err != nil {
		return fmt.Errorf("create hall_of_fame schema: %w", err)
	}
	return nil
}
