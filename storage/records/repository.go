// Package records stores the leaderboard of retired dogs in Postgres.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxPageSize is the largest page GetRecords serves.
const MaxPageSize = 100

// ErrLimitExceeded is returned when a page larger than MaxPageSize is
// requested.
var ErrLimitExceeded = errors.New("records: max_items cannot exceed 100")

// Record is one leaderboard row.
type Record struct {
	Name     string
	Score    int
	PlayTime float64
}

const schema = `
CREATE TABLE IF NOT EXISTS retired_players (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    score INTEGER NOT NULL,
    play_time DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score ON retired_players (score DESC);
CREATE INDEX IF NOT EXISTS idx_play_time ON retired_players (play_time ASC);
CREATE INDEX IF NOT EXISTS idx_name ON retired_players (name ASC);
`

// Repository persists and queries retirement records. The underlying
// pgx pool has a small bounded capacity and a blocking acquire, which
// serializes access from the executor and the read-only handlers.
type Repository struct {
	pool *pgxpool.Pool
}

// Connect opens a bounded connection pool against databaseURL and
// ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("records: parse database url: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("records: connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("records: ensure schema: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// SaveRecord appends one leaderboard row. The caller guarantees
// at-most-one save per retired dog.
func (r *Repository) SaveRecord(ctx context.Context, name string, score int, playTime float64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO retired_players (name, score, play_time) VALUES ($1, $2, $3)`,
		name, score, playTime)
	if err != nil {
		return fmt.Errorf("records: save: %w", err)
	}
	return nil
}

// GetRecords returns a leaderboard page ordered by score descending,
// then play time ascending, then name.
func (r *Repository) GetRecords(ctx context.Context, start, maxItems int) ([]Record, error) {
	if maxItems > MaxPageSize {
		return nil, ErrLimitExceeded
	}

	rows, err := r.pool.Query(ctx,
		`SELECT name, score, play_time
		   FROM retired_players
		  ORDER BY score DESC, play_time ASC, name ASC
		 OFFSET $1 LIMIT $2`,
		start, maxItems)
	if err != nil {
		return nil, fmt.Errorf("records: query: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.Score, &rec.PlayTime); err != nil {
			return nil, fmt.Errorf("records: scan: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: rows: %w", err)
	}
	return result, nil
}
