package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	sqlHistory
}

func NewPostgresService(dsn string, limit int) (*PostgresService, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresHistorySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresService{sqlHistory{
		db:    db,
		limit: limit,
		upsertSQL: `
INSERT INTO match_history (
    match_id, room, played_at_ms, winner_id, winner_name, players_json, step_count, tape_blob, script_json, created_at_ms
)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9::jsonb, $10)
ON CONFLICT (match_id) DO UPDATE SET
    room = EXCLUDED.room,
    played_at_ms = EXCLUDED.played_at_ms,
    winner_id = EXCLUDED.winner_id,
    winner_name = EXCLUDED.winner_name,
    players_json = EXCLUDED.players_json,
    step_count = EXCLUDED.step_count,
    tape_blob = EXCLUDED.tape_blob,
    script_json = EXCLUDED.script_json`,
		trimSQL: `
DELETE FROM match_history
WHERE id NOT IN (
    SELECT id FROM match_history ORDER BY played_at_ms DESC, id DESC LIMIT $1
)`,
		recentSQL: `
SELECT match_id, room, played_at_ms, winner_id, winner_name, players_json::text, step_count
FROM match_history
ORDER BY played_at_ms DESC, id DESC
LIMIT $1`,
		getSQL: `
SELECT match_id, room, played_at_ms, winner_id, winner_name, players_json::text, step_count, tape_blob, script_json::text
FROM match_history
WHERE match_id = $1`,
	}}, nil
}

func ensurePostgresHistorySchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS match_history (
    id BIGSERIAL PRIMARY KEY,
    match_id TEXT NOT NULL UNIQUE,
    room TEXT NOT NULL DEFAULT '',
    played_at_ms BIGINT NOT NULL,
    winner_id TEXT NOT NULL DEFAULT '',
    winner_name TEXT NOT NULL DEFAULT '',
    players_json JSONB NOT NULL DEFAULT '[]'::jsonb,
    step_count INTEGER NOT NULL DEFAULT 0,
    tape_blob BYTEA,
    script_json JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at_ms BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_match_history_recent ON match_history(played_at_ms DESC, id DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
