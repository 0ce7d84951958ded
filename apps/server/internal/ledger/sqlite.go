package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	sqlHistory
}

func NewSQLiteService(dbPath string, limit int) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one connection: every :memory: connection is its own database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteHistorySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{sqlHistory{
		db:    db,
		limit: limit,
		upsertSQL: `
INSERT INTO match_history (
    match_id, room, played_at_ms, winner_id, winner_name, players_json, step_count, tape_blob, script_json, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (match_id) DO UPDATE SET
    room = excluded.room,
    played_at_ms = excluded.played_at_ms,
    winner_id = excluded.winner_id,
    winner_name = excluded.winner_name,
    players_json = excluded.players_json,
    step_count = excluded.step_count,
    tape_blob = excluded.tape_blob,
    script_json = excluded.script_json`,
		trimSQL: `
DELETE FROM match_history
WHERE id NOT IN (
    SELECT id FROM match_history ORDER BY played_at_ms DESC, id DESC LIMIT ?
)`,
		recentSQL: `
SELECT match_id, room, played_at_ms, winner_id, winner_name, players_json, step_count
FROM match_history
ORDER BY played_at_ms DESC, id DESC
LIMIT ?`,
		getSQL: `
SELECT match_id, room, played_at_ms, winner_id, winner_name, players_json, step_count, tape_blob, script_json
FROM match_history
WHERE match_id = ?`,
	}}, nil
}

func ensureSQLiteHistorySchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS match_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id TEXT NOT NULL UNIQUE,
    room TEXT NOT NULL DEFAULT '',
    played_at_ms INTEGER NOT NULL,
    winner_id TEXT NOT NULL DEFAULT '',
    winner_name TEXT NOT NULL DEFAULT '',
    players_json TEXT NOT NULL DEFAULT '[]',
    step_count INTEGER NOT NULL DEFAULT 0,
    tape_blob BLOB,
    script_json TEXT NOT NULL DEFAULT '{}',
    created_at_ms INTEGER NOT NULL
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
