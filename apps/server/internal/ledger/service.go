package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coup-lite/apps/server/internal/config"
	"coup-lite/replay"
)

const DefaultHistoryLimit = 20

var ErrNotFound = errors.New("not found")

// Service stores finished matches. Only the newest limit entries are kept.
type Service interface {
	Close() error
	SaveMatch(ctx context.Context, rec MatchRecord) error
	// ListRecent returns summaries, newest first, without tape or script.
	ListRecent(ctx context.Context, limit int) ([]MatchRecord, error)
	GetMatch(ctx context.Context, matchID string) (MatchRecord, error)
}

type PlayerEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot"`
}

// MatchRecord is one history entry. Tape holds a replay.WireTape and Script
// the inputs that regenerate it.
type MatchRecord struct {
	MatchID    string          `json:"matchId"`
	Room       string          `json:"room"`
	PlayedAt   time.Time       `json:"playedAt"`
	Winner     string          `json:"winner"`
	WinnerName string          `json:"winnerName"`
	Players    []PlayerEntry   `json:"players"`
	Steps      int             `json:"steps"`
	Tape       json.RawMessage `json:"tape,omitempty"`
	Script     json.RawMessage `json:"script,omitempty"`
}

// BuildRecord packs a finished match for storage.
func BuildRecord(room string, playedAt time.Time, tape *replay.Tape, script replay.Script) (MatchRecord, error) {
	if tape == nil {
		return MatchRecord{}, fmt.Errorf("nil tape")
	}
	if err := tape.Verify(); err != nil {
		return MatchRecord{}, fmt.Errorf("refusing to store tape %s: %w", tape.MatchID, err)
	}
	tapeRaw, err := replay.MarshalTape(tape)
	if err != nil {
		return MatchRecord{}, err
	}
	scriptRaw, err := json.Marshal(script)
	if err != nil {
		return MatchRecord{}, err
	}
	rec := MatchRecord{
		MatchID:  tape.MatchID,
		Room:     room,
		PlayedAt: playedAt.UTC(),
		Winner:   tape.Winner(),
		Steps:    tape.Len(),
		Tape:     tapeRaw,
		Script:   scriptRaw,
	}
	for _, p := range tape.Players {
		rec.Players = append(rec.Players, PlayerEntry{ID: p.ID, Name: p.Name, Bot: p.Bot})
		if p.ID == rec.Winner {
			rec.WinnerName = p.Name
		}
	}
	return rec, nil
}

func (r MatchRecord) summary() MatchRecord {
	r.Tape = nil
	r.Script = nil
	r.Players = append([]PlayerEntry(nil), r.Players...)
	return r
}

// NewService picks the store named by cfg.HistoryMode.
func NewService(cfg config.Server) (Service, string, error) {
	limit := cfg.HistoryLimit
	switch cfg.HistoryMode {
	case config.HistoryModeSQLite:
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, "", err
		}
		svc, err := NewSQLiteService(path, limit)
		if err != nil {
			return nil, "", err
		}
		return svc, "sqlite", nil
	case config.HistoryModePostgres:
		svc, err := NewPostgresService(cfg.HistoryDSN, limit)
		if err != nil {
			return nil, "", err
		}
		return svc, "postgres", nil
	default:
		return NewMemoryService(limit), "memory", nil
	}
}

// MemoryService keeps history in process memory.
type MemoryService struct {
	mu      sync.RWMutex
	limit   int
	records []MatchRecord // oldest first
}

func NewMemoryService(limit int) *MemoryService {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryService{limit: limit}
}

func (s *MemoryService) Close() error { return nil }

func (s *MemoryService) SaveMatch(_ context.Context, rec MatchRecord) error {
	if strings.TrimSpace(rec.MatchID) == "" {
		return fmt.Errorf("empty match id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].MatchID == rec.MatchID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	s.records = append(s.records, rec)
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].PlayedAt.Before(s.records[j].PlayedAt)
	})
	if over := len(s.records) - s.limit; over > 0 {
		s.records = append([]MatchRecord(nil), s.records[over:]...)
	}
	return nil
}

func (s *MemoryService) ListRecent(_ context.Context, limit int) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = clampLimit(limit, s.limit)
	out := make([]MatchRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i].summary())
	}
	return out, nil
}

func (s *MemoryService) GetMatch(_ context.Context, matchID string) (MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.MatchID == matchID {
			return rec, nil
		}
	}
	return MatchRecord{}, ErrNotFound
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// sqlHistory holds the queries shared by the sqlite and postgres stores.
// Placeholders differ, so each store passes its own statements.
type sqlHistory struct {
	db    *sql.DB
	limit int

	upsertSQL string
	trimSQL   string
	recentSQL string
	getSQL    string
}

func (h *sqlHistory) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

func (h *sqlHistory) SaveMatch(ctx context.Context, rec MatchRecord) error {
	if strings.TrimSpace(rec.MatchID) == "" {
		return fmt.Errorf("empty match id")
	}
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = time.Now().UTC()
	}
	playersRaw, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	script := string(rec.Script)
	if script == "" {
		script = "{}"
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, h.upsertSQL,
		rec.MatchID, rec.Room, rec.PlayedAt.UnixMilli(), rec.Winner, rec.WinnerName,
		string(playersRaw), rec.Steps, []byte(rec.Tape), script, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert match %s: %w", rec.MatchID, err)
	}
	if _, err := tx.ExecContext(ctx, h.trimSQL, h.limit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (h *sqlHistory) ListRecent(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := h.db.QueryContext(ctx, h.recentSQL, clampLimit(limit, h.limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchRecord, 0)
	for rows.Next() {
		var (
			rec        MatchRecord
			playedAtMs int64
			players    string
		)
		if err := rows.Scan(&rec.MatchID, &rec.Room, &playedAtMs, &rec.Winner, &rec.WinnerName, &players, &rec.Steps); err != nil {
			return nil, err
		}
		rec.PlayedAt = time.UnixMilli(playedAtMs).UTC()
		if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
			return nil, fmt.Errorf("decode players of %s: %w", rec.MatchID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (h *sqlHistory) GetMatch(ctx context.Context, matchID string) (MatchRecord, error) {
	var (
		rec        MatchRecord
		playedAtMs int64
		players    string
		tape       []byte
		script     string
	)
	err := h.db.QueryRowContext(ctx, h.getSQL, matchID).Scan(
		&rec.MatchID, &rec.Room, &playedAtMs, &rec.Winner, &rec.WinnerName, &players, &rec.Steps, &tape, &script,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return MatchRecord{}, err
	}
	rec.PlayedAt = time.UnixMilli(playedAtMs).UTC()
	if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
		return MatchRecord{}, fmt.Errorf("decode players of %s: %w", matchID, err)
	}
	if len(tape) > 0 {
		rec.Tape = json.RawMessage(tape)
	}
	if script != "" {
		rec.Script = json.RawMessage(script)
	}
	return rec, nil
}
