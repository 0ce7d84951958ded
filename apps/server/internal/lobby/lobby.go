package lobby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"coup-lite/apps/server/internal/auth"
	"coup-lite/apps/server/internal/config"
	"coup-lite/apps/server/internal/table"
	"coup-lite/coup"
)

const (
	codeLength   = 4
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ" // no I or O
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInvalidOptions = errors.New("invalid room options")
)

// RoomOptions are chosen by whoever opens a room.
type RoomOptions struct {
	MaxPlayers int
	Passcode   string
}

// RoomInfo is one entry of the public room list.
type RoomInfo struct {
	Code       string `json:"code"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Started    bool   `json:"started"`
	Private    bool   `json:"private"`
}

// Lobby manages all rooms by code
type Lobby struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
	rng    *rand.Rand

	deps    table.Deps
	auth    auth.Service
	cfg     config.Server
	options table.Options
}

// New creates a new lobby
func New(cfg config.Server, deps table.Deps) *Lobby {
	return &Lobby{
		tables: make(map[string]*table.Table),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		deps:   deps,
		auth:   deps.Auth,
		cfg:    cfg,
	}
}

// SetTableOptions overrides the actor options of rooms created afterwards.
func (l *Lobby) SetTableOptions(opts table.Options) {
	l.mu.Lock()
	l.options = opts
	l.mu.Unlock()
}

// CreateRoom opens a room under a fresh code.
func (l *Lobby) CreateRoom(opts RoomOptions) (*table.Table, error) {
	hash, err := auth.HashPasscode(opts.Passcode)
	if err != nil {
		return nil, err
	}
	game := coup.DefaultConfig()
	if opts.MaxPlayers != 0 {
		if opts.MaxPlayers < game.MinPlayers || opts.MaxPlayers > game.MaxPlayers {
			return nil, fmt.Errorf("%w: maxPlayers must be %d..%d", ErrInvalidOptions, game.MinPlayers, game.MaxPlayers)
		}
		game.MaxPlayers = opts.MaxPlayers
	}
	tcfg := table.TableConfig{
		Game:            game,
		ActionTimeout:   l.cfg.ActionTimeout,
		ReactionTimeout: l.cfg.ReactionTimeout,
		BotThinkMin:     l.cfg.BotThinkMin,
		BotThinkMax:     l.cfg.BotThinkMax,
		PasscodeHash:    hash,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	code := l.newCodeLocked()
	t, err := table.New(code, tcfg, l.deps, l.options)
	if err != nil {
		return nil, err
	}
	l.tables[code] = t
	log.Printf("[Lobby] Room %s opened (max=%d, private=%v)", code, game.MaxPlayers, hash != nil)
	return t, nil
}

// QuickStart finds an open public room with a free seat or creates one.
func (l *Lobby) QuickStart() (*table.Table, error) {
	l.mu.RLock()
	codes := l.sortedCodesLocked()
	for _, code := range codes {
		t := l.tables[code]
		if t.IsClosed() || t.Private() {
			continue
		}
		info := t.Info()
		if !info.Started && len(info.Seats) < info.MaxPlayers {
			l.mu.RUnlock()
			log.Printf("[Lobby] QuickStart: joining existing room %s", code)
			return t, nil
		}
	}
	l.mu.RUnlock()
	return l.CreateRoom(RoomOptions{})
}

// GetTable returns a room by code, case-insensitively.
func (l *Lobby) GetTable(code string) (*table.Table, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t := l.tables[strings.ToUpper(strings.TrimSpace(code))]
	if t == nil || t.IsClosed() {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return t, nil
}

// ListRooms returns the public rooms.
func (l *Lobby) ListRooms() []RoomInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]RoomInfo, 0, len(l.tables))
	for _, code := range l.sortedCodesLocked() {
		t := l.tables[code]
		if t.IsClosed() || t.Private() {
			continue
		}
		info := t.Info()
		out = append(out, RoomInfo{
			Code:       code,
			Players:    len(info.Seats),
			MaxPlayers: info.MaxPlayers,
			Started:    info.Started,
		})
	}
	return out
}

// Sweep closes rooms nobody has been connected to for ttl and returns
// their codes.
func (l *Lobby) Sweep(ttl time.Duration) []string {
	l.mu.Lock()
	var closed []string
	for code, t := range l.tables {
		if !t.IsIdleFor(ttl) {
			continue
		}
		t.Stop()
		delete(l.tables, code)
		closed = append(closed, code)
	}
	l.mu.Unlock()

	sort.Strings(closed)
	for _, code := range closed {
		if l.auth != nil {
			l.auth.RevokeRoom(code)
		}
		log.Printf("[Lobby] Room %s closed after %s idle", code, ttl)
	}
	return closed
}

// RunJanitor sweeps idle rooms until ctx is done.
func (l *Lobby) RunJanitor(ctx context.Context, ttl, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(ttl)
		}
	}
}

// Close stops every room.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for code, t := range l.tables {
		t.Stop()
		delete(l.tables, code)
	}
}

func (l *Lobby) newCodeLocked() string {
	for {
		var b strings.Builder
		for i := 0; i < codeLength; i++ {
			b.WriteByte(codeAlphabet[l.rng.Intn(len(codeAlphabet))])
		}
		if _, taken := l.tables[b.String()]; !taken {
			return b.String()
		}
	}
}

func (l *Lobby) sortedCodesLocked() []string {
	codes := make([]string, 0, len(l.tables))
	for code := range l.tables {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
