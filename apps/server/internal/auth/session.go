package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const (
	defaultSeatTTL = 6 * time.Hour
	tokenBytes     = 32
)

// Seat is what a resume token proves: who sits where.
type Seat struct {
	Room     string
	PlayerID string
	Name     string
}

// Manager keeps seat tokens in memory. Tokens die with the process, as do the
// rooms they point at.
type Manager struct {
	mu sync.Mutex

	ttl    time.Duration
	now    func() time.Time
	tokens map[string]seatRecord // token -> seat
	byRoom map[string][]string   // room -> tokens
}

type seatRecord struct {
	Seat      Seat
	ExpiresAt time.Time
}

func NewManager() *Manager {
	return &Manager{
		ttl:    defaultSeatTTL,
		now:    time.Now,
		tokens: make(map[string]seatRecord),
		byRoom: make(map[string][]string),
	}
}

func (m *Manager) Close() error { return nil }

// IssueSeat returns a new token for the seat. Older tokens for the same seat
// stay valid until they expire.
func (m *Manager) IssueSeat(room, playerID, name string) string {
	token := mustToken()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = seatRecord{
		Seat:      Seat{Room: room, PlayerID: playerID, Name: name},
		ExpiresAt: m.now().Add(m.ttl),
	}
	m.byRoom[room] = append(m.byRoom[room], token)
	return token
}

// ResolveSeat validates and refreshes a seat token.
func (m *Manager) ResolveSeat(token string) (Seat, bool) {
	if token == "" {
		return Seat{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.tokens[token]
	if !exists {
		return Seat{}, false
	}
	now := m.now()
	if !now.Before(rec.ExpiresAt) {
		delete(m.tokens, token)
		return Seat{}, false
	}
	rec.ExpiresAt = now.Add(m.ttl)
	m.tokens[token] = rec
	return rec.Seat, true
}

func (m *Manager) RevokeRoom(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.byRoom[room] {
		delete(m.tokens, token)
	}
	delete(m.byRoom, room)
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
