// Package peer is the remote side of the host link. It mirrors the state the
// host sends and forwards commands; it never decides anything itself.
package peer

import (
	"fmt"
	"sync"

	"coup-lite/codec"
	"coup-lite/coup"
)

// Mirror holds the last state a peer accepted from the host.
type Mirror struct {
	mu sync.RWMutex

	self     codec.PlayerJoinPayload
	lobby    codec.LobbyUpdatePayload
	matchID  string
	seq      uint64
	snapshot coup.Snapshot
	log      []string
	prompt   *codec.PromptPayload
	answered *codec.PromptPayload
	over     *codec.GameOverPayload
	lastErr  *codec.ErrorPayload
	desyncs  int
}

func NewMirror() *Mirror {
	return &Mirror{}
}

// Apply folds one host frame into the mirror. A stateSync that does not
// chain onto the current seq is rejected with an error matching
// codec.ErrProtocolDesync and leaves the mirror unchanged.
func (m *Mirror) Apply(env codec.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch env.Type {
	case codec.TypeStateSync:
		var s codec.StateSyncPayload
		if err := env.Into(&s); err != nil {
			return err
		}
		return m.applySyncLocked(s)
	case codec.TypePlayerJoin:
		var p codec.PlayerJoinPayload
		if err := env.Into(&p); err != nil {
			return err
		}
		m.self = p
	case codec.TypeLobbyUpdate:
		var p codec.LobbyUpdatePayload
		if err := env.Into(&p); err != nil {
			return err
		}
		m.lobby = p
	case codec.TypeGameStart:
		var p codec.GameStartPayload
		if err := env.Into(&p); err != nil {
			return err
		}
		m.matchID = p.MatchID
		m.over = nil
		m.prompt = nil
		m.answered = nil
	case codec.TypePrompt:
		var p codec.PromptPayload
		if err := env.Into(&p); err != nil {
			return err
		}
		m.prompt = &p
		m.answered = nil
	case codec.TypeGameOver:
		var p codec.GameOverPayload
		if err := env.Into(&p); err != nil {
			return err
		}
		m.over = &p
		m.prompt = nil
		m.answered = nil
	case codec.TypeError:
		var p codec.ErrorPayload
		if err := env.Into(&p); err != nil {
			return err
		}
		m.lastErr = &p
		switch p.Code {
		case codec.CodeInvalidAction, codec.CodeInvalidReaction, codec.CodeInvalidSelect, codec.CodeBadRequest:
			// the answer was refused and the host still waits on the same prompt
			m.restorePromptLocked()
		}
	case codec.TypePlayerLeave:
		// the lobbyUpdate that follows carries the seat change
	default:
		return fmt.Errorf("%w: unexpected %s from host", codec.ErrBadEnvelope, env.Type)
	}
	return nil
}

func (m *Mirror) applySyncLocked(s codec.StateSyncPayload) error {
	if s.PrevSeq != 0 && s.MatchID != m.matchID {
		m.desyncs++
		return &codec.DesyncError{Expected: m.seq, Got: s.PrevSeq}
	}
	if err := codec.CheckSequence(m.seq, s); err != nil {
		m.desyncs++
		return err
	}
	base := m.log
	if s.PrevSeq == 0 {
		base = nil
		if s.LogFrom > 0 && s.MatchID == m.matchID && s.LogFrom <= len(m.log) {
			base = m.log[:s.LogFrom]
		}
	}
	if s.LogFrom > len(base) {
		m.desyncs++
		return fmt.Errorf("%w: log resumes at %d, mirror has %d lines", codec.ErrProtocolDesync, s.LogFrom, len(base))
	}

	log := make([]string, 0, s.LogFrom+len(s.NewLog))
	log = append(log, base[:s.LogFrom]...)
	log = append(log, s.NewLog...)

	m.matchID = s.MatchID
	m.seq = s.Seq
	m.snapshot = s.Snapshot
	m.log = log
	m.answered = nil
	if s.Snapshot.GameOver {
		m.prompt = nil
	}
	return nil
}

// Seq is the seq of the last accepted stateSync, 0 before the first one.
func (m *Mirror) Seq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

func (m *Mirror) MatchID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matchID
}

// Snapshot returns the mirrored state with the full log.
func (m *Mirror) Snapshot() coup.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.snapshot
	out.Players = append([]coup.PlayerSnapshot(nil), m.snapshot.Players...)
	out.Log = append([]string(nil), m.log...)
	return out
}

func (m *Mirror) Log() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.log...)
}

// Self is the seat the host assigned to this peer.
func (m *Mirror) Self() codec.PlayerJoinPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.self
}

func (m *Mirror) Lobby() codec.LobbyUpdatePayload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lobby
}

// Prompt is the open request addressed to this peer, or nil.
func (m *Mirror) Prompt() *codec.PromptPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.prompt == nil {
		return nil
	}
	p := *m.prompt
	return &p
}

// takePrompt returns the open prompt's request id and parks the prompt until
// the host either moves on (stateSync, prompt) or rejects the answer (error).
func (m *Mirror) takePrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prompt == nil {
		return ""
	}
	id := m.prompt.ReqID
	m.answered = m.prompt
	m.prompt = nil
	return id
}

// restorePrompt reopens a parked prompt whose answer never reached the host.
func (m *Mirror) restorePrompt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restorePromptLocked()
}

func (m *Mirror) restorePromptLocked() {
	if m.answered != nil && m.prompt == nil {
		m.prompt = m.answered
	}
	m.answered = nil
}

func (m *Mirror) GameOver() *codec.GameOverPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.over == nil {
		return nil
	}
	o := *m.over
	return &o
}

func (m *Mirror) LastError() *codec.ErrorPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastErr == nil {
		return nil
	}
	e := *m.lastErr
	return &e
}

// Desyncs counts rejected stateSync frames.
func (m *Mirror) Desyncs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.desyncs
}
