package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coup-lite/card"
	"coup-lite/coup"
)

// MsgType names the payload carried by an Envelope.
type MsgType string

const (
	TypeAction        MsgType = "action"
	TypeReaction      MsgType = "reaction"
	TypeSelection     MsgType = "selection"
	TypeStateSync     MsgType = "stateSync"
	TypePlayerJoin    MsgType = "playerJoin"
	TypePlayerLeave   MsgType = "playerLeave"
	TypeLobbyUpdate   MsgType = "lobbyUpdate"
	TypeGameStart     MsgType = "gameStart"
	TypePrompt        MsgType = "prompt"
	TypeGameOver      MsgType = "gameOver"
	TypeResyncRequest MsgType = "resyncRequest"
	TypeError         MsgType = "error"

	// lobby controls, host seat only
	TypeStartGame MsgType = "startGame"
	TypeAddBot    MsgType = "addBot"
)

// Envelope is the single frame exchanged between host and peers.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var ErrBadEnvelope = errors.New("bad envelope")

// Encode wraps payload in an envelope.
func Encode(t MsgType, seq uint64, payload any) ([]byte, error) {
	env := Envelope{Type: t, Seq: seq}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses an envelope without touching its payload.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrBadEnvelope)
	}
	return env, nil
}

// Into decodes the payload into v.
func (e Envelope) Into(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrBadEnvelope, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrBadEnvelope, e.Type, err)
	}
	return nil
}

// --- peer -> host ---

type ActionPayload struct {
	ReqID  string          `json:"reqId,omitempty"`
	Action coup.ActionType `json:"action"`
	Target string          `json:"target,omitempty"`
}

type ReactionPayload struct {
	ReqID string            `json:"reqId,omitempty"`
	Kind  coup.ReactionKind `json:"kind"`
	Role  card.Role         `json:"role,omitempty"`
}

func (p ReactionPayload) Reaction() coup.Reaction {
	return coup.Reaction{Kind: p.Kind, Role: p.Role}
}

// SelectionPayload answers an influence-loss prompt (Card) or an exchange
// prompt (Keep). Which one is read depends on the open prompt.
type SelectionPayload struct {
	ReqID string `json:"reqId,omitempty"`
	Card  int    `json:"card"`
	Keep  []int  `json:"keep,omitempty"`
}

// PlayerJoinPayload is sent by a peer to join a room, and echoed back to that
// peer with PlayerID, Chair and Token filled in.
type PlayerJoinPayload struct {
	Room     string `json:"room,omitempty"`
	Name     string `json:"name,omitempty"`
	Passcode string `json:"passcode,omitempty"`
	Token    string `json:"token,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Chair    uint16 `json:"chair"`
	Resumed  bool   `json:"resumed,omitempty"`
}

type PlayerLeavePayload struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason,omitempty"`
}

type AddBotPayload struct {
	Profile string `json:"profile,omitempty"`
}

type ResyncRequestPayload struct {
	Seq uint64 `json:"seq"`
}

// --- host -> peer ---

type SeatInfo struct {
	Chair    uint16 `json:"chair"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Bot      bool   `json:"bot"`
	Online   bool   `json:"online"`
}

type LobbyUpdatePayload struct {
	Room       string     `json:"room"`
	HostID     string     `json:"hostId"`
	MaxPlayers int        `json:"maxPlayers"`
	MinPlayers int        `json:"minPlayers"`
	Seats      []SeatInfo `json:"seats"`
	Started    bool       `json:"started"`
}

type GameStartPayload struct {
	MatchID     string     `json:"matchId"`
	Seats       []SeatInfo `json:"seats"`
	FirstPlayer string     `json:"firstPlayer"`
}

// StateSyncPayload carries the full state for one viewer. PrevSeq is the
// seq of the last sync sent to the same viewer; 0 means "accept as base".
type StateSyncPayload struct {
	MatchID  string        `json:"matchId"`
	Seq      uint64        `json:"seq"`
	PrevSeq  uint64        `json:"prevSeq"`
	Snapshot coup.Snapshot `json:"snapshot"`
	LogFrom  int           `json:"logFrom"`
	NewLog   []string      `json:"newLog,omitempty"`
}

// PromptPayload asks one player for input. The answer echoes ReqID.
type PromptPayload struct {
	ReqID      string              `json:"reqId"`
	Kind       coup.PromptKind     `json:"kind"`
	PlayerID   string              `json:"playerId"`
	DeadlineMs int64               `json:"deadlineMs"`
	Legal      []coup.ActionOption `json:"legal,omitempty"`
	BlockRoles []card.Role         `json:"blockRoles,omitempty"`
	KeepCount  int                 `json:"keepCount,omitempty"`
}

type GameOverPayload struct {
	MatchID    string `json:"matchId"`
	Winner     string `json:"winner"`
	WinnerName string `json:"winnerName"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BuildPrompt fills the per-kind options of a prompt.
func BuildPrompt(reqID string, pr coup.Prompt, snap coup.Snapshot, legal []coup.ActionOption, deadline time.Time) PromptPayload {
	p := PromptPayload{
		ReqID:    reqID,
		Kind:     pr.Kind,
		PlayerID: pr.PlayerID,
		Legal:    legal,
	}
	if !deadline.IsZero() {
		p.DeadlineMs = deadline.UnixMilli()
	}
	if snap.Pending != nil {
		switch pr.Kind {
		case coup.PromptBlock:
			p.BlockRoles = append([]card.Role(nil), coup.Lookup(snap.Pending.Action).BlockableBy...)
		case coup.PromptExchange:
			p.KeepCount = snap.Pending.KeepCount
		}
	}
	return p
}

// Error codes sent in ErrorPayload.
const (
	CodeBadRequest      = "bad_request"
	CodeInvalidAction   = "invalid_action"
	CodeInvalidReaction = "invalid_reaction"
	CodeStaleReaction   = "stale_reaction"
	CodeInvalidSelect   = "invalid_selection"
	CodeGameOver        = "game_over"
	CodeGameInProgress  = "game_in_progress"
	CodeNotStarted      = "not_started"
	CodeRejected        = "rejected"
)

// ErrorFor maps an input error to the payload returned to the erring peer.
func ErrorFor(err error) ErrorPayload {
	code := CodeRejected
	switch {
	case errors.Is(err, ErrBadEnvelope):
		code = CodeBadRequest
	case errors.Is(err, coup.ErrStaleReaction):
		code = CodeStaleReaction
	case errors.Is(err, coup.ErrInvalidReaction):
		code = CodeInvalidReaction
	case errors.Is(err, coup.ErrInvalidAction):
		code = CodeInvalidAction
	case errors.Is(err, coup.ErrInvalidSelection):
		code = CodeInvalidSelect
	case errors.Is(err, coup.ErrGameOver):
		code = CodeGameOver
	case errors.Is(err, coup.ErrGameInProgress):
		code = CodeGameInProgress
	case errors.Is(err, coup.ErrNotStarted):
		code = CodeNotStarted
	}
	return ErrorPayload{Code: code, Message: err.Error()}
}
