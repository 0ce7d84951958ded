package replay

import "coup-lite/coup"

// Script is a match described as a seed plus the ordered player inputs.
type Script struct {
	MatchID string     `json:"matchId,omitempty"`
	Seed    int64      `json:"seed"`
	Table   TableSpec  `json:"table"`
	Seats   []SeatSpec `json:"seats"`
	// Deck optionally fixes the full deck, top first, by role name.
	Deck   []string `json:"deck,omitempty"`
	Inputs []Input  `json:"inputs"`
}

type TableSpec struct {
	MaxPlayers             int     `json:"maxPlayers,omitempty"`
	StartingCoins          *int    `json:"startingCoins,omitempty"`
	ForcedCoupCoins        *int    `json:"forcedCoupCoins,omitempty"`
	RefundOnCaughtAssassin *bool   `json:"refundOnCaughtAssassin,omitempty"`
	FirstChair             *uint16 `json:"firstChair,omitempty"`
}

type SeatSpec struct {
	Chair uint16 `json:"chair"`
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Bot   bool   `json:"bot,omitempty"`
}

// Input kinds.
const (
	InputAction   = "action"
	InputReaction = "reaction"
	InputLose     = "lose"
	InputKeep     = "keep"
)

// Input is one accepted player decision.
type Input struct {
	Player   string `json:"player"`
	Kind     string `json:"kind"`
	Action   string `json:"action,omitempty"`
	Target   string `json:"target,omitempty"`
	Reaction string `json:"reaction,omitempty"`
	Role     string `json:"role,omitempty"`
	Card     int    `json:"card,omitempty"`
	Keep     []int  `json:"keep,omitempty"`
}

// Tape is the recorded history of one match: one step per log entry.
type Tape struct {
	MatchID string       `json:"matchId"`
	Seed    int64        `json:"seed"`
	Players []PlayerInfo `json:"players"`
	Steps   []Step       `json:"steps"`
}

type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Chair uint16 `json:"chair"`
	Bot   bool   `json:"bot,omitempty"`
}

// Step is a log line and the state right after it.
type Step struct {
	Index    int           `json:"index"`
	Text     string        `json:"text"`
	Snapshot coup.Snapshot `json:"snapshot"`
}
