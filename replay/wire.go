package replay

import (
	"encoding/json"
	"fmt"
)

type WireTape struct {
	TapeVersion int          `json:"tapeVersion"`
	MatchID     string       `json:"matchId"`
	Seed        int64        `json:"seed"`
	Players     []PlayerInfo `json:"players"`
	Steps       []Step       `json:"steps"`
}

const tapeVersion = 1

func ToWireTape(tape *Tape) *WireTape {
	if tape == nil {
		return nil
	}
	return &WireTape{
		TapeVersion: tapeVersion,
		MatchID:     tape.MatchID,
		Seed:        tape.Seed,
		Players:     tape.Players,
		Steps:       tape.Steps,
	}
}

func (w *WireTape) Tape() *Tape {
	return &Tape{MatchID: w.MatchID, Seed: w.Seed, Players: w.Players, Steps: w.Steps}
}

func MarshalTape(tape *Tape) ([]byte, error) {
	return json.Marshal(ToWireTape(tape))
}

// UnmarshalTape decodes and verifies a wire tape.
func UnmarshalTape(data []byte) (*Tape, error) {
	var w WireTape
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode tape: %w", err)
	}
	if w.TapeVersion != tapeVersion {
		return nil, fmt.Errorf("unsupported tape version %d", w.TapeVersion)
	}
	tape := w.Tape()
	if err := tape.Verify(); err != nil {
		return nil, err
	}
	return tape, nil
}
