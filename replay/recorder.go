package replay

import (
	"sync"

	"coup-lite/coup"
)

// Recorder captures the inputs a host accepted so the match can be
// regenerated with Generate.
type Recorder struct {
	mu     sync.Mutex
	script Script
}

func NewRecorder(matchID string, cfg coup.Config, seats []SeatSpec) *Recorder {
	starting := cfg.StartingCoins
	forced := cfg.ForcedCoupCoins
	refund := cfg.RefundOnCaughtAssassin
	table := TableSpec{
		MaxPlayers:             cfg.MaxPlayers,
		StartingCoins:          &starting,
		ForcedCoupCoins:        &forced,
		RefundOnCaughtAssassin: &refund,
	}
	if cfg.ForcedFirstChair != nil {
		c := *cfg.ForcedFirstChair
		table.FirstChair = &c
	}
	var deck []string
	for _, r := range cfg.DeckOverride {
		deck = append(deck, r.String())
	}
	return &Recorder{script: Script{
		MatchID: matchID,
		Seed:    cfg.Seed,
		Table:   table,
		Seats:   append([]SeatSpec(nil), seats...),
		Deck:    deck,
	}}
}

// Record appends an input that the engine accepted.
func (r *Recorder) Record(in Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in.Keep != nil {
		in.Keep = append([]int(nil), in.Keep...)
	}
	r.script.Inputs = append(r.script.Inputs, in)
}

func (r *Recorder) Action(player string, a coup.ActionType, target string) {
	r.Record(Input{Player: player, Kind: InputAction, Action: coup.ActionTypeDictionary[a], Target: target})
}

func (r *Recorder) Reaction(player string, re coup.Reaction) {
	in := Input{Player: player, Kind: InputReaction, Reaction: re.Kind.String()}
	if re.Kind == coup.ReactionBlock {
		in.Role = re.Role.String()
	}
	r.Record(in)
}

func (r *Recorder) Loss(player string, idx int) {
	r.Record(Input{Player: player, Kind: InputLose, Card: idx})
}

func (r *Recorder) Keep(player string, keep []int) {
	r.Record(Input{Player: player, Kind: InputKeep, Keep: keep})
}

// Script returns a copy of what was recorded so far.
func (r *Recorder) Script() Script {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.script
	s.Seats = append([]SeatSpec(nil), r.script.Seats...)
	s.Deck = append([]string(nil), r.script.Deck...)
	s.Inputs = append([]Input(nil), r.script.Inputs...)
	return s
}
