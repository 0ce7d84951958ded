package replay

import (
	"fmt"
	"strings"

	"coup-lite/card"
	"coup-lite/coup"
)

// normalizedScript is a Script checked and resolved into engine terms.
type normalizedScript struct {
	matchID string
	config  coup.Config
	seats   []SeatSpec
	inputs  []Input
}

// normalizeScript checks everything about a script that does not need the
// engine: table, seats, deck and the shape of each input. Whether an input
// is legal when it arrives is left to Generate.
func normalizeScript(script Script) (normalizedScript, error) {
	var out normalizedScript
	out.matchID = script.MatchID
	if out.matchID == "" {
		out.matchID = defaultMatchID
	}

	cfg := coup.DefaultConfig()
	cfg.Seed = seedOf(script)
	if n := script.Table.MaxPlayers; n != 0 {
		if n < cfg.MinPlayers || n > cfg.MaxPlayers {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_table", Message: fmt.Sprintf("table.maxPlayers must be %d..%d", cfg.MinPlayers, cfg.MaxPlayers)}
		}
		cfg.MaxPlayers = n
	}
	if v := script.Table.StartingCoins; v != nil {
		if *v < 0 {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_table", Message: "table.startingCoins must be >= 0"}
		}
		cfg.StartingCoins = *v
	}
	if v := script.Table.ForcedCoupCoins; v != nil {
		cfg.ForcedCoupCoins = *v
	}
	if v := script.Table.RefundOnCaughtAssassin; v != nil {
		cfg.RefundOnCaughtAssassin = *v
	}
	if v := script.Table.FirstChair; v != nil {
		if int(*v) >= cfg.MaxPlayers {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_first_chair", Message: fmt.Sprintf("firstChair %d out of range", *v)}
		}
		cfg.ForcedFirstChair = v
	}

	if len(script.Seats) < cfg.MinPlayers {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_seats", Message: fmt.Sprintf("at least %d seats are required", cfg.MinPlayers)}
	}
	seenChair := make(map[uint16]struct{}, len(script.Seats))
	seenID := make(map[string]struct{}, len(script.Seats))
	for i, seat := range script.Seats {
		if int(seat.Chair) >= cfg.MaxPlayers {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_seat", Message: fmt.Sprintf("seat %d chair out of range", i)}
		}
		if _, exists := seenChair[seat.Chair]; exists {
			return out, &ReplayError{StepIndex: -1, Reason: "duplicate_chair", Message: fmt.Sprintf("duplicate chair %d", seat.Chair)}
		}
		seenChair[seat.Chair] = struct{}{}

		seat.ID = strings.TrimSpace(seat.ID)
		if seat.ID == "" {
			seat.ID = fmt.Sprintf("p%d", seat.Chair)
		}
		if _, exists := seenID[seat.ID]; exists {
			return out, &ReplayError{StepIndex: -1, Reason: "duplicate_player", Message: fmt.Sprintf("duplicate player id %q", seat.ID)}
		}
		seenID[seat.ID] = struct{}{}
		seat.Name = strings.TrimSpace(seat.Name)
		if seat.Name == "" {
			seat.Name = fmt.Sprintf("P%d", seat.Chair)
		}
		out.seats = append(out.seats, seat)
	}

	deck, err := parseDeck(script.Deck, cfg.CopiesPerRole)
	if err != nil {
		return out, err
	}
	cfg.DeckOverride = deck

	out.inputs = make([]Input, 0, len(script.Inputs))
	for i, in := range script.Inputs {
		if _, ok := seenID[in.Player]; !ok {
			return out, &ReplayError{StepIndex: int32(i), Reason: "unknown_player", Message: fmt.Sprintf("player %q is not seated", in.Player)}
		}
		switch in.Kind {
		case InputAction:
			if _, ok := coup.ParseAction(in.Action); !ok {
				return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_action", Message: fmt.Sprintf("unknown action %q", in.Action)}
			}
		case InputReaction:
			if _, err := ParseReaction(in.Reaction, in.Role); err != nil {
				return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_reaction", Message: err.Error()}
			}
		case InputLose:
			if in.Card < 0 {
				return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_selection", Message: "card index must be >= 0"}
			}
		case InputKeep:
			if len(in.Keep) == 0 {
				return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_selection", Message: "keep must name at least one card"}
			}
		default:
			return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_kind", Message: fmt.Sprintf("unknown input kind %q", in.Kind)}
		}
		out.inputs = append(out.inputs, in)
	}

	out.config = cfg
	return out, nil
}

// parseDeck resolves a fixed deck by role name. An empty list keeps the
// seeded shuffle.
func parseDeck(deck []string, copies int) ([]card.Role, error) {
	if len(deck) == 0 {
		return nil, nil
	}
	want := copies * len(card.Roles)
	if len(deck) != want {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_deck", Message: fmt.Sprintf("deck must contain %d cards", want)}
	}
	out := make([]card.Role, len(deck))
	counts := make(map[card.Role]int, len(card.Roles))
	for i, s := range deck {
		r, ok := card.ParseRole(s)
		if !ok {
			return nil, &ReplayError{StepIndex: -1, Reason: "invalid_deck_card", Message: fmt.Sprintf("deck[%d]: unknown role %q", i, s)}
		}
		counts[r]++
		out[i] = r
	}
	for _, r := range card.Roles {
		if counts[r] != copies {
			return nil, &ReplayError{StepIndex: -1, Reason: "invalid_deck", Message: fmt.Sprintf("deck has %d %s, want %d", counts[r], r, copies)}
		}
	}
	return out, nil
}
