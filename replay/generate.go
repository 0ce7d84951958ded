package replay

import (
	"fmt"
	"strings"

	"coup-lite/card"
	"coup-lite/coup"
)

const (
	defaultMatchID = "replay_local"
	defaultSeed    = 1
)

// Generate re-runs a script through the engine and returns its tape. The
// same script always yields the same tape.
func Generate(script Script) (*Tape, error) {
	ns, err := normalizeScript(script)
	if err != nil {
		return nil, err
	}
	game, err := newScriptGame(ns)
	if err != nil {
		return nil, err
	}

	for stepIdx, in := range ns.inputs {
		if game.Ended() {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "no_input_expected",
				Message:   "match is already over; no further inputs are allowed",
			}
		}
		pr := game.Prompt()
		if pr.PlayerID != in.Player {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "out_of_turn",
				Message:   fmt.Sprintf("expected input from %s, got %s", pr.PlayerID, in.Player),
				Expected:  expectedState(game),
			}
		}
		if !kindMatches(pr.Kind, in.Kind) {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "kind_mismatch",
				Message:   fmt.Sprintf("engine waits for %s, got %s", pr.Kind, in.Kind),
				Expected:  expectedState(game),
			}
		}
		if err := Apply(game, in); err != nil {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "input_rejected",
				Message:   err.Error(),
				Expected:  expectedState(game),
			}
		}
	}

	return FromGame(ns.matchID, ns.config.Seed, game), nil
}

func newScriptGame(ns normalizedScript) (*coup.Game, error) {
	game, err := coup.NewGame(ns.config)
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}
	for _, seat := range ns.seats {
		if err := game.SitDown(seat.Chair, seat.ID, seat.Name, seat.Bot); err != nil {
			return nil, &ReplayError{StepIndex: -1, Reason: "seat_init_failed", Message: err.Error()}
		}
	}
	if err := game.Start(); err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "start_failed", Message: err.Error()}
	}
	return game, nil
}

func seedOf(script Script) int64 {
	if script.Seed == 0 {
		return defaultSeed
	}
	return script.Seed
}

func kindMatches(p coup.PromptKind, kind string) bool {
	switch kind {
	case InputAction:
		return p == coup.PromptAction
	case InputReaction:
		return p.IsReaction()
	case InputLose:
		return p == coup.PromptInfluenceLoss
	case InputKeep:
		return p == coup.PromptExchange
	}
	return false
}

// Apply feeds one input to the engine.
func Apply(game *coup.Game, in Input) error {
	switch in.Kind {
	case InputAction:
		a, ok := coup.ParseAction(in.Action)
		if !ok {
			return fmt.Errorf("%w: unknown action %q", coup.ErrInvalidAction, in.Action)
		}
		return game.DeclareAction(in.Player, a, in.Target)
	case InputReaction:
		r, err := ParseReaction(in.Reaction, in.Role)
		if err != nil {
			return err
		}
		return game.SubmitReaction(in.Player, r)
	case InputLose:
		return game.ResolveInfluenceLoss(in.Player, in.Card)
	case InputKeep:
		return game.ResolveExchangeKeep(in.Player, in.Keep)
	default:
		return fmt.Errorf("unknown input kind %q", in.Kind)
	}
}

// ParseReaction turns wire strings into a reaction.
func ParseReaction(kind, role string) (coup.Reaction, error) {
	var k coup.ReactionKind
	if err := k.UnmarshalText([]byte(strings.ToLower(kind))); err != nil {
		return coup.Reaction{}, fmt.Errorf("%w: %v", coup.ErrInvalidReaction, err)
	}
	r := coup.Reaction{Kind: k}
	if k == coup.ReactionBlock {
		rr, ok := card.ParseRole(role)
		if !ok {
			return coup.Reaction{}, fmt.Errorf("%w: unknown block role %q", coup.ErrInvalidReaction, role)
		}
		r.Role = rr
	}
	return r, nil
}

func expectedState(game *coup.Game) *ExpectedState {
	pr := game.Prompt()
	return &ExpectedState{
		Prompt:       pr.Kind,
		PlayerID:     pr.PlayerID,
		LegalActions: game.LegalActions(pr.PlayerID),
		Phase:        game.Snapshot().Phase.String(),
	}
}

// FromGame builds a tape from the game's log.
func FromGame(matchID string, seed int64, game *coup.Game) *Tape {
	log := game.Log()
	tape := &Tape{
		MatchID: matchID,
		Seed:    seed,
		Steps:   make([]Step, 0, len(log)),
	}
	if len(log) > 0 {
		for _, ps := range log[len(log)-1].Snapshot.Players {
			tape.Players = append(tape.Players, PlayerInfo{ID: ps.ID, Name: ps.Name, Chair: ps.Chair, Bot: ps.Bot})
		}
	}
	for _, e := range log {
		tape.Steps = append(tape.Steps, Step{Index: e.Index, Text: e.Text, Snapshot: e.Snapshot})
	}
	return tape
}
