package coup

import (
	"fmt"

	"coup-lite/card"
)

const InvalidChair uint16 = 65535

// Phase of the pending decision. TurnStart and GameOver are reported when no
// PendingAction is open.
type Phase byte

const (
	PhaseTurnStart                 Phase = 0
	PhaseActionDeclared            Phase = 1
	PhaseAwaitingChallengeOfAction Phase = 2
	PhaseAwaitingBlockDeclaration  Phase = 3
	PhaseAwaitingChallengeOfBlock  Phase = 4
	PhaseAwaitingInfluenceLoss     Phase = 5
	PhaseAwaitingExchange          Phase = 6
	PhaseResolved                  Phase = 7
	PhaseGameOver                  Phase = 8
)

var PhaseDictionary = map[Phase]string{
	PhaseTurnStart:                 "turnStart",
	PhaseActionDeclared:            "actionDeclared",
	PhaseAwaitingChallengeOfAction: "awaitingChallengeOfAction",
	PhaseAwaitingBlockDeclaration:  "awaitingBlockDeclaration",
	PhaseAwaitingChallengeOfBlock:  "awaitingChallengeOfBlock",
	PhaseAwaitingInfluenceLoss:     "awaitingInfluenceLoss",
	PhaseAwaitingExchange:          "awaitingExchange",
	PhaseResolved:                  "resolved",
	PhaseGameOver:                  "gameOver",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return fmt.Sprintf("Phase(%d)", byte(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for k, v := range PhaseDictionary {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// ActionType 动作类型
type ActionType byte

const (
	ActionNone        ActionType = 0
	ActionIncome      ActionType = 1
	ActionForeignAid  ActionType = 2
	ActionCoup        ActionType = 3
	ActionTax         ActionType = 4
	ActionAssassinate ActionType = 5
	ActionSteal       ActionType = 6
	ActionExchange    ActionType = 7
)

// ActionTypeDictionary holds the wire names.
var ActionTypeDictionary = map[ActionType]string{
	ActionNone:        "none",
	ActionIncome:      "income",
	ActionForeignAid:  "foreign_aid",
	ActionCoup:        "coup",
	ActionTax:         "tax",
	ActionAssassinate: "assassinate",
	ActionSteal:       "steal",
	ActionExchange:    "exchange",
}

func (a ActionType) String() string {
	if spec, ok := catalog[a]; ok {
		return spec.Name
	}
	return fmt.Sprintf("Action(%d)", byte(a))
}

func (a ActionType) MarshalText() ([]byte, error) {
	if s, ok := ActionTypeDictionary[a]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("invalid action %d", byte(a))
}

func (a *ActionType) UnmarshalText(b []byte) error {
	parsed, ok := ParseAction(string(b))
	if !ok {
		return fmt.Errorf("unknown action %q", string(b))
	}
	*a = parsed
	return nil
}

type ReactionKind byte

const (
	ReactionPass      ReactionKind = 0
	ReactionChallenge ReactionKind = 1
	ReactionBlock     ReactionKind = 2
)

var ReactionKindDictionary = map[ReactionKind]string{
	ReactionPass:      "pass",
	ReactionChallenge: "challenge",
	ReactionBlock:     "block",
}

func (k ReactionKind) String() string { return ReactionKindDictionary[k] }

func (k ReactionKind) MarshalText() ([]byte, error) {
	s, ok := ReactionKindDictionary[k]
	if !ok {
		return nil, fmt.Errorf("invalid reaction kind %d", byte(k))
	}
	return []byte(s), nil
}

func (k *ReactionKind) UnmarshalText(b []byte) error {
	for kk, v := range ReactionKindDictionary {
		if v == string(b) {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unknown reaction %q", string(b))
}

// Reaction is a player's answer to an open reaction window.
// Role is only meaningful for ReactionBlock.
type Reaction struct {
	Kind ReactionKind `json:"kind"`
	Role card.Role    `json:"role,omitempty"`
}

func Pass() Reaction { return Reaction{Kind: ReactionPass} }
func Challenge() Reaction { return Reaction{Kind: ReactionChallenge} }
func Block(role card.Role) Reaction { return Reaction{Kind: ReactionBlock, Role: role} }

func (r Reaction) String() string {
	if r.Kind == ReactionBlock {
		return "block(" + r.Role.String() + ")"
	}
	return r.Kind.String()
}

type LossReason byte

const (
	LossNone            LossReason = 0
	LossBluffCaught     LossReason = 1
	LossFailedChallenge LossReason = 2
	LossAssassinated    LossReason = 3
	LossCouped          LossReason = 4
)

var LossReasonDictionary = map[LossReason]string{
	LossNone:            "",
	LossBluffCaught:     "bluffCaught",
	LossFailedChallenge: "failedChallenge",
	LossAssassinated:    "assassinated",
	LossCouped:          "couped",
}

func (r LossReason) String() string { return LossReasonDictionary[r] }

func (r LossReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *LossReason) UnmarshalText(b []byte) error {
	for k, v := range LossReasonDictionary {
		if v == string(b) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown loss reason %q", string(b))
}

// PromptKind says what the engine is waiting for.
type PromptKind byte

const (
	PromptNone            PromptKind = 0
	PromptAction          PromptKind = 1
	PromptChallengeAction PromptKind = 2
	PromptBlock           PromptKind = 3
	PromptChallengeBlock  PromptKind = 4
	PromptInfluenceLoss   PromptKind = 5
	PromptExchange        PromptKind = 6
)

var PromptKindDictionary = map[PromptKind]string{
	PromptNone:            "none",
	PromptAction:          "action",
	PromptChallengeAction: "challengeAction",
	PromptBlock:           "block",
	PromptChallengeBlock:  "challengeBlock",
	PromptInfluenceLoss:   "influenceLoss",
	PromptExchange:        "exchange",
}

func (k PromptKind) String() string { return PromptKindDictionary[k] }

func (k PromptKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PromptKind) UnmarshalText(b []byte) error {
	for kk, v := range PromptKindDictionary {
		if v == string(b) {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unknown prompt %q", string(b))
}

// IsReaction reports whether the prompt is answered with SubmitReaction.
func (k PromptKind) IsReaction() bool {
	return k == PromptChallengeAction || k == PromptBlock || k == PromptChallengeBlock
}

// Prompt names the single player the engine is waiting on.
type Prompt struct {
	Kind     PromptKind `json:"kind"`
	PlayerID string     `json:"playerId,omitempty"`
	// Turn is the turn number the prompt belongs to; hosts use it with Kind
	// and PlayerID to tell a fresh prompt from a repeated one.
	Turn int `json:"turn"`
	// Step counts decisions accepted so far in the game.
	Step int `json:"step"`
}
