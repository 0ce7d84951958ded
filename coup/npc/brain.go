package npc

import (
	"coup-lite/card"
	"coup-lite/coup"
)

// PublicPlayer is what every seat can see about a player.
type PublicPlayer struct {
	ID        string
	Name      string
	Coins     int
	LiveCount int
	Alive     bool
	Revealed  []card.Role
	Claims    map[card.Role]int
}

// GameView is a read-only projection of the game state visible to the NPC.
type GameView struct {
	Self   string
	Prompt coup.PromptKind

	Hand  []card.Role
	Coins int

	Players []PublicPlayer // seat order, self included
	Pending *coup.PendingSnapshot
	Legal   []coup.ActionOption

	CopiesPerRole   int
	ForcedCoupCoins int
}

// Me returns the NPC's own public row.
func (v GameView) Me() PublicPlayer {
	for _, p := range v.Players {
		if p.ID == v.Self {
			return p
		}
	}
	return PublicPlayer{ID: v.Self}
}

func (v GameView) player(id string) (PublicPlayer, bool) {
	for _, p := range v.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PublicPlayer{}, false
}

// RevealedCount counts dead copies of r across the table.
func (v GameView) RevealedCount(r card.Role) int {
	n := 0
	for _, p := range v.Players {
		for _, rr := range p.Revealed {
			if rr == r {
				n++
			}
		}
	}
	return n
}

// HandCount counts the NPC's live copies of r.
func (v GameView) HandCount(r card.Role) int {
	n := 0
	for _, h := range v.Hand {
		if h == r {
			n++
		}
	}
	return n
}

func (v GameView) Holds(r card.Role) bool { return v.HandCount(r) > 0 }

// KeepCount is the number of cards an open exchange must keep.
func (v GameView) KeepCount() int {
	if v.Pending == nil {
		return 0
	}
	return v.Pending.KeepCount
}

// LegalOption reports whether action a may be declared, and its targets.
func (v GameView) LegalOption(a coup.ActionType) (coup.ActionOption, bool) {
	for _, o := range v.Legal {
		if o.Action == a {
			return o, true
		}
	}
	return coup.ActionOption{}, false
}

// Decision is what a BrainDecider returns. Only the fields matching the
// prompt are read.
type Decision struct {
	Action    coup.ActionType
	Target    string
	Reaction  coup.Reaction
	CardIndex int
	Keep      []int
}

// BrainDecider is the core interface all NPC types implement.
type BrainDecider interface {
	// Decide is called whenever the engine is waiting on the NPC.
	Decide(view GameView) Decision
	// Name returns a human-readable identifier for debugging.
	Name() string
}

// BuildView projects a snapshot for the NPC seated as selfID.
func BuildView(selfID string, snap coup.Snapshot, prompt coup.Prompt, legal []coup.ActionOption, cfg coup.Config) GameView {
	view := GameView{
		Self:            selfID,
		Prompt:          prompt.Kind,
		Legal:           legal,
		CopiesPerRole:   cfg.CopiesPerRole,
		ForcedCoupCoins: cfg.ForcedCoupCoins,
	}
	if snap.Pending != nil {
		pending := *snap.Pending
		view.Pending = &pending
	}
	for _, ps := range snap.Players {
		pub := PublicPlayer{
			ID:        ps.ID,
			Name:      ps.Name,
			Coins:     ps.Coins,
			LiveCount: ps.LiveCount(),
			Alive:     ps.Alive,
			Claims:    ps.Claims,
		}
		for _, c := range ps.Revealed {
			pub.Revealed = append(pub.Revealed, c.Role)
		}
		if ps.ID == selfID {
			for _, c := range ps.Hand {
				view.Hand = append(view.Hand, c.Role)
			}
			view.Coins = ps.Coins
		}
		view.Players = append(view.Players, pub)
	}
	return view
}

// SafeDefault is the answer used when a brain fails or answers illegally:
// Pass, Income (Coup when forced), the first card, or the first keep indices.
func SafeDefault(view GameView) Decision {
	switch view.Prompt {
	case coup.PromptAction:
		if _, ok := view.LegalOption(coup.ActionIncome); ok {
			return Decision{Action: coup.ActionIncome}
		}
		if opt, ok := view.LegalOption(coup.ActionCoup); ok && len(opt.Targets) > 0 {
			return Decision{Action: coup.ActionCoup, Target: opt.Targets[0]}
		}
		return Decision{Action: coup.ActionIncome}
	case coup.PromptInfluenceLoss:
		return Decision{CardIndex: 0}
	case coup.PromptExchange:
		keep := make([]int, view.KeepCount())
		for i := range keep {
			keep[i] = i
		}
		return Decision{Keep: keep}
	default:
		return Decision{Reaction: coup.Pass()}
	}
}

// IsLegal checks a decision against the view without touching the engine.
func IsLegal(view GameView, d Decision) bool {
	switch view.Prompt {
	case coup.PromptAction:
		opt, ok := view.LegalOption(d.Action)
		if !ok {
			return false
		}
		if len(opt.Targets) == 0 {
			return d.Target == ""
		}
		for _, t := range opt.Targets {
			if t == d.Target {
				return true
			}
		}
		return false
	case coup.PromptChallengeAction, coup.PromptChallengeBlock:
		return d.Reaction.Kind == coup.ReactionPass || d.Reaction.Kind == coup.ReactionChallenge
	case coup.PromptBlock:
		if d.Reaction.Kind == coup.ReactionPass {
			return true
		}
		return d.Reaction.Kind == coup.ReactionBlock && view.Pending != nil &&
			coup.Lookup(view.Pending.Action).CanBlockWith(d.Reaction.Role)
	case coup.PromptInfluenceLoss:
		return d.CardIndex >= 0 && d.CardIndex < len(view.Hand)
	case coup.PromptExchange:
		if len(d.Keep) != view.KeepCount() {
			return false
		}
		seen := make(map[int]bool, len(d.Keep))
		for _, i := range d.Keep {
			if i < 0 || i >= len(view.Hand) || seen[i] {
				return false
			}
			seen[i] = true
		}
		return true
	}
	return false
}
