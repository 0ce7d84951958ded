package npc

import (
	"math/rand"
	"sort"

	"coup-lite/card"
	"coup-lite/coup"
)

// RuleBrain makes decisions from a DifficultyProfile and a seeded rng.
type RuleBrain struct {
	Profile *BotProfile
	tune    DifficultyProfile
	rng     *rand.Rand
}

// NewRuleBrain creates a RuleBrain from a profile definition.
func NewRuleBrain(profile *BotProfile, seed int64) *RuleBrain {
	return &RuleBrain{
		Profile: profile,
		tune:    profile.Tuning(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBrain) Name() string { return b.Profile.Name }

// Decide implements BrainDecider.
func (b *RuleBrain) Decide(view GameView) Decision {
	switch view.Prompt {
	case coup.PromptAction:
		return b.chooseAction(view)
	case coup.PromptChallengeAction, coup.PromptChallengeBlock:
		if b.shouldChallenge(view) {
			return Decision{Reaction: coup.Challenge()}
		}
		return Decision{Reaction: coup.Pass()}
	case coup.PromptBlock:
		return Decision{Reaction: b.chooseBlock(view)}
	case coup.PromptInfluenceLoss:
		return Decision{CardIndex: b.chooseLoss(view)}
	case coup.PromptExchange:
		return Decision{Keep: b.chooseKeep(view)}
	}
	return SafeDefault(view)
}

func (b *RuleBrain) chooseAction(view GameView) Decision {
	p := b.tune
	if len(view.Legal) == 1 && view.Legal[0].Action == coup.ActionCoup {
		return b.targeted(view, coup.ActionCoup)
	}
	if p.CoupAt > 0 && view.Coins >= p.CoupAt {
		if _, ok := view.LegalOption(coup.ActionCoup); ok {
			return b.targeted(view, coup.ActionCoup)
		}
	}

	_, canAssassinate := view.LegalOption(coup.ActionAssassinate)
	action := coup.ActionIncome

	switch p.Style {
	case StyleAggressive:
		switch {
		case canAssassinate && (view.Holds(card.RoleAssassin) || b.rng.Float64() < p.AssassinBluff):
			action = coup.ActionAssassinate
		case view.Holds(card.RoleDuke) || b.rng.Float64() < p.TaxBluff:
			action = coup.ActionTax
		case view.Holds(card.RoleCaptain) || b.rng.Float64() < p.StealBluff:
			action = coup.ActionSteal
		default:
			action = coup.ActionForeignAid
		}
	case StyleHonest:
		switch {
		case view.Holds(card.RoleDuke):
			action = coup.ActionTax
		case canAssassinate && view.Holds(card.RoleAssassin):
			action = coup.ActionAssassinate
		case view.Holds(card.RoleCaptain):
			action = coup.ActionSteal
		}
	default:
		opts := []coup.ActionType{coup.ActionIncome, coup.ActionForeignAid, coup.ActionTax}
		if canAssassinate {
			opts = append(opts, coup.ActionAssassinate)
		}
		action = opts[b.rng.Intn(len(opts))]
	}

	if _, ok := view.LegalOption(action); !ok {
		return SafeDefault(view)
	}
	if coup.Lookup(action).RequiresTarget {
		return b.targeted(view, action)
	}
	return Decision{Action: action}
}

// targeted aims at the strongest opponent: most coins, then most live cards.
func (b *RuleBrain) targeted(view GameView, action coup.ActionType) Decision {
	opt, ok := view.LegalOption(action)
	if !ok || len(opt.Targets) == 0 {
		return SafeDefault(view)
	}
	best := opt.Targets[0]
	bp, _ := view.player(best)
	for _, id := range opt.Targets[1:] {
		p, _ := view.player(id)
		if p.Coins > bp.Coins || (p.Coins == bp.Coins && p.LiveCount > bp.LiveCount) {
			best, bp = id, p
		}
	}
	return Decision{Action: action, Target: best}
}

// claimUnderReview returns the claimant, the claimed role and whether the
// claim is an action (false for a block).
func claimUnderReview(view GameView) (string, card.Role, bool) {
	pa := view.Pending
	if pa == nil {
		return "", card.RoleNone, false
	}
	if view.Prompt == coup.PromptChallengeBlock {
		return pa.Blocker, pa.BlockRole, false
	}
	return pa.Actor, pa.ClaimedRole, true
}

func (b *RuleBrain) shouldChallenge(view GameView) bool {
	p := b.tune
	claimant, role, isAction := claimUnderReview(view)
	if claimant == "" || claimant == view.Self || role == card.RoleNone {
		return false
	}

	threshold := p.ChallengeThreshold
	if cp, ok := view.player(claimant); ok && cp.Claims[role] >= 2 {
		threshold -= 0.2
		if isAction && view.Pending.Action == coup.ActionExchange {
			threshold -= 0.1
		}
	}

	copies := view.CopiesPerRole
	if copies <= 0 {
		copies = card.DefaultCopiesPerRole
	}
	mine := view.HandCount(role)
	known := mine + view.RevealedCount(role)

	if p.Deduce && known >= copies {
		return true
	}
	if p.DeduceNearly && (known == copies-1 || mine == 2) {
		return true
	}
	if p.Deduce && mine == 2 {
		return true
	}
	if role == card.RoleAmbassador {
		if mine == 2 {
			return true
		}
		if mine == 1 && p.Style != StyleRandom && b.rng.Float64() > 0.7 {
			return true
		}
	}
	if isAction && view.Pending.Action == coup.ActionTax {
		if mine == 2 {
			return true
		}
		if mine == 1 && b.rng.Float64() < p.ChallengeOnOneDuke {
			return true
		}
	}
	return b.rng.Float64() > threshold
}

func (b *RuleBrain) chooseBlock(view GameView) coup.Reaction {
	pa := view.Pending
	if pa == nil {
		return coup.Pass()
	}
	spec := coup.Lookup(pa.Action)
	for _, r := range spec.BlockableBy {
		if view.Holds(r) {
			return coup.Block(r)
		}
	}
	if len(spec.BlockableBy) == 0 {
		return coup.Pass()
	}

	p := b.tune
	rate := 0.0
	switch pa.Action {
	case coup.ActionAssassinate:
		rate = p.BlockAssassinBluff
	case coup.ActionSteal:
		rate = p.BlockStealBluff
	case coup.ActionForeignAid:
		rate = p.BlockForeignAidBluff
	}
	if rate > 0 && b.rng.Float64() < rate {
		return coup.Block(spec.BlockableBy[b.rng.Intn(len(spec.BlockableBy))])
	}
	return coup.Pass()
}

// roleValue ranks roles for keeping. Duke income and the Contessa's
// protection come first.
var roleValue = map[card.Role]int{
	card.RoleDuke:       5,
	card.RoleContessa:   4,
	card.RoleAssassin:   3,
	card.RoleCaptain:    2,
	card.RoleAmbassador: 1,
}

func (b *RuleBrain) chooseLoss(view GameView) int {
	if len(view.Hand) == 0 {
		return 0
	}
	if b.tune.RandomCards {
		return b.rng.Intn(len(view.Hand))
	}
	// duplicates first
	for i, r := range view.Hand {
		if view.HandCount(r) > 1 {
			return i
		}
	}
	worst := 0
	for i, r := range view.Hand {
		if roleValue[r] < roleValue[view.Hand[worst]] {
			worst = i
		}
	}
	return worst
}

func (b *RuleBrain) chooseKeep(view GameView) []int {
	keep := view.KeepCount()
	idx := make([]int, len(view.Hand))
	for i := range idx {
		idx[i] = i
	}
	if keep > len(idx) {
		keep = len(idx)
	}
	if b.tune.RandomCards {
		b.rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		out := append([]int(nil), idx[:keep]...)
		sort.Ints(out)
		return out
	}

	// distinct roles first, then value
	seen := make(map[card.Role]bool, len(view.Hand))
	var firsts, dups []int
	sort.SliceStable(idx, func(i, j int) bool {
		return roleValue[view.Hand[idx[i]]] > roleValue[view.Hand[idx[j]]]
	})
	for _, i := range idx {
		if seen[view.Hand[i]] {
			dups = append(dups, i)
			continue
		}
		seen[view.Hand[i]] = true
		firsts = append(firsts, i)
	}
	ordered := append(firsts, dups...)
	out := append([]int(nil), ordered[:keep]...)
	sort.Ints(out)
	return out
}
