package coup

import (
	"fmt"

	"coup-lite/card"
)

// followUp is what runs once a pending influence loss has been resolved.
type followUp byte

const (
	followEndTurn followUp = iota
	// honest action claim survived a challenge
	followProceed
	// block bluff caught, the original action goes through
	followResolveAction
	// honest block survived a challenge
	followBlockStands
)

type PendingAction struct {
	Phase       Phase
	Actor       string
	Action      ActionType
	Target      string
	ClaimedRole card.Role

	Blocker   string
	BlockRole card.Role

	Challenger string

	// Awaiting lists, in seat order, the players who still owe a reaction.
	Awaiting []string

	Loser      string
	LossReason LossReason

	KeepCount int

	follow followUp
}

func (p Phase) isReactionWindow() bool {
	return p == PhaseAwaitingChallengeOfAction ||
		p == PhaseAwaitingBlockDeclaration ||
		p == PhaseAwaitingChallengeOfBlock
}

func (pa *PendingAction) awaitingIndex(id string) int {
	for i, a := range pa.Awaiting {
		if a == id {
			return i
		}
	}
	return -1
}

func (g *Game) afterDeclareLocked() {
	pa := g.pending
	spec := Lookup(pa.Action)
	switch {
	case pa.Action == ActionIncome:
		g.resolveActionLocked()
	case pa.Action == ActionCoup:
		g.startLossLocked(pa.Target, LossCouped, followEndTurn)
	case spec.Bluffable:
		g.openChallengeOfActionLocked()
	case spec.Blockable():
		g.openBlockWindowLocked()
	default:
		g.resolveActionLocked()
	}
}

func (g *Game) openChallengeOfActionLocked() {
	pa := g.pending
	pa.Phase = PhaseAwaitingChallengeOfAction
	pa.Awaiting = g.chairIDNodes[g.playersByID[pa.Actor].Chair].othersAfter(nil)
	if len(pa.Awaiting) == 0 {
		g.proceedUnchallengedLocked()
	}
}

// proceedUnchallengedLocked moves an action whose claim stands to its block
// window or straight to resolution.
func (g *Game) proceedUnchallengedLocked() {
	if Lookup(g.pending.Action).Blockable() {
		g.openBlockWindowLocked()
		return
	}
	g.resolveActionLocked()
}

func (g *Game) openBlockWindowLocked() {
	pa := g.pending
	spec := Lookup(pa.Action)
	pa.Phase = PhaseAwaitingBlockDeclaration
	pa.Challenger = ""
	actorNode := g.chairIDNodes[g.playersByID[pa.Actor].Chair]
	if spec.AnyoneMayBlock {
		pa.Awaiting = actorNode.othersAfter(nil)
	} else {
		pa.Awaiting = nil
		if t := g.playersByID[pa.Target]; t != nil && t.alive {
			pa.Awaiting = []string{t.ID}
		}
	}
	if len(pa.Awaiting) == 0 {
		g.resolveActionLocked()
	}
}

func (g *Game) openChallengeOfBlockLocked() {
	pa := g.pending
	pa.Phase = PhaseAwaitingChallengeOfBlock
	pa.Awaiting = nil
	actor := g.playersByID[pa.Actor]
	if actor.alive {
		pa.Awaiting = append(pa.Awaiting, actor.ID)
	}
	pa.Awaiting = append(pa.Awaiting, g.chairIDNodes[actor.Chair].othersAfter(func(p *Player) bool {
		return p.ID == pa.Blocker
	})...)
	if len(pa.Awaiting) == 0 {
		g.blockStandsLocked()
	}
}

// closeWindowLocked runs when everybody awaited has passed.
func (g *Game) closeWindowLocked() {
	switch g.pending.Phase {
	case PhaseAwaitingChallengeOfAction:
		g.proceedUnchallengedLocked()
	case PhaseAwaitingBlockDeclaration:
		g.resolveActionLocked()
	case PhaseAwaitingChallengeOfBlock:
		g.blockStandsLocked()
	default:
		violate("closing non-reaction phase %s", g.pending.Phase)
	}
}

func (g *Game) blockStandsLocked() {
	g.appendLogLocked("Action BLOCKED.")
	g.endTurnLocked()
}

// resolveChallengeLocked settles a challenge on the claim currently under
// review: the block when one was declared, the action otherwise.
func (g *Game) resolveChallengeLocked() {
	pa := g.pending
	if pa == nil || pa.Challenger == "" {
		violate("challenge without a challenger")
	}
	onBlock := pa.Phase == PhaseAwaitingChallengeOfBlock
	challengedID, role := pa.Actor, pa.ClaimedRole
	if onBlock {
		challengedID, role = pa.Blocker, pa.BlockRole
	}
	challenged := g.playersByID[challengedID]
	challenger := g.playersByID[pa.Challenger]
	g.appendLogLocked("%s CHALLENGES %s!", challenger.Name, challenged.Name)

	if challenged.holds(role) {
		g.appendLogLocked("Challenge FAILED! %s HAS the %s!", challenged.Name, role)
		g.swapRevealedCardLocked(challenged, role)
		follow := followProceed
		if onBlock {
			follow = followBlockStands
		}
		g.startLossLocked(challenger.ID, LossFailedChallenge, follow)
		return
	}

	g.appendLogLocked("%s was BLUFFING!", challenged.Name)
	if onBlock {
		g.startLossLocked(challenged.ID, LossBluffCaught, followResolveAction)
		return
	}
	if pa.Action == ActionAssassinate && g.cfg.RefundOnCaughtAssassin {
		cost := Lookup(ActionAssassinate).Cost
		challenged.addCoins(cost)
		g.appendLogLocked("Assassin refunded %d coins.", cost)
	}
	g.startLossLocked(challenged.ID, LossBluffCaught, followEndTurn)
}

// swapRevealedCardLocked shuffles the proven card back into the deck and
// deals a replacement into the same hand slot.
func (g *Game) swapRevealedCardLocked(p *Player, role card.Role) {
	idx := p.hand.IndexOf(role)
	c, ok := p.hand.RemoveAt(idx)
	if !ok {
		violate("%s does not hold %s", p.ID, role)
	}
	g.deck.Add(c)
	g.deck.Shuffle(g.rng)
	drawn, ok := g.deck.PopCards(1)
	if !ok {
		violate("deck empty after returning a card")
	}
	hand := make(card.CardList, 0, p.hand.Count()+1)
	hand = append(hand, p.hand[:idx]...)
	hand = append(hand, drawn[0])
	hand = append(hand, p.hand[idx:]...)
	p.hand = hand
}

func (g *Game) startLossLocked(loserID string, reason LossReason, follow followUp) {
	pa := g.pending
	loser := g.playersByID[loserID]
	if loser == nil {
		violate("loss for unknown player %s", loserID)
	}
	if !loser.alive {
		// nothing left to lose
		g.runFollowUpLocked(follow)
		return
	}
	pa.Phase = PhaseAwaitingInfluenceLoss
	pa.Awaiting = nil
	pa.Loser = loserID
	pa.LossReason = reason
	pa.follow = follow
}

func (g *Game) loseInfluenceLocked(loser *Player, idx int) {
	c, last := loser.loseCard(idx)
	g.appendLogLocked("%s loses influence: %s revealed.", loser.Name, c.Role)
	if last {
		loser.alive = false
		g.appendLogLocked("%s is ELIMINATED!", loser.Name)
	}
	if g.checkWinLocked() {
		return
	}
	pa := g.pending
	follow := pa.follow
	pa.Loser = ""
	pa.LossReason = LossNone
	pa.follow = followEndTurn
	g.runFollowUpLocked(follow)
}

func (g *Game) runFollowUpLocked(f followUp) {
	switch f {
	case followEndTurn:
		g.endTurnLocked()
	case followProceed:
		g.pending.Challenger = ""
		g.proceedUnchallengedLocked()
	case followResolveAction:
		g.resolveActionLocked()
	case followBlockStands:
		g.blockStandsLocked()
	default:
		violate("unknown follow-up %d", f)
	}
}

// resolveActionLocked applies the action's effect.
func (g *Game) resolveActionLocked() {
	pa := g.pending
	actor := g.playersByID[pa.Actor]
	target := g.playersByID[pa.Target]
	spec := Lookup(pa.Action)
	pa.Phase = PhaseResolved
	pa.Awaiting = nil

	if spec.RequiresTarget && (target == nil || !target.alive) {
		name := pa.Target
		if target != nil {
			name = target.Name
		}
		g.appendLogLocked("%s has no effect: %s is out of the game.", spec.Name, name)
		g.endTurnLocked()
		return
	}

	switch pa.Action {
	case ActionIncome:
		actor.addCoins(1)
		g.appendLogLocked("%s takes 1 coin.", actor.Name)
	case ActionForeignAid:
		actor.addCoins(2)
		g.appendLogLocked("%s takes 2 coins.", actor.Name)
	case ActionTax:
		actor.addCoins(3)
		g.appendLogLocked("%s takes 3 coins.", actor.Name)
	case ActionSteal:
		n := target.takeCoins(2)
		actor.addCoins(n)
		g.appendLogLocked("%s stole %d from %s.", actor.Name, n, target.Name)
	case ActionAssassinate:
		g.startLossLocked(target.ID, LossAssassinated, followEndTurn)
		return
	case ActionCoup:
		g.startLossLocked(target.ID, LossCouped, followEndTurn)
		return
	case ActionExchange:
		keep := actor.hand.Count()
		n := 2
		if g.deck.Count() < n {
			n = g.deck.Count()
		}
		if n == 0 {
			g.appendLogLocked("%s finds the deck empty.", actor.Name)
			break
		}
		drawn, _ := g.deck.PopCards(n)
		actor.hand.Add(drawn...)
		pa.Phase = PhaseAwaitingExchange
		pa.KeepCount = keep
		g.appendLogLocked("%s draws %d card(s) to exchange.", actor.Name, n)
		return
	default:
		violate("resolve of unknown action %d", byte(pa.Action))
	}
	g.endTurnLocked()
}

func (g *Game) endTurnLocked() {
	if g.pending != nil {
		g.pending.Phase = PhaseResolved
	}
	g.pending = nil
	if g.checkWinLocked() {
		return
	}
	next := g.curNode.nextAlive()
	if next == nil {
		violate("no alive player to pass the turn to")
	}
	g.curNode = next
	g.turnNumber++
}

// checkWinLocked ends the match once exactly one player is alive.
func (g *Game) checkWinLocked() bool {
	if g.ended {
		return true
	}
	var alive []*Player
	for _, p := range g.playersByID {
		if p.alive {
			alive = append(alive, p)
		}
	}
	if len(alive) == 0 {
		violate("no players alive")
	}
	if len(alive) > 1 {
		return false
	}
	g.ended = true
	g.winnerID = alive[0].ID
	g.pending = nil
	g.appendLogLocked("%s WINS THE GAME!", alive[0].Name)
	return true
}

func (g *Game) appendLogLocked(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	g.logTexts = append(g.logTexts, text)
	g.log = append(g.log, LogEntry{
		Index:    len(g.log),
		Text:     text,
		Snapshot: g.snapshotLocked(),
	})
}
