package coup

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"coup-lite/card"
)

type Game struct {
	cfg Config
	rng *rand.Rand

	mu sync.Mutex

	// seats
	playersByChair map[uint16]*Player
	playersByID    map[string]*Player
	chairIDNodes   map[uint16]*PlayerNode

	// match state
	deck       card.CardList
	curNode    *PlayerNode
	turnNumber int
	step       int
	pending    *PendingAction

	started  bool
	ended    bool
	winnerID string

	cardTotal int
	logTexts  []string
	log       []LogEntry
}

func NewGame(cfg Config) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Game{
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(seed)),
		playersByChair: make(map[uint16]*Player, cfg.MaxPlayers),
		playersByID:    make(map[string]*Player, cfg.MaxPlayers),
		chairIDNodes:   make(map[uint16]*PlayerNode, cfg.MaxPlayers),
	}, nil
}

func (g *Game) Config() Config { return g.cfg }

// SitDown seats a player before the match starts.
func (g *Game) SitDown(chair uint16, playerID, name string, bot bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ErrGameInProgress
	}
	if chair >= uint16(g.cfg.MaxPlayers) {
		return fmt.Errorf("invalid chair %d", chair)
	}
	if playerID == "" {
		return fmt.Errorf("player id required")
	}
	if g.playersByChair[chair] != nil {
		return fmt.Errorf("chair %d already occupied", chair)
	}
	if g.playersByID[playerID] != nil {
		return fmt.Errorf("player %s already seated", playerID)
	}
	if name == "" {
		name = playerID
	}
	p := &Player{ID: playerID, Name: name, Chair: chair, Bot: bot}
	g.playersByChair[chair] = p
	g.playersByID[playerID] = p
	return nil
}

// StandUp frees a chair. Seats are fixed once the match starts.
func (g *Game) StandUp(chair uint16) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if chair >= uint16(g.cfg.MaxPlayers) {
		return fmt.Errorf("invalid chair %d", chair)
	}
	p := g.playersByChair[chair]
	if p == nil {
		return fmt.Errorf("chair %d is empty", chair)
	}
	if g.started {
		return ErrGameInProgress
	}
	delete(g.playersByChair, chair)
	delete(g.playersByID, p.ID)
	return nil
}

// Player looks a seated player up by id. The result must be treated as read-only.
func (g *Game) Player(playerID string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersByID[playerID]
}

func (g *Game) PlayerAt(chair uint16) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersByChair[chair]
}

func (g *Game) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

func (g *Game) Ended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ended
}

func (g *Game) Winner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winnerID
}

// Start builds and deals the deck and opens the first turn.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ErrGameInProgress
	}
	seated := len(g.playersByChair)
	if seated < g.cfg.MinPlayers {
		return fmt.Errorf("not enough players: %d < %d", seated, g.cfg.MinPlayers)
	}
	if seated > g.cfg.MaxPlayers {
		return fmt.Errorf("too many players: %d > %d", seated, g.cfg.MaxPlayers)
	}

	// Rebuild ring list nodes in chair order
	g.chairIDNodes = make(map[uint16]*PlayerNode, seated)
	var first, last *PlayerNode
	for chair := uint16(0); chair < uint16(g.cfg.MaxPlayers); chair++ {
		p := g.playersByChair[chair]
		if p == nil {
			continue
		}
		p.resetForGame(g.cfg.StartingCoins)
		node := &PlayerNode{ChairID: chair, Player: p}
		g.chairIDNodes[chair] = node
		if first == nil {
			first = node
		}
		if last != nil {
			last.Next = node
		}
		last = node
	}
	last.Next = first

	g.buildDeckLocked()
	g.cardTotal = g.deck.Count()
	g.dealLocked(first)

	g.curNode = first
	if g.cfg.ForcedFirstChair != nil {
		node, ok := g.chairIDNodes[*g.cfg.ForcedFirstChair]
		if !ok {
			return fmt.Errorf("forced first chair %d is empty", *g.cfg.ForcedFirstChair)
		}
		g.curNode = node
	}

	g.started = true
	g.turnNumber = 1
	g.appendLogLocked("Game started with %d players. %s goes first.", seated, g.curNode.Player.Name)
	return nil
}

func (g *Game) buildDeckLocked() {
	if len(g.cfg.DeckOverride) > 0 {
		g.deck = card.FromRoles(g.cfg.DeckOverride)
		return
	}
	g.deck.Init(card.NewDeck(g.cfg.CopiesPerRole))
	g.deck.Shuffle(g.rng)
}

// dealLocked gives two cards round-robin starting at the first seat.
func (g *Game) dealLocked(start *PlayerNode) {
	for i := 0; i < 2; i++ {
		start.WalkAll(func(cur *PlayerNode) {
			cards, ok := g.deck.PopCards(1)
			if !ok {
				violate("deck underflow while dealing")
			}
			cur.Player.hand.Add(cards...)
		})
	}
}

func (g *Game) checkPlayableLocked() error {
	if !g.started {
		return ErrNotStarted
	}
	if g.ended {
		return ErrGameOver
	}
	return nil
}

// CurrentPlayer is the id of the player whose turn it is.
func (g *Game) CurrentPlayer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.curNode.getPlayer(); p != nil {
		return p.ID
	}
	return ""
}

// ActionOption is one legal declaration for the player on turn.
type ActionOption struct {
	Action  ActionType `json:"action"`
	Targets []string   `json:"targets,omitempty"`
}

// LegalActions is a pure projection of current state. It is empty for anyone
// but the player on turn, and while a pending action is open.
func (g *Game) LegalActions(playerID string) []ActionOption {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.legalActionsLocked(playerID)
}

func (g *Game) legalActionsLocked(playerID string) []ActionOption {
	if !g.started || g.ended || g.pending != nil {
		return nil
	}
	p := g.curNode.getPlayer()
	if p == nil || p.ID != playerID {
		return nil
	}
	targets := g.curNode.othersAfter(nil)
	forced := g.forcedCoupLocked(p)

	out := make([]ActionOption, 0, len(Actions))
	for _, a := range Actions {
		spec := catalog[a]
		if forced && a != ActionCoup {
			continue
		}
		if p.coins < spec.Cost {
			continue
		}
		opt := ActionOption{Action: a}
		if spec.RequiresTarget {
			if len(targets) == 0 {
				continue
			}
			opt.Targets = append([]string(nil), targets...)
		}
		out = append(out, opt)
	}
	return out
}

func (g *Game) forcedCoupLocked(p *Player) bool {
	return g.cfg.ForcedCoupCoins > 0 && p.coins >= g.cfg.ForcedCoupCoins
}

// DeclareAction opens the current player's turn action.
func (g *Game) DeclareAction(playerID string, action ActionType, targetID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkPlayableLocked(); err != nil {
		return err
	}
	actor := g.curNode.getPlayer()
	if actor == nil {
		violate("no current player")
	}
	if actor.ID != playerID {
		return invalidAction("not %s's turn", playerID)
	}
	if g.pending != nil {
		return invalidAction("action already pending (%s)", g.pending.Phase)
	}
	spec, ok := catalog[action]
	if !ok {
		return invalidAction("unknown action %d", byte(action))
	}
	if g.forcedCoupLocked(actor) && action != ActionCoup {
		return invalidAction("%d or more coins: must Coup", g.cfg.ForcedCoupCoins)
	}
	if actor.coins < spec.Cost {
		return invalidAction("%s costs %d, have %d", spec.Name, spec.Cost, actor.coins)
	}
	var target *Player
	if spec.RequiresTarget {
		target = g.playersByID[targetID]
		switch {
		case targetID == "" || target == nil:
			return invalidAction("%s needs a target", spec.Name)
		case target == actor:
			return invalidAction("cannot target yourself")
		case !target.alive:
			return invalidAction("%s is out of the game", target.Name)
		}
	} else if targetID != "" {
		return invalidAction("%s takes no target", spec.Name)
	}

	actor.takeCoins(spec.Cost)
	actor.recordClaim(spec.ClaimedRole)
	g.step++
	g.pending = &PendingAction{
		Phase:       PhaseActionDeclared,
		Actor:       actor.ID,
		Action:      action,
		ClaimedRole: spec.ClaimedRole,
	}
	if target != nil {
		g.pending.Target = target.ID
		g.appendLogLocked("%s uses %s on %s.", actor.Name, spec.Name, target.Name)
	} else {
		g.appendLogLocked("%s uses %s.", actor.Name, spec.Name)
	}
	g.afterDeclareLocked()
	return nil
}

// SubmitReaction answers the open challenge or block window.
func (g *Game) SubmitReaction(playerID string, r Reaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkPlayableLocked(); err != nil {
		return err
	}
	pa := g.pending
	if pa == nil || !pa.Phase.isReactionWindow() {
		return ErrStaleReaction
	}
	pos := pa.awaitingIndex(playerID)
	if pos < 0 {
		return ErrStaleReaction
	}
	if pos > 0 {
		return invalidReaction("waiting on %s first", pa.Awaiting[0])
	}

	switch r.Kind {
	case ReactionPass:
		g.step++
		pa.Awaiting = pa.Awaiting[1:]
		if len(pa.Awaiting) == 0 {
			g.closeWindowLocked()
		}
		return nil
	case ReactionChallenge:
		if pa.Phase == PhaseAwaitingBlockDeclaration {
			return invalidReaction("block window: pass or block")
		}
		g.step++
		pa.Challenger = playerID
		pa.Awaiting = nil
		g.resolveChallengeLocked()
		return nil
	case ReactionBlock:
		if pa.Phase != PhaseAwaitingBlockDeclaration {
			return invalidReaction("no block window open")
		}
		spec := Lookup(pa.Action)
		if !spec.CanBlockWith(r.Role) {
			return invalidReaction("%s cannot block %s", r.Role, spec.Name)
		}
		g.step++
		blocker := g.playersByID[playerID]
		blocker.recordClaim(r.Role)
		pa.Blocker = playerID
		pa.BlockRole = r.Role
		g.appendLogLocked("%s BLOCKS with %s!", blocker.Name, r.Role)
		g.openChallengeOfBlockLocked()
		return nil
	default:
		return invalidReaction("unknown reaction kind %d", byte(r.Kind))
	}
}

// ResolveInfluenceLoss reveals the loser's chosen live card.
func (g *Game) ResolveInfluenceLoss(playerID string, cardIndex int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkPlayableLocked(); err != nil {
		return err
	}
	pa := g.pending
	if pa == nil || pa.Phase != PhaseAwaitingInfluenceLoss {
		return invalidSelection("no influence loss pending")
	}
	if pa.Loser != playerID {
		return invalidSelection("waiting on %s to lose influence", pa.Loser)
	}
	loser := g.playersByID[playerID]
	if cardIndex < 0 || cardIndex >= loser.hand.Count() {
		return invalidSelection("card index %d out of range [0,%d)", cardIndex, loser.hand.Count())
	}
	g.step++
	g.loseInfluenceLocked(loser, cardIndex)
	return nil
}

// ResolveExchangeKeep keeps the indexed cards of the actor's enlarged hand and
// returns the rest to the deck.
func (g *Game) ResolveExchangeKeep(playerID string, kept []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkPlayableLocked(); err != nil {
		return err
	}
	pa := g.pending
	if pa == nil || pa.Phase != PhaseAwaitingExchange {
		return invalidSelection("no exchange pending")
	}
	if pa.Actor != playerID {
		return invalidSelection("exchange belongs to %s", pa.Actor)
	}
	actor := g.playersByID[playerID]
	if len(kept) != pa.KeepCount {
		return invalidSelection("must keep exactly %d cards, got %d", pa.KeepCount, len(kept))
	}
	seen := make(map[int]bool, len(kept))
	for _, i := range kept {
		if i < 0 || i >= actor.hand.Count() {
			return invalidSelection("card index %d out of range [0,%d)", i, actor.hand.Count())
		}
		if seen[i] {
			return invalidSelection("card index %d chosen twice", i)
		}
		seen[i] = true
	}

	g.step++
	newHand := make(card.CardList, 0, len(kept))
	for _, i := range kept {
		newHand = append(newHand, actor.hand[i])
	}
	returned := 0
	for i, c := range actor.hand {
		if !seen[i] {
			g.deck.Add(c)
			returned++
		}
	}
	actor.hand = newHand
	g.deck.Shuffle(g.rng)
	g.appendLogLocked("%s returns %d card(s) to the deck.", actor.Name, returned)
	g.endTurnLocked()
	return nil
}

// Prompt reports the single player the engine is waiting on.
func (g *Game) Prompt() Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.promptLocked()
}

func (g *Game) promptLocked() Prompt {
	pr := Prompt{Turn: g.turnNumber, Step: g.step}
	if !g.started || g.ended {
		return pr
	}
	pa := g.pending
	if pa == nil {
		pr.Kind = PromptAction
		pr.PlayerID = g.curNode.getPlayer().ID
		return pr
	}
	switch pa.Phase {
	case PhaseAwaitingChallengeOfAction:
		pr.Kind = PromptChallengeAction
	case PhaseAwaitingBlockDeclaration:
		pr.Kind = PromptBlock
	case PhaseAwaitingChallengeOfBlock:
		pr.Kind = PromptChallengeBlock
	case PhaseAwaitingInfluenceLoss:
		pr.Kind = PromptInfluenceLoss
		pr.PlayerID = pa.Loser
		return pr
	case PhaseAwaitingExchange:
		pr.Kind = PromptExchange
		pr.PlayerID = pa.Actor
		return pr
	default:
		violate("prompt requested in transient phase %s", pa.Phase)
	}
	if len(pa.Awaiting) == 0 {
		violate("reaction window %s open with nobody awaiting", pa.Phase)
	}
	pr.PlayerID = pa.Awaiting[0]
	return pr
}

func (g *Game) DeckCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deck.Count()
}

// CardTotal counts every card in the deck, hands and revealed piles.
func (g *Game) CardTotal() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.deck.Count()
	for _, p := range g.playersByChair {
		n += p.hand.Count() + p.revealed.Count()
	}
	return n
}
