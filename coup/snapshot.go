package coup

import "coup-lite/card"

type PlayerSnapshot struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Chair    uint16            `json:"chair"`
	Bot      bool              `json:"bot"`
	Coins    int               `json:"coins"`
	Alive    bool              `json:"alive"`
	Hand     []card.Card       `json:"hand"`
	Revealed []card.Card       `json:"revealed"`
	Claims   map[card.Role]int `json:"claims,omitempty"`
}

// LiveCount is the number of unrevealed cards, masked or not.
func (p PlayerSnapshot) LiveCount() int { return len(p.Hand) }

type PendingSnapshot struct {
	Phase       Phase      `json:"phase"`
	Actor       string     `json:"actor"`
	Action      ActionType `json:"action"`
	Target      string     `json:"target,omitempty"`
	ClaimedRole card.Role  `json:"claimedRole,omitempty"`
	Blocker     string     `json:"blocker,omitempty"`
	BlockRole   card.Role  `json:"blockRole,omitempty"`
	Challenger  string     `json:"challenger,omitempty"`
	Awaiting    []string   `json:"awaiting,omitempty"`
	Loser       string     `json:"loser,omitempty"`
	LossReason  LossReason `json:"lossReason,omitempty"`
	KeepCount   int        `json:"keepCount,omitempty"`
}

type Snapshot struct {
	Phase         Phase            `json:"phase"`
	TurnNumber    int              `json:"turnNumber"`
	CurrentPlayer string           `json:"currentPlayer"`
	Players       []PlayerSnapshot `json:"players"`
	DeckCount     int              `json:"deckCount"`
	Pending       *PendingSnapshot `json:"pending,omitempty"`
	Log           []string         `json:"log"`
	GameOver      bool             `json:"gameOver"`
	Winner        string           `json:"winner,omitempty"`
}

// LogEntry is one line of the match log and the state right after it.
type LogEntry struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Snapshot Snapshot `json:"snapshot"`
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// Log returns a copy of the append-only match log.
func (g *Game) Log() []LogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]LogEntry, len(g.log))
	copy(out, g.log)
	return out
}

// LogSince returns entries with Index >= from.
func (g *Game) LogSince(from int) []LogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	if from < 0 {
		from = 0
	}
	if from >= len(g.log) {
		return nil
	}
	out := make([]LogEntry, len(g.log)-from)
	copy(out, g.log[from:])
	return out
}

func (g *Game) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:      PhaseTurnStart,
		TurnNumber: g.turnNumber,
		DeckCount:  g.deck.Count(),
		Log:        append([]string(nil), g.logTexts...),
		GameOver:   g.ended,
		Winner:     g.winnerID,
	}
	if p := g.curNode.getPlayer(); p != nil {
		s.CurrentPlayer = p.ID
	}
	if pa := g.pending; pa != nil {
		s.Phase = pa.Phase
		s.Pending = &PendingSnapshot{
			Phase:       pa.Phase,
			Actor:       pa.Actor,
			Action:      pa.Action,
			Target:      pa.Target,
			ClaimedRole: pa.ClaimedRole,
			Blocker:     pa.Blocker,
			BlockRole:   pa.BlockRole,
			Challenger:  pa.Challenger,
			Awaiting:    append([]string(nil), pa.Awaiting...),
			Loser:       pa.Loser,
			LossReason:  pa.LossReason,
			KeepCount:   pa.KeepCount,
		}
	}
	if g.ended {
		s.Phase = PhaseGameOver
	}

	// players
	for chair := uint16(0); chair < uint16(g.cfg.MaxPlayers); chair++ {
		p := g.playersByChair[chair]
		if p == nil {
			continue
		}
		ps := PlayerSnapshot{
			ID:       p.ID,
			Name:     p.Name,
			Chair:    p.Chair,
			Bot:      p.Bot,
			Coins:    p.coins,
			Alive:    p.alive,
			Hand:     append([]card.Card{}, p.hand...),
			Revealed: append([]card.Card{}, p.revealed...),
		}
		if len(p.claims) > 0 {
			ps.Claims = make(map[card.Role]int, len(p.claims))
			for r, n := range p.claims {
				ps.Claims[r] = n
			}
		}
		s.Players = append(s.Players, ps)
	}
	return s
}

// Player finds a player by id.
func (s Snapshot) Player(id string) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}

// AliveCount counts players still holding influence.
func (s Snapshot) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive {
			n++
		}
	}
	return n
}

// CardTotal counts deck, live and revealed cards. Masked hands still count.
func (s Snapshot) CardTotal() int {
	n := s.DeckCount
	for _, p := range s.Players {
		n += len(p.Hand) + len(p.Revealed)
	}
	return n
}

// ForViewer masks every live card not owned by viewerID. An empty viewerID
// (spectator) sees no live cards. Revealed cards stay visible.
func (s Snapshot) ForViewer(viewerID string) Snapshot {
	out := s
	out.Log = append([]string(nil), s.Log...)
	if s.Pending != nil {
		pending := *s.Pending
		pending.Awaiting = append([]string(nil), s.Pending.Awaiting...)
		out.Pending = &pending
	}
	out.Players = make([]PlayerSnapshot, len(s.Players))
	for i, p := range s.Players {
		cp := p
		cp.Revealed = append([]card.Card{}, p.Revealed...)
		if p.ID == viewerID || s.GameOver {
			cp.Hand = append([]card.Card{}, p.Hand...)
		} else {
			cp.Hand = make([]card.Card, len(p.Hand))
			for j := range cp.Hand {
				cp.Hand[j] = card.Hidden
			}
		}
		if p.Claims != nil {
			cp.Claims = make(map[card.Role]int, len(p.Claims))
			for r, n := range p.Claims {
				cp.Claims[r] = n
			}
		}
		out.Players[i] = cp
	}
	return out
}
