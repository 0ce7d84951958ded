package coup

import (
	"fmt"
	"testing"

	"coup-lite/card"
)

// riggedDeck deals hands[i] to seat i and keeps the rest of the deck in role order.
func riggedDeck(t *testing.T, hands ...[2]card.Role) []card.Role {
	t.Helper()
	remaining := make(map[card.Role]int, len(card.Roles))
	for _, r := range card.Roles {
		remaining[r] = card.DefaultCopiesPerRole
	}
	deck := make([]card.Role, 0, card.DefaultCopiesPerRole*len(card.Roles))
	for i := 0; i < 2; i++ {
		for _, h := range hands {
			deck = append(deck, h[i])
			remaining[h[i]]--
		}
	}
	for _, r := range card.Roles {
		if remaining[r] < 0 {
			t.Fatalf("rigged hands use too many %s", r)
		}
		for n := remaining[r]; n > 0; n-- {
			deck = append(deck, r)
		}
	}
	return deck
}

func newRiggedGame(t *testing.T, mutate func(*Config), hands ...[2]card.Role) *Game {
	t.Helper()
	first := uint16(0)
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.ForcedFirstChair = &first
	cfg.DeckOverride = riggedDeck(t, hands...)
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	for i := range hands {
		if err := g.SitDown(uint16(i), pid(i), fmt.Sprintf("P%d", i+1), false); err != nil {
			t.Fatalf("SitDown seat%d err: %v", i, err)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	return g
}

func pid(seat int) string { return fmt.Sprintf("p%d", seat+1) }

func mustDeclare(t *testing.T, g *Game, playerID string, a ActionType, target string) {
	t.Helper()
	if err := g.DeclareAction(playerID, a, target); err != nil {
		t.Fatalf("DeclareAction(%s, %s, %q) err: %v", playerID, a, target, err)
	}
}

func mustReact(t *testing.T, g *Game, playerID string, r Reaction) {
	t.Helper()
	if err := g.SubmitReaction(playerID, r); err != nil {
		t.Fatalf("SubmitReaction(%s, %s) err: %v", playerID, r, err)
	}
}

func mustLose(t *testing.T, g *Game, playerID string, idx int) {
	t.Helper()
	if err := g.ResolveInfluenceLoss(playerID, idx); err != nil {
		t.Fatalf("ResolveInfluenceLoss(%s, %d) err: %v", playerID, idx, err)
	}
}

// passAll passes every open reaction window until the engine wants something else.
func passAll(t *testing.T, g *Game) {
	t.Helper()
	for i := 0; i < 16; i++ {
		pr := g.Prompt()
		if !pr.Kind.IsReaction() {
			return
		}
		mustReact(t, g, pr.PlayerID, Pass())
	}
	t.Fatalf("reaction windows never closed")
}

func assertPrompt(t *testing.T, g *Game, kind PromptKind, playerID string) {
	t.Helper()
	pr := g.Prompt()
	if pr.Kind != kind || pr.PlayerID != playerID {
		t.Fatalf("unexpected prompt: got=%s/%s want=%s/%s", pr.Kind, pr.PlayerID, kind, playerID)
	}
}

func playerSnap(t *testing.T, g *Game, id string) PlayerSnapshot {
	t.Helper()
	ps, ok := g.Snapshot().Player(id)
	if !ok {
		t.Fatalf("player %s missing from snapshot", id)
	}
	return ps
}
