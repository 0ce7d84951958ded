package npc

import (
	"testing"

	"coup-lite/coup"
)

func TestRegistryLoadFromJSON(t *testing.T) {
	r := NewRegistry()
	base := r.Count()
	err := r.LoadFromJSON([]byte(`[
		{"id":"shark","name":"Shark","difficulty":"HARDCORE"},
		{"id":"","name":"ignored","difficulty":"easy"},
		{"id":"tuned","name":"Tuned","difficulty":"normal","overrides":{"style":"honest","challengeThreshold":0.1}}
	]`))
	if err != nil {
		t.Fatalf("LoadFromJSON err: %v", err)
	}
	if r.Count() != base+2 {
		t.Fatalf("count = %d, want %d", r.Count(), base+2)
	}
	if got := r.Get("shark").Difficulty; got != DifficultyHardcore {
		t.Fatalf("difficulty = %q", got)
	}
	if got := r.Get("tuned").Tuning().ChallengeThreshold; got != 0.1 {
		t.Fatalf("override threshold = %v", got)
	}
	if err := r.LoadFromJSON([]byte(`[{"id":"x","difficulty":"impossible"}]`)); err == nil {
		t.Fatalf("expected unknown difficulty error")
	}
}

func TestManagerBotsFinishMatch(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		cfg := coup.DefaultConfig()
		cfg.Seed = seed
		g, err := coup.NewGame(cfg)
		if err != nil {
			t.Fatalf("NewGame err: %v", err)
		}
		m := NewManager(NewRegistry(), seed)
		for i, d := range []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyHardcore} {
			if _, err := m.SpawnNPC(g, uint16(i), m.Registry().Get(string(d))); err != nil {
				t.Fatalf("SpawnNPC err: %v", err)
			}
		}
		if err := g.Start(); err != nil {
			t.Fatalf("Start err: %v", err)
		}

		for step := 0; step < 3000 && !g.Ended(); step++ {
			pr := g.Prompt()
			if !m.IsNPC(pr.PlayerID) {
				t.Fatalf("prompt for non-bot %q", pr.PlayerID)
			}
			d := m.Decide(pr.PlayerID, g.Snapshot(), pr, g.LegalActions(pr.PlayerID), cfg)
			if err := apply(g, pr, d); err != nil {
				t.Fatalf("seed %d step %d: bot %s decision %+v rejected: %v", seed, step, pr.PlayerID, d, err)
			}
		}
		if !g.Ended() {
			t.Fatalf("seed %d: bots did not finish", seed)
		}
		if g.CardTotal() != 15 {
			t.Fatalf("card total = %d", g.CardTotal())
		}
	}
}

func apply(g *coup.Game, pr coup.Prompt, d Decision) error {
	switch pr.Kind {
	case coup.PromptAction:
		return g.DeclareAction(pr.PlayerID, d.Action, d.Target)
	case coup.PromptInfluenceLoss:
		return g.ResolveInfluenceLoss(pr.PlayerID, d.CardIndex)
	case coup.PromptExchange:
		return g.ResolveExchangeKeep(pr.PlayerID, d.Keep)
	default:
		return g.SubmitReaction(pr.PlayerID, d.Reaction)
	}
}
