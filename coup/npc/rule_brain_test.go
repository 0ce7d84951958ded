package npc

import (
	"testing"

	"coup-lite/card"
	"coup-lite/coup"
)

func testBrain(d Difficulty, seed int64) *RuleBrain {
	return NewRuleBrain(&BotProfile{ID: string(d), Name: "TEST_" + string(d), Difficulty: d}, seed)
}

func taxClaimView(hand []card.Role, revealed []card.Role, claims int) GameView {
	return GameView{
		Self:          "me",
		Prompt:        coup.PromptChallengeAction,
		Hand:          hand,
		Coins:         2,
		CopiesPerRole: 3,
		Players: []PublicPlayer{
			{ID: "me", Coins: 2, LiveCount: len(hand), Alive: true},
			{ID: "liar", Coins: 2, LiveCount: 2, Alive: true, Claims: map[card.Role]int{card.RoleDuke: claims}},
			{ID: "other", Coins: 2, LiveCount: 1, Alive: true, Revealed: revealed},
		},
		Pending: &coup.PendingSnapshot{
			Phase:       coup.PhaseAwaitingChallengeOfAction,
			Actor:       "liar",
			Action:      coup.ActionTax,
			ClaimedRole: card.RoleDuke,
			Awaiting:    []string{"me"},
		},
	}
}

func challengeRate(b *RuleBrain, view GameView, rounds int) float64 {
	n := 0
	for i := 0; i < rounds; i++ {
		if b.Decide(view).Reaction.Kind == coup.ReactionChallenge {
			n++
		}
	}
	return float64(n) / float64(rounds)
}

func TestRuleBrainCertainChallengeWhenAllCopiesKnown(t *testing.T) {
	view := taxClaimView([]card.Role{card.RoleDuke, card.RoleCaptain}, []card.Role{card.RoleDuke, card.RoleDuke}, 1)
	for _, d := range []Difficulty{DifficultyHard, DifficultyHardcore} {
		if rate := challengeRate(testBrain(d, 1), view, 500); rate != 1 {
			t.Fatalf("%s: expected certain challenge, got rate %.3f", d, rate)
		}
	}
}

func TestRuleBrainRandomSuspicionByTier(t *testing.T) {
	// nothing known about the claimed role
	view := taxClaimView([]card.Role{card.RoleCaptain, card.RoleContessa}, nil, 1)
	cases := []struct {
		d        Difficulty
		min, max float64
	}{
		{DifficultyEasy, 0.15, 0.25},
		{DifficultyNormal, 0.15, 0.25},
		{DifficultyHard, 0.35, 0.45},
		{DifficultyHardcore, 0.55, 0.65},
	}
	for _, tc := range cases {
		rate := challengeRate(testBrain(tc.d, 42), view, 4000)
		if rate < tc.min || rate > tc.max {
			t.Fatalf("%s challenge rate out of range: got %.3f, want [%.2f, %.2f]", tc.d, rate, tc.min, tc.max)
		}
	}
}

func TestRuleBrainRepeatedClaimRaisesSuspicion(t *testing.T) {
	once := taxClaimView([]card.Role{card.RoleCaptain, card.RoleContessa}, nil, 1)
	twice := taxClaimView([]card.Role{card.RoleCaptain, card.RoleContessa}, nil, 2)
	a := challengeRate(testBrain(DifficultyNormal, 7), once, 4000)
	b := challengeRate(testBrain(DifficultyNormal, 7), twice, 4000)
	if b < a+0.12 {
		t.Fatalf("repeated claim should raise challenge rate: once=%.3f twice=%.3f", a, b)
	}
}

func TestRuleBrainAlwaysBlocksWithRealRole(t *testing.T) {
	view := GameView{
		Self:   "me",
		Prompt: coup.PromptBlock,
		Hand:   []card.Role{card.RoleDuke, card.RoleContessa},
		Pending: &coup.PendingSnapshot{
			Phase:  coup.PhaseAwaitingBlockDeclaration,
			Actor:  "killer",
			Action: coup.ActionAssassinate,
			Target: "me",
		},
	}
	for _, d := range []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyHardcore} {
		b := testBrain(d, 3)
		for i := 0; i < 200; i++ {
			r := b.Decide(view).Reaction
			if r.Kind != coup.ReactionBlock || r.Role != card.RoleContessa {
				t.Fatalf("%s: expected Contessa block, got %s", d, r)
			}
		}
	}
}

func TestRuleBrainNormalNeverBluffBlocks(t *testing.T) {
	view := GameView{
		Self:    "me",
		Prompt:  coup.PromptBlock,
		Hand:    []card.Role{card.RoleDuke, card.RoleAssassin},
		Pending: &coup.PendingSnapshot{Actor: "x", Action: coup.ActionSteal, Target: "me"},
	}
	b := testBrain(DifficultyNormal, 5)
	for i := 0; i < 500; i++ {
		if r := b.Decide(view).Reaction; r.Kind != coup.ReactionPass {
			t.Fatalf("normal tier bluff-blocked: %s", r)
		}
	}
}

func TestRuleBrainActions(t *testing.T) {
	legalAll := []coup.ActionOption{
		{Action: coup.ActionIncome},
		{Action: coup.ActionForeignAid},
		{Action: coup.ActionCoup, Targets: []string{"a", "b"}},
		{Action: coup.ActionTax},
		{Action: coup.ActionAssassinate, Targets: []string{"a", "b"}},
		{Action: coup.ActionSteal, Targets: []string{"a", "b"}},
		{Action: coup.ActionExchange},
	}
	players := []PublicPlayer{
		{ID: "me", Coins: 7, LiveCount: 2, Alive: true},
		{ID: "a", Coins: 3, LiveCount: 2, Alive: true},
		{ID: "b", Coins: 5, LiveCount: 1, Alive: true},
	}

	coupView := GameView{Self: "me", Prompt: coup.PromptAction, Coins: 7, Hand: []card.Role{card.RoleContessa}, Players: players, Legal: legalAll}
	d := testBrain(DifficultyNormal, 1).Decide(coupView)
	if d.Action != coup.ActionCoup || d.Target != "b" {
		t.Fatalf("normal at 7 coins should coup the richest opponent, got %+v", d)
	}

	honest := coupView
	honest.Coins = 3
	honest.Hand = []card.Role{card.RoleCaptain, card.RoleContessa}
	d = testBrain(DifficultyNormal, 1).Decide(honest)
	if d.Action != coup.ActionSteal || d.Target != "b" {
		t.Fatalf("normal with Captain should steal from b, got %+v", d)
	}

	honest.Hand = []card.Role{card.RoleContessa, card.RoleAmbassador}
	if d = testBrain(DifficultyNormal, 1).Decide(honest); d.Action != coup.ActionIncome {
		t.Fatalf("normal without claimable roles should take income, got %+v", d)
	}

	forced := GameView{Self: "me", Prompt: coup.PromptAction, Coins: 10, Players: players,
		Legal: []coup.ActionOption{{Action: coup.ActionCoup, Targets: []string{"a", "b"}}}}
	if d = testBrain(DifficultyEasy, 1).Decide(forced); d.Action != coup.ActionCoup {
		t.Fatalf("forced coup ignored: %+v", d)
	}
}

func TestRuleBrainCardChoices(t *testing.T) {
	b := testBrain(DifficultyHard, 9)
	loss := GameView{Self: "me", Prompt: coup.PromptInfluenceLoss, Hand: []card.Role{card.RoleDuke, card.RoleAmbassador}}
	if got := b.Decide(loss).CardIndex; got != 1 {
		t.Fatalf("should give up the Ambassador, got index %d", got)
	}
	dup := GameView{Self: "me", Prompt: coup.PromptInfluenceLoss, Hand: []card.Role{card.RoleDuke, card.RoleDuke}}
	if got := b.Decide(dup).CardIndex; got != 0 {
		t.Fatalf("duplicate loss index = %d", got)
	}

	keep := GameView{
		Self:    "me",
		Prompt:  coup.PromptExchange,
		Hand:    []card.Role{card.RoleAmbassador, card.RoleDuke, card.RoleDuke, card.RoleContessa},
		Pending: &coup.PendingSnapshot{KeepCount: 2},
	}
	got := b.Decide(keep).Keep
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("should keep one Duke and the Contessa, got %v", got)
	}
	if !IsLegal(keep, Decision{Keep: got}) {
		t.Fatalf("keep decision is not legal")
	}
}
