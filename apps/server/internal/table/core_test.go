package table

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"coup-lite/apps/server/internal/auth"
	"coup-lite/apps/server/internal/ledger"
	"coup-lite/card"
	"coup-lite/codec"
	"coup-lite/coup"
	"coup-lite/coup/npc"
	"coup-lite/replay"
)

type recordingOutbox struct {
	msgs map[string][]codec.Envelope
}

func newRecordingOutbox() *recordingOutbox {
	return &recordingOutbox{msgs: make(map[string][]codec.Envelope)}
}

func (o *recordingOutbox) Send(playerID string, data []byte) {
	env, err := codec.Decode(data)
	if err != nil {
		panic(err)
	}
	o.msgs[playerID] = append(o.msgs[playerID], env)
}

func (o *recordingOutbox) of(playerID string, t codec.MsgType) []codec.Envelope {
	var out []codec.Envelope
	for _, env := range o.msgs[playerID] {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

func (o *recordingOutbox) syncs(t *testing.T, playerID string) []codec.StateSyncPayload {
	t.Helper()
	var out []codec.StateSyncPayload
	for _, env := range o.of(playerID, codec.TypeStateSync) {
		var s codec.StateSyncPayload
		if err := env.Into(&s); err != nil {
			t.Fatalf("decode stateSync: %v", err)
		}
		out = append(out, s)
	}
	return out
}

func (o *recordingOutbox) lastPrompt(t *testing.T, playerID string) codec.PromptPayload {
	t.Helper()
	envs := o.of(playerID, codec.TypePrompt)
	if len(envs) == 0 {
		t.Fatalf("no prompt sent to %s", playerID)
	}
	var p codec.PromptPayload
	if err := envs[len(envs)-1].Into(&p); err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	return p
}

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

// rich table: two players start with 14 coins and Coup is never forced, so
// two coups end the match.
func testConfig() TableConfig {
	first := uint16(0)
	g := coup.DefaultConfig()
	g.MaxPlayers = 4
	g.Seed = 11
	g.StartingCoins = 14
	g.ForcedCoupCoins = 0
	g.ForcedFirstChair = &first
	return TableConfig{
		Game:            g,
		ActionTimeout:   30 * time.Second,
		ReactionTimeout: 15 * time.Second,
		BotThinkMin:     100 * time.Millisecond,
		BotThinkMax:     200 * time.Millisecond,
	}
}

type testTable struct {
	core *Core
	out  *recordingOutbox
	deps Deps
}

func newTestTable(t *testing.T, mutate func(*TableConfig, *Deps)) *testTable {
	t.Helper()
	cfg := testConfig()
	deps := Deps{
		Ledger: ledger.NewMemoryService(10),
		Auth:   auth.NewManager(),
		NPC:    npc.NewManager(npc.NewRegistry(), 5),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	out := newRecordingOutbox()
	core, err := NewCore("ROOM1", cfg, deps, out)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	return &testTable{core: core, out: out, deps: deps}
}

func (tt *testTable) join(t *testing.T, name string) JoinResult {
	t.Helper()
	res, err := tt.core.Join(JoinRequest{Name: name}, nil, t0)
	if err != nil {
		t.Fatalf("Join(%s): %v", name, err)
	}
	return res
}

// startedPair seats Alice (host, chair 0) and Bob and starts the match.
func startedPair(t *testing.T) (*testTable, string, string) {
	t.Helper()
	tt := newTestTable(t, nil)
	alice := tt.join(t, "Alice").PlayerID
	bob := tt.join(t, "Bob").PlayerID
	if err := tt.core.Start(alice, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return tt, alice, bob
}

func (tt *testTable) input(t *testing.T, playerID string, in replay.Input, now time.Time) {
	t.Helper()
	if err := tt.core.Input(playerID, tt.core.open.reqID, in, now); err != nil {
		t.Fatalf("Input(%s, %+v): %v", playerID, in, err)
	}
}

func TestJoinAssignsChairsAndHost(t *testing.T) {
	tt := newTestTable(t, nil)
	alice := tt.join(t, "Alice")
	bob := tt.join(t, "  ")
	if alice.Chair != 0 || bob.Chair != 1 {
		t.Fatalf("chairs = %d, %d", alice.Chair, bob.Chair)
	}
	if alice.Token == "" || alice.Token == bob.Token {
		t.Fatalf("expected distinct seat tokens")
	}
	if tt.core.HostID() != alice.PlayerID {
		t.Fatalf("first joiner should host")
	}
	if got := tt.core.Player(bob.PlayerID).Name; got != "Player 2" {
		t.Fatalf("blank name normalized to %q", got)
	}

	var lobby codec.LobbyUpdatePayload
	updates := tt.out.of(alice.PlayerID, codec.TypeLobbyUpdate)
	if err := updates[len(updates)-1].Into(&lobby); err != nil {
		t.Fatalf("decode lobby: %v", err)
	}
	if len(lobby.Seats) != 2 || lobby.HostID != alice.PlayerID || lobby.Started {
		t.Fatalf("unexpected lobby %+v", lobby)
	}

	if err := tt.core.Start(bob.PlayerID, t0); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host start err = %v", err)
	}
	if _, err := tt.core.AddBot(bob.PlayerID, "", t0); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host addBot err = %v", err)
	}

	// host leaves before the match: Bob takes over
	if err := tt.core.Leave(alice.PlayerID, t0); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if tt.core.HostID() != bob.PlayerID {
		t.Fatalf("host should pass to Bob, got %q", tt.core.HostID())
	}
	if tt.core.Game().PlayerAt(0) != nil {
		t.Fatalf("chair 0 should be free")
	}
}

func TestJoinRejections(t *testing.T) {
	hash, err := auth.HashPasscode("s3cret")
	if err != nil {
		t.Fatalf("HashPasscode: %v", err)
	}
	tt := newTestTable(t, func(cfg *TableConfig, _ *Deps) {
		cfg.Game.MaxPlayers = 2
		cfg.PasscodeHash = hash
	})
	if _, err := tt.core.Join(JoinRequest{Name: "Eve", Passcode: "nope"}, nil, t0); !errors.Is(err, auth.ErrWrongPasscode) {
		t.Fatalf("wrong passcode err = %v", err)
	}
	alice, err := tt.core.Join(JoinRequest{Name: "Alice", Passcode: "s3cret"}, nil, t0)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := tt.core.Join(JoinRequest{Name: "Bob", Passcode: "s3cret"}, nil, t0); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := tt.core.Join(JoinRequest{Name: "Carol", Passcode: "s3cret"}, nil, t0); !errors.Is(err, ErrTableFull) {
		t.Fatalf("full table err = %v", err)
	}
	if err := tt.core.Start(alice.PlayerID, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tt.core.Join(JoinRequest{Name: "Dave", Passcode: "s3cret"}, nil, t0); !errors.Is(err, coup.ErrGameInProgress) {
		t.Fatalf("join after start err = %v", err)
	}
}

func TestStartSendsPromptAndMaskedState(t *testing.T) {
	tt, alice, bob := startedPair(t)

	if len(tt.out.of(bob, codec.TypeGameStart)) != 1 {
		t.Fatalf("gameStart not broadcast")
	}
	p := tt.out.lastPrompt(t, alice)
	if p.Kind != coup.PromptAction || p.PlayerID != alice || p.ReqID == "" {
		t.Fatalf("unexpected prompt %+v", p)
	}
	if want := t0.Add(30 * time.Second).UnixMilli(); p.DeadlineMs != want {
		t.Fatalf("deadline = %d, want %d", p.DeadlineMs, want)
	}
	if len(tt.out.of(bob, codec.TypePrompt)) != 0 {
		t.Fatalf("prompt leaked to Bob")
	}

	syncs := tt.out.syncs(t, bob)
	if len(syncs) != 1 || syncs[0].PrevSeq != 0 {
		t.Fatalf("bob syncs = %+v", syncs)
	}
	snap := syncs[0].Snapshot
	for _, ps := range snap.Players {
		for _, c := range ps.Hand {
			hidden := c == card.Hidden
			if ps.ID == bob && hidden {
				t.Fatalf("bob cannot see his own hand")
			}
			if ps.ID != bob && !hidden {
				t.Fatalf("bob sees %s's card %v", ps.Name, c)
			}
		}
	}
}

func TestStateSyncChainsPerViewer(t *testing.T) {
	tt, alice, bob := startedPair(t)
	tt.input(t, alice, replay.Input{Kind: replay.InputAction, Action: "income"}, t0)
	tt.input(t, bob, replay.Input{Kind: replay.InputAction, Action: "income"}, t0)

	for _, id := range []string{alice, bob} {
		syncs := tt.out.syncs(t, id)
		if len(syncs) != 3 {
			t.Fatalf("%s got %d syncs, want 3", id, len(syncs))
		}
		var mirror uint64
		lines := 0
		for _, s := range syncs {
			if err := codec.CheckSequence(mirror, s); err != nil {
				t.Fatalf("%s: %v", id, err)
			}
			mirror = s.Seq
			if s.LogFrom != lines {
				t.Fatalf("%s: logFrom = %d, want %d", id, s.LogFrom, lines)
			}
			lines += len(s.NewLog)
		}
		if lines != len(tt.core.Game().Log()) {
			t.Fatalf("%s received %d log lines, game has %d", id, lines, len(tt.core.Game().Log()))
		}
	}
}

func TestTickTimesOutActionAndReaction(t *testing.T) {
	tt, alice, bob := startedPair(t)

	if err := tt.core.Tick(t0.Add(29 * time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if tt.core.Game().CurrentPlayer() != alice {
		t.Fatalf("action timed out early")
	}
	if err := tt.core.Tick(t0.Add(31 * time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := tt.core.Game().Player(alice).Coins(); got != 15 {
		t.Fatalf("timeout should take Income, alice has %d coins", got)
	}

	// Bob claims Duke; Alice never answers the challenge window.
	now := t0.Add(40 * time.Second)
	tt.input(t, bob, replay.Input{Kind: replay.InputAction, Action: "tax"}, now)
	pr := tt.core.Game().Prompt()
	if pr.Kind != coup.PromptChallengeAction || pr.PlayerID != alice {
		t.Fatalf("unexpected prompt %+v", pr)
	}
	if p := tt.out.lastPrompt(t, alice); p.DeadlineMs != now.Add(15*time.Second).UnixMilli() {
		t.Fatalf("reaction deadline = %d", p.DeadlineMs)
	}
	if err := tt.core.Tick(now.Add(16 * time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := tt.core.Game().Player(bob).Coins(); got != 17 {
		t.Fatalf("tax should resolve after pass, bob has %d", got)
	}
	if tt.core.Game().CurrentPlayer() != alice {
		t.Fatalf("turn should pass back to Alice")
	}
}

func TestStaleRequestsAreRejected(t *testing.T) {
	tt, alice, bob := startedPair(t)
	firstReq := tt.core.open.reqID
	tt.input(t, alice, replay.Input{Kind: replay.InputAction, Action: "steal", Target: bob}, t0)

	err := tt.core.Input(bob, firstReq, replay.Input{Kind: replay.InputReaction, Reaction: "challenge"}, t0)
	if !errors.Is(err, coup.ErrStaleReaction) || !errors.Is(err, coup.ErrInvalidReaction) {
		t.Fatalf("stale reaction err = %v", err)
	}
	if codec.ErrorFor(err).Code != codec.CodeStaleReaction {
		t.Fatalf("stale reaction code = %s", codec.ErrorFor(err).Code)
	}
	err = tt.core.Input(alice, firstReq, replay.Input{Kind: replay.InputAction, Action: "income"}, t0)
	if !errors.Is(err, ErrStaleRequest) {
		t.Fatalf("stale action err = %v", err)
	}
	// the live reqID does not make a wrong-kind input legal
	err = tt.core.Input(alice, tt.core.open.reqID, replay.Input{Kind: replay.InputAction, Action: "income"}, t0)
	if !errors.Is(err, coup.ErrInvalidAction) {
		t.Fatalf("action during reaction window err = %v", err)
	}
	// a player the window is not waiting on is stale
	err = tt.core.Input(alice, tt.core.open.reqID, replay.Input{Kind: replay.InputReaction, Reaction: "pass"}, t0)
	if !errors.Is(err, coup.ErrStaleReaction) {
		t.Fatalf("reaction from actor err = %v", err)
	}
	if got := len(tt.core.recorder.Script().Inputs); got != 1 {
		t.Fatalf("rejected inputs were recorded: %d", got)
	}
}

func TestResumeSendsFullSync(t *testing.T) {
	tt := newTestTable(t, nil)
	alice := tt.join(t, "Alice")
	bob := tt.join(t, "Bob")
	if err := tt.core.Start(alice.PlayerID, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tt.core.Disconnect(alice.PlayerID, t0); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if tt.core.Player(alice.PlayerID).Online {
		t.Fatalf("alice should be offline")
	}
	if len(tt.out.of(bob.PlayerID, codec.TypePlayerLeave)) != 1 {
		t.Fatalf("bob not told about the disconnect")
	}
	before := len(tt.out.msgs[alice.PlayerID])

	var attached string
	res, err := tt.core.Join(JoinRequest{Token: alice.Token}, func(id string) { attached = id }, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !res.Resumed || res.PlayerID != alice.PlayerID || attached != alice.PlayerID {
		t.Fatalf("unexpected resume %+v attached=%s", res, attached)
	}
	after := tt.out.msgs[alice.PlayerID][before:]
	var kinds []codec.MsgType
	for _, env := range after {
		kinds = append(kinds, env.Type)
	}
	want := []codec.MsgType{codec.TypePlayerJoin, codec.TypeLobbyUpdate, codec.TypeStateSync, codec.TypePrompt}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("resume sent %v, want %v", kinds, want)
	}
	syncs := tt.out.syncs(t, alice.PlayerID)
	last := syncs[len(syncs)-1]
	if last.PrevSeq != 0 || last.LogFrom != 0 || len(last.NewLog) != len(tt.core.Game().Log()) {
		t.Fatalf("resume sync should be a full base, got prev=%d from=%d", last.PrevSeq, last.LogFrom)
	}

	// a token for another room does not resume here
	other := tt.deps.Auth.IssueSeat("ROOM2", alice.PlayerID, "Alice")
	if _, err := tt.core.Join(JoinRequest{Token: other}, nil, t0); !errors.Is(err, coup.ErrGameInProgress) {
		t.Fatalf("foreign token err = %v", err)
	}
}

func TestFinishedMatchIsPersistedAndReplayable(t *testing.T) {
	var got GameOverInfo
	done := make(chan struct{})
	tt, alice, bob := startedPair(t)
	tt.core.AddGameOverHook(func(info GameOverInfo) {
		got = info
		close(done)
	})

	tt.input(t, alice, replay.Input{Kind: replay.InputAction, Action: "coup", Target: bob}, t0)
	tt.input(t, bob, replay.Input{Kind: replay.InputLose, Card: 1}, t0)
	tt.input(t, bob, replay.Input{Kind: replay.InputAction, Action: "income"}, t0)
	tt.input(t, alice, replay.Input{Kind: replay.InputAction, Action: "coup", Target: bob}, t0)
	tt.input(t, bob, replay.Input{Kind: replay.InputLose, Card: 0}, t0)

	if !tt.core.Finished() || tt.core.Game().Winner() != alice {
		t.Fatalf("alice should have won")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("game over hook not called")
	}
	if got.Winner != alice || got.MatchID != tt.core.MatchID() {
		t.Fatalf("unexpected hook info %+v", got)
	}

	var over codec.GameOverPayload
	envs := tt.out.of(bob, codec.TypeGameOver)
	if len(envs) != 1 {
		t.Fatalf("gameOver sent %d times", len(envs))
	}
	if err := envs[0].Into(&over); err != nil || over.WinnerName != "Alice" {
		t.Fatalf("gameOver = %+v, %v", over, err)
	}
	syncs := tt.out.syncs(t, bob)
	final := syncs[len(syncs)-1].Snapshot
	if !final.GameOver {
		t.Fatalf("final sync should be game over")
	}
	for _, ps := range final.Players {
		for _, c := range ps.Hand {
			if c == card.Hidden {
				t.Fatalf("hands should be revealed at game over")
			}
		}
	}

	rec, err := tt.deps.Ledger.GetMatch(context.Background(), tt.core.MatchID())
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if rec.Winner != alice || rec.Room != "ROOM1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	tape, err := replay.Generate(got.Script)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !reflect.DeepEqual(tape.Texts(), got.Tape.Texts()) {
		t.Fatalf("regenerated log differs:\n%v\n%v", tape.Texts(), got.Tape.Texts())
	}

	if err := tt.core.Input(alice, "", replay.Input{Kind: replay.InputAction, Action: "income"}, t0); !errors.Is(err, coup.ErrGameOver) {
		t.Fatalf("input after game over err = %v", err)
	}
}

func TestBotTakesItsTurn(t *testing.T) {
	tt := newTestTable(t, func(cfg *TableConfig, _ *Deps) {
		first := uint16(1)
		cfg.Game.ForcedFirstChair = &first
	})
	alice := tt.join(t, "Alice").PlayerID
	botID, err := tt.core.AddBot(alice, "easy", t0)
	if err != nil {
		t.Fatalf("AddBot: %v", err)
	}
	if _, err := tt.core.AddBot(alice, "nobody", t0); err == nil {
		t.Fatalf("unknown profile should fail")
	}
	if err := tt.core.Start(alice, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if tt.core.Game().CurrentPlayer() != botID {
		t.Fatalf("bot should act first")
	}
	if _, ok := tt.core.DueBot(t0); ok {
		t.Fatalf("bot is still thinking")
	}
	job, ok := tt.core.DueBot(t0.Add(time.Second))
	if !ok || job.PlayerID != botID || job.Prompt.Kind != coup.PromptAction {
		t.Fatalf("expected due bot job, got %+v %v", job, ok)
	}
	if _, ok := tt.core.DueBot(t0.Add(time.Second)); ok {
		t.Fatalf("job handed out twice")
	}
	for _, ps := range job.Snapshot.Players {
		if ps.ID == alice && len(ps.Hand) > 0 && ps.Hand[0] != card.Hidden {
			t.Fatalf("bot job leaks alice's hand")
		}
	}

	d := tt.deps.NPC.Decide(job.PlayerID, job.Snapshot, job.Prompt, job.Legal, job.Config)
	if err := tt.core.ApplyBot(job, d, t0.Add(time.Second)); err != nil {
		t.Fatalf("ApplyBot: %v", err)
	}
	if step := tt.core.Game().Prompt().Step; step != 1 {
		t.Fatalf("bot decision not applied, step=%d", step)
	}
	// replaying the same job is a stale no-op
	if err := tt.core.ApplyBot(job, d, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("stale ApplyBot: %v", err)
	}
	if step := tt.core.Game().Prompt().Step; step != 1 {
		t.Fatalf("stale bot decision applied, step=%d", step)
	}
	if len(tt.out.of(botID, codec.TypeStateSync)) != 0 {
		t.Fatalf("bots get no network traffic")
	}
}

func TestApplyBotFallsBackOnIllegalDecision(t *testing.T) {
	tt := newTestTable(t, func(cfg *TableConfig, _ *Deps) {
		first := uint16(1)
		cfg.Game.ForcedFirstChair = &first
	})
	alice := tt.join(t, "Alice").PlayerID
	if _, err := tt.core.AddBot(alice, "", t0); err != nil {
		t.Fatalf("AddBot: %v", err)
	}
	if err := tt.core.Start(alice, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job, ok := tt.core.DueBot(t0.Add(time.Second))
	if !ok {
		t.Fatalf("expected bot job")
	}
	// assassinate needs a target
	if err := tt.core.ApplyBot(job, npc.Decision{Action: coup.ActionAssassinate}, t0.Add(time.Second)); err != nil {
		t.Fatalf("ApplyBot: %v", err)
	}
	if tt.core.Game().CurrentPlayer() != alice {
		t.Fatalf("fallback Income should end the bot's turn")
	}
}

func TestDisconnectBeforeStartFreesSeat(t *testing.T) {
	tt := newTestTable(t, nil)
	alice := tt.join(t, "Alice").PlayerID
	if err := tt.core.Disconnect(alice, t0); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if tt.core.SeatCount() != 0 || tt.core.HostID() != "" {
		t.Fatalf("seat should be released")
	}
	if tt.core.IdleSince().IsZero() {
		t.Fatalf("empty room should be idle")
	}
}
