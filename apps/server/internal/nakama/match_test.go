package nakama

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"coup-lite/apps/server/internal/ledger"
	"coup-lite/apps/server/internal/table"
	"coup-lite/codec"
	"coup-lite/coup"
	"coup-lite/coup/npc"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentFrame struct {
	userID string
	opCode int64
	env    codec.Envelope
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	t         *testing.T
	frames    []sentFrame
	lastLabel string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	env, err := codec.Decode(data)
	if err != nil {
		md.t.Fatalf("undecodable frame: %v", err)
	}
	for _, p := range presences {
		md.frames = append(md.frames, sentFrame{userID: p.GetUserId(), opCode: opCode, env: env})
	}
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) of(userID string, t codec.MsgType) []sentFrame {
	var out []sentFrame
	for _, f := range md.frames {
		if f.userID == userID && f.env.Type == t {
			out = append(out, f)
		}
	}
	return out
}

type testPresence struct {
	userID string
	name   string
}

func (p testPresence) GetHidden() bool                   { return false }
func (p testPresence) GetPersistence() bool              { return false }
func (p testPresence) GetStatus() string                 { return "" }
func (p testPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p testPresence) GetUserId() string                 { return p.userID }
func (p testPresence) GetSessionId() string              { return "s-" + p.userID }
func (p testPresence) GetNodeId() string                 { return "node" }
func (p testPresence) GetUsername() string               { return p.name }

type testMessage struct {
	testPresence
	op   int64
	data []byte
}

func (m testMessage) GetOpCode() int64      { return m.op }
func (m testMessage) GetData() []byte       { return m.data }
func (m testMessage) GetReliable() bool     { return true }
func (m testMessage) GetReceiveTime() int64 { return 0 }

func message(t *testing.T, from testPresence, op int64, typ codec.MsgType, payload any) runtime.MatchData {
	t.Helper()
	data, err := codec.Encode(typ, 0, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return testMessage{testPresence: from, op: op, data: data}
}

func newTestMatch(t *testing.T, params map[string]interface{}) (*matchHandler, *MatchState) {
	t.Helper()
	game := coup.DefaultConfig()
	game.Seed = 5
	first := uint16(0)
	game.ForcedFirstChair = &first
	mh := &matchHandler{deps: Deps{
		Ledger: ledger.NewMemoryService(5),
		NPC:    npc.NewManager(npc.NewRegistry(), 3),
		Table:  table.TableConfig{Game: game},
	}}
	state, rate, label := mh.MatchInit(context.Background(), noopLogger{}, nil, nil, params)
	ms, ok := state.(*MatchState)
	if !ok || ms == nil {
		t.Fatalf("MatchInit returned %T", state)
	}
	if rate != tickRate || label == "" {
		t.Fatalf("unexpected tick rate %d or label %q", rate, label)
	}
	return mh, ms
}

func decodeLabel(t *testing.T, label string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(label), &out); err != nil {
		t.Fatalf("label %q: %v", label, err)
	}
	return out
}

func TestMatchInitLabel(t *testing.T) {
	_, ms := newTestMatch(t, map[string]interface{}{paramMaxPlayers: float64(3), paramPasscode: "1234"})
	label := decodeLabel(t, ms.label)
	if label["game"] != MatchName || label["open"] != float64(3) || label["private"] != true {
		t.Fatalf("unexpected label %v", label)
	}
}

func TestMatchJoinAttemptChecksPasscode(t *testing.T) {
	mh, ms := newTestMatch(t, map[string]interface{}{paramPasscode: "1234"})
	ctx := context.Background()
	d := &mockDispatcher{t: t}
	alice := testPresence{userID: "u1", name: "Alice"}

	if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 0, ms, alice, nil); ok || reason == "" {
		t.Fatalf("missing passcode accepted")
	}
	if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 0, ms, alice, map[string]string{metaPasscode: "1234"}); !ok {
		t.Fatalf("correct passcode rejected: %s", reason)
	}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice})
	if ms.byUser["u1"] == "" {
		t.Fatalf("alice not seated")
	}
	if joins := d.of("u1", codec.TypePlayerJoin); len(joins) != 1 || joins[0].opCode != OpPlayerJoin {
		t.Fatalf("expected one playerJoin frame, got %+v", joins)
	}
}

func TestMatchLoopRunsGame(t *testing.T) {
	mh, ms := newTestMatch(t, nil)
	ctx := context.Background()
	d := &mockDispatcher{t: t}
	alice := testPresence{userID: "u1", name: "Alice"}
	bob := testPresence{userID: "u2", name: "Bob"}

	for _, p := range []testPresence{alice, bob} {
		if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 0, ms, p, nil); !ok {
			t.Fatalf("join attempt rejected: %s", reason)
		}
	}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice, bob})

	// op code and envelope type must agree
	state := mh.MatchLoop(ctx, noopLogger{}, nil, nil, d, 1, ms, []runtime.MatchData{
		message(t, bob, OpAction, codec.TypeStartGame, nil),
	})
	if state == nil {
		t.Fatalf("match terminated")
	}
	if errs := d.of("u2", codec.TypeError); len(errs) != 1 {
		t.Fatalf("expected an error frame for bob, got %d", len(errs))
	}

	// only the host starts
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, d, 2, ms, []runtime.MatchData{
		message(t, bob, OpStartGame, codec.TypeStartGame, nil),
	})
	if ms.core.Game().Started() {
		t.Fatalf("bob is not host")
	}
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, d, 3, ms, []runtime.MatchData{
		message(t, alice, OpStartGame, codec.TypeStartGame, nil),
	})
	if !ms.core.Game().Started() {
		t.Fatalf("game should have started")
	}
	if starts := d.of("u2", codec.TypeGameStart); len(starts) != 1 {
		t.Fatalf("bob should see gameStart")
	}
	prompts := d.of("u1", codec.TypePrompt)
	if len(prompts) == 0 {
		t.Fatalf("alice should be prompted first")
	}
	var pr codec.PromptPayload
	if err := prompts[len(prompts)-1].env.Into(&pr); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if label := decodeLabel(t, d.lastLabel); label["started"] != true || label["open"] != float64(0) {
		t.Fatalf("label not refreshed: %v", label)
	}

	// late joiners are refused
	carol := testPresence{userID: "u3", name: "Carol"}
	if _, ok, _ := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 4, ms, carol, nil); ok {
		t.Fatalf("late join accepted")
	}

	// bob drops and comes back to his seat
	bobID := ms.byUser["u2"]
	mh.MatchLeave(ctx, noopLogger{}, nil, nil, d, 5, ms, []runtime.Presence{bob})
	if ms.core.Player(bobID).Online {
		t.Fatalf("bob should be offline")
	}
	if _, ok, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, d, 6, ms, bob, nil); !ok {
		t.Fatalf("seated user refused: %s", reason)
	}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, d, 6, ms, []runtime.Presence{bob})
	var resumed codec.PlayerJoinPayload
	joins := d.of("u2", codec.TypePlayerJoin)
	if err := joins[len(joins)-1].env.Into(&resumed); err != nil {
		t.Fatalf("join: %v", err)
	}
	if !resumed.Resumed || resumed.PlayerID != bobID {
		t.Fatalf("unexpected resume %+v", resumed)
	}
}

func TestMatchTerminatesWhenIdle(t *testing.T) {
	mh, ms := newTestMatch(t, nil)
	ctx := context.Background()
	d := &mockDispatcher{t: t}
	alice := testPresence{userID: "u1", name: "Alice"}
	bob := testPresence{userID: "u2", name: "Bob"}
	mh.MatchJoin(ctx, noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice, bob})
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, d, 1, ms, []runtime.MatchData{
		message(t, alice, OpStartGame, codec.TypeStartGame, nil),
	})
	mh.MatchLeave(ctx, noopLogger{}, nil, nil, d, 2, ms, []runtime.Presence{alice, bob})

	start := time.Now()
	ms.now = func() time.Time { return start.Add(ms.idleTTL + time.Second) }
	if state := mh.MatchLoop(ctx, noopLogger{}, nil, nil, d, 3, ms, nil); state != nil {
		t.Fatalf("idle match should terminate")
	}
}

func TestOpCodesCoverEveryMessage(t *testing.T) {
	seen := make(map[int64]codec.MsgType)
	for typ, op := range opCodes {
		if prev, dup := seen[op]; dup {
			t.Fatalf("op %d used by %s and %s", op, prev, typ)
		}
		seen[op] = typ
	}
	if len(seen) != 14 {
		t.Fatalf("expected 14 op codes, got %d", len(seen))
	}
}
