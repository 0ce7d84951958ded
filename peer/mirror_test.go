package peer

import (
	"errors"
	"reflect"
	"testing"

	"coup-lite/codec"
	"coup-lite/coup"
)

func syncFrame(t *testing.T, s codec.StateSyncPayload) codec.Envelope {
	t.Helper()
	data, err := codec.Encode(codec.TypeStateSync, 0, s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func frame(t *testing.T, typ codec.MsgType, payload any) codec.Envelope {
	t.Helper()
	data, err := codec.Encode(typ, 0, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestMirrorChainsDeltas(t *testing.T) {
	m := NewMirror()
	steps := []codec.StateSyncPayload{
		{MatchID: "m1", Seq: 1, Snapshot: coup.Snapshot{TurnNumber: 1}, NewLog: []string{"start"}},
		{MatchID: "m1", Seq: 2, PrevSeq: 1, Snapshot: coup.Snapshot{TurnNumber: 1}, LogFrom: 1, NewLog: []string{"a takes Income."}},
		{MatchID: "m1", Seq: 3, PrevSeq: 2, Snapshot: coup.Snapshot{TurnNumber: 2}, LogFrom: 2},
	}
	for _, s := range steps {
		if err := m.Apply(syncFrame(t, s)); err != nil {
			t.Fatalf("seq %d: %v", s.Seq, err)
		}
	}
	if m.Seq() != 3 || m.MatchID() != "m1" {
		t.Fatalf("seq=%d match=%s", m.Seq(), m.MatchID())
	}
	want := []string{"start", "a takes Income."}
	if got := m.Snapshot().Log; !reflect.DeepEqual(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
	if m.Snapshot().TurnNumber != 2 {
		t.Fatalf("snapshot not replaced")
	}
}

func TestMirrorRejectsGapAndKeepsState(t *testing.T) {
	m := NewMirror()
	if err := m.Apply(syncFrame(t, codec.StateSyncPayload{MatchID: "m1", Seq: 4, NewLog: []string{"x"}})); err != nil {
		t.Fatalf("base: %v", err)
	}

	cases := []struct {
		name string
		s    codec.StateSyncPayload
	}{
		{"skipped seq", codec.StateSyncPayload{MatchID: "m1", Seq: 6, PrevSeq: 5, LogFrom: 1}},
		{"other match", codec.StateSyncPayload{MatchID: "m2", Seq: 5, PrevSeq: 4}},
		{"log gap", codec.StateSyncPayload{MatchID: "m1", Seq: 5, PrevSeq: 4, LogFrom: 3, NewLog: []string{"z"}}},
	}
	for _, tc := range cases {
		err := m.Apply(syncFrame(t, tc.s))
		if !errors.Is(err, codec.ErrProtocolDesync) {
			t.Fatalf("%s: expected desync, got %v", tc.name, err)
		}
	}
	var de *codec.DesyncError
	if err := m.Apply(syncFrame(t, cases[0].s)); !errors.As(err, &de) || de.Expected != 4 || de.Got != 5 {
		t.Fatalf("unexpected desync detail %v", err)
	}
	if m.Seq() != 4 || !reflect.DeepEqual(m.Log(), []string{"x"}) {
		t.Fatalf("rejected frames changed the mirror: seq=%d log=%v", m.Seq(), m.Log())
	}
	if m.Desyncs() != 4 {
		t.Fatalf("desyncs = %d", m.Desyncs())
	}

	// a full sync always applies
	full := codec.StateSyncPayload{MatchID: "m1", Seq: 9, NewLog: []string{"x", "y", "z"}}
	if err := m.Apply(syncFrame(t, full)); err != nil {
		t.Fatalf("full sync: %v", err)
	}
	if m.Seq() != 9 || len(m.Log()) != 3 {
		t.Fatalf("full sync not applied: seq=%d log=%v", m.Seq(), m.Log())
	}
}

func TestMirrorTracksPromptsAndGameOver(t *testing.T) {
	m := NewMirror()
	if err := m.Apply(frame(t, codec.TypeGameStart, codec.GameStartPayload{MatchID: "m1"})); err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(frame(t, codec.TypePrompt, codec.PromptPayload{ReqID: "r1", Kind: coup.PromptAction, PlayerID: "p1"})); err != nil {
		t.Fatal(err)
	}
	if p := m.Prompt(); p == nil || p.ReqID != "r1" {
		t.Fatalf("prompt not kept: %+v", p)
	}
	if id := m.takePrompt(); id != "r1" || m.Prompt() != nil {
		t.Fatalf("takePrompt = %q, prompt %+v", id, m.Prompt())
	}

	m.Apply(frame(t, codec.TypePrompt, codec.PromptPayload{ReqID: "r2", Kind: coup.PromptBlock}))
	if err := m.Apply(frame(t, codec.TypeGameOver, codec.GameOverPayload{MatchID: "m1", Winner: "p1"})); err != nil {
		t.Fatal(err)
	}
	if m.Prompt() != nil || m.GameOver() == nil || m.GameOver().Winner != "p1" {
		t.Fatalf("game over not applied")
	}

	if err := m.Apply(frame(t, codec.TypeAction, codec.ActionPayload{})); !errors.Is(err, codec.ErrBadEnvelope) {
		t.Fatalf("peer-bound frame accepted: %v", err)
	}
}

func TestMirrorReopensPromptAfterRejectedAnswer(t *testing.T) {
	m := NewMirror()
	m.Apply(frame(t, codec.TypeGameStart, codec.GameStartPayload{MatchID: "m1"}))
	m.Apply(frame(t, codec.TypePrompt, codec.PromptPayload{ReqID: "r1", Kind: coup.PromptAction, PlayerID: "p1"}))

	if id := m.takePrompt(); id != "r1" {
		t.Fatalf("takePrompt = %q", id)
	}
	if err := m.Apply(frame(t, codec.TypeError, codec.ErrorFor(coup.ErrInvalidAction))); err != nil {
		t.Fatal(err)
	}
	if p := m.Prompt(); p == nil || p.ReqID != "r1" {
		t.Fatalf("prompt not reopened after rejection: %+v", p)
	}
	if id := m.takePrompt(); id != "r1" {
		t.Fatalf("retry takePrompt = %q", id)
	}

	// an accepted answer is followed by a stateSync; a later error leaves it closed
	if err := m.Apply(syncFrame(t, codec.StateSyncPayload{MatchID: "m1", Seq: 1, NewLog: []string{"p1 takes Income."}})); err != nil {
		t.Fatal(err)
	}
	m.Apply(frame(t, codec.TypeError, codec.ErrorFor(coup.ErrInvalidAction)))
	if m.Prompt() != nil {
		t.Fatalf("prompt reopened after the host moved on")
	}

	// a stale answer does not bring the prompt back
	m.Apply(frame(t, codec.TypePrompt, codec.PromptPayload{ReqID: "r2", Kind: coup.PromptBlock, PlayerID: "p1"}))
	m.takePrompt()
	m.Apply(frame(t, codec.TypeError, codec.ErrorFor(coup.ErrStaleReaction)))
	if m.Prompt() != nil {
		t.Fatalf("stale request reopened the prompt")
	}
}
