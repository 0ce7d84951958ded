package codec

import (
	"errors"
	"fmt"
	"testing"

	"coup-lite/card"
	"coup-lite/coup"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := Encode(TypeReaction, 9, ReactionPayload{ReqID: "r1", Kind: coup.ReactionBlock, Role: card.RoleContessa})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != TypeReaction || env.Seq != 9 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var p ReactionPayload
	if err := env.Into(&p); err != nil {
		t.Fatalf("Into: %v", err)
	}
	if p.Reaction() != coup.Block(card.RoleContessa) || p.ReqID != "r1" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{`not json`, `{"seq":1}`} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrBadEnvelope) {
			t.Fatalf("Decode(%q) err = %v", raw, err)
		}
	}
	env, _ := Decode([]byte(`{"type":"action","seq":1,"payload":{"action":"launch"}}`))
	var p ActionPayload
	if err := env.Into(&p); !errors.Is(err, ErrBadEnvelope) {
		t.Fatalf("unknown action should fail decode, got %v", err)
	}
}

func TestActionPayloadUsesWireNames(t *testing.T) {
	data, err := Encode(TypeAction, 1, ActionPayload{Action: coup.ActionForeignAid})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"type":"action","seq":1,"payload":{"action":"foreign_aid"}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestCheckSequence(t *testing.T) {
	cases := []struct {
		mirror uint64
		seq    uint64
		prev   uint64
		desync bool
	}{
		{mirror: 4, seq: 5, prev: 4},
		{mirror: 4, seq: 9, prev: 0},
		{mirror: 0, seq: 1, prev: 0},
		{mirror: 4, seq: 6, prev: 5, desync: true},
		{mirror: 4, seq: 4, prev: 4, desync: true},
	}
	for _, tc := range cases {
		err := CheckSequence(tc.mirror, StateSyncPayload{Seq: tc.seq, PrevSeq: tc.prev})
		if tc.desync != (err != nil) {
			t.Fatalf("mirror=%d seq=%d prev=%d err=%v", tc.mirror, tc.seq, tc.prev, err)
		}
		if err == nil {
			continue
		}
		var de *DesyncError
		if !errors.As(err, &de) || !errors.Is(err, ErrProtocolDesync) {
			t.Fatalf("error %v is not a DesyncError", err)
		}
		if de.Expected != tc.mirror || de.Got != tc.prev {
			t.Fatalf("DesyncError = %+v", de)
		}
	}
}

func TestErrorFor(t *testing.T) {
	cases := map[string]error{
		CodeStaleReaction:   fmt.Errorf("wrap: %w", coup.ErrStaleReaction),
		CodeInvalidReaction: coup.ErrInvalidReaction,
		CodeInvalidAction:   coup.ErrInvalidAction,
		CodeInvalidSelect:   coup.ErrInvalidSelection,
		CodeGameOver:        coup.ErrGameOver,
		CodeGameInProgress:  coup.ErrGameInProgress,
		CodeBadRequest:      ErrBadEnvelope,
		CodeRejected:        errors.New("other"),
	}
	for want, err := range cases {
		if got := ErrorFor(err).Code; got != want {
			t.Fatalf("ErrorFor(%v) = %s, want %s", err, got, want)
		}
	}
}
