package main

import (
	"encoding/json"
	"errors"

	"coup-lite/coup"
	"coup-lite/replay"
)

type initRequest struct {
	Script replay.Script `json:"script"`
}

type initResponse struct {
	OK    bool                `json:"ok"`
	Tape  *replay.WireTape    `json:"tape,omitempty"`
	Error *replay.ReplayError `json:"error,omitempty"`
}

type stepResponse struct {
	OK       bool                `json:"ok"`
	Index    int                 `json:"index"`
	Text     string              `json:"text,omitempty"`
	Snapshot *coup.Snapshot      `json:"snapshot,omitempty"`
	Error    *replay.ReplayError `json:"error,omitempty"`
}

func failure(step int32, reason, msg string) initResponse {
	return initResponse{Error: &replay.ReplayError{StepIndex: step, Reason: reason, Message: msg}}
}

// handleInit regenerates the tape of a script.
func handleInit(raw string) initResponse {
	var req initRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return failure(-1, "invalid_json", err.Error())
	}
	tape, err := replay.Generate(req.Script)
	if err != nil {
		var replayErr *replay.ReplayError
		if errors.As(err, &replayErr) {
			return initResponse{Error: replayErr}
		}
		return failure(-1, "replay_generation_failed", err.Error())
	}
	return initResponse{OK: true, Tape: replay.ToWireTape(tape)}
}

// handleStep returns step k of a wire tape.
func handleStep(rawTape string, k int) stepResponse {
	tape, err := replay.UnmarshalTape([]byte(rawTape))
	if err != nil {
		var replayErr *replay.ReplayError
		if !errors.As(err, &replayErr) {
			replayErr = &replay.ReplayError{StepIndex: -1, Reason: "invalid_tape", Message: err.Error()}
		}
		return stepResponse{Index: k, Error: replayErr}
	}
	snap, err := tape.At(k)
	if err != nil {
		return stepResponse{Index: k, Error: &replay.ReplayError{StepIndex: int32(k), Reason: "out_of_range", Message: err.Error()}}
	}
	return stepResponse{OK: true, Index: k, Text: tape.Steps[k].Text, Snapshot: &snap}
}
