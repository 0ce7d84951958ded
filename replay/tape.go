package replay

import (
	"fmt"
	"strings"

	"coup-lite/coup"
)

const winSuffix = "WINS THE GAME!"

func (t *Tape) Len() int { return len(t.Steps) }

// At returns the snapshot recorded at step k.
func (t *Tape) At(k int) (coup.Snapshot, error) {
	if k < 0 || k >= len(t.Steps) {
		return coup.Snapshot{}, &ReplayError{
			StepIndex: int32(k),
			Reason:    "step_out_of_range",
			Message:   fmt.Sprintf("step %d not in [0,%d)", k, len(t.Steps)),
		}
	}
	return t.Steps[k].Snapshot, nil
}

// Final returns the last snapshot, or false for an empty tape.
func (t *Tape) Final() (coup.Snapshot, bool) {
	if len(t.Steps) == 0 {
		return coup.Snapshot{}, false
	}
	return t.Steps[len(t.Steps)-1].Snapshot, true
}

// Texts returns the log lines in order.
func (t *Tape) Texts() []string {
	out := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		out = append(out, s.Text)
	}
	return out
}

// Winner is the id of the winner recorded on the final step.
func (t *Tape) Winner() string {
	if s, ok := t.Final(); ok {
		return s.Winner
	}
	return ""
}

// Verify checks that step k holds exactly log lines 0..k and that the win
// line, if any, is the last step.
func (t *Tape) Verify() error {
	for k, step := range t.Steps {
		if step.Index != k {
			return &ReplayError{
				StepIndex: int32(k),
				Reason:    "index_mismatch",
				Message:   fmt.Sprintf("step %d carries index %d", k, step.Index),
			}
		}
		log := step.Snapshot.Log
		if len(log) != k+1 {
			return &ReplayError{
				StepIndex: int32(k),
				Reason:    "log_length",
				Message:   fmt.Sprintf("snapshot holds %d log lines, want %d", len(log), k+1),
			}
		}
		for i := 0; i <= k; i++ {
			if log[i] != t.Steps[i].Text {
				return &ReplayError{
					StepIndex: int32(k),
					Reason:    "log_rewritten",
					Message:   fmt.Sprintf("line %d is %q, step %d recorded %q", i, log[i], i, t.Steps[i].Text),
				}
			}
		}
		if strings.HasSuffix(step.Text, winSuffix) && k != len(t.Steps)-1 {
			return &ReplayError{
				StepIndex: int32(k),
				Reason:    "win_not_final",
				Message:   "steps recorded after the win",
			}
		}
	}
	return nil
}
