package replay

import (
	"fmt"

	"coup-lite/coup"
)

type ReplayError struct {
	StepIndex int32          `json:"step_index"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// ExpectedState is what the engine was waiting on when an input failed.
type ExpectedState struct {
	Prompt       coup.PromptKind     `json:"prompt"`
	PlayerID     string              `json:"player_id,omitempty"`
	LegalActions []coup.ActionOption `json:"legal_actions,omitempty"`
	Phase        string              `json:"phase,omitempty"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}
