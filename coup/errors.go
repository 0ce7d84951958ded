package coup

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAction    = errors.New("invalid action")
	ErrInvalidReaction  = errors.New("invalid reaction")
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrStaleReaction is returned for a reaction from a player who no longer
	// owes one in the open window. Hosts treat it as a no-op.
	ErrStaleReaction = fmt.Errorf("%w: stale or duplicate", ErrInvalidReaction)

	ErrGameOver       = errors.New("game is over")
	ErrGameInProgress = errors.New("game in progress")
	ErrNotStarted     = errors.New("game not started")
)

func invalidAction(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAction, fmt.Sprintf(format, args...))
}

func invalidReaction(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidReaction, fmt.Sprintf(format, args...))
}

func invalidSelection(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelection, fmt.Sprintf(format, args...))
}

// InvariantViolation is the panic value for engine states that correct
// integration can never reach.
type InvariantViolation string

func (e InvariantViolation) Error() string { return "engine invariant violated: " + string(e) }

func violate(format string, args ...any) {
	panic(InvariantViolation(fmt.Sprintf(format, args...)))
}
