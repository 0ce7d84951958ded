package codec

import (
	"errors"
	"fmt"
)

var ErrProtocolDesync = errors.New("protocol desync")

// DesyncError reports a stateSync whose PrevSeq does not follow the seq the
// mirror last applied.
type DesyncError struct {
	Expected uint64
	Got      uint64
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%v: expected prevSeq %d, got %d", ErrProtocolDesync, e.Expected, e.Got)
}

func (e *DesyncError) Unwrap() error { return ErrProtocolDesync }

// CheckSequence decides whether a mirror at mirrorSeq may apply s.
// A PrevSeq of 0 is a full resync and always applies.
func CheckSequence(mirrorSeq uint64, s StateSyncPayload) error {
	if s.PrevSeq == 0 {
		return nil
	}
	if s.PrevSeq != mirrorSeq || s.Seq <= s.PrevSeq {
		return &DesyncError{Expected: mirrorSeq, Got: s.PrevSeq}
	}
	return nil
}
