package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPasscode = errors.New("invalid passcode")
	ErrWrongPasscode   = errors.New("wrong passcode")
)

// HashPasscode hashes a private room's passcode. An empty passcode means an
// open room and hashes to nil.
func HashPasscode(passcode string) ([]byte, error) {
	if passcode == "" {
		return nil, nil
	}
	if len(passcode) < 4 || len(passcode) > 72 {
		return nil, ErrInvalidPasscode
	}
	return bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
}

// CheckPasscode accepts anything for an open room.
func CheckPasscode(hash []byte, passcode string) error {
	if len(hash) == 0 {
		return nil
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(passcode)) != nil {
		return ErrWrongPasscode
	}
	return nil
}
