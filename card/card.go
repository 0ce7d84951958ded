package card

import (
	"fmt"
	"strings"
)

func (r Role) String() string {
	if name, ok := RoleDictionary[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", byte(r))
}

// Valid reports whether r is one of the five playable roles.
func (r Role) Valid() bool {
	return r >= RoleDuke && r <= RoleContessa
}

// ParseRole accepts display names case-insensitively ("duke", "Duke").
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(RoleDictionary[r], s) {
			return r, true
		}
	}
	return RoleNone, false
}

func (r Role) MarshalText() ([]byte, error) {
	if r == RoleNone {
		return []byte(""), nil
	}
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", byte(r))
	}
	return []byte(RoleDictionary[r]), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RoleNone
		return nil
	}
	parsed, ok := ParseRole(string(b))
	if !ok {
		return fmt.Errorf("unknown role %q", string(b))
	}
	*r = parsed
	return nil
}

// Card is one influence card. A card is never destroyed: on death it is
// flagged Dead and moved to its owner's revealed pile.
type Card struct {
	Role Role `json:"role"`
	Dead bool `json:"dead"`
}

func (c Card) String() string {
	if c.Dead {
		return c.Role.String() + "(dead)"
	}
	return c.Role.String()
}

// Hidden is the face-down placeholder sent to viewers who may not see a card.
var Hidden = Card{Role: RoleNone}
