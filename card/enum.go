package card

// Role 角色牌
type Role byte

const (
	RoleNone Role = iota
	RoleDuke
	RoleAssassin
	RoleCaptain
	RoleAmbassador
	RoleContessa
)

// Roles lists every playable role in deck order.
var Roles = []Role{RoleDuke, RoleAssassin, RoleCaptain, RoleAmbassador, RoleContessa}

var RoleDictionary = map[Role]string{
	RoleNone:       "None",
	RoleDuke:       "Duke",
	RoleAssassin:   "Assassin",
	RoleCaptain:    "Captain",
	RoleAmbassador: "Ambassador",
	RoleContessa:   "Contessa",
}

// DefaultCopiesPerRole is the number of copies of each role in a standard deck.
const DefaultCopiesPerRole = 3
