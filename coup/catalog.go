package coup

import (
	"strings"

	"coup-lite/card"
)

// ActionSpec is one row of the action catalog.
type ActionSpec struct {
	Type           ActionType
	Name           string
	Cost           int
	RequiresTarget bool
	// ClaimedRole is RoleNone for actions anyone may take.
	ClaimedRole    card.Role
	BlockableBy    []card.Role
	Bluffable      bool
	AnyoneMayBlock bool
}

// Blockable reports whether some role may block the action.
func (s ActionSpec) Blockable() bool { return len(s.BlockableBy) > 0 }

// CanBlockWith reports whether role r is a legal block claim against the action.
func (s ActionSpec) CanBlockWith(r card.Role) bool {
	for _, b := range s.BlockableBy {
		if b == r {
			return true
		}
	}
	return false
}

var catalog = map[ActionType]ActionSpec{
	ActionIncome: {
		Type: ActionIncome,
		Name: "Income",
	},
	ActionForeignAid: {
		Type:           ActionForeignAid,
		Name:           "Foreign Aid",
		BlockableBy:    []card.Role{card.RoleDuke},
		AnyoneMayBlock: true,
	},
	ActionCoup: {
		Type:           ActionCoup,
		Name:           "Coup",
		Cost:           7,
		RequiresTarget: true,
	},
	ActionTax: {
		Type:        ActionTax,
		Name:        "Tax",
		ClaimedRole: card.RoleDuke,
		Bluffable:   true,
	},
	ActionAssassinate: {
		Type:           ActionAssassinate,
		Name:           "Assassinate",
		Cost:           3,
		RequiresTarget: true,
		ClaimedRole:    card.RoleAssassin,
		BlockableBy:    []card.Role{card.RoleContessa},
		Bluffable:      true,
	},
	ActionSteal: {
		Type:           ActionSteal,
		Name:           "Steal",
		RequiresTarget: true,
		ClaimedRole:    card.RoleCaptain,
		BlockableBy:    []card.Role{card.RoleCaptain, card.RoleAmbassador},
		Bluffable:      true,
	},
	ActionExchange: {
		Type:        ActionExchange,
		Name:        "Exchange",
		ClaimedRole: card.RoleAmbassador,
		Bluffable:   true,
	},
}

// Actions lists every declarable action in catalog order.
var Actions = []ActionType{
	ActionIncome,
	ActionForeignAid,
	ActionCoup,
	ActionTax,
	ActionAssassinate,
	ActionSteal,
	ActionExchange,
}

// Lookup returns the catalog row for a. Unknown actions are a programming error.
func Lookup(a ActionType) ActionSpec {
	spec, ok := catalog[a]
	if !ok {
		violate("unknown action type %d", byte(a))
	}
	return spec
}

// ParseAction accepts wire names ("foreign_aid") and display names ("Foreign Aid").
func ParseAction(s string) (ActionType, bool) {
	s = strings.TrimSpace(s)
	for _, a := range Actions {
		if ActionTypeDictionary[a] == strings.ToLower(s) || strings.EqualFold(catalog[a].Name, s) {
			return a, true
		}
	}
	return ActionNone, false
}

// ActionForRole is the action a role legitimately performs, ActionNone for Contessa.
func ActionForRole(r card.Role) ActionType {
	for _, a := range Actions {
		if catalog[a].ClaimedRole == r && r != card.RoleNone {
			return a
		}
	}
	return ActionNone
}

// BlockedBy lists the actions role r may block.
func BlockedBy(r card.Role) []ActionType {
	var out []ActionType
	for _, a := range Actions {
		if catalog[a].CanBlockWith(r) {
			out = append(out, a)
		}
	}
	return out
}
