package card

// NewDeck builds copies of every role, grouped by role.
func NewDeck(copies int) CardList {
	deck := make(CardList, 0, copies*len(Roles))
	for _, r := range Roles {
		for i := 0; i < copies; i++ {
			deck = append(deck, Card{Role: r})
		}
	}
	return deck
}

// FromRoles turns a role list into live cards.
func FromRoles(roles []Role) CardList {
	out := make(CardList, 0, len(roles))
	for _, r := range roles {
		out = append(out, Card{Role: r})
	}
	return out
}

func RoleNames(rs []Role) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.String())
	}
	return out
}
