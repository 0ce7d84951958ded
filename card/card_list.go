package card

import "math/rand"

type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

// Count 获取总牌数
func (ds CardList) Count() int {
	return len(ds)
}

// Shuffle uses the caller's rng so seeded games stay reproducible.
func (ds CardList) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(ds), func(i, j int) {
		ds[i], ds[j] = ds[j], ds[i]
	})
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

func (ds *CardList) PopCards(size int) ([]Card, bool) {
	if size < 0 || size > ds.Count() {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards, true
}

// RemoveAt takes the card at index i out of the list, keeping order.
func (ds *CardList) RemoveAt(i int) (Card, bool) {
	if i < 0 || i >= ds.Count() {
		return Card{}, false
	}
	c := (*ds)[i]
	*ds = append((*ds)[:i:i], (*ds)[i+1:]...)
	return c, true
}

func (ds CardList) IndexOf(r Role) int {
	for i, c := range ds {
		if c.Role == r {
			return i
		}
	}
	return -1
}

func (ds CardList) CountRole(r Role) int {
	n := 0
	for _, c := range ds {
		if c.Role == r {
			n++
		}
	}
	return n
}

func (ds CardList) Roles() []Role {
	out := make([]Role, 0, len(ds))
	for _, c := range ds {
		out = append(out, c.Role)
	}
	return out
}

func (ds CardList) Clone() CardList {
	if ds == nil {
		return nil
	}
	out := make(CardList, len(ds))
	copy(out, ds)
	return out
}
