package coup

import "coup-lite/card"

type Player struct {
	ID    string
	Name  string
	Chair uint16
	Bot   bool

	coins int

	// hand holds live influence; revealed holds dead cards face up.
	hand     card.CardList
	revealed card.CardList
	alive    bool

	claims map[card.Role]int
}

func (p *Player) ChairID() uint16 { return p.Chair }
func (p *Player) IsBot() bool     { return p.Bot }

func (p *Player) Coins() int  { return p.coins }
func (p *Player) Alive() bool { return p.alive }

// LiveCount is the number of unrevealed influence cards.
func (p *Player) LiveCount() int { return p.hand.Count() }

func (p *Player) Hand() card.CardList     { return p.hand.Clone() }
func (p *Player) Revealed() card.CardList { return p.revealed.Clone() }

func (p *Player) Claims(r card.Role) int { return p.claims[r] }

func (p *Player) resetForGame(coins int) {
	p.coins = coins
	p.hand = make(card.CardList, 0, 4)
	p.revealed = make(card.CardList, 0, 2)
	p.alive = true
	p.claims = make(map[card.Role]int, len(card.Roles))
}

func (p *Player) holds(r card.Role) bool { return p.hand.IndexOf(r) >= 0 }

func (p *Player) addCoins(n int) { p.coins += n }

// takeCoins removes up to n coins and returns how many were taken.
func (p *Player) takeCoins(n int) int {
	if n > p.coins {
		n = p.coins
	}
	p.coins -= n
	return n
}

func (p *Player) recordClaim(r card.Role) {
	if r == card.RoleNone {
		return
	}
	p.claims[r]++
}

// loseCard moves hand[i] to the revealed pile and reports whether it was the last one.
func (p *Player) loseCard(i int) (card.Card, bool) {
	c, ok := p.hand.RemoveAt(i)
	if !ok {
		violate("player %s has no card at %d", p.ID, i)
	}
	c.Dead = true
	p.revealed.Add(c)
	return c, p.hand.Count() == 0
}

type PlayerNode struct {
	Player  *Player
	ChairID uint16
	Next    *PlayerNode
}

func (n *PlayerNode) getPlayer() *Player {
	if n == nil {
		return nil
	}
	return n.Player
}

// WalkOnce 遍历链表一圈（可从任意 start 开始），支持 break。
// fn 返回 true 表示“找到/停止”，false 表示继续。
func (n *PlayerNode) WalkOnce(fn func(*PlayerNode) bool) *PlayerNode {
	if n == nil {
		return nil
	}
	cur := n
	for {
		if fn(cur) {
			return cur
		}
		cur = cur.Next
		if cur == nil || cur == n {
			break
		}
	}
	return nil
}

// WalkAll 遍历一圈，不中断
func (n *PlayerNode) WalkAll(fn func(cur *PlayerNode)) {
	n.WalkOnce(func(cur *PlayerNode) bool {
		fn(cur)
		return false
	})
}

// nextAlive returns the first alive seat strictly after n.
func (n *PlayerNode) nextAlive() *PlayerNode {
	if n == nil {
		return nil
	}
	found := n.Next.WalkOnce(func(cur *PlayerNode) bool {
		return cur.Player.alive
	})
	return found
}

// othersAfter lists alive players in seat order starting after n, excluding n.
func (n *PlayerNode) othersAfter(skip func(*Player) bool) []string {
	if n == nil {
		return nil
	}
	var out []string
	n.Next.WalkOnce(func(cur *PlayerNode) bool {
		if cur == n {
			return true
		}
		p := cur.Player
		if p.alive && (skip == nil || !skip(p)) {
			out = append(out, p.ID)
		}
		return false
	})
	return out
}
