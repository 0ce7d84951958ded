package coup

import (
	"fmt"

	"coup-lite/card"
)

type Config struct {
	// Table
	MaxPlayers int
	MinPlayers int

	// Deck / economy
	CopiesPerRole int
	StartingCoins int
	// ForcedCoupCoins makes Coup mandatory at or above this many coins (0 disables).
	ForcedCoupCoins int

	// Refund the Assassinate cost when the claim is challenged and caught.
	RefundOnCaughtAssassin bool

	// RNG seed (0 => time-based)
	Seed int64

	// Test and replay hooks.
	ForcedFirstChair *uint16
	// DeckOverride is the full deck, top first; it must match the configured composition.
	DeckOverride []card.Role
}

// DefaultConfig is the standard table: 2-6 players, 15 cards, 2 starting coins.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:             6,
		MinPlayers:             2,
		CopiesPerRole:          card.DefaultCopiesPerRole,
		StartingCoins:          2,
		ForcedCoupCoins:        10,
		RefundOnCaughtAssassin: true,
	}
}

func (c Config) validate() error {
	if c.MaxPlayers <= 0 {
		return fmt.Errorf("MaxPlayers must be > 0")
	}
	if c.MinPlayers < 2 {
		return fmt.Errorf("MinPlayers must be >= 2")
	}
	if c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("MinPlayers must be <= MaxPlayers")
	}
	if c.CopiesPerRole <= 0 {
		return fmt.Errorf("CopiesPerRole must be > 0")
	}
	if need, have := c.MaxPlayers*2, c.CopiesPerRole*len(card.Roles); need > have {
		return fmt.Errorf("deck too small: %d players need %d cards, deck has %d", c.MaxPlayers, need, have)
	}
	if c.StartingCoins < 0 {
		return fmt.Errorf("StartingCoins must be >= 0")
	}
	if c.ForcedCoupCoins < 0 {
		return fmt.Errorf("ForcedCoupCoins must be >= 0")
	}
	if c.ForcedCoupCoins > 0 && c.ForcedCoupCoins < catalog[ActionCoup].Cost {
		return fmt.Errorf("ForcedCoupCoins must be 0 or >= %d", catalog[ActionCoup].Cost)
	}
	if c.ForcedFirstChair != nil && int(*c.ForcedFirstChair) >= c.MaxPlayers {
		return fmt.Errorf("ForcedFirstChair %d out of range", *c.ForcedFirstChair)
	}
	if len(c.DeckOverride) > 0 {
		if len(c.DeckOverride) != c.CopiesPerRole*len(card.Roles) {
			return fmt.Errorf("DeckOverride must hold %d cards, got %d", c.CopiesPerRole*len(card.Roles), len(c.DeckOverride))
		}
		counts := make(map[card.Role]int, len(card.Roles))
		for _, r := range c.DeckOverride {
			if !r.Valid() {
				return fmt.Errorf("DeckOverride has invalid role %d", byte(r))
			}
			counts[r]++
		}
		for _, r := range card.Roles {
			if counts[r] != c.CopiesPerRole {
				return fmt.Errorf("DeckOverride has %d %s, want %d", counts[r], r, c.CopiesPerRole)
			}
		}
	}
	return nil
}
