package npc

import (
	"fmt"
	"strings"
)

// Difficulty selects a bot tier.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyNormal   Difficulty = "normal"
	DifficultyHard     Difficulty = "hard"
	DifficultyHardcore Difficulty = "hardcore"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyHardcore:
		return d, nil
	case "":
		return DifficultyNormal, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// ActionStyle is how a tier picks its turn action.
type ActionStyle string

const (
	StyleRandom     ActionStyle = "random"     // Income / Foreign Aid / Tax (+Assassinate)
	StyleHonest     ActionStyle = "honest"     // claims only roles actually held
	StyleAggressive ActionStyle = "aggressive" // claims real or bluffed roles
)

// DifficultyProfile holds the tunable parameters of a RuleBrain.
type DifficultyProfile struct {
	Style ActionStyle `json:"style"`
	// CoupAt is the coin count from which the bot always Coups (0 = only when forced).
	CoupAt int `json:"coupAt"`

	// Bluff rates for aggressive action choice.
	AssassinBluff float64 `json:"assassinBluff"`
	TaxBluff      float64 `json:"taxBluff"`
	StealBluff    float64 `json:"stealBluff"`

	// ChallengeThreshold: a random draw above it challenges (0.0–1.0).
	ChallengeThreshold float64 `json:"challengeThreshold"`
	// Deduce enables certain challenges from public card counts.
	Deduce bool `json:"deduce"`
	// DeduceNearly also challenges when all but one copy is accounted for.
	DeduceNearly bool `json:"deduceNearly"`
	// ChallengeOnOneDuke is the rate of challenging Tax while holding one Duke.
	ChallengeOnOneDuke float64 `json:"challengeOnOneDuke"`

	// Bluff-block rates when not holding an eligible role.
	BlockAssassinBluff   float64 `json:"blockAssassinBluff"`
	BlockStealBluff      float64 `json:"blockStealBluff"`
	BlockForeignAidBluff float64 `json:"blockForeignAidBluff"`

	// RandomCards makes influence loss and exchange picks random.
	RandomCards bool `json:"randomCards"`
}

var difficultyProfiles = map[Difficulty]DifficultyProfile{
	DifficultyEasy: {
		Style:              StyleRandom,
		ChallengeThreshold: 0.8,
		RandomCards:        true,
	},
	DifficultyNormal: {
		Style:              StyleHonest,
		CoupAt:             7,
		ChallengeThreshold: 0.8,
	},
	DifficultyHard: {
		Style:              StyleAggressive,
		CoupAt:             7,
		AssassinBluff:      0.6,
		TaxBluff:           0.7,
		StealBluff:         0.5,
		ChallengeThreshold: 0.6,
		Deduce:             true,
		ChallengeOnOneDuke: 0.5,
		BlockAssassinBluff: 0.8,
		BlockStealBluff:    0.5,
	},
	DifficultyHardcore: {
		Style:                StyleAggressive,
		CoupAt:               7,
		AssassinBluff:        0.7,
		TaxBluff:             0.6,
		StealBluff:           0.5,
		ChallengeThreshold:   0.4,
		Deduce:               true,
		DeduceNearly:         true,
		ChallengeOnOneDuke:   0.5,
		BlockAssassinBluff:   1.0,
		BlockStealBluff:      0.7,
		BlockForeignAidBluff: 0.5,
	},
}

// ProfileFor returns the built-in profile of a tier.
func ProfileFor(d Difficulty) DifficultyProfile {
	if p, ok := difficultyProfiles[d]; ok {
		return p
	}
	return difficultyProfiles[DifficultyNormal]
}

// BotProfile defines a named bot.
type BotProfile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Tagline    string     `json:"tagline"`
	Difficulty Difficulty `json:"difficulty"`
	// Overrides replaces the tier profile when set.
	Overrides *DifficultyProfile `json:"overrides,omitempty"`
	// Script selects a Lua policy instead of the rule brain.
	Script string `json:"script,omitempty"`
}

// Tuning is the effective profile for the bot.
func (p *BotProfile) Tuning() DifficultyProfile {
	if p.Overrides != nil {
		return *p.Overrides
	}
	return ProfileFor(p.Difficulty)
}
