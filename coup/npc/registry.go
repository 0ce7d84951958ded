package npc

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ProfileRegistry holds all bot profile definitions.
type ProfileRegistry struct {
	mu       sync.RWMutex
	profiles map[string]*BotProfile
}

// NewRegistry creates a registry seeded with one profile per difficulty.
func NewRegistry() *ProfileRegistry {
	r := &ProfileRegistry{
		profiles: make(map[string]*BotProfile),
	}
	for _, d := range []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyHardcore} {
		r.profiles[string(d)] = &BotProfile{ID: string(d), Name: "Bot (" + string(d) + ")", Difficulty: d}
	}
	return r
}

// LoadFromFile loads bot profiles from a JSON file.
func (r *ProfileRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profiles file: %w", err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON loads bot profiles from raw JSON bytes.
func (r *ProfileRegistry) LoadFromJSON(data []byte) error {
	var list []*BotProfile
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse profiles JSON: %w", err)
	}
	for _, p := range list {
		if p.ID == "" {
			continue
		}
		d, err := ParseDifficulty(string(p.Difficulty))
		if err != nil {
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
		p.Difficulty = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range list {
		if p.ID == "" {
			continue
		}
		r.profiles[p.ID] = p
	}
	return nil
}

// Get returns a profile by ID.
func (r *ProfileRegistry) Get(id string) *BotProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[id]
}

// All returns every profile sorted by ID.
func (r *ProfileRegistry) All() []*BotProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*BotProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByDifficulty returns all profiles of the given tier.
func (r *ProfileRegistry) ByDifficulty(d Difficulty) []*BotProfile {
	var out []*BotProfile
	for _, p := range r.All() {
		if p.Difficulty == d {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the total number of registered profiles.
func (r *ProfileRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
