package npc

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"coup-lite/coup"
)

// NPCInstance represents an active bot seated at a table.
type NPCInstance struct {
	PlayerID   string
	Chair      uint16
	Profile    *BotProfile
	Brain      BrainDecider
	ThinkDelay time.Duration
}

// Manager manages bot lifecycle and decision-making at tables.
type Manager struct {
	registry  *ProfileRegistry
	instances map[string]*NPCInstance // keyed by PlayerID
	mu        sync.RWMutex
	rng       *rand.Rand
	nextID    uint64
}

// NewManager creates a bot manager. seed 0 uses the clock.
func NewManager(registry *ProfileRegistry, seed int64) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		registry:  registry,
		instances: make(map[string]*NPCInstance),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Registry returns the underlying ProfileRegistry.
func (m *Manager) Registry() *ProfileRegistry {
	return m.registry
}

// SpawnNPC creates and seats a bot. A nil profile uses the normal tier.
func (m *Manager) SpawnNPC(game *coup.Game, chair uint16, profile *BotProfile) (*NPCInstance, error) {
	if profile == nil {
		profile = m.registry.Get(string(DifficultyNormal))
	}
	m.mu.Lock()
	m.nextID++
	n := m.nextID
	playerID := fmt.Sprintf("bot-%d", n)
	seed := m.rng.Int63()
	jitterMs := m.rng.Intn(1000)
	m.mu.Unlock()

	var brain BrainDecider
	if profile.Script != "" {
		lb, err := NewLuaBrainFromFile(profile.Name, profile.Script)
		if err != nil {
			return nil, fmt.Errorf("spawn NPC %s: %w", profile.Name, err)
		}
		brain = lb
	} else {
		brain = NewRuleBrain(profile, seed)
	}

	name := fmt.Sprintf("%s %d", profile.Name, n)
	if err := game.SitDown(chair, playerID, name, true); err != nil {
		if lb, ok := brain.(*LuaBrain); ok {
			lb.Close()
		}
		return nil, fmt.Errorf("spawn NPC %s at chair %d: %w", profile.Name, chair, err)
	}

	inst := &NPCInstance{
		PlayerID:   playerID,
		Chair:      chair,
		Profile:    profile,
		Brain:      brain,
		ThinkDelay: time.Duration(800+jitterMs) * time.Millisecond,
	}
	m.mu.Lock()
	m.instances[playerID] = inst
	m.mu.Unlock()

	log.Printf("[NPC] Spawned %s (ID=%s, %s) at chair %d", name, playerID, profile.Difficulty, chair)
	return inst, nil
}

// Attach registers an externally built brain for an already seated player.
func (m *Manager) Attach(playerID string, chair uint16, brain BrainDecider) *NPCInstance {
	inst := &NPCInstance{
		PlayerID: playerID,
		Chair:    chair,
		Profile:  &BotProfile{ID: brain.Name(), Name: brain.Name()},
		Brain:    brain,
	}
	m.mu.Lock()
	m.instances[playerID] = inst
	m.mu.Unlock()
	return inst
}

// Decide asks the bot's brain for a decision on the open prompt. An illegal
// answer is replaced with SafeDefault.
func (m *Manager) Decide(playerID string, snap coup.Snapshot, prompt coup.Prompt, legal []coup.ActionOption, cfg coup.Config) Decision {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()

	view := BuildView(playerID, snap, prompt, legal, cfg)
	if inst == nil {
		log.Printf("[NPC] Decide called for unknown player %s", playerID)
		return SafeDefault(view)
	}

	d := inst.Brain.Decide(view)
	if !IsLegal(view, d) {
		log.Printf("[NPC] %s answered illegally for %s, using default", inst.Brain.Name(), prompt.Kind)
		return SafeDefault(view)
	}
	log.Printf("[NPC] %s decides on %s: %s", inst.Brain.Name(), prompt.Kind, describe(prompt.Kind, d))
	return d
}

func describe(kind coup.PromptKind, d Decision) string {
	switch kind {
	case coup.PromptAction:
		if d.Target != "" {
			return d.Action.String() + " -> " + d.Target
		}
		return d.Action.String()
	case coup.PromptInfluenceLoss:
		return fmt.Sprintf("card %d", d.CardIndex)
	case coup.PromptExchange:
		return fmt.Sprintf("keep %v", d.Keep)
	default:
		return d.Reaction.String()
	}
}

// GetInstance returns the bot instance for a given playerID, or nil.
func (m *Manager) GetInstance(playerID string) *NPCInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID]
}

// IsNPC checks if a playerID belongs to a bot.
func (m *Manager) IsNPC(playerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID] != nil
}

// DespawnNPC removes a bot from tracking.
func (m *Manager) DespawnNPC(playerID string) {
	m.mu.Lock()
	inst := m.instances[playerID]
	delete(m.instances, playerID)
	m.mu.Unlock()

	if inst == nil {
		return
	}
	if lb, ok := inst.Brain.(*LuaBrain); ok {
		lb.Close()
	}
	log.Printf("[NPC] Despawned %s (ID=%s)", inst.Profile.Name, playerID)
}

// GetThinkDelay returns the simulated thinking delay for a bot.
func (m *Manager) GetThinkDelay(playerID string) time.Duration {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()
	if inst == nil {
		return time.Second
	}
	return inst.ThinkDelay
}
