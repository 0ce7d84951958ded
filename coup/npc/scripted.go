package npc

import "sync"

// ScriptedBrain replays queued decisions in order and falls back to
// SafeDefault once the queue is empty.
type ScriptedBrain struct {
	name string

	mu    sync.Mutex
	queue []Decision
	seen  []GameView
}

func NewScriptedBrain(name string, decisions ...Decision) *ScriptedBrain {
	return &ScriptedBrain{name: name, queue: decisions}
}

func (b *ScriptedBrain) Name() string { return b.name }

func (b *ScriptedBrain) Push(d ...Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, d...)
}

func (b *ScriptedBrain) Decide(view GameView) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, view)
	if len(b.queue) == 0 {
		return SafeDefault(view)
	}
	d := b.queue[0]
	b.queue = b.queue[1:]
	return d
}

// Views returns every view the brain was asked about.
func (b *ScriptedBrain) Views() []GameView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]GameView(nil), b.seen...)
}
