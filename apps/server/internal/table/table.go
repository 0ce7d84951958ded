package table

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"coup-lite/codec"
	"coup-lite/coup"
	"coup-lite/coup/npc"
	"coup-lite/replay"
)

// Sink is one peer connection. The table keeps the latest sink per seat.
type Sink interface {
	Send(data []byte)
}

// Table runs a Core inside an actor goroutine.
type Table struct {
	ID string

	mu       sync.RWMutex
	core     *Core
	sinks    map[string]Sink // playerID -> connection
	closed   bool
	stopOnce sync.Once

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	tickInterval time.Duration
}

// Event types for the actor message queue
type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventStart
	EventAddBot
	EventInput
	EventBotDecision
	EventResync
	EventConnLost
	EventClose
)

// Event represents a message to the table actor
type Event struct {
	Type     EventType
	PlayerID string
	ReqID    string
	Join     JoinRequest
	Sink     Sink
	Input    replay.Input
	Profile  string
	Job      BotJob
	Decision npc.Decision

	// JoinResult is filled for EventJoin.
	JoinResult *JoinResult

	Timestamp time.Time
	Response  chan error
}

// Options tune the actor. Zero values use defaults.
type Options struct {
	TickInterval time.Duration
}

// New creates a table and starts its actor goroutine.
func New(id string, cfg TableConfig, deps Deps, opts Options) (*Table, error) {
	t := &Table{
		ID:           id,
		sinks:        make(map[string]Sink),
		events:       make(chan Event, 256),
		done:         make(chan struct{}),
		tickInterval: opts.TickInterval,
	}
	if t.tickInterval <= 0 {
		t.tickInterval = 500 * time.Millisecond
	}
	core, err := NewCore(id, cfg, deps, t)
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", id, err)
	}
	t.core = core

	go t.run()

	log.Printf("[Table %s] Created (max=%d, private=%v)", id, core.Config().Game.MaxPlayers, core.Private())
	return t, nil
}

// Send implements Outbox. Called from the actor with t.mu held.
func (t *Table) Send(playerID string, data []byte) {
	if sink := t.sinks[playerID]; sink != nil {
		sink.Send(data)
	}
}

// run is the main actor loop
func (t *Table) run() {
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-t.events:
			err := t.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.done:
			log.Printf("[Table %s] Actor stopped", t.ID)
			return
		}
	}
}

// handleEvent processes a single event
func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed && e.Type != EventClose {
		return ErrTableClosed
	}
	now := e.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	var err error
	switch e.Type {
	case EventJoin:
		var res JoinResult
		res, err = t.core.Join(e.Join, func(playerID string) {
			if e.Sink != nil {
				t.sinks[playerID] = e.Sink
			}
		}, now)
		if err == nil && e.JoinResult != nil {
			*e.JoinResult = res
		}
	case EventLeave:
		err = t.core.Leave(e.PlayerID, now)
		if t.core.Player(e.PlayerID) == nil {
			delete(t.sinks, e.PlayerID)
		}
	case EventStart:
		err = t.core.Start(e.PlayerID, now)
	case EventAddBot:
		_, err = t.core.AddBot(e.PlayerID, e.Profile, now)
	case EventInput:
		err = t.core.Input(e.PlayerID, e.ReqID, e.Input, now)
	case EventBotDecision:
		err = t.core.ApplyBot(e.Job, e.Decision, now)
	case EventResync:
		err = t.core.Resync(e.PlayerID)
	case EventConnLost:
		// a resumed seat already has a newer sink
		if e.Sink != nil && t.sinks[e.PlayerID] != e.Sink {
			return nil
		}
		delete(t.sinks, e.PlayerID)
		err = t.core.Disconnect(e.PlayerID, now)
	case EventClose:
		t.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
	t.dispatchBotsLocked(now)
	return err
}

func (t *Table) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	now := time.Now()
	if err := t.core.Tick(now); err != nil {
		log.Printf("[Table %s] timeout handler failed: %v", t.ID, err)
	}
	t.dispatchBotsLocked(now)
}

// dispatchBotsLocked runs a due bot's brain off the actor goroutine and
// feeds the decision back as an event.
func (t *Table) dispatchBotsLocked(now time.Time) {
	mgr := t.core.deps.NPC
	if mgr == nil {
		return
	}
	job, ok := t.core.DueBot(now)
	if !ok {
		return
	}
	go func() {
		d := mgr.Decide(job.PlayerID, job.Snapshot, job.Prompt, job.Legal, job.Config)
		if err := t.SubmitEvent(Event{Type: EventBotDecision, PlayerID: job.PlayerID, Job: job, Decision: d}); err != nil && !errors.Is(err, ErrTableClosed) {
			log.Printf("[Table %s] bot %s decision failed: %v", t.ID, job.PlayerID, err)
		}
	}()
}

// SubmitEvent sends an event to the actor and waits for it to be handled.
func (t *Table) SubmitEvent(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

func (t *Table) Join(req JoinRequest, sink Sink) (JoinResult, error) {
	var res JoinResult
	err := t.SubmitEvent(Event{Type: EventJoin, Join: req, Sink: sink, JoinResult: &res})
	return res, err
}

func (t *Table) Leave(playerID string) error {
	return t.SubmitEvent(Event{Type: EventLeave, PlayerID: playerID})
}

// ConnLost reports that sink dropped. It is ignored when the seat has since
// been resumed on another connection.
func (t *Table) ConnLost(playerID string, sink Sink) error {
	return t.SubmitEvent(Event{Type: EventConnLost, PlayerID: playerID, Sink: sink})
}

func (t *Table) Start(playerID string) error {
	return t.SubmitEvent(Event{Type: EventStart, PlayerID: playerID})
}

func (t *Table) AddBot(playerID, profile string) error {
	return t.SubmitEvent(Event{Type: EventAddBot, PlayerID: playerID, Profile: profile})
}

func (t *Table) Input(playerID, reqID string, in replay.Input) error {
	return t.SubmitEvent(Event{Type: EventInput, PlayerID: playerID, ReqID: reqID, Input: in})
}

func (t *Table) Resync(playerID string) error {
	return t.SubmitEvent(Event{Type: EventResync, PlayerID: playerID})
}

// SendError reports err to one peer without going through the actor queue.
func (t *Table) SendError(sink Sink, err error) {
	if sink == nil {
		return
	}
	data, encErr := codec.Encode(codec.TypeError, 0, codec.ErrorFor(err))
	if encErr != nil {
		return
	}
	sink.Send(data)
}

// Stop shuts down the table actor
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	t.closed = true
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

// IsIdleFor reports whether no human has been online for ttl.
func (t *Table) IsIdleFor(ttl time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return true
	}
	since := t.core.IdleSince()
	if since.IsZero() {
		return false
	}
	return time.Since(since) >= ttl
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Info is the public lobby listing of the room.
func (t *Table) Info() codec.LobbyUpdatePayload {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.core.LobbyInfo()
}

func (t *Table) Private() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.core.Private()
}

// Snapshot returns the unmasked game state.
func (t *Table) Snapshot() coup.Snapshot {
	return t.core.Game().Snapshot()
}

// AddGameOverHook registers a callback run after a match is persisted.
func (t *Table) AddGameOverHook(hook GameOverHook) {
	t.mu.Lock()
	t.core.AddGameOverHook(hook)
	t.mu.Unlock()
}
