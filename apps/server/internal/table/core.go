package table

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"coup-lite/apps/server/internal/auth"
	"coup-lite/apps/server/internal/ledger"
	"coup-lite/codec"
	"coup-lite/coup"
	"coup-lite/coup/npc"
	"coup-lite/replay"

	"github.com/google/uuid"
)

var (
	ErrTableClosed   = errors.New("table closed")
	ErrTableFull     = errors.New("table full")
	ErrNotHost       = errors.New("only the host may do that")
	ErrNotSeated     = errors.New("player not seated")
	ErrStaleRequest  = errors.New("request no longer open")
	ErrNoBotsManager = errors.New("bots not available")
)

// Outbox delivers encoded envelopes to one seat.
type Outbox interface {
	Send(playerID string, data []byte)
}

// TableConfig contains room settings.
type TableConfig struct {
	Game            coup.Config
	ActionTimeout   time.Duration
	ReactionTimeout time.Duration
	// BotThinkMin/Max override the npc manager's think delay when Max > 0.
	BotThinkMin  time.Duration
	BotThinkMax  time.Duration
	PasscodeHash []byte
}

func (c TableConfig) withDefaults() TableConfig {
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 30 * time.Second
	}
	if c.ReactionTimeout <= 0 {
		c.ReactionTimeout = 15 * time.Second
	}
	if c.Game.Seed == 0 {
		c.Game.Seed = time.Now().UnixNano()
	}
	return c
}

// Deps are the services a table reaches out to. Any of them may be nil.
type Deps struct {
	Ledger ledger.Service
	Auth   auth.Service
	NPC    *npc.Manager
}

// PlayerConn represents a seat and its connection state.
type PlayerConn struct {
	PlayerID string
	Name     string
	Chair    uint16
	Bot      bool
	Online   bool
	LastSeen time.Time

	lastSync uint64 // seq of the last stateSync this seat received
	logSent  int    // log lines already delivered
}

// JoinRequest is a playerJoin from a peer.
type JoinRequest struct {
	Name     string
	Passcode string
	Token    string
}

type JoinResult struct {
	PlayerID string
	Chair    uint16
	Token    string
	Resumed  bool
}

// BotJob is a prompt owed by a bot whose think delay has passed.
type BotJob struct {
	PlayerID string
	ReqID    string
	Snapshot coup.Snapshot
	Prompt   coup.Prompt
	Legal    []coup.ActionOption
	Config   coup.Config
}

// GameOverInfo is emitted once a match has a winner.
type GameOverInfo struct {
	Room    string
	MatchID string
	Winner  string
	Tape    *replay.Tape
	Script  replay.Script
}

type GameOverHook func(info GameOverInfo)

type openPrompt struct {
	prompt   coup.Prompt
	reqID    string
	deadline time.Time
	botDue   time.Time
	botSent  bool
}

// Core is the host state machine for one room. It is not goroutine-safe:
// the actor loop or the Nakama match loop serializes every call.
type Core struct {
	ID  string
	cfg TableConfig

	game    *coup.Game
	deps    Deps
	out     Outbox
	rng     *rand.Rand
	players map[string]*PlayerConn
	seats   map[uint16]string
	hostID  string

	matchID  string
	recorder *replay.Recorder
	finished bool

	serverSeq uint64
	syncSeq   uint64
	open      openPrompt

	emptySince    time.Time
	gameOverHooks []GameOverHook
}

func NewCore(id string, cfg TableConfig, deps Deps, out Outbox) (*Core, error) {
	cfg = cfg.withDefaults()
	game, err := coup.NewGame(cfg.Game)
	if err != nil {
		return nil, err
	}
	return &Core{
		ID:         id,
		cfg:        cfg,
		game:       game,
		deps:       deps,
		out:        out,
		rng:        rand.New(rand.NewSource(cfg.Game.Seed)),
		players:    make(map[string]*PlayerConn),
		seats:      make(map[uint16]string),
		emptySince: time.Now(),
	}, nil
}

func (c *Core) Game() *coup.Game   { return c.game }
func (c *Core) MatchID() string    { return c.matchID }
func (c *Core) HostID() string     { return c.hostID }
func (c *Core) Finished() bool     { return c.finished }
func (c *Core) Private() bool      { return len(c.cfg.PasscodeHash) > 0 }
func (c *Core) Config() TableConfig { return c.cfg }

func (c *Core) Player(id string) *PlayerConn { return c.players[id] }

// SeatCount counts occupied chairs, bots included.
func (c *Core) SeatCount() int { return len(c.seats) }

func (c *Core) AddGameOverHook(h GameOverHook) {
	if h != nil {
		c.gameOverHooks = append(c.gameOverHooks, h)
	}
}

// Join seats a new player before the match, or resumes a seat by token at any
// time. attach is called with the player id before anything is sent to it.
func (c *Core) Join(req JoinRequest, attach func(playerID string), now time.Time) (JoinResult, error) {
	if res, ok := c.resume(req.Token, attach, now); ok {
		return res, nil
	}
	if c.game.Started() {
		return JoinResult{}, coup.ErrGameInProgress
	}
	if err := auth.CheckPasscode(c.cfg.PasscodeHash, req.Passcode); err != nil {
		return JoinResult{}, err
	}
	chair, ok := c.freeChair()
	if !ok {
		return JoinResult{}, ErrTableFull
	}

	playerID := "p-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	name := normalizeName(req.Name, chair)
	if err := c.game.SitDown(chair, playerID, name, false); err != nil {
		return JoinResult{}, err
	}
	c.players[playerID] = &PlayerConn{
		PlayerID: playerID,
		Name:     name,
		Chair:    chair,
		Online:   true,
		LastSeen: now,
	}
	c.seats[chair] = playerID
	if c.hostID == "" {
		c.hostID = playerID
	}
	c.emptySince = time.Time{}

	res := JoinResult{PlayerID: playerID, Chair: chair}
	if c.deps.Auth != nil {
		res.Token = c.deps.Auth.IssueSeat(c.ID, playerID, name)
	}
	if attach != nil {
		attach(playerID)
	}
	log.Printf("[Table %s] Player %s (%s) sat down at chair %d", c.ID, playerID, name, chair)

	c.send(playerID, codec.TypePlayerJoin, codec.PlayerJoinPayload{
		Room: c.ID, Name: name, PlayerID: playerID, Chair: chair, Token: res.Token,
	})
	c.broadcastLobby()
	return res, nil
}

func (c *Core) resume(token string, attach func(string), now time.Time) (JoinResult, bool) {
	if token == "" || c.deps.Auth == nil {
		return JoinResult{}, false
	}
	seat, ok := c.deps.Auth.ResolveSeat(token)
	if !ok || seat.Room != c.ID {
		return JoinResult{}, false
	}
	pc := c.players[seat.PlayerID]
	if pc == nil || pc.Bot {
		return JoinResult{}, false
	}
	pc.Online = true
	pc.LastSeen = now
	pc.lastSync = 0
	pc.logSent = 0
	c.emptySince = time.Time{}
	if attach != nil {
		attach(pc.PlayerID)
	}
	log.Printf("[Table %s] Player %s resumed chair %d", c.ID, pc.PlayerID, pc.Chair)

	c.send(pc.PlayerID, codec.TypePlayerJoin, codec.PlayerJoinPayload{
		Room: c.ID, Name: pc.Name, PlayerID: pc.PlayerID, Chair: pc.Chair, Token: token, Resumed: true,
	})
	c.broadcastLobby()
	if c.game.Started() {
		c.sendSync(pc)
		if c.open.prompt.PlayerID == pc.PlayerID {
			c.sendPrompt()
		}
	}
	return JoinResult{PlayerID: pc.PlayerID, Chair: pc.Chair, Token: token, Resumed: true}, true
}

// Leave frees the seat before the match. Once it started the seat stays and
// only goes offline.
func (c *Core) Leave(playerID string, now time.Time) error {
	pc := c.players[playerID]
	if pc == nil {
		return nil
	}
	if c.game.Started() {
		return c.Disconnect(playerID, now)
	}
	if err := c.game.StandUp(pc.Chair); err != nil {
		return err
	}
	delete(c.seats, pc.Chair)
	delete(c.players, playerID)
	if pc.Bot && c.deps.NPC != nil {
		c.deps.NPC.DespawnNPC(playerID)
	}
	if c.hostID == playerID {
		c.hostID = c.nextHost()
	}
	c.markEmptyIfIdle(now)
	log.Printf("[Table %s] Player %s left chair %d", c.ID, playerID, pc.Chair)

	c.broadcast(codec.TypePlayerLeave, codec.PlayerLeavePayload{PlayerID: playerID, Reason: "left"})
	c.broadcastLobby()
	return nil
}

// Disconnect marks a seat offline. Before the match that frees the seat.
func (c *Core) Disconnect(playerID string, now time.Time) error {
	pc := c.players[playerID]
	if pc == nil || pc.Bot {
		return nil
	}
	if !c.game.Started() {
		return c.Leave(playerID, now)
	}
	if !pc.Online {
		return nil
	}
	pc.Online = false
	pc.LastSeen = now
	c.markEmptyIfIdle(now)
	log.Printf("[Table %s] Player %s connection lost", c.ID, playerID)

	c.broadcast(codec.TypePlayerLeave, codec.PlayerLeavePayload{PlayerID: playerID, Reason: "disconnected"})
	c.broadcastLobby()
	return nil
}

// AddBot seats a bot from the registry. The host only, before the match.
func (c *Core) AddBot(requester, profileID string, now time.Time) (string, error) {
	if requester != c.hostID {
		return "", ErrNotHost
	}
	if c.deps.NPC == nil {
		return "", ErrNoBotsManager
	}
	if c.game.Started() {
		return "", coup.ErrGameInProgress
	}
	chair, ok := c.freeChair()
	if !ok {
		return "", ErrTableFull
	}
	var profile *npc.BotProfile
	if profileID != "" {
		profile = c.deps.NPC.Registry().Get(profileID)
		if profile == nil {
			return "", fmt.Errorf("unknown bot profile %q", profileID)
		}
	}
	inst, err := c.deps.NPC.SpawnNPC(c.game, chair, profile)
	if err != nil {
		return "", err
	}
	name := inst.PlayerID
	if p := c.game.Player(inst.PlayerID); p != nil {
		name = p.Name
	}
	c.players[inst.PlayerID] = &PlayerConn{
		PlayerID: inst.PlayerID,
		Name:     name,
		Chair:    chair,
		Bot:      true,
		Online:   true,
		LastSeen: now,
	}
	c.seats[chair] = inst.PlayerID
	log.Printf("[Table %s] Bot %s seated at chair %d", c.ID, name, chair)
	c.broadcastLobby()
	return inst.PlayerID, nil
}

// Start begins the match. The host only.
func (c *Core) Start(requester string, now time.Time) error {
	if requester != c.hostID {
		return ErrNotHost
	}
	if err := c.game.Start(); err != nil {
		return err
	}
	c.matchID = uuid.NewString()
	snap := c.game.Snapshot()
	seats := make([]replay.SeatSpec, 0, len(snap.Players))
	for _, ps := range snap.Players {
		seats = append(seats, replay.SeatSpec{Chair: ps.Chair, ID: ps.ID, Name: ps.Name, Bot: ps.Bot})
	}
	c.recorder = replay.NewRecorder(c.matchID, c.game.Config(), seats)
	log.Printf("[Table %s] Match %s started with %d players, %s first", c.ID, c.matchID, len(seats), snap.CurrentPlayer)

	c.broadcast(codec.TypeGameStart, codec.GameStartPayload{
		MatchID:     c.matchID,
		Seats:       c.seatInfos(),
		FirstPlayer: snap.CurrentPlayer,
	})
	c.broadcastLobby()
	c.afterChange(now)
	return nil
}

// Input applies one decision from playerID. reqID, when set, must name the
// prompt that is open now.
func (c *Core) Input(playerID, reqID string, in replay.Input, now time.Time) error {
	if c.players[playerID] == nil {
		return ErrNotSeated
	}
	if !c.game.Started() {
		return coup.ErrNotStarted
	}
	if c.finished {
		return coup.ErrGameOver
	}
	if reqID != "" && reqID != c.open.reqID {
		if in.Kind == replay.InputReaction {
			return fmt.Errorf("%w: request %s closed", coup.ErrStaleReaction, reqID)
		}
		return ErrStaleRequest
	}
	in.Player = playerID
	if err := replay.Apply(c.game, in); err != nil {
		return err
	}
	c.recorder.Record(in)
	c.afterChange(now)
	return nil
}

// Handle applies an envelope from a seated peer. Joining is not an envelope
// the core handles: hosts call Join with their own transport binding.
func (c *Core) Handle(playerID string, env codec.Envelope, now time.Time) error {
	switch env.Type {
	case codec.TypeStartGame:
		return c.Start(playerID, now)
	case codec.TypeAddBot:
		var p codec.AddBotPayload
		if len(env.Payload) > 0 {
			if err := env.Into(&p); err != nil {
				return err
			}
		}
		_, err := c.AddBot(playerID, p.Profile, now)
		return err
	case codec.TypeResyncRequest:
		return c.Resync(playerID)
	case codec.TypePlayerLeave:
		return c.Leave(playerID, now)
	}
	if !codec.IsInput(env.Type) {
		return fmt.Errorf("%w: unexpected %s from peer", codec.ErrBadEnvelope, env.Type)
	}
	reqID, in, err := codec.ToInput(env)
	if err != nil {
		return err
	}
	return c.Input(playerID, reqID, in, now)
}

// StepBots runs due bot brains inline, for hosts that already tick on their
// own loop.
func (c *Core) StepBots(now time.Time) {
	if c.deps.NPC == nil {
		return
	}
	for {
		job, ok := c.DueBot(now)
		if !ok {
			return
		}
		d := c.deps.NPC.Decide(job.PlayerID, job.Snapshot, job.Prompt, job.Legal, job.Config)
		if err := c.ApplyBot(job, d, now); err != nil {
			log.Printf("[Table %s] bot %s: %v", c.ID, job.PlayerID, err)
			return
		}
	}
}

// DueBot hands out the open prompt when a bot owes it and its think delay
// has passed. Each prompt is handed out once.
func (c *Core) DueBot(now time.Time) (BotJob, bool) {
	o := &c.open
	if o.reqID == "" || o.botDue.IsZero() || o.botSent || now.Before(o.botDue) {
		return BotJob{}, false
	}
	o.botSent = true
	id := o.prompt.PlayerID
	return BotJob{
		PlayerID: id,
		ReqID:    o.reqID,
		Snapshot: c.game.Snapshot().ForViewer(id),
		Prompt:   o.prompt,
		Legal:    c.game.LegalActions(id),
		Config:   c.game.Config(),
	}, true
}

// ApplyBot feeds a bot decision back. A decision for a prompt that already
// closed is dropped.
func (c *Core) ApplyBot(job BotJob, d npc.Decision, now time.Time) error {
	if job.ReqID != c.open.reqID {
		return nil
	}
	err := c.Input(job.PlayerID, job.ReqID, inputFor(job.Prompt, d), now)
	if err == nil {
		return nil
	}
	log.Printf("[Table %s] Bot %s decision rejected (%v), using default", c.ID, job.PlayerID, err)
	view := npc.BuildView(job.PlayerID, job.Snapshot, job.Prompt, job.Legal, job.Config)
	return c.Input(job.PlayerID, job.ReqID, inputFor(job.Prompt, npc.SafeDefault(view)), now)
}

// Tick enforces the prompt deadline. An expired prompt gets the safe default.
func (c *Core) Tick(now time.Time) error {
	o := c.open
	if o.reqID == "" || o.deadline.IsZero() || now.Before(o.deadline) {
		return nil
	}
	id := o.prompt.PlayerID
	snap := c.game.Snapshot().ForViewer(id)
	view := npc.BuildView(id, snap, o.prompt, c.game.LegalActions(id), c.game.Config())
	d := npc.SafeDefault(view)
	log.Printf("[Table %s] Prompt %s for %s timed out, auto %s", c.ID, o.prompt.Kind, id, describeDefault(o.prompt.Kind, d))
	return c.Input(id, o.reqID, inputFor(o.prompt, d), now)
}

// Resync sends a full stateSync that mirrors accept unconditionally.
func (c *Core) Resync(playerID string) error {
	pc := c.players[playerID]
	if pc == nil {
		return ErrNotSeated
	}
	if !c.game.Started() {
		c.broadcastLobby()
		return nil
	}
	pc.lastSync = 0
	pc.logSent = 0
	c.sendSync(pc)
	if c.open.prompt.PlayerID == playerID {
		c.sendPrompt()
	}
	return nil
}

// SendError reports a rejected input to the erring peer only.
func (c *Core) SendError(playerID string, err error) {
	c.send(playerID, codec.TypeError, codec.ErrorFor(err))
}

// IdleSince is when the last human went offline, or zero while anyone is on.
func (c *Core) IdleSince() time.Time { return c.emptySince }

func (c *Core) afterChange(now time.Time) {
	c.broadcastSync()
	if c.game.Ended() {
		c.finish(now)
		return
	}
	c.refreshPrompt(now)
}

func (c *Core) refreshPrompt(now time.Time) {
	pr := c.game.Prompt()
	if pr.Kind == coup.PromptNone {
		c.open = openPrompt{}
		return
	}
	if c.open.reqID != "" && pr == c.open.prompt {
		return
	}
	c.open = openPrompt{
		prompt: pr,
		reqID:  uuid.NewString(),
	}
	if pr.Kind.IsReaction() {
		c.open.deadline = now.Add(c.cfg.ReactionTimeout)
	} else {
		c.open.deadline = now.Add(c.cfg.ActionTimeout)
	}
	if pc := c.players[pr.PlayerID]; pc != nil && pc.Bot {
		c.open.botDue = now.Add(c.thinkDelay(pr.PlayerID))
	}
	c.sendPrompt()
}

func (c *Core) thinkDelay(playerID string) time.Duration {
	if c.cfg.BotThinkMax > 0 {
		span := c.cfg.BotThinkMax - c.cfg.BotThinkMin
		if span <= 0 {
			return c.cfg.BotThinkMin
		}
		return c.cfg.BotThinkMin + time.Duration(c.rng.Int63n(int64(span)))
	}
	if c.deps.NPC != nil {
		return c.deps.NPC.GetThinkDelay(playerID)
	}
	return time.Second
}

func (c *Core) finish(now time.Time) {
	if c.finished {
		return
	}
	c.finished = true
	c.open = openPrompt{}
	winner := c.game.Winner()
	winnerName := winner
	if p := c.game.Player(winner); p != nil {
		winnerName = p.Name
	}
	log.Printf("[Table %s] Match %s over, winner %s", c.ID, c.matchID, winnerName)

	tape := replay.FromGame(c.matchID, c.cfg.Game.Seed, c.game)
	script := c.recorder.Script()
	c.persist(now, tape, script)

	c.broadcast(codec.TypeGameOver, codec.GameOverPayload{MatchID: c.matchID, Winner: winner, WinnerName: winnerName})
	info := GameOverInfo{Room: c.ID, MatchID: c.matchID, Winner: winner, Tape: tape, Script: script}
	for _, hook := range c.gameOverHooks {
		go func(cb GameOverHook) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Table %s] game over hook panic: %v", c.ID, r)
				}
			}()
			cb(info)
		}(hook)
	}
}

func (c *Core) persist(now time.Time, tape *replay.Tape, script replay.Script) {
	if c.deps.Ledger == nil {
		return
	}
	rec, err := ledger.BuildRecord(c.ID, now, tape, script)
	if err != nil {
		log.Printf("[Table %s] build history for %s failed: %v", c.ID, c.matchID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.deps.Ledger.SaveMatch(ctx, rec); err != nil {
		log.Printf("[Table %s] save history for %s failed: %v", c.ID, c.matchID, err)
	}
}

// --- outbound ---

func (c *Core) nextSeq() uint64 {
	c.serverSeq++
	return c.serverSeq
}

func (c *Core) send(playerID string, t codec.MsgType, payload any) {
	pc := c.players[playerID]
	if c.out == nil || pc == nil || pc.Bot {
		return
	}
	data, err := codec.Encode(t, c.nextSeq(), payload)
	if err != nil {
		log.Printf("[Table %s] encode %s failed: %v", c.ID, t, err)
		return
	}
	c.out.Send(playerID, data)
}

func (c *Core) broadcast(t codec.MsgType, payload any) {
	for _, id := range c.humanIDs() {
		if c.players[id].Online {
			c.send(id, t, payload)
		}
	}
}

func (c *Core) broadcastLobby() {
	c.broadcast(codec.TypeLobbyUpdate, c.LobbyInfo())
}

// LobbyInfo is the room's seat list.
func (c *Core) LobbyInfo() codec.LobbyUpdatePayload {
	return codec.LobbyUpdatePayload{
		Room:       c.ID,
		HostID:     c.hostID,
		MaxPlayers: c.cfg.Game.MaxPlayers,
		MinPlayers: c.cfg.Game.MinPlayers,
		Seats:      c.seatInfos(),
		Started:    c.game.Started(),
	}
}

func (c *Core) broadcastSync() {
	c.syncSeq++
	for _, id := range c.humanIDs() {
		if pc := c.players[id]; pc.Online {
			c.sendSyncAt(pc, c.syncSeq)
		}
	}
}

// sendSync delivers the current state to one seat as the newest seq.
func (c *Core) sendSync(pc *PlayerConn) {
	if c.syncSeq == 0 {
		c.syncSeq = 1
	}
	c.sendSyncAt(pc, c.syncSeq)
}

func (c *Core) sendSyncAt(pc *PlayerConn, seq uint64) {
	snap := c.game.Snapshot().ForViewer(pc.PlayerID)
	from := pc.logSent
	if from > len(snap.Log) {
		from = 0
	}
	prev := pc.lastSync
	if prev >= seq {
		prev = 0
	}
	logLen := len(snap.Log)
	payload := codec.StateSyncPayload{
		MatchID: c.matchID,
		Seq:     seq,
		PrevSeq: prev,
		LogFrom: from,
		NewLog:  append([]string(nil), snap.Log[from:]...),
	}
	// the log travels as a delta in NewLog
	snap.Log = nil
	payload.Snapshot = snap
	c.send(pc.PlayerID, codec.TypeStateSync, payload)
	pc.lastSync = seq
	pc.logSent = logLen
}

func (c *Core) sendPrompt() {
	o := c.open
	pc := c.players[o.prompt.PlayerID]
	if o.reqID == "" || pc == nil || pc.Bot || !pc.Online {
		return
	}
	snap := c.game.Snapshot()
	payload := codec.BuildPrompt(o.reqID, o.prompt, snap, c.game.LegalActions(pc.PlayerID), o.deadline)
	c.send(pc.PlayerID, codec.TypePrompt, payload)
}

// --- helpers ---

func (c *Core) freeChair() (uint16, bool) {
	for chair := uint16(0); chair < uint16(c.cfg.Game.MaxPlayers); chair++ {
		if _, taken := c.seats[chair]; !taken {
			return chair, true
		}
	}
	return coup.InvalidChair, false
}

func (c *Core) humanIDs() []string {
	ids := make([]string, 0, len(c.players))
	for id, pc := range c.players {
		if !pc.Bot {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return c.players[ids[i]].Chair < c.players[ids[j]].Chair })
	return ids
}

func (c *Core) nextHost() string {
	if ids := c.humanIDs(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func (c *Core) markEmptyIfIdle(now time.Time) {
	for _, pc := range c.players {
		if !pc.Bot && pc.Online {
			return
		}
	}
	if c.emptySince.IsZero() {
		c.emptySince = now
	}
}

func (c *Core) seatInfos() []codec.SeatInfo {
	chairs := make([]int, 0, len(c.seats))
	for chair := range c.seats {
		chairs = append(chairs, int(chair))
	}
	sort.Ints(chairs)
	out := make([]codec.SeatInfo, 0, len(chairs))
	for _, chair := range chairs {
		pc := c.players[c.seats[uint16(chair)]]
		out = append(out, codec.SeatInfo{
			Chair:    pc.Chair,
			PlayerID: pc.PlayerID,
			Name:     pc.Name,
			Bot:      pc.Bot,
			Online:   pc.Online,
		})
	}
	return out
}

func normalizeName(raw string, chair uint16) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fmt.Sprintf("Player %d", chair+1)
	}
	if len(name) > 24 {
		name = name[:24]
	}
	return name
}

// inputFor turns a decision on prompt pr into an engine input.
func inputFor(pr coup.Prompt, d npc.Decision) replay.Input {
	in := replay.Input{Player: pr.PlayerID}
	switch pr.Kind {
	case coup.PromptAction:
		in.Kind = replay.InputAction
		in.Action = coup.ActionTypeDictionary[d.Action]
		in.Target = d.Target
	case coup.PromptInfluenceLoss:
		in.Kind = replay.InputLose
		in.Card = d.CardIndex
	case coup.PromptExchange:
		in.Kind = replay.InputKeep
		in.Keep = append([]int(nil), d.Keep...)
	default:
		in.Kind = replay.InputReaction
		in.Reaction = d.Reaction.Kind.String()
		if d.Reaction.Kind == coup.ReactionBlock {
			in.Role = d.Reaction.Role.String()
		}
	}
	return in
}

func describeDefault(kind coup.PromptKind, d npc.Decision) string {
	switch kind {
	case coup.PromptAction:
		return d.Action.String()
	case coup.PromptInfluenceLoss:
		return fmt.Sprintf("card %d", d.CardIndex)
	case coup.PromptExchange:
		return fmt.Sprintf("keep %v", d.Keep)
	default:
		return d.Reaction.String()
	}
}
