package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coup-lite/apps/server/internal/auth"
	"coup-lite/apps/server/internal/ledger"
	"coup-lite/apps/server/internal/table"
	"coup-lite/codec"
	"coup-lite/coup"
	"coup-lite/coup/npc"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MatchName = "coup"

	// tickRate matches the 500ms turn-timer heartbeat of the websocket host.
	tickRate        = 2
	defaultIdleTTL  = 2 * time.Minute
	paramMaxPlayers = "maxPlayers"
	paramPasscode   = "passcode"
	metaPasscode    = "passcode"
)

// Op codes carry the envelope type; the message data is the JSON envelope.
const (
	OpAction int64 = iota + 1
	OpReaction
	OpSelection
	OpStateSync
	OpPlayerJoin
	OpPlayerLeave
	OpLobbyUpdate
	OpGameStart
	OpPrompt
	OpGameOver
	OpResyncRequest
	OpError
	OpStartGame
	OpAddBot
)

var opCodes = map[codec.MsgType]int64{
	codec.TypeAction:        OpAction,
	codec.TypeReaction:      OpReaction,
	codec.TypeSelection:     OpSelection,
	codec.TypeStateSync:     OpStateSync,
	codec.TypePlayerJoin:    OpPlayerJoin,
	codec.TypePlayerLeave:   OpPlayerLeave,
	codec.TypeLobbyUpdate:   OpLobbyUpdate,
	codec.TypeGameStart:     OpGameStart,
	codec.TypePrompt:        OpPrompt,
	codec.TypeGameOver:      OpGameOver,
	codec.TypeResyncRequest: OpResyncRequest,
	codec.TypeError:         OpError,
	codec.TypeStartGame:     OpStartGame,
	codec.TypeAddBot:        OpAddBot,
}

// OpCodeFor returns the op code of a message type, or 0.
func OpCodeFor(t codec.MsgType) int64 { return opCodes[t] }

// Deps are shared by every match the module creates.
type Deps struct {
	Ledger ledger.Service
	NPC    *npc.Manager
	Table  table.TableConfig
}

// MatchState holds the authoritative runtime state for one Nakama match.
type MatchState struct {
	core     *table.Core
	sessions *auth.Manager
	out      *presenceOutbox

	byUser   map[string]string // nakama user id -> player id
	tokens   map[string]string // nakama user id -> seat token
	passcode map[string]string // user id -> passcode from the join attempt
	label    string
	now      func() time.Time
	idleTTL  time.Duration
}

// presenceOutbox routes table frames to presences through the dispatcher of
// the callback currently running.
type presenceOutbox struct {
	dispatcher runtime.MatchDispatcher
	logger     runtime.Logger
	presences  map[string]runtime.Presence // player id -> presence
}

func (o *presenceOutbox) Send(playerID string, data []byte) {
	p := o.presences[playerID]
	if p == nil || o.dispatcher == nil {
		return
	}
	env, err := codec.Decode(data)
	if err != nil {
		return
	}
	if err := o.dispatcher.BroadcastMessage(OpCodeFor(env.Type), data, []runtime.Presence{p}, nil, true); err != nil && o.logger != nil {
		o.logger.Warn("send %s to %s failed: %v", env.Type, playerID, err)
	}
}

// NewMatch returns the factory registered with Nakama.
func NewMatch(deps Deps) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &matchHandler{deps: deps}, nil
	}
}

// InitModule registers the match handler.
func InitModule(deps Deps) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
		if err := initializer.RegisterMatch(MatchName, NewMatch(deps)); err != nil {
			return err
		}
		logger.Info("coup match handler registered.")
		return nil
	}
}

type matchHandler struct {
	deps Deps
}

func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	cfg := mh.deps.Table
	if cfg.Game.MaxPlayers == 0 {
		cfg.Game = coup.DefaultConfig()
	}
	if n, ok := intParam(params[paramMaxPlayers]); ok && n > 0 {
		cfg.Game.MaxPlayers = n
	}
	if pass, ok := params[paramPasscode].(string); ok && pass != "" {
		hash, err := auth.HashPasscode(pass)
		if err != nil {
			logger.Error("MatchInit: bad passcode: %v", err)
			return nil, 0, ""
		}
		cfg.PasscodeHash = hash
	}

	state := &MatchState{
		sessions: auth.NewManager(),
		out:      &presenceOutbox{logger: logger, presences: make(map[string]runtime.Presence)},
		byUser:   make(map[string]string),
		tokens:   make(map[string]string),
		passcode: make(map[string]string),
		now:      time.Now,
		idleTTL:  defaultIdleTTL,
	}
	id := fmt.Sprintf("nk-%d", time.Now().UnixNano())
	if matchID, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok && matchID != "" {
		id = matchID
	}
	core, err := table.NewCore(id, cfg, table.Deps{
		Ledger: mh.deps.Ledger,
		Auth:   state.sessions,
		NPC:    mh.deps.NPC,
	}, state.out)
	if err != nil {
		logger.Error("MatchInit: %v", err)
		return nil, 0, ""
	}
	state.core = core

	label, err := buildLabel(core)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.label = label
	return state, tickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	ms, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if _, seated := ms.byUser[presence.GetUserId()]; seated {
		return ms, true, ""
	}
	if ms.core.Game().Started() {
		return ms, false, coup.ErrGameInProgress.Error()
	}
	if ms.core.SeatCount() >= ms.core.Config().Game.MaxPlayers {
		return ms, false, table.ErrTableFull.Error()
	}
	pass := metadata[metaPasscode]
	if err := auth.CheckPasscode(ms.core.Config().PasscodeHash, pass); err != nil {
		return ms, false, err.Error()
	}
	ms.passcode[presence.GetUserId()] = pass
	return ms, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	ms.bind(dispatcher, logger)
	now := ms.now()

	for _, p := range presences {
		userID := p.GetUserId()
		req := table.JoinRequest{Name: p.GetUsername(), Passcode: ms.passcode[userID], Token: ms.tokens[userID]}
		delete(ms.passcode, userID)
		res, err := ms.core.Join(req, func(playerID string) {
			ms.out.presences[playerID] = p
		}, now)
		if err != nil {
			logger.Warn("MatchJoin: %s could not sit: %v", userID, err)
			continue
		}
		ms.byUser[userID] = res.PlayerID
		if res.Token != "" {
			ms.tokens[userID] = res.Token
		}
		logger.Info("MatchJoin: %s seated as %s at chair %d (resumed=%v)", userID, res.PlayerID, res.Chair, res.Resumed)
	}
	ms.refreshLabel(dispatcher, logger)
	return ms
}

func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	ms.bind(dispatcher, logger)
	now := ms.now()

	for _, p := range presences {
		userID := p.GetUserId()
		playerID, seated := ms.byUser[userID]
		if !seated {
			continue
		}
		delete(ms.out.presences, playerID)
		if err := ms.core.Disconnect(playerID, now); err != nil {
			logger.Warn("MatchLeave: %s: %v", playerID, err)
		}
		if ms.core.Player(playerID) == nil {
			// seat released before the match
			delete(ms.byUser, userID)
			delete(ms.tokens, userID)
		}
	}
	ms.refreshLabel(dispatcher, logger)
	return ms
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		return state
	}
	ms.bind(dispatcher, logger)
	now := ms.now()

	for _, msg := range messages {
		playerID, seated := ms.byUser[msg.GetUserId()]
		if !seated {
			continue
		}
		env, err := codec.Decode(msg.GetData())
		if err == nil && OpCodeFor(env.Type) != msg.GetOpCode() {
			err = fmt.Errorf("%w: op code %d does not match %s", codec.ErrBadEnvelope, msg.GetOpCode(), env.Type)
		}
		if err == nil {
			err = ms.core.Handle(playerID, env, now)
		}
		if err != nil {
			logger.Debug("MatchLoop: %s rejected: %v", playerID, err)
			ms.core.SendError(playerID, err)
		}
	}

	if err := ms.core.Tick(now); err != nil {
		logger.Warn("MatchLoop: timeout handler failed: %v", err)
	}
	ms.core.StepBots(now)
	ms.refreshLabel(dispatcher, logger)

	if since := ms.core.IdleSince(); !since.IsZero() && now.Sub(since) >= ms.idleTTL {
		logger.Info("MatchLoop: no humans connected for %s, terminating.", ms.idleTTL)
		return nil
	}
	return ms
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: grace %ds", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	ms, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	return ms, ms.label
}

func (ms *MatchState) bind(dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	ms.out.dispatcher = dispatcher
	ms.out.logger = logger
}

func (ms *MatchState) refreshLabel(dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(ms.core)
	if err != nil {
		logger.Error("updateLabel: %v", err)
		return
	}
	if label == ms.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("updateLabel: %v", err)
		return
	}
	ms.label = label
}

// buildLabel renders the listing label matchmakers filter on.
func buildLabel(core *table.Core) (string, error) {
	cfg := core.Config().Game
	open := cfg.MaxPlayers - core.SeatCount()
	if core.Game().Started() {
		open = 0
	}
	st, err := structpb.NewStruct(map[string]any{
		"game":       MatchName,
		"open":       open,
		"maxPlayers": cfg.MaxPlayers,
		"started":    core.Game().Started(),
		"finished":   core.Finished(),
		"private":    core.Private(),
	})
	if err != nil {
		return "", err
	}
	data, err := protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func intParam(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
