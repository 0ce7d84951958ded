package npc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"coup-lite/card"
	"coup-lite/coup"
)

// luaCallBudget bounds a single script call.
const luaCallBudget = 200 * time.Millisecond

// LuaBrain runs a bot policy written in Lua. The script defines any of
// choose_action(view), react(view), lose(view) and keep(view); a missing
// function, a runtime error or an illegal answer yields SafeDefault.
//
//	choose_action -> action name, target id
//	react         -> "pass" | "challenge" | "block", role name
//	lose          -> 1-based card index
//	keep          -> array of 1-based card indices
type LuaBrain struct {
	name string

	mu sync.Mutex
	L  *lua.LState
}

// NewLuaBrain compiles source into a fresh interpreter.
func NewLuaBrain(name, source string) (*LuaBrain, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	// base, table, string and math only
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua lib %s: %w", lib.name, err)
		}
	}
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("load bot script %s: %w", name, err)
	}
	return &LuaBrain{name: name, L: L}, nil
}

// NewLuaBrainFromFile loads a script from disk.
func NewLuaBrainFromFile(name, path string) (*LuaBrain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bot script: %w", err)
	}
	return NewLuaBrain(name, string(data))
}

func (b *LuaBrain) Name() string { return b.name }

// Close releases the interpreter.
func (b *LuaBrain) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.L != nil {
		b.L.Close()
		b.L = nil
	}
}

// Decide implements BrainDecider.
func (b *LuaBrain) Decide(view GameView) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	fallback := SafeDefault(view)
	if b.L == nil {
		return fallback
	}

	var (
		d   Decision
		err error
	)
	switch view.Prompt {
	case coup.PromptAction:
		d, err = b.callAction(view)
	case coup.PromptChallengeAction, coup.PromptChallengeBlock, coup.PromptBlock:
		d, err = b.callReact(view)
	case coup.PromptInfluenceLoss:
		d, err = b.callLose(view)
	case coup.PromptExchange:
		d, err = b.callKeep(view)
	default:
		return fallback
	}
	if err != nil {
		log.Printf("[NPC] lua bot %s: %v, using default", b.name, err)
		return fallback
	}
	if !IsLegal(view, d) {
		log.Printf("[NPC] lua bot %s answered illegally for %s, using default", b.name, view.Prompt)
		return fallback
	}
	return d
}

var errNoHook = errors.New("hook not defined")

// call invokes a global function with the view and returns nret values.
func (b *LuaBrain) call(fn string, view GameView, nret int) ([]lua.LValue, error) {
	L := b.L
	f := L.GetGlobal(fn)
	if f.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%s: %w", fn, errNoHook)
	}
	ctx, cancel := context.WithTimeout(context.Background(), luaCallBudget)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	top := L.GetTop()
	if err := L.CallByParam(lua.P{Fn: f, NRet: nret, Protect: true}, b.viewTable(view)); err != nil {
		L.SetTop(top)
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	out := make([]lua.LValue, nret)
	for i := 0; i < nret; i++ {
		out[i] = L.Get(top + 1 + i)
	}
	L.SetTop(top)
	return out, nil
}

func (b *LuaBrain) callAction(view GameView) (Decision, error) {
	ret, err := b.call("choose_action", view, 2)
	if err != nil {
		return Decision{}, err
	}
	a, ok := coup.ParseAction(lua.LVAsString(ret[0]))
	if !ok {
		return Decision{}, fmt.Errorf("choose_action: unknown action %q", lua.LVAsString(ret[0]))
	}
	d := Decision{Action: a}
	if ret[1] != lua.LNil {
		d.Target = lua.LVAsString(ret[1])
	}
	return d, nil
}

func (b *LuaBrain) callReact(view GameView) (Decision, error) {
	ret, err := b.call("react", view, 2)
	if err != nil {
		return Decision{}, err
	}
	var kind coup.ReactionKind
	if err := kind.UnmarshalText([]byte(lua.LVAsString(ret[0]))); err != nil {
		return Decision{}, fmt.Errorf("react: %w", err)
	}
	r := coup.Reaction{Kind: kind}
	if kind == coup.ReactionBlock {
		role, ok := card.ParseRole(lua.LVAsString(ret[1]))
		if !ok {
			return Decision{}, fmt.Errorf("react: unknown block role %q", lua.LVAsString(ret[1]))
		}
		r.Role = role
	}
	return Decision{Reaction: r}, nil
}

func (b *LuaBrain) callLose(view GameView) (Decision, error) {
	ret, err := b.call("lose", view, 1)
	if err != nil {
		return Decision{}, err
	}
	n, ok := ret[0].(lua.LNumber)
	if !ok {
		return Decision{}, fmt.Errorf("lose: expected a number, got %s", ret[0].Type())
	}
	return Decision{CardIndex: int(n) - 1}, nil
}

func (b *LuaBrain) callKeep(view GameView) (Decision, error) {
	ret, err := b.call("keep", view, 1)
	if err != nil {
		return Decision{}, err
	}
	tbl, ok := ret[0].(*lua.LTable)
	if !ok {
		return Decision{}, fmt.Errorf("keep: expected a table, got %s", ret[0].Type())
	}
	var keep []int
	for i := 1; i <= tbl.Len(); i++ {
		n, ok := tbl.RawGetInt(i).(lua.LNumber)
		if !ok {
			return Decision{}, fmt.Errorf("keep: entry %d is not a number", i)
		}
		keep = append(keep, int(n)-1)
	}
	return Decision{Keep: keep}, nil
}

// viewTable converts the view into a plain Lua table.
func (b *LuaBrain) viewTable(view GameView) *lua.LTable {
	L := b.L
	t := L.NewTable()
	t.RawSetString("self", lua.LString(view.Self))
	t.RawSetString("prompt", lua.LString(view.Prompt.String()))
	t.RawSetString("coins", lua.LNumber(view.Coins))
	t.RawSetString("copies", lua.LNumber(view.CopiesPerRole))
	t.RawSetString("forced_coup", lua.LNumber(view.ForcedCoupCoins))
	t.RawSetString("hand", roleArray(L, view.Hand))

	players := L.NewTable()
	for _, p := range view.Players {
		pt := L.NewTable()
		pt.RawSetString("id", lua.LString(p.ID))
		pt.RawSetString("name", lua.LString(p.Name))
		pt.RawSetString("coins", lua.LNumber(p.Coins))
		pt.RawSetString("live", lua.LNumber(p.LiveCount))
		pt.RawSetString("alive", lua.LBool(p.Alive))
		pt.RawSetString("revealed", roleArray(L, p.Revealed))
		claims := L.NewTable()
		for r, n := range p.Claims {
			claims.RawSetString(r.String(), lua.LNumber(n))
		}
		pt.RawSetString("claims", claims)
		players.Append(pt)
	}
	t.RawSetString("players", players)

	legal := L.NewTable()
	for _, o := range view.Legal {
		ot := L.NewTable()
		ot.RawSetString("action", lua.LString(coup.ActionTypeDictionary[o.Action]))
		targets := L.NewTable()
		for _, id := range o.Targets {
			targets.Append(lua.LString(id))
		}
		ot.RawSetString("targets", targets)
		legal.Append(ot)
	}
	t.RawSetString("legal", legal)

	if pa := view.Pending; pa != nil {
		pt := L.NewTable()
		pt.RawSetString("phase", lua.LString(pa.Phase.String()))
		pt.RawSetString("actor", lua.LString(pa.Actor))
		pt.RawSetString("action", lua.LString(coup.ActionTypeDictionary[pa.Action]))
		pt.RawSetString("target", lua.LString(pa.Target))
		pt.RawSetString("claimed", lua.LString(roleName(pa.ClaimedRole)))
		pt.RawSetString("blocker", lua.LString(pa.Blocker))
		pt.RawSetString("block_role", lua.LString(roleName(pa.BlockRole)))
		pt.RawSetString("keep", lua.LNumber(pa.KeepCount))
		t.RawSetString("pending", pt)
	}
	return t
}

func roleArray(L *lua.LState, roles []card.Role) *lua.LTable {
	t := L.NewTable()
	for _, r := range roles {
		t.Append(lua.LString(r.String()))
	}
	return t
}

func roleName(r card.Role) string {
	if r == card.RoleNone {
		return ""
	}
	return r.String()
}
