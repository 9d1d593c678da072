package theme

import (
	"context"
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// LuaFunction is the global a preference script must define. It receives a
// table {current, background, dark, candidates} and returns a theme URL or
// a bare style name.
const LuaFunction = "preferred_theme"

// LuaPreference computes the preferred theme with a user script and falls
// back to another Preference when the script fails or returns nothing.
type LuaPreference struct {
	path     string
	fallback Preference
	logger   *slog.Logger
}

// NewLuaPreference creates a scripted preference.
func NewLuaPreference(path string, fallback Preference, logger *slog.Logger) *LuaPreference {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LuaPreference{path: path, fallback: fallback, logger: logger}
}

// Preferred implements Preference. A fresh Lua state is used per call since
// calls may come from several background workers at once.
func (p *LuaPreference) Preferred(ctx context.Context, pc Context) (string, error) {
	name, err := p.run(ctx, pc)
	if err != nil {
		p.logger.Warn("theme script failed", "path", p.path, "error", err)
	}
	if name != "" {
		if _, ok := ParseURL(name); !ok {
			name = StyleURL(name)
		}
		return name, nil
	}
	if p.fallback != nil {
		return p.fallback.Preferred(ctx, pc)
	}
	if err != nil {
		return "", err
	}
	return "", ErrNoPreference
}

func (p *LuaPreference) run(ctx context.Context, pc Context) (string, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetContext(ctx)

	if err := L.DoFile(p.path); err != nil {
		return "", fmt.Errorf("loading %s: %w", p.path, err)
	}

	fn := L.GetGlobal(LuaFunction)
	if fn.Type() != lua.LTFunction {
		return "", fmt.Errorf("%s does not define %s", p.path, LuaFunction)
	}

	arg := L.NewTable()
	arg.RawSetString("current", lua.LString(pc.Current))
	arg.RawSetString("background", lua.LString(pc.Background.Hex()))
	l, _, _ := pc.Background.Lab()
	arg.RawSetString("dark", lua.LBool(l < darkLuminance))
	candidates := L.NewTable()
	for _, c := range pc.Candidates {
		candidates.Append(lua.LString(c))
	}
	arg.RawSetString("candidates", candidates)

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
		return "", fmt.Errorf("calling %s: %w", LuaFunction, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	if ret.Type() != lua.LTString {
		return "", nil
	}
	return ret.String(), nil
}
