package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debugoj/internal/validator/model"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// LuaConfig configures the embedded Lua VM.
type LuaConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Timeout        time.Duration `yaml:"timeout"`
	CallStackSize  int           `yaml:"callStackSize"`
	RegistrySize   int           `yaml:"registrySize"`
	MaxOutputBytes int           `yaml:"maxOutputBytes"`
}

// luaPrelude strips everything that reaches outside the VM.
const luaPrelude = `
os.execute, os.exit, os.remove, os.rename, os.getenv, os.tmpname = nil, nil, nil, nil, nil, nil
io.popen, io.open, io.lines, io.input, io.output = nil, nil, nil, nil, nil
dofile, loadfile, require, module = nil, nil, nil, nil
package = nil
`

var luaLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.IoLibName, lua.OpenIo},
	{lua.OsLibName, lua.OpenOs},
}

// EmbeddedAdapter runs Lua in-process on a fresh gopher-lua state per call.
type EmbeddedAdapter struct {
	cfg  LuaConfig
	boot *Bootstrapper
}

func NewEmbeddedAdapter(cfg LuaConfig, boot *Bootstrapper) *EmbeddedAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = 64 << 10
	}
	return &EmbeddedAdapter{cfg: cfg, boot: boot}
}

func (a *EmbeddedAdapter) Substrate() model.Substrate { return model.SubstrateEmbedded }

func (a *EmbeddedAdapter) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	start := time.Now()
	prelude, err := acquire(ctx, a.boot, model.SubstrateEmbedded, compileLuaPrelude)
	if err != nil {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("lua runtime unavailable: %v", err)), start)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: a.cfg.CallStackSize,
		RegistrySize:  a.cfg.RegistrySize,
	})
	defer L.Close()
	if err := openLuaLibs(L, prelude); err != nil {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("lua sandbox setup: %v", err)), start)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	L.SetContext(runCtx)

	buf := &cappedBuffer{max: a.cfg.MaxOutputBytes}
	runErr := runLua(L, buf, req.SourceCode)

	res := model.ExecutionResult{Substrate: a.Substrate(), RawOutput: buf.String()}
	switch {
	case runErr == nil:
		res.Succeeded = true
	case runCtx.Err() != nil:
		res.ErrorKind = model.ErrorTimeout
		res.Diagnostic = fmt.Sprintf("execution timed out after %s", a.cfg.Timeout)
		res.RawOutput = joinOutput(res.RawOutput, "")
	default:
		res.ErrorKind = model.ErrorRuntime
		var apiErr *lua.ApiError
		if errors.As(runErr, &apiErr) && apiErr.Type == lua.ApiErrorSyntax {
			res.ErrorKind = model.ErrorCompile
		}
		res.Diagnostic = firstLine(runErr.Error())
		res.RawOutput = joinOutput(res.RawOutput, res.Diagnostic)
	}
	return elapsed(res, start)
}

// runLua executes code with print and io.write redirected into buf.
func runLua(L *lua.LState, buf *cappedBuffer, code string) error {
	restore := captureLuaOutput(L, buf)
	defer restore()
	return L.DoString(code)
}

func compileLuaPrelude(context.Context) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(luaPrelude), "prelude")
	if err != nil {
		return nil, fmt.Errorf("parse prelude: %w", err)
	}
	proto, err := lua.Compile(chunk, "prelude")
	if err != nil {
		return nil, fmt.Errorf("compile prelude: %w", err)
	}
	return proto, nil
}

func openLuaLibs(L *lua.LState, prelude *lua.FunctionProto) error {
	for _, lib := range luaLibs {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open %s: %w", lib.name, err)
		}
	}
	L.Push(L.NewFunctionFromProto(prelude))
	return L.PCall(0, 0, nil)
}

// captureLuaOutput redirects print and io.write into buf. The returned func
// puts the original functions back.
func captureLuaOutput(L *lua.LState, buf *cappedBuffer) func() {
	origPrint := L.GetGlobal("print")
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		for i := 1; i <= top; i++ {
			if i > 1 {
				buf.WriteString("\t")
			}
			buf.WriteString(L.ToStringMeta(L.Get(i)).String())
		}
		buf.WriteString("\n")
		return 0
	}))

	ioTable, _ := L.GetGlobal("io").(*lua.LTable)
	var origWrite lua.LValue = lua.LNil
	if ioTable != nil {
		origWrite = L.GetField(ioTable, "write")
		L.SetField(ioTable, "write", L.NewFunction(func(L *lua.LState) int {
			top := L.GetTop()
			for i := 1; i <= top; i++ {
				buf.WriteString(lua.LVAsString(L.Get(i)))
			}
			return 0
		}))
	}

	return func() {
		L.SetGlobal("print", origPrint)
		if ioTable != nil {
			L.SetField(ioTable, "write", origWrite)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// cappedBuffer drops writes past max bytes.
type cappedBuffer struct {
	sb  strings.Builder
	max int
}

func (b *cappedBuffer) WriteString(s string) {
	room := b.max - b.sb.Len()
	if room <= 0 {
		return
	}
	if len(s) > room {
		s = s[:room]
	}
	b.sb.WriteString(s)
}

func (b *cappedBuffer) String() string { return b.sb.String() }
