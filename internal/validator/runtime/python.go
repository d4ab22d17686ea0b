package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debugoj/internal/validator/model"
	"debugoj/internal/validator/sandbox"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
)

var pythonCompileErrors = []string{"SyntaxError", "IndentationError", "TabError"}

// InterpreterAdapter runs Python in a sandboxed interpreter process.
type InterpreterAdapter struct {
	cfg    ProcessConfig
	boot   *Bootstrapper
	runner processRunner
	probe  func(ctx context.Context, binary string) (string, error)
}

func NewInterpreterAdapter(cfg ProcessConfig, engine sandbox.Engine, workRoot string, boot *Bootstrapper) *InterpreterAdapter {
	if cfg.Binary == "" {
		cfg.Binary = "python3"
	}
	env := append([]string{"PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1"}, cfg.Env...)
	return &InterpreterAdapter{
		cfg:    cfg,
		boot:   boot,
		runner: processRunner{engine: engine, workRoot: workRoot, limits: cfg.Limits, env: env},
		probe:  probeBinary,
	}
}

func (a *InterpreterAdapter) Substrate() model.Substrate { return model.SubstrateInterpreter }

func (a *InterpreterAdapter) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	start := time.Now()
	bin, err := acquire(ctx, a.boot, model.SubstrateInterpreter, func(ctx context.Context) (string, error) {
		return a.probe(ctx, a.cfg.Binary)
	})
	if err != nil {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("python runtime unavailable: %v", err)), start)
	}

	res, err := a.runner.run(ctx, "py", []sourceFile{{name: "main.py", body: req.SourceCode}}, []string{bin, "-I", "-B", "main.py"})
	if err != nil && !res.TimedOut {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return elapsed(model.Failed(a.Substrate(), model.ErrorTimeout, "execution cancelled: "+err.Error()), start)
		}
		logger.Warn(ctx, "python run failed", zap.Error(err))
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("python sandbox error: %v", err)), start)
	}
	return elapsed(classifyPython(res, a.cfg.Limits.WallTimeMs), start)
}

func classifyPython(res sandbox.RunResult, wallMs int64) model.ExecutionResult {
	out := model.ExecutionResult{Substrate: model.SubstrateInterpreter, RawOutput: res.Stdout}
	switch {
	case res.TimedOut:
		out.ErrorKind = model.ErrorTimeout
		out.Diagnostic = fmt.Sprintf("execution timed out after %dms", wallMs)
	case res.CPUExceeded:
		out.ErrorKind = model.ErrorTimeout
		out.Diagnostic = fmt.Sprintf("cpu time limit exceeded after %dms", res.TimeMs)
	case res.ExitCode != 0:
		diag := lastLine(res.Stderr)
		if diag == "" {
			diag = fmt.Sprintf("process exited with code %d", res.ExitCode)
		}
		out.ErrorKind = model.ErrorRuntime
		for _, prefix := range pythonCompileErrors {
			if strings.HasPrefix(diag, prefix) {
				out.ErrorKind = model.ErrorCompile
				break
			}
		}
		out.Diagnostic = diag
	default:
		out.Succeeded = true
		return out
	}
	out.RawOutput = joinOutput(res.Stdout, out.Diagnostic)
	return out
}
