package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"debugoj/internal/validator/model"
	"debugoj/internal/validator/sandbox"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
)

// hostPrelude evaluates main.js in a fresh vm context with console.log and
// console.error captured into one buffer. The buffer is written even when the
// program throws; the error class goes to stderr for classification.
const hostPrelude = `'use strict';
const fs = require('fs');
const vm = require('vm');
const out = [];
const code = fs.readFileSync(process.argv[2], 'utf8');
const timeout = Number(process.argv[3]) || 2000;
const saved = { log: console.log, error: console.error };
const fmt = (args) => args.map((a) => (typeof a === 'string' ? a : require('util').inspect(a))).join(' ');
console.log = (...args) => { out.push(fmt(args)); };
console.error = (...args) => { out.push('Error: ' + fmt(args)); };
let failure = '';
try {
  const result = vm.runInNewContext(code, { console }, { timeout, filename: 'main.js' });
  if (result !== undefined) out.push(String(result));
} catch (e) {
  failure = (e && (e.code || e.name)) || 'Error';
  out.push('Error: ' + (e && e.message !== undefined ? e.message : String(e)));
} finally {
  console.log = saved.log;
  console.error = saved.error;
}
process.stdout.write(out.join('\n'));
if (failure) {
  process.stderr.write(failure);
  process.exitCode = 1;
}
`

// HostAdapter evaluates JavaScript on the host's node runtime.
type HostAdapter struct {
	cfg    ProcessConfig
	boot   *Bootstrapper
	runner processRunner
	probe  func(ctx context.Context, binary string) (string, error)
}

func NewHostAdapter(cfg ProcessConfig, engine sandbox.Engine, workRoot string, boot *Bootstrapper) *HostAdapter {
	if cfg.Binary == "" {
		cfg.Binary = "node"
	}
	return &HostAdapter{
		cfg:    cfg,
		boot:   boot,
		runner: processRunner{engine: engine, workRoot: workRoot, limits: cfg.Limits, env: append([]string{"NODE_DISABLE_COLORS=1"}, cfg.Env...)},
		probe:  probeBinary,
	}
}

func (a *HostAdapter) Substrate() model.Substrate { return model.SubstrateHost }

func (a *HostAdapter) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	start := time.Now()
	bin, err := acquire(ctx, a.boot, model.SubstrateHost, func(ctx context.Context) (string, error) {
		return a.probe(ctx, a.cfg.Binary)
	})
	if err != nil {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("javascript runtime unavailable: %v", err)), start)
	}

	scriptMs := a.cfg.Limits.WallTimeMs
	if scriptMs <= 0 {
		scriptMs = 2000
	}
	files := []sourceFile{
		{name: "prelude.js", body: hostPrelude},
		{name: "main.js", body: req.SourceCode},
	}
	argv := []string{bin, "--max-old-space-size=128", "prelude.js", "main.js", strconv.FormatInt(scriptMs, 10)}
	res, err := a.runner.run(ctx, "js", files, argv)
	if err != nil && !res.TimedOut {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return elapsed(model.Failed(a.Substrate(), model.ErrorTimeout, "execution cancelled: "+err.Error()), start)
		}
		logger.Warn(ctx, "node run failed", zap.Error(err))
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("javascript sandbox error: %v", err)), start)
	}
	return elapsed(classifyHost(res, scriptMs), start)
}

func classifyHost(res sandbox.RunResult, scriptMs int64) model.ExecutionResult {
	out := model.ExecutionResult{Substrate: model.SubstrateHost, RawOutput: res.Stdout}
	failure := strings.TrimSpace(res.Stderr)
	switch {
	case res.TimedOut || failure == "ERR_SCRIPT_EXECUTION_TIMEOUT":
		out.ErrorKind = model.ErrorTimeout
		out.Diagnostic = fmt.Sprintf("execution timed out after %dms", scriptMs)
		out.RawOutput = joinOutput(res.Stdout, "")
	case res.CPUExceeded:
		out.ErrorKind = model.ErrorTimeout
		out.Diagnostic = fmt.Sprintf("cpu time limit exceeded after %dms", res.TimeMs)
		out.RawOutput = joinOutput(res.Stdout, "")
	case res.ExitCode != 0:
		out.ErrorKind = model.ErrorRuntime
		if failure == "SyntaxError" {
			out.ErrorKind = model.ErrorCompile
		}
		out.Diagnostic = lastLine(res.Stdout)
		if out.Diagnostic == "" {
			out.Diagnostic = lastLine(res.Stderr)
		}
	default:
		out.Succeeded = true
	}
	return out
}
