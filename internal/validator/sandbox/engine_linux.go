//go:build linux

package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const defaultOutputKB = 64

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux process engine.
func NewEngine(cfg Config) (Engine, error) {
	if cfg.HelperPath != "" {
		if _, err := exec.LookPath(cfg.HelperPath); err != nil {
			return nil, fmt.Errorf("sandbox helper: %w", err)
		}
	}
	return &linuxEngine{cfg: cfg}, nil
}

func (e *linuxEngine) Run(ctx context.Context, runSpec RunSpec) (RunResult, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return RunResult{}, err
	}
	if runSpec.Limits.OutputKB <= 0 {
		runSpec.Limits.OutputKB = defaultOutputKB
	}

	cmd, cleanup, err := e.command(runSpec)
	if err != nil {
		return RunResult{}, err
	}
	defer cleanup()

	var helperStderr bytes.Buffer
	if e.cfg.HelperPath != "" {
		cmd.Stderr = &helperStderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{}, fmt.Errorf("start process: %w", err)
	}
	if e.cfg.HelperPath == "" {
		if err := applyRlimits(cmd.Process.Pid, runSpec.Limits); err != nil {
			logger.Warn(ctx, "apply rlimits failed", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		}
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if limit := durationFromMs(runSpec.Limits.WallTimeMs); limit > 0 {
			t := time.NewTimer(limit)
			defer t.Stop()
			wallTimer = t.C
		}
		select {
		case <-ctx.Done():
			killProcessGroup(cmd.Process.Pid)
		case <-wallTimer:
			timedOut.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	if waitErr != nil && helperStderr.Len() > 0 {
		logger.Warn(ctx, "sandbox helper failed", zap.String("stderr", helperStderr.String()))
	}

	maxBytes := runSpec.Limits.OutputKB * 1024
	stdout, outTrunc := readLimitedFile(runSpec.StdoutPath, maxBytes)
	stderr, errTrunc := readLimitedFile(runSpec.StderrPath, maxBytes)
	res := RunResult{
		ExitCode:   exitCode(waitErr, cmd.ProcessState),
		TimeMs:     cpuTimeMs(cmd.ProcessState),
		WallTimeMs: time.Since(start).Milliseconds(),
		Stdout:     stdout,
		Stderr:     stderr,
		TimedOut:   timedOut.Load(),
		Truncated:  outTrunc || errTrunc,
	}
	if !res.TimedOut && cmd.ProcessState != nil {
		if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
			res.CPUExceeded = killedByCPULimit(status, res.TimeMs, runSpec.Limits.CPUTimeMs)
		}
	}
	if res.TimedOut && res.ExitCode == 0 {
		res.ExitCode = -1
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	return res, nil
}

// command builds either a direct exec or a helper exec fed a JSON init request.
func (e *linuxEngine) command(runSpec RunSpec) (*exec.Cmd, func(), error) {
	if e.cfg.HelperPath == "" {
		stdin, err := os.Open(runSpec.StdinPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open stdin: %w", err)
		}
		stdout, err := os.OpenFile(runSpec.StdoutPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			stdin.Close()
			return nil, nil, fmt.Errorf("open stdout: %w", err)
		}
		stderr, err := os.OpenFile(runSpec.StderrPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			stdin.Close()
			stdout.Close()
			return nil, nil, fmt.Errorf("open stderr: %w", err)
		}
		cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
		cmd.Dir = runSpec.WorkDir
		cmd.Env = runSpec.Env
		cmd.Stdin, cmd.Stdout, cmd.Stderr = stdin, stdout, stderr
		return cmd, func() {
			stdin.Close()
			stdout.Close()
			stderr.Close()
		}, nil
	}

	payload, err := json.Marshal(InitRequest{
		RunSpec:        runSpec,
		SeccompProfile: e.cfg.SeccompProfile,
		EnableSeccomp:  e.cfg.EnableSeccomp,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode init request: %w", err)
	}
	cmd := exec.Command(e.cfg.HelperPath)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = io.Discard
	return cmd, func() {}, nil
}

func applyRlimits(pid int, limits ResourceLimit) error {
	set := func(resource int, value uint64) error {
		return unix.Prlimit(pid, resource, &unix.Rlimit{Cur: value, Max: value}, nil)
	}
	if limits.CPUTimeMs > 0 {
		if err := set(unix.RLIMIT_CPU, uint64((limits.CPUTimeMs+999)/1000)); err != nil {
			return fmt.Errorf("rlimit cpu: %w", err)
		}
	}
	if limits.MemoryMB > 0 {
		if err := set(unix.RLIMIT_AS, uint64(limits.MemoryMB)<<20); err != nil {
			return fmt.Errorf("rlimit as: %w", err)
		}
	}
	if limits.OutputKB > 0 {
		if err := set(unix.RLIMIT_FSIZE, uint64(limits.OutputKB)<<10); err != nil {
			return fmt.Errorf("rlimit fsize: %w", err)
		}
	}
	// RLIMIT_NPROC is per user, not per process tree.
	if limits.PIDs > 0 {
		if err := set(unix.RLIMIT_NPROC, uint64(limits.PIDs)); err != nil {
			return fmt.Errorf("rlimit nproc: %w", err)
		}
	}
	return nil
}

// killedByCPULimit reports a SIGXCPU or SIGKILL death after the process used
// its whole CPU allowance. The kernel sends SIGKILL once the hard limit is hit.
func killedByCPULimit(status syscall.WaitStatus, cpuMs, limitMs int64) bool {
	if limitMs <= 0 || !status.Signaled() {
		return false
	}
	sig := status.Signal()
	if sig != syscall.SIGXCPU && sig != syscall.SIGKILL {
		return false
	}
	return cpuMs >= limitMs
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func exitCode(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func cpuTimeMs(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok {
		return 0
	}
	utime := time.Duration(usage.Utime.Sec)*time.Second + time.Duration(usage.Utime.Usec)*time.Microsecond
	stime := time.Duration(usage.Stime.Sec)*time.Second + time.Duration(usage.Stime.Usec)*time.Microsecond
	return (utime + stime).Milliseconds()
}
