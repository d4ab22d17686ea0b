// Package sandbox runs interpreter processes under resource limits with
// per-run scratch directories.
package sandbox

import (
	"context"
	"time"
)

// ResourceLimit describes hard limits enforced on one run.
type ResourceLimit struct {
	CPUTimeMs  int64 `json:"CPUTimeMs" yaml:"cpuTimeMs"`
	WallTimeMs int64 `json:"WallTimeMs" yaml:"wallTimeMs"`
	MemoryMB   int64 `json:"MemoryMB" yaml:"memoryMB"`
	OutputKB   int64 `json:"OutputKB" yaml:"outputKB"`
	PIDs       int64 `json:"PIDs" yaml:"pids"`
}

// RunSpec is the execution specification for one process.
type RunSpec struct {
	WorkDir    string
	Cmd        []string
	Env        []string
	StdinPath  string
	StdoutPath string
	StderrPath string
	Limits     ResourceLimit
}

// RunResult captures what the process did.
type RunResult struct {
	ExitCode   int
	TimeMs     int64
	WallTimeMs int64
	Stdout     string
	Stderr     string
	// TimedOut is set when the wall-clock limit killed the process.
	TimedOut bool
	// CPUExceeded is set when the CPU-time rlimit killed the process.
	CPUExceeded bool
	// Truncated is set when stdout or stderr exceeded the output limit.
	Truncated bool
}

// Engine executes a RunSpec.
type Engine interface {
	Run(ctx context.Context, runSpec RunSpec) (RunResult, error)
}

// Config controls engine behaviour.
type Config struct {
	// HelperPath points at the sandbox-init binary. Empty runs the command
	// directly and applies rlimits with prlimit right after start, so the first
	// instructions run unlimited and the process cap counts every process of
	// the service user. Strict limits need the helper.
	HelperPath string `yaml:"helperPath"`
	// SeccompProfile is a JSON syscall profile applied by the helper.
	SeccompProfile string `yaml:"seccompProfile"`
	EnableSeccomp  bool   `yaml:"enableSeccomp"`
	// WorkRoot is the parent of per-run scratch directories; defaults to the OS temp dir.
	WorkRoot string `yaml:"workRoot"`
}

// InitRequest is the JSON document the sandbox-init helper reads from stdin.
type InitRequest struct {
	RunSpec        RunSpec
	SeccompProfile string
	EnableSeccomp  bool
}

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
