package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"debugoj/internal/validator/sandbox"
)

// ProcessConfig configures an interpreter that runs as a child process.
type ProcessConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Binary  string                `yaml:"binary"`
	Limits  sandbox.ResourceLimit `yaml:"limits"`
	Env     []string              `yaml:"env"`
}

type sourceFile struct {
	name string
	body string
}

// processRunner owns the workspace lifecycle around one sandboxed run.
type processRunner struct {
	engine   sandbox.Engine
	workRoot string
	limits   sandbox.ResourceLimit
	env      []string
}

func (p processRunner) run(ctx context.Context, prefix string, files []sourceFile, argv []string) (sandbox.RunResult, error) {
	ws, release, err := sandbox.AcquireWorkspace(p.workRoot, prefix)
	if err != nil {
		return sandbox.RunResult{}, err
	}
	defer release()

	for _, f := range files {
		if _, err := ws.WriteFile(f.name, []byte(f.body)); err != nil {
			return sandbox.RunResult{}, err
		}
	}
	return p.engine.Run(ctx, ws.Spec(argv, p.env, p.limits))
}

// probeBinary resolves an interpreter and checks that it starts.
func probeBinary(ctx context.Context, binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", binary, err)
	}
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", binary, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return "", fmt.Errorf("probe %s: empty version", binary)
	}
	return path, nil
}
