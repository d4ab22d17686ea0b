package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a scratch directory owned by exactly one run.
type Workspace struct {
	Dir        string
	StdinPath  string
	StdoutPath string
	StderrPath string
}

// AcquireWorkspace creates a private scratch directory under root.
// The returned release removes it and must be called once the run's output has been read.
func AcquireWorkspace(root, prefix string) (*Workspace, func(), error) {
	dir, err := os.MkdirTemp(root, prefix+"-")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create workspace: %w", err)
	}
	ws := &Workspace{
		Dir:        dir,
		StdinPath:  filepath.Join(dir, "stdin"),
		StdoutPath: filepath.Join(dir, "stdout"),
		StderrPath: filepath.Join(dir, "stderr"),
	}
	release := func() { _ = os.RemoveAll(dir) }
	if err := os.WriteFile(ws.StdinPath, nil, 0o600); err != nil {
		release()
		return nil, func() {}, fmt.Errorf("create stdin: %w", err)
	}
	return ws, release, nil
}

// WriteFile places a source file inside the workspace and returns its path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Spec fills the workspace's paths into a RunSpec.
func (w *Workspace) Spec(cmd []string, env []string, limits ResourceLimit) RunSpec {
	return RunSpec{
		WorkDir:    w.Dir,
		Cmd:        cmd,
		Env:        env,
		StdinPath:  w.StdinPath,
		StdoutPath: w.StdoutPath,
		StderrPath: w.StderrPath,
		Limits:     limits,
	}
}
