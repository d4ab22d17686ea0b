//go:build linux

// sandbox-init is exec'd by the validator's sandbox engine. It reads an
// InitRequest from stdin, confines itself, then replaces itself with the
// interpreter command.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"debugoj/internal/validator/sandbox"

	"golang.org/x/sys/unix"
)

const defaultPath = "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

func main() {
	if err := run(os.Stdin); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(r io.Reader) error {
	req, err := decodeRequest(r)
	if err != nil {
		return err
	}
	if len(req.RunSpec.Cmd) == 0 {
		return fmt.Errorf("command is required")
	}
	if req.RunSpec.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}

	if err := os.Chdir(req.RunSpec.WorkDir); err != nil {
		return fmt.Errorf("chdir workdir: %w", err)
	}
	if err := applyRlimits(req.RunSpec.Limits); err != nil {
		return err
	}
	if err := redirectIO(req.RunSpec); err != nil {
		return err
	}
	if req.EnableSeccomp && req.SeccompProfile != "" {
		if err := applySeccomp(req.SeccompProfile); err != nil {
			return err
		}
	}

	env := buildEnv(req.RunSpec.Env)
	cmdPath, err := lookPath(req.RunSpec.Cmd[0], env)
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}
	return unix.Exec(cmdPath, req.RunSpec.Cmd, env)
}

func decodeRequest(r io.Reader) (sandbox.InitRequest, error) {
	var req sandbox.InitRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return sandbox.InitRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func buildEnv(env []string) []string {
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			return env
		}
	}
	return append([]string{defaultPath}, env...)
}

// lookPath resolves the command against the PATH the child will see.
func lookPath(name string, env []string) (string, error) {
	for _, kv := range env {
		if path, ok := strings.CutPrefix(kv, "PATH="); ok {
			if err := os.Setenv("PATH", path); err != nil {
				return "", err
			}
			break
		}
	}
	return exec.LookPath(name)
}

func redirectIO(runSpec sandbox.RunSpec) error {
	open := func(path string, flag int) (*os.File, error) {
		if path == "" {
			path = os.DevNull
		}
		return os.OpenFile(path, flag, 0o600)
	}
	targets := []struct {
		name string
		path string
		flag int
		fd   int
	}{
		{"stdin", runSpec.StdinPath, os.O_RDONLY, int(os.Stdin.Fd())},
		{"stdout", runSpec.StdoutPath, os.O_CREATE | os.O_WRONLY | os.O_TRUNC, int(os.Stdout.Fd())},
		{"stderr", runSpec.StderrPath, os.O_CREATE | os.O_WRONLY | os.O_TRUNC, int(os.Stderr.Fd())},
	}
	for _, target := range targets {
		file, err := open(target.path, target.flag)
		if err != nil {
			return fmt.Errorf("open %s: %w", target.name, err)
		}
		if err := unix.Dup2(int(file.Fd()), target.fd); err != nil {
			_ = file.Close()
			return fmt.Errorf("dup %s: %w", target.name, err)
		}
		_ = file.Close()
	}
	return nil
}
