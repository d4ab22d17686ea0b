//go:build linux

package main

import (
	"strings"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest(strings.NewReader(`{"RunSpec":{"WorkDir":"/tmp","Cmd":["python3","main.py"],"Limits":{"CPUTimeMs":1500}},"EnableSeccomp":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.RunSpec.WorkDir != "/tmp" || len(req.RunSpec.Cmd) != 2 || req.RunSpec.Limits.CPUTimeMs != 1500 || !req.EnableSeccomp {
		t.Fatalf("unexpected request %+v", req)
	}
	if _, err := decodeRequest(strings.NewReader("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRunRejectsIncompleteRequest(t *testing.T) {
	if err := run(strings.NewReader(`{"RunSpec":{"WorkDir":"/tmp"}}`)); err == nil || !strings.Contains(err.Error(), "command") {
		t.Fatalf("expected command error, got %v", err)
	}
	if err := run(strings.NewReader(`{"RunSpec":{"Cmd":["true"]}}`)); err == nil || !strings.Contains(err.Error(), "work dir") {
		t.Fatalf("expected work dir error, got %v", err)
	}
}

func TestBuildEnvAddsPath(t *testing.T) {
	env := buildEnv([]string{"LANG=C"})
	if env[0] != defaultPath {
		t.Fatalf("expected default PATH first, got %v", env)
	}
	env = buildEnv([]string{"PATH=/opt/bin"})
	if len(env) != 1 {
		t.Fatalf("expected explicit PATH kept, got %v", env)
	}
}

func TestParseSeccompAction(t *testing.T) {
	for _, action := range []string{"SCMP_ACT_ALLOW", "scmp_act_kill", "SCMP_ACT_ERRNO"} {
		if _, err := parseSeccompAction(action); err != nil {
			t.Fatalf("action %s: %v", action, err)
		}
	}
	if _, err := parseSeccompAction("SCMP_ACT_TRACE"); err == nil {
		t.Fatalf("expected unsupported action error")
	}
}
