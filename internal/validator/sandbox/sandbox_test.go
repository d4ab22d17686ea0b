package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireWorkspaceRelease(t *testing.T) {
	ws, release, err := AcquireWorkspace(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(ws.StdinPath); err != nil {
		t.Fatalf("expected stdin file: %v", err)
	}
	path, err := ws.WriteFile("main.py", []byte("print(1)"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != ws.Dir {
		t.Fatalf("source written outside workspace: %s", path)
	}

	spec := ws.Spec([]string{"python3", path}, nil, ResourceLimit{WallTimeMs: 100})
	if err := validateRunSpec(spec); err != nil {
		t.Fatalf("unexpected invalid spec: %v", err)
	}

	release()
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, got %v", err)
	}
}

func TestValidateRunSpec(t *testing.T) {
	if err := validateRunSpec(RunSpec{}); err == nil {
		t.Fatalf("expected error for empty spec")
	}
	if err := validateRunSpec(RunSpec{WorkDir: "/tmp", Cmd: []string{"x"}}); err == nil {
		t.Fatalf("expected error for missing stdio paths")
	}
}

func TestReadLimitedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 10)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, truncated := readLimitedFile(path, 4)
	if got != "aaaa" || !truncated {
		t.Fatalf("expected truncated read, got %q %v", got, truncated)
	}
	got, truncated = readLimitedFile(path, 10)
	if len(got) != 10 || truncated {
		t.Fatalf("expected full read, got %q %v", got, truncated)
	}
	if got, _ := readLimitedFile(filepath.Join(t.TempDir(), "missing"), 4); got != "" {
		t.Fatalf("expected empty read for missing file")
	}
}
