package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"debugoj/internal/cli/command"
	httpclient "debugoj/internal/cli/http"
	"debugoj/internal/cli/state"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

type fakeServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	reply    string
	status   int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := capturedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Auth: r.Header.Get("Authorization")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &req.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, status := f.reply, f.status
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply))
}

func (f *fakeServer) last(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("no request received")
	}
	return f.requests[len(f.requests)-1]
}

func newSession(t *testing.T, fake *fakeServer) (*Session, *bytes.Buffer, *state.TokenState) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	tokenState := &state.TokenState{}
	client := httpclient.New(srv.URL, 5*time.Second, func() string { return tokenState.AccessToken })
	s := New(client, command.Registry(), tokenState, filepath.Join(t.TempDir(), "state.json"), false)
	out := &bytes.Buffer{}
	s.out = out
	return s, out, tokenState
}

const passReply = `{"code":10000,"message":"Success","data":{"attempt_id":"a-1","status":"solved","verdict":{"is_correct":true,"has_error":false,"is_cheating":false,"message":"Output matches expected result!","confidence":1,"method":"output_match","is_simulated":false}}}`

func TestQuestionValidateSendsAttempt(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{reply: passReply, status: http.StatusOK}
	s, out, _ := newSession(t, fake)

	err := s.HandleLine(context.Background(), `question validate --question py-1 code="print('ok')" time=12`)
	if err != nil {
		t.Fatalf("handle line failed: %v", err)
	}
	req := fake.last(t)
	if req.Method != http.MethodPost || req.Path != "/api/v1/questions/py-1/validate" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Body["code"] != "print('ok')" || req.Body["time_spent_seconds"] != float64(12) {
		t.Fatalf("unexpected body %v", req.Body)
	}
	if req.Auth != "" {
		t.Fatalf("no token set, got auth %q", req.Auth)
	}
	if !strings.Contains(out.String(), "PASS [output_match 1.00] Output matches expected result! status=solved") {
		t.Fatalf("summary missing from output:\n%s", out.String())
	}
}

func TestShortcutsExpand(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{reply: `{"code":10000,"message":"Success","data":{}}`, status: http.StatusOK}
	s, _, _ := newSession(t, fake)
	ctx := context.Background()

	tests := []struct {
		line   string
		method string
		path   string
	}{
		{line: "runtimes", method: http.MethodGet, path: "/api/v1/runtimes"},
		{line: "questions", method: http.MethodGet, path: "/api/v1/questions"},
		{line: "execute --language lua --code 'print(1)'", method: http.MethodPost, path: "/api/v1/execute"},
		{line: "check --language python --code 'print(1)' --expected 1", method: http.MethodPost, path: "/api/v1/validate"},
		{line: "validate --question js-1 --code 'x'", method: http.MethodPost, path: "/api/v1/questions/js-1/validate"},
	}
	for _, tt := range tests {
		if err := s.HandleLine(ctx, tt.line); err != nil {
			t.Fatalf("%q failed: %v", tt.line, err)
		}
		req := fake.last(t)
		if req.Method != tt.method || req.Path != tt.path {
			t.Fatalf("%q sent %s %s", tt.line, req.Method, req.Path)
		}
	}
	if got := fake.last(t).Body["code"]; got != "x" {
		t.Fatalf("unexpected code %v", got)
	}
}

func TestSetTokenIsSentAndPersisted(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{reply: `{"code":10000,"message":"Success","data":[]}`, status: http.StatusOK}
	s, _, tokenState := newSession(t, fake)
	ctx := context.Background()

	if err := s.HandleLine(ctx, "set token abc.def.ghi"); err != nil {
		t.Fatalf("set token failed: %v", err)
	}
	if err := s.HandleLine(ctx, "question list"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if got := fake.last(t).Auth; got != "Bearer abc.def.ghi" {
		t.Fatalf("auth header = %q", got)
	}
	saved, err := state.Load(s.statePath)
	if err != nil || saved.AccessToken != "abc.def.ghi" {
		t.Fatalf("token not persisted: %+v err=%v", saved, err)
	}

	if err := s.HandleLine(ctx, "set token clear"); err != nil {
		t.Fatalf("clear token failed: %v", err)
	}
	if tokenState.AccessToken != "" {
		t.Fatalf("token not cleared")
	}
}

func TestHandleLineErrors(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{reply: `{}`, status: http.StatusOK}
	s, out, _ := newSession(t, fake)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{line: "question", want: "invalid command"},
		{line: "submit create", want: "unknown command"},
		{line: "code run lang=python", want: "code is required"},
		{line: `code run "unterminated`, want: "parse command failed"},
	}
	for _, tt := range tests {
		err := s.HandleLine(ctx, tt.line)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%q: error = %v, want %q", tt.line, err, tt.want)
		}
	}
	if err := s.HandleLine(ctx, "exit"); !errors.Is(err, errExit) {
		t.Fatalf("exit should stop the session, got %v", err)
	}
	if !strings.Contains(out.String(), "bye") {
		t.Fatalf("missing goodbye")
	}
}

func TestPromptMissingFillsRequiredFields(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{reply: `{"code":10000,"message":"Success","data":{"id":"c-1"}}`, status: http.StatusOK}
	s, _, _ := newSession(t, fake)
	var asked []string
	s.prompt = func(label string) (string, error) {
		asked = append(asked, label)
		return "c-1", nil
	}
	if err := s.HandleLine(context.Background(), "question show"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if len(asked) != 1 || asked[0] != "question_id" {
		t.Fatalf("unexpected prompts %v", asked)
	}
	if got := fake.last(t).Path; got != "/api/v1/questions/c-1" {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bare verdict",
			body: `{"code":10000,"data":{"is_correct":false,"is_cheating":true,"method":"structural_veto","confidence":0.9,"message":"nope","cheat_patterns":["hardcoded_output"]}}`,
			want: "REJECTED [structural_veto 0.90] nope (hardcoded_output)",
		},
		{
			name: "simulated error",
			body: `{"code":10000,"data":{"is_correct":false,"has_error":true,"is_simulated":true,"method":"execution_error","confidence":1,"message":"Code execution failed with errors"}}`,
			want: "ERROR [execution_error 1.00 simulated] Code execution failed with errors",
		},
		{
			name: "api error",
			body: `{"code":12000,"message":"question not found","trace_id":"t-9"}`,
			want: "error 12000: question not found (trace t-9)",
		},
		{name: "question list", body: `{"code":10000,"data":[{"id":"a"}]}`},
		{name: "execution result", body: `{"code":10000,"data":{"raw_output":"hi","succeeded":true}}`},
		{name: "not json", body: `<html>`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Summarize([]byte(tt.body)); got != tt.want {
				t.Fatalf("Summarize = %q, want %q", got, tt.want)
			}
		})
	}
}
