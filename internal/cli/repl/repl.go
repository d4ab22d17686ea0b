package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"debugoj/internal/cli/command"
	httpclient "debugoj/internal/cli/http"
	"debugoj/internal/cli/state"
	pkgerrors "debugoj/pkg/errors"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

var errExit = errors.New("exit")

// shortcuts expand one-word commands to their "service action" form.
var shortcuts = map[string][]string{
	"validate":  {"question", "validate"},
	"check":     {"code", "check"},
	"execute":   {"code", "run"},
	"runtimes":  {"runtime", "list"},
	"questions": {"question", "list"},
}

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	tokenState *state.TokenState
	statePath  string
	prettyJSON bool
	out        io.Writer
	prompt     func(label string) (string, error)
}

func New(client *httpclient.Client, commands map[string]command.Command, tokenState *state.TokenState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		tokenState: tokenState,
		statePath:  statePath,
		prettyJSON: prettyJSON,
		out:        os.Stdout,
	}
}

// Run reads lines until exit or EOF.
func (s *Session) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "debugoj> ",
		HistoryFile:     historyFile,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.out = rl.Stdout()
	s.prompt = func(label string) (string, error) {
		rl.SetPrompt(label + ": ")
		defer rl.SetPrompt("debugoj> ")
		line, err := rl.Readline()
		if err != nil {
			return "", fmt.Errorf("read input failed: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		if err := s.HandleLine(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			s.printLine("error: %v", err)
		}
	}
}

// HandleLine runs one system or API command.
func (s *Session) HandleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if handled, err := s.handleSystemCommand(line); handled {
		return err
	}
	return s.handleCommand(ctx, line)
}

func (s *Session) handleSystemCommand(line string) (bool, error) {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true, errExit
	case "help":
		s.printHelp()
		return true, nil
	}
	if rest, ok := strings.CutPrefix(line, "set "); ok {
		s.handleSet(strings.TrimSpace(rest))
		return true, nil
	}
	if rest, ok := strings.CutPrefix(line, "show "); ok {
		s.handleShow(strings.TrimSpace(rest))
		return true, nil
	}
	return false, nil
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|token|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8090")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 90s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil || dur <= 0 {
			s.printLine("invalid duration: %s", parts[1])
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		if len(parts) < 2 {
			s.printLine("usage: set token <access_token>|clear")
			return
		}
		if parts[1] == "clear" {
			*s.tokenState = state.TokenState{}
			if err := state.Clear(s.statePath); err != nil {
				s.printLine("clear token failed: %v", err)
				return
			}
			s.printLine("token cleared")
			return
		}
		s.tokenState.AccessToken = parts[1]
		s.tokenState.UpdatedAt = time.Now()
		if err := state.Save(s.statePath, *s.tokenState); err != nil {
			s.printLine("save token failed: %v", err)
			return
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "token":
		if s.tokenState.AccessToken == "" {
			s.printLine("token: <empty>")
			return
		}
		token := s.tokenState.AccessToken
		if len(token) > 12 {
			token = token[:6] + "..." + token[len(token)-4:]
		}
		s.printLine("token: %s", token)
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("tokenStatePath: %s", s.statePath)
	default:
		s.printLine("usage: show token|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	return s.Exec(ctx, tokens)
}

// Exec runs an already tokenised API command.
func (s *Session) Exec(ctx context.Context, tokens []string) error {
	if len(tokens) > 0 {
		if full, ok := shortcuts[tokens[0]]; ok {
			tokens = append(append([]string{}, full...), tokens[1:]...)
		}
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	cmd, ok := s.commands[tokens[0]+" "+tokens[1]]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", tokens[0], tokens[1])
	}
	params, err := command.ParseArgs(tokens[2:])
	if err != nil {
		return err
	}
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	missing := command.Missing(cmd, params)
	if len(missing) == 0 || s.prompt == nil {
		return nil
	}
	for _, field := range missing {
		value, err := s.prompt(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

type verdictView struct {
	IsCorrect    *bool    `json:"is_correct"`
	IsCheating   bool     `json:"is_cheating"`
	HasError     bool     `json:"has_error"`
	Simulated    bool     `json:"is_simulated"`
	Method       string   `json:"method"`
	Confidence   float64  `json:"confidence"`
	Message      string   `json:"message"`
	ActualOutput string   `json:"actual_output"`
	Patterns     []string `json:"cheat_patterns"`
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
		} else {
			s.printLine("%s", string(resp.Body))
		}
	} else {
		s.printLine("%s", string(resp.Body))
	}
	if summary := Summarize(resp.Body); summary != "" {
		s.printLine("%s", summary)
	}
}

// Summarize renders a one-line verdict or error from an API envelope, or "".
func Summarize(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Code != 0 && env.Code != int(pkgerrors.Success) {
		if env.TraceID != "" {
			return fmt.Sprintf("error %d: %s (trace %s)", env.Code, env.Message, env.TraceID)
		}
		return fmt.Sprintf("error %d: %s", env.Code, env.Message)
	}
	if len(env.Data) == 0 {
		return ""
	}
	var wrapped struct {
		Status  string       `json:"status"`
		Verdict *verdictView `json:"verdict"`
	}
	v := &verdictView{}
	if err := json.Unmarshal(env.Data, &wrapped); err == nil && wrapped.Verdict != nil {
		v = wrapped.Verdict
	} else if err := json.Unmarshal(env.Data, v); err != nil {
		return ""
	}
	if v.IsCorrect == nil {
		return ""
	}

	label := "FAIL"
	switch {
	case *v.IsCorrect:
		label = "PASS"
	case v.IsCheating:
		label = "REJECTED"
	case v.HasError:
		label = "ERROR"
	}
	line := fmt.Sprintf("%s [%s %.2f", label, v.Method, v.Confidence)
	if v.Simulated {
		line += " simulated"
	}
	line += "] " + v.Message
	if len(v.Patterns) > 0 {
		line += " (" + strings.Join(v.Patterns, ", ") + ")"
	}
	if wrapped.Status != "" {
		line += " status=" + wrapped.Status
	}
	return line
}

func (s *Session) completer() *readline.PrefixCompleter {
	byService := map[string][]readline.PrefixCompleterInterface{}
	var services []string
	for _, key := range command.SortedKeys(s.commands) {
		cmd := s.commands[key]
		if _, ok := byService[cmd.Service]; !ok {
			services = append(services, cmd.Service)
		}
		byService[cmd.Service] = append(byService[cmd.Service], readline.PcItem(cmd.Action))
	}
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout"), readline.PcItem("token")),
		readline.PcItem("show", readline.PcItem("token"), readline.PcItem("config")),
	}
	for _, service := range services {
		items = append(items, readline.PcItem(service, byService[service]...))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value | --key value ...")
	for _, key := range command.SortedKeys(s.commands) {
		s.printLine("  %-18s %s", key, s.commands[key].Summary)
	}
	s.printLine("shortcuts: validate | check | execute | runtimes | questions")
	s.printLine("system: help | exit | set base|timeout|token | show token|config")
	s.printLine("examples:")
	s.printLine("  question validate --question py-off-by-one --file ./fix.py --time 120")
	s.printLine("  check --language python --file ./fix.py --expected @out.txt --buggy @bug.py --fixed @ref.py")
	s.printLine("  code check lang=python file=./fix.py expected=@out.txt buggy=@bug.py fixed=@ref.py")
	s.printLine("  code run lang=sql file=./query.sql setup=@schema.sql")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
