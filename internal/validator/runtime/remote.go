package runtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"debugoj/internal/validator/model"
	"debugoj/pkg/retry"
	"debugoj/pkg/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/zeromicro/go-zero/core/breaker"
	"go.uber.org/zap"
)

const demoAPIKey = "DEMO_KEY"

// RemoteConfig configures the Judge0-compatible execution service.
type RemoteConfig struct {
	Enabled        bool           `yaml:"enabled"`
	BaseURL        string         `yaml:"baseURL"`
	APIKey         string         `yaml:"apiKey"`
	APIHost        string         `yaml:"apiHost"`
	RequestTimeout time.Duration  `yaml:"requestTimeout"`
	CPUTimeLimit   float64        `yaml:"cpuTimeLimit"`
	MemoryLimitKB  int            `yaml:"memoryLimitKB"`
	Poll           retry.Policy   `yaml:"poll"`
	LanguageIDs    map[string]int `yaml:"languageIDs"`
	// Cooldown is how long an auth or rate-limit rejection keeps the service marked unavailable.
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultRemoteConfig mirrors the public RapidAPI Judge0 CE endpoint.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL:        "https://judge0-ce.p.rapidapi.com",
		APIHost:        "judge0-ce.p.rapidapi.com",
		RequestTimeout: 10 * time.Second,
		CPUTimeLimit:   2,
		MemoryLimitKB:  128000,
		Poll:           retry.Policy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second},
		LanguageIDs: map[string]int{
			string(model.LanguageC):    50,
			string(model.LanguageCPP):  54,
			string(model.LanguageJava): 62,
		},
		Cooldown: 5 * time.Minute,
	}
}

// Quota admits or refuses one remote invocation.
type Quota interface {
	Allow(ctx context.Context) (bool, error)
}

type submissionRequest struct {
	SourceCode   string  `json:"source_code"`
	LanguageID   int     `json:"language_id"`
	CPUTimeLimit float64 `json:"cpu_time_limit"`
	MemoryLimit  int     `json:"memory_limit"`
}

type submissionToken struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submission struct {
	Stdout        string           `json:"stdout"`
	Stderr        string           `json:"stderr"`
	CompileOutput string           `json:"compile_output"`
	Message       string           `json:"message"`
	Status        submissionStatus `json:"status"`
}

// StatusError is a non-2xx answer from the remote service.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote request %s failed with status %d", e.Path, e.Code)
}

func (e *StatusError) rejected() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden || e.Code == http.StatusTooManyRequests
}

// receive executes r and decodes a successful body into T.
func receive[T any](r *resty.Request, method, path string) (*T, error) {
	var result T
	resp, err := r.SetResult(&result).Execute(method, path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Path: path}
	}
	return &result, nil
}

// RemoteAdapter submits compiled languages to a Judge0-compatible service
// and polls for the verdict.
type RemoteAdapter struct {
	cfg    RemoteConfig
	client *resty.Client
	brk    breaker.Breaker
	quota  Quota
	boot   *Bootstrapper

	unavailableUntil atomic.Int64
}

func NewRemoteAdapter(cfg RemoteConfig, quota Quota, boot *Bootstrapper) *RemoteAdapter {
	def := DefaultRemoteConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.CPUTimeLimit <= 0 {
		cfg.CPUTimeLimit = def.CPUTimeLimit
	}
	if cfg.MemoryLimitKB <= 0 {
		cfg.MemoryLimitKB = def.MemoryLimitKB
	}
	if cfg.Poll.MaxAttempts <= 0 {
		cfg.Poll = def.Poll
	}
	if len(cfg.LanguageIDs) == 0 {
		cfg.LanguageIDs = def.LanguageIDs
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("x-rapidapi-key", cfg.APIKey)
	}
	if cfg.APIHost != "" {
		client.SetHeader("x-rapidapi-host", cfg.APIHost)
	}

	return &RemoteAdapter{
		cfg:    cfg,
		client: client,
		brk:    breaker.NewBreaker(breaker.WithName("judge0")),
		quota:  quota,
		boot:   boot,
	}
}

func (a *RemoteAdapter) Substrate() model.Substrate { return model.SubstrateRemote }

func (a *RemoteAdapter) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	start := time.Now()
	if a.cfg.APIKey == "" || a.cfg.APIKey == demoAPIKey {
		return elapsed(unavailable(a.Substrate(), "remote execution service not configured: missing API key"), start)
	}
	if until := a.unavailableUntil.Load(); until > 0 && time.Now().UnixNano() < until {
		return elapsed(unavailable(a.Substrate(), errUnavailable.Error()), start)
	}
	languageID, ok := a.cfg.LanguageIDs[string(req.Language)]
	if !ok {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("language %s not supported by remote service", req.Language)), start)
	}

	if _, err := acquire(ctx, a.boot, model.SubstrateRemote, a.healthCheck); err != nil {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("remote execution service unreachable: %v", err)), start)
	}

	if a.quota != nil {
		allowed, err := a.quota.Allow(ctx)
		if err != nil {
			logger.Warn(ctx, "remote quota check failed", zap.Error(err))
		} else if !allowed {
			return elapsed(unavailable(a.Substrate(), "daily remote execution quota exhausted"), start)
		}
	}

	var sub *submission
	err := a.brk.DoWithAcceptable(func() error {
		var runErr error
		sub, runErr = a.run(ctx, req.SourceCode, languageID)
		return runErr
	}, acceptableRemoteError)
	if err != nil {
		return elapsed(a.failure(ctx, err), start)
	}
	return elapsed(formatSubmission(sub), start)
}

func (a *RemoteAdapter) run(ctx context.Context, source string, languageID int) (*submission, error) {
	token, err := receive[submissionToken](
		a.client.R().
			SetContext(ctx).
			SetQueryParam("base64_encoded", "true").
			SetBody(submissionRequest{
				SourceCode:   base64.StdEncoding.EncodeToString([]byte(source)),
				LanguageID:   languageID,
				CPUTimeLimit: a.cfg.CPUTimeLimit,
				MemoryLimit:  a.cfg.MemoryLimitKB,
			}),
		resty.MethodPost, "/submissions")
	if err != nil {
		return nil, err
	}
	if token.Token == "" {
		return nil, errors.New("remote service returned no submission token")
	}

	var result *submission
	err = retry.Do(ctx, a.cfg.Poll, func(ctx context.Context, attempt int) error {
		s, err := receive[submission](
			a.client.R().SetContext(ctx).SetQueryParam("base64_encoded", "true"),
			resty.MethodGet, "/submissions/"+token.Token)
		if err != nil {
			return retry.Permanent(err)
		}
		if s.Status.ID < 3 {
			return errPending
		}
		result = s
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		logger.Debug(ctx, "remote submission pending",
			zap.String("token", token.Token), zap.Int("attempt", attempt), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *RemoteAdapter) healthCheck(ctx context.Context) (bool, error) {
	resp, err := a.client.R().SetContext(ctx).Get("/about")
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, &StatusError{Code: resp.StatusCode(), Path: "/about"}
	}
	return true, nil
}

// failure converts a transport or polling error into a result.
func (a *RemoteAdapter) failure(ctx context.Context, err error) model.ExecutionResult {
	var statusErr *StatusError
	switch {
	case errors.Is(err, retry.ErrExhausted):
		return model.Failed(a.Substrate(), model.ErrorTimeout,
			fmt.Sprintf("execution timed out: no result after %d polls", a.cfg.Poll.MaxAttempts))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.Failed(a.Substrate(), model.ErrorTimeout, "execution cancelled: "+err.Error())
	case errors.Is(err, breaker.ErrServiceUnavailable):
		return unavailable(a.Substrate(), "remote execution service unavailable: circuit open")
	case errors.As(err, &statusErr) && statusErr.rejected():
		a.unavailableUntil.Store(time.Now().Add(a.cfg.Cooldown).UnixNano())
		logger.Warn(ctx, "remote service rejected request", zap.Int("status", statusErr.Code))
		return unavailable(a.Substrate(), fmt.Sprintf("remote execution service rejected the request (%d)", statusErr.Code))
	default:
		logger.Warn(ctx, "remote execution failed", zap.Error(err))
		return unavailable(a.Substrate(), "remote execution failed: "+err.Error())
	}
}

// acceptableRemoteError keeps slow programs and cancelled callers from tripping the breaker.
func acceptableRemoteError(err error) bool {
	return err == nil ||
		errors.Is(err, retry.ErrExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func formatSubmission(s *submission) model.ExecutionResult {
	res := model.ExecutionResult{Substrate: model.SubstrateRemote}
	stdout := decodeBase64(s.Stdout)
	switch id := s.Status.ID; {
	case id == 3 || id == 4:
		res.Succeeded = true
		res.RawOutput = strings.TrimSpace(stdout)
		return res
	case id == 5:
		res.ErrorKind = model.ErrorTimeout
		res.RawOutput = strings.TrimSpace("Time Limit Exceeded\n" + stdout)
	case id == 6:
		compile := decodeBase64(s.CompileOutput)
		if compile == "" {
			compile = "Unknown compilation error"
		}
		res.ErrorKind = model.ErrorCompile
		res.RawOutput = strings.TrimSpace("Compilation Error:\n" + compile)
	case id >= 7 && id <= 12:
		res.ErrorKind = model.ErrorRuntime
		res.RawOutput = strings.TrimSpace(joinOutput(stdout, decodeBase64(s.Stderr)))
	case id == 13 || id == 14:
		res.ErrorKind = model.ErrorServiceUnavailable
		res.RawOutput = "Internal execution error occurred"
	default:
		res.ErrorKind = model.ErrorRuntime
		res.RawOutput = stdout
		if res.RawOutput == "" {
			res.RawOutput = "Unknown execution result"
		}
	}
	res.Diagnostic = s.Status.Description
	if res.Diagnostic == "" {
		res.Diagnostic = fmt.Sprintf("status %d", s.Status.ID)
	}
	return res
}

// decodeBase64 falls back to the raw text when s is not valid base64.
func decodeBase64(s string) string {
	if s == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(s, "\n", ""))
	if err != nil {
		return s
	}
	return string(raw)
}
