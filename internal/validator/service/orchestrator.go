// Package service turns one submission into a verdict.
package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"debugoj/internal/validator/cheat"
	"debugoj/internal/validator/model"
	"debugoj/internal/validator/normalize"
	"debugoj/internal/validator/structural"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	MsgUnchanged       = "This is the original buggy code. You need to fix the bug first!"
	MsgCheating        = "Solution appears to bypass the actual debugging task. Please fix the underlying logic issue."
	MsgStructuralVeto  = "Output is correct but the fix doesn't address the core logic issue. Please review the bug more carefully."
	MsgOutputMatch     = "Output matches expected result!"
	MsgOutputMismatch  = "Output does not match expected result"
	MsgExecutionFailed = "Code execution failed with errors"
	MsgTimeout         = "Execution timed out. Check for infinite loops, then try again."
	MsgUnavailable     = "The execution service is unavailable right now. Try again later or check the runtime configuration."
	MsgSimulatedPass   = "Fix recognised by structural analysis. Output is simulated, not executed."
	MsgSimulatedFail   = "The change does not fix the bug. Output is simulated, not executed."
	MsgInternal        = "Validation failed due to an internal error. Please try again."
)

// Executor runs a program; runtime.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult
}

// Config holds orchestrator tuning.
type Config struct {
	// VetoThreshold is the similarity below which a correct output with an
	// unrecognised fix is rejected.
	VetoThreshold float64       `yaml:"vetoThreshold"`
	Timeout       time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{VetoThreshold: 0.3, Timeout: 60 * time.Second}
}

// Submission is everything needed to grade one attempt.
type Submission struct {
	UserCode       string `json:"code"`
	Language       string `json:"language"`
	ExpectedOutput string `json:"expected_output"`
	BuggyCode      string `json:"buggy_code"`
	ReferenceFix   string `json:"reference_fix"`
	BuggyOutput    string `json:"buggy_output,omitempty"`
	Setup          string `json:"setup,omitempty"`
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	exec       Executor
	cheat      *cheat.Detector
	structural *structural.Validator
	cfg        Config
}

func NewOrchestrator(exec Executor, detector *cheat.Detector, validator *structural.Validator, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.VetoThreshold <= 0 {
		cfg.VetoThreshold = def.VetoThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if detector == nil {
		detector = cheat.NewDetector()
	}
	if validator == nil {
		validator = structural.NewValidator(structural.DefaultConfig(), nil)
	}
	return &Orchestrator{exec: exec, cheat: detector, structural: validator, cfg: cfg}
}

// Validate never fails; unexpected panics become an error verdict.
func (o *Orchestrator) Validate(ctx context.Context, sub Submission) (verdict model.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "validation panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			verdict = model.Verdict{
				HasError:     true,
				ActualOutput: fmt.Sprintf("Execution failed: %v", r),
				Message:      MsgInternal,
				Method:       model.MethodInternalError,
			}
		}
	}()

	lang, ok := model.ParseLanguage(sub.Language)
	if !ok {
		lang = model.Language(strings.ToLower(strings.TrimSpace(sub.Language)))
	}

	if sub.BuggyCode != "" && normalize.Comparable(sub.UserCode, lang) == normalize.Comparable(sub.BuggyCode, lang) {
		return model.Verdict{Message: MsgUnchanged, Method: model.MethodUnchanged, Confidence: 1}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	start := time.Now()
	res := o.exec.Execute(ctx, model.ExecutionRequest{
		SourceCode: sub.UserCode,
		Language:   lang,
		Reference: &model.ReferenceContext{
			BuggyCode:      sub.BuggyCode,
			FixedCode:      sub.ReferenceFix,
			ExpectedOutput: sub.ExpectedOutput,
			BuggyOutput:    sub.BuggyOutput,
			Setup:          sub.Setup,
		},
	})
	verdict = o.judge(ctx, sub, lang, res)
	logger.Info(ctx, "submission validated",
		zap.String("language", string(lang)),
		zap.String("substrate", string(res.Substrate)),
		zap.String("method", string(verdict.Method)),
		zap.Bool("correct", verdict.IsCorrect),
		zap.Bool("simulated", res.Simulated),
		zap.Duration("elapsed", time.Since(start)))
	return verdict
}

func (o *Orchestrator) judge(ctx context.Context, sub Submission, lang model.Language, res model.ExecutionResult) model.Verdict {
	if res.ErrorKind != model.ErrorNone {
		return failureVerdict(res)
	}

	actual := res.RawOutput
	if cheated := o.detectCheat(sub, lang); cheated.IsCheating {
		matched := res.Simulated || normalize.Equal(actual, sub.ExpectedOutput)
		if matched {
			logger.Warn(ctx, "hardcoded output detected", zap.Strings("patterns", cheated.Patterns))
			return model.Verdict{
				IsCheating:    true,
				ActualOutput:  actual,
				Message:       MsgCheating,
				Confidence:    1,
				Method:        model.MethodCheatDetected,
				CheatPatterns: cheated.Patterns,
				Simulated:     res.Simulated,
			}
		}
	}

	if res.Simulated {
		return o.simulatedVerdict(ctx, sub, lang, res)
	}

	if !normalize.Equal(actual, sub.ExpectedOutput) {
		return model.Verdict{ActualOutput: actual, Message: MsgOutputMismatch, Confidence: 1, Method: model.MethodOutputMismatch}
	}

	if sub.ReferenceFix == "" {
		return model.Verdict{IsCorrect: true, ActualOutput: actual, Message: MsgOutputMatch, Confidence: 1, Method: model.MethodOutputMatch, Similarity: 1}
	}
	sr := o.structural.Validate(sub.UserCode, sub.BuggyCode, sub.ReferenceFix, lang)
	similarity := sr.Similarity
	if !sr.IsStructurallyValid {
		similarity = o.structural.SimilarityToFix(sub.UserCode, sub.ReferenceFix, lang)
		if similarity < o.cfg.VetoThreshold {
			return model.Verdict{
				IsCheating:   true,
				ActualOutput: actual,
				Message:      MsgStructuralVeto,
				Confidence:   1 - similarity,
				Method:       model.MethodStructuralVeto,
				Similarity:   similarity,
			}
		}
	}
	return model.Verdict{
		IsCorrect:    true,
		ActualOutput: actual,
		Message:      MsgOutputMatch,
		Confidence:   1,
		Method:       model.MethodOutputMatch,
		Similarity:   similarity,
	}
}

// detectCheat ignores patterns the reference fix itself contains.
func (o *Orchestrator) detectCheat(sub Submission, lang model.Language) cheat.Result {
	res := o.cheat.Detect(sub.UserCode, sub.BuggyCode, sub.ExpectedOutput, lang)
	if !res.IsCheating || sub.ReferenceFix == "" {
		return res
	}
	if o.cheat.Detect(sub.ReferenceFix, sub.BuggyCode, sub.ExpectedOutput, lang).IsCheating {
		return cheat.Result{}
	}
	return res
}

// simulatedVerdict fails any run in which a known bug survived, whatever the
// structural comparison says.
func (o *Orchestrator) simulatedVerdict(ctx context.Context, sub Submission, lang model.Language, res model.ExecutionResult) model.Verdict {
	if res.BugSignature != "" {
		logger.Info(ctx, "simulated run kept a known bug", zap.String("signature", res.BugSignature))
		return model.Verdict{
			ActualOutput: res.RawOutput,
			Message:      MsgSimulatedFail,
			Confidence:   1,
			Method:       model.MethodOutputMismatch,
			Simulated:    true,
		}
	}
	sr := o.structural.Validate(sub.UserCode, sub.BuggyCode, sub.ReferenceFix, lang)
	v := model.Verdict{
		IsCorrect:    sr.IsStructurallyValid,
		ActualOutput: res.RawOutput,
		Confidence:   sr.Confidence,
		Method:       sr.Strategy,
		Similarity:   sr.Similarity,
		Simulated:    true,
		Message:      MsgSimulatedFail,
	}
	if v.IsCorrect {
		v.Message = MsgSimulatedPass
	}
	return v
}

func failureVerdict(res model.ExecutionResult) model.Verdict {
	v := model.Verdict{
		HasError:     true,
		ActualOutput: res.RawOutput,
		Confidence:   1,
		Method:       model.MethodExecutionError,
		Simulated:    res.Simulated,
		Message:      MsgExecutionFailed,
	}
	if v.ActualOutput == "" {
		v.ActualOutput = res.Diagnostic
	}
	switch res.ErrorKind {
	case model.ErrorTimeout:
		v.Message = MsgTimeout
	case model.ErrorServiceUnavailable:
		v.Message = MsgUnavailable
	}
	return v
}
