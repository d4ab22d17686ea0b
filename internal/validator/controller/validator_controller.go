package controller

import (
	"context"
	"strings"

	"debugoj/internal/validator/model"
	"debugoj/internal/validator/service"
	appErr "debugoj/pkg/errors"
	"debugoj/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Validator grades free-form submissions.
type Validator interface {
	Validate(ctx context.Context, sub service.Submission) model.Verdict
}

// Executor runs code without grading it.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult
}

// Reporter describes the runtime substrates.
type Reporter interface {
	Report(ctx context.Context) service.RuntimeReport
}

// ValidatorController handles validation HTTP endpoints.
type ValidatorController struct {
	validator Validator
	executor  Executor
	questions *service.QuestionService
	reporter  Reporter
}

func NewValidatorController(v Validator, e Executor, q *service.QuestionService, r Reporter) *ValidatorController {
	return &ValidatorController{validator: v, executor: e, questions: q, reporter: r}
}

// Validate grades a submission whose question fields travel in the body.
func (h *ValidatorController) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if err := h.questions.CheckCode(req.Code); err != nil {
		response.Error(c, err)
		return
	}
	if _, ok := model.ParseLanguage(req.Language); !ok {
		response.Error(c, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", req.Language))
		return
	}
	verdict := h.validator.Validate(c.Request.Context(), service.Submission{
		UserCode:       req.Code,
		Language:       req.Language,
		ExpectedOutput: req.ExpectedOutput,
		BuggyCode:      req.BuggyCode,
		ReferenceFix:   req.FixedCode,
		BuggyOutput:    req.BuggyOutput,
		Setup:          req.Setup,
	})
	response.Success(c, verdict)
}

// Execute runs code and returns the raw execution result.
func (h *ValidatorController) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if err := h.questions.CheckCode(req.Code); err != nil {
		response.Error(c, err)
		return
	}
	lang, ok := model.ParseLanguage(req.Language)
	if !ok {
		response.Error(c, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", req.Language))
		return
	}
	res := h.executor.Execute(c.Request.Context(), model.ExecutionRequest{
		SourceCode: req.Code,
		Language:   lang,
		Reference:  &model.ReferenceContext{Setup: req.Setup},
	})
	response.Success(c, res)
}

// ValidateQuestion grades an attempt at a catalogued question.
func (h *ValidatorController) ValidateQuestion(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.BadRequest(c, "Invalid question id")
		return
	}
	var req AttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	res, err := h.questions.ValidateAttempt(c.Request.Context(), service.Attempt{
		QuestionID:       id,
		Code:             req.Code,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetQuestion returns a question without its reference fix.
func (h *ValidatorController) GetQuestion(c *gin.Context) {
	q, err := h.questions.Question(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toQuestionView(*q))
}

// ListQuestions returns every catalogued question without reference fixes.
func (h *ValidatorController) ListQuestions(c *gin.Context) {
	qs, err := h.questions.Questions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		views = append(views, toQuestionView(q))
	}
	response.Success(c, views)
}

// Runtimes reports substrate routing, bootstrap counters and quota usage.
func (h *ValidatorController) Runtimes(c *gin.Context) {
	response.Success(c, h.reporter.Report(c.Request.Context()))
}

// Health is a liveness probe.
func (h *ValidatorController) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// ValidateRequest defines the free-form validation payload.
type ValidateRequest struct {
	Code           string `json:"code" binding:"required"`
	Language       string `json:"language" binding:"required"`
	ExpectedOutput string `json:"expected_output"`
	BuggyCode      string `json:"buggy_code"`
	FixedCode      string `json:"fixed_code"`
	BuggyOutput    string `json:"buggy_output"`
	Setup          string `json:"setup"`
}

// ExecuteRequest defines the execution payload.
type ExecuteRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
	Setup    string `json:"setup"`
}

// AttemptRequest defines a catalogued question attempt.
type AttemptRequest struct {
	Code             string `json:"code" binding:"required"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// QuestionView is the learner-facing part of a question.
type QuestionView struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Language       model.Language `json:"language"`
	Difficulty     string         `json:"difficulty,omitempty"`
	BuggyCode      string         `json:"buggy_code"`
	ExpectedOutput string         `json:"expected_output"`
	ConsoleOutput  string         `json:"console_output,omitempty"`
}

func toQuestionView(q model.Question) QuestionView {
	return QuestionView{
		ID:             q.ID,
		Title:          q.Title,
		Language:       q.Language,
		Difficulty:     q.Difficulty,
		BuggyCode:      q.BuggyCode,
		ExpectedOutput: q.ExpectedOutput,
		ConsoleOutput:  q.ConsoleOutput,
	}
}
