package service

import (
	"context"
	"strings"
	"time"

	"debugoj/internal/validator/catalog"
	"debugoj/internal/validator/model"
	"debugoj/internal/validator/repository"
	appErr "debugoj/pkg/errors"
	"debugoj/pkg/utils/contextkey"
	"debugoj/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Attempt is a learner's answer to a catalogued question.
type Attempt struct {
	QuestionID       string
	Code             string
	TimeSpentSeconds int
}

// AttemptResult pairs the verdict with the progress it recorded.
type AttemptResult struct {
	AttemptID string        `json:"attempt_id"`
	Status    string        `json:"status"`
	Verdict   model.Verdict `json:"verdict"`
}

// QuestionService grades attempts against catalog questions and reports progress.
type QuestionService struct {
	orchestrator *Orchestrator
	catalog      catalog.Catalog
	publisher    repository.VerdictPublisher
	maxCodeBytes int
}

func NewQuestionService(o *Orchestrator, c catalog.Catalog, publisher repository.VerdictPublisher, maxCodeBytes int) *QuestionService {
	if publisher == nil {
		publisher = repository.NoopPublisher{}
	}
	if maxCodeBytes <= 0 {
		maxCodeBytes = 64 << 10
	}
	return &QuestionService{orchestrator: o, catalog: c, publisher: publisher, maxCodeBytes: maxCodeBytes}
}

// CheckCode rejects empty and oversized submissions.
func (s *QuestionService) CheckCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(code) > s.maxCodeBytes {
		return appErr.Newf(appErr.CodeTooLarge, "code exceeds %d bytes", s.maxCodeBytes)
	}
	return nil
}

// Question looks up a catalog entry.
func (s *QuestionService) Question(ctx context.Context, id string) (*model.Question, error) {
	if s.catalog == nil {
		return nil, appErr.Newf(appErr.QuestionNotFound, "question %s not found", id)
	}
	return s.catalog.Get(ctx, id)
}

// Questions lists the catalog.
func (s *QuestionService) Questions(ctx context.Context) ([]model.Question, error) {
	if s.catalog == nil {
		return nil, nil
	}
	return s.catalog.List(ctx)
}

// ValidateAttempt grades an attempt and publishes the resulting progress event.
// Publish failures are logged; the verdict is still returned.
func (s *QuestionService) ValidateAttempt(ctx context.Context, a Attempt) (AttemptResult, error) {
	if err := s.CheckCode(a.Code); err != nil {
		return AttemptResult{}, err
	}
	q, err := s.Question(ctx, a.QuestionID)
	if err != nil {
		return AttemptResult{}, err
	}
	verdict := s.orchestrator.Validate(ctx, Submission{
		UserCode:       a.Code,
		Language:       string(q.Language),
		ExpectedOutput: q.ExpectedOutput,
		BuggyCode:      q.BuggyCode,
		ReferenceFix:   q.FixedCode,
		BuggyOutput:    q.ConsoleOutput,
		Setup:          q.Setup,
	})

	event := repository.VerdictEvent{
		QuestionID:       q.ID,
		Language:         q.Language,
		Status:           repository.StatusFor(verdict),
		AttemptID:        uuid.NewString(),
		TimeSpentSeconds: max(a.TimeSpentSeconds, 0),
		Verdict:          verdict,
		CreatedAt:        time.Now().UTC(),
	}
	if userID, ok := ctx.Value(contextkey.UserID).(string); ok {
		event.UserID = userID
	}
	if err := s.publisher.PublishVerdict(ctx, event); err != nil {
		logger.Warn(ctx, "publish verdict event failed",
			zap.String("question_id", q.ID),
			zap.String("attempt_id", event.AttemptID),
			zap.Error(err))
	}
	return AttemptResult{AttemptID: event.AttemptID, Status: event.Status, Verdict: verdict}, nil
}
