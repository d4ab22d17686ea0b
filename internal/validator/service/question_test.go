package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"debugoj/internal/validator/catalog"
	"debugoj/internal/validator/model"
	"debugoj/internal/validator/repository"
	appErr "debugoj/pkg/errors"
	"debugoj/pkg/utils/contextkey"
)

type recordingPublisher struct {
	events []repository.VerdictEvent
	err    error
}

func (p *recordingPublisher) PublishVerdict(ctx context.Context, event repository.VerdictEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func newQuestionCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	data, err := json.Marshal([]model.Question{{
		ID:             "py-index",
		Title:          "Off by one",
		Language:       "python",
		BuggyCode:      pyBuggy,
		FixedCode:      pyFixed,
		ExpectedOutput: "1\n2\n3",
	}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	c, err := catalog.NewFileCatalog(data)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestValidateAttemptPublishesProgress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		code       string
		output     string
		wantStatus string
	}{
		{name: "solved", code: pyFixed, output: "1\n2\n3", wantStatus: repository.StatusSolved},
		{name: "still buggy", code: pyBuggy, wantStatus: repository.StatusInProgress},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pub := &recordingPublisher{}
			svc := NewQuestionService(NewOrchestrator(&fakeExecutor{result: ok(tt.output)}, nil, nil, Config{}), newQuestionCatalog(t), pub, 0)
			ctx := context.WithValue(context.Background(), contextkey.UserID, "learner-7")

			res, err := svc.ValidateAttempt(ctx, Attempt{QuestionID: "py-index", Code: tt.code, TimeSpentSeconds: 30})
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if res.Status != tt.wantStatus || res.AttemptID == "" {
				t.Fatalf("unexpected result %+v", res)
			}
			if len(pub.events) != 1 {
				t.Fatalf("expected one event, got %d", len(pub.events))
			}
			ev := pub.events[0]
			if ev.QuestionID != "py-index" || ev.UserID != "learner-7" || ev.TimeSpentSeconds != 30 || ev.AttemptID != res.AttemptID {
				t.Fatalf("unexpected event %+v", ev)
			}
		})
	}
}

func TestValidateAttemptToleratesPublishFailure(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewQuestionService(NewOrchestrator(&fakeExecutor{result: ok("1\n2\n3")}, nil, nil, Config{}), newQuestionCatalog(t), pub, 0)
	res, err := svc.ValidateAttempt(context.Background(), Attempt{QuestionID: "py-index", Code: pyFixed})
	if err != nil {
		t.Fatalf("publish failure must not fail validation: %v", err)
	}
	if !res.Verdict.IsCorrect {
		t.Fatalf("expected correct verdict, got %+v", res.Verdict)
	}
}

func TestValidateAttemptRejections(t *testing.T) {
	t.Parallel()
	svc := NewQuestionService(NewOrchestrator(&fakeExecutor{}, nil, nil, Config{}), newQuestionCatalog(t), nil, 16)
	cases := []struct {
		name    string
		attempt Attempt
		code    appErr.ErrorCode
	}{
		{name: "empty code", attempt: Attempt{QuestionID: "py-index", Code: "  "}, code: appErr.ValidationFailed},
		{name: "too large", attempt: Attempt{QuestionID: "py-index", Code: strings.Repeat("x", 17)}, code: appErr.CodeTooLarge},
		{name: "unknown question", attempt: Attempt{QuestionID: "nope", Code: "print(1)"}, code: appErr.QuestionNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.ValidateAttempt(context.Background(), tc.attempt); !appErr.Is(err, tc.code) {
			t.Fatalf("%s: expected code %d, got %v", tc.name, tc.code, err)
		}
	}
}
