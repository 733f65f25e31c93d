package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-backend/internal/app"
	"quiz-backend/internal/domain"
	"quiz-backend/internal/infra/memory"
)

func intPtr(v int) *int { return &v }

func TestRecordAttempt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	records := app.NewRecordService(store, store, nil)

	attempt, err := records.RecordAttempt(ctx, app.AttemptInput{UserID: 1, QuizID: 2, Score: intPtr(0)})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if attempt.ID == 0 || attempt.Score != 0 || attempt.CreatedAt.IsZero() {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	got, err := records.GetAttempt(ctx, attempt.ID)
	if err != nil || got.ID != attempt.ID {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := records.GetAttempt(ctx, 999); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	invalid := []app.AttemptInput{
		{QuizID: 2, Score: intPtr(1)},
		{UserID: 1, Score: intPtr(1)},
		{UserID: 1, QuizID: 2},
		{UserID: 1, QuizID: 2, Score: intPtr(-1)},
	}
	for i, in := range invalid {
		if _, err := records.RecordAttempt(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if all, _ := records.ListAttempts(ctx); len(all) != 1 {
		t.Fatalf("invalid attempts were stored: %+v", all)
	}
}

func TestRecordSubmission(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	records := app.NewRecordService(store, store, nil)

	submission, err := records.RecordSubmission(ctx, app.SubmissionInput{
		UserID:  1,
		QuizID:  2,
		Answers: domain.Answers{10: 100},
		Score:   intPtr(1),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := records.GetSubmission(ctx, submission.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Answers[10] != 100 || got.Score != 1 {
		t.Fatalf("unexpected submission %+v", got)
	}

	invalid := []app.SubmissionInput{
		{QuizID: 2, Answers: domain.Answers{}, Score: intPtr(0)},
		{UserID: 1, Answers: domain.Answers{}, Score: intPtr(0)},
		{UserID: 1, QuizID: 2, Score: intPtr(0)},
		{UserID: 1, QuizID: 2, Answers: domain.Answers{}},
		{UserID: 1, QuizID: 2, Answers: domain.Answers{}, Score: intPtr(-3)},
	}
	for i, in := range invalid {
		if _, err := records.RecordSubmission(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := records.GetSubmission(ctx, 999); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
