package app

import (
	"context"

	"go.uber.org/zap"
	"quiz-backend/internal/domain"
)

// AttemptInput is an attempt as received from a client. Score is a pointer so
// a missing score can be told apart from zero.
type AttemptInput struct {
	UserID int64
	QuizID int64
	Score  *int
}

// SubmissionInput is a submission as received from a client.
type SubmissionInput struct {
	UserID  int64
	QuizID  int64
	Answers domain.Answers
	Score   *int
}

// RecordService stores attempts and submissions. Input is validated before
// any repository call.
type RecordService struct {
	attempts    AttemptRepository
	submissions SubmissionRepository
	log         *zap.Logger
}

func NewRecordService(attempts AttemptRepository, submissions SubmissionRepository, log *zap.Logger) *RecordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordService{attempts: attempts, submissions: submissions, log: log.Named("records")}
}

// RecordAttempt stores a score-only attempt.
func (s *RecordService) RecordAttempt(ctx context.Context, in AttemptInput) (domain.Attempt, error) {
	if in.UserID <= 0 || in.QuizID <= 0 || in.Score == nil {
		return domain.Attempt{}, domain.Invalid("missing required fields")
	}
	if *in.Score < 0 {
		return domain.Attempt{}, domain.Invalid("score must not be negative")
	}
	attempt := domain.Attempt{UserID: in.UserID, QuizID: in.QuizID, Score: *in.Score}
	if err := s.attempts.InsertAttempt(ctx, &attempt); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

// ListAttempts returns all attempts ordered by id.
func (s *RecordService) ListAttempts(ctx context.Context) ([]domain.Attempt, error) {
	return s.attempts.ListAttempts(ctx)
}

// GetAttempt returns one attempt.
func (s *RecordService) GetAttempt(ctx context.Context, id int64) (domain.Attempt, error) {
	return s.attempts.FindAttempt(ctx, id)
}

// RecordSubmission stores a submission with its answer mapping.
func (s *RecordService) RecordSubmission(ctx context.Context, in SubmissionInput) (domain.Submission, error) {
	if in.UserID <= 0 || in.QuizID <= 0 || in.Answers == nil || in.Score == nil {
		return domain.Submission{}, domain.Invalid("missing required fields")
	}
	if *in.Score < 0 {
		return domain.Submission{}, domain.Invalid("score must not be negative")
	}
	submission := domain.Submission{
		UserID:  in.UserID,
		QuizID:  in.QuizID,
		Answers: in.Answers,
		Score:   *in.Score,
	}
	if err := s.submissions.InsertSubmission(ctx, &submission); err != nil {
		return domain.Submission{}, err
	}
	s.log.Debug("submission recorded", zap.Int64("submission_id", submission.ID), zap.Int64("quiz_id", submission.QuizID))
	return submission, nil
}

// ListSubmissions returns all submissions, newest first.
func (s *RecordService) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	return s.submissions.ListSubmissions(ctx)
}

// GetSubmission returns one submission.
func (s *RecordService) GetSubmission(ctx context.Context, id int64) (domain.Submission, error) {
	return s.submissions.FindSubmission(ctx, id)
}
