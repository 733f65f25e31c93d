package app

import (
	"context"

	"quiz-backend/internal/domain"
)

// UserRepository is the credential store. CreateUser must report a duplicate
// username as domain.ErrUsernameTaken.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByUsername(ctx context.Context, username string) (domain.User, error)
	FindUserByID(ctx context.Context, id int64) (domain.User, error)
}

// QuizRepository persists quizzes. Deleting a quiz removes its questions and
// their options.
type QuizRepository interface {
	FindQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	InsertQuiz(ctx context.Context, quiz *domain.Quiz) error
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuestionRepository persists questions. Lists are ordered by ascending id.
type QuestionRepository interface {
	FindQuestion(ctx context.Context, id int64) (domain.Question, error)
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)
	InsertQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
}

// OptionRepository persists options. Lists are ordered by ascending id.
type OptionRepository interface {
	FindOption(ctx context.Context, id int64) (domain.Option, error)
	ListOptions(ctx context.Context) ([]domain.Option, error)
	ListOptionsByQuestion(ctx context.Context, questionID int64) ([]domain.Option, error)
	InsertOption(ctx context.Context, option *domain.Option) error
	UpdateOption(ctx context.Context, option *domain.Option) error
	DeleteOption(ctx context.Context, id int64) error
}

// AttemptRepository persists attempts.
type AttemptRepository interface {
	FindAttempt(ctx context.Context, id int64) (domain.Attempt, error)
	ListAttempts(ctx context.Context) ([]domain.Attempt, error)
	InsertAttempt(ctx context.Context, attempt *domain.Attempt) error
}

// SubmissionRepository persists submissions. ListSubmissions returns the
// newest first.
type SubmissionRepository interface {
	FindSubmission(ctx context.Context, id int64) (domain.Submission, error)
	ListSubmissions(ctx context.Context) ([]domain.Submission, error)
	InsertSubmission(ctx context.Context, submission *domain.Submission) error
}

// QuizCache stores assembled quiz trees. Implementations are best effort:
// a miss is reported with ok=false, never as an error. InvalidateQuiz bumps
// the quiz version, and PutQuiz drops a tree assembled under an older one.
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizWithQuestions, bool, error)
	QuizVersion(ctx context.Context, quizID int64) (int64, error)
	PutQuiz(ctx context.Context, quiz domain.QuizWithQuestions, version int64) error
	InvalidateQuiz(ctx context.Context, quizID int64) error
}
