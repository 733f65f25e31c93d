package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"quiz-backend/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{ID: r.ID, Title: r.Title, Description: r.Description, CreatedAt: r.CreatedAt.UTC()}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID     int64  `bun:"id,pk,autoincrement"`
	QuizID int64  `bun:"quiz_id,notnull"`
	Text   string `bun:"text,notnull"`
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{ID: r.ID, QuizID: r.QuizID, Text: r.Text}
}

type optionRow struct {
	bun.BaseModel `bun:"table:options,alias:op"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
}

func (r optionRow) toDomain() domain.Option {
	return domain.Option{ID: r.ID, QuestionID: r.QuestionID, Text: r.Text, IsCorrect: r.IsCorrect}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:at"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	QuizID    int64     `bun:"quiz_id,notnull"`
	Score     int       `bun:"score,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{ID: r.ID, UserID: r.UserID, QuizID: r.QuizID, Score: r.Score, CreatedAt: r.CreatedAt.UTC()}
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:sb"`

	ID        int64          `bun:"id,pk,autoincrement"`
	UserID    int64          `bun:"user_id,notnull"`
	QuizID    int64          `bun:"quiz_id,notnull"`
	Answers   domain.Answers `bun:"answers,type:jsonb,notnull"`
	Score     int            `bun:"score,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r submissionRow) toDomain() domain.Submission {
	answers := r.Answers
	if answers == nil {
		answers = domain.Answers{}
	}
	return domain.Submission{
		ID:        r.ID,
		UserID:    r.UserID,
		QuizID:    r.QuizID,
		Answers:   answers,
		Score:     r.Score,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func mapRows[R any, D any](rows []R, conv func(R) D) []D {
	out := make([]D, 0, len(rows))
	for _, row := range rows {
		out = append(out, conv(row))
	}
	return out
}
