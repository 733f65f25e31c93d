package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"quiz-backend/internal/domain"
)

// Store persists quiz content, attempts and submissions through bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Quizzes

func (s *Store) FindQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var row quizRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound, "find quiz")
	}
	return row.toDomain(), nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return mapRows(rows, quizRow.toDomain), nil
}

func (s *Store) InsertQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := quizRow{Title: quiz.Title, Description: quiz.Description}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	*quiz = row.toDomain()
	return nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := quizRow{ID: quiz.ID, Title: quiz.Title, Description: quiz.Description}
	res, err := s.db.NewUpdate().Model(&row).Column("title", "description").WherePK().Returning("*").Exec(ctx)
	if err := affected(res, err, domain.ErrQuizNotFound, "update quiz"); err != nil {
		return err
	}
	*quiz = row.toDomain()
	return nil
}

// DeleteQuiz relies on the ON DELETE CASCADE foreign keys for questions and options.
func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuizNotFound, "delete quiz")
}

// Questions

func (s *Store) FindQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var row questionRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound, "find question")
	}
	return row.toDomain(), nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	var rows []questionRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return mapRows(rows, questionRow.toDomain), nil
}

func (s *Store) ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().Model(&rows).Where("quiz_id = ?", quizID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions of quiz %d: %w", quizID, err)
	}
	return mapRows(rows, questionRow.toDomain), nil
}

func (s *Store) InsertQuestion(ctx context.Context, question *domain.Question) error {
	row := questionRow{QuizID: question.QuizID, Text: question.Text}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return foreignKey(err, domain.ErrQuizNotFound, "insert question")
	}
	*question = row.toDomain()
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	row := questionRow{ID: question.ID, QuizID: question.QuizID, Text: question.Text}
	res, err := s.db.NewUpdate().Model(&row).Column("quiz_id", "text").WherePK().Exec(ctx)
	if err != nil {
		return foreignKey(err, domain.ErrQuizNotFound, "update question")
	}
	return affected(res, nil, domain.ErrQuestionNotFound, "update question")
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound, "delete question")
}

// Options

func (s *Store) FindOption(ctx context.Context, id int64) (domain.Option, error) {
	var row optionRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Option{}, notFound(err, domain.ErrOptionNotFound, "find option")
	}
	return row.toDomain(), nil
}

func (s *Store) ListOptions(ctx context.Context) ([]domain.Option, error) {
	var rows []optionRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	return mapRows(rows, optionRow.toDomain), nil
}

func (s *Store) ListOptionsByQuestion(ctx context.Context, questionID int64) ([]domain.Option, error) {
	var rows []optionRow
	err := s.db.NewSelect().Model(&rows).Where("question_id = ?", questionID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list options of question %d: %w", questionID, err)
	}
	return mapRows(rows, optionRow.toDomain), nil
}

func (s *Store) InsertOption(ctx context.Context, option *domain.Option) error {
	row := optionRow{QuestionID: option.QuestionID, Text: option.Text, IsCorrect: option.IsCorrect}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		if isCorrectOptionConflict(err) {
			return domain.ErrCorrectOptionTaken
		}
		return foreignKey(err, domain.ErrQuestionNotFound, "insert option")
	}
	*option = row.toDomain()
	return nil
}

func (s *Store) UpdateOption(ctx context.Context, option *domain.Option) error {
	row := optionRow{ID: option.ID, QuestionID: option.QuestionID, Text: option.Text, IsCorrect: option.IsCorrect}
	res, err := s.db.NewUpdate().Model(&row).Column("text", "is_correct").WherePK().Exec(ctx)
	if isCorrectOptionConflict(err) {
		return domain.ErrCorrectOptionTaken
	}
	return affected(res, err, domain.ErrOptionNotFound, "update option")
}

func (s *Store) DeleteOption(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*optionRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrOptionNotFound, "delete option")
}

// Attempts

func (s *Store) FindAttempt(ctx context.Context, id int64) (domain.Attempt, error) {
	var row attemptRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Attempt{}, notFound(err, domain.ErrAttemptNotFound, "find attempt")
	}
	return row.toDomain(), nil
}

func (s *Store) ListAttempts(ctx context.Context) ([]domain.Attempt, error) {
	var rows []attemptRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return mapRows(rows, attemptRow.toDomain), nil
}

func (s *Store) InsertAttempt(ctx context.Context, attempt *domain.Attempt) error {
	row := attemptRow{UserID: attempt.UserID, QuizID: attempt.QuizID, Score: attempt.Score}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	*attempt = row.toDomain()
	return nil
}

// Submissions

func (s *Store) FindSubmission(ctx context.Context, id int64) (domain.Submission, error) {
	var row submissionRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Submission{}, notFound(err, domain.ErrSubmissionNotFound, "find submission")
	}
	return row.toDomain(), nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	var rows []submissionRow
	if err := s.db.NewSelect().Model(&rows).Order("created_at DESC", "id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return mapRows(rows, submissionRow.toDomain), nil
}

func (s *Store) InsertSubmission(ctx context.Context, submission *domain.Submission) error {
	answers := submission.Answers
	if answers == nil {
		answers = domain.Answers{}
	}
	row := submissionRow{UserID: submission.UserID, QuizID: submission.QuizID, Answers: answers, Score: submission.Score}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	*submission = row.toDomain()
	return nil
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected maps a write that touched no rows to the entity's not-found error.
func affected(res sql.Result, err, sentinel error, op string) error {
	if err != nil {
		return notFound(err, sentinel, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

const (
	foreignKeyViolation = "23503"
	correctOptionIndex  = "options_one_correct_per_question"
)

// isCorrectOptionConflict reports a second correct option caught by the
// partial unique index.
func isCorrectOptionConflict(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation && pgErr.Field('n') == correctOptionIndex
}

func foreignKey(err, parent error, op string) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == foreignKeyViolation {
		return parent
	}
	return fmt.Errorf("%s: %w", op, err)
}
