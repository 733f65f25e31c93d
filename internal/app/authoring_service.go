package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"quiz-backend/internal/domain"
)

// QuestionPatch carries the fields of a question update.
type QuestionPatch struct {
	QuizID *int64
	Text   *string
}

// OptionPatch carries the fields of an option update.
type OptionPatch struct {
	Text      *string
	IsCorrect *bool
}

// AuthoringService manages questions and options. Every write drops the
// cached tree of the quiz it touches.
type AuthoringService struct {
	store QuizStore
	cache QuizCache
	log   *zap.Logger
	limit int
}

func NewAuthoringService(store QuizStore, cache QuizCache, log *zap.Logger) *AuthoringService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthoringService{store: store, cache: cache, log: log.Named("authoring"), limit: defaultFetchConcurrency}
}

// ListQuestions returns every question with its options.
func (s *AuthoringService) ListQuestions(ctx context.Context) ([]domain.QuestionWithOptions, error) {
	questions, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return attachOptions(ctx, s.store, questions, s.limit)
}

// GetQuestion returns one question with its options.
func (s *AuthoringService) GetQuestion(ctx context.Context, id int64) (domain.QuestionWithOptions, error) {
	question, err := s.store.FindQuestion(ctx, id)
	if err != nil {
		return domain.QuestionWithOptions{}, err
	}
	nested, err := attachOptions(ctx, s.store, []domain.Question{question}, 1)
	if err != nil {
		return domain.QuestionWithOptions{}, err
	}
	return nested[0], nil
}

// CreateQuestion adds a question to an existing quiz.
func (s *AuthoringService) CreateQuestion(ctx context.Context, quizID int64, text string) (domain.Question, error) {
	question := domain.Question{QuizID: quizID, Text: strings.TrimSpace(text)}
	if err := s.validateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.store.InsertQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	invalidateQuiz(ctx, s.cache, s.log, quizID)
	return question, nil
}

// UpdateQuestion edits a question, possibly moving it to another quiz.
func (s *AuthoringService) UpdateQuestion(ctx context.Context, id int64, patch QuestionPatch) (domain.Question, error) {
	question, err := s.store.FindQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	previousQuiz := question.QuizID
	if patch.QuizID != nil {
		question.QuizID = *patch.QuizID
	}
	if patch.Text != nil {
		question.Text = strings.TrimSpace(*patch.Text)
	}
	if err := s.validateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.store.UpdateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	invalidateQuiz(ctx, s.cache, s.log, previousQuiz)
	if question.QuizID != previousQuiz {
		invalidateQuiz(ctx, s.cache, s.log, question.QuizID)
	}
	return question, nil
}

// DeleteQuestion removes a question and its options.
func (s *AuthoringService) DeleteQuestion(ctx context.Context, id int64) error {
	question, err := s.store.FindQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	invalidateQuiz(ctx, s.cache, s.log, question.QuizID)
	return nil
}

// ListOptions returns all options, or only those of one question when
// questionID is non-zero.
func (s *AuthoringService) ListOptions(ctx context.Context, questionID int64) ([]domain.Option, error) {
	if questionID == 0 {
		return s.store.ListOptions(ctx)
	}
	if _, err := s.store.FindQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.store.ListOptionsByQuestion(ctx, questionID)
}

// GetOption returns one option.
func (s *AuthoringService) GetOption(ctx context.Context, id int64) (domain.Option, error) {
	return s.store.FindOption(ctx, id)
}

// CreateOption adds an option to an existing question.
func (s *AuthoringService) CreateOption(ctx context.Context, questionID int64, text string, isCorrect bool) (domain.Option, error) {
	option := domain.Option{QuestionID: questionID, Text: strings.TrimSpace(text), IsCorrect: isCorrect}
	question, err := s.validateOption(ctx, option)
	if err != nil {
		return domain.Option{}, err
	}
	if err := s.store.InsertOption(ctx, &option); err != nil {
		return domain.Option{}, err
	}
	invalidateQuiz(ctx, s.cache, s.log, question.QuizID)
	return option, nil
}

// UpdateOption edits the text or correctness of an option.
func (s *AuthoringService) UpdateOption(ctx context.Context, id int64, patch OptionPatch) (domain.Option, error) {
	option, err := s.store.FindOption(ctx, id)
	if err != nil {
		return domain.Option{}, err
	}
	if patch.Text != nil {
		option.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.IsCorrect != nil {
		option.IsCorrect = *patch.IsCorrect
	}
	question, err := s.validateOption(ctx, option)
	if err != nil {
		return domain.Option{}, err
	}
	if err := s.store.UpdateOption(ctx, &option); err != nil {
		return domain.Option{}, err
	}
	invalidateQuiz(ctx, s.cache, s.log, question.QuizID)
	return option, nil
}

// DeleteOption removes an option.
func (s *AuthoringService) DeleteOption(ctx context.Context, id int64) error {
	option, err := s.store.FindOption(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteOption(ctx, id); err != nil {
		return err
	}
	if question, err := s.store.FindQuestion(ctx, option.QuestionID); err == nil {
		invalidateQuiz(ctx, s.cache, s.log, question.QuizID)
	}
	return nil
}

func (s *AuthoringService) validateQuestion(ctx context.Context, question domain.Question) error {
	if question.Text == "" {
		return domain.Invalid("text is required")
	}
	if question.QuizID <= 0 {
		return domain.Invalid("quiz_id is required")
	}
	if _, err := s.store.FindQuiz(ctx, question.QuizID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("quiz %d does not exist", question.QuizID)
		}
		return err
	}
	return nil
}

// validateOption checks the option fields and that its question keeps at
// most one correct option. It returns the owning question.
func (s *AuthoringService) validateOption(ctx context.Context, option domain.Option) (domain.Question, error) {
	if option.Text == "" {
		return domain.Question{}, domain.Invalid("text is required")
	}
	if option.QuestionID <= 0 {
		return domain.Question{}, domain.Invalid("question_id is required")
	}
	question, err := s.store.FindQuestion(ctx, option.QuestionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Question{}, domain.Invalid("question %d does not exist", option.QuestionID)
		}
		return domain.Question{}, err
	}
	if !option.IsCorrect {
		return question, nil
	}
	siblings, err := s.store.ListOptionsByQuestion(ctx, option.QuestionID)
	if err != nil {
		return domain.Question{}, err
	}
	for _, sibling := range siblings {
		if sibling.IsCorrect && sibling.ID != option.ID {
			return domain.Question{}, domain.Invalid("question %d already has a correct option", option.QuestionID)
		}
	}
	return question, nil
}
