package memory

import (
	"context"
	"time"

	"quiz-backend/internal/domain"
)

// SetClock replaces the time source used for created_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = now
}

// Seed inserts complete quiz trees. Ids in the input are ignored; the stored
// trees are returned with their assigned ids.
func (s *Store) Seed(ctx context.Context, trees ...domain.QuizWithQuestions) ([]domain.QuizWithQuestions, error) {
	out := make([]domain.QuizWithQuestions, 0, len(trees))
	for _, tree := range trees {
		quiz := tree.Quiz
		if err := s.InsertQuiz(ctx, &quiz); err != nil {
			return nil, err
		}
		stored := domain.QuizWithQuestions{Quiz: quiz, Questions: make([]domain.QuestionWithOptions, 0, len(tree.Questions))}
		for _, q := range tree.Questions {
			question := domain.Question{QuizID: quiz.ID, Text: q.Text}
			if err := s.InsertQuestion(ctx, &question); err != nil {
				return nil, err
			}
			nested := domain.QuestionWithOptions{Question: question, Options: make([]domain.Option, 0, len(q.Options))}
			for _, o := range q.Options {
				option := domain.Option{QuestionID: question.ID, Text: o.Text, IsCorrect: o.IsCorrect}
				if err := s.InsertOption(ctx, &option); err != nil {
					return nil, err
				}
				nested.Options = append(nested.Options, option)
			}
			stored.Questions = append(stored.Questions, nested)
		}
		out = append(out, stored)
	}
	return out, nil
}

// SampleQuizzes is the content loaded in demo mode.
func SampleQuizzes() []domain.QuizWithQuestions {
	return []domain.QuizWithQuestions{
		{
			Quiz: domain.Quiz{Title: "Warm-up", Description: "A short arithmetic check"},
			Questions: []domain.QuestionWithOptions{
				{
					Question: domain.Question{Text: "What is 2 + 2?"},
					Options: []domain.Option{
						{Text: "3"},
						{Text: "4", IsCorrect: true},
						{Text: "5"},
					},
				},
				{
					Question: domain.Question{Text: "What is 3 x 3?"},
					Options: []domain.Option{
						{Text: "6"},
						{Text: "9", IsCorrect: true},
					},
				},
			},
		},
	}
}
