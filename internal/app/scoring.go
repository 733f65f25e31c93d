package app

import (
	"fmt"

	"quiz-backend/internal/domain"
)

// Score compares the submitted answers with each question's correct option.
// Only correct options the learner picked are listed in CorrectAnswers. Win
// requires every question to be answered correctly, so a quiz without
// questions is always won. A question without a correct option fails the
// whole call.
func Score(questions []domain.QuestionWithOptions, answers domain.Answers) (domain.ScoreResult, error) {
	result := domain.ScoreResult{CorrectAnswers: []int64{}}
	for _, q := range questions {
		correct, ok := correctOption(q)
		if !ok {
			return domain.ScoreResult{}, fmt.Errorf("question %d: %w", q.ID, domain.ErrNoCorrectOption)
		}
		selected, answered := answers[q.ID]
		if answered && selected == correct.ID {
			result.Score++
			result.CorrectAnswers = append(result.CorrectAnswers, correct.ID)
		}
	}
	result.Win = result.Score == len(questions)
	return result, nil
}

// correctOption returns the first option flagged correct. Options are kept in
// ascending id order, so legacy rows with several flags resolve to the oldest.
func correctOption(q domain.QuestionWithOptions) (domain.Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return domain.Option{}, false
}
