package domain

import "time"

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated principal carried by a bearer token.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Quiz is a named collection of questions.
type Quiz struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Question belongs to a quiz and owns its options.
type Question struct {
	ID     int64  `json:"id"`
	QuizID int64  `json:"quiz_id"`
	Text   string `json:"text"`
}

// Option is one selectable answer for a question.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// QuestionWithOptions is a question with its options ordered by id.
type QuestionWithOptions struct {
	Question
	Options []Option `json:"options"`
}

// QuizWithQuestions is the fully assembled quiz tree.
type QuizWithQuestions struct {
	Quiz
	Questions []QuestionWithOptions `json:"questions"`
}

// Answers maps a question id to the selected option id.
type Answers map[int64]int64

// ScoreResult is the outcome of scoring one set of answers.
type ScoreResult struct {
	Score          int     `json:"score"`
	CorrectAnswers []int64 `json:"correctAnswers"`
	Win            bool    `json:"win"`
}

// Attempt is a coarse score-only record of a quiz completion.
type Attempt struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	QuizID    int64     `json:"quiz_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission records the full answer mapping along with the score.
type Submission struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	QuizID    int64     `json:"quiz_id"`
	Answers   Answers   `json:"answers"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoreEvent is published to live subscribers of a quiz after a submit.
type ScoreEvent struct {
	QuizID   int64     `json:"quizId"`
	UserID   int64     `json:"userId,omitempty"`
	Score    int       `json:"score"`
	Total    int       `json:"total"`
	Win      bool      `json:"win"`
	ScoredAt time.Time `json:"scoredAt"`
}
