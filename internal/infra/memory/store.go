package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-backend/internal/domain"
)

// Store is an in-memory implementation of every app repository. It backs
// the demo mode and serves as the repository double in tests.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	seq         map[string]int64
	users       map[int64]domain.User
	quizzes     map[int64]domain.Quiz
	questions   map[int64]domain.Question
	options     map[int64]domain.Option
	attempts    map[int64]domain.Attempt
	submissions map[int64]domain.Submission
}

func NewStore() *Store {
	return &Store{
		clock:       time.Now,
		seq:         make(map[string]int64),
		users:       make(map[int64]domain.User),
		quizzes:     make(map[int64]domain.Quiz),
		questions:   make(map[int64]domain.Question),
		options:     make(map[int64]domain.Option),
		attempts:    make(map[int64]domain.Attempt),
		submissions: make(map[int64]domain.Submission),
	}
}

// nextIDLocked mimics a per-table bigserial sequence.
func (s *Store) nextIDLocked(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) nowLocked() time.Time {
	return s.clock().UTC()
}

// Users

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = s.nextIDLocked("users")
	user.CreatedAt = s.nowLocked()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) FindUserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Quizzes

func (s *Store) FindQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[id]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.quizzes, func(q domain.Quiz) int64 { return q.ID }), nil
}

func (s *Store) InsertQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = s.nextIDLocked("quizzes")
	quiz.CreatedAt = s.nowLocked()
	s.quizzes[quiz.ID] = *quiz
	return nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.CreatedAt = existing.CreatedAt
	s.quizzes[quiz.ID] = *quiz
	return nil
}

// DeleteQuiz cascades to the quiz's questions and their options.
func (s *Store) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	for qid, question := range s.questions {
		if question.QuizID == id {
			s.deleteQuestionLocked(qid)
		}
	}
	return nil
}

// Questions

func (s *Store) FindQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if question, ok := s.questions[id]; ok {
		return question, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *Store) ListQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.questions, func(q domain.Question) int64 { return q.ID }), nil
}

func (s *Store) ListQuestionsByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedByID(s.questions, func(q domain.Question) int64 { return q.ID })
	out := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) InsertQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	question.ID = s.nextIDLocked("questions")
	s.questions[question.ID] = *question
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.questions[question.ID] = *question
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.deleteQuestionLocked(id)
	return nil
}

func (s *Store) deleteQuestionLocked(id int64) {
	delete(s.questions, id)
	for oid, option := range s.options {
		if option.QuestionID == id {
			delete(s.options, oid)
		}
	}
}

// Options

func (s *Store) FindOption(_ context.Context, id int64) (domain.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if option, ok := s.options[id]; ok {
		return option, nil
	}
	return domain.Option{}, domain.ErrOptionNotFound
}

func (s *Store) ListOptions(_ context.Context) ([]domain.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.options, func(o domain.Option) int64 { return o.ID }), nil
}

func (s *Store) ListOptionsByQuestion(_ context.Context, questionID int64) ([]domain.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedByID(s.options, func(o domain.Option) int64 { return o.ID })
	out := make([]domain.Option, 0, len(all))
	for _, o := range all {
		if o.QuestionID == questionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) InsertOption(_ context.Context, option *domain.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[option.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	if option.IsCorrect && s.hasCorrectOptionLocked(option.QuestionID, 0) {
		return domain.ErrCorrectOptionTaken
	}
	option.ID = s.nextIDLocked("options")
	s.options[option.ID] = *option
	return nil
}

func (s *Store) UpdateOption(_ context.Context, option *domain.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[option.ID]; !ok {
		return domain.ErrOptionNotFound
	}
	if option.IsCorrect && s.hasCorrectOptionLocked(option.QuestionID, option.ID) {
		return domain.ErrCorrectOptionTaken
	}
	s.options[option.ID] = *option
	return nil
}

// hasCorrectOptionLocked mirrors the partial unique index on options.
func (s *Store) hasCorrectOptionLocked(questionID, except int64) bool {
	for _, o := range s.options {
		if o.QuestionID == questionID && o.IsCorrect && o.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) DeleteOption(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[id]; !ok {
		return domain.ErrOptionNotFound
	}
	delete(s.options, id)
	return nil
}

// Attempts

func (s *Store) FindAttempt(_ context.Context, id int64) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if attempt, ok := s.attempts[id]; ok {
		return attempt, nil
	}
	return domain.Attempt{}, domain.ErrAttemptNotFound
}

func (s *Store) ListAttempts(_ context.Context) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.attempts, func(a domain.Attempt) int64 { return a.ID }), nil
}

func (s *Store) InsertAttempt(_ context.Context, attempt *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt.ID = s.nextIDLocked("attempts")
	attempt.CreatedAt = s.nowLocked()
	s.attempts[attempt.ID] = *attempt
	return nil
}

// Submissions

func (s *Store) FindSubmission(_ context.Context, id int64) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if submission, ok := s.submissions[id]; ok {
		return submission, nil
	}
	return domain.Submission{}, domain.ErrSubmissionNotFound
}

// ListSubmissions returns the newest submissions first.
func (s *Store) ListSubmissions(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortedByID(s.submissions, func(sub domain.Submission) int64 { return sub.ID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) InsertSubmission(_ context.Context, submission *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission.ID = s.nextIDLocked("submissions")
	submission.CreatedAt = s.nowLocked()
	answers := make(domain.Answers, len(submission.Answers))
	for k, v := range submission.Answers {
		answers[k] = v
	}
	stored := *submission
	stored.Answers = answers
	s.submissions[submission.ID] = stored
	return nil
}

func sortedByID[T any](rows map[int64]T, id func(T) int64) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}
