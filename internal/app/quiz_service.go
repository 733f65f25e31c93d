package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"quiz-backend/internal/domain"
)

const (
	maxTitleLength          = 255
	defaultFetchConcurrency = 8
	defaultAssembleTimeout  = 10 * time.Second
)

// QuizStore is the slice of the repository the quiz use cases need.
type QuizStore interface {
	QuizRepository
	QuestionRepository
	OptionRepository
}

// QuizPatch carries the fields of an update; nil fields are left unchanged.
type QuizPatch struct {
	Title       *string
	Description *string
}

// QuizService contains the quiz read, authoring and submit use cases.
type QuizService struct {
	store       QuizStore
	submissions SubmissionRepository
	cache       QuizCache
	feed        *ResultFeed
	log         *zap.Logger
	now         func() time.Time
	fetchLimit  int
	timeout     time.Duration
	sf          singleflight.Group
}

// QuizServiceOption customizes a QuizService.
type QuizServiceOption func(*QuizService)

// WithQuizCache enables read-through caching of assembled quizzes.
func WithQuizCache(cache QuizCache) QuizServiceOption {
	return func(s *QuizService) { s.cache = cache }
}

// WithResultFeed publishes every scored submit to the feed.
func WithResultFeed(feed *ResultFeed) QuizServiceOption {
	return func(s *QuizService) { s.feed = feed }
}

// WithFetchConcurrency bounds the parallel option lookups during assembly.
func WithFetchConcurrency(n int) QuizServiceOption {
	return func(s *QuizService) {
		if n > 0 {
			s.fetchLimit = n
		}
	}
}

func NewQuizService(store QuizStore, submissions SubmissionRepository, log *zap.Logger, opts ...QuizServiceOption) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &QuizService{
		store:       store,
		submissions: submissions,
		log:         log.Named("quiz"),
		now:         time.Now,
		fetchLimit:  defaultFetchConcurrency,
		timeout:     defaultAssembleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListQuizzes returns every quiz ordered by id.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

// CreateQuiz validates and stores a new quiz.
func (s *QuizService) CreateQuiz(ctx context.Context, title, description string) (domain.Quiz, error) {
	quiz := domain.Quiz{Title: strings.TrimSpace(title), Description: description}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.InsertQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// UpdateQuiz applies a patch to an existing quiz.
func (s *QuizService) UpdateQuiz(ctx context.Context, id int64, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.store.FindQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil {
		quiz.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.UpdateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	invalidateQuiz(ctx, s.cache, s.log, id)
	return quiz, nil
}

// DeleteQuiz removes a quiz together with its questions and options.
func (s *QuizService) DeleteQuiz(ctx context.Context, id int64) error {
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	invalidateQuiz(ctx, s.cache, s.log, id)
	return nil
}

// GetQuiz returns the quiz row without its questions.
func (s *QuizService) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	return s.store.FindQuiz(ctx, id)
}

// GetQuizWithQuestions returns the quiz with its questions and their options,
// all ordered by ascending id.
func (s *QuizService) GetQuizWithQuestions(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	if s.cache != nil {
		tree, ok, err := s.cache.GetQuiz(ctx, quizID)
		if err != nil {
			s.log.Warn("quiz cache read failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		} else if ok {
			return tree, nil
		}
	}

	// The shared assembly outlives any single caller; each caller stops
	// waiting when its own context ends.
	ch := s.sf.DoChan(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.assembleAndCache(actx, quizID)
	})
	select {
	case <-ctx.Done():
		return domain.QuizWithQuestions{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.QuizWithQuestions{}, res.Err
		}
		return res.Val.(domain.QuizWithQuestions), nil
	}
}

// assembleAndCache reads the cache version before touching the store so a
// write that lands during assembly keeps the stale tree out of the cache.
func (s *QuizService) assembleAndCache(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	cacheable := s.cache != nil
	var version int64
	if cacheable {
		v, err := s.cache.QuizVersion(ctx, quizID)
		if err != nil {
			s.log.Warn("quiz cache version read failed", zap.Int64("quiz_id", quizID), zap.Error(err))
			cacheable = false
		}
		version = v
	}

	tree, err := s.assemble(ctx, quizID)
	if err != nil {
		return domain.QuizWithQuestions{}, err
	}
	if cacheable {
		if err := s.cache.PutQuiz(ctx, tree, version); err != nil {
			s.log.Warn("quiz cache write failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		}
	}
	return tree, nil
}

// QuestionsForQuiz returns the nested questions of an existing quiz.
func (s *QuizService) QuestionsForQuiz(ctx context.Context, quizID int64) ([]domain.QuestionWithOptions, error) {
	tree, err := s.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return tree.Questions, nil
}

// Submit scores answers against the quiz. When userID is set the result is
// stored as a submission under that user.
func (s *QuizService) Submit(ctx context.Context, quizID, userID int64, answers domain.Answers) (domain.ScoreResult, error) {
	if answers == nil {
		answers = domain.Answers{}
	}
	tree, err := s.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	result, err := Score(tree.Questions, answers)
	if err != nil {
		s.log.Error("quiz cannot be scored", zap.Int64("quiz_id", quizID), zap.Error(err))
		return domain.ScoreResult{}, err
	}

	if userID != 0 && s.submissions != nil {
		submission := domain.Submission{
			UserID:  userID,
			QuizID:  quizID,
			Answers: answers,
			Score:   result.Score,
		}
		if err := s.submissions.InsertSubmission(ctx, &submission); err != nil {
			return domain.ScoreResult{}, fmt.Errorf("record submission: %w", err)
		}
	}

	if s.feed != nil {
		s.feed.Publish(domain.ScoreEvent{
			QuizID:   quizID,
			UserID:   userID,
			Score:    result.Score,
			Total:    len(tree.Questions),
			Win:      result.Win,
			ScoredAt: s.now().UTC(),
		})
	}
	return result, nil
}

func (s *QuizService) assemble(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	quiz, err := s.store.FindQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizWithQuestions{}, err
	}
	questions, err := s.store.ListQuestionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizWithQuestions{}, fmt.Errorf("list questions for quiz %d: %w", quizID, err)
	}
	nested, err := attachOptions(ctx, s.store, questions, s.fetchLimit)
	if err != nil {
		return domain.QuizWithQuestions{}, err
	}
	return domain.QuizWithQuestions{Quiz: quiz, Questions: nested}, nil
}

// attachOptions loads the options of every question concurrently. Either all
// lookups succeed or the first error is returned and nothing is.
func attachOptions(ctx context.Context, options OptionRepository, questions []domain.Question, limit int) ([]domain.QuestionWithOptions, error) {
	nested := make([]domain.QuestionWithOptions, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, q := range questions {
		g.Go(func() error {
			opts, err := options.ListOptionsByQuestion(gctx, q.ID)
			if err != nil {
				return fmt.Errorf("list options for question %d: %w", q.ID, err)
			}
			if opts == nil {
				opts = []domain.Option{}
			}
			nested[i] = domain.QuestionWithOptions{Question: q, Options: opts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nested, nil
}

func validateQuiz(quiz domain.Quiz) error {
	if quiz.Title == "" {
		return domain.Invalid("title is required")
	}
	if len(quiz.Title) > maxTitleLength {
		return domain.Invalid("title must be at most %d characters", maxTitleLength)
	}
	return nil
}

func invalidateQuiz(ctx context.Context, cache QuizCache, log *zap.Logger, quizID int64) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateQuiz(ctx, quizID); err != nil {
		log.Warn("quiz cache invalidation failed", zap.Int64("quiz_id", quizID), zap.Error(err))
	}
}
