package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quiz-backend/internal/domain"
)

func TestQuizCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewQuizCache(newClient(mr), time.Minute)
	ctx := context.Background()

	if _, ok, err := cache.GetQuiz(ctx, 1); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.PutQuiz(ctx, sampleTree(), 0); err != nil {
		t.Fatalf("put quiz: %v", err)
	}
	if !mr.Exists("quiz:1:tree") {
		t.Fatalf("expected key quiz:1:tree to be written")
	}

	got, ok, err := cache.GetQuiz(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Title != "Warm-up" || len(got.Questions) != 1 || len(got.Questions[0].Options) != 2 {
		t.Fatalf("unexpected cached tree: %+v", got)
	}
	if !got.Questions[0].Options[1].IsCorrect || got.Questions[0].Options[1].ID != 101 {
		t.Fatalf("option flags lost: %+v", got.Questions[0].Options)
	}
}

func TestQuizCacheAppliesJitteredTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ttl := 10 * time.Minute
	cache := NewQuizCache(newClient(mr), ttl)
	if err := cache.PutQuiz(context.Background(), sampleTree(), 0); err != nil {
		t.Fatalf("put quiz: %v", err)
	}

	got := mr.TTL("quiz:1:tree")
	if got < ttl || got > ttl+ttl/10 {
		t.Fatalf("expected ttl within [%s, %s], got %s", ttl, ttl+ttl/10, got)
	}

	mr.FastForward(ttl + ttl/10 + time.Second)
	if _, ok, _ := cache.GetQuiz(context.Background(), 1); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewQuizCache(newClient(mr), 0)
	ctx := context.Background()
	if err := cache.PutQuiz(ctx, sampleTree(), 0); err != nil {
		t.Fatalf("put quiz: %v", err)
	}
	if mr.TTL("quiz:1:tree") != 0 {
		t.Fatalf("expected no expiry without a ttl")
	}
	if err := cache.InvalidateQuiz(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.GetQuiz(ctx, 1); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestQuizCacheSkipsWritesAfterInvalidation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewQuizCache(newClient(mr), time.Minute)
	ctx := context.Background()

	before, err := cache.QuizVersion(ctx, 1)
	if err != nil || before != 0 {
		t.Fatalf("expected version 0, got %d err=%v", before, err)
	}
	if err := cache.InvalidateQuiz(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	after, err := cache.QuizVersion(ctx, 1)
	if err != nil || after != 1 {
		t.Fatalf("expected version 1, got %d err=%v", after, err)
	}

	if err := cache.PutQuiz(ctx, sampleTree(), before); err != nil {
		t.Fatalf("stale put must be skipped silently: %v", err)
	}
	if mr.Exists("quiz:1:tree") {
		t.Fatalf("tree assembled before invalidation was cached")
	}

	if err := cache.PutQuiz(ctx, sampleTree(), after); err != nil {
		t.Fatalf("put quiz: %v", err)
	}
	if !mr.Exists("quiz:1:tree") {
		t.Fatalf("current tree was not cached")
	}
}

func TestQuizCacheReportsBackendErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	cache := NewQuizCache(newClient(mr), time.Minute)
	mr.Close()

	if _, ok, err := cache.GetQuiz(context.Background(), 1); err == nil || ok {
		t.Fatalf("expected error from closed backend, got ok=%v err=%v", ok, err)
	}
}

func sampleTree() domain.QuizWithQuestions {
	return domain.QuizWithQuestions{
		Quiz: domain.Quiz{ID: 1, Title: "Warm-up"},
		Questions: []domain.QuestionWithOptions{
			{
				Question: domain.Question{ID: 10, QuizID: 1, Text: "What is 2 + 2?"},
				Options: []domain.Option{
					{ID: 100, QuestionID: 10, Text: "3"},
					{ID: 101, QuestionID: 10, Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
}
