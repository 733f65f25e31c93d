package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-backend/internal/domain"
)

// QuizCache keeps assembled quiz trees as JSON strings under quiz:{id}:tree.
// Entries expire after the configured TTL plus up to 10% jitter so that a
// batch of trees warmed together does not expire together.
//
// quiz:{id}:version is bumped on every invalidation. A tree is only written
// while the version still matches the one read before it was assembled.
type QuizCache struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, quizID int64) (domain.QuizWithQuestions, bool, error) {
	raw, err := c.client.Get(ctx, treeKey(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizWithQuestions{}, false, nil
	}
	if err != nil {
		return domain.QuizWithQuestions{}, false, fmt.Errorf("get cached quiz %d: %w", quizID, err)
	}
	var tree domain.QuizWithQuestions
	if err := json.Unmarshal(raw, &tree); err != nil {
		return domain.QuizWithQuestions{}, false, fmt.Errorf("decode cached quiz %d: %w", quizID, err)
	}
	return tree, true, nil
}

// QuizVersion returns the invalidation counter of a quiz, 0 when never bumped.
func (c *QuizCache) QuizVersion(ctx context.Context, quizID int64) (int64, error) {
	version, err := c.client.Get(ctx, versionKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quiz %d version: %w", quizID, err)
	}
	return version, nil
}

// PutQuiz stores the tree unless the quiz was invalidated after version was
// read. A skipped write is not an error.
func (c *QuizCache) PutQuiz(ctx context.Context, tree domain.QuizWithQuestions, version int64) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode quiz %d: %w", tree.ID, err)
	}
	vkey := versionKey(tree.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, treeKey(tree.ID), raw, c.ttlWithJitter())
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache quiz %d: %w", tree.ID, err)
	}
	return nil
}

func (c *QuizCache) InvalidateQuiz(ctx context.Context, quizID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(quizID))
		pipe.Del(ctx, treeKey(quizID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate quiz %d: %w", quizID, err)
	}
	return nil
}

func treeKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":tree"
}

func versionKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":version"
}

// ttlWithJitter returns 0 (no expiry) when no TTL is configured.
func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
