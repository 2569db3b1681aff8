package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dragon-peak/quiz-game-service/internal/models"
)

// ErrCacheMiss is returned when no cached question set exists for a code.
var ErrCacheMiss = errors.New("question set not cached")

// QuestionCache stores resolved remote question sets keyed by learning
// object code so repeated session creations do not re-hit the quiz API.
type QuestionCache interface {
	Get(ctx context.Context, learningObjectCode string) (*models.QuestionSet, error)
	Set(ctx context.Context, learningObjectCode string, qs *models.QuestionSet, ttl time.Duration) error
	Delete(ctx context.Context, learningObjectCode string) error
}

type redisQuestionCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisQuestionCache(client *redis.Client, logger *slog.Logger) QuestionCache {
	return &redisQuestionCache{
		client: client,
		logger: logger,
	}
}

func cacheKey(learningObjectCode string) string {
	return "quiz:questions:" + learningObjectCode
}

func (c *redisQuestionCache) Get(ctx context.Context, learningObjectCode string) (*models.QuestionSet, error) {
	raw, err := c.client.Get(ctx, cacheKey(learningObjectCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read question cache: %w", err)
	}

	var qs models.QuestionSet
	if err := json.Unmarshal(raw, &qs); err != nil {
		// A corrupt entry behaves like a miss; the caller re-fetches.
		c.logger.Warn("Dropping corrupt question cache entry",
			"learning_object_code", learningObjectCode,
			"error", err)
		_ = c.client.Del(ctx, cacheKey(learningObjectCode)).Err()
		return nil, ErrCacheMiss
	}

	return &qs, nil
}

func (c *redisQuestionCache) Set(ctx context.Context, learningObjectCode string, qs *models.QuestionSet, ttl time.Duration) error {
	raw, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("failed to marshal question set: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(learningObjectCode), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write question cache: %w", err)
	}
	return nil
}

func (c *redisQuestionCache) Delete(ctx context.Context, learningObjectCode string) error {
	return c.client.Del(ctx, cacheKey(learningObjectCode)).Err()
}

// NoopQuestionCache is used when no redis is configured; every lookup is
// a miss.
type NoopQuestionCache struct{}

func (NoopQuestionCache) Get(ctx context.Context, learningObjectCode string) (*models.QuestionSet, error) {
	return nil, ErrCacheMiss
}

func (NoopQuestionCache) Set(ctx context.Context, learningObjectCode string, qs *models.QuestionSet, ttl time.Duration) error {
	return nil
}

func (NoopQuestionCache) Delete(ctx context.Context, learningObjectCode string) error {
	return nil
}
