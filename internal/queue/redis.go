package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

const (
	readyKey   = "match_jobs"
	delayedKey = "match_jobs_delayed"
)

// RedisQueue хранит готовые задачи в списке, отложенные в ZSET со сроком в score
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job models.MatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal match job: %w", err)
	}
	if err := q.client.LPush(ctx, readyKey, payload).Err(); err != nil {
		return e.WrapError(ctx, "queue.Enqueue", err)
	}
	return nil
}

func (q *RedisQueue) Schedule(ctx context.Context, job models.MatchJob, at time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal match job: %w", err)
	}
	member := redis.Z{Score: float64(at.UnixMilli()), Member: payload}
	if err := q.client.ZAdd(ctx, delayedKey, member).Err(); err != nil {
		return e.WrapError(ctx, "queue.Schedule", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (models.MatchJob, error) {
	result, err := q.client.BRPop(ctx, pollTimeout, readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.MatchJob{}, e.ErrQueueEmpty
		}
		return models.MatchJob{}, e.WrapError(ctx, "queue.Dequeue", err)
	}

	// result[0] - ключ, result[1] - значение
	var job models.MatchJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return models.MatchJob{}, fmt.Errorf("failed to unmarshal match job: %w", err)
	}
	return job, nil
}

// PromoteDue безопасен для нескольких процессов: задачу переносит тот, чей ZREM ее удалил
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, e.WrapError(ctx, "queue.PromoteDue", err)
	}

	promoted := 0
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return promoted, e.WrapError(ctx, "queue.PromoteDue", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, readyKey, member).Err(); err != nil {
			return promoted, e.WrapError(ctx, "queue.PromoteDue", err)
		}
		promoted++
	}
	return promoted, nil
}
