// Package redis provides a Redis-list-backed job queue: LPUSH to enqueue,
// blocking BRPOP to dequeue. Delivery is at least once; a worker that dies
// after popping loses the job until its next scheduled trigger re-produces it,
// which matches the pipeline's periodic-retry recovery model.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

const defaultKey = "radar:jobs"

// Config controls the Redis connection and queue key.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Queue implements radar.Queue on a Redis list.
type Queue struct {
	client *redis.Client
	key    string
}

// NewQueue connects to Redis and pings it to fail fast on a bad address.
func NewQueue(ctx context.Context, cfg Config) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	key := cfg.Key
	if key == "" {
		key = defaultKey
	}
	return &Queue{client: client, key: key}, nil
}

// Enqueue serializes the job and pushes it onto the list.
func (q *Queue) Enqueue(ctx context.Context, job radar.Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return "", fmt.Errorf("lpush job: %w", err)
	}
	return job.ID, nil
}

// Dequeue blocks until a job is available or the context ends.
func (q *Queue) Dequeue(ctx context.Context) (radar.Job, error) {
	res, err := q.client.BRPop(ctx, 0, q.key).Result()
	if err != nil {
		return radar.Job{}, fmt.Errorf("brpop job: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return radar.Job{}, fmt.Errorf("unexpected brpop reply of %d elements", len(res))
	}
	var job radar.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return radar.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, nil
}

// Close releases the client connection.
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
