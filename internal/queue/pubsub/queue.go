// Package pubsub provides a Google Cloud Pub/Sub backed job queue, for
// deployments where the pipeline's scheduler and workers run in separate
// processes.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Config identifies the topic and subscription used for jobs.
type Config struct {
	ProjectID    string
	TopicName    string
	Subscription string
}

// Queue implements radar.Queue on a Pub/Sub topic/subscription pair.
// Messages are acked on handoff to a worker; a job lost after ack is
// re-produced by its next scheduled trigger.
type Queue struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription

	jobs      chan radar.Job
	startOnce sync.Once
	recvErr   chan error
}

// NewQueue creates a Pub/Sub client using Application Default Credentials and
// verifies the topic exists.
func NewQueue(ctx context.Context, cfg Config) (*Queue, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.TopicName)
	ok, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %q: %w", cfg.TopicName, err)
	}
	if !ok {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", cfg.TopicName, cfg.ProjectID)
	}

	q := &Queue{
		client:  client,
		topic:   topic,
		jobs:    make(chan radar.Job),
		recvErr: make(chan error, 1),
	}
	if cfg.Subscription != "" {
		q.sub = client.Subscription(cfg.Subscription)
	}
	return q, nil
}

// Enqueue publishes the job and waits for the server acknowledgment.
func (q *Queue) Enqueue(ctx context.Context, job radar.Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	result := q.topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return "", fmt.Errorf("publish job: %w", err)
	}
	return job.ID, nil
}

// Dequeue returns the next received job. The first call starts the
// subscription receiver, which runs until the context passed here ends.
func (q *Queue) Dequeue(ctx context.Context) (radar.Job, error) {
	if q.sub == nil {
		return radar.Job{}, fmt.Errorf("pubsub subscription is not configured")
	}
	q.startOnce.Do(func() {
		go func() {
			q.recvErr <- q.sub.Receive(ctx, func(rctx context.Context, m *pubsub.Message) {
				var job radar.Job
				if err := json.Unmarshal(m.Data, &job); err != nil {
					// Unparseable message; drop it rather than redeliver forever.
					m.Ack()
					return
				}
				select {
				case q.jobs <- job:
					m.Ack()
				case <-rctx.Done():
					m.Nack()
				}
			})
		}()
	})

	select {
	case <-ctx.Done():
		return radar.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case err := <-q.recvErr:
		return radar.Job{}, fmt.Errorf("pubsub receive: %w", err)
	case job := <-q.jobs:
		return job, nil
	}
}

// Close stops the publisher and closes the underlying client connection.
func (q *Queue) Close() error {
	q.topic.Stop()
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
