// Package scheduler fires the fixed-interval triggers that enqueue pipeline
// jobs. Triggers are fire-and-forget: they never wait on job completion, so
// overlapping runs of a job are possible and safe — every operation is
// idempotent through the dedup gate, the classified flag or full recompute.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Fixed trigger intervals.
const (
	CollectAllInterval      = 6 * time.Hour
	CollectNewsInterval     = 2 * time.Hour
	CollectChannelsInterval = 1 * time.Hour
	ClassifyInterval        = 30 * time.Minute
	UpdateMetricsInterval   = 1 * time.Hour
)

// enqueueTimeout bounds how long a firing trigger may block on the queue.
const enqueueTimeout = 10 * time.Second

// Scheduler owns the cron entries and the queue handoff.
type Scheduler struct {
	cron   *cron.Cron
	queue  radar.Queue
	clock  radar.Clock
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New constructs a Scheduler.
func New(queue radar.Queue, clock radar.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		queue:   queue,
		clock:   clock,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register arms a named interval trigger that enqueues the given job template
// on every firing. Re-registering a name replaces the prior entry, which makes
// registration idempotent across restarts.
func (s *Scheduler) Register(name string, every time.Duration, template radar.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), func() {
		s.fire(name, template)
	})
	if err != nil {
		return fmt.Errorf("register trigger %q: %w", name, err)
	}
	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old)
	}
	s.entries[name] = id
	s.logger.Info("trigger registered",
		zap.String("trigger", name),
		zap.Duration("every", every),
	)
	return nil
}

// RegisterDefaults arms the five standing triggers.
func (s *Scheduler) RegisterDefaults(batchSize int) error {
	defaults := []struct {
		name     string
		every    time.Duration
		template radar.Job
	}{
		{"collect_all", CollectAllInterval, radar.Job{Name: radar.JobCollectAll}},
		{"collect_news", CollectNewsInterval, radar.Job{Name: radar.JobCollectByType, SourceType: radar.SourceNews}},
		{"collect_channels", CollectChannelsInterval, radar.Job{Name: radar.JobCollectByType, SourceType: radar.SourceChannel}},
		{"classify", ClassifyInterval, radar.Job{Name: radar.JobClassifyBatch, BatchSize: batchSize}},
		{"update_metrics", UpdateMetricsInterval, radar.Job{Name: radar.JobUpdateMetrics}},
	}
	for _, d := range defaults {
		if err := s.Register(d.name, d.every, d.template); err != nil {
			return err
		}
	}
	return nil
}

// Start begins firing triggers.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("triggers", len(s.entries)))
}

// Stop stops the trigger loop and waits for in-flight firings.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// fire enqueues one job instance for the trigger and returns immediately.
func (s *Scheduler) fire(name string, template radar.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	job := template
	job.ID = uuid.NewString()
	job.Submitted = s.clock.Now()

	jobID, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		s.logger.Error("trigger enqueue failed",
			zap.String("trigger", name),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("job enqueued",
		zap.String("trigger", name),
		zap.String("job_id", jobID),
		zap.String("job", string(job.Name)),
	)
}
