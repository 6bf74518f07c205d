// Package worker implements the bounded worker pool that executes pipeline
// jobs pulled from the queue.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/metrics"
	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// CollectRunner executes collection jobs.
type CollectRunner interface {
	Collect(ctx context.Context, t radar.SourceType) (int, error)
	CollectAll(ctx context.Context) (int, error)
}

// ClassifyRunner executes classification jobs.
type ClassifyRunner interface {
	ClassifyBatch(ctx context.Context, batchSize int) (int, error)
}

// AggregateRunner executes metrics recomputation jobs.
type AggregateRunner interface {
	RecomputeAll(ctx context.Context) (int, error)
}

// Config bounds pool behavior.
type Config struct {
	// MaxJobs is the number of concurrently executing jobs.
	MaxJobs int
	// JobTimeout terminates a job that runs past its budget.
	JobTimeout time.Duration
	// DefaultBatchSize is used for classify jobs that carry no batch size.
	DefaultBatchSize int
}

// Pool consumes queue items and dispatches them by job name.
type Pool struct {
	queue     radar.Queue
	collect   CollectRunner
	classify  ClassifyRunner
	aggregate AggregateRunner
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Pool.
func New(
	queue radar.Queue,
	collect CollectRunner,
	classify ClassifyRunner,
	aggregate AggregateRunner,
	cfg Config,
	logger *zap.Logger,
) *Pool {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 50
	}
	return &Pool{
		queue:     queue,
		collect:   collect,
		classify:  classify,
		aggregate: aggregate,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items with MaxJobs workers until the context
// finishes.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.MaxJobs; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			p.runWorker(ctx, index)
		}(i)
	}
	<-ctx.Done()
	wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, index int) {
	logger := p.logger.With(zap.Int("worker", index))
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		p.processJob(ctx, job, logger)
	}
}

// processJob runs one job under the pool's timeout. A timed-out or failed job
// is not retried here; the next scheduled trigger produces a fresh attempt.
func (p *Pool) processJob(ctx context.Context, job radar.Job, logger *zap.Logger) {
	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	metrics.WorkerStarted()
	defer metrics.WorkerStopped()

	start := time.Now()
	count, err := p.dispatch(jobCtx, job)
	elapsed := time.Since(start)

	status := "succeeded"
	if err != nil {
		status = "failed"
		logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.String("job", string(job.Name)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		logger.Info("job finished",
			zap.String("job_id", job.ID),
			zap.String("job", string(job.Name)),
			zap.Int("count", count),
			zap.Duration("elapsed", elapsed),
		)
	}
	metrics.ObserveJob(string(job.Name), status, elapsed)
}

func (p *Pool) dispatch(ctx context.Context, job radar.Job) (int, error) {
	switch job.Name {
	case radar.JobCollectAll:
		return p.collect.CollectAll(ctx)
	case radar.JobCollectByType:
		if job.SourceType == "" {
			return 0, fmt.Errorf("collect_by_type job %s has no source type", job.ID)
		}
		return p.collect.Collect(ctx, job.SourceType)
	case radar.JobClassifyBatch:
		batchSize := job.BatchSize
		if batchSize <= 0 {
			batchSize = p.cfg.DefaultBatchSize
		}
		return p.classify.ClassifyBatch(ctx, batchSize)
	case radar.JobUpdateMetrics:
		return p.aggregate.RecomputeAll(ctx)
	default:
		return 0, fmt.Errorf("unknown job name %q", job.Name)
	}
}
