package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memoryq "github.com/kinoradar/signal-pipeline/internal/queue/memory"
	"github.com/kinoradar/signal-pipeline/internal/radar"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

func newScheduler(t *testing.T) (*Scheduler, *memoryq.Queue, fakeClock) {
	t.Helper()
	q := memoryq.NewQueue(16)
	clk := fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(q, clk, zap.NewNop()), q, clk
}

func TestRegisterDefaultsArmsAllTriggers(t *testing.T) {
	t.Parallel()

	s, _, _ := newScheduler(t)
	require.NoError(t, s.RegisterDefaults(50))
	require.Len(t, s.cron.Entries(), 5)
	require.Len(t, s.entries, 5)
}

func TestRegisterReplacesByName(t *testing.T) {
	t.Parallel()

	s, _, _ := newScheduler(t)
	require.NoError(t, s.Register("collect_news", time.Hour, radar.Job{Name: radar.JobCollectByType, SourceType: radar.SourceNews}))
	require.NoError(t, s.Register("collect_news", 2*time.Hour, radar.Job{Name: radar.JobCollectByType, SourceType: radar.SourceNews}))
	require.Len(t, s.cron.Entries(), 1)
}

func TestFireEnqueuesJobInstance(t *testing.T) {
	t.Parallel()

	s, q, clk := newScheduler(t)
	template := radar.Job{Name: radar.JobClassifyBatch, BatchSize: 25}
	s.fire("classify", template)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, radar.JobClassifyBatch, job.Name)
	require.Equal(t, 25, job.BatchSize)
	require.NotEmpty(t, job.ID)
	require.Equal(t, clk.now, job.Submitted)
}

func TestFireProducesDistinctJobIDs(t *testing.T) {
	t.Parallel()

	s, q, _ := newScheduler(t)
	template := radar.Job{Name: radar.JobCollectAll}
	s.fire("collect_all", template)
	s.fire("collect_all", template)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}
