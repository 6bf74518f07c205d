package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

func TestQueueRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	q := NewQueue(4)
	id, err := q.Enqueue(ctx, radar.Job{ID: "j1", Name: radar.JobCollectAll})
	require.NoError(t, err)
	require.Equal(t, "j1", id)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "j1", job.ID)
	require.Equal(t, radar.JobCollectAll, job.Name)
}

func TestQueuePreservesOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	q := NewQueue(4)
	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, radar.Job{ID: id})
		require.NoError(t, err)
	}
	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, job.ID)
	}
}

func TestDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnqueueRespectsContextWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	_, err := q.Enqueue(context.Background(), radar.Job{ID: "fills"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Enqueue(ctx, radar.Job{ID: "blocked"})
	require.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	require.Error(t, err)
}
