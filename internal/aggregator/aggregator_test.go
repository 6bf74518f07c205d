package aggregator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
	memstore "github.com/kinoradar/signal-pipeline/internal/store/memory"
)

func ptr(f float64) *float64 { return &f }

func addSignal(t *testing.T, store *memstore.SignalStore, movieID uuid.UUID, externalID, signalType string, score *float64) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), radar.Signal{
		ExternalID:     externalID,
		Title:          externalID,
		SourceURL:      "https://example.com/" + externalID,
		MovieID:        &movieID,
		SignalType:     signalType,
		SentimentScore: score,
	}))
}

func TestRecomputeAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	signals := memstore.NewSignalStore()
	movies := memstore.NewMovieStore(signals)
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Film", Slug: "film", IsActive: true}))
	movie, err := movies.GetBySlug(ctx, "film")
	require.NoError(t, err)

	// Unscored signals count toward totals but not toward the mean.
	addSignal(t, signals, movie.ID, "s1", radar.SignalTypeReview, ptr(0.5))
	addSignal(t, signals, movie.ID, "s2", radar.SignalTypeReview, ptr(-0.5))
	addSignal(t, signals, movie.ID, "s3", radar.SignalTypeNews, nil)

	a := New(movies, zap.NewNop())
	n, err := a.RecomputeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	updated, err := movies.GetBySlug(ctx, "film")
	require.NoError(t, err)
	require.Equal(t, 3, updated.SignalsCount)
	require.Equal(t, 2, updated.ReviewsCount)
	require.NotNil(t, updated.SentimentScore)
	require.InDelta(t, 0.0, *updated.SentimentScore, 1e-9)
}

func TestRecomputeAllNoScoredSignals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	signals := memstore.NewSignalStore()
	movies := memstore.NewMovieStore(signals)
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Quiet", Slug: "quiet", IsActive: true}))
	movie, err := movies.GetBySlug(ctx, "quiet")
	require.NoError(t, err)
	addSignal(t, signals, movie.ID, "q1", radar.SignalTypeNews, nil)

	a := New(movies, zap.NewNop())
	_, err = a.RecomputeAll(ctx)
	require.NoError(t, err)

	updated, err := movies.GetBySlug(ctx, "quiet")
	require.NoError(t, err)
	require.Equal(t, 1, updated.SignalsCount)
	require.Nil(t, updated.SentimentScore)
}

func TestRecomputeAllSkipsInactiveMovies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	signals := memstore.NewSignalStore()
	movies := memstore.NewMovieStore(signals)
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Active", Slug: "active", IsActive: true}))
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Archived", Slug: "archived", IsActive: false}))

	a := New(movies, zap.NewNop())
	n, err := a.RecomputeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// failingMovieStore makes AggregateSignals fail for one movie so the run's
// isolation behavior can be observed.
type failingMovieStore struct {
	radar.MovieStore
	failID uuid.UUID
}

func (s failingMovieStore) AggregateSignals(ctx context.Context, movieID uuid.UUID) (radar.MovieAggregates, error) {
	if movieID == s.failID {
		return radar.MovieAggregates{}, errors.New("aggregate query failed")
	}
	return s.MovieStore.AggregateSignals(ctx, movieID)
}

func TestRecomputeAllIsolatesMovieFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	signals := memstore.NewSignalStore()
	movies := memstore.NewMovieStore(signals)
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Broken", Slug: "broken", IsActive: true}))
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Fine", Slug: "fine", IsActive: true}))
	broken, err := movies.GetBySlug(ctx, "broken")
	require.NoError(t, err)

	a := New(failingMovieStore{MovieStore: movies, failID: broken.ID}, zap.NewNop())
	n, err := a.RecomputeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
