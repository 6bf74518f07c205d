// Package aggregator recomputes derived per-movie metrics from the current
// signal set.
package aggregator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/metrics"
	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Aggregator is the only writer of movie aggregate fields.
type Aggregator struct {
	movies radar.MovieStore
	logger *zap.Logger
}

// New constructs an Aggregator.
func New(movies radar.MovieStore, logger *zap.Logger) *Aggregator {
	return &Aggregator{movies: movies, logger: logger}
}

// RecomputeAll recomputes signal count, review count and mean sentiment for
// every active movie and commits all updates together at the end of the run.
// A failure computing one movie's metrics is logged and skipped; other movies
// still update. Returns the number of movies updated.
func (a *Aggregator) RecomputeAll(ctx context.Context) (int, error) {
	movies, err := a.movies.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active movies: %w", err)
	}

	updates := make([]radar.MovieAggregates, 0, len(movies))
	for _, movie := range movies {
		agg, err := a.movies.AggregateSignals(ctx, movie.ID)
		if err != nil {
			a.logger.Error("aggregate movie failed",
				zap.String("movie_id", movie.ID.String()),
				zap.String("title", movie.Title),
				zap.Error(err),
			)
			continue
		}
		updates = append(updates, agg)
	}

	if len(updates) > 0 {
		if err := a.movies.UpdateAggregates(ctx, updates); err != nil {
			return 0, fmt.Errorf("update aggregates: %w", err)
		}
	}

	metrics.ObserveAggregation(len(updates))
	a.logger.Info("metrics recomputed", zap.Int("movies", len(updates)))
	return len(updates), nil
}
