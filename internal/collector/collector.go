// Package collector implements the collection orchestrator: it walks active
// sources, invokes the matching fetch adapter, runs candidates through the
// dedup gate and records per-source health.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kinoradar/signal-pipeline/internal/metrics"
	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// AdapterRegistry resolves the fetch adapter for a source type.
type AdapterRegistry interface {
	ForType(t radar.SourceType) (radar.Adapter, bool)
}

// Collector orchestrates collection runs.
type Collector struct {
	sources     radar.SourceStore
	signals     radar.SignalStore
	movies      radar.MovieStore
	adapters    AdapterRegistry
	clock       radar.Clock
	logger      *zap.Logger
	concurrency int
}

// New constructs a Collector. movies may be nil when movie association by
// source slug is not wanted.
func New(
	sources radar.SourceStore,
	signals radar.SignalStore,
	movies radar.MovieStore,
	adapters AdapterRegistry,
	clock radar.Clock,
	concurrency int,
	logger *zap.Logger,
) *Collector {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Collector{
		sources:     sources,
		signals:     signals,
		movies:      movies,
		adapters:    adapters,
		clock:       clock,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Collect processes all active sources of the given type and returns the
// number of newly stored signals. One source's failure is recorded on that
// source and never aborts the others.
func (c *Collector) Collect(ctx context.Context, t radar.SourceType) (int, error) {
	srcs, err := c.sources.ActiveByType(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("list active %s sources: %w", t, err)
	}
	c.logger.Info("collection started",
		zap.String("source_type", string(t)),
		zap.Int("sources", len(srcs)),
	)

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, src := range srcs {
		g.Go(func() error {
			total.Add(int64(c.collectSource(gctx, src)))
			return nil
		})
	}
	// Group funcs never return errors; per-source failures are recorded on
	// the source row instead.
	_ = g.Wait()

	collected := int(total.Load())
	metrics.ObserveCollection(string(t), collected)
	c.logger.Info("collection finished",
		zap.String("source_type", string(t)),
		zap.Int("collected", collected),
	)
	return collected, nil
}

// CollectAll runs collection for every category in the fixed order. A failure
// collecting one category does not abort the others.
func (c *Collector) CollectAll(ctx context.Context) (int, error) {
	total := 0
	for _, t := range radar.CollectAllOrder {
		n, err := c.Collect(ctx, t)
		if err != nil {
			c.logger.Error("collect category failed",
				zap.String("source_type", string(t)),
				zap.Error(err),
			)
			continue
		}
		total += n
	}
	return total, nil
}

// collectSource fetches one source, stores the new candidates and commits the
// source's health fields. Returns the number of newly stored signals.
func (c *Collector) collectSource(ctx context.Context, src radar.Source) int {
	adapter, ok := c.adapters.ForType(src.Type)
	if !ok {
		c.markChecked(ctx, src, fmt.Sprintf("no adapter for source type %q", src.Type))
		return 0
	}

	drafts, err := adapter.FetchSignals(ctx, src)
	if err != nil {
		c.logger.Warn("source fetch failed",
			zap.String("source", src.Name),
			zap.Error(err),
		)
		metrics.IncCollectionError(string(src.Type))
		c.markChecked(ctx, src, err.Error())
		return 0
	}

	movieID := c.resolveMovie(ctx, src)

	stored := 0
	for _, draft := range drafts {
		created, err := c.storeCandidate(ctx, src, movieID, draft)
		if err != nil {
			c.logger.Warn("store candidate failed",
				zap.String("source", src.Name),
				zap.String("external_id", draft.ExternalID),
				zap.Error(err),
			)
			continue
		}
		if created {
			stored++
		}
	}

	c.markChecked(ctx, src, "")
	c.logger.Debug("source checked",
		zap.String("source", src.Name),
		zap.Int("candidates", len(drafts)),
		zap.Int("stored", stored),
	)
	return stored
}

// storeCandidate applies the dedup gate and persists the draft if it is new.
// The storage-level uniqueness constraint is the backstop for races between
// concurrent runs: a duplicate insert reports "already exists", not an error.
func (c *Collector) storeCandidate(
	ctx context.Context,
	src radar.Source,
	movieID *uuid.UUID,
	draft radar.SignalDraft,
) (bool, error) {
	exists, err := c.signals.ExistsByExternalID(ctx, draft.ExternalID)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return false, nil
	}

	sourceID := src.ID
	sig := radar.Signal{
		ID:          uuid.New(),
		SourceID:    &sourceID,
		MovieID:     movieID,
		ExternalID:  draft.ExternalID,
		Title:       draft.Title,
		Content:     draft.Content,
		SourceURL:   draft.SourceURL,
		ImageURL:    draft.ImageURL,
		Author:      draft.Author,
		RawData:     draft.RawData,
		PublishedAt: draft.PublishedAt,
		IsPublished: true,
		CreatedAt:   c.clock.Now(),
	}
	if err := c.signals.Create(ctx, sig); err != nil {
		if errors.Is(err, radar.ErrDuplicateSignal) {
			return false, nil
		}
		return false, fmt.Errorf("create signal: %w", err)
	}
	return true, nil
}

func (c *Collector) resolveMovie(ctx context.Context, src radar.Source) *uuid.UUID {
	if c.movies == nil || src.MovieSlug == "" {
		return nil
	}
	movie, err := c.movies.GetBySlug(ctx, src.MovieSlug)
	if err != nil {
		if !errors.Is(err, radar.ErrNotFound) {
			c.logger.Warn("movie lookup failed",
				zap.String("slug", src.MovieSlug),
				zap.Error(err),
			)
		}
		return nil
	}
	id := movie.ID
	return &id
}

func (c *Collector) markChecked(ctx context.Context, src radar.Source, errText string) {
	if err := c.sources.MarkChecked(ctx, src.ID, c.clock.Now(), errText); err != nil {
		c.logger.Error("mark source checked failed",
			zap.String("source", src.Name),
			zap.Error(err),
		)
	}
}
