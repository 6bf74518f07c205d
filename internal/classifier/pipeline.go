package classifier

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kinoradar/signal-pipeline/internal/metrics"
	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Pipeline pulls unclassified signals in bounded batches, calls the external
// classifier per signal and commits all parsed results together at the end of
// the batch. A signal is never marked classified without a successfully
// parsed result; failures leave it unclassified for the next cycle.
type Pipeline struct {
	signals     radar.SignalStore
	client      radar.Classifier
	logger      *zap.Logger
	concurrency int
}

// NewPipeline constructs the classification pipeline. A nil client means the
// external classifier is not configured and every batch is a no-op.
func NewPipeline(signals radar.SignalStore, client radar.Classifier, concurrency int, logger *zap.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		signals:     signals,
		client:      client,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ClassifyBatch classifies up to batchSize unclassified signals, oldest first,
// and returns the number classified.
func (p *Pipeline) ClassifyBatch(ctx context.Context, batchSize int) (int, error) {
	if p.client == nil {
		p.logger.Warn("classifier not configured, skipping classification")
		return 0, nil
	}

	signals, err := p.signals.Unclassified(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("load unclassified signals: %w", err)
	}
	if len(signals) == 0 {
		return 0, nil
	}
	p.logger.Info("classification started", zap.Int("signals", len(signals)))

	var (
		mu      sync.Mutex
		updates []radar.ClassificationUpdate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, sig := range signals {
		g.Go(func() error {
			result, err := p.classifyOne(gctx, sig)
			if err != nil {
				p.logger.Warn("classify signal failed",
					zap.String("signal_id", sig.ID.String()),
					zap.Error(err),
				)
				metrics.ObserveClassification("failed", 1)
				return nil
			}
			mu.Lock()
			updates = append(updates, radar.ClassificationUpdate{SignalID: sig.ID, Result: result})
			mu.Unlock()
			return nil
		})
	}
	// Per-signal failures are swallowed above; only cancellation surfaces.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("classification canceled: %w", err)
	}

	if len(updates) == 0 {
		return 0, nil
	}
	if err := p.signals.ApplyClassifications(ctx, updates); err != nil {
		return 0, fmt.Errorf("apply classifications: %w", err)
	}

	metrics.ObserveClassification("classified", len(updates))
	p.logger.Info("classification finished", zap.Int("classified", len(updates)))
	return len(updates), nil
}

func (p *Pipeline) classifyOne(ctx context.Context, sig radar.Signal) (radar.ClassificationResult, error) {
	raw, err := p.client.Classify(ctx, BuildPrompt(sig))
	if err != nil {
		return radar.ClassificationResult{}, fmt.Errorf("classifier call: %w", err)
	}
	result, err := ParseResult(ExtractPayload(raw))
	if err != nil {
		return radar.ClassificationResult{}, err
	}
	return result, nil
}
