package radar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSignal is returned by SignalStore.Create when another signal
// already holds the same external ID. Callers treat it as "already exists",
// not as a failure.
var ErrDuplicateSignal = errors.New("signal with external id already exists")

// ErrNotFound is returned by store lookups for missing rows.
var ErrNotFound = errors.New("not found")

// SourceStore persists source rows and their health fields.
type SourceStore interface {
	ActiveByType(ctx context.Context, t SourceType) ([]Source, error)
	GetByURL(ctx context.Context, url string) (Source, error)
	Create(ctx context.Context, src Source) error
	// MarkChecked stamps the check timestamp and replaces the error text.
	// An empty errText clears a previously recorded error.
	MarkChecked(ctx context.Context, id uuid.UUID, at time.Time, errText string) error
}

// SignalStore persists signals. The uniqueness constraint on the external ID
// is the correctness backstop for deduplication under concurrent runs.
type SignalStore interface {
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	Create(ctx context.Context, sig Signal) error
	// Unclassified returns up to limit unclassified signals, oldest first.
	Unclassified(ctx context.Context, limit int) ([]Signal, error)
	// ApplyClassifications commits a batch of classification results in a
	// single atomic write, setting the classified flag on each signal.
	ApplyClassifications(ctx context.Context, updates []ClassificationUpdate) error
}

// MovieStore persists movies and their derived aggregate fields.
type MovieStore interface {
	Active(ctx context.Context) ([]Movie, error)
	GetBySlug(ctx context.Context, slug string) (Movie, error)
	Create(ctx context.Context, m Movie) error
	// AggregateSignals computes signal count, review count and mean sentiment
	// over the movie's current signal rows.
	AggregateSignals(ctx context.Context, movieID uuid.UUID) (MovieAggregates, error)
	// UpdateAggregates commits the recomputed counters for all movies at once.
	UpdateAggregates(ctx context.Context, aggs []MovieAggregates) error
}

// DistributorStore persists the seed distributor catalog.
type DistributorStore interface {
	GetBySlug(ctx context.Context, slug string) (Distributor, error)
	Create(ctx context.Context, d Distributor) error
}

// Adapter turns a source's endpoint into a bounded, ordered list of candidate
// signal drafts. Implementations skip malformed items and return an error only
// for total fetch failure.
type Adapter interface {
	FetchSignals(ctx context.Context, src Source) ([]SignalDraft, error)
}

// Classifier calls the external text-classification service with a prompt and
// returns its raw textual response.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// Queue provides at-least-once job delivery with no cross-name ordering.
type Queue interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	Dequeue(ctx context.Context) (Job, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
