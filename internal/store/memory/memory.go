// Package memory provides in-memory store implementations for local runs and
// tests. All stores are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// SourceStore implements radar.SourceStore in memory.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[uuid.UUID]radar.Source
}

func NewSourceStore() *SourceStore {
	return &SourceStore{sources: make(map[uuid.UUID]radar.Source)}
}

func (s *SourceStore) ActiveByType(_ context.Context, t radar.SourceType) ([]radar.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []radar.Source
	for _, src := range s.sources {
		if src.Type == t && src.IsActive {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *SourceStore) GetByURL(_ context.Context, url string) (radar.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.sources {
		if src.URL == url {
			return src, nil
		}
	}
	return radar.Source{}, radar.ErrNotFound
}

func (s *SourceStore) Create(_ context.Context, src radar.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	s.sources[src.ID] = src
	return nil
}

func (s *SourceStore) MarkChecked(_ context.Context, id uuid.UUID, at time.Time, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return radar.ErrNotFound
	}
	checked := at
	src.LastCheckedAt = &checked
	src.LastError = errText
	s.sources[id] = src
	return nil
}

// SignalStore implements radar.SignalStore in memory, enforcing external ID
// uniqueness the way the database unique index does.
type SignalStore struct {
	mu         sync.RWMutex
	signals    map[uuid.UUID]radar.Signal
	byExternal map[string]uuid.UUID
}

func NewSignalStore() *SignalStore {
	return &SignalStore{
		signals:    make(map[uuid.UUID]radar.Signal),
		byExternal: make(map[string]uuid.UUID),
	}
}

func (s *SignalStore) ExistsByExternalID(_ context.Context, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byExternal[externalID]
	return ok, nil
}

func (s *SignalStore) Create(_ context.Context, sig radar.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byExternal[sig.ExternalID]; ok {
		return radar.ErrDuplicateSignal
	}
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	s.signals[sig.ID] = sig
	s.byExternal[sig.ExternalID] = sig.ID
	return nil
}

func (s *SignalStore) Unclassified(_ context.Context, limit int) ([]radar.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []radar.Signal
	for _, sig := range s.signals {
		if !sig.IsClassified {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SignalStore) ApplyClassifications(_ context.Context, updates []radar.ClassificationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		sig, ok := s.signals[u.SignalID]
		if !ok {
			continue
		}
		sig.SignalType = u.Result.SignalType
		sig.Importance = u.Result.Importance
		sig.Sentiment = u.Result.Sentiment
		score := u.Result.SentimentScore
		sig.SentimentScore = &score
		sig.Keywords = u.Result.Keywords
		sig.Summary = u.Result.Summary
		sig.IsClassified = true
		s.signals[u.SignalID] = sig
	}
	return nil
}

// Get returns a stored signal by ID. Test helper; not part of radar.SignalStore.
func (s *SignalStore) Get(id uuid.UUID) (radar.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[id]
	return sig, ok
}

// All returns every stored signal. Test helper.
func (s *SignalStore) All() []radar.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]radar.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// MovieStore implements radar.MovieStore in memory. AggregateSignals needs
// visibility into signals, so the store holds a reference to the signal store.
type MovieStore struct {
	mu      sync.RWMutex
	movies  map[uuid.UUID]radar.Movie
	signals *SignalStore
}

func NewMovieStore(signals *SignalStore) *MovieStore {
	return &MovieStore{movies: make(map[uuid.UUID]radar.Movie), signals: signals}
}

func (s *MovieStore) Active(_ context.Context) ([]radar.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []radar.Movie
	for _, m := range s.movies {
		if m.IsActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MovieStore) GetBySlug(_ context.Context, slug string) (radar.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.movies {
		if m.Slug == slug {
			return m, nil
		}
	}
	return radar.Movie{}, radar.ErrNotFound
}

func (s *MovieStore) Create(_ context.Context, m radar.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.movies[m.ID] = m
	return nil
}

func (s *MovieStore) AggregateSignals(_ context.Context, movieID uuid.UUID) (radar.MovieAggregates, error) {
	aggs := radar.MovieAggregates{MovieID: movieID}
	if s.signals == nil {
		return aggs, nil
	}
	s.signals.mu.RLock()
	defer s.signals.mu.RUnlock()
	var sum float64
	var scored int
	for _, sig := range s.signals.signals {
		if sig.MovieID == nil || *sig.MovieID != movieID {
			continue
		}
		aggs.SignalsCount++
		if sig.SignalType == radar.SignalTypeReview {
			aggs.ReviewsCount++
		}
		if sig.SentimentScore != nil {
			sum += *sig.SentimentScore
			scored++
		}
	}
	if scored > 0 {
		mean := sum / float64(scored)
		aggs.SentimentScore = &mean
	}
	return aggs, nil
}

func (s *MovieStore) UpdateAggregates(_ context.Context, aggs []radar.MovieAggregates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range aggs {
		m, ok := s.movies[a.MovieID]
		if !ok {
			continue
		}
		m.SignalsCount = a.SignalsCount
		m.ReviewsCount = a.ReviewsCount
		m.SentimentScore = a.SentimentScore
		s.movies[a.MovieID] = m
	}
	return nil
}

// DistributorStore implements radar.DistributorStore in memory.
type DistributorStore struct {
	mu           sync.RWMutex
	distributors map[string]radar.Distributor
}

func NewDistributorStore() *DistributorStore {
	return &DistributorStore{distributors: make(map[string]radar.Distributor)}
}

func (s *DistributorStore) GetBySlug(_ context.Context, slug string) (radar.Distributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.distributors[slug]
	if !ok {
		return radar.Distributor{}, radar.ErrNotFound
	}
	return d, nil
}

func (s *DistributorStore) Create(_ context.Context, d radar.Distributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.distributors[d.Slug] = d
	return nil
}
