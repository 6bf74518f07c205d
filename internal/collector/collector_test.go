package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
	memstore "github.com/kinoradar/signal-pipeline/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type fakeAdapter struct {
	fetch func(ctx context.Context, src radar.Source) ([]radar.SignalDraft, error)
}

func (a fakeAdapter) FetchSignals(ctx context.Context, src radar.Source) ([]radar.SignalDraft, error) {
	return a.fetch(ctx, src)
}

type fakeRegistry struct {
	adapters map[radar.SourceType]radar.Adapter
}

func (r fakeRegistry) ForType(t radar.SourceType) (radar.Adapter, bool) {
	a, ok := r.adapters[t]
	return a, ok
}

func staticDrafts(drafts ...radar.SignalDraft) fakeAdapter {
	return fakeAdapter{fetch: func(context.Context, radar.Source) ([]radar.SignalDraft, error) {
		return drafts, nil
	}}
}

func draft(id string) radar.SignalDraft {
	return radar.SignalDraft{
		ExternalID: id,
		Title:      "title " + id,
		SourceURL:  "https://example.com/" + id,
	}
}

func newFixture(t *testing.T, registry AdapterRegistry) (*Collector, *memstore.SourceStore, *memstore.SignalStore, *memstore.MovieStore) {
	t.Helper()
	sources := memstore.NewSourceStore()
	signals := memstore.NewSignalStore()
	movies := memstore.NewMovieStore(signals)
	clk := fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(sources, signals, movies, registry, clk, 2, zap.NewNop())
	return c, sources, signals, movies
}

func addSource(t *testing.T, sources *memstore.SourceStore, src radar.Source) radar.Source {
	t.Helper()
	src.IsActive = true
	require.NoError(t, sources.Create(context.Background(), src))
	stored, err := sources.GetByURL(context.Background(), src.URL)
	require.NoError(t, err)
	return stored
}

func TestCollectStoresNewSignals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := fakeRegistry{adapters: map[radar.SourceType]radar.Adapter{
		radar.SourceNews: staticDrafts(draft("news:1"), draft("news:2")),
	}}
	c, sources, signals, _ := newFixture(t, registry)
	src := addSource(t, sources, radar.Source{Name: "n", URL: "https://n.example", Type: radar.SourceNews})

	n, err := c.Collect(ctx, radar.SourceNews)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	stored := signals.All()
	require.Len(t, stored, 2)
	require.True(t, stored[0].IsPublished)
	require.NotNil(t, stored[0].SourceID)
	require.Equal(t, src.ID, *stored[0].SourceID)

	checked, err := sources.GetByURL(ctx, src.URL)
	require.NoError(t, err)
	require.NotNil(t, checked.LastCheckedAt)
	require.Empty(t, checked.LastError)
}

func TestCollectIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := fakeRegistry{adapters: map[radar.SourceType]radar.Adapter{
		radar.SourceNews: staticDrafts(draft("news:1"), draft("news:2")),
	}}
	c, sources, signals, _ := newFixture(t, registry)
	addSource(t, sources, radar.Source{Name: "n", URL: "https://n.example", Type: radar.SourceNews})

	first, err := c.Collect(ctx, radar.SourceNews)
	require.NoError(t, err)
	require.Equal(t, 2, first)

	second, err := c.Collect(ctx, radar.SourceNews)
	require.NoError(t, err)
	require.Equal(t, 0, second)
	require.Len(t, signals.All(), 2)
}

func TestCollectIsolatesSourceFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := fakeRegistry{adapters: map[radar.SourceType]radar.Adapter{
		radar.SourceNews: fakeAdapter{fetch: func(_ context.Context, src radar.Source) ([]radar.SignalDraft, error) {
			if src.Name == "bad" {
				return nil, errors.New("connection refused")
			}
			return []radar.SignalDraft{draft("news:ok")}, nil
		}},
	}}
	c, sources, _, _ := newFixture(t, registry)
	addSource(t, sources, radar.Source{Name: "bad", URL: "https://bad.example", Type: radar.SourceNews})
	addSource(t, sources, radar.Source{Name: "good", URL: "https://good.example", Type: radar.SourceNews})

	n, err := c.Collect(ctx, radar.SourceNews)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	bad, err := sources.GetByURL(ctx, "https://bad.example")
	require.NoError(t, err)
	require.Contains(t, bad.LastError, "connection refused")
	require.NotNil(t, bad.LastCheckedAt)

	good, err := sources.GetByURL(ctx, "https://good.example")
	require.NoError(t, err)
	require.Empty(t, good.LastError)
}

func TestCollectAssociatesMovieBySlug(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := fakeRegistry{adapters: map[radar.SourceType]radar.Adapter{
		radar.SourceRatings: staticDrafts(draft("ratings:1")),
	}}
	c, sources, signals, movies := newFixture(t, registry)
	require.NoError(t, movies.Create(ctx, radar.Movie{Title: "Film", Slug: "film", IsActive: true}))
	movie, err := movies.GetBySlug(ctx, "film")
	require.NoError(t, err)
	addSource(t, sources, radar.Source{
		Name: "r", URL: "https://r.example", Type: radar.SourceRatings, MovieSlug: "film",
	})

	n, err := c.Collect(ctx, radar.SourceRatings)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	stored := signals.All()
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].MovieID)
	require.Equal(t, movie.ID, *stored[0].MovieID)
}

func TestCollectAllWalksEveryCategory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	adapters := make(map[radar.SourceType]radar.Adapter)
	for _, st := range radar.CollectAllOrder {
		adapters[st] = staticDrafts(draft(fmt.Sprintf("%s:1", st)))
	}
	c, sources, signals, _ := newFixture(t, fakeRegistry{adapters: adapters})
	for _, st := range radar.CollectAllOrder {
		addSource(t, sources, radar.Source{
			Name: string(st), URL: fmt.Sprintf("https://%s.example", st), Type: st,
		})
	}

	n, err := c.CollectAll(ctx)
	require.NoError(t, err)
	require.Equal(t, len(radar.CollectAllOrder), n)
	require.Len(t, signals.All(), len(radar.CollectAllOrder))
}

func TestCollectChannelSourceEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := fakeRegistry{adapters: map[radar.SourceType]radar.Adapter{
		radar.SourceChannel: staticDrafts(
			draft("channel:kino/1"), draft("channel:kino/2"), draft("channel:kino/3"),
		),
	}}
	c, sources, signals, _ := newFixture(t, registry)
	src := addSource(t, sources, radar.Source{
		Name:                "kino",
		URL:                 "https://t.me/s/kino",
		Type:                radar.SourceChannel,
		ChannelID:           "kino",
		CheckFrequencyHours: 1,
	})
	// A prior failed check should be cleared by a successful one.
	require.NoError(t, sources.MarkChecked(ctx, src.ID, time.Now().UTC(), "timeout"))

	n, err := c.Collect(ctx, radar.SourceChannel)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Len(t, signals.All(), 3)

	checked, err := sources.GetByURL(ctx, src.URL)
	require.NoError(t, err)
	require.NotNil(t, checked.LastCheckedAt)
	require.Empty(t, checked.LastError)
}

func TestCollectWithoutAdapterMarksSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, sources, _, _ := newFixture(t, fakeRegistry{adapters: map[radar.SourceType]radar.Adapter{}})
	addSource(t, sources, radar.Source{Name: "n", URL: "https://n.example", Type: radar.SourceNews})

	n, err := c.Collect(ctx, radar.SourceNews)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	src, err := sources.GetByURL(ctx, "https://n.example")
	require.NoError(t, err)
	require.Contains(t, src.LastError, "no adapter")
}
