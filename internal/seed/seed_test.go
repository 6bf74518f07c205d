package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
	memstore "github.com/kinoradar/signal-pipeline/internal/store/memory"
)

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sources := memstore.NewSourceStore()
	signals := memstore.NewSignalStore()
	movies := memstore.NewMovieStore(signals)
	distributors := memstore.NewDistributorStore()
	s := New(sources, movies, distributors, zap.NewNop())

	require.NoError(t, s.Apply(ctx))

	channels, err := sources.ActiveByType(ctx, radar.SourceChannel)
	require.NoError(t, err)
	require.NotEmpty(t, channels)
	for _, src := range channels {
		require.NotEmpty(t, src.ChannelID)
	}

	news, err := sources.ActiveByType(ctx, radar.SourceNews)
	require.NoError(t, err)
	firstCount := len(news)
	require.NotZero(t, firstCount)

	_, err = movies.GetBySlug(ctx, "master-i-margarita")
	require.NoError(t, err)
	_, err = distributors.GetBySlug(ctx, "central-partnership")
	require.NoError(t, err)

	// A second apply creates nothing new.
	require.NoError(t, s.Apply(ctx))
	news, err = sources.ActiveByType(ctx, radar.SourceNews)
	require.NoError(t, err)
	require.Len(t, news, firstCount)
}

func TestCatalogCoversEveryCategory(t *testing.T) {
	t.Parallel()

	byType := make(map[radar.SourceType]int)
	for _, src := range sourceCatalog() {
		byType[src.Type]++
		require.NotEmpty(t, src.Name)
		require.NotEmpty(t, src.URL)
		require.Positive(t, src.CheckFrequencyHours)
	}
	for _, st := range []radar.SourceType{
		radar.SourceNews, radar.SourceRatings, radar.SourceSchedule,
		radar.SourceChannel, radar.SourceCinemaChain, radar.SourceBoxOffice,
	} {
		require.Positive(t, byType[st], "no seed source for %s", st)
	}
}
