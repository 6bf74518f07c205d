// Package seed installs the initial catalog of distributors, movies and
// monitored sources. Apply is idempotent: rows that already exist are left
// untouched, so it is safe to run on every startup.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Seeder writes the static catalog into the stores.
type Seeder struct {
	sources      radar.SourceStore
	movies       radar.MovieStore
	distributors radar.DistributorStore
	logger       *zap.Logger
}

func New(
	sources radar.SourceStore,
	movies radar.MovieStore,
	distributors radar.DistributorStore,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		sources:      sources,
		movies:       movies,
		distributors: distributors,
		logger:       logger,
	}
}

// Apply inserts any catalog entries that are not present yet.
func (s *Seeder) Apply(ctx context.Context) error {
	var created int
	for _, d := range distributorCatalog() {
		_, err := s.distributors.GetBySlug(ctx, d.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, radar.ErrNotFound) {
			return fmt.Errorf("look up distributor %q: %w", d.Slug, err)
		}
		if err := s.distributors.Create(ctx, d); err != nil {
			return fmt.Errorf("seed distributor %q: %w", d.Slug, err)
		}
		created++
	}
	for _, m := range movieCatalog() {
		_, err := s.movies.GetBySlug(ctx, m.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, radar.ErrNotFound) {
			return fmt.Errorf("look up movie %q: %w", m.Slug, err)
		}
		if err := s.movies.Create(ctx, m); err != nil {
			return fmt.Errorf("seed movie %q: %w", m.Slug, err)
		}
		created++
	}
	for _, src := range sourceCatalog() {
		_, err := s.sources.GetByURL(ctx, src.URL)
		if err == nil {
			continue
		}
		if !errors.Is(err, radar.ErrNotFound) {
			return fmt.Errorf("look up source %q: %w", src.URL, err)
		}
		if err := s.sources.Create(ctx, src); err != nil {
			return fmt.Errorf("seed source %q: %w", src.URL, err)
		}
		created++
	}
	s.logger.Info("seed catalog applied", zap.Int("created", created))
	return nil
}

func distributorCatalog() []radar.Distributor {
	return []radar.Distributor{
		{
			Name:     "Central Partnership",
			Slug:     "central-partnership",
			Website:  "https://centpart.ru",
			IsActive: true,
			IsMajor:  true,
		},
		{
			Name:     "Volga",
			Slug:     "volga",
			Website:  "https://volgafilm.ru",
			IsActive: true,
			IsMajor:  true,
		},
		{
			Name:     "Atmosfera Kino",
			Slug:     "atmosfera-kino",
			Website:  "https://atmosferakino.ru",
			IsActive: true,
			IsMajor:  false,
		},
	}
}

func movieCatalog() []radar.Movie {
	return []radar.Movie{
		{Title: "Мастер и Маргарита", Slug: "master-i-margarita", IsActive: true},
		{Title: "Холоп 2", Slug: "holop-2", IsActive: true},
		{Title: "Лед 3", Slug: "led-3", IsActive: true},
	}
}

func sourceCatalog() []radar.Source {
	return []radar.Source{
		{
			Name:                "Kinometro",
			URL:                 "https://www.kinometro.ru/news",
			Type:                radar.SourceNews,
			CheckFrequencyHours: 2,
			IsActive:            true,
		},
		{
			Name:                "ProfiCinema",
			URL:                 "https://www.proficinema.com/news/",
			Type:                radar.SourceNews,
			CheckFrequencyHours: 2,
			IsActive:            true,
		},
		{
			Name:                "Kinobusiness",
			URL:                 "https://www.kinobusiness.com/news/",
			Type:                radar.SourceNews,
			CheckFrequencyHours: 4,
			IsActive:            true,
		},
		{
			Name:                "Kinopoisk Popular",
			URL:                 "https://www.kinopoisk.ru/lists/movies/popular-films/",
			Type:                radar.SourceRatings,
			CheckFrequencyHours: 6,
			IsActive:            true,
		},
		{
			Name:                "Afisha Schedule",
			URL:                 "https://www.afisha.ru/msk/schedule_cinema/",
			Type:                radar.SourceSchedule,
			CheckFrequencyHours: 6,
			IsActive:            true,
		},
		{
			Name:                "Kinopisdul Channel",
			URL:                 "https://t.me/s/kinopisdul",
			Type:                radar.SourceChannel,
			ChannelID:           "kinopisdul",
			CheckFrequencyHours: 1,
			IsActive:            true,
		},
		{
			Name:                "Kinopoisk Channel",
			URL:                 "https://t.me/s/kinopoisk",
			Type:                radar.SourceChannel,
			ChannelID:           "kinopoisk",
			CheckFrequencyHours: 1,
			IsActive:            true,
		},
		{
			Name:                "Eshenepozner Channel",
			URL:                 "https://t.me/s/eshenepozner",
			Type:                radar.SourceChannel,
			ChannelID:           "eshenepozner",
			CheckFrequencyHours: 2,
			IsActive:            true,
		},
		{
			Name:                "Karo Chain",
			URL:                 "https://karofilm.ru/news",
			Type:                radar.SourceCinemaChain,
			CheckFrequencyHours: 12,
			IsActive:            true,
		},
		{
			Name:                "Kinometro Box Office",
			URL:                 "https://www.kinometro.ru/kino/box",
			Type:                radar.SourceBoxOffice,
			CheckFrequencyHours: 24,
			IsActive:            true,
		},
	}
}
