package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

const movieColumns = `id, title, COALESCE(original_title, ''), slug,
	COALESCE(description, ''), COALESCE(poster_url, ''), release_date, year,
	runtime_minutes, COALESCE(age_rating, ''), COALESCE(catalog_id, ''),
	COALESCE(imdb_id, ''), distributor_id, catalog_rating, catalog_votes,
	imdb_rating, signals_count, reviews_count, sentiment_score, total_screenings,
	avg_occupancy, is_active, is_featured`

// MovieStore implements radar.MovieStore on Postgres.
type MovieStore struct {
	db DB
}

func NewMovieStore(db DB) *MovieStore {
	return &MovieStore{db: db}
}

func (s *MovieStore) Active(ctx context.Context) ([]radar.Movie, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE is_active ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query active movies: %w", err)
	}
	defer rows.Close()

	var movies []radar.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie row: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movie rows: %w", err)
	}
	return movies, nil
}

func (s *MovieStore) GetBySlug(ctx context.Context, slug string) (radar.Movie, error) {
	row := s.db.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE slug = $1`, slug)
	m, err := scanMovie(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return radar.Movie{}, radar.ErrNotFound
	}
	if err != nil {
		return radar.Movie{}, fmt.Errorf("get movie by slug: %w", err)
	}
	return m, nil
}

func (s *MovieStore) Create(ctx context.Context, m radar.Movie) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO movies (id, title, original_title, slug, description, poster_url,
			release_date, year, runtime_minutes, age_rating, catalog_id, imdb_id,
			distributor_id, catalog_rating, catalog_votes, imdb_rating, signals_count,
			reviews_count, sentiment_score, total_screenings, avg_occupancy, is_active,
			is_featured, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8,
			$9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24)`,
		m.ID, m.Title, m.OriginalTitle, m.Slug, m.Description, m.PosterURL,
		m.ReleaseDate, m.Year, m.RuntimeMinutes, m.AgeRating, m.CatalogID, m.IMDBID,
		m.DistributorID, m.CatalogRating, m.CatalogVotes, m.IMDBRating,
		m.SignalsCount, m.ReviewsCount, m.SentimentScore, m.TotalScreenings,
		m.AvgOccupancy, m.IsActive, m.IsFeatured, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert movie %q: %w", m.Slug, err)
	}
	return nil
}

func (s *MovieStore) AggregateSignals(ctx context.Context, movieID uuid.UUID) (radar.MovieAggregates, error) {
	aggs := radar.MovieAggregates{MovieID: movieID}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE signal_type = $2),
		        AVG(sentiment_score)
		 FROM signals WHERE movie_id = $1`,
		movieID, radar.SignalTypeReview).
		Scan(&aggs.SignalsCount, &aggs.ReviewsCount, &aggs.SentimentScore)
	if err != nil {
		return radar.MovieAggregates{}, fmt.Errorf("aggregate signals for movie %s: %w", movieID, err)
	}
	return aggs, nil
}

func (s *MovieStore) UpdateAggregates(ctx context.Context, aggs []radar.MovieAggregates) error {
	if len(aggs) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin aggregates tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, a := range aggs {
		_, err := tx.Exec(ctx,
			`UPDATE movies
			 SET signals_count = $2, reviews_count = $3, sentiment_score = $4
			 WHERE id = $1`,
			a.MovieID, a.SignalsCount, a.ReviewsCount, a.SentimentScore)
		if err != nil {
			return fmt.Errorf("update aggregates for movie %s: %w", a.MovieID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit aggregates tx: %w", err)
	}
	return nil
}

func scanMovie(row pgx.Row) (radar.Movie, error) {
	var m radar.Movie
	err := row.Scan(
		&m.ID, &m.Title, &m.OriginalTitle, &m.Slug, &m.Description, &m.PosterURL,
		&m.ReleaseDate, &m.Year, &m.RuntimeMinutes, &m.AgeRating, &m.CatalogID,
		&m.IMDBID, &m.DistributorID, &m.CatalogRating, &m.CatalogVotes,
		&m.IMDBRating, &m.SignalsCount, &m.ReviewsCount, &m.SentimentScore,
		&m.TotalScreenings, &m.AvgOccupancy, &m.IsActive, &m.IsFeatured,
	)
	return m, err
}
