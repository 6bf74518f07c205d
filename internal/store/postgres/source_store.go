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

const sourceColumns = `id, name, url, type, COALESCE(movie_slug, ''), COALESCE(channel_id, ''),
	check_frequency_hours, is_active, last_checked_at, COALESCE(last_error, ''), created_at`

// SourceStore implements radar.SourceStore on Postgres.
type SourceStore struct {
	db DB
}

func NewSourceStore(db DB) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) ActiveByType(ctx context.Context, t radar.SourceType) ([]radar.Source, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE type = $1 AND is_active ORDER BY name`,
		string(t))
	if err != nil {
		return nil, fmt.Errorf("query sources by type %q: %w", t, err)
	}
	defer rows.Close()

	var sources []radar.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return sources, nil
}

func (s *SourceStore) GetByURL(ctx context.Context, url string) (radar.Source, error) {
	row := s.db.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE url = $1`, url)
	src, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return radar.Source{}, radar.ErrNotFound
	}
	if err != nil {
		return radar.Source{}, fmt.Errorf("get source by url: %w", err)
	}
	return src, nil
}

func (s *SourceStore) Create(ctx context.Context, src radar.Source) error {
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO sources (id, name, url, type, movie_slug, channel_id,
			check_frequency_hours, is_active, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)`,
		src.ID, src.Name, src.URL, string(src.Type), src.MovieSlug, src.ChannelID,
		src.CheckFrequencyHours, src.IsActive, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert source %q: %w", src.URL, err)
	}
	return nil
}

func (s *SourceStore) MarkChecked(ctx context.Context, id uuid.UUID, at time.Time, errText string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sources SET last_checked_at = $2, last_error = NULLIF($3, '') WHERE id = $1`,
		id, at, errText)
	if err != nil {
		return fmt.Errorf("mark source %s checked: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return radar.ErrNotFound
	}
	return nil
}

func scanSource(row pgx.Row) (radar.Source, error) {
	var src radar.Source
	err := row.Scan(
		&src.ID, &src.Name, &src.URL, &src.Type, &src.MovieSlug, &src.ChannelID,
		&src.CheckFrequencyHours, &src.IsActive, &src.LastCheckedAt, &src.LastError,
		&src.CreatedAt,
	)
	return src, err
}
