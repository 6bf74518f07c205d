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

// DistributorStore implements radar.DistributorStore on Postgres.
type DistributorStore struct {
	db DB
}

func NewDistributorStore(db DB) *DistributorStore {
	return &DistributorStore{db: db}
}

func (s *DistributorStore) GetBySlug(ctx context.Context, slug string) (radar.Distributor, error) {
	var d radar.Distributor
	err := s.db.QueryRow(ctx,
		`SELECT id, name, slug, COALESCE(logo_url, ''), COALESCE(website, ''),
			COALESCE(description, ''), COALESCE(channel_id, ''), is_active, is_major
		 FROM distributors WHERE slug = $1`,
		slug).Scan(
		&d.ID, &d.Name, &d.Slug, &d.LogoURL, &d.Website, &d.Description,
		&d.ChannelID, &d.IsActive, &d.IsMajor,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return radar.Distributor{}, radar.ErrNotFound
	}
	if err != nil {
		return radar.Distributor{}, fmt.Errorf("get distributor by slug: %w", err)
	}
	return d, nil
}

func (s *DistributorStore) Create(ctx context.Context, d radar.Distributor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO distributors (id, name, slug, logo_url, website, description,
			channel_id, is_active, is_major, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
			NULLIF($7, ''), $8, $9, $10)`,
		d.ID, d.Name, d.Slug, d.LogoURL, d.Website, d.Description, d.ChannelID,
		d.IsActive, d.IsMajor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert distributor %q: %w", d.Slug, err)
	}
	return nil
}
