// Package radar defines core types shared across subsystems.
package radar

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies the category of a monitored source.
type SourceType string

// Source categories known to the pipeline.
const (
	SourceNews        SourceType = "news_site"
	SourceRatings     SourceType = "ratings"
	SourceSchedule    SourceType = "schedule"
	SourceChannel     SourceType = "channel"
	SourceCinemaChain SourceType = "cinema_chain"
	SourceBoxOffice   SourceType = "box_office"
)

// CollectAllOrder is the fixed sequence a full collection run walks through.
var CollectAllOrder = []SourceType{SourceNews, SourceRatings, SourceSchedule, SourceChannel}

// Source is a monitored endpoint checked on a fixed cadence.
type Source struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Type                SourceType `json:"type"`
	MovieSlug           string     `json:"movie_slug,omitempty"`
	ChannelID           string     `json:"channel_id,omitempty"`
	CheckFrequencyHours int        `json:"check_frequency_hours"`
	IsActive            bool       `json:"is_active"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// SignalDraft is a candidate signal produced by a fetch adapter before it has
// passed the dedup gate.
type SignalDraft struct {
	ExternalID  string
	Title       string
	Content     string
	SourceURL   string
	ImageURL    string
	Author      string
	RawData     map[string]any
	PublishedAt *time.Time
}

// Signal is one observed piece of market information. The external ID is the
// sole dedup key and is immutable once stored.
type Signal struct {
	ID             uuid.UUID      `json:"id"`
	SourceID       *uuid.UUID     `json:"source_id,omitempty"`
	MovieID        *uuid.UUID     `json:"movie_id,omitempty"`
	ExternalID     string         `json:"external_id"`
	Title          string         `json:"title"`
	Content        string         `json:"content,omitempty"`
	Summary        string         `json:"summary,omitempty"`
	SourceURL      string         `json:"source_url"`
	ImageURL       string         `json:"image_url,omitempty"`
	Author         string         `json:"author,omitempty"`
	SignalType     string         `json:"signal_type,omitempty"`
	Importance     string         `json:"importance,omitempty"`
	Sentiment      string         `json:"sentiment,omitempty"`
	SentimentScore *float64       `json:"sentiment_score,omitempty"`
	Rating         *float64       `json:"rating,omitempty"`
	PlatformRating string         `json:"platform_rating,omitempty"`
	ViewsCount     *int           `json:"views_count,omitempty"`
	LikesCount     *int           `json:"likes_count,omitempty"`
	CommentsCount  *int           `json:"comments_count,omitempty"`
	SharesCount    *int           `json:"shares_count,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	RawData        map[string]any `json:"raw_data,omitempty"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	IsClassified   bool           `json:"is_classified"`
	IsPublished    bool           `json:"is_published"`
	IsFeatured     bool           `json:"is_featured"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Classification values produced by the external classifier.
const (
	SignalTypeReview       = "review"
	SignalTypeRatingChange = "rating_change"
	SignalTypeScreening    = "screening"
	SignalTypeNews         = "news"
	SignalTypePromotion    = "promotion"
	SignalTypeBoxOffice    = "box_office"

	ImportanceCritical = "critical"
	ImportanceNotable  = "notable"
	ImportanceMinor    = "minor"
)

// ClassificationResult is the parsed classifier output for one signal. It is
// transient: either fully applied to the signal or discarded.
type ClassificationResult struct {
	SignalType     string   `json:"signal_type"`
	Importance     string   `json:"importance"`
	Sentiment      string   `json:"sentiment"`
	SentimentScore float64  `json:"sentiment_score"`
	Keywords       []string `json:"keywords"`
	Summary        string   `json:"summary"`
}

// ClassificationUpdate pairs a signal with its parsed classification, ready to
// be committed as part of a batch.
type ClassificationUpdate struct {
	SignalID uuid.UUID
	Result   ClassificationResult
}

// Movie is a tracked release. Aggregate fields are written only by the metrics
// aggregator and reflect a full recomputation over current signal rows.
type Movie struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	OriginalTitle  string     `json:"original_title,omitempty"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description,omitempty"`
	PosterURL      string     `json:"poster_url,omitempty"`
	ReleaseDate    *time.Time `json:"release_date,omitempty"`
	Year           *int       `json:"year,omitempty"`
	RuntimeMinutes *int       `json:"runtime_minutes,omitempty"`
	AgeRating      string     `json:"age_rating,omitempty"`
	CatalogID      string     `json:"catalog_id,omitempty"`
	IMDBID         string     `json:"imdb_id,omitempty"`
	DistributorID  *uuid.UUID `json:"distributor_id,omitempty"`

	CatalogRating *float64 `json:"catalog_rating,omitempty"`
	CatalogVotes  *int     `json:"catalog_votes,omitempty"`
	IMDBRating    *float64 `json:"imdb_rating,omitempty"`

	SignalsCount    int      `json:"signals_count"`
	ReviewsCount    int      `json:"reviews_count"`
	SentimentScore  *float64 `json:"sentiment_score,omitempty"`
	TotalScreenings int      `json:"total_screenings"`
	AvgOccupancy    *float64 `json:"avg_occupancy,omitempty"`

	IsActive   bool `json:"is_active"`
	IsFeatured bool `json:"is_featured"`
}

// MovieAggregates holds the derived counters recomputed for one movie.
type MovieAggregates struct {
	MovieID        uuid.UUID
	SignalsCount   int
	ReviewsCount   int
	SentimentScore *float64
}

// Distributor is a film distributor or studio from the seed catalog.
type Distributor struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsMajor     bool      `json:"is_major"`
}

// JobName identifies a pipeline operation dispatched through the job queue.
type JobName string

// Job names accepted by the worker pool.
const (
	JobCollectAll    JobName = "collect_all"
	JobCollectByType JobName = "collect_by_type"
	JobClassifyBatch JobName = "classify_batch"
	JobUpdateMetrics JobName = "update_movie_metrics"
)

// Job is one unit of work handed to the queue. Delivery is at least once; every
// handler must tolerate re-execution.
type Job struct {
	ID         string     `json:"id"`
	Name       JobName    `json:"name"`
	SourceType SourceType `json:"source_type,omitempty"`
	BatchSize  int        `json:"batch_size,omitempty"`
	Submitted  time.Time  `json:"submitted_at"`
	Attempt    int        `json:"attempt,omitempty"`
}
