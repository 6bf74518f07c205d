package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

const signalColumns = `id, source_id, movie_id, external_id, title,
	COALESCE(content, ''), COALESCE(summary, ''), source_url, COALESCE(image_url, ''),
	COALESCE(author, ''), COALESCE(signal_type, ''), COALESCE(importance, ''),
	COALESCE(sentiment, ''), sentiment_score, rating, COALESCE(platform_rating, ''),
	views_count, likes_count, comments_count, shares_count, keywords, raw_data,
	published_at, is_classified, is_published, is_featured, created_at`

// SignalStore implements radar.SignalStore on Postgres. The unique index on
// external_id makes Create the dedup backstop under concurrent collection runs.
type SignalStore struct {
	db DB
}

func NewSignalStore(db DB) *SignalStore {
	return &SignalStore{db: db}
}

func (s *SignalStore) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM signals WHERE external_id = $1)`,
		externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check signal existence: %w", err)
	}
	return exists, nil
}

func (s *SignalStore) Create(ctx context.Context, sig radar.Signal) error {
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	keywords, err := marshalJSONB(sig.Keywords)
	if err != nil {
		return fmt.Errorf("marshal signal keywords: %w", err)
	}
	rawData, err := marshalJSONB(sig.RawData)
	if err != nil {
		return fmt.Errorf("marshal signal raw data: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO signals (id, source_id, movie_id, external_id, title, content,
			summary, source_url, image_url, author, signal_type, importance, sentiment,
			sentiment_score, rating, platform_rating, views_count, likes_count,
			comments_count, shares_count, keywords, raw_data, published_at,
			is_classified, is_published, is_featured, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8,
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
			NULLIF($13, ''), $14, $15, NULLIF($16, ''), $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26, $27)
		 ON CONFLICT (external_id) DO NOTHING`,
		sig.ID, sig.SourceID, sig.MovieID, sig.ExternalID, sig.Title, sig.Content,
		sig.Summary, sig.SourceURL, sig.ImageURL, sig.Author, sig.SignalType,
		sig.Importance, sig.Sentiment, sig.SentimentScore, sig.Rating,
		sig.PlatformRating, sig.ViewsCount, sig.LikesCount, sig.CommentsCount,
		sig.SharesCount, keywords, rawData, sig.PublishedAt, sig.IsClassified,
		sig.IsPublished, sig.IsFeatured, sig.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert signal %q: %w", sig.ExternalID, err)
	}
	if tag.RowsAffected() == 0 {
		return radar.ErrDuplicateSignal
	}
	return nil
}

func (s *SignalStore) Unclassified(ctx context.Context, limit int) ([]radar.Signal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+signalColumns+` FROM signals
		 WHERE NOT is_classified ORDER BY created_at ASC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query unclassified signals: %w", err)
	}
	defer rows.Close()

	var signals []radar.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return signals, nil
}

func (s *SignalStore) ApplyClassifications(ctx context.Context, updates []radar.ClassificationUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin classification tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, u := range updates {
		keywords, err := marshalJSONB(u.Result.Keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords for signal %s: %w", u.SignalID, err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE signals
			 SET signal_type = $2, importance = NULLIF($3, ''), sentiment = NULLIF($4, ''),
			     sentiment_score = $5, keywords = $6, summary = NULLIF($7, ''),
			     is_classified = TRUE
			 WHERE id = $1`,
			u.SignalID, u.Result.SignalType, u.Result.Importance, u.Result.Sentiment,
			u.Result.SentimentScore, keywords, u.Result.Summary)
		if err != nil {
			return fmt.Errorf("update signal %s classification: %w", u.SignalID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit classification tx: %w", err)
	}
	return nil
}

func scanSignal(row pgx.Row) (radar.Signal, error) {
	var (
		sig      radar.Signal
		keywords []byte
		rawData  []byte
	)
	err := row.Scan(
		&sig.ID, &sig.SourceID, &sig.MovieID, &sig.ExternalID, &sig.Title,
		&sig.Content, &sig.Summary, &sig.SourceURL, &sig.ImageURL, &sig.Author,
		&sig.SignalType, &sig.Importance, &sig.Sentiment, &sig.SentimentScore,
		&sig.Rating, &sig.PlatformRating, &sig.ViewsCount, &sig.LikesCount,
		&sig.CommentsCount, &sig.SharesCount, &keywords, &rawData,
		&sig.PublishedAt, &sig.IsClassified, &sig.IsPublished, &sig.IsFeatured,
		&sig.CreatedAt,
	)
	if err != nil {
		return radar.Signal{}, err
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &sig.Keywords); err != nil {
			return radar.Signal{}, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &sig.RawData); err != nil {
			return radar.Signal{}, fmt.Errorf("unmarshal raw data: %w", err)
		}
	}
	return sig, nil
}

// marshalJSONB serializes v for a JSONB column, mapping empty values to NULL.
func marshalJSONB(v any) (any, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return payload, nil
}
