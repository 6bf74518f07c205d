package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Channel extracts candidate signals from a public channel preview page.
//
// Identity is derived from the per-message permalink (the data-post attribute)
// when the page exposes one, which keeps repeated fetches of the same channel
// deduplicatable. Messages without a permalink fall back to an index plus
// fetch-timestamp identity that cannot dedup across fetches.
type Channel struct {
	cfg    Config
	clock  radar.Clock
	logger *zap.Logger
}

// NewChannel builds the channel adapter.
func NewChannel(cfg Config, clock radar.Clock, logger *zap.Logger) *Channel {
	return &Channel{cfg: cfg.withDefaults(), clock: clock, logger: logger}
}

// FetchSignals fetches the channel preview and extracts up to MaxItems
// message drafts.
func (a *Channel) FetchSignals(ctx context.Context, src radar.Source) ([]radar.SignalDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch canceled: %w", err)
	}
	channelID := src.ChannelID
	if channelID == "" {
		return nil, fmt.Errorf("source %q has no channel id", src.Name)
	}
	pageURL := fmt.Sprintf("%s/%s", strings.TrimRight(a.cfg.ChannelBaseURL, "/"), channelID)

	var (
		drafts   []radar.SignalDraft
		fetchErr error
		index    int
	)
	fetchedAt := a.clock.Now()

	c := newCollector(a.cfg)
	c.OnHTML("div.tgme_widget_message", func(e *colly.HTMLElement) {
		if len(drafts) >= a.cfg.MaxItems {
			return
		}
		text := strings.TrimSpace(e.DOM.Find(".tgme_widget_message_text").First().Text())
		if text == "" {
			return
		}

		ref := strings.TrimSpace(e.Attr("data-post"))
		var externalID string
		if ref != "" {
			externalID = fmt.Sprintf("%s:%s:%s", radar.SourceChannel, channelID, ref)
		} else {
			externalID = fmt.Sprintf("%s:%s:%d:%d", radar.SourceChannel, channelID, index, fetchedAt.Unix())
		}
		index++

		publishedAt := fetchedAt
		drafts = append(drafts, radar.SignalDraft{
			ExternalID:  externalID,
			Title:       truncate(text, 200),
			Content:     truncate(text, 500),
			SourceURL:   pageURL,
			PublishedAt: &publishedAt,
		})
	})
	c.OnError(func(resp *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", pageURL, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	a.logger.Debug("channel fetched",
		zap.String("channel", channelID),
		zap.Int("items", len(drafts)),
	)
	return drafts, nil
}
