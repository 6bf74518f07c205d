package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Listing extracts candidate signals from a listing page (news, ratings,
// schedule, cinema chain, box office) using structural heuristics: headline
// and link pairs inside item blocks. Malformed items are skipped; only a total
// fetch failure is returned as an error.
type Listing struct {
	category radar.SourceType
	cfg      Config
	clock    radar.Clock
	logger   *zap.Logger
}

// NewListing builds a listing adapter for one source category.
func NewListing(category radar.SourceType, cfg Config, clock radar.Clock, logger *zap.Logger) *Listing {
	return &Listing{
		category: category,
		cfg:      cfg.withDefaults(),
		clock:    clock,
		logger:   logger,
	}
}

// FetchSignals fetches the listing page and extracts up to MaxItems drafts.
func (l *Listing) FetchSignals(ctx context.Context, src radar.Source) ([]radar.SignalDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch canceled: %w", err)
	}

	var (
		drafts   []radar.SignalDraft
		fetchErr error
	)
	fetchedAt := l.clock.Now()
	seen := make(map[string]struct{})

	c := newCollector(l.cfg)
	handler := func(e *colly.HTMLElement) {
		if len(drafts) >= l.cfg.MaxItems {
			return
		}
		draft, ok := l.extractItem(e, fetchedAt)
		if !ok {
			return
		}
		if _, dup := seen[draft.ExternalID]; dup {
			return
		}
		seen[draft.ExternalID] = struct{}{}
		drafts = append(drafts, draft)
	}
	for _, selector := range l.selectors() {
		c.OnHTML(selector, handler)
	}
	c.OnError(func(resp *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", src.URL, err)
	})

	if err := c.Visit(src.URL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", src.URL, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	l.logger.Debug("listing fetched",
		zap.String("source", src.Name),
		zap.Int("items", len(drafts)),
	)
	return drafts, nil
}

// selectors returns the item block selectors for the category. Rating pages
// list movie links directly; the other listings publish headline blocks.
func (l *Listing) selectors() []string {
	if l.category == radar.SourceRatings {
		return []string{`a[href*="/film/"]`}
	}
	return []string{"article", `div[class*="news"]`}
}

func (l *Listing) extractItem(e *colly.HTMLElement, fetchedAt time.Time) (radar.SignalDraft, bool) {
	var title, link string
	if l.category == radar.SourceRatings {
		title = strings.TrimSpace(e.Text)
		link = e.Request.AbsoluteURL(e.Attr("href"))
	} else {
		title = strings.TrimSpace(e.DOM.Find("h1, h2, h3, a").First().Text())
		href, ok := e.DOM.Find("a[href]").First().Attr("href")
		if !ok {
			return radar.SignalDraft{}, false
		}
		link = e.Request.AbsoluteURL(href)
	}
	if title == "" || link == "" {
		return radar.SignalDraft{}, false
	}

	publishedAt := fetchedAt
	return radar.SignalDraft{
		ExternalID:  fmt.Sprintf("%s:%s", l.category, link),
		Title:       truncate(title, 500),
		SourceURL:   link,
		PublishedAt: &publishedAt,
	}, true
}

func newCollector(cfg Config) *colly.Collector {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	return c
}
