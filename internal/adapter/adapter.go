// Package adapter implements fetch adapters that turn a source endpoint into a
// bounded list of candidate signal drafts.
package adapter

import (
	"time"

	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Config controls fetch behavior shared by all adapters.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxItems caps the number of items extracted per fetch.
	MaxItems int
	// ChannelBaseURL is the public preview endpoint for channel sources.
	ChannelBaseURL string
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxItems == 0 {
		c.MaxItems = 20
	}
	if c.ChannelBaseURL == "" {
		c.ChannelBaseURL = "https://t.me/s"
	}
	return c
}

// Registry maps source types to their adapters.
type Registry struct {
	adapters map[radar.SourceType]radar.Adapter
}

// NewRegistry builds the default adapter set: listing adapters for every page
// based category plus the channel adapter.
func NewRegistry(cfg Config, clock radar.Clock, logger *zap.Logger) *Registry {
	cfg = cfg.withDefaults()
	adapters := map[radar.SourceType]radar.Adapter{
		radar.SourceChannel: NewChannel(cfg, clock, logger.Named("channel")),
	}
	for _, t := range []radar.SourceType{
		radar.SourceNews,
		radar.SourceRatings,
		radar.SourceSchedule,
		radar.SourceCinemaChain,
		radar.SourceBoxOffice,
	} {
		adapters[t] = NewListing(t, cfg, clock, logger.Named(string(t)))
	}
	return &Registry{adapters: adapters}
}

// ForType returns the adapter registered for the given source type.
func (r *Registry) ForType(t radar.SourceType) (radar.Adapter, bool) {
	a, ok := r.adapters[t]
	return a, ok
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
