package adapter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

func TestChannelFetchSignals(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<div class="tgme_widget_message" data-post="kino/101">
			<div class="tgme_widget_message_text">Premiere moved to May</div>
		</div>
		<div class="tgme_widget_message" data-post="kino/102">
			<div class="tgme_widget_message_text">Box office numbers are in</div>
		</div>
	</body></html>`)

	a := NewChannel(Config{ChannelBaseURL: srv.URL}, newTestClock(), zap.NewNop())
	drafts, err := a.FetchSignals(context.Background(), radar.Source{ChannelID: "kino"})
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	require.Equal(t, "channel:kino:kino/101", drafts[0].ExternalID)
	require.Equal(t, "Premiere moved to May", drafts[0].Title)
	require.Equal(t, drafts[0].Title, drafts[0].Content)
	require.Equal(t, srv.URL+"/kino", drafts[0].SourceURL)
}

func TestChannelFallbackIdentity(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<div class="tgme_widget_message">
			<div class="tgme_widget_message_text">Message without a permalink</div>
		</div>
	</body></html>`)

	clk := newTestClock()
	a := NewChannel(Config{ChannelBaseURL: srv.URL}, clk, zap.NewNop())
	drafts, err := a.FetchSignals(context.Background(), radar.Source{ChannelID: "kino"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, fmt.Sprintf("channel:kino:0:%d", clk.now.Unix()), drafts[0].ExternalID)
}

func TestChannelSkipsEmptyMessages(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body>
		<div class="tgme_widget_message" data-post="kino/1">
			<div class="tgme_widget_message_text"></div>
		</div>
		<div class="tgme_widget_message" data-post="kino/2">
			<div class="tgme_widget_message_text">Real text</div>
		</div>
	</body></html>`)

	a := NewChannel(Config{ChannelBaseURL: srv.URL}, newTestClock(), zap.NewNop())
	drafts, err := a.FetchSignals(context.Background(), radar.Source{ChannelID: "kino"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, "channel:kino:kino/2", drafts[0].ExternalID)
}

func TestChannelTruncatesTitleAndContent(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 600)
	srv := serveHTML(t, fmt.Sprintf(`<html><body>
		<div class="tgme_widget_message" data-post="kino/1">
			<div class="tgme_widget_message_text">%s</div>
		</div>
	</body></html>`, long))

	a := NewChannel(Config{ChannelBaseURL: srv.URL}, newTestClock(), zap.NewNop())
	drafts, err := a.FetchSignals(context.Background(), radar.Source{ChannelID: "kino"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Len(t, drafts[0].Title, 200)
	require.Len(t, drafts[0].Content, 500)
}

func TestChannelRequiresChannelID(t *testing.T) {
	t.Parallel()

	a := NewChannel(Config{}, newTestClock(), zap.NewNop())
	_, err := a.FetchSignals(context.Background(), radar.Source{Name: "broken"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no channel id")
}

func TestRegistryCoversAllTypes(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Config{}, newTestClock(), zap.NewNop())
	for _, st := range []radar.SourceType{
		radar.SourceNews, radar.SourceRatings, radar.SourceSchedule,
		radar.SourceChannel, radar.SourceCinemaChain, radar.SourceBoxOffice,
	} {
		_, ok := r.ForType(st)
		require.True(t, ok, "missing adapter for %s", st)
	}
	_, ok := r.ForType(radar.SourceType("bogus"))
	require.False(t, ok)
}
