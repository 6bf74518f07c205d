package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

func TestExtractPayload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence with preamble", "Here you go:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ExtractPayload(tc.in))
		})
	}
}

func TestParseResult(t *testing.T) {
	t.Parallel()

	result, err := ParseResult(`{
		"signal_type": "review",
		"importance": "notable",
		"sentiment": "positive",
		"sentiment_score": 0.8,
		"keywords": ["premiere"],
		"summary": "A positive review."
	}`)
	require.NoError(t, err)
	require.Equal(t, radar.SignalTypeReview, result.SignalType)
	require.Equal(t, radar.ImportanceNotable, result.Importance)
	require.InDelta(t, 0.8, result.SentimentScore, 1e-9)
	require.Equal(t, []string{"premiere"}, result.Keywords)
}

func TestParseResultClampsScore(t *testing.T) {
	t.Parallel()

	result, err := ParseResult(`{"signal_type": "news", "sentiment_score": 3.5}`)
	require.NoError(t, err)
	require.Equal(t, 1.0, result.SentimentScore)

	result, err = ParseResult(`{"signal_type": "news", "sentiment_score": -2}`)
	require.NoError(t, err)
	require.Equal(t, -1.0, result.SentimentScore)
}

func TestParseResultRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseResult("not json at all")
	require.Error(t, err)

	_, err = ParseResult(`{"importance": "minor"}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "signal_type")
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	sig := radar.Signal{
		Title:   "Premiere announced",
		Content: strings.Repeat("x", 1500),
	}
	prompt := BuildPrompt(sig)
	require.Contains(t, prompt, "Premiere announced")
	require.Contains(t, prompt, "Return ONLY valid JSON")
	require.Contains(t, prompt, strings.Repeat("x", 1000))
	require.NotContains(t, prompt, strings.Repeat("x", 1001))
}
