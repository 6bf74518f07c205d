package classifier

import (
	"strings"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// maxContentChars bounds how much of a signal's body goes into the prompt.
const maxContentChars = 1000

// BuildPrompt produces the classification prompt for one signal: the
// instruction block plus the signal title and a truncated body.
func BuildPrompt(sig radar.Signal) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant classifying news and market signals about theatrical film releases.\n\n")
	sb.WriteString("Analyze the following text and return JSON with the classification.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(sig.Title)
	if sig.Content != "" {
		sb.WriteString("\n\n")
		sb.WriteString(truncateRunes(sig.Content, maxContentChars))
	}
	sb.WriteString("\n\n")
	sb.WriteString(`Return JSON in this exact format:
{
    "signal_type": "<type>",
    "importance": "<importance>",
    "sentiment": "<sentiment>",
    "sentiment_score": <number from -1 to 1>,
    "keywords": ["keyword 1", "keyword 2"],
    "summary": "<short summary, 1-2 sentences>"
}

Signal types (signal_type):
- review: a review or critique of a film
- rating_change: a rating change
- screening: showtimes or schedule information
- news: news about a film or the industry
- promotion: a promotional post or announcement
- box_office: box office figures

Importance (importance):
- critical: important news that needs attention
- notable: noteworthy information
- minor: routine information

Sentiment (sentiment):
- positive
- negative
- neutral
- mixed

IMPORTANT: Return ONLY valid JSON, no additional text.`)

	return sb.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
