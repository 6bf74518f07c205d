package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// ExtractPayload strips an optional fenced code block wrapper from the model
// response, returning the inner structured payload.
func ExtractPayload(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+len("```"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return text
}

// ParseResult decodes a classification payload. The sentiment score is
// clamped to the documented [-1, 1] contract.
func ParseResult(payload string) (radar.ClassificationResult, error) {
	var result radar.ClassificationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return radar.ClassificationResult{}, fmt.Errorf("parse classification: %w", err)
	}
	if result.SignalType == "" {
		return radar.ClassificationResult{}, fmt.Errorf("classification missing signal_type")
	}
	result.SentimentScore = clampScore(result.SentimentScore)
	return result, nil
}

func clampScore(score float64) float64 {
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}
