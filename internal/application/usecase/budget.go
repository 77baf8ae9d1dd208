package usecase

import (
	"fmt"
	"strings"

	"jobtrail-backend/internal/application/domain"
)

// tokensPerWord is the deterministic token estimate used for budgeting model
// input. Deliberately rough; the only requirement is that trimming is
// reproducible.
const tokensPerWord = 1.3

// EstimateTokens estimates the token count of text as wordCount * 1.3,
// rounded down.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * tokensPerWord)
}

// TrimToTokenLimit returns text unchanged when its estimate fits the limit.
// Otherwise it keeps the first floor(limit/1.3) whitespace-delimited words,
// joined by single spaces. Truncation always drops the tail, never the head.
func TrimToTokenLimit(text string, tokenLimit int) string {
	if EstimateTokens(text) <= tokenLimit {
		return text
	}

	words := strings.Fields(text)
	allowed := int(float64(tokenLimit) / tokensPerWord)
	if allowed > len(words) {
		allowed = len(words)
	}
	if allowed < 0 {
		allowed = 0
	}

	return strings.Join(words[:allowed], " ")
}

// FormatMessages renders fetched messages into the plain-text context block
// handed to the extraction model.
func FormatMessages(messages []domain.RawMessage) string {
	separator := strings.Repeat("-", 50)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total Emails Fetched: %d\n", len(messages)))
	sb.WriteString(separator + "\n")
	for _, m := range messages {
		sb.WriteString(fmt.Sprintf("Subject: %s\n", m.Subject))
		sb.WriteString(fmt.Sprintf("From: %s\n", m.From))
		sb.WriteString(fmt.Sprintf("Received: %s\n", m.Received))
		sb.WriteString(fmt.Sprintf("Body Preview: %s\n", m.BodyPreview))
		sb.WriteString(separator + "\n")
	}
	return sb.String()
}
