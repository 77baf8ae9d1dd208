package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"jobtrail-backend/internal/application/domain"
)

// retryLaterMessage is the single closing chunk emitted when the stream dies
// mid-generation, so the consumer never sees a silent cut-off.
const retryLaterMessage = "There was an error processing your request. Please try again later."

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamAnswer implements ai.CompletionService. It produces the grounded
// answer for the vector-search path as an ordered sequence of text chunks on
// out, closing the channel when the model signals completion. Cancelling ctx
// (the consumer disconnecting) stops the underlying request.
func (s *Service) StreamAnswer(ctx context.Context, userQuery string, company *domain.AppliedCompany, out chan<- string) {
	defer close(out)

	prompt := buildAnswerPrompt(userQuery, company)

	reqBody := chatRequest{
		Model: s.completionModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   100,
		Temperature: 0.1,
		Stream:      true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("[Stream] Failed to marshal request: %v", err)
		emit(ctx, out, retryLaterMessage)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Stream] Failed to build request: %v", err)
		emit(ctx, out, retryLaterMessage)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Stream] OpenAI request failed: %v", err)
		emit(ctx, out, retryLaterMessage)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Stream] OpenAI API error (%d)", resp.StatusCode)
		emit(ctx, out, retryLaterMessage)
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Printf("[Stream] Skipping malformed stream event: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		if !emit(ctx, out, chunk.Choices[0].Delta.Content) {
			// Consumer is gone; stop pulling model output.
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("[Stream] Stream interrupted: %v", err)
		emit(ctx, out, retryLaterMessage)
	}
}

// emit sends one chunk unless the consumer has cancelled. Reports whether the
// chunk was delivered.
func emit(ctx context.Context, out chan<- string, chunk string) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
