package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/pkg/ai"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Service implements ai.CompletionService and ai.EmbeddingService against the
// OpenAI chat-completions and embeddings endpoints.
type Service struct {
	apiKey          string
	completionModel string
	embeddingModel  string
	baseURL         string
	client          *http.Client
}

func NewService(apiKey, completionModel, embeddingModel string) *Service {
	return &Service{
		apiKey:          apiKey,
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		baseURL:         defaultBaseURL,
		client:          &http.Client{},
	}
}

// NewServiceWithBaseURL points the client at a non-default endpoint.
func NewServiceWithBaseURL(apiKey, completionModel, embeddingModel, baseURL string) *Service {
	s := NewService(apiKey, completionModel, embeddingModel)
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature"`
	Stream         bool          `json:"stream,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// completeJSON runs one chat completion constrained to a single JSON object
// reply and returns the raw content string.
func (s *Service) completeJSON(ctx context.Context, system, prompt string, maxTokens int, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model: s.completionModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// ExtractApplications implements ai.CompletionService.
func (s *Service) ExtractApplications(ctx context.Context, emailContext string) ([]domain.ApplicationDraft, error) {
	prompt := buildExtractionPrompt(emailContext)

	content, err := s.completeJSON(ctx, "You are a helpful assistant.", prompt, 500, 0.1)
	if err != nil {
		return nil, err
	}

	var result struct {
		Applications []domain.ApplicationDraft `json:"applications"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("[Extract] Failed to parse model output as JSON. Raw output:\n%s", content)
		return nil, fmt.Errorf("%w: extraction output not valid JSON: %v", domain.ErrParse, err)
	}

	// {"applications": []} is a valid outcome, not an error.
	return result.Applications, nil
}

// SelectAgent implements ai.CompletionService. Any malformed reply or
// transport failure resolves to AgentInvalid alongside the underlying error,
// so ambiguous classifier output never reaches a query-executing path.
func (s *Service) SelectAgent(ctx context.Context, userQuery string) (ai.Agent, error) {
	prompt := buildAgentSelectorPrompt(userQuery)

	content, err := s.completeJSON(ctx, "You are a helpful assistant that generates SQL queries in JSON format", prompt, 50, 0)
	if err != nil {
		return ai.AgentInvalid, err
	}

	var result struct {
		Agent string `json:"agent"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("[Router] Failed to parse classifier output as JSON. Raw output:\n%s", content)
		return ai.AgentInvalid, fmt.Errorf("%w: classifier output not valid JSON: %v", domain.ErrParse, err)
	}

	switch ai.Agent(result.Agent) {
	case ai.AgentVectorSearch:
		return ai.AgentVectorSearch, nil
	case ai.AgentTextToSQL:
		return ai.AgentTextToSQL, nil
	}
	if result.Error != "" {
		return ai.AgentInvalid, nil
	}
	return ai.AgentInvalid, fmt.Errorf("%w: classifier returned unknown agent %q", domain.ErrParse, result.Agent)
}

// GenerateSQL implements ai.CompletionService.
func (s *Service) GenerateSQL(ctx context.Context, userQuery string) (*ai.SQLGeneration, error) {
	prompt := buildTextToSQLPrompt(userQuery)

	content, err := s.completeJSON(ctx, "You are a helpful assistant that generates SQL queries in JSON format", prompt, 150, 0)
	if err != nil {
		return nil, err
	}

	var result ai.SQLGeneration
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("[TextToSQL] Failed to parse model output as JSON. Raw output:\n%s", content)
		return nil, fmt.Errorf("%w: sql generation output not valid JSON: %v", domain.ErrParse, err)
	}
	if result.SQL == "" {
		return nil, fmt.Errorf("%w: sql generation output missing sql field", domain.ErrParse)
	}

	switch result.ChartType {
	case ai.ChartBar, ai.ChartPie, ai.ChartLine:
	default:
		result.ChartType = ai.ChartNone
	}

	return &result, nil
}
