package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobtrail-backend/internal/application/domain"
)

// maxMessages caps one fetch at a single provider page.
const maxMessages = 50

// Service fetches messages from the Microsoft Graph mail endpoint.
type Service struct {
	tokens  *TokenStore
	baseURL string
	client  *http.Client
}

func NewService(tokens *TokenStore, baseURL string) *Service {
	return &Service{
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type graphMessage struct {
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	ReceivedDateTime string `json:"receivedDateTime"`
	BodyPreview      string `json:"bodyPreview"`
}

type graphMessageList struct {
	Value []graphMessage `json:"value"`
}

// FetchRecent retrieves up to maxMessages messages received within the given
// window, newest first. Non-success provider responses surface as
// domain.ErrFetch with the status and provider error body; retry is an
// orchestration concern, not handled here.
func (s *Service) FetchRecent(ctx context.Context, window time.Duration) ([]domain.RawMessage, error) {
	accessToken, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-window).Format("2006-01-02T15:04:05Z")

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since))
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$top", fmt.Sprintf("%d", maxMessages))
	endpoint := s.baseURL + "/me/messages?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFetch, resp.StatusCode, string(body))
	}

	var list graphMessageList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrFetch, err)
	}

	messages := make([]domain.RawMessage, 0, len(list.Value))
	for _, m := range list.Value {
		messages = append(messages, domain.RawMessage{
			Subject:     defaultIfEmpty(m.Subject, "No Subject"),
			From:        defaultIfEmpty(m.From.EmailAddress.Address, "Unknown"),
			Received:    defaultIfEmpty(m.ReceivedDateTime, "Unknown"),
			BodyPreview: defaultIfEmpty(m.BodyPreview, "No Preview"),
		})
	}

	return messages, nil
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
