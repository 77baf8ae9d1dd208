package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/pkg/ai"
)

// newChatServer serves every chat completion with the given message content.
func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func newTestService(t *testing.T, content string) *Service {
	t.Helper()
	server := newChatServer(t, content)
	t.Cleanup(server.Close)
	return newServiceAt(server.URL)
}

func newServiceAt(baseURL string) *Service {
	return NewServiceWithBaseURL("test-key", "gpt-4o", "text-embedding-3-small", baseURL)
}

func TestExtractApplications_ParsesRecords(t *testing.T) {
	svc := newTestService(t, `{
		"applications": [
			{
				"company_name": "Acme Corp",
				"company_website": "https://acme.com",
				"applied_position": "Backend Engineer",
				"applied_timestamp": "2026-08-27T10:00:00Z",
				"application_status": "applied"
			}
		]
	}`)

	drafts, err := svc.ExtractApplications(context.Background(), "some email context")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if drafts[0].CompanyName != "Acme Corp" || drafts[0].AppliedPosition != "Backend Engineer" {
		t.Fatalf("unexpected draft: %+v", drafts[0])
	}
}

func TestExtractApplications_EmptyListIsNotAnError(t *testing.T) {
	svc := newTestService(t, `{"applications": []}`)

	drafts, err := svc.ExtractApplications(context.Background(), "newsletters only")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 0 {
		t.Fatalf("expected no drafts, got %d", len(drafts))
	}
}

func TestExtractApplications_MalformedOutputIsParseError(t *testing.T) {
	svc := newTestService(t, "Sure! Here are the applications I found:")

	_, err := svc.ExtractApplications(context.Background(), "some email context")
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestSelectAgent(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		want      ai.Agent
		wantErr   bool
		wantParse bool
	}{
		{name: "vector search", content: `{"agent": "vector_search_agent"}`, want: ai.AgentVectorSearch},
		{name: "text to sql", content: `{"agent": "text_to_sql_agent"}`, want: ai.AgentTextToSQL},
		{name: "declined question", content: `{"error": "This question is not about job applications"}`, want: ai.AgentInvalid},
		{name: "prose output", content: "I think you want the vector search agent.", want: ai.AgentInvalid, wantErr: true, wantParse: true},
		{name: "unknown agent", content: `{"agent": "kitchen_sink_agent"}`, want: ai.AgentInvalid, wantErr: true, wantParse: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.content)

			agent, err := svc.SelectAgent(context.Background(), "anything")
			if agent != tt.want {
				t.Fatalf("expected agent %q, got %q", tt.want, agent)
			}
			if tt.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantParse && !errors.Is(err, domain.ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestSelectAgent_TransportFailureResolvesToInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	svc := newServiceAt(server.URL)

	agent, err := svc.SelectAgent(context.Background(), "anything")
	if agent != ai.AgentInvalid {
		t.Fatalf("expected AgentInvalid on transport failure, got %q", agent)
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestGenerateSQL_PreservesKnownChartTypes(t *testing.T) {
	svc := newTestService(t, `{"sql": "SELECT company_name, application_status FROM applied_companies LIMIT 5", "chart_type": "pie"}`)

	gen, err := svc.GenerateSQL(context.Background(), "status breakdown")
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if gen.ChartType != ai.ChartPie {
		t.Fatalf("expected pie chart hint, got %q", gen.ChartType)
	}
}

func TestGenerateSQL_UnknownChartCoercesToNone(t *testing.T) {
	svc := newTestService(t, `{"sql": "SELECT company_name FROM applied_companies LIMIT 5", "chart_type": "scatter"}`)

	gen, err := svc.GenerateSQL(context.Background(), "list companies")
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if gen.ChartType != ai.ChartNone {
		t.Fatalf("expected chart hint coerced to none, got %q", gen.ChartType)
	}
}

func TestGenerateSQL_MissingSQLIsParseError(t *testing.T) {
	svc := newTestService(t, `{"chart_type": "bar"}`)

	_, err := svc.GenerateSQL(context.Background(), "list companies")
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestEmbed_ReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings path, got %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [{"embedding": [0.1, 0.2, 0.3]}]}`)
	}))
	defer server.Close()
	svc := newServiceAt(server.URL)

	vector, err := svc.Embed(context.Background(), "Acme Corp Backend Engineer")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestEmbed_APIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	svc := newServiceAt(server.URL)

	if _, err := svc.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected an error")
	}
}
