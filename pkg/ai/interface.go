package ai

import (
	"context"

	"jobtrail-backend/internal/application/domain"
)

// Agent is the retrieval path chosen for a user query.
type Agent string

const (
	AgentVectorSearch Agent = "vector_search_agent"
	AgentTextToSQL    Agent = "text_to_sql_agent"
	AgentInvalid      Agent = "invalid"
)

// Chart types the SQL synthesizer may suggest. Anything outside this set is
// coerced to ChartNone.
const (
	ChartBar  = "bar"
	ChartPie  = "pie"
	ChartLine = "line"
	ChartNone = "none"
)

// SQLGeneration is the synthesizer output: one executable query plus an
// optional visualization hint.
type SQLGeneration struct {
	SQL       string `json:"sql"`
	ChartType string `json:"chart_type"`
}

// CompletionService is the interface for LLM-backed stages.
// Implement this interface to add new providers (OpenAI, Gemini, Ollama, etc.)
type CompletionService interface {
	// ExtractApplications turns raw email context into zero or more
	// application drafts. A reply that is not a single well-formed JSON
	// object is domain.ErrParse and discards the whole batch.
	ExtractApplications(ctx context.Context, emailContext string) ([]domain.ApplicationDraft, error)

	// SelectAgent classifies a user query into a retrieval path. Malformed
	// or failed classification must resolve to AgentInvalid, never to a
	// query-executing path.
	SelectAgent(ctx context.Context, userQuery string) (Agent, error)

	// GenerateSQL translates a user query into one SQL statement plus a
	// chart-type hint.
	GenerateSQL(ctx context.Context, userQuery string) (*SQLGeneration, error)

	// StreamAnswer writes an incremental grounded answer to out and closes
	// it when generation finishes. Cancelling ctx stops the stream; a
	// transport failure mid-stream emits one final retry-later chunk.
	StreamAnswer(ctx context.Context, userQuery string, company *domain.AppliedCompany, out chan<- string)
}

// EmbeddingService produces fixed-dimension vectors in the space shared by
// indexing and query-time retrieval.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
