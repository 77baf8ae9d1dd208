package usecase

import (
	"context"
	"log"

	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/internal/application/repository"
	"jobtrail-backend/pkg/ai"

	"github.com/pgvector/pgvector-go"
)

// ResultKind distinguishes the three answer shapes.
type ResultKind string

const (
	ResultStream  ResultKind = "stream"
	ResultTable   ResultKind = "table"
	ResultMessage ResultKind = "message"
)

// Canned degradation messages. Query-time failures always resolve to one of
// these, never to a propagated error.
const (
	msgInvalidQuestion = "Please ask relevant questions about a company!!!!"
	msgNoMatch         = "No similar company found for the query."
	msgCouldNotAnswer  = "Sorry, I could not answer that question. Please try rephrasing it."
)

// TableResult is the tabulated output of the text-to-sql path.
type TableResult struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	ChartType string          `json:"chart_type"`
}

// QueryResult is one answer: a chunk stream (vector path), a table (sql
// path), or a plain message (invalid / degraded).
type QueryResult struct {
	Kind    ResultKind
	Stream  <-chan string
	Table   *TableResult
	Message string
}

// QueryUsecase routes a natural-language question to vector retrieval or
// text-to-sql and assembles the answer.
type QueryUsecase struct {
	completion ai.CompletionService
	embedder   ai.EmbeddingService
	companies  repository.CompanyRepository
	embeddings repository.EmbeddingRepository
}

func NewQueryUsecase(
	completion ai.CompletionService,
	embedder ai.EmbeddingService,
	companies repository.CompanyRepository,
	embeddings repository.EmbeddingRepository,
) *QueryUsecase {
	return &QueryUsecase{
		completion: completion,
		embedder:   embedder,
		companies:  companies,
		embeddings: embeddings,
	}
}

// Answer never returns an error to the boundary: every failure degrades to a
// textual message or an empty result.
func (u *QueryUsecase) Answer(ctx context.Context, userQuery string) *QueryResult {
	agent, err := u.completion.SelectAgent(ctx, userQuery)
	if err != nil {
		// Fail-safe: an unparseable or failed classification is treated as
		// an invalid question, never as a query-executing path.
		log.Printf("[Router] Classification resolved to invalid: %v", err)
		agent = ai.AgentInvalid
	}
	log.Printf("[Router] Selected agent: %s", agent)

	switch agent {
	case ai.AgentVectorSearch:
		return u.answerByVectorSearch(ctx, userQuery)
	case ai.AgentTextToSQL:
		return u.answerByTextToSQL(ctx, userQuery)
	default:
		return &QueryResult{Kind: ResultMessage, Message: msgInvalidQuestion}
	}
}

func (u *QueryUsecase) answerByVectorSearch(ctx context.Context, userQuery string) *QueryResult {
	company := u.nearestCompany(ctx, userQuery)
	if company == nil {
		return &QueryResult{Kind: ResultMessage, Message: msgNoMatch}
	}

	// Single-producer/single-consumer channel per request. The producer
	// closes it when the model finishes; cancelling ctx (consumer gone)
	// stops the producer.
	out := make(chan string, 8)
	go u.completion.StreamAnswer(ctx, userQuery, company, out)

	return &QueryResult{Kind: ResultStream, Stream: out}
}

// nearestCompany returns the closest application record, or nil. "No match"
// and "search error" both surface as nil, but are distinguished in logs.
func (u *QueryUsecase) nearestCompany(ctx context.Context, userQuery string) *domain.AppliedCompany {
	vector, err := u.embedder.Embed(ctx, userQuery)
	if err != nil {
		log.Printf("[VectorSearch] Query embedding failed: %v", err)
		return nil
	}

	company, err := u.embeddings.NearestCompany(pgvector.NewVector(vector))
	if err != nil {
		log.Printf("[VectorSearch] Search error: %v", err)
		return nil
	}
	if company == nil {
		log.Printf("[VectorSearch] No similar company found")
		return nil
	}
	log.Printf("[VectorSearch] Most similar company: %s / %s", company.CompanyName, company.JobPosition)
	return company
}

func (u *QueryUsecase) answerByTextToSQL(ctx context.Context, userQuery string) *QueryResult {
	generation, err := u.completion.GenerateSQL(ctx, userQuery)
	if err != nil {
		// Malformed synthesis resolves the same as "no query produced".
		log.Printf("[TextToSQL] No query produced: %v", err)
		return &QueryResult{Kind: ResultMessage, Message: msgCouldNotAnswer}
	}
	log.Printf("[TextToSQL] Generated SQL: %s (chart: %s)", generation.SQL, generation.ChartType)

	columns, rows, err := u.companies.RunReadOnlyQuery(ctx, generation.SQL)
	if err != nil {
		log.Printf("[TextToSQL] Execution failed: %v", err)
		return &QueryResult{Kind: ResultMessage, Message: msgCouldNotAnswer}
	}

	return &QueryResult{
		Kind: ResultTable,
		Table: &TableResult{
			Columns:   columns,
			Rows:      rows,
			ChartType: generation.ChartType,
		},
	}
}
