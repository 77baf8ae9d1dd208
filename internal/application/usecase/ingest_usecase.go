package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/internal/application/repository"
	"jobtrail-backend/pkg/ai"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// MailFetcher retrieves messages received within the window.
type MailFetcher interface {
	FetchRecent(ctx context.Context, window time.Duration) ([]domain.RawMessage, error)
}

// IngestSummary reports one ingestion run.
type IngestSummary struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Embedded int `json:"embedded"`
}

// IngestUsecase is the fetch -> budget -> extract -> persist -> index
// pipeline. Stages run sequentially; the only shared state is the credential
// cache and the database connection.
type IngestUsecase struct {
	fetcher     MailFetcher
	completion  ai.CompletionService
	embedder    ai.EmbeddingService
	companies   repository.CompanyRepository
	embeddings  repository.EmbeddingRepository
	fetchWindow time.Duration
	tokenLimit  int
}

func NewIngestUsecase(
	fetcher MailFetcher,
	completion ai.CompletionService,
	embedder ai.EmbeddingService,
	companies repository.CompanyRepository,
	embeddings repository.EmbeddingRepository,
	fetchWindow time.Duration,
	tokenLimit int,
) *IngestUsecase {
	return &IngestUsecase{
		fetcher:     fetcher,
		completion:  completion,
		embedder:    embedder,
		companies:   companies,
		embeddings:  embeddings,
		fetchWindow: fetchWindow,
		tokenLimit:  tokenLimit,
	}
}

// Run executes one ingestion pass. Auth, fetch and persistence failures
// surface to the caller; a malformed extraction reply discards the batch and
// finishes the run without records.
func (u *IngestUsecase) Run(ctx context.Context) (*IngestSummary, error) {
	runID := uuid.New().String()[:8]
	summary := &IngestSummary{}

	messages, err := u.fetcher.FetchRecent(ctx, u.fetchWindow)
	if err != nil {
		return nil, err
	}
	summary.Fetched = len(messages)
	log.Printf("[Ingest %s] Fetched %d messages", runID, len(messages))
	if len(messages) == 0 {
		return summary, nil
	}

	emailContext := TrimToTokenLimit(FormatMessages(messages), u.tokenLimit)

	drafts, err := u.completion.ExtractApplications(ctx, emailContext)
	if err != nil {
		if errors.Is(err, domain.ErrParse) {
			// Fail closed: the whole extraction batch is discarded, the run
			// itself is not a failure.
			log.Printf("[Ingest %s] Extraction batch discarded: %v", runID, err)
			return summary, nil
		}
		return nil, err
	}
	log.Printf("[Ingest %s] Extracted %d application(s)", runID, len(drafts))
	if len(drafts) == 0 {
		return summary, nil
	}

	records := make([]domain.AppliedCompany, 0, len(drafts))
	for _, d := range drafts {
		records = append(records, recordFromDraft(d))
	}

	newIDs, err := u.companies.InsertBatch(records)
	if err != nil {
		return nil, err
	}
	summary.Inserted = len(newIDs)

	summary.Embedded = u.indexNewRecords(ctx, runID, newIDs)
	log.Printf("[Ingest %s] Done: inserted=%d embedded=%d", runID, summary.Inserted, summary.Embedded)

	return summary, nil
}

// indexNewRecords embeds each newly inserted record. A per-record failure is
// logged and skipped: that application stays reachable by SQL but invisible
// to vector search until a future run.
func (u *IngestUsecase) indexNewRecords(ctx context.Context, runID string, ids []uint) int {
	indexed := 0
	for _, id := range ids {
		company, err := u.companies.FindByID(id)
		if err != nil || company == nil {
			log.Printf("[Ingest %s] Skipping embedding for company %d: record not readable: %v", runID, id, err)
			continue
		}

		vector, err := u.embedder.Embed(ctx, buildEmbeddingText(company))
		if err != nil {
			log.Printf("[Ingest %s] Skipping embedding for company %d: %v", runID, id, fmt.Errorf("%w: %v", domain.ErrEmbedding, err))
			continue
		}

		if err := u.embeddings.Insert(id, pgvector.NewVector(vector)); err != nil {
			log.Printf("[Ingest %s] Skipping embedding for company %d: %v", runID, id, err)
			continue
		}
		indexed++
	}
	return indexed
}

// buildEmbeddingText is the canonical representation shared by indexing and
// retrieval prompts.
func buildEmbeddingText(c *domain.AppliedCompany) string {
	parts := []string{c.CompanyName}
	if c.CompanyWebsite != nil && *c.CompanyWebsite != "" {
		parts = append(parts, *c.CompanyWebsite)
	}
	parts = append(parts,
		c.JobPosition,
		"Applied on: "+c.AppliedDate.Format("2006-01-02"),
		"Status: "+c.ApplicationStatus,
	)
	return strings.Join(parts, " ")
}

// recordFromDraft converts an extraction draft into a persistable record.
// Timestamps arrive as free-form strings from the model; unparseable values
// fall back to the ingestion time.
func recordFromDraft(d domain.ApplicationDraft) domain.AppliedCompany {
	record := domain.AppliedCompany{
		CompanyName:       d.CompanyName,
		JobPosition:       d.AppliedPosition,
		AppliedDate:       parseAppliedTimestamp(d.AppliedTimestamp),
		ApplicationStatus: d.ApplicationStatus,
	}
	if d.CompanyWebsite != "" {
		website := d.CompanyWebsite
		record.CompanyWebsite = &website
	}
	return record
}

func parseAppliedTimestamp(value string) time.Time {
	formats := []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02T15:04:05", "2006-01-02"}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}
	if value != "" {
		log.Printf("[Ingest] Unparseable applied_timestamp %q, defaulting to now", value)
	}
	return time.Now()
}
