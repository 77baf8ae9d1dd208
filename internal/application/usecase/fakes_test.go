package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/internal/application/repository"
	"jobtrail-backend/pkg/ai"

	"github.com/glebarez/sqlite"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

func newTestCompanyRepo(t *testing.T) repository.CompanyRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// The embeddings table needs pgvector, which sqlite cannot provide; the
	// embedding side is faked in these tests.
	if err := db.AutoMigrate(&domain.AppliedCompany{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return repository.NewCompanyRepository(db)
}

type fakeFetcher struct {
	messages []domain.RawMessage
	err      error
}

func (f *fakeFetcher) FetchRecent(ctx context.Context, window time.Duration) ([]domain.RawMessage, error) {
	return f.messages, f.err
}

type fakeCompletion struct {
	extract     func(emailContext string) ([]domain.ApplicationDraft, error)
	selectAgent func(userQuery string) (ai.Agent, error)
	generateSQL func(userQuery string) (*ai.SQLGeneration, error)
	streamed    []string
}

func (f *fakeCompletion) ExtractApplications(ctx context.Context, emailContext string) ([]domain.ApplicationDraft, error) {
	return f.extract(emailContext)
}

func (f *fakeCompletion) SelectAgent(ctx context.Context, userQuery string) (ai.Agent, error) {
	return f.selectAgent(userQuery)
}

func (f *fakeCompletion) GenerateSQL(ctx context.Context, userQuery string) (*ai.SQLGeneration, error) {
	return f.generateSQL(userQuery)
}

func (f *fakeCompletion) StreamAnswer(ctx context.Context, userQuery string, company *domain.AppliedCompany, out chan<- string) {
	defer close(out)
	for _, chunk := range f.streamed {
		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		}
	}
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeEmbeddingRepo stands in for the pgvector-backed repository.
type fakeEmbeddingRepo struct {
	vectors   map[uint]pgvector.Vector
	nearest   *domain.AppliedCompany
	searchErr error
	insertErr error
}

func newFakeEmbeddingRepo() *fakeEmbeddingRepo {
	return &fakeEmbeddingRepo{vectors: make(map[uint]pgvector.Vector)}
}

func (f *fakeEmbeddingRepo) Insert(appliedCompanyID uint, vector pgvector.Vector) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.vectors[appliedCompanyID] = vector
	return nil
}

func (f *fakeEmbeddingRepo) NearestCompany(vector pgvector.Vector) (*domain.AppliedCompany, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.nearest, nil
}
