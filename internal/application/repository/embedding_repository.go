package repository

import (
	"fmt"

	"jobtrail-backend/internal/application/domain"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingRepository persists and searches application embeddings.
// Writes run in their own transaction scope so a failed embedding never
// touches already-committed application rows.
type EmbeddingRepository interface {
	Insert(appliedCompanyID uint, vector pgvector.Vector) error
	// NearestCompany returns the application whose embedding is closest to
	// the query vector, or nil when the index is empty.
	NearestCompany(vector pgvector.Vector) (*domain.AppliedCompany, error)
}

type embeddingRepository struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) EmbeddingRepository {
	return &embeddingRepository{db: db}
}

func (r *embeddingRepository) Insert(appliedCompanyID uint, vector pgvector.Vector) error {
	record := domain.AppliedCompanyEmbedding{
		AppliedCompanyID: appliedCompanyID,
		EmbeddingVector:  vector,
	}
	if err := r.db.Create(&record).Error; err != nil {
		return fmt.Errorf("%w: company %d: %v", domain.ErrEmbedding, appliedCompanyID, err)
	}
	return nil
}

func (r *embeddingRepository) NearestCompany(vector pgvector.Vector) (*domain.AppliedCompany, error) {
	var company domain.AppliedCompany
	err := r.db.Raw(`
		SELECT ac.id, ac.company_name, ac.company_website, ac.job_position, ac.applied_date, ac.application_status
		FROM applied_companies ac
		JOIN applied_companies_embeddings ace ON ac.id = ace.applied_company_id
		ORDER BY ace.embedding_vector <-> ?
		LIMIT 1`, vector).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}
