package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Recognized application status categories. The status column is free-form
// text, so extraction may also produce a context-derived label outside this
// set (e.g. "interview scheduled", "offer received").
const (
	StatusApplied            = "applied"
	StatusRejected           = "rejected"
	StatusNextSteps          = "next steps"
	StatusInterviewScheduled = "interview scheduled"
	StatusOfferReceived      = "offer received"
)

// AppliedCompany is one tracked job application.
// The (company_name, job_position) pair is unique: re-ingesting the same
// application collides on this key and is skipped, never duplicated.
type AppliedCompany struct {
	ID                uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CompanyName       string    `json:"company_name" gorm:"size:255;not null;uniqueIndex:idx_company_position"`
	CompanyWebsite    *string   `json:"company_website" gorm:"size:255"`
	JobPosition       string    `json:"job_position" gorm:"size:255;uniqueIndex:idx_company_position"`
	AppliedDate       time.Time `json:"applied_date" gorm:"not null"`
	ApplicationStatus string    `json:"application_status" gorm:"type:text"`
}

// TableName specifies the table name for GORM
func (AppliedCompany) TableName() string {
	return "applied_companies"
}

// AppliedCompanyEmbedding stores the embedding vector for one application.
// Written once right after the application row is first inserted; never
// updated in place.
type AppliedCompanyEmbedding struct {
	ID               uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	AppliedCompanyID uint            `json:"applied_company_id" gorm:"uniqueIndex;not null"`
	EmbeddingVector  pgvector.Vector `json:"embedding_vector" gorm:"type:vector(1536)"`
}

// TableName specifies the table name for GORM
func (AppliedCompanyEmbedding) TableName() string {
	return "applied_companies_embeddings"
}

// ApplicationDraft is an extracted application before persistence, shaped
// exactly like the JSON objects the extraction model returns. AppliedPosition
// is copied verbatim from the source email.
type ApplicationDraft struct {
	CompanyName       string `json:"company_name"`
	CompanyWebsite    string `json:"company_website"`
	AppliedPosition   string `json:"applied_position"`
	AppliedTimestamp  string `json:"applied_timestamp"`
	ApplicationStatus string `json:"application_status"`
}
