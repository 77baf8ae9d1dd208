package repository

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"jobtrail-backend/internal/application/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompanyRepository defines persistence for application records.
type CompanyRepository interface {
	// InsertBatch persists the records in one transaction. Duplicate
	// (company_name, job_position) pairs are skipped, not treated as
	// failures. Returns the ids of newly created rows only.
	InsertBatch(records []domain.AppliedCompany) ([]uint, error)
	// FindByID returns the record or nil when absent.
	FindByID(id uint) (*domain.AppliedCompany, error)
	// FindByWebsite returns applications for a company website, newest first.
	FindByWebsite(website string) ([]domain.AppliedCompany, error)
	// RunReadOnlyQuery executes a synthesized SELECT and returns column
	// names plus rows. Execution failures are domain.ErrExecution.
	RunReadOnlyQuery(ctx context.Context, sqlText string) ([]string, [][]interface{}, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) InsertBatch(records []domain.AppliedCompany) ([]uint, error) {
	var newIDs []uint

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			rec := records[i]
			// ON CONFLICT DO NOTHING keeps the transaction alive across
			// the expected duplicate collision instead of aborting it.
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "company_name"}, {Name: "job_position"}},
				DoNothing: true,
			}).Create(&rec)
			if result.Error != nil {
				return fmt.Errorf("%w: insert %s / %s: %v", domain.ErrDB, rec.CompanyName, rec.JobPosition, result.Error)
			}
			if result.RowsAffected == 0 {
				log.Printf("[Ingest] Duplicate application skipped: %s / %s", rec.CompanyName, rec.JobPosition)
				continue
			}
			log.Printf("[Ingest] Inserted application %d: %s / %s (%s)", rec.ID, rec.CompanyName, rec.JobPosition, rec.ApplicationStatus)
			newIDs = append(newIDs, rec.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return newIDs, nil
}

func (r *companyRepository) FindByID(id uint) (*domain.AppliedCompany, error) {
	var company domain.AppliedCompany
	err := r.db.First(&company, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByWebsite(website string) ([]domain.AppliedCompany, error) {
	var companies []domain.AppliedCompany
	err := r.db.
		Where("company_website = ?", website).
		Order("applied_date DESC").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// writeKeywords are statement words that must not appear anywhere in
// synthesized SQL. A bare prefix check is not enough: a CTE can smuggle a
// data-modifying statement past it (WITH x AS (SELECT 1) DELETE ...).
var writeKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"create": {}, "truncate": {}, "replace": {}, "merge": {}, "grant": {},
	"revoke": {}, "attach": {}, "detach": {}, "pragma": {}, "vacuum": {},
	"copy": {},
}

// assertReadOnly rejects anything but a single plain read statement.
func assertReadOnly(sqlText string) error {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if !strings.HasPrefix(normalized, "select") && !strings.HasPrefix(normalized, "with") {
		return fmt.Errorf("%w: only read queries are allowed", domain.ErrExecution)
	}
	if strings.Contains(strings.TrimRight(normalized, "; \t\r\n"), ";") {
		return fmt.Errorf("%w: multiple statements are not allowed", domain.ErrExecution)
	}
	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, token := range tokens {
		if _, forbidden := writeKeywords[token]; forbidden {
			return fmt.Errorf("%w: statement contains %q, only read queries are allowed", domain.ErrExecution, token)
		}
	}
	return nil
}

// beginReadOnly puts the transaction's connection into read-only mode, so a
// statement that slips past assertReadOnly still cannot modify data. Returns
// a restore func for settings that outlive the transaction.
func beginReadOnly(tx *gorm.DB) (func(), error) {
	switch tx.Dialector.Name() {
	case "postgres":
		if err := tx.Exec("SET TRANSACTION READ ONLY").Error; err != nil {
			return nil, err
		}
		return nil, nil
	case "sqlite":
		// query_only is connection-scoped, not transaction-scoped: reset it
		// before the pooled connection is reused.
		if err := tx.Exec("PRAGMA query_only = ON").Error; err != nil {
			return nil, err
		}
		return func() { tx.Exec("PRAGMA query_only = OFF") }, nil
	}
	return nil, nil
}

func (r *companyRepository) RunReadOnlyQuery(ctx context.Context, sqlText string) ([]string, [][]interface{}, error) {
	if err := assertReadOnly(sqlText); err != nil {
		return nil, nil, err
	}

	var columns []string
	var results [][]interface{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		restore, err := beginReadOnly(tx)
		if err != nil {
			return err
		}
		if restore != nil {
			defer restore()
		}

		rows, err := tx.Raw(sqlText).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err = rows.Columns()
		if err != nil {
			return err
		}

		for rows.Next() {
			values := make([]interface{}, len(columns))
			pointers := make([]interface{}, len(columns))
			for i := range values {
				pointers[i] = &values[i]
			}
			if err := rows.Scan(pointers...); err != nil {
				return err
			}
			for i, v := range values {
				if b, ok := v.([]byte); ok {
					values[i] = string(b)
				}
			}
			results = append(results, values)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrExecution, err)
	}

	return columns, results, nil
}
