package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// CompanyRepository implements port.CompanyRepository
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) port.CompanyRepository {
	return &CompanyRepository{db: db, logger: logger}
}

// Create inserts a new company
func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	query := `
		INSERT INTO companies (name, description, default_currency, address, phone, email)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		company.Name,
		company.Description,
		company.DefaultCurrency,
		company.Address,
		company.Phone,
		company.Email,
	)
	if err != nil {
		r.logger.Error("Failed to create company", zap.String("name", company.Name), zap.Error(err))
		return fmt.Errorf("create company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	company.ID = id
	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	query := `
		SELECT id, name, description, default_currency, address, phone, email,
			created_at, updated_at
		FROM companies
		WHERE id = ?
	`

	var company entity.Company
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Description,
		&company.DefaultCurrency,
		&company.Address,
		&company.Phone,
		&company.Email,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &company, nil
}

// Verify interface compliance
var _ port.CompanyRepository = (*CompanyRepository)(nil)
