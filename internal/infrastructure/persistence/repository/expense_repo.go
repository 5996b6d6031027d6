package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

const expenseColumns = `
	id, description, category, notes, amount_cents, currency,
	converted_cents, converted_currency, exchange_rate, status,
	rejection_reason, receipt_filename, expense_date, employee_id,
	company_id, created_at, updated_at
`

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			description, category, notes, amount_cents, currency,
			converted_cents, converted_currency, exchange_rate, status,
			rejection_reason, receipt_filename, expense_date, employee_id, company_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		expense.Description,
		expense.Category,
		expense.Notes,
		expense.AmountCents,
		expense.Currency,
		expense.ConvertedCents,
		expense.ConvertedCcy,
		expense.ExchangeRate,
		string(expense.Status),
		expense.RejectionReason,
		expense.ReceiptFilename,
		expense.ExpenseDate,
		expense.EmployeeID,
		expense.CompanyID,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	expense.ID = id
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return expense, nil
}

// Update writes the expense's mutable fields
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET status = ?, rejection_reason = ?, receipt_filename = ?,
			description = ?, category = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		string(expense.Status),
		expense.RejectionReason,
		expense.ReceiptFilename,
		expense.Description,
		expense.Category,
		expense.Notes,
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", expense.ID), zap.Error(err))
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// ListByEmployee retrieves an employee's expenses, newest first
func (r *ExpenseRepository) ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE employee_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, employeeID, limit, offset)
}

// ListByCompany retrieves a company's expenses, newest first
func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE company_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, companyID, limit, offset)
}

// ListByIDs retrieves the given expenses ordered by id
func (r *ExpenseRepository) ListByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	if len(ids) == 0 {
		return []*entity.Expense{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id IN (` + placeholders + `) ORDER BY id`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx, query, args...)
}

func (r *ExpenseRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Expense, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		expense entity.Expense
		status  string
	)
	err := row.Scan(
		&expense.ID,
		&expense.Description,
		&expense.Category,
		&expense.Notes,
		&expense.AmountCents,
		&expense.Currency,
		&expense.ConvertedCents,
		&expense.ConvertedCcy,
		&expense.ExchangeRate,
		&status,
		&expense.RejectionReason,
		&expense.ReceiptFilename,
		&expense.ExpenseDate,
		&expense.EmployeeID,
		&expense.CompanyID,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	expense.Status = entity.ExpenseStatus(status)
	return &expense, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
