package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new approval step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{db: db, logger: logger}
}

const stepColumns = `
	id, expense_id, approver_id, rule_step_id, status, step_order,
	comments, decided_at, created_at, updated_at
`

// CreateBatch inserts all steps of one workflow start. Callers wrap this in
// a transaction together with the expense status flip.
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (
			expense_id, approver_id, rule_step_id, status, step_order, comments
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	ex := getExecutor(ctx, r.db)
	for _, step := range steps {
		result, err := ex.ExecContext(ctx, query,
			step.ExpenseID,
			step.ApproverID,
			step.RuleStepID,
			string(step.Status),
			step.StepOrder,
			step.Comments,
		)
		if err != nil {
			r.logger.Error("Failed to create approval step",
				zap.Int64("expense_id", step.ExpenseID), zap.Error(err))
			return fmt.Errorf("create approval step: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		step.ID = id
	}
	return nil
}

// GetByID retrieves an approval step by ID
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE id = ?`

	step, err := scanStep(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval step", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get approval step: %w", err)
	}
	return step, nil
}

// GetByExpenseID retrieves an expense's steps ordered by step order
func (r *StepRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE expense_id = ? ORDER BY step_order ASC`
	return r.list(ctx, query, expenseID)
}

// DecideIfPending writes a terminal decision, guarded on the step still
// being PENDING. Returns false when another action already decided the step.
func (r *StepRepository) DecideIfPending(ctx context.Context, id int64, status entity.StepStatus, comments string, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE approval_steps
		SET status = ?, comments = ?, decided_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		string(status), comments, decidedAt, id, string(entity.StepPending))
	if err != nil {
		r.logger.Error("Failed to decide approval step", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("decide approval step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// FindPendingByApprover retrieves the approver's pending steps
func (r *StepRepository) FindPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	return r.FindByApproverAndStatus(ctx, approverID, entity.StepPending)
}

// FindByApproverAndStatus retrieves the approver's steps in a given status,
// newest first
func (r *StepRepository) FindByApproverAndStatus(ctx context.Context, approverID int64, status entity.StepStatus) ([]*entity.ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps
		WHERE approver_id = ? AND status = ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, approverID, string(status))
}

func (r *StepRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalStep, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list approval steps", zap.Error(err))
		return nil, fmt.Errorf("list approval steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.ApprovalStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func scanStep(row rowScanner) (*entity.ApprovalStep, error) {
	var (
		step       entity.ApprovalStep
		status     string
		ruleStepID sql.NullInt64
		decidedAt  sql.NullTime
	)
	err := row.Scan(
		&step.ID,
		&step.ExpenseID,
		&step.ApproverID,
		&ruleStepID,
		&status,
		&step.StepOrder,
		&step.Comments,
		&decidedAt,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	step.Status = entity.StepStatus(status)
	if ruleStepID.Valid {
		step.RuleStepID = &ruleStepID.Int64
	}
	if decidedAt.Valid {
		step.DecidedAt = &decidedAt.Time
	}
	return &step, nil
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
