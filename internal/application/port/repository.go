package port

import (
	"context"
	"time"

	"github.com/finvera/expense-approval/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error)
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error)
}

// RuleRepository defines read access to approval rules. The engine never
// writes rules; they are administered outside this core.
type RuleRepository interface {
	// GetActiveByCompany returns active rules with their nested steps and
	// conditions, ordered by priority_order ascending then id ascending
	GetActiveByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
	GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error)
	Create(ctx context.Context, rule *entity.ApprovalRule) error
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	// CreateBatch inserts all steps of one workflow start atomically
	CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	// GetByExpenseID returns the expense's steps ordered by step_order ascending
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error)
	// DecideIfPending writes the terminal status, comments and decided-at,
	// guarded on the step still being PENDING. Returns false when the step
	// was already decided by a concurrent action.
	DecideIfPending(ctx context.Context, id int64, status entity.StepStatus, comments string, decidedAt time.Time) (bool, error)
	FindPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error)
	FindByApproverAndStatus(ctx context.Context, approverID int64, status entity.StepStatus) ([]*entity.ApprovalStep, error)
}

// UserRepository defines the identity and role lookups the engine consumes
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*entity.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindActiveByCompanyAndRole returns active role holders ordered by id
	// ascending, so "first holder" selection is deterministic
	FindActiveByCompanyAndRole(ctx context.Context, companyID int64, role entity.RoleType) ([]*entity.User, error)
	FindSubordinates(ctx context.Context, managerID int64) ([]*entity.User, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

// CompanyRepository defines persistence operations for Company
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id int64) (*entity.Company, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
