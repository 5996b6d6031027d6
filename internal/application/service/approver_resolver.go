package service

import (
	"context"
	"fmt"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// resolverFunc maps one rule step template plus the expense to the concrete
// user who must act, or nil when no one qualifies
type resolverFunc func(ctx context.Context, users port.UserRepository, expense *entity.Expense, step *entity.ApprovalRuleStep) (*entity.User, error)

// stepResolvers is the closed dispatch table over step kinds. An
// unregistered kind resolves to no approver, which drops the step during
// generation.
var stepResolvers = map[entity.StepType]resolverFunc{
	entity.StepTypeManager: resolveManager,
	entity.StepTypeRole:    resolveByRole,
	entity.StepTypeUser:    resolveBoundUser,
	entity.StepTypeFinance: resolveFinance,
	entity.StepTypeAdmin:   resolveAdmin,
}

// resolveApprover returns the person bound to a generated step, or nil when
// the template is unresolvable. Unresolvable templates are not errors; the
// step generator silently omits them.
func resolveApprover(ctx context.Context, users port.UserRepository, expense *entity.Expense, step *entity.ApprovalRuleStep) (*entity.User, error) {
	resolve, ok := stepResolvers[step.StepType]
	if !ok {
		return nil, nil
	}
	return resolve(ctx, users, expense, step)
}

// resolveManager returns the expense owner's direct manager, if set
func resolveManager(ctx context.Context, users port.UserRepository, expense *entity.Expense, _ *entity.ApprovalRuleStep) (*entity.User, error) {
	owner, err := users.GetByID(ctx, expense.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load expense owner: %w", err)
	}
	if owner == nil || owner.ManagerID == nil {
		return nil, nil
	}
	return users.GetByID(ctx, *owner.ManagerID)
}

// resolveByRole returns the first active holder of the step's required role
// in the expense's company. Ordering is by user id ascending, so repeated
// resolution of the same step is deterministic.
func resolveByRole(ctx context.Context, users port.UserRepository, expense *entity.Expense, step *entity.ApprovalRuleStep) (*entity.User, error) {
	if step.RequiredRole == nil {
		return nil, nil
	}
	return firstActiveWithRole(ctx, users, expense.CompanyID, *step.RequiredRole)
}

// resolveBoundUser returns the explicitly bound user
func resolveBoundUser(ctx context.Context, users port.UserRepository, _ *entity.Expense, step *entity.ApprovalRuleStep) (*entity.User, error) {
	if step.RequiredUserID == nil {
		return nil, nil
	}
	return users.GetByID(ctx, *step.RequiredUserID)
}

// resolveFinance resolves finance approvals to a MANAGER-role holder. The
// conflation is inherited behavior and kept as-is.
func resolveFinance(ctx context.Context, users port.UserRepository, expense *entity.Expense, _ *entity.ApprovalRuleStep) (*entity.User, error) {
	return firstActiveWithRole(ctx, users, expense.CompanyID, entity.RoleManager)
}

// resolveAdmin returns the first active administrator in the company
func resolveAdmin(ctx context.Context, users port.UserRepository, expense *entity.Expense, _ *entity.ApprovalRuleStep) (*entity.User, error) {
	return firstActiveWithRole(ctx, users, expense.CompanyID, entity.RoleAdmin)
}

func firstActiveWithRole(ctx context.Context, users port.UserRepository, companyID int64, role entity.RoleType) (*entity.User, error) {
	holders, err := users.FindActiveByCompanyAndRole(ctx, companyID, role)
	if err != nil {
		return nil, fmt.Errorf("find %s holders: %w", role, err)
	}
	if len(holders) == 0 {
		return nil, nil
	}
	return holders[0], nil
}
