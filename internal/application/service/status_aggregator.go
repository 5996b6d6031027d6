package service

import "github.com/finvera/expense-approval/internal/domain/entity"

// AggregateStatus derives an expense's status from the full set of its
// approval steps. The function is pure: given the same step set it always
// returns the same status.
//
// Any REJECTED step rejects the whole expense; remaining PENDING siblings
// are left as they are, not cancelled. Otherwise the expense is APPROVED
// once every step is APPROVED or SKIPPED. An empty step set satisfies that
// vacuously and aggregates to APPROVED, mirroring the no-applicable-rule
// auto-approve path.
func AggregateStatus(steps []*entity.ApprovalStep) entity.ExpenseStatus {
	for _, step := range steps {
		if step.Status == entity.StepRejected {
			return entity.ExpenseRejected
		}
	}

	for _, step := range steps {
		if step.Status != entity.StepApproved && step.Status != entity.StepSkipped {
			return entity.ExpensePending
		}
	}

	return entity.ExpenseApproved
}
