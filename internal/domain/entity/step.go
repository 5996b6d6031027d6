package entity

import "time"

// ApprovalStep is a concrete, per-expense approval step with a resolved
// approver. The approver is fixed at generation time and never re-resolved.
type ApprovalStep struct {
	ID         int64      `json:"id"`
	ExpenseID  int64      `json:"expense_id"`
	ApproverID int64      `json:"approver_id"`
	RuleStepID *int64     `json:"rule_step_id,omitempty"`
	Status     StepStatus `json:"status"`
	StepOrder  int        `json:"step_order"`
	Comments   string     `json:"comments,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsPending reports whether the step is still awaiting a decision
func (s *ApprovalStep) IsPending() bool {
	return s.Status == StepPending
}

// Decide records a terminal status, the approver's comments and the
// decision time on the step
func (s *ApprovalStep) Decide(status StepStatus, comments string, at time.Time) {
	s.Status = status
	s.Comments = comments
	s.DecidedAt = &at
}
