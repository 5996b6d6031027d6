package entity

import "time"

// ApprovalRule is a configured approval policy scoping which expenses it
// governs and how its approval steps are structured. Rules are created by
// company administrators and are read-only to the engine.
type ApprovalRule struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	RuleType     RuleType     `json:"rule_type"`
	ApprovalFlow ApprovalFlow `json:"approval_flow"`

	// Inclusive amount bounds in company-currency cents; nil = unbounded
	MinAmountCents *int64 `json:"min_amount_cents,omitempty"`
	MaxAmountCents *int64 `json:"max_amount_cents,omitempty"`

	// Reserved for PERCENTAGE_BASED flows; recorded but not consumed
	RequiredApprovalPercentage *int `json:"required_approval_percentage,omitempty"`

	IsActive      bool  `json:"is_active"`
	PriorityOrder int   `json:"priority_order"` // lower = higher priority
	CompanyID     int64 `json:"company_id"`

	Steps      []*ApprovalRuleStep      `json:"steps,omitempty"`
	Conditions []*ApprovalRuleCondition `json:"conditions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MatchesAmount reports whether the normalized amount falls within the
// rule's inclusive bounds
func (r *ApprovalRule) MatchesAmount(amountCents int64) bool {
	if r.MinAmountCents != nil && amountCents < *r.MinAmountCents {
		return false
	}
	if r.MaxAmountCents != nil && amountCents > *r.MaxAmountCents {
		return false
	}
	return true
}

// ApprovalRuleStep is an ordered step template within a rule, before an
// approver is bound
type ApprovalRuleStep struct {
	ID        int64    `json:"id"`
	RuleID    int64    `json:"rule_id"`
	StepType  StepType `json:"step_type"`
	StepOrder int      `json:"step_order"`
	Required  bool     `json:"required"`

	// AutoApprove is reserved; the engine does not consume it
	AutoApprove bool `json:"auto_approve"`

	RequiredRole   *RoleType `json:"required_role,omitempty"`
	RequiredUserID *int64    `json:"required_user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ApprovalRuleCondition is one predicate attached to a CONDITIONAL rule.
// Field names what is tested (amount, currency, category), Operator and
// Value complete the predicate.
type ApprovalRuleCondition struct {
	ID             int64  `json:"id"`
	RuleID         int64  `json:"rule_id"`
	Field          string `json:"field"`
	Operator       string `json:"operator"`
	Value          string `json:"value"`
	ConditionOrder int    `json:"condition_order"`
	IsActive       bool   `json:"is_active"`
}
