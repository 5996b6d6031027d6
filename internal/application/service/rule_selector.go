package service

import (
	"context"
	"fmt"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// selectRule picks the single applicable approval rule for an expense, or
// nil when no rule matches (the auto-approve branch, not an error).
//
// Active rules whose inclusive amount range contains the normalized amount
// are candidates; CONDITIONAL rules additionally require all their active
// conditions to hold. The repository orders by priority_order then id, so
// the first candidate is the winner and ties on priority_order resolve to
// the lowest rule id.
func selectRule(ctx context.Context, rules port.RuleRepository, expense *entity.Expense) (*entity.ApprovalRule, error) {
	candidates, err := rules.GetActiveByCompany(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load approval rules: %w", err)
	}

	for _, rule := range candidates {
		if !rule.MatchesAmount(expense.ConvertedCents) {
			continue
		}
		if rule.ApprovalFlow == entity.FlowConditional && !conditionsHold(rule, expense) {
			continue
		}
		return rule, nil
	}

	return nil, nil
}
