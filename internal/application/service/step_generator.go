package service

import (
	"context"
	"sort"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// generateSteps expands a rule's ordered step templates into concrete
// approval steps bound to resolved approvers.
//
// Templates are walked in ascending template order. Each resolvable
// template emits one step; unresolvable templates are dropped without
// error. Generated step order is renumbered 1..N over the emitted steps
// only, independent of the template order values.
func generateSteps(ctx context.Context, users port.UserRepository, expense *entity.Expense, rule *entity.ApprovalRule) ([]*entity.ApprovalStep, error) {
	templates := make([]*entity.ApprovalRuleStep, len(rule.Steps))
	copy(templates, rule.Steps)
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].StepOrder < templates[j].StepOrder
	})

	steps := make([]*entity.ApprovalStep, 0, len(templates))
	order := 1

	for _, tpl := range templates {
		approver, err := resolveApprover(ctx, users, expense, tpl)
		if err != nil {
			return nil, err
		}
		if approver == nil {
			continue
		}

		ruleStepID := tpl.ID
		steps = append(steps, &entity.ApprovalStep{
			ExpenseID:  expense.ID,
			ApproverID: approver.ID,
			RuleStepID: &ruleStepID,
			Status:     entity.StepPending,
			StepOrder:  order,
		})
		order++
	}

	return steps, nil
}
