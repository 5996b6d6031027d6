package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/finvera/expense-approval/internal/domain/entity"
)

// conditionEnv is the variable set a rule condition is evaluated against.
// Amount is in company-currency cents.
func conditionEnv(expense *entity.Expense) map[string]any {
	return map[string]any{
		"amount":   expense.ConvertedCents,
		"currency": expense.Currency,
		"category": expense.Category,
	}
}

// conditionSource renders one stored condition row into an expression.
// Stored operators map onto expr operators; IN/NOT_IN expect a
// comma-separated value list.
func conditionSource(c *entity.ApprovalRuleCondition) (string, error) {
	field := strings.ToLower(strings.TrimSpace(c.Field))
	switch field {
	case "amount", "currency", "category":
	default:
		return "", fmt.Errorf("unknown condition field %q", c.Field)
	}

	lit := func(v string) string {
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			return v
		}
		return strconv.Quote(v)
	}

	switch strings.ToUpper(strings.TrimSpace(c.Operator)) {
	case "EQUALS":
		return fmt.Sprintf("%s == %s", field, lit(c.Value)), nil
	case "NOT_EQUALS":
		return fmt.Sprintf("%s != %s", field, lit(c.Value)), nil
	case "GREATER_THAN":
		return fmt.Sprintf("%s > %s", field, lit(c.Value)), nil
	case "LESS_THAN":
		return fmt.Sprintf("%s < %s", field, lit(c.Value)), nil
	case "GREATER_THAN_OR_EQUAL":
		return fmt.Sprintf("%s >= %s", field, lit(c.Value)), nil
	case "LESS_THAN_OR_EQUAL":
		return fmt.Sprintf("%s <= %s", field, lit(c.Value)), nil
	case "CONTAINS":
		return fmt.Sprintf("%s contains %s", field, strconv.Quote(c.Value)), nil
	case "NOT_CONTAINS":
		return fmt.Sprintf("not (%s contains %s)", field, strconv.Quote(c.Value)), nil
	case "IN", "NOT_IN":
		parts := strings.Split(c.Value, ",")
		quoted := make([]string, 0, len(parts))
		for _, p := range parts {
			quoted = append(quoted, lit(strings.TrimSpace(p)))
		}
		src := fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
		if strings.EqualFold(strings.TrimSpace(c.Operator), "NOT_IN") {
			src = "not (" + src + ")"
		}
		return src, nil
	default:
		return "", fmt.Errorf("unknown condition operator %q", c.Operator)
	}
}

// evalCondition evaluates one condition row against the expense environment
func evalCondition(c *entity.ApprovalRuleCondition, env map[string]any) (bool, error) {
	src, err := conditionSource(c)
	if err != nil {
		return false, err
	}

	out, err := expr.Eval(src, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %d: %w", c.ID, err)
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %d did not evaluate to bool (got %T)", c.ID, out)
	}
	return b, nil
}

// conditionsHold reports whether every active condition of a rule holds for
// the expense. A rule without conditions always holds. A condition that
// fails to evaluate counts as not holding; a misconfigured rule must not
// capture expenses it cannot test.
func conditionsHold(rule *entity.ApprovalRule, expense *entity.Expense) bool {
	env := conditionEnv(expense)
	for _, c := range rule.Conditions {
		if !c.IsActive {
			continue
		}
		ok, err := evalCondition(c, env)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
