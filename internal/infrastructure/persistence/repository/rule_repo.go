package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// RuleRepository implements port.RuleRepository
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new approval rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
	id, name, description, rule_type, approval_flow, min_amount_cents,
	max_amount_cents, required_approval_percentage, is_active,
	priority_order, company_id, created_at, updated_at
`

// GetActiveByCompany returns the company's active rules with their nested
// steps and conditions. Ordering by priority then id makes rule selection
// deterministic when priorities tie.
func (r *RuleRepository) GetActiveByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM approval_rules
		WHERE company_id = ? AND is_active = 1
		ORDER BY priority_order ASC, id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list approval rules", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("list approval rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.ApprovalRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if err := r.loadSteps(ctx, rule); err != nil {
			return nil, err
		}
		if err := r.loadConditions(ctx, rule); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// GetByID retrieves one rule with its steps and conditions
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE id = ?`

	rule, err := scanRule(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval rule", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get approval rule: %w", err)
	}

	if err := r.loadSteps(ctx, rule); err != nil {
		return nil, err
	}
	if err := r.loadConditions(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Create inserts a rule with its step templates and conditions
func (r *RuleRepository) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	query := `
		INSERT INTO approval_rules (
			name, description, rule_type, approval_flow, min_amount_cents,
			max_amount_cents, required_approval_percentage, is_active,
			priority_order, company_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ex := getExecutor(ctx, r.db)
	result, err := ex.ExecContext(ctx, query,
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		string(rule.ApprovalFlow),
		rule.MinAmountCents,
		rule.MaxAmountCents,
		rule.RequiredApprovalPercentage,
		rule.IsActive,
		rule.PriorityOrder,
		rule.CompanyID,
	)
	if err != nil {
		r.logger.Error("Failed to create approval rule", zap.Error(err))
		return fmt.Errorf("create approval rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rule.ID = id

	for _, step := range rule.Steps {
		step.RuleID = id
		var requiredRole *string
		if step.RequiredRole != nil {
			role := string(*step.RequiredRole)
			requiredRole = &role
		}
		result, err := ex.ExecContext(ctx, `
			INSERT INTO approval_rule_steps (
				rule_id, step_type, step_order, required, auto_approve,
				required_role, required_user_id
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, string(step.StepType), step.StepOrder, step.Required, step.AutoApprove, requiredRole, step.RequiredUserID)
		if err != nil {
			return fmt.Errorf("create rule step: %w", err)
		}
		if step.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	}

	for _, cond := range rule.Conditions {
		cond.RuleID = id
		result, err := ex.ExecContext(ctx, `
			INSERT INTO approval_rule_conditions (
				rule_id, field, operator, value, condition_order, is_active
			) VALUES (?, ?, ?, ?, ?, ?)
		`, id, cond.Field, cond.Operator, cond.Value, cond.ConditionOrder, cond.IsActive)
		if err != nil {
			return fmt.Errorf("create rule condition: %w", err)
		}
		if cond.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	}

	return nil
}

func (r *RuleRepository) loadSteps(ctx context.Context, rule *entity.ApprovalRule) error {
	query := `
		SELECT id, rule_id, step_type, step_order, required, auto_approve,
			required_role, required_user_id, created_at
		FROM approval_rule_steps
		WHERE rule_id = ?
		ORDER BY step_order ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, rule.ID)
	if err != nil {
		return fmt.Errorf("list rule steps: %w", err)
	}
	defer rows.Close()

	rule.Steps = nil
	for rows.Next() {
		var (
			step         entity.ApprovalRuleStep
			stepType     string
			requiredRole sql.NullString
			requiredUser sql.NullInt64
		)
		err := rows.Scan(
			&step.ID,
			&step.RuleID,
			&stepType,
			&step.StepOrder,
			&step.Required,
			&step.AutoApprove,
			&requiredRole,
			&requiredUser,
			&step.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan rule step: %w", err)
		}
		step.StepType = entity.StepType(stepType)
		if requiredRole.Valid {
			role := entity.RoleType(requiredRole.String)
			step.RequiredRole = &role
		}
		if requiredUser.Valid {
			step.RequiredUserID = &requiredUser.Int64
		}
		rule.Steps = append(rule.Steps, &step)
	}
	return rows.Err()
}

func (r *RuleRepository) loadConditions(ctx context.Context, rule *entity.ApprovalRule) error {
	query := `
		SELECT id, rule_id, field, operator, value, condition_order, is_active
		FROM approval_rule_conditions
		WHERE rule_id = ?
		ORDER BY condition_order ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, rule.ID)
	if err != nil {
		return fmt.Errorf("list rule conditions: %w", err)
	}
	defer rows.Close()

	rule.Conditions = nil
	for rows.Next() {
		var cond entity.ApprovalRuleCondition
		err := rows.Scan(
			&cond.ID,
			&cond.RuleID,
			&cond.Field,
			&cond.Operator,
			&cond.Value,
			&cond.ConditionOrder,
			&cond.IsActive,
		)
		if err != nil {
			return fmt.Errorf("scan rule condition: %w", err)
		}
		rule.Conditions = append(rule.Conditions, &cond)
	}
	return rows.Err()
}

func scanRule(row rowScanner) (*entity.ApprovalRule, error) {
	var (
		rule         entity.ApprovalRule
		ruleType     string
		approvalFlow string
		minAmount    sql.NullInt64
		maxAmount    sql.NullInt64
		percentage   sql.NullInt64
	)
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&ruleType,
		&approvalFlow,
		&minAmount,
		&maxAmount,
		&percentage,
		&rule.IsActive,
		&rule.PriorityOrder,
		&rule.CompanyID,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.RuleType = entity.RuleType(ruleType)
	rule.ApprovalFlow = entity.ApprovalFlow(approvalFlow)
	if minAmount.Valid {
		rule.MinAmountCents = &minAmount.Int64
	}
	if maxAmount.Valid {
		rule.MaxAmountCents = &maxAmount.Int64
	}
	if percentage.Valid {
		p := int(percentage.Int64)
		rule.RequiredApprovalPercentage = &p
	}
	return &rule, nil
}

// Verify interface compliance
var _ port.RuleRepository = (*RuleRepository)(nil)
