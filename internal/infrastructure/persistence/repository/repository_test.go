package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/domain/entity"
	"github.com/finvera/expense-approval/internal/infrastructure/persistence/sqlite"
	"github.com/finvera/expense-approval/pkg/database"
)

// newTestDB opens an in-memory database with the full schema applied.
// A single connection keeps :memory: consistent across queries.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.Run(os.DirFS("../../../../migrations")))
	return db
}

type testEnv struct {
	db        *sql.DB
	expenses  *ExpenseRepository
	rules     *RuleRepository
	steps     *StepRepository
	users     *UserRepository
	companies *CompanyRepository
	companyID int64
	employee  *entity.User
	manager   *entity.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	logger := zap.NewNop()
	env := &testEnv{
		db:        db,
		expenses:  NewExpenseRepository(db, logger).(*ExpenseRepository),
		rules:     NewRuleRepository(db, logger).(*RuleRepository),
		steps:     NewStepRepository(db, logger).(*StepRepository),
		users:     NewUserRepository(db, logger).(*UserRepository),
		companies: NewCompanyRepository(db, logger).(*CompanyRepository),
	}

	ctx := context.Background()
	company := &entity.Company{Name: "Acme", DefaultCurrency: "USD"}
	require.NoError(t, env.companies.Create(ctx, company))
	env.companyID = company.ID

	env.manager = &entity.User{
		Username: "boss", Email: "boss@acme.test", PasswordHash: "x",
		Role: entity.RoleManager, IsActive: true, CompanyID: company.ID,
	}
	require.NoError(t, env.users.Create(ctx, env.manager))

	env.employee = &entity.User{
		Username: "emp", Email: "emp@acme.test", PasswordHash: "x",
		Role: entity.RoleEmployee, IsActive: true, CompanyID: company.ID,
		ManagerID: &env.manager.ID,
	}
	require.NoError(t, env.users.Create(ctx, env.employee))

	return env
}

func (env *testEnv) createExpense(t *testing.T, cents int64) *entity.Expense {
	t.Helper()
	expense := &entity.Expense{
		Description:    "expense",
		AmountCents:    cents,
		Currency:       "USD",
		ConvertedCents: cents,
		ConvertedCcy:   "USD",
		ExchangeRate:   1,
		Status:         entity.ExpensePending,
		ExpenseDate:    time.Now().UTC(),
		EmployeeID:     env.employee.ID,
		CompanyID:      env.companyID,
	}
	require.NoError(t, env.expenses.Create(context.Background(), expense))
	return expense
}

func TestStepDecideIfPendingGuardsDoubleDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expense := env.createExpense(t, 10_000)
	steps := []*entity.ApprovalStep{
		{ExpenseID: expense.ID, ApproverID: env.manager.ID, Status: entity.StepPending, StepOrder: 1},
	}
	require.NoError(t, env.steps.CreateBatch(ctx, steps))
	stepID := steps[0].ID

	decided, err := env.steps.DecideIfPending(ctx, stepID, entity.StepApproved, "ok", time.Now())
	require.NoError(t, err)
	assert.True(t, decided)

	// A second decision sees zero affected rows
	decided, err = env.steps.DecideIfPending(ctx, stepID, entity.StepRejected, "late", time.Now())
	require.NoError(t, err)
	assert.False(t, decided)

	stored, err := env.steps.GetByID(ctx, stepID)
	require.NoError(t, err)
	assert.Equal(t, entity.StepApproved, stored.Status)
	assert.Equal(t, "ok", stored.Comments)
	require.NotNil(t, stored.DecidedAt)
}

func TestRuleOrderingAndNestedLoading(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	role := entity.RoleManager
	mkRule := func(name string, priority int) *entity.ApprovalRule {
		return &entity.ApprovalRule{
			Name:          name,
			RuleType:      entity.RuleAmountBased,
			ApprovalFlow:  entity.FlowSequential,
			IsActive:      true,
			PriorityOrder: priority,
			CompanyID:     env.companyID,
			Steps: []*entity.ApprovalRuleStep{
				{StepType: entity.StepTypeRole, StepOrder: 1, Required: true, RequiredRole: &role},
			},
			Conditions: []*entity.ApprovalRuleCondition{
				{Field: "currency", Operator: "EQUALS", Value: "USD", ConditionOrder: 1, IsActive: true},
			},
		}
	}

	// Insert out of priority order, with a priority tie between b and c
	require.NoError(t, env.rules.Create(ctx, mkRule("low-priority", 5)))
	b := mkRule("tie-first", 1)
	require.NoError(t, env.rules.Create(ctx, b))
	c := mkRule("tie-second", 1)
	require.NoError(t, env.rules.Create(ctx, c))

	rules, err := env.rules.GetActiveByCompany(ctx, env.companyID)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "tie-first", rules[0].Name, "ties resolve to the lower id")
	assert.Equal(t, "tie-second", rules[1].Name)
	assert.Equal(t, "low-priority", rules[2].Name)

	require.Len(t, rules[0].Steps, 1)
	require.NotNil(t, rules[0].Steps[0].RequiredRole)
	assert.Equal(t, entity.RoleManager, *rules[0].Steps[0].RequiredRole)
	require.Len(t, rules[0].Conditions, 1)
	assert.Equal(t, "USD", rules[0].Conditions[0].Value)
}

func TestRuleInactiveExcluded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rule := &entity.ApprovalRule{
		Name: "disabled", RuleType: entity.RuleAmountBased,
		ApprovalFlow: entity.FlowSequential, IsActive: false,
		CompanyID: env.companyID,
	}
	require.NoError(t, env.rules.Create(ctx, rule))

	rules, err := env.rules.GetActiveByCompany(ctx, env.companyID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestUserRoleLookupOrdersByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	second := &entity.User{
		Username: "boss2", Email: "boss2@acme.test", PasswordHash: "x",
		Role: entity.RoleManager, IsActive: true, CompanyID: env.companyID,
	}
	require.NoError(t, env.users.Create(ctx, second))

	inactive := &entity.User{
		Username: "boss3", Email: "boss3@acme.test", PasswordHash: "x",
		Role: entity.RoleManager, IsActive: false, CompanyID: env.companyID,
	}
	require.NoError(t, env.users.Create(ctx, inactive))

	holders, err := env.users.FindActiveByCompanyAndRole(ctx, env.companyID, entity.RoleManager)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, env.manager.ID, holders[0].ID)
	assert.Equal(t, second.ID, holders[1].ID)
}

func TestTransactionRollsBackStepBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	txManager := sqlite.NewDB(env.db, zap.NewNop())

	expense := env.createExpense(t, 10_000)
	boom := errors.New("forced failure")

	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		steps := []*entity.ApprovalStep{
			{ExpenseID: expense.ID, ApproverID: env.manager.ID, Status: entity.StepPending, StepOrder: 1},
		}
		if err := env.steps.CreateBatch(txCtx, steps); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	steps, err := env.steps.GetByExpenseID(ctx, expense.ID)
	require.NoError(t, err)
	assert.Empty(t, steps, "rolled back steps must not be visible")
}

func TestExpenseListByIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createExpense(t, 1_000)
	b := env.createExpense(t, 2_000)
	env.createExpense(t, 3_000)

	expenses, err := env.expenses.ListByIDs(ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, a.ID, expenses[0].ID)
	assert.Equal(t, b.ID, expenses[1].ID)

	empty, err := env.expenses.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
