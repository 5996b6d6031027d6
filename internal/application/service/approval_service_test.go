package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvera/expense-approval/internal/domain/entity"
	"github.com/finvera/expense-approval/internal/domain/event"
)

// approvalFixture wires an ApprovalService over in-memory state
type approvalFixture struct {
	service  ApprovalService
	expenses map[int64]*entity.Expense
	steps    map[int64]*entity.ApprovalStep
	rules    []*entity.ApprovalRule
	users    *mockUserRepo
	events   *captureDispatcher
}

func newApprovalFixture(t *testing.T, users *mockUserRepo) *approvalFixture {
	t.Helper()

	f := &approvalFixture{
		expenses: make(map[int64]*entity.Expense),
		steps:    make(map[int64]*entity.ApprovalStep),
		users:    users,
		events:   &captureDispatcher{},
	}

	expenseRepo := &mockExpenseRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.Expense, error) {
			return f.expenses[id], nil
		},
		UpdateFn: func(ctx context.Context, expense *entity.Expense) error {
			f.expenses[expense.ID] = expense
			return nil
		},
		ListByIDsFn: func(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
			var out []*entity.Expense
			for _, id := range ids {
				if e, ok := f.expenses[id]; ok {
					out = append(out, e)
				}
			}
			return out, nil
		},
	}

	ruleRepo := &mockRuleRepo{
		GetActiveByCompanyFn: func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
			return f.rules, nil
		},
	}

	var nextStepID int64 = 100
	stepRepo := &mockStepRepo{
		CreateBatchFn: func(ctx context.Context, steps []*entity.ApprovalStep) error {
			for _, step := range steps {
				nextStepID++
				step.ID = nextStepID
				f.steps[step.ID] = step
			}
			return nil
		},
		GetByIDFn: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			if step, ok := f.steps[id]; ok {
				copied := *step
				return &copied, nil
			}
			return nil, nil
		},
		GetByExpenseIDFn: func(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
			var out []*entity.ApprovalStep
			for _, step := range f.steps {
				if step.ExpenseID == expenseID {
					out = append(out, step)
				}
			}
			return out, nil
		},
		DecideIfPendingFn: func(ctx context.Context, id int64, status entity.StepStatus, comments string, decidedAt time.Time) (bool, error) {
			step, ok := f.steps[id]
			if !ok || step.Status != entity.StepPending {
				return false, nil
			}
			step.Decide(status, comments, decidedAt)
			return true, nil
		},
		FindPendingByApproverFn: func(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
			var out []*entity.ApprovalStep
			for _, step := range f.steps {
				if step.ApproverID == approverID && step.Status == entity.StepPending {
					out = append(out, step)
				}
			}
			return out, nil
		},
	}

	f.service = NewApprovalService(
		expenseRepo, ruleRepo, stepRepo, users, &mockTxManager{}, f.events, testLogger{})
	return f
}

func (f *approvalFixture) addExpense(e *entity.Expense) { f.expenses[e.ID] = e }

func (f *approvalFixture) addStep(s *entity.ApprovalStep) { f.steps[s.ID] = s }

func (f *approvalFixture) stepsOf(expenseID int64) []*entity.ApprovalStep {
	var out []*entity.ApprovalStep
	for _, s := range f.steps {
		if s.ExpenseID == expenseID {
			out = append(out, s)
		}
	}
	return out
}

func standardDirectory() *mockUserRepo {
	return directory(
		&entity.User{ID: 1, Role: entity.RoleAdmin, CompanyID: 1, IsActive: true},
		&entity.User{ID: 3, Role: entity.RoleManager, CompanyID: 1, IsActive: true},
		&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true, ManagerID: int64p(3)},
	)
}

func submittedExpense(id int64) *entity.Expense {
	return &entity.Expense{
		ID:             id,
		Description:    "team offsite",
		AmountCents:    30_000,
		Currency:       "USD",
		ConvertedCents: 30_000,
		ConvertedCcy:   "USD",
		Status:         entity.ExpenseSubmitted,
		EmployeeID:     7,
		CompanyID:      1,
	}
}

func TestStartWorkflowGeneratesStepsAndMovesToPending(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())
	f.rules = []*entity.ApprovalRule{{
		ID:           1,
		IsActive:     true,
		ApprovalFlow: entity.FlowSequential,
		Steps: []*entity.ApprovalRuleStep{
			{ID: 11, StepType: entity.StepTypeManager, StepOrder: 1},
			{ID: 12, StepType: entity.StepTypeAdmin, StepOrder: 2},
		},
	}}

	expense := submittedExpense(50)
	f.addExpense(expense)

	err := f.service.StartWorkflow(context.Background(), expense)
	require.NoError(t, err)

	assert.Equal(t, entity.ExpensePending, expense.Status)
	require.Len(t, f.stepsOf(50), 2)
	assert.Equal(t, []event.Type{event.TypeWorkflowStarted}, f.events.Types())
}

func TestStartWorkflowAutoApprovesWithoutRule(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	expense := submittedExpense(50)
	f.addExpense(expense)

	err := f.service.StartWorkflow(context.Background(), expense)
	require.NoError(t, err)

	assert.Equal(t, entity.ExpenseApproved, expense.Status)
	assert.Empty(t, f.stepsOf(50))

	types := f.events.Types()
	require.Len(t, types, 1)
	assert.Equal(t, event.TypeExpenseApproved, types[0])
}

func TestStartWorkflowZeroResolvableStepsStillPending(t *testing.T) {
	// Only an employee exists: manager and admin templates cannot resolve.
	// The claim still flips to PENDING, with an empty step set.
	users := directory(&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true})
	f := newApprovalFixture(t, users)
	f.rules = []*entity.ApprovalRule{{
		ID:       1,
		IsActive: true,
		Steps: []*entity.ApprovalRuleStep{
			{ID: 11, StepType: entity.StepTypeManager, StepOrder: 1},
			{ID: 12, StepType: entity.StepTypeAdmin, StepOrder: 2},
		},
	}}

	expense := submittedExpense(50)
	f.addExpense(expense)

	err := f.service.StartWorkflow(context.Background(), expense)
	require.NoError(t, err)

	assert.Equal(t, entity.ExpensePending, expense.Status)
	assert.Empty(t, f.stepsOf(50))
}

func TestStartWorkflowRejectsWrongState(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	expense := submittedExpense(50)
	expense.Status = entity.ExpenseDraft
	f.addExpense(expense)

	err := f.service.StartWorkflow(context.Background(), expense)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestProcessActionApproveCompletesSingleStepWorkflow(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	expense := submittedExpense(50)
	expense.Status = entity.ExpensePending
	f.addExpense(expense)
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})

	step, err := f.service.ProcessAction(context.Background(), 200, 3, "approve", "looks good")
	require.NoError(t, err)

	assert.Equal(t, entity.StepApproved, step.Status)
	assert.Equal(t, "looks good", step.Comments)
	require.NotNil(t, step.DecidedAt)
	assert.Equal(t, entity.ExpenseApproved, f.expenses[50].Status)

	types := f.events.Types()
	assert.Equal(t, []event.Type{event.TypeStepDecided, event.TypeExpenseApproved}, types)
}

func TestProcessActionApproveLeavesExpensePendingWithOpenSiblings(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	expense := submittedExpense(50)
	expense.Status = entity.ExpensePending
	f.addExpense(expense)
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})
	f.addStep(&entity.ApprovalStep{ID: 201, ExpenseID: 50, ApproverID: 1, Status: entity.StepPending, StepOrder: 2})

	_, err := f.service.ProcessAction(context.Background(), 200, 3, "APPROVE", "")
	require.NoError(t, err)

	assert.Equal(t, entity.ExpensePending, f.expenses[50].Status)
	assert.Equal(t, []event.Type{event.TypeStepDecided}, f.events.Types())

	// Second approval completes the workflow
	_, err = f.service.ProcessAction(context.Background(), 201, 1, "APPROVE", "")
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseApproved, f.expenses[50].Status)
}

func TestProcessActionRejectRejectsExpenseAndKeepsSiblingsPending(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	expense := submittedExpense(50)
	expense.Status = entity.ExpensePending
	f.addExpense(expense)
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})
	f.addStep(&entity.ApprovalStep{ID: 201, ExpenseID: 50, ApproverID: 1, Status: entity.StepPending, StepOrder: 2})

	step, err := f.service.ProcessAction(context.Background(), 200, 3, "reject", "no receipt")
	require.NoError(t, err)

	assert.Equal(t, entity.StepRejected, step.Status)
	assert.Equal(t, entity.ExpenseRejected, f.expenses[50].Status)
	assert.Equal(t, "no receipt", f.expenses[50].RejectionReason)

	// The sibling step is not cancelled by the rejection
	assert.Equal(t, entity.StepPending, f.steps[201].Status)

	types := f.events.Types()
	assert.Equal(t, []event.Type{event.TypeStepDecided, event.TypeExpenseRejected}, types)
}

func TestProcessActionSkipCountsTowardCompletion(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	expense := submittedExpense(50)
	expense.Status = entity.ExpensePending
	f.addExpense(expense)
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})

	_, err := f.service.ProcessAction(context.Background(), 200, 3, "SKIP", "delegated")
	require.NoError(t, err)

	assert.Equal(t, entity.StepSkipped, f.steps[200].Status)
	assert.Equal(t, entity.ExpenseApproved, f.expenses[50].Status)
}

func TestProcessActionPreconditions(t *testing.T) {
	setup := func(t *testing.T) *approvalFixture {
		f := newApprovalFixture(t, standardDirectory())
		expense := submittedExpense(50)
		expense.Status = entity.ExpensePending
		f.addExpense(expense)
		f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})
		return f
	}

	t.Run("unknown step", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.ProcessAction(context.Background(), 999, 3, "APPROVE", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("actor is not the bound approver", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.ProcessAction(context.Background(), 200, 1, "APPROVE", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, entity.StepPending, f.steps[200].Status)
	})

	t.Run("step already decided", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.ProcessAction(context.Background(), 200, 3, "APPROVE", "")
		require.NoError(t, err)

		_, err = f.service.ProcessAction(context.Background(), 200, 3, "REJECT", "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown action token", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.ProcessAction(context.Background(), 200, 3, "ESCALATE", "")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, entity.StepPending, f.steps[200].Status)
	})

	t.Run("authorization is checked before state", func(t *testing.T) {
		f := setup(t)
		f.steps[200].Status = entity.StepApproved

		// Wrong actor on a decided step reports unauthorized, not state
		_, err := f.service.ProcessAction(context.Background(), 200, 1, "APPROVE", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestProcessActionTokenIsCaseInsensitive(t *testing.T) {
	for _, token := range []string{"approve", "Approve", "APPROVE", "  approve  "} {
		f := newApprovalFixture(t, standardDirectory())
		expense := submittedExpense(50)
		expense.Status = entity.ExpensePending
		f.addExpense(expense)
		f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})

		step, err := f.service.ProcessAction(context.Background(), 200, 3, token, "")
		require.NoError(t, err, "token %q", token)
		assert.Equal(t, entity.StepApproved, step.Status)
	}
}

func TestProcessActionLostRaceReportsInvalidState(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())
	expense := submittedExpense(50)
	expense.Status = entity.ExpensePending
	f.addExpense(expense)

	// Step reads as pending but the guarded update loses the race
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})
	raced := false
	svc := f.service.(*approvalServiceImpl)
	inner := svc.stepRepo.(*mockStepRepo)
	inner.DecideIfPendingFn = func(ctx context.Context, id int64, status entity.StepStatus, comments string, decidedAt time.Time) (bool, error) {
		raced = true
		return false, nil
	}

	_, err := f.service.ProcessAction(context.Background(), 200, 3, "APPROVE", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.True(t, raced)
}

func TestGetWorkflowAuthorization(t *testing.T) {
	f := newApprovalFixture(t, directory(
		&entity.User{ID: 1, Role: entity.RoleAdmin, CompanyID: 1, IsActive: true},
		&entity.User{ID: 3, Role: entity.RoleManager, CompanyID: 1, IsActive: true},
		&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true},
		&entity.User{ID: 9, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true},
	))

	expense := submittedExpense(50)
	expense.Status = entity.ExpensePending
	f.addExpense(expense)
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})

	for _, viewerID := range []int64{7, 1, 3} { // owner, admin, approver
		steps, err := f.service.GetWorkflow(context.Background(), 50, viewerID)
		require.NoError(t, err, "viewer %d", viewerID)
		assert.Len(t, steps, 1)
	}

	_, err := f.service.GetWorkflow(context.Background(), 50, 9)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetPendingForApproverDeduplicatesExpenses(t *testing.T) {
	f := newApprovalFixture(t, standardDirectory())

	f.addExpense(submittedExpense(50))
	f.addExpense(submittedExpense(51))
	f.addStep(&entity.ApprovalStep{ID: 200, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})
	f.addStep(&entity.ApprovalStep{ID: 201, ExpenseID: 50, ApproverID: 3, Status: entity.StepPending, StepOrder: 2})
	f.addStep(&entity.ApprovalStep{ID: 202, ExpenseID: 51, ApproverID: 3, Status: entity.StepPending, StepOrder: 1})
	f.addStep(&entity.ApprovalStep{ID: 203, ExpenseID: 51, ApproverID: 1, Status: entity.StepPending, StepOrder: 2})

	expenses, err := f.service.GetPendingForApprover(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)
}
