package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finvera/expense-approval/internal/application/dispatcher"
	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
	"github.com/finvera/expense-approval/internal/domain/event"
	"github.com/finvera/expense-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ApprovalService runs the approval workflow: rule selection, step
// generation, action processing and status aggregation.
type ApprovalService interface {
	// StartWorkflow selects the applicable rule for a submitted expense,
	// generates its approval steps and moves it to PENDING, or
	// auto-approves when no rule matches. Runs once per submission;
	// idempotency is the caller's responsibility.
	StartWorkflow(ctx context.Context, expense *entity.Expense) error

	// ProcessAction applies a single approve/reject/skip action to one
	// pending step and re-derives the expense status
	ProcessAction(ctx context.Context, stepID, actorID int64, action, comments string) (*entity.ApprovalStep, error)

	// GetWorkflow returns the expense's steps in step order. The viewer
	// must be the owner, an administrator, or a bound approver.
	GetWorkflow(ctx context.Context, expenseID, viewerID int64) ([]*entity.ApprovalStep, error)

	// GetPendingForApprover lists expenses with a pending step bound to the approver
	GetPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Expense, error)

	// GetApprovalHistory lists the approver's decided steps
	GetApprovalHistory(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error)
}

type approvalServiceImpl struct {
	expenseRepo port.ExpenseRepository
	ruleRepo    port.RuleRepository
	stepRepo    port.StepRepository
	userRepo    port.UserRepository
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	logger      Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	expenseRepo port.ExpenseRepository,
	ruleRepo port.RuleRepository,
	stepRepo port.StepRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		expenseRepo: expenseRepo,
		ruleRepo:    ruleRepo,
		stepRepo:    stepRepo,
		userRepo:    userRepo,
		txManager:   txManager,
		events:      events,
		logger:      logger,
	}
}

// StartWorkflow materializes the applicable rule into approval steps
func (s *approvalServiceImpl) StartWorkflow(ctx context.Context, expense *entity.Expense) error {
	rule, err := selectRule(ctx, s.ruleRepo, expense)
	if err != nil {
		return err
	}

	machine := workflow.NewExpenseMachine(workflow.State(expense.Status))

	if rule == nil {
		// No applicable rule: the expense is approved with zero steps
		if err := machine.Fire(ctx, workflow.TriggerAutoApprove); err != nil {
			return fmt.Errorf("%w: expense %d cannot start workflow from %s", ErrInvalidState, expense.ID, expense.Status)
		}
		expense.Status = entity.ExpenseStatus(machine.State())

		if err := s.expenseRepo.Update(ctx, expense); err != nil {
			return fmt.Errorf("auto-approve expense: %w", err)
		}

		s.logger.Info("No approval rule matched, expense auto-approved",
			"expense_id", expense.ID, "amount_cents", expense.ConvertedCents)
		s.publish(ctx, event.New(event.TypeExpenseApproved, expense.ID, expense.CompanyID, map[string]interface{}{
			"auto_approved": true,
		}))
		return nil
	}

	steps, err := generateSteps(ctx, s.userRepo, expense, rule)
	if err != nil {
		return err
	}

	if err := machine.Fire(ctx, workflow.TriggerStartWorkflow); err != nil {
		return fmt.Errorf("%w: expense %d cannot start workflow from %s", ErrInvalidState, expense.ID, expense.Status)
	}
	expense.Status = entity.ExpenseStatus(machine.State())

	// The step batch and the status flip commit together or not at all
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if len(steps) > 0 {
			if err := s.stepRepo.CreateBatch(txCtx, steps); err != nil {
				return fmt.Errorf("create approval steps: %w", err)
			}
		}
		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return fmt.Errorf("update expense status: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to start workflow", "error", err, "expense_id", expense.ID)
		return err
	}

	s.logger.Info("Approval workflow started",
		"expense_id", expense.ID, "rule_id", rule.ID, "steps", len(steps))
	s.publish(ctx, event.New(event.TypeWorkflowStarted, expense.ID, expense.CompanyID, map[string]interface{}{
		"rule_id":    rule.ID,
		"step_count": int64(len(steps)),
	}))
	return nil
}

// actionStatuses maps normalized action tokens to step outcomes
var actionStatuses = map[entity.Action]entity.StepStatus{
	entity.ActionApprove: entity.StepApproved,
	entity.ActionReject:  entity.StepRejected,
	entity.ActionSkip:    entity.StepSkipped,
}

// ProcessAction validates and applies one action against one pending step.
// Preconditions are checked in order: step exists, actor is the bound
// approver, step is still pending, action token is recognized. Any
// violation aborts with no mutation.
func (s *approvalServiceImpl) ProcessAction(ctx context.Context, stepID, actorID int64, action, comments string) (*entity.ApprovalStep, error) {
	var (
		step    *entity.ApprovalStep
		expense *entity.Expense
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		step, err = s.stepRepo.GetByID(txCtx, stepID)
		if err != nil {
			return fmt.Errorf("load step: %w", err)
		}
		if step == nil {
			return fmt.Errorf("%w: approval step %d", ErrNotFound, stepID)
		}

		if step.ApproverID != actorID {
			return fmt.Errorf("%w: user %d is not the approver for step %d", ErrUnauthorized, actorID, stepID)
		}

		if !step.IsPending() {
			return fmt.Errorf("%w: step %d already processed", ErrInvalidState, stepID)
		}

		normalized := entity.Action(strings.ToUpper(strings.TrimSpace(action)))
		status, ok := actionStatuses[normalized]
		if !ok {
			return fmt.Errorf("%w: unknown approval action %q", ErrInvalidInput, action)
		}

		now := time.Now()
		decided, err := s.stepRepo.DecideIfPending(txCtx, stepID, status, comments, now)
		if err != nil {
			return fmt.Errorf("decide step: %w", err)
		}
		if !decided {
			// A concurrent action won the race on this step
			return fmt.Errorf("%w: step %d already processed", ErrInvalidState, stepID)
		}
		step.Decide(status, comments, now)

		expense, err = s.expenseRepo.GetByID(txCtx, step.ExpenseID)
		if err != nil {
			return fmt.Errorf("load expense: %w", err)
		}
		if expense == nil {
			return fmt.Errorf("%w: expense %d", ErrNotFound, step.ExpenseID)
		}

		if status == entity.StepRejected {
			expense.RejectionReason = comments
		}

		// Re-derive the expense status from the full step set, observing
		// the mutation just written in this transaction
		steps, err := s.stepRepo.GetByExpenseID(txCtx, expense.ID)
		if err != nil {
			return fmt.Errorf("load sibling steps: %w", err)
		}

		aggregated := AggregateStatus(steps)
		if expense.Status == entity.ExpensePending && aggregated != entity.ExpensePending {
			machine := workflow.NewExpenseMachine(workflow.State(expense.Status))
			trigger := workflow.TriggerApprove
			if aggregated == entity.ExpenseRejected {
				trigger = workflow.TriggerReject
			}
			if err := machine.Fire(txCtx, trigger); err != nil {
				return fmt.Errorf("aggregate transition: %w", err)
			}
			expense.Status = entity.ExpenseStatus(machine.State())
		}

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval action processed",
		"step_id", step.ID, "expense_id", expense.ID,
		"action", string(step.Status), "expense_status", string(expense.Status))

	s.publish(ctx, event.New(event.TypeStepDecided, expense.ID, expense.CompanyID, map[string]interface{}{
		"step_id": step.ID,
		"status":  string(step.Status),
	}))
	switch expense.Status {
	case entity.ExpenseApproved:
		s.publish(ctx, event.New(event.TypeExpenseApproved, expense.ID, expense.CompanyID, nil))
	case entity.ExpenseRejected:
		s.publish(ctx, event.New(event.TypeExpenseRejected, expense.ID, expense.CompanyID, map[string]interface{}{
			"reason": expense.RejectionReason,
		}))
	}

	return step, nil
}

// GetWorkflow returns the expense's steps for display, enforcing viewing rights
func (s *approvalServiceImpl) GetWorkflow(ctx context.Context, expenseID, viewerID int64) ([]*entity.ApprovalStep, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d", ErrNotFound, expenseID)
	}

	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load viewer: %w", err)
	}
	if viewer == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, viewerID)
	}

	steps, err := s.stepRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}

	if !expense.IsOwnedBy(viewerID) && !viewer.IsAdmin() && !isApproverInWorkflow(viewerID, steps) {
		return nil, fmt.Errorf("%w: user %d may not view workflow of expense %d", ErrUnauthorized, viewerID, expenseID)
	}

	return steps, nil
}

// GetPendingForApprover lists distinct expenses awaiting the approver
func (s *approvalServiceImpl) GetPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Expense, error) {
	pending, err := s.stepRepo.FindPendingByApprover(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("load pending steps: %w", err)
	}

	seen := make(map[int64]bool, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, step := range pending {
		if !seen[step.ExpenseID] {
			seen[step.ExpenseID] = true
			ids = append(ids, step.ExpenseID)
		}
	}
	if len(ids) == 0 {
		return []*entity.Expense{}, nil
	}

	return s.expenseRepo.ListByIDs(ctx, ids)
}

// GetApprovalHistory lists the approver's approved and rejected steps
func (s *approvalServiceImpl) GetApprovalHistory(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	approved, err := s.stepRepo.FindByApproverAndStatus(ctx, approverID, entity.StepApproved)
	if err != nil {
		return nil, fmt.Errorf("load approval history: %w", err)
	}
	rejected, err := s.stepRepo.FindByApproverAndStatus(ctx, approverID, entity.StepRejected)
	if err != nil {
		return nil, fmt.Errorf("load approval history: %w", err)
	}
	return append(approved, rejected...), nil
}

// publish dispatches an event without blocking the request path
func (s *approvalServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.events != nil {
		s.events.DispatchAsync(ctx, evt)
	}
}

func isApproverInWorkflow(userID int64, steps []*entity.ApprovalStep) bool {
	for _, step := range steps {
		if step.ApproverID == userID {
			return true
		}
	}
	return false
}
