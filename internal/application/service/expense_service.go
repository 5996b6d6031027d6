package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/finvera/expense-approval/internal/application/dispatcher"
	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
	"github.com/finvera/expense-approval/internal/domain/event"
	"github.com/finvera/expense-approval/internal/domain/workflow"
)

// CreateExpenseInput carries the fields of a new expense claim
type CreateExpenseInput struct {
	Description string
	Category    string
	Notes       string
	AmountCents int64
	Currency    string
	ExpenseDate time.Time
}

// ExpenseService manages expense claims around the approval engine
type ExpenseService interface {
	// Create stores a new DRAFT expense with its amount normalized into
	// the company currency
	Create(ctx context.Context, employeeID int64, input CreateExpenseInput) (*entity.Expense, error)

	// Submit moves an owner's DRAFT expense to SUBMITTED and starts the
	// approval workflow
	Submit(ctx context.Context, expenseID, employeeID int64) (*entity.Expense, error)

	// Get returns one expense, enforcing owner/admin/approver visibility
	Get(ctx context.Context, expenseID, viewerID int64) (*entity.Expense, error)

	// ListByEmployee returns the employee's own expenses
	ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error)

	// ListByCompany returns all company expenses (admin view)
	ListByCompany(ctx context.Context, viewerID int64, limit, offset int) ([]*entity.Expense, error)

	// AttachReceipt stores a receipt file for an owner's expense
	AttachReceipt(ctx context.Context, expenseID, employeeID int64, filename string, content io.Reader) (*entity.Expense, error)
}

type expenseServiceImpl struct {
	expenseRepo port.ExpenseRepository
	stepRepo    port.StepRepository
	userRepo    port.UserRepository
	companyRepo port.CompanyRepository
	converter   port.CurrencyConverter
	receipts    port.ReceiptStore
	approval    ApprovalService
	events      dispatcher.Dispatcher
	logger      Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	stepRepo port.StepRepository,
	userRepo port.UserRepository,
	companyRepo port.CompanyRepository,
	converter port.CurrencyConverter,
	receipts port.ReceiptStore,
	approval ApprovalService,
	events dispatcher.Dispatcher,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo: expenseRepo,
		stepRepo:    stepRepo,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		converter:   converter,
		receipts:    receipts,
		approval:    approval,
		events:      events,
		logger:      logger,
	}
}

// Create stores a new DRAFT expense
func (s *expenseServiceImpl) Create(ctx context.Context, employeeID int64, input CreateExpenseInput) (*entity.Expense, error) {
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if input.Currency == "" || input.Description == "" {
		return nil, fmt.Errorf("%w: currency and description are required", ErrInvalidInput)
	}

	employee, err := s.userRepo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, employeeID)
	}

	company, err := s.companyRepo.GetByID(ctx, employee.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company %d", ErrNotFound, employee.CompanyID)
	}

	converted, rate, err := s.converter.Convert(ctx, input.AmountCents, input.Currency, company.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("convert currency: %w", err)
	}

	expense := &entity.Expense{
		Description:    input.Description,
		Category:       input.Category,
		Notes:          input.Notes,
		AmountCents:    input.AmountCents,
		Currency:       input.Currency,
		ConvertedCents: converted,
		ConvertedCcy:   company.DefaultCurrency,
		ExchangeRate:   rate,
		Status:         entity.ExpenseDraft,
		ExpenseDate:    input.ExpenseDate,
		EmployeeID:     employee.ID,
		CompanyID:      company.ID,
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		s.logger.Error("Failed to create expense", "error", err, "employee_id", employeeID)
		return nil, err
	}

	s.logger.Info("Expense created",
		"expense_id", expense.ID, "employee_id", employeeID, "converted_cents", converted)
	return expense, nil
}

// Submit moves a DRAFT expense to SUBMITTED and hands it to the engine
func (s *expenseServiceImpl) Submit(ctx context.Context, expenseID, employeeID int64) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d", ErrNotFound, expenseID)
	}

	if !expense.IsOwnedBy(employeeID) {
		return nil, fmt.Errorf("%w: only the owner may submit expense %d", ErrUnauthorized, expenseID)
	}

	machine := workflow.NewExpenseMachine(workflow.State(expense.Status))
	if err := machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		return nil, fmt.Errorf("%w: only draft expenses can be submitted", ErrInvalidState)
	}
	expense.Status = entity.ExpenseStatus(machine.State())

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	if s.events != nil {
		s.events.DispatchAsync(ctx, event.New(event.TypeExpenseSubmitted, expense.ID, expense.CompanyID, map[string]interface{}{
			"amount_cents": expense.ConvertedCents,
		}))
	}

	if err := s.approval.StartWorkflow(ctx, expense); err != nil {
		return nil, err
	}

	return expense, nil
}

// Get returns one expense with owner/admin/approver visibility
func (s *expenseServiceImpl) Get(ctx context.Context, expenseID, viewerID int64) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d", ErrNotFound, expenseID)
	}

	if expense.IsOwnedBy(viewerID) {
		return expense, nil
	}

	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load viewer: %w", err)
	}
	if viewer == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, viewerID)
	}
	if viewer.IsAdmin() && viewer.CompanyID == expense.CompanyID {
		return expense, nil
	}

	steps, err := s.stepRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	if isApproverInWorkflow(viewerID, steps) {
		return expense, nil
	}

	return nil, fmt.Errorf("%w: user %d may not view expense %d", ErrUnauthorized, viewerID, expenseID)
}

// ListByEmployee returns the employee's own expenses
func (s *expenseServiceImpl) ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error) {
	return s.expenseRepo.ListByEmployee(ctx, employeeID, limit, offset)
}

// ListByCompany returns all expenses of the viewer's company (admin only)
func (s *expenseServiceImpl) ListByCompany(ctx context.Context, viewerID int64, limit, offset int) ([]*entity.Expense, error) {
	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load viewer: %w", err)
	}
	if viewer == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, viewerID)
	}
	if !viewer.IsAdmin() {
		return nil, fmt.Errorf("%w: company-wide listing requires admin role", ErrUnauthorized)
	}
	return s.expenseRepo.ListByCompany(ctx, viewer.CompanyID, limit, offset)
}

// AttachReceipt stores a receipt file against an owner's expense
func (s *expenseServiceImpl) AttachReceipt(ctx context.Context, expenseID, employeeID int64, filename string, content io.Reader) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d", ErrNotFound, expenseID)
	}
	if !expense.IsOwnedBy(employeeID) {
		return nil, fmt.Errorf("%w: only the owner may attach receipts to expense %d", ErrUnauthorized, expenseID)
	}

	stored, err := s.receipts.Save(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	expense.ReceiptFilename = stored
	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	s.logger.Info("Receipt attached", "expense_id", expenseID, "filename", stored)
	return expense, nil
}
