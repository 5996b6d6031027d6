package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/finvera/expense-approval/internal/application/dispatcher"
	"github.com/finvera/expense-approval/internal/domain/entity"
	"github.com/finvera/expense-approval/internal/domain/event"
)

// Function-field mocks: each test sets only the calls it expects.

type mockExpenseRepo struct {
	CreateFn         func(ctx context.Context, expense *entity.Expense) error
	GetByIDFn        func(ctx context.Context, id int64) (*entity.Expense, error)
	UpdateFn         func(ctx context.Context, expense *entity.Expense) error
	ListByEmployeeFn func(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error)
	ListByCompanyFn  func(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error)
	ListByIDsFn      func(ctx context.Context, ids []int64) ([]*entity.Expense, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	if m.CreateFn == nil {
		return nil
	}
	return m.CreateFn(ctx, expense)
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.GetByIDFn == nil {
		return nil, nil
	}
	return m.GetByIDFn(ctx, id)
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *entity.Expense) error {
	if m.UpdateFn == nil {
		return nil
	}
	return m.UpdateFn(ctx, expense)
}

func (m *mockExpenseRepo) ListByEmployee(ctx context.Context, employeeID int64, limit, offset int) ([]*entity.Expense, error) {
	if m.ListByEmployeeFn == nil {
		return nil, nil
	}
	return m.ListByEmployeeFn(ctx, employeeID, limit, offset)
}

func (m *mockExpenseRepo) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
	if m.ListByCompanyFn == nil {
		return nil, nil
	}
	return m.ListByCompanyFn(ctx, companyID, limit, offset)
}

func (m *mockExpenseRepo) ListByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	if m.ListByIDsFn == nil {
		return nil, nil
	}
	return m.ListByIDsFn(ctx, ids)
}

type mockRuleRepo struct {
	GetActiveByCompanyFn func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
	GetByIDFn            func(ctx context.Context, id int64) (*entity.ApprovalRule, error)
	CreateFn             func(ctx context.Context, rule *entity.ApprovalRule) error
}

func (m *mockRuleRepo) GetActiveByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	if m.GetActiveByCompanyFn == nil {
		return nil, nil
	}
	return m.GetActiveByCompanyFn(ctx, companyID)
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	if m.GetByIDFn == nil {
		return nil, nil
	}
	return m.GetByIDFn(ctx, id)
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	if m.CreateFn == nil {
		return nil
	}
	return m.CreateFn(ctx, rule)
}

type mockStepRepo struct {
	CreateBatchFn             func(ctx context.Context, steps []*entity.ApprovalStep) error
	GetByIDFn                 func(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	GetByExpenseIDFn          func(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error)
	DecideIfPendingFn         func(ctx context.Context, id int64, status entity.StepStatus, comments string, decidedAt time.Time) (bool, error)
	FindPendingByApproverFn   func(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error)
	FindByApproverAndStatusFn func(ctx context.Context, approverID int64, status entity.StepStatus) ([]*entity.ApprovalStep, error)
}

func (m *mockStepRepo) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	if m.CreateBatchFn == nil {
		return nil
	}
	return m.CreateBatchFn(ctx, steps)
}

func (m *mockStepRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	if m.GetByIDFn == nil {
		return nil, nil
	}
	return m.GetByIDFn(ctx, id)
}

func (m *mockStepRepo) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	if m.GetByExpenseIDFn == nil {
		return nil, nil
	}
	return m.GetByExpenseIDFn(ctx, expenseID)
}

func (m *mockStepRepo) DecideIfPending(ctx context.Context, id int64, status entity.StepStatus, comments string, decidedAt time.Time) (bool, error) {
	if m.DecideIfPendingFn == nil {
		return true, nil
	}
	return m.DecideIfPendingFn(ctx, id, status, comments, decidedAt)
}

func (m *mockStepRepo) FindPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	if m.FindPendingByApproverFn == nil {
		return nil, nil
	}
	return m.FindPendingByApproverFn(ctx, approverID)
}

func (m *mockStepRepo) FindByApproverAndStatus(ctx context.Context, approverID int64, status entity.StepStatus) ([]*entity.ApprovalStep, error) {
	if m.FindByApproverAndStatusFn == nil {
		return nil, nil
	}
	return m.FindByApproverAndStatusFn(ctx, approverID, status)
}

type mockUserRepo struct {
	CreateFn                     func(ctx context.Context, user *entity.User) error
	GetByIDFn                    func(ctx context.Context, id int64) (*entity.User, error)
	GetByUsernameOrEmailFn       func(ctx context.Context, usernameOrEmail string) (*entity.User, error)
	ExistsByUsernameFn           func(ctx context.Context, username string) (bool, error)
	ExistsByEmailFn              func(ctx context.Context, email string) (bool, error)
	FindActiveByCompanyAndRoleFn func(ctx context.Context, companyID int64, role entity.RoleType) ([]*entity.User, error)
	FindSubordinatesFn           func(ctx context.Context, managerID int64) ([]*entity.User, error)
	ListByCompanyFn              func(ctx context.Context, companyID int64) ([]*entity.User, error)
	UpdateFn                     func(ctx context.Context, user *entity.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFn == nil {
		return nil
	}
	return m.CreateFn(ctx, user)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.GetByIDFn == nil {
		return nil, nil
	}
	return m.GetByIDFn(ctx, id)
}

func (m *mockUserRepo) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	if m.GetByUsernameOrEmailFn == nil {
		return nil, nil
	}
	return m.GetByUsernameOrEmailFn(ctx, usernameOrEmail)
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.ExistsByUsernameFn == nil {
		return false, nil
	}
	return m.ExistsByUsernameFn(ctx, username)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFn == nil {
		return false, nil
	}
	return m.ExistsByEmailFn(ctx, email)
}

func (m *mockUserRepo) FindActiveByCompanyAndRole(ctx context.Context, companyID int64, role entity.RoleType) ([]*entity.User, error) {
	if m.FindActiveByCompanyAndRoleFn == nil {
		return nil, nil
	}
	return m.FindActiveByCompanyAndRoleFn(ctx, companyID, role)
}

func (m *mockUserRepo) FindSubordinates(ctx context.Context, managerID int64) ([]*entity.User, error) {
	if m.FindSubordinatesFn == nil {
		return nil, nil
	}
	return m.FindSubordinatesFn(ctx, managerID)
}

func (m *mockUserRepo) ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error) {
	if m.ListByCompanyFn == nil {
		return nil, nil
	}
	return m.ListByCompanyFn(ctx, companyID)
}

func (m *mockUserRepo) Update(ctx context.Context, user *entity.User) error {
	if m.UpdateFn == nil {
		return nil
	}
	return m.UpdateFn(ctx, user)
}

type mockCompanyRepo struct {
	CreateFn  func(ctx context.Context, company *entity.Company) error
	GetByIDFn func(ctx context.Context, id int64) (*entity.Company, error)
}

func (m *mockCompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	if m.CreateFn == nil {
		return nil
	}
	return m.CreateFn(ctx, company)
}

func (m *mockCompanyRepo) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	if m.GetByIDFn == nil {
		return nil, nil
	}
	return m.GetByIDFn(ctx, id)
}

// mockTxManager runs the function inline without a real transaction
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockConverter applies a fixed rate
type mockConverter struct {
	Rate float64
}

func (m *mockConverter) Convert(ctx context.Context, amountCents int64, fromCurrency, toCurrency string) (int64, float64, error) {
	if fromCurrency == toCurrency || m.Rate == 0 {
		return amountCents, 1.0, nil
	}
	return int64(float64(amountCents) * m.Rate), m.Rate, nil
}

// mockReceiptStore records saved filenames
type mockReceiptStore struct {
	SavedNames []string
}

func (m *mockReceiptStore) Save(ctx context.Context, originalFilename string, content io.Reader) (string, error) {
	name := "stored-" + originalFilename
	m.SavedNames = append(m.SavedNames, name)
	return name, nil
}

func (m *mockReceiptStore) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

// captureDispatcher records dispatched events in order
type captureDispatcher struct {
	mu     sync.Mutex
	Events []*event.Event
}

func (d *captureDispatcher) Subscribe(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (d *captureDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.record(evt)
	return nil
}

func (d *captureDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.record(evt)
}

func (d *captureDispatcher) Close() error { return nil }

func (d *captureDispatcher) record(evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Events = append(d.Events, evt)
}

func (d *captureDispatcher) Types() []event.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]event.Type, 0, len(d.Events))
	for _, evt := range d.Events {
		types = append(types, evt.Type)
	}
	return types
}

// testLogger discards everything
type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}
