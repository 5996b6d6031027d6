package entity

// ExpenseStatus is the lifecycle status of an expense claim
type ExpenseStatus string

const (
	ExpenseDraft     ExpenseStatus = "DRAFT"
	ExpenseSubmitted ExpenseStatus = "SUBMITTED"
	ExpensePending   ExpenseStatus = "PENDING"
	ExpenseApproved  ExpenseStatus = "APPROVED"
	ExpenseRejected  ExpenseStatus = "REJECTED"
	ExpensePaid      ExpenseStatus = "PAID"
)

// StepStatus is the status of a single approval step
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
	StepSkipped  StepStatus = "SKIPPED"
)

// IsTerminal returns true once a step has been decided
func (s StepStatus) IsTerminal() bool {
	return s == StepApproved || s == StepRejected || s == StepSkipped
}

// RuleType classifies how an approval rule matches expenses
type RuleType string

const (
	RuleAmountBased     RuleType = "AMOUNT_BASED"
	RulePercentageBased RuleType = "PERCENTAGE_BASED"
	RuleRoleBased       RuleType = "ROLE_BASED"
	RuleHybrid          RuleType = "HYBRID"
)

// ApprovalFlow declares how a rule's steps are meant to be worked through.
// The flow kind is recorded on the rule but the engine does not serialize
// SEQUENTIAL steps; any pending step may be acted on by its approver.
type ApprovalFlow string

const (
	FlowSequential  ApprovalFlow = "SEQUENTIAL"
	FlowParallel    ApprovalFlow = "PARALLEL"
	FlowConditional ApprovalFlow = "CONDITIONAL"
)

// StepType identifies how a rule step's approver is resolved
type StepType string

const (
	StepTypeManager StepType = "MANAGER_APPROVAL"
	StepTypeRole    StepType = "ROLE_APPROVAL"
	StepTypeUser    StepType = "USER_APPROVAL"
	StepTypeFinance StepType = "FINANCE_APPROVAL"
	StepTypeAdmin   StepType = "ADMIN_APPROVAL"
)

// RoleType is a user's role within a company
type RoleType string

const (
	RoleAdmin    RoleType = "ADMIN"
	RoleManager  RoleType = "MANAGER"
	RoleEmployee RoleType = "EMPLOYEE"
)

// Action is an approval decision token. Tokens arrive case-insensitive
// over the API and are normalized before dispatch.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionSkip    Action = "SKIP"
)
