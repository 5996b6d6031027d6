package workflow

// NewExpenseMachine builds the expense lifecycle machine.
//
// DRAFT -SUBMIT-> SUBMITTED, then either START_WORKFLOW -> PENDING when an
// approval rule matched and steps were generated, or AUTO_APPROVE ->
// APPROVED when no rule applies. PENDING resolves to APPROVED or REJECTED
// through step aggregation, and APPROVED claims can be paid out.
func NewExpenseMachine(initial State) StateMachine {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerSubmit, StateSubmitted)

	b.Configure(StateSubmitted).
		Permit(TriggerStartWorkflow, StatePending).
		Permit(TriggerAutoApprove, StateApproved)

	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateApproved).
		Permit(TriggerPay, StatePaid)

	return b.Build(initial)
}
