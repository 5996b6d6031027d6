package event

import "testing"

func TestNew(t *testing.T) {
	evt := New(TypeExpenseSubmitted, 42, 7, map[string]interface{}{"amount_cents": int64(50000)})

	if evt.ID == "" {
		t.Error("New() should generate an event ID")
	}
	if evt.Type != TypeExpenseSubmitted {
		t.Errorf("Type = %v, want %v", evt.Type, TypeExpenseSubmitted)
	}
	if evt.ExpenseID != 42 || evt.CompanyID != 7 {
		t.Errorf("identifiers = (%d, %d), want (42, 7)", evt.ExpenseID, evt.CompanyID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("New() should set a timestamp")
	}
	if got := evt.GetPayloadInt64("amount_cents"); got != 50000 {
		t.Errorf("GetPayloadInt64(amount_cents) = %d, want 50000", got)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New(TypeStepDecided, 1, 1, nil)
	b := New(TypeStepDecided, 1, 1, nil)
	if a.ID == b.ID {
		t.Error("New() should generate unique IDs")
	}
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		expected  bool
	}{
		{TypeExpenseSubmitted, true},
		{TypeWorkflowStarted, true},
		{TypeStepDecided, true},
		{TypeExpenseApproved, true},
		{TypeExpenseRejected, true},
		{Type("unknown.event"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetPayloadString_MissingKey(t *testing.T) {
	evt := New(TypeExpenseRejected, 1, 1, map[string]interface{}{"reason": "over budget"})

	if got := evt.GetPayloadString("reason"); got != "over budget" {
		t.Errorf("GetPayloadString(reason) = %q, want %q", got, "over budget")
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q, want empty", got)
	}
}
