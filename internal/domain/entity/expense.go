package entity

import "time"

// Expense represents a single expense claim
type Expense struct {
	ID              int64         `json:"id"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	Notes           string        `json:"notes,omitempty"`
	AmountCents     int64         `json:"amount_cents"`
	Currency        string        `json:"currency"`
	ConvertedCents  int64         `json:"converted_cents"`
	ConvertedCcy    string        `json:"converted_currency"`
	ExchangeRate    float64       `json:"exchange_rate"`
	Status          ExpenseStatus `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	ReceiptFilename string        `json:"receipt_filename,omitempty"`
	ExpenseDate     time.Time     `json:"expense_date"`
	EmployeeID      int64         `json:"employee_id"`
	CompanyID       int64         `json:"company_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsOwnedBy reports whether the expense belongs to the given user
func (e *Expense) IsOwnedBy(userID int64) bool {
	return e.EmployeeID == userID
}
