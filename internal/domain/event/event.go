package event

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Event represents a domain event emitted by the approval engine
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	ExpenseID int64                  `json:"expense_id"`
	CompanyID int64                  `json:"company_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates a new domain event with an auto-generated ID and timestamp
func New(eventType Type, expenseID, companyID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:        generateID(),
		Type:      eventType,
		ExpenseID: expenseID,
		CompanyID: companyID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// GetPayloadInt64 retrieves an int64 value from the payload
func (e *Event) GetPayloadInt64(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		if n, ok := val.(int64); ok {
			return n
		}
	}
	return 0
}

// generateID produces a random 16-byte hex identifier
func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "evt-" + time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(buf)
}
