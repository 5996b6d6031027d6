package utils

import (
	"fmt"
	"regexp"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	controlRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateCurrency validates an ISO 4217 style three-letter currency code
func ValidateCurrency(code string) error {
	if !currencyRegex.MatchString(code) {
		return fmt.Errorf("invalid currency code: %s", code)
	}
	return nil
}

// ValidateAmountCents validates an expense amount in cents
func ValidateAmountCents(cents int64) error {
	if cents <= 0 {
		return fmt.Errorf("amount must be positive: %d", cents)
	}
	return nil
}

// SanitizeString removes control characters from user input
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}
